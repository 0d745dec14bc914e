// Package snapshot reads and writes the JSON snapshot document:
// {bills: [...], plan: {...}, auto_calc: bool}. Bills, payments and income
// round-trip exactly; the plan's schedule is carried as a cache and is
// recomputed on load whenever auto_calc is set.
package snapshot

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sort"
	"time"

	"billplan/sched"
)

const dateLayout = "2006-01-02"

// Snapshot is the decoded document, already converted to engine types.
type Snapshot struct {
	Bills    []*sched.Bill
	Plan     *sched.Plan
	AutoCalc bool
}

type document struct {
	Bills    []billDoc `json:"bills"`
	Plan     planDoc   `json:"plan"`
	AutoCalc bool      `json:"auto_calc"`
}

type billDoc struct {
	Name     string       `json:"name"`
	Total    float64      `json:"total"`
	Due      string       `json:"due"`
	Priority int          `json:"priority"`
	Payments []paymentDoc `json:"payments"`
}

type paymentDoc struct {
	When   string  `json:"when"`
	Amount float64 `json:"amount"`
	Note   string  `json:"note"`
}

type planDoc struct {
	Start    string                      `json:"start"`
	End      string                      `json:"end"`
	Income   map[string]float64          `json:"income"`
	Schedule map[string][]allocationPair `json:"schedule"`
}

// allocationPair serializes a schedule entry as a [name, amount] tuple, the
// document's historical on-disk shape.
type allocationPair struct {
	Bill   string
	Amount float64
}

func (p allocationPair) MarshalJSON() ([]byte, error) {
	return json.Marshal([2]any{p.Bill, p.Amount})
}

func (p *allocationPair) UnmarshalJSON(data []byte) error {
	var raw [2]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("schedule entry is not a [name, amount] pair: %w", err)
	}
	if err := json.Unmarshal(raw[0], &p.Bill); err != nil {
		return fmt.Errorf("schedule entry name: %w", err)
	}
	if err := json.Unmarshal(raw[1], &p.Amount); err != nil {
		return fmt.Errorf("schedule entry amount: %w", err)
	}
	return nil
}

func parseDate(field, value string) (time.Time, error) {
	t, err := time.Parse(dateLayout, value)
	if err != nil {
		return time.Time{}, fmt.Errorf("%s: invalid date %q: %w", field, value, err)
	}
	return sched.Day(t), nil
}

// Decode reads and converts a snapshot document.
func Decode(r io.Reader) (*Snapshot, error) {
	var doc document
	if err := json.NewDecoder(r).Decode(&doc); err != nil {
		return nil, fmt.Errorf("decode snapshot: %w", err)
	}

	snap := &Snapshot{AutoCalc: doc.AutoCalc}

	for _, bd := range doc.Bills {
		due, err := parseDate(fmt.Sprintf("bill %q due", bd.Name), bd.Due)
		if err != nil {
			return nil, err
		}
		bill := &sched.Bill{
			Name:     bd.Name,
			Total:    sched.CentsFromDollars(bd.Total),
			Due:      due,
			Priority: bd.Priority,
		}
		for i, pd := range bd.Payments {
			when, err := parseDate(fmt.Sprintf("bill %q payment %d", bd.Name, i), pd.When)
			if err != nil {
				return nil, err
			}
			bill.Payments = append(bill.Payments, sched.Payment{
				When:   when,
				Amount: sched.CentsFromDollars(pd.Amount),
				Note:   pd.Note,
			})
		}
		snap.Bills = append(snap.Bills, bill)
	}

	start, err := parseDate("plan start", doc.Plan.Start)
	if err != nil {
		return nil, err
	}
	end, err := parseDate("plan end", doc.Plan.End)
	if err != nil {
		return nil, err
	}
	plan := &sched.Plan{Start: start, End: end, Income: map[time.Time]sched.Cents{}}
	for dateStr, amount := range doc.Plan.Income {
		d, err := parseDate("income", dateStr)
		if err != nil {
			return nil, err
		}
		plan.Income[d] = sched.CentsFromDollars(amount)
	}
	if len(doc.Plan.Schedule) > 0 {
		plan.Schedule = make(map[time.Time][]sched.Allocation, len(doc.Plan.Schedule))
		for dateStr, pairs := range doc.Plan.Schedule {
			d, err := parseDate("schedule", dateStr)
			if err != nil {
				return nil, err
			}
			allocations := make([]sched.Allocation, 0, len(pairs))
			for _, p := range pairs {
				allocations = append(allocations, sched.Allocation{
					Bill:   p.Bill,
					Amount: sched.CentsFromDollars(p.Amount),
				})
			}
			plan.Schedule[d] = allocations
		}
	}
	snap.Plan = plan

	return snap, nil
}

// Encode writes the snapshot document. Bill order is preserved; map-backed
// sections marshal with sorted keys so output is reproducible.
func Encode(w io.Writer, snap *Snapshot) error {
	doc := document{AutoCalc: snap.AutoCalc, Bills: []billDoc{}}

	for _, b := range snap.Bills {
		bd := billDoc{
			Name:     b.Name,
			Total:    b.Total.Dollars(),
			Due:      b.Due.Format(dateLayout),
			Priority: b.Priority,
			Payments: []paymentDoc{},
		}
		for _, p := range b.Payments {
			bd.Payments = append(bd.Payments, paymentDoc{
				When:   p.When.Format(dateLayout),
				Amount: p.Amount.Dollars(),
				Note:   p.Note,
			})
		}
		doc.Bills = append(doc.Bills, bd)
	}

	if snap.Plan != nil {
		doc.Plan = planDoc{
			Start:    sched.Day(snap.Plan.Start).Format(dateLayout),
			End:      sched.Day(snap.Plan.End).Format(dateLayout),
			Income:   map[string]float64{},
			Schedule: map[string][]allocationPair{},
		}
		for d, amount := range snap.Plan.Income {
			doc.Plan.Income[d.Format(dateLayout)] = amount.Dollars()
		}
		for d, allocations := range snap.Plan.Schedule {
			pairs := make([]allocationPair, 0, len(allocations))
			for _, a := range allocations {
				pairs = append(pairs, allocationPair{Bill: a.Bill, Amount: a.Amount.Dollars()})
			}
			doc.Plan.Schedule[d.Format(dateLayout)] = pairs
		}
	}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(doc); err != nil {
		return fmt.Errorf("encode snapshot: %w", err)
	}
	return nil
}

// Load reads a snapshot file and, when auto_calc is set, recomputes the
// schedule instead of trusting the cached one.
func Load(path string) (*Snapshot, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open snapshot: %w", err)
	}
	defer f.Close()

	snap, err := Decode(f)
	if err != nil {
		return nil, err
	}
	if snap.AutoCalc {
		if err := sched.Recompute(snap.Bills, snap.Plan); err != nil {
			return nil, fmt.Errorf("recompute on load: %w", err)
		}
	}
	return snap, nil
}

// Save writes a snapshot file.
func Save(path string, snap *Snapshot) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create snapshot: %w", err)
	}
	defer f.Close()

	return Encode(f, snap)
}

// SortedBillNames is a small convenience for consumers that render the
// document: bill names in deterministic order.
func (s *Snapshot) SortedBillNames() []string {
	names := make([]string, 0, len(s.Bills))
	for _, b := range s.Bills {
		names = append(names, b.Name)
	}
	sort.Strings(names)
	return names
}
