package sched

import (
	"math"
	"sort"
	"time"
)

// Cents is an amount of money in integer cents. All engine math happens in
// cents so that schedules are exact and reproducible.
type Cents int64

// Dollars returns the amount as a float64 dollar value for display and
// serialization boundaries.
func (c Cents) Dollars() float64 {
	return float64(c) / 100
}

// CentsFromDollars converts a dollar amount to cents, rounding to the nearest
// cent.
func CentsFromDollars(d float64) Cents {
	return Cents(math.Round(d * 100))
}

// Payment is an immutable record of money applied (or explicitly not applied)
// to a bill on a date. A zero Amount is a valid sentinel meaning the payment
// was missed.
type Payment struct {
	When   time.Time
	Amount Cents
	Note   string
}

// Bill is a tracked debt obligation with a due date, total and payment
// history. Name is the bill's identity; plans reference bills by name only.
type Bill struct {
	Name     string
	Total    Cents
	Due      time.Time
	Priority int // 1 (most urgent) .. 5 (least urgent)
	Payments []Payment
}

// PaidAmount returns the sum of all positive payment amounts.
func (b *Bill) PaidAmount() Cents {
	var paid Cents
	for _, p := range b.Payments {
		if p.Amount > 0 {
			paid += p.Amount
		}
	}
	return paid
}

// Remaining returns the unpaid portion of the bill's total. Over-payment
// clamps to zero; the result is never negative.
func (b *Bill) Remaining() Cents {
	remaining := b.Total - b.PaidAmount()
	if remaining < 0 {
		return 0
	}
	return remaining
}

// MissedCount returns the number of recorded missed payments (zero-amount
// sentinel records).
func (b *Bill) MissedCount() int {
	count := 0
	for _, p := range b.Payments {
		if p.Amount == 0 {
			count++
		}
	}
	return count
}

// Allocation is a single scheduled payment toward a bill on some day.
type Allocation struct {
	Bill   string
	Amount Cents
}

// Plan is a bounded date range over which bill payments are scheduled,
// together with the sparse income calendar and the derived allocation table.
// Schedule is fully recomputed on every planning event, never patched.
type Plan struct {
	Start    time.Time
	End      time.Time
	Income   map[time.Time]Cents
	Schedule map[time.Time][]Allocation
}

// Day normalizes a time to the engine's canonical day representation:
// midnight UTC. All map keys and date comparisons go through this.
func Day(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// DaysBetween returns the signed number of whole days from a to b.
func DaysBetween(a, b time.Time) int {
	return int(Day(b).Sub(Day(a)).Hours() / 24)
}

// Days returns every day of the plan range, inclusive, in chronological
// order.
func (p *Plan) Days() []time.Time {
	start, end := Day(p.Start), Day(p.End)
	if end.Before(start) {
		return nil
	}
	days := make([]time.Time, 0, DaysBetween(start, end)+1)
	for d := start; !d.After(end); d = d.AddDate(0, 0, 1) {
		days = append(days, d)
	}
	return days
}

// TotalScheduled sums every allocation across the whole plan.
func (p *Plan) TotalScheduled() Cents {
	var total Cents
	for _, allocations := range p.Schedule {
		for _, a := range allocations {
			total += a.Amount
		}
	}
	return total
}

// BillIndex builds a name-keyed lookup over a bill slice. Later duplicates
// are ignored; Validate rejects duplicate names before the engine runs.
func BillIndex(bills []*Bill) map[string]*Bill {
	index := make(map[string]*Bill, len(bills))
	for _, b := range bills {
		if _, exists := index[b.Name]; !exists {
			index[b.Name] = b
		}
	}
	return index
}

func clampPriority(priority int) int {
	if priority < 1 {
		return 1
	}
	if priority > 5 {
		return 5
	}
	return priority
}

// sortedDays returns the schedule's keys in chronological order, for
// deterministic iteration.
func sortedDays(schedule map[time.Time][]Allocation) []time.Time {
	days := make([]time.Time, 0, len(schedule))
	for d := range schedule {
		days = append(days, d)
	}
	sort.Slice(days, func(i, j int) bool { return days[i].Before(days[j]) })
	return days
}
