package sched

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"testing"
	"time"
)

func scheduleFingerprint(plan *Plan) string {
	var sb strings.Builder
	days := make([]time.Time, 0, len(plan.Schedule))
	for d := range plan.Schedule {
		days = append(days, d)
	}
	sort.Slice(days, func(i, j int) bool { return days[i].Before(days[j]) })
	for _, d := range days {
		sb.WriteString(d.Format("2006-01-02"))
		for _, a := range plan.Schedule[d] {
			fmt.Fprintf(&sb, " %s=%d", a.Bill, a.Amount)
		}
		sb.WriteByte('\n')
	}
	return sb.String()
}

func TestRecomputeValidation(t *testing.T) {
	start := day(2026, time.May, 1)
	end := day(2026, time.May, 10)
	due := day(2026, time.May, 5)

	tests := []struct {
		name  string
		bills []*Bill
		plan  *Plan
	}{
		{
			name:  "nil plan",
			bills: nil,
			plan:  nil,
		},
		{
			name:  "zero plan range",
			bills: nil,
			plan:  &Plan{},
		},
		{
			name:  "start after end",
			bills: nil,
			plan:  &Plan{Start: end, End: start},
		},
		{
			name:  "negative total",
			bills: []*Bill{{Name: "a", Total: -1, Due: due, Priority: 3}},
			plan:  &Plan{Start: start, End: end},
		},
		{
			name:  "empty bill name",
			bills: []*Bill{{Name: "", Total: 100, Due: due, Priority: 3}},
			plan:  &Plan{Start: start, End: end},
		},
		{
			name: "duplicate bill names",
			bills: []*Bill{
				{Name: "a", Total: 100, Due: due, Priority: 3},
				{Name: "a", Total: 200, Due: due, Priority: 1},
			},
			plan: &Plan{Start: start, End: end},
		},
		{
			name: "negative payment",
			bills: []*Bill{{Name: "a", Total: 100, Due: due, Priority: 3,
				Payments: []Payment{{When: start, Amount: -5, Note: "bad"}}}},
			plan: &Plan{Start: start, End: end},
		},
		{
			name:  "missing due date",
			bills: []*Bill{{Name: "a", Total: 100, Priority: 3}},
			plan:  &Plan{Start: start, End: end},
		},
		{
			name:  "negative income",
			bills: nil,
			plan:  &Plan{Start: start, End: end, Income: map[time.Time]Cents{start: -100}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Recompute(tt.bills, tt.plan)
			if err == nil {
				t.Fatal("Recompute() should reject malformed input")
			}
			if !errors.Is(err, ErrInvalidInput) {
				t.Errorf("error should wrap ErrInvalidInput, got %v", err)
			}
			// Fail fast: no partial schedule gets built.
			if tt.plan != nil && len(tt.plan.Schedule) != 0 {
				t.Errorf("schedule partially populated after validation failure")
			}
		})
	}
}

func TestRecomputeCoversEveryDay(t *testing.T) {
	start := day(2026, time.May, 1)
	end := day(2026, time.May, 14)
	plan := &Plan{Start: start, End: end}

	if err := Recompute(nil, plan); err != nil {
		t.Fatalf("Recompute() error: %v", err)
	}

	if len(plan.Schedule) != 14 {
		t.Fatalf("schedule has %d days, expected 14", len(plan.Schedule))
	}
	for d := start; !d.After(end); d = d.AddDate(0, 0, 1) {
		if _, ok := plan.Schedule[d]; !ok {
			t.Errorf("schedule missing day %s", d.Format("2006-01-02"))
		}
	}
}

func TestRecomputeDeterministic(t *testing.T) {
	start := day(2026, time.May, 1)
	end := day(2026, time.June, 15)
	bills := []*Bill{
		{Name: "rent", Total: 120000, Due: day(2026, time.June, 1), Priority: 1},
		{Name: "electric", Total: 8500, Due: day(2026, time.May, 20), Priority: 3,
			Payments: []Payment{{When: day(2026, time.April, 20), Amount: 2000, Note: "partial"}}},
		{Name: "card", Total: 45000, Due: day(2026, time.April, 28), Priority: 2,
			Payments: []Payment{{When: day(2026, time.April, 28), Amount: 0, Note: "missed"}}},
	}
	income := map[time.Time]Cents{
		day(2026, time.May, 1):  150000,
		day(2026, time.May, 15): 150000,
		day(2026, time.June, 1): 150000,
	}

	plans := make([]*Plan, 2)
	for i := range plans {
		plans[i] = &Plan{Start: start, End: end, Income: income}
		if err := Recompute(bills, plans[i]); err != nil {
			t.Fatalf("Recompute() error: %v", err)
		}
	}

	if a, b := scheduleFingerprint(plans[0]), scheduleFingerprint(plans[1]); a != b {
		t.Errorf("two recomputes of identical input differ:\n%s\nvs\n%s", a, b)
	}
}

func TestRemainingNeverNegative(t *testing.T) {
	b := Bill{Name: "over", Total: 1000, Due: day(2026, time.May, 1), Priority: 3,
		Payments: []Payment{
			{When: day(2026, time.April, 1), Amount: 800, Note: "paid"},
			{When: day(2026, time.April, 2), Amount: 800, Note: "paid again"},
		}}
	if got := b.Remaining(); got != 0 {
		t.Errorf("Remaining() = %d, expected over-payment clamped to 0", got)
	}
}

func TestApplyPayment(t *testing.T) {
	original := Bill{Name: "a", Total: 1000, Due: day(2026, time.May, 1), Priority: 3}

	updated, err := ApplyPayment(original, Payment{When: day(2026, time.April, 1), Amount: 400, Note: "partial"})
	if err != nil {
		t.Fatalf("ApplyPayment() error: %v", err)
	}
	if len(updated.Payments) != 1 || updated.Remaining() != 600 {
		t.Errorf("unexpected updated bill: %+v", updated)
	}
	if len(original.Payments) != 0 {
		t.Errorf("ApplyPayment mutated its input")
	}

	if _, err := ApplyPayment(original, Payment{When: day(2026, time.April, 1), Amount: -1}); err == nil {
		t.Error("negative payment should be rejected")
	}
	if _, err := ApplyPayment(original, Payment{Amount: 100}); err == nil {
		t.Error("payment without a date should be rejected")
	}

	// Zero amount is the missed-payment sentinel, not an error.
	missed, err := ApplyPayment(original, Payment{When: day(2026, time.April, 2), Amount: 0, Note: "missed"})
	if err != nil {
		t.Fatalf("ApplyPayment(missed) error: %v", err)
	}
	if missed.MissedCount() != 1 {
		t.Errorf("MissedCount() = %d, expected 1", missed.MissedCount())
	}
}

func TestRevertAndRemovePayment(t *testing.T) {
	bill := Bill{Name: "a", Total: 1000, Due: day(2026, time.May, 1), Priority: 3,
		Payments: []Payment{
			{When: day(2026, time.April, 1), Amount: 100, Note: "first"},
			{When: day(2026, time.April, 2), Amount: 200, Note: "second"},
			{When: day(2026, time.April, 3), Amount: 300, Note: "third"},
		}}

	reverted, removed, err := RevertLastPayment(bill)
	if err != nil {
		t.Fatalf("RevertLastPayment() error: %v", err)
	}
	if removed.Note != "third" || len(reverted.Payments) != 2 {
		t.Errorf("unexpected revert result: removed=%+v bill=%+v", removed, reverted)
	}

	trimmed, err := RemovePayment(bill, 1)
	if err != nil {
		t.Fatalf("RemovePayment() error: %v", err)
	}
	if len(trimmed.Payments) != 2 || trimmed.Payments[1].Note != "third" {
		t.Errorf("unexpected remove result: %+v", trimmed.Payments)
	}
	if len(bill.Payments) != 3 {
		t.Errorf("RemovePayment mutated its input")
	}

	if _, err := RemovePayment(bill, 5); err == nil {
		t.Error("out-of-range index should be rejected")
	}
	if _, _, err := RevertLastPayment(Bill{Name: "empty"}); err == nil {
		t.Error("revert on empty history should be rejected")
	}
}
