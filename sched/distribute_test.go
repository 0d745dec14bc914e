package sched

import (
	"testing"
	"time"
)

func newPlan(start, end time.Time) *Plan {
	plan := &Plan{Start: start, End: end, Income: map[time.Time]Cents{}}
	plan.Schedule = make(map[time.Time][]Allocation)
	for _, d := range plan.Days() {
		plan.Schedule[d] = []Allocation{}
	}
	return plan
}

func billTotalOn(plan *Plan, name string, day time.Time) Cents {
	var total Cents
	for _, a := range plan.Schedule[day] {
		if a.Bill == name {
			total += a.Amount
		}
	}
	return total
}

func billTotalScheduled(plan *Plan, name string) Cents {
	var total Cents
	for d := range plan.Schedule {
		total += billTotalOn(plan, name, d)
	}
	return total
}

// Scenario: $300 due in 3 days inside a 6-day plan. The full amount lands on
// the first four days with strictly increasing amounts per day, nothing on
// the days past the due date.
func TestDistributeConvexRamp(t *testing.T) {
	start := day(2026, time.May, 1)
	plan := newPlan(start, day(2026, time.May, 6))
	bill := &Bill{Name: "electric", Total: 30000, Due: day(2026, time.May, 4), Priority: 3}

	distribute([]*Bill{bill}, plan)

	if got := billTotalScheduled(plan, "electric"); got != 30000 {
		t.Fatalf("scheduled total = %d cents, expected 30000", got)
	}

	var prev Cents
	for i := 0; i < 4; i++ {
		d := start.AddDate(0, 0, i)
		amount := billTotalOn(plan, "electric", d)
		if amount <= prev {
			t.Errorf("day %d amount %d not strictly greater than previous %d", i, amount, prev)
		}
		prev = amount
	}
	for i := 4; i < 6; i++ {
		d := start.AddDate(0, 0, i)
		if amount := billTotalOn(plan, "electric", d); amount != 0 {
			t.Errorf("day %d past due date got %d cents, expected 0", i, amount)
		}
	}
}

// Scenario: a bill already overdue when the plan starts is absorbed in full
// on the plan's first day.
func TestDistributePastDueDumpsOnFirstDay(t *testing.T) {
	start := day(2026, time.May, 10)
	plan := newPlan(start, day(2026, time.May, 20))
	bill := &Bill{Name: "water", Total: 12345, Due: day(2026, time.May, 9), Priority: 2}

	distribute([]*Bill{bill}, plan)

	if got := billTotalOn(plan, "water", start); got != 12345 {
		t.Errorf("first-day allocation = %d cents, expected full 12345", got)
	}
	if got := billTotalScheduled(plan, "water"); got != 12345 {
		t.Errorf("scheduled total = %d cents, expected 12345", got)
	}
}

func TestDistributeSingleDayWindow(t *testing.T) {
	start := day(2026, time.May, 1)
	plan := newPlan(start, day(2026, time.May, 10))
	bill := &Bill{Name: "gas", Total: 9999, Due: start, Priority: 4}

	distribute([]*Bill{bill}, plan)

	if got := billTotalOn(plan, "gas", start); got != 9999 {
		t.Errorf("single-day window allocation = %d cents, expected 9999", got)
	}
}

func TestDistributeFullyPaidBillContributesNothing(t *testing.T) {
	plan := newPlan(day(2026, time.May, 1), day(2026, time.May, 10))
	bill := &Bill{Name: "paid", Total: 5000, Due: day(2026, time.May, 8), Priority: 1,
		Payments: []Payment{{When: day(2026, time.April, 20), Amount: 5000, Note: "paid"}}}

	distribute([]*Bill{bill}, plan)

	if got := billTotalScheduled(plan, "paid"); got != 0 {
		t.Errorf("fully paid bill scheduled %d cents, expected 0", got)
	}
}

// Conservation: whatever the range length, the distributor spreads exactly
// the remaining balance, to the cent.
func TestDistributeConservation(t *testing.T) {
	tests := []struct {
		name     string
		total    Cents
		paid     Cents
		days     int
		priority int
	}{
		{"one day", 100001, 0, 1, 1},
		{"two days", 33333, 0, 2, 3},
		{"week", 99999, 0, 7, 5},
		{"month", 123457, 0, 30, 2},
		{"partial payment", 50000, 12345, 14, 4},
		{"one cent", 1, 0, 10, 3},
		{"fewer cents than days", 7, 0, 30, 3},
	}

	start := day(2026, time.July, 1)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			due := start.AddDate(0, 0, tt.days-1)
			plan := newPlan(start, due)
			bill := &Bill{Name: "b", Total: tt.total, Due: due, Priority: tt.priority}
			if tt.paid > 0 {
				bill.Payments = []Payment{{When: start, Amount: tt.paid, Note: "partial"}}
			}

			distribute([]*Bill{bill}, plan)

			expected := tt.total - tt.paid
			if got := billTotalScheduled(plan, "b"); got != expected {
				t.Errorf("scheduled total = %d cents, expected %d", got, expected)
			}
			for d, allocations := range plan.Schedule {
				for _, a := range allocations {
					if a.Amount == 0 {
						t.Errorf("zero-cent entry on %s", d.Format("2006-01-02"))
					}
				}
			}
		})
	}
}

// Remainder cents are biased toward the due date: with fewer cents than
// days, the cents land on the trailing days.
func TestDistributeRemainderBiasedLate(t *testing.T) {
	start := day(2026, time.July, 1)
	due := start.AddDate(0, 0, 9)
	plan := newPlan(start, due)
	bill := &Bill{Name: "tiny", Total: 3, Due: due, Priority: 3}

	distribute([]*Bill{bill}, plan)

	for i := 0; i < 7; i++ {
		d := start.AddDate(0, 0, i)
		if got := billTotalOn(plan, "tiny", d); got != 0 {
			t.Errorf("day %d got %d cents, expected the remainder on the last days only", i, got)
		}
	}
	for i := 7; i < 10; i++ {
		d := start.AddDate(0, 0, i)
		if got := billTotalOn(plan, "tiny", d); got != 1 {
			t.Errorf("day %d got %d cents, expected 1", i, got)
		}
	}
}

// Two runs over the same input produce identical tables.
func TestDistributeDeterministic(t *testing.T) {
	start := day(2026, time.July, 1)
	end := start.AddDate(0, 0, 13)
	bills := []*Bill{
		{Name: "a", Total: 100000, Due: start.AddDate(0, 0, 9), Priority: 1},
		{Name: "b", Total: 77777, Due: start.AddDate(0, 0, 20), Priority: 5},
		{Name: "c", Total: 123, Due: start.AddDate(0, 0, -1), Priority: 3},
	}

	first := newPlan(start, end)
	distribute(bills, first)
	second := newPlan(start, end)
	distribute(bills, second)

	for d := range first.Schedule {
		a, b := first.Schedule[d], second.Schedule[d]
		if len(a) != len(b) {
			t.Fatalf("day %s: run lengths differ", d.Format("2006-01-02"))
		}
		for i := range a {
			if a[i] != b[i] {
				t.Fatalf("day %s entry %d differs: %v vs %v", d.Format("2006-01-02"), i, a[i], b[i])
			}
		}
	}
}
