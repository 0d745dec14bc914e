package sched

import (
	"testing"
	"time"
)

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestScore(t *testing.T) {
	due := day(2026, time.March, 15)

	tests := []struct {
		name     string
		bill     Bill
		onDay    time.Time
		expected float64
	}{
		{
			name:     "overdue bill gets past-due boost",
			bill:     Bill{Name: "rent", Total: 10000, Due: due, Priority: 5},
			onDay:    day(2026, time.March, 16),
			expected: 10000 + 45*45*1.0 + 1.0*800,
		},
		{
			name:     "due today, priority 1",
			bill:     Bill{Name: "rent", Total: 10000, Due: due, Priority: 1},
			onDay:    due,
			expected: 45 * 45 * 1.6 + 800,
		},
		{
			name:     "outside 45-day ramp window only remaining fraction counts",
			bill:     Bill{Name: "rent", Total: 10000, Due: due, Priority: 1},
			onDay:    day(2026, time.January, 1),
			expected: 800,
		},
		{
			name:     "ten days out, priority 3",
			bill:     Bill{Name: "rent", Total: 10000, Due: due, Priority: 3},
			onDay:    day(2026, time.March, 5),
			expected: 35 * 35 * 1.3 + 800,
		},
		{
			name: "half paid halves the remaining weight",
			bill: Bill{Name: "rent", Total: 10000, Due: due, Priority: 5,
				Payments: []Payment{{When: day(2026, time.February, 1), Amount: 5000, Note: "partial"}}},
			onDay:    day(2026, time.January, 1),
			expected: 400,
		},
		{
			name:     "zero total contributes no remaining fraction",
			bill:     Bill{Name: "rent", Total: 0, Due: due, Priority: 5},
			onDay:    day(2026, time.January, 1),
			expected: 0,
		},
		{
			name: "each missed payment adds a flat penalty",
			bill: Bill{Name: "rent", Total: 10000, Due: due, Priority: 5,
				Payments: []Payment{
					{When: day(2026, time.January, 15), Amount: 0, Note: "missed"},
					{When: day(2026, time.February, 15), Amount: 0, Note: "missed"},
				}},
			onDay:    day(2026, time.January, 1),
			expected: 800 + 2*125,
		},
		{
			name:     "priority clamps below 1",
			bill:     Bill{Name: "rent", Total: 10000, Due: due, Priority: 0},
			onDay:    due,
			expected: 45 * 45 * 1.6 + 800,
		},
		{
			name:     "priority clamps above 5",
			bill:     Bill{Name: "rent", Total: 10000, Due: due, Priority: 9},
			onDay:    due,
			expected: 45*45*1.0 + 800,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Score(&tt.bill, tt.onDay)
			if diff := got - tt.expected; diff > 1e-9 || diff < -1e-9 {
				t.Errorf("Score() = %v, expected %v", got, tt.expected)
			}
		})
	}
}

// Within the ramp window, a day closer to the due date always scores at
// least as high, all else equal.
func TestScoreMonotonicTowardDueDate(t *testing.T) {
	due := day(2026, time.June, 1)
	bill := Bill{Name: "loan", Total: 50000, Due: due, Priority: 2}

	prev := Score(&bill, due.AddDate(0, 0, -44))
	for offset := -43; offset <= 2; offset++ {
		onDay := due.AddDate(0, 0, offset)
		got := Score(&bill, onDay)
		if got < prev {
			t.Fatalf("score decreased approaching due date: %v on %s after %v", got, onDay.Format("2006-01-02"), prev)
		}
		prev = got
	}
}

// A missed payment strictly increases the score against an otherwise
// identical bill.
func TestScoreMissedPaymentOutranksClean(t *testing.T) {
	due := day(2026, time.June, 1)
	onDay := day(2026, time.May, 20)

	clean := Bill{Name: "a", Total: 10000, Due: due, Priority: 3}
	missed := Bill{Name: "b", Total: 10000, Due: due, Priority: 3,
		Payments: []Payment{{When: day(2026, time.April, 1), Amount: 0, Note: "missed"}}}

	if Score(&missed, onDay) <= Score(&clean, onDay) {
		t.Errorf("bill with missed payment should score strictly higher: %v vs %v",
			Score(&missed, onDay), Score(&clean, onDay))
	}
}

func TestSortDayAllocations(t *testing.T) {
	onDay := day(2026, time.April, 1)
	bills := map[string]*Bill{
		"overdue":  {Name: "overdue", Total: 1000, Due: day(2026, time.March, 1), Priority: 5},
		"urgent":   {Name: "urgent", Total: 1000, Due: day(2026, time.April, 3), Priority: 1},
		"later":    {Name: "later", Total: 1000, Due: day(2026, time.April, 30), Priority: 3},
		"tie-a":    {Name: "tie-a", Total: 1000, Due: day(2026, time.April, 10), Priority: 2},
		"tie-b":    {Name: "tie-b", Total: 1000, Due: day(2026, time.April, 10), Priority: 2},
		"tie-soon": {Name: "tie-soon", Total: 1000, Due: day(2026, time.April, 9), Priority: 2},
	}

	t.Run("score then due date then name", func(t *testing.T) {
		allocations := []Allocation{
			{Bill: "later", Amount: 100},
			{Bill: "tie-b", Amount: 100},
			{Bill: "tie-a", Amount: 100},
			{Bill: "urgent", Amount: 100},
			{Bill: "overdue", Amount: 100},
		}
		SortDayAllocations(allocations, bills, onDay)

		expected := []string{"overdue", "urgent", "tie-a", "tie-b", "later"}
		for i, name := range expected {
			if allocations[i].Bill != name {
				t.Fatalf("position %d: got %s, expected %s (order %v)", i, allocations[i].Bill, name, allocations)
			}
		}
	})

	t.Run("unknown bills sort last", func(t *testing.T) {
		allocations := []Allocation{
			{Bill: "ghost", Amount: 100},
			{Bill: "urgent", Amount: 100},
		}
		SortDayAllocations(allocations, bills, onDay)
		if allocations[0].Bill != "urgent" || allocations[1].Bill != "ghost" {
			t.Errorf("unexpected order: %v", allocations)
		}
	})
}
