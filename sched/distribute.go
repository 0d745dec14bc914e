package sched

import (
	"math"
	"time"
)

const (
	// dayWeightExponent shapes the per-day allocation curve. The convex
	// (i+1)^1.6 ramp back-loads money toward the due date, keeping cash
	// liquid as long as safely possible. Empirically chosen policy
	// constant; preserved exactly for compatibility.
	dayWeightExponent = 1.6

	// priorityBoostStep scales a bill's whole curve up per priority tier
	// above the lowest, increasing total pressure without changing the
	// curve's shape.
	priorityBoostStep = 0.15
)

// distributeBill spreads one bill's remaining balance across its eligible
// day range and appends the resulting allocations to the schedule.
//
// The eligible range is plan start through min(plan end, due date). A bill
// whose whole window elapsed before the plan starts is dumped in full onto
// the first plan day. Remainder cents left over by floor division are handed
// out one at a time from the last day backward, biased toward the due date.
func distributeBill(b *Bill, plan *Plan) {
	remaining := b.Remaining()
	if remaining <= 0 {
		return
	}

	start := Day(plan.Start)
	lastDay := Day(plan.End)
	if due := Day(b.Due); due.Before(lastDay) {
		lastDay = due
	}

	// Fully elapsed window: absorb everything on day one of the plan.
	if lastDay.Before(start) {
		plan.Schedule[start] = append(plan.Schedule[start], Allocation{Bill: b.Name, Amount: remaining})
		return
	}

	days := make([]time.Time, 0, DaysBetween(start, lastDay)+1)
	for d := start; !d.After(lastDay); d = d.AddDate(0, 0, 1) {
		days = append(days, d)
	}
	if len(days) == 0 {
		return
	}

	boost := 1.0 + float64(5-clampPriority(b.Priority))*priorityBoostStep

	weights := make([]float64, len(days))
	weightSum := 0.0
	for i := range days {
		weights[i] = math.Pow(float64(i+1), dayWeightExponent) * boost
		weightSum += weights[i]
	}

	allocated := make([]Cents, len(days))
	var allocatedSum Cents
	for i := range days {
		allocated[i] = Cents(math.Floor(float64(remaining) * weights[i] / weightSum))
		allocatedSum += allocated[i]
	}

	// Floor division leaves fewer remainder cents than days; walk backward
	// from the due-date end handing out one cent per day.
	for remainder := remaining - allocatedSum; remainder > 0; {
		for i := len(days) - 1; i >= 0 && remainder > 0; i-- {
			allocated[i]++
			remainder--
		}
	}

	for i, d := range days {
		if allocated[i] == 0 {
			continue
		}
		plan.Schedule[d] = append(plan.Schedule[d], Allocation{Bill: b.Name, Amount: allocated[i]})
	}
}

// distribute runs the allocation distributor for every bill over an already
// initialized schedule.
func distribute(bills []*Bill, plan *Plan) {
	for _, b := range bills {
		distributeBill(b, plan)
	}
}
