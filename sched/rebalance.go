package sched

import "math"

// rebalance walks the schedule in chronological order tracking the running
// available income, shrinking days the income cannot cover and carrying the
// shortfall onto the next day.
//
// Surplus income rolls forward across the whole walk; a shortfall day
// consumes everything available and resets the accumulator. Sub-cent pushes
// are dropped rather than carried, and a carry off the plan's last day is
// silently dropped: bills under-scheduled at the boundary surface through
// the next plan's past-due path.
func rebalance(plan *Plan) {
	// No paydays recorded means nothing to balance against; the
	// distributor's table stands as-is.
	if len(plan.Income) == 0 {
		return
	}

	days := plan.Days()

	var available Cents
	for i, day := range days {
		available += plan.Income[day]

		var needed Cents
		for _, a := range plan.Schedule[day] {
			needed += a.Amount
		}

		if needed <= available {
			available -= needed
			continue
		}

		factor := 0.0
		if available > 0 {
			factor = float64(available) / float64(needed)
		}

		kept := plan.Schedule[day][:0]
		var carried []Allocation
		for _, a := range plan.Schedule[day] {
			newAmount := Cents(math.Round(float64(a.Amount) * factor))
			if push := a.Amount - newAmount; push >= 1 {
				carried = append(carried, Allocation{Bill: a.Bill, Amount: push})
			}
			if newAmount >= 1 {
				kept = append(kept, Allocation{Bill: a.Bill, Amount: newAmount})
			}
		}
		plan.Schedule[day] = kept

		if i+1 < len(days) {
			next := days[i+1]
			plan.Schedule[next] = append(plan.Schedule[next], carried...)
		}

		available = 0
	}
}
