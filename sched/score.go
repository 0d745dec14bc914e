package sched

import (
	"sort"
	"time"
)

const (
	pastDueBoost      = 10000.0
	dueRampWindowDays = 45
	remainingWeight   = 800.0
	missedPenaltyStep = 125.0
)

// Score computes the urgency of a bill as of a given day. Higher is more
// urgent. The function is pure; ties are broken by the caller.
//
// An overdue bill gets a flat boost that dominates every other factor. Within
// the ramp window the due-date pressure grows quadratically toward the due
// date, scaled by priority; beyond the window it contributes nothing.
// Each recorded missed payment adds a flat penalty, unbounded.
func Score(b *Bill, onDay time.Time) float64 {
	daysToDue := DaysBetween(onDay, b.Due)

	boost := 0.0
	if daysToDue < 0 {
		boost = pastDueBoost
	}

	clamped := daysToDue
	if clamped < 0 {
		clamped = 0
	}
	ramp := 0.0
	if r := float64(dueRampWindowDays - clamped); r > 0 {
		ramp = r * r
	}

	priorityFactor := 1.6 - 0.15*float64(clampPriority(b.Priority)-1)

	remainingFraction := 0.0
	if b.Total > 0 {
		remainingFraction = float64(b.Remaining()) / float64(b.Total)
	}

	missedPenalty := missedPenaltyStep * float64(b.MissedCount())

	return boost + ramp*priorityFactor + remainingFraction*remainingWeight + missedPenalty
}

// SortDayAllocations orders a day's allocation list descending by urgency
// score, breaking ties ascending by due date and then by bill name. The sort
// is stable so identical inputs always produce identical schedules.
// Allocations whose bill is no longer in the index sort last.
func SortDayAllocations(allocations []Allocation, bills map[string]*Bill, day time.Time) {
	sort.SliceStable(allocations, func(i, j int) bool {
		bi, iOK := bills[allocations[i].Bill]
		bj, jOK := bills[allocations[j].Bill]
		if !iOK || !jOK {
			if iOK != jOK {
				return iOK
			}
			return allocations[i].Bill < allocations[j].Bill
		}

		si, sj := Score(bi, day), Score(bj, day)
		if si != sj {
			return si > sj
		}
		if !bi.Due.Equal(bj.Due) {
			return bi.Due.Before(bj.Due)
		}
		return bi.Name < bj.Name
	})
}
