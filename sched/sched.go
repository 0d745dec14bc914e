// Package sched implements the bill scheduling engine: an urgency scorer,
// an urgency-weighted allocation distributor and a payday-aware rebalancer,
// composed into a deterministic full-schedule recompute.
//
// The engine is pure computation over value objects. It is synchronous and
// not safe to interleave with concurrent mutation of the same bills or plan;
// callers serialize recomputes per plan.
package sched

import (
	"errors"
	"fmt"
	"time"
)

// ErrInvalidInput is wrapped by every validation failure, so callers can
// distinguish malformed input from programming errors with errors.Is.
var ErrInvalidInput = errors.New("invalid scheduling input")

// Validate rejects malformed bills and plans before any allocation begins.
// The scheduling algorithms themselves assume well-formed input and do not
// defend against it.
func Validate(bills []*Bill, plan *Plan) error {
	if plan == nil {
		return fmt.Errorf("%w: plan is nil", ErrInvalidInput)
	}
	if plan.Start.IsZero() || plan.End.IsZero() {
		return fmt.Errorf("%w: plan range is not set", ErrInvalidInput)
	}
	if Day(plan.End).Before(Day(plan.Start)) {
		return fmt.Errorf("%w: plan start %s is after end %s", ErrInvalidInput,
			Day(plan.Start).Format("2006-01-02"), Day(plan.End).Format("2006-01-02"))
	}
	for day, amount := range plan.Income {
		if amount < 0 {
			return fmt.Errorf("%w: negative income %d on %s", ErrInvalidInput,
				amount, Day(day).Format("2006-01-02"))
		}
	}

	seen := make(map[string]bool, len(bills))
	for _, b := range bills {
		if b == nil {
			return fmt.Errorf("%w: nil bill", ErrInvalidInput)
		}
		if b.Name == "" {
			return fmt.Errorf("%w: bill with empty name", ErrInvalidInput)
		}
		if seen[b.Name] {
			return fmt.Errorf("%w: duplicate bill name %q", ErrInvalidInput, b.Name)
		}
		seen[b.Name] = true
		if b.Total < 0 {
			return fmt.Errorf("%w: bill %q has negative total %d", ErrInvalidInput, b.Name, b.Total)
		}
		if b.Due.IsZero() {
			return fmt.Errorf("%w: bill %q has no due date", ErrInvalidInput, b.Name)
		}
		for i, p := range b.Payments {
			if p.Amount < 0 {
				return fmt.Errorf("%w: bill %q payment %d has negative amount %d",
					ErrInvalidInput, b.Name, i, p.Amount)
			}
		}
	}
	return nil
}

// Recompute rebuilds the plan's schedule from scratch: an empty table keyed
// by every day in range, the allocation distributor per bill, the
// payday-aware rebalancer over the assembled table, then a final urgency
// sort of every day's list.
//
// There is no incremental path. The rebalancer's running income accumulator
// depends on the entire preceding day sequence, so any mutation invalidates
// the whole table.
func Recompute(bills []*Bill, plan *Plan) error {
	if err := Validate(bills, plan); err != nil {
		return err
	}

	days := plan.Days()
	plan.Schedule = make(map[time.Time][]Allocation, len(days))
	for _, d := range days {
		plan.Schedule[d] = []Allocation{}
	}

	distribute(bills, plan)
	rebalance(plan)

	index := BillIndex(bills)
	for _, d := range days {
		SortDayAllocations(plan.Schedule[d], index, d)
	}
	return nil
}
