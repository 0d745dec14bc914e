package db

import (
	"time"

	"github.com/google/uuid"

	"billplan/sched"
)

// PlanInfo is a stored scheduling plan: a named date window. Income and
// bills hang off it by plan id.
type PlanInfo struct {
	ID    uuid.UUID
	Name  string
	Start time.Time
	End   time.Time
}

// BillInfo is a stored bill. Name is unique within a plan; the engine's
// schedule references bills by name only, so renames invalidate any cached
// schedule.
type BillInfo struct {
	ID       uuid.UUID
	PlanID   uuid.UUID
	Name     string
	Total    sched.Cents
	Due      time.Time
	Priority int
}

// PaymentInfo is a stored payment. Seq is the append order within the bill;
// payments only leave the history through revert or remove-by-index.
type PaymentInfo struct {
	Seq    int
	When   time.Time
	Amount sched.Cents
	Note   string
}

// IncomeEntry is one recorded payday within a plan.
type IncomeEntry struct {
	Day    time.Time
	Amount sched.Cents
}
