package db

import (
	"time"

	"github.com/google/uuid"

	"billplan/sched"
)

// PlanDBWrapper is the storage boundary for plans, bills, payments and
// income. Implementations: GORM/PostgreSQL (db/pg) and in-memory (db/mem).
type PlanDBWrapper interface {
	// Plans
	CreatePlan(info *PlanInfo) error
	GetPlanInfo(id uuid.UUID) (*PlanInfo, error)
	UpdatePlanRange(id uuid.UUID, start, end PlanDay) error
	DeletePlan(id uuid.UUID) error

	// Bills
	CreateBill(info *BillInfo) error
	GetBill(id uuid.UUID) (*BillInfo, error)
	GetBillByName(planID uuid.UUID, name string) (*BillInfo, error)
	GetPlanBills(planID uuid.UUID) ([]BillInfo, error)
	UpdateBill(info *BillInfo) error
	DeleteBill(id uuid.UUID) (uuid.UUID, error) // returns owning plan id

	// Payments (append-only; removal only via revert or by index)
	AppendPayment(billID uuid.UUID, p PaymentInfo) error
	GetPayments(billID uuid.UUID) ([]PaymentInfo, error)
	RevertLastPayment(billID uuid.UUID) (*PaymentInfo, error)
	RemovePayment(billID uuid.UUID, index int) error

	// Income
	SetIncome(planID uuid.UUID, entry IncomeEntry) error
	RemoveIncome(planID uuid.UUID, day PlanDay) error
	GetIncome(planID uuid.UUID) ([]IncomeEntry, error)
}

// PlanDay aliases the engine's day type so interface signatures stay
// readable.
type PlanDay = time.Time

// LoadEngineInput assembles the engine's value objects for one plan: every
// bill with its full payment history, plus the plan window and income
// calendar. The schedule starts empty; callers run sched.Recompute.
func LoadEngineInput(w PlanDBWrapper, planID uuid.UUID) ([]*sched.Bill, *sched.Plan, error) {
	info, err := w.GetPlanInfo(planID)
	if err != nil {
		return nil, nil, err
	}

	billInfos, err := w.GetPlanBills(planID)
	if err != nil {
		return nil, nil, err
	}

	bills := make([]*sched.Bill, 0, len(billInfos))
	for _, bi := range billInfos {
		payments, err := w.GetPayments(bi.ID)
		if err != nil {
			return nil, nil, err
		}
		bill := &sched.Bill{
			Name:     bi.Name,
			Total:    bi.Total,
			Due:      sched.Day(bi.Due),
			Priority: bi.Priority,
		}
		for _, p := range payments {
			bill.Payments = append(bill.Payments, sched.Payment{
				When:   sched.Day(p.When),
				Amount: p.Amount,
				Note:   p.Note,
			})
		}
		bills = append(bills, bill)
	}

	income, err := w.GetIncome(planID)
	if err != nil {
		return nil, nil, err
	}
	plan := &sched.Plan{
		Start:  sched.Day(info.Start),
		End:    sched.Day(info.End),
		Income: make(map[PlanDay]sched.Cents, len(income)),
	}
	for _, entry := range income {
		plan.Income[sched.Day(entry.Day)] = entry.Amount
	}

	return bills, plan, nil
}
