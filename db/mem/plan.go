package mem

import (
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	dbt "billplan/db/db"
	"billplan/sched"
)

// inMemoryPlanDBWrapper is an in-memory implementation of dbt.PlanDBWrapper,
// used by tests and the --mem dev mode. All accessors copy data in and out
// so callers never share slices with the store.
type inMemoryPlanDBWrapper struct {
	plans    map[uuid.UUID]*dbt.PlanInfo
	bills    map[uuid.UUID]*dbt.BillInfo
	payments map[uuid.UUID][]dbt.PaymentInfo
	income   map[uuid.UUID]map[time.Time]sched.Cents

	mu sync.RWMutex
}

// NewInMemoryPlanDBWrapper creates an empty in-memory store.
func NewInMemoryPlanDBWrapper() dbt.PlanDBWrapper {
	return &inMemoryPlanDBWrapper{
		plans:    make(map[uuid.UUID]*dbt.PlanInfo),
		bills:    make(map[uuid.UUID]*dbt.BillInfo),
		payments: make(map[uuid.UUID][]dbt.PaymentInfo),
		income:   make(map[uuid.UUID]map[time.Time]sched.Cents),
	}
}

func (db *inMemoryPlanDBWrapper) CreatePlan(info *dbt.PlanInfo) error {
	db.mu.Lock()
	defer db.mu.Unlock()

	if _, exists := db.plans[info.ID]; exists {
		return fmt.Errorf("plan with ID %s already exists", info.ID)
	}
	infoCopy := *info
	db.plans[info.ID] = &infoCopy
	db.income[info.ID] = make(map[time.Time]sched.Cents)
	return nil
}

func (db *inMemoryPlanDBWrapper) GetPlanInfo(id uuid.UUID) (*dbt.PlanInfo, error) {
	db.mu.RLock()
	defer db.mu.RUnlock()

	info, exists := db.plans[id]
	if !exists {
		return nil, fmt.Errorf("plan with ID %s not found", id)
	}
	infoCopy := *info
	return &infoCopy, nil
}

func (db *inMemoryPlanDBWrapper) UpdatePlanRange(id uuid.UUID, start, end time.Time) error {
	db.mu.Lock()
	defer db.mu.Unlock()

	info, exists := db.plans[id]
	if !exists {
		return fmt.Errorf("plan with ID %s not found for update", id)
	}
	info.Start = sched.Day(start)
	info.End = sched.Day(end)
	return nil
}

func (db *inMemoryPlanDBWrapper) DeletePlan(id uuid.UUID) error {
	db.mu.Lock()
	defer db.mu.Unlock()

	if _, exists := db.plans[id]; !exists {
		return fmt.Errorf("plan with ID %s not found for delete", id)
	}
	delete(db.plans, id)
	delete(db.income, id)
	for billID, bill := range db.bills {
		if bill.PlanID == id {
			delete(db.bills, billID)
			delete(db.payments, billID)
		}
	}
	return nil
}

func (db *inMemoryPlanDBWrapper) CreateBill(info *dbt.BillInfo) error {
	db.mu.Lock()
	defer db.mu.Unlock()

	if _, exists := db.plans[info.PlanID]; !exists {
		return fmt.Errorf("plan with ID %s not found for bill", info.PlanID)
	}
	if _, exists := db.bills[info.ID]; exists {
		return fmt.Errorf("bill with ID %s already exists", info.ID)
	}
	for _, b := range db.bills {
		if b.PlanID == info.PlanID && b.Name == info.Name {
			return fmt.Errorf("bill named %q already exists in plan %s", info.Name, info.PlanID)
		}
	}
	infoCopy := *info
	db.bills[info.ID] = &infoCopy
	db.payments[info.ID] = []dbt.PaymentInfo{}
	return nil
}

func (db *inMemoryPlanDBWrapper) GetBill(id uuid.UUID) (*dbt.BillInfo, error) {
	db.mu.RLock()
	defer db.mu.RUnlock()

	bill, exists := db.bills[id]
	if !exists {
		return nil, fmt.Errorf("bill with ID %s not found", id)
	}
	billCopy := *bill
	return &billCopy, nil
}

func (db *inMemoryPlanDBWrapper) GetBillByName(planID uuid.UUID, name string) (*dbt.BillInfo, error) {
	db.mu.RLock()
	defer db.mu.RUnlock()

	for _, b := range db.bills {
		if b.PlanID == planID && b.Name == name {
			billCopy := *b
			return &billCopy, nil
		}
	}
	return nil, fmt.Errorf("bill named %q not found in plan %s", name, planID)
}

func (db *inMemoryPlanDBWrapper) GetPlanBills(planID uuid.UUID) ([]dbt.BillInfo, error) {
	db.mu.RLock()
	defer db.mu.RUnlock()

	if _, exists := db.plans[planID]; !exists {
		return nil, fmt.Errorf("plan with ID %s not found", planID)
	}
	var bills []dbt.BillInfo
	for _, b := range db.bills {
		if b.PlanID == planID {
			bills = append(bills, *b)
		}
	}
	// Map iteration order is random; name order keeps callers deterministic.
	sort.Slice(bills, func(i, j int) bool { return bills[i].Name < bills[j].Name })
	return bills, nil
}

func (db *inMemoryPlanDBWrapper) UpdateBill(info *dbt.BillInfo) error {
	db.mu.Lock()
	defer db.mu.Unlock()

	existing, exists := db.bills[info.ID]
	if !exists {
		return fmt.Errorf("bill with ID %s not found for update", info.ID)
	}
	for _, b := range db.bills {
		if b.ID != info.ID && b.PlanID == existing.PlanID && b.Name == info.Name {
			return fmt.Errorf("bill named %q already exists in plan %s", info.Name, existing.PlanID)
		}
	}
	infoCopy := *info
	infoCopy.PlanID = existing.PlanID
	db.bills[info.ID] = &infoCopy
	return nil
}

func (db *inMemoryPlanDBWrapper) DeleteBill(id uuid.UUID) (uuid.UUID, error) {
	db.mu.Lock()
	defer db.mu.Unlock()

	bill, exists := db.bills[id]
	if !exists {
		return uuid.Nil, fmt.Errorf("bill with ID %s not found for delete", id)
	}
	planID := bill.PlanID
	delete(db.bills, id)
	delete(db.payments, id)
	return planID, nil
}

func (db *inMemoryPlanDBWrapper) AppendPayment(billID uuid.UUID, p dbt.PaymentInfo) error {
	db.mu.Lock()
	defer db.mu.Unlock()

	if _, exists := db.bills[billID]; !exists {
		return fmt.Errorf("bill with ID %s not found for payment", billID)
	}
	p.Seq = len(db.payments[billID])
	p.When = sched.Day(p.When)
	db.payments[billID] = append(db.payments[billID], p)
	return nil
}

func (db *inMemoryPlanDBWrapper) GetPayments(billID uuid.UUID) ([]dbt.PaymentInfo, error) {
	db.mu.RLock()
	defer db.mu.RUnlock()

	if _, exists := db.bills[billID]; !exists {
		return nil, fmt.Errorf("bill with ID %s not found", billID)
	}
	payments := make([]dbt.PaymentInfo, len(db.payments[billID]))
	copy(payments, db.payments[billID])
	return payments, nil
}

func (db *inMemoryPlanDBWrapper) RevertLastPayment(billID uuid.UUID) (*dbt.PaymentInfo, error) {
	db.mu.Lock()
	defer db.mu.Unlock()

	payments := db.payments[billID]
	if len(payments) == 0 {
		return nil, fmt.Errorf("bill with ID %s has no payments to revert", billID)
	}
	removed := payments[len(payments)-1]
	db.payments[billID] = payments[:len(payments)-1]
	return &removed, nil
}

func (db *inMemoryPlanDBWrapper) RemovePayment(billID uuid.UUID, index int) error {
	db.mu.Lock()
	defer db.mu.Unlock()

	payments := db.payments[billID]
	if index < 0 || index >= len(payments) {
		return fmt.Errorf("payment index %d out of range for bill %s (%d payments)", index, billID, len(payments))
	}
	updated := append([]dbt.PaymentInfo{}, payments[:index]...)
	updated = append(updated, payments[index+1:]...)
	for i := range updated {
		updated[i].Seq = i
	}
	db.payments[billID] = updated
	return nil
}

func (db *inMemoryPlanDBWrapper) SetIncome(planID uuid.UUID, entry dbt.IncomeEntry) error {
	db.mu.Lock()
	defer db.mu.Unlock()

	income, exists := db.income[planID]
	if !exists {
		return fmt.Errorf("plan with ID %s not found for income", planID)
	}
	income[sched.Day(entry.Day)] = entry.Amount
	return nil
}

func (db *inMemoryPlanDBWrapper) RemoveIncome(planID uuid.UUID, day time.Time) error {
	db.mu.Lock()
	defer db.mu.Unlock()

	income, exists := db.income[planID]
	if !exists {
		return fmt.Errorf("plan with ID %s not found for income", planID)
	}
	if _, ok := income[sched.Day(day)]; !ok {
		return fmt.Errorf("no income recorded on %s for plan %s", sched.Day(day).Format("2006-01-02"), planID)
	}
	delete(income, sched.Day(day))
	return nil
}

func (db *inMemoryPlanDBWrapper) GetIncome(planID uuid.UUID) ([]dbt.IncomeEntry, error) {
	db.mu.RLock()
	defer db.mu.RUnlock()

	income, exists := db.income[planID]
	if !exists {
		return nil, fmt.Errorf("plan with ID %s not found", planID)
	}
	entries := make([]dbt.IncomeEntry, 0, len(income))
	for day, amount := range income {
		entries = append(entries, dbt.IncomeEntry{Day: day, Amount: amount})
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Day.Before(entries[j].Day) })
	return entries, nil
}
