package pg

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	dbt "billplan/db/db"
	"billplan/sched"
)

// GORMPlanDBWrapper is a GORM-based PostgreSQL implementation of
// dbt.PlanDBWrapper.
type GORMPlanDBWrapper struct {
	db *gorm.DB
}

// NewGORMPlanDBWrapper creates and returns a new instance of GORMPlanDBWrapper.
func NewGORMPlanDBWrapper(db *gorm.DB) dbt.PlanDBWrapper {
	return &GORMPlanDBWrapper{
		db: db,
	}
}

func isDuplicateKey(err error) bool {
	return strings.Contains(err.Error(), "duplicate key value violates unique constraint")
}

func (pgdb *GORMPlanDBWrapper) CreatePlan(info *dbt.PlanInfo) error {
	model := PlanModel{
		ID:    info.ID,
		Name:  info.Name,
		Start: sched.Day(info.Start),
		End:   sched.Day(info.End),
	}
	result := pgdb.db.Create(&model)
	if result.Error != nil {
		if isDuplicateKey(result.Error) {
			return fmt.Errorf("plan with ID %s already exists: %w", info.ID, result.Error)
		}
		return fmt.Errorf("failed to create plan: %w", result.Error)
	}
	return nil
}

func (pgdb *GORMPlanDBWrapper) GetPlanInfo(id uuid.UUID) (*dbt.PlanInfo, error) {
	var model PlanModel
	result := pgdb.db.First(&model, "id = ?", id)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("plan with ID %s not found", id)
		}
		return nil, fmt.Errorf("failed to get plan %s: %w", id, result.Error)
	}
	return &dbt.PlanInfo{
		ID:    model.ID,
		Name:  model.Name,
		Start: sched.Day(model.Start),
		End:   sched.Day(model.End),
	}, nil
}

func (pgdb *GORMPlanDBWrapper) UpdatePlanRange(id uuid.UUID, start, end time.Time) error {
	result := pgdb.db.Model(&PlanModel{}).Where("id = ?", id).Updates(map[string]interface{}{
		"start":   sched.Day(start),
		"end_day": sched.Day(end),
	})
	if result.Error != nil {
		return fmt.Errorf("failed to update plan range for %s: %w", id, result.Error)
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("plan with ID %s not found for update", id)
	}
	return nil
}

func (pgdb *GORMPlanDBWrapper) DeletePlan(id uuid.UUID) error {
	return pgdb.db.Transaction(func(tx *gorm.DB) error {
		var billIDs []uuid.UUID
		if err := tx.Model(&BillModel{}).Where("plan_id = ?", id).Pluck("id", &billIDs).Error; err != nil {
			return fmt.Errorf("failed to list bills for plan %s: %w", id, err)
		}
		if len(billIDs) > 0 {
			if err := tx.Where("bill_id IN ?", billIDs).Delete(&PaymentModel{}).Error; err != nil {
				return fmt.Errorf("failed to delete payments for plan %s: %w", id, err)
			}
			if err := tx.Where("plan_id = ?", id).Delete(&BillModel{}).Error; err != nil {
				return fmt.Errorf("failed to delete bills for plan %s: %w", id, err)
			}
		}
		if err := tx.Where("plan_id = ?", id).Delete(&IncomeModel{}).Error; err != nil {
			return fmt.Errorf("failed to delete income for plan %s: %w", id, err)
		}
		result := tx.Delete(&PlanModel{}, "id = ?", id)
		if result.Error != nil {
			return fmt.Errorf("failed to delete plan %s: %w", id, result.Error)
		}
		if result.RowsAffected == 0 {
			return fmt.Errorf("plan with ID %s not found for delete", id)
		}
		return nil
	})
}

func billModelToInfo(model *BillModel) *dbt.BillInfo {
	return &dbt.BillInfo{
		ID:       model.ID,
		PlanID:   model.PlanID,
		Name:     model.Name,
		Total:    sched.Cents(model.Total),
		Due:      sched.Day(model.Due),
		Priority: model.Priority,
	}
}

func (pgdb *GORMPlanDBWrapper) CreateBill(info *dbt.BillInfo) error {
	model := BillModel{
		ID:       info.ID,
		PlanID:   info.PlanID,
		Name:     info.Name,
		Total:    int64(info.Total),
		Due:      sched.Day(info.Due),
		Priority: info.Priority,
	}
	result := pgdb.db.Create(&model)
	if result.Error != nil {
		if isDuplicateKey(result.Error) {
			return fmt.Errorf("bill %q already exists in plan %s: %w", info.Name, info.PlanID, result.Error)
		}
		if strings.Contains(result.Error.Error(), "violates foreign key constraint") {
			return fmt.Errorf("plan with ID %s not found for bill: %w", info.PlanID, result.Error)
		}
		return fmt.Errorf("failed to create bill: %w", result.Error)
	}
	return nil
}

func (pgdb *GORMPlanDBWrapper) GetBill(id uuid.UUID) (*dbt.BillInfo, error) {
	var model BillModel
	result := pgdb.db.First(&model, "id = ?", id)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("bill with ID %s not found", id)
		}
		return nil, fmt.Errorf("failed to get bill %s: %w", id, result.Error)
	}
	return billModelToInfo(&model), nil
}

func (pgdb *GORMPlanDBWrapper) GetBillByName(planID uuid.UUID, name string) (*dbt.BillInfo, error) {
	var model BillModel
	result := pgdb.db.First(&model, "plan_id = ? AND name = ?", planID, name)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("bill named %q not found in plan %s", name, planID)
		}
		return nil, fmt.Errorf("failed to get bill %q in plan %s: %w", name, planID, result.Error)
	}
	return billModelToInfo(&model), nil
}

func (pgdb *GORMPlanDBWrapper) GetPlanBills(planID uuid.UUID) ([]dbt.BillInfo, error) {
	var models []BillModel
	result := pgdb.db.Where("plan_id = ?", planID).Order("name asc").Find(&models)
	if result.Error != nil {
		return nil, fmt.Errorf("failed to get bills for plan %s: %w", planID, result.Error)
	}

	bills := make([]dbt.BillInfo, 0, len(models))
	for i := range models {
		bills = append(bills, *billModelToInfo(&models[i]))
	}
	return bills, nil
}

func (pgdb *GORMPlanDBWrapper) UpdateBill(info *dbt.BillInfo) error {
	result := pgdb.db.Model(&BillModel{}).Where("id = ?", info.ID).Updates(map[string]interface{}{
		"name":     info.Name,
		"total":    int64(info.Total),
		"due":      sched.Day(info.Due),
		"priority": info.Priority,
	})
	if result.Error != nil {
		if isDuplicateKey(result.Error) {
			return fmt.Errorf("bill named %q already exists: %w", info.Name, result.Error)
		}
		return fmt.Errorf("failed to update bill %s: %w", info.ID, result.Error)
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("bill with ID %s not found for update", info.ID)
	}
	return nil
}

func (pgdb *GORMPlanDBWrapper) DeleteBill(id uuid.UUID) (uuid.UUID, error) {
	var planID uuid.UUID
	err := pgdb.db.Transaction(func(tx *gorm.DB) error {
		var model BillModel
		if err := tx.First(&model, "id = ?", id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return fmt.Errorf("bill with ID %s not found for delete", id)
			}
			return fmt.Errorf("failed to get bill %s: %w", id, err)
		}
		planID = model.PlanID

		if err := tx.Where("bill_id = ?", id).Delete(&PaymentModel{}).Error; err != nil {
			return fmt.Errorf("failed to delete payments for bill %s: %w", id, err)
		}
		if err := tx.Delete(&BillModel{}, "id = ?", id).Error; err != nil {
			return fmt.Errorf("failed to delete bill %s: %w", id, err)
		}
		return nil
	})
	if err != nil {
		return uuid.Nil, err
	}
	return planID, nil
}

func (pgdb *GORMPlanDBWrapper) AppendPayment(billID uuid.UUID, p dbt.PaymentInfo) error {
	return pgdb.db.Transaction(func(tx *gorm.DB) error {
		var count int64
		if err := tx.Model(&PaymentModel{}).Where("bill_id = ?", billID).Count(&count).Error; err != nil {
			return fmt.Errorf("failed to count payments for bill %s: %w", billID, err)
		}
		model := PaymentModel{
			BillID: billID,
			Seq:    int(count),
			When:   sched.Day(p.When),
			Amount: int64(p.Amount),
			Note:   p.Note,
		}
		if err := tx.Create(&model).Error; err != nil {
			if strings.Contains(err.Error(), "violates foreign key constraint") {
				return fmt.Errorf("bill with ID %s not found for payment: %w", billID, err)
			}
			return fmt.Errorf("failed to append payment for bill %s: %w", billID, err)
		}
		return nil
	})
}

func (pgdb *GORMPlanDBWrapper) GetPayments(billID uuid.UUID) ([]dbt.PaymentInfo, error) {
	var models []PaymentModel
	result := pgdb.db.Where("bill_id = ?", billID).Order("seq asc").Find(&models)
	if result.Error != nil {
		return nil, fmt.Errorf("failed to get payments for bill %s: %w", billID, result.Error)
	}

	payments := make([]dbt.PaymentInfo, 0, len(models))
	for _, m := range models {
		payments = append(payments, dbt.PaymentInfo{
			Seq:    m.Seq,
			When:   sched.Day(m.When),
			Amount: sched.Cents(m.Amount),
			Note:   m.Note,
		})
	}
	return payments, nil
}

func (pgdb *GORMPlanDBWrapper) RevertLastPayment(billID uuid.UUID) (*dbt.PaymentInfo, error) {
	var removed dbt.PaymentInfo
	err := pgdb.db.Transaction(func(tx *gorm.DB) error {
		var model PaymentModel
		result := tx.Where("bill_id = ?", billID).Order("seq desc").First(&model)
		if result.Error != nil {
			if errors.Is(result.Error, gorm.ErrRecordNotFound) {
				return fmt.Errorf("bill with ID %s has no payments to revert", billID)
			}
			return fmt.Errorf("failed to find last payment for bill %s: %w", billID, result.Error)
		}
		removed = dbt.PaymentInfo{
			Seq:    model.Seq,
			When:   sched.Day(model.When),
			Amount: sched.Cents(model.Amount),
			Note:   model.Note,
		}
		if err := tx.Delete(&PaymentModel{}, "bill_id = ? AND seq = ?", billID, model.Seq).Error; err != nil {
			return fmt.Errorf("failed to delete payment for bill %s: %w", billID, err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &removed, nil
}

func (pgdb *GORMPlanDBWrapper) RemovePayment(billID uuid.UUID, index int) error {
	return pgdb.db.Transaction(func(tx *gorm.DB) error {
		result := tx.Delete(&PaymentModel{}, "bill_id = ? AND seq = ?", billID, index)
		if result.Error != nil {
			return fmt.Errorf("failed to remove payment %d for bill %s: %w", index, billID, result.Error)
		}
		if result.RowsAffected == 0 {
			return fmt.Errorf("payment index %d not found for bill %s", index, billID)
		}
		// Renumber the tail so seq stays dense.
		if err := tx.Model(&PaymentModel{}).
			Where("bill_id = ? AND seq > ?", billID, index).
			UpdateColumn("seq", gorm.Expr("seq - 1")).Error; err != nil {
			return fmt.Errorf("failed to renumber payments for bill %s: %w", billID, err)
		}
		return nil
	})
}

func (pgdb *GORMPlanDBWrapper) SetIncome(planID uuid.UUID, entry dbt.IncomeEntry) error {
	model := IncomeModel{
		PlanID: planID,
		Day:    sched.Day(entry.Day),
		Amount: int64(entry.Amount),
	}
	result := pgdb.db.Save(&model)
	if result.Error != nil {
		if strings.Contains(result.Error.Error(), "violates foreign key constraint") {
			return fmt.Errorf("plan with ID %s not found for income: %w", planID, result.Error)
		}
		return fmt.Errorf("failed to set income for plan %s: %w", planID, result.Error)
	}
	return nil
}

func (pgdb *GORMPlanDBWrapper) RemoveIncome(planID uuid.UUID, day time.Time) error {
	result := pgdb.db.Delete(&IncomeModel{}, "plan_id = ? AND day = ?", planID, sched.Day(day))
	if result.Error != nil {
		return fmt.Errorf("failed to remove income for plan %s: %w", planID, result.Error)
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("no income recorded on %s for plan %s", sched.Day(day).Format("2006-01-02"), planID)
	}
	return nil
}

func (pgdb *GORMPlanDBWrapper) GetIncome(planID uuid.UUID) ([]dbt.IncomeEntry, error) {
	var models []IncomeModel
	result := pgdb.db.Where("plan_id = ?", planID).Order("day asc").Find(&models)
	if result.Error != nil {
		return nil, fmt.Errorf("failed to get income for plan %s: %w", planID, result.Error)
	}

	entries := make([]dbt.IncomeEntry, 0, len(models))
	for _, m := range models {
		entries = append(entries, dbt.IncomeEntry{Day: sched.Day(m.Day), Amount: sched.Cents(m.Amount)})
	}
	return entries, nil
}
