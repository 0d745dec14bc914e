package pg

import (
	"time"

	"github.com/google/uuid"
)

type PlanModel struct {
	ID    uuid.UUID `gorm:"type:uuid;primaryKey"`
	Name  string    `gorm:"size:255;not null"`
	Start time.Time `gorm:"type:date;not null"`
	End   time.Time `gorm:"type:date;not null;column:end_day"`
	// meta data
	CreatedAt time.Time
	UpdatedAt time.Time
}

// TableName returns the table name for PlanModel.
func (PlanModel) TableName() string {
	return "plans"
}

type BillModel struct {
	ID       uuid.UUID `gorm:"type:uuid;primaryKey"`
	PlanID   uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_bills_plan_name"`
	Name     string    `gorm:"size:255;not null;uniqueIndex:idx_bills_plan_name"`
	Total    int64     `gorm:"type:bigint;not null"` // cents
	Due      time.Time `gorm:"type:date;not null"`
	Priority int       `gorm:"not null"`
	// meta data
	CreatedAt time.Time
	UpdatedAt time.Time
}

// TableName returns the table name for BillModel.
func (BillModel) TableName() string {
	return "bills"
}

type PaymentModel struct {
	BillID uuid.UUID `gorm:"type:uuid;primaryKey"`
	Seq    int       `gorm:"primaryKey"`
	When   time.Time `gorm:"type:date;not null;column:paid_on"`
	Amount int64     `gorm:"type:bigint;not null"` // cents; 0 marks a missed payment
	Note   string    `gorm:"size:255"`
	// meta data
	CreatedAt time.Time
	UpdatedAt time.Time
}

// TableName returns the table name for PaymentModel.
func (PaymentModel) TableName() string {
	return "payments"
}

type IncomeModel struct {
	PlanID uuid.UUID `gorm:"type:uuid;primaryKey"`
	Day    time.Time `gorm:"type:date;primaryKey"`
	Amount int64     `gorm:"type:bigint;not null"` // cents
	// meta data
	CreatedAt time.Time
	UpdatedAt time.Time
}

// TableName returns the table name for IncomeModel.
func (IncomeModel) TableName() string {
	return "plan_incomes"
}
