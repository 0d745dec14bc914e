package migrations

import (
	"context"
	"database/sql"

	"github.com/pressly/goose/v3"
)

func init() {
	goose.AddMigrationContext(upInitTables, downInitTables)
}

func upInitTables(ctx context.Context, tx *sql.Tx) error {
	// Create plans table
	_, err := tx.ExecContext(ctx, `
		CREATE TABLE plans (
			id UUID PRIMARY KEY,
			name VARCHAR(255) NOT NULL,
			start DATE NOT NULL,
			end_day DATE NOT NULL,
			created_at TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP,
			updated_at TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP
		);
	`)
	if err != nil {
		return err
	}

	// Create bills table; a bill name is unique inside its plan because the
	// schedule references bills by name.
	_, err = tx.ExecContext(ctx, `
		CREATE TABLE bills (
			id UUID PRIMARY KEY,
			plan_id UUID NOT NULL,
			name VARCHAR(255) NOT NULL,
			total BIGINT NOT NULL CHECK (total >= 0),
			due DATE NOT NULL,
			priority INT NOT NULL CHECK (priority BETWEEN 1 AND 5),
			created_at TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP,
			updated_at TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP,
			CONSTRAINT fk_bills_plan
				FOREIGN KEY(plan_id)
				REFERENCES plans(id)
				ON UPDATE CASCADE
				ON DELETE CASCADE,
			CONSTRAINT idx_bills_plan_name UNIQUE (plan_id, name)
		);
	`)
	if err != nil {
		return err
	}

	// Create payments table; amounts are cents, zero marks a missed payment.
	_, err = tx.ExecContext(ctx, `
		CREATE TABLE payments (
			bill_id UUID NOT NULL,
			seq INT NOT NULL,
			paid_on DATE NOT NULL,
			amount BIGINT NOT NULL CHECK (amount >= 0),
			note VARCHAR(255) NOT NULL DEFAULT '',
			created_at TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP,
			updated_at TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP,
			PRIMARY KEY (bill_id, seq),
			CONSTRAINT fk_payments_bill
				FOREIGN KEY(bill_id)
				REFERENCES bills(id)
				ON UPDATE CASCADE
				ON DELETE CASCADE
		);
	`)
	if err != nil {
		return err
	}

	// Create plan_incomes table, the sparse payday calendar.
	_, err = tx.ExecContext(ctx, `
		CREATE TABLE plan_incomes (
			plan_id UUID NOT NULL,
			day DATE NOT NULL,
			amount BIGINT NOT NULL CHECK (amount >= 0),
			created_at TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP,
			updated_at TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP,
			PRIMARY KEY (plan_id, day),
			CONSTRAINT fk_plan_incomes_plan
				FOREIGN KEY(plan_id)
				REFERENCES plans(id)
				ON UPDATE CASCADE
				ON DELETE CASCADE
		);
	`)
	if err != nil {
		return err
	}

	_, err = tx.ExecContext(ctx, `CREATE INDEX idx_bills_plan_id ON bills(plan_id);`)
	if err != nil {
		return err
	}

	_, err = tx.ExecContext(ctx, `CREATE INDEX idx_payments_bill_id ON payments(bill_id);`)
	return err
}

func downInitTables(ctx context.Context, tx *sql.Tx) error {
	for _, table := range []string{"plan_incomes", "payments", "bills", "plans"} {
		if _, err := tx.ExecContext(ctx, `DROP TABLE IF EXISTS `+table+`;`); err != nil {
			return err
		}
	}
	return nil
}
