package sched

import "fmt"

// ApplyPayment returns a copy of the bill with the payment appended. A zero
// amount records a missed payment; negative amounts are rejected. The input
// bill is never mutated, so callers can hand the result to storage and keep
// the old value for change detection.
func ApplyPayment(b Bill, p Payment) (Bill, error) {
	if p.Amount < 0 {
		return Bill{}, fmt.Errorf("%w: payment amount %d is negative", ErrInvalidInput, p.Amount)
	}
	if p.When.IsZero() {
		return Bill{}, fmt.Errorf("%w: payment has no date", ErrInvalidInput)
	}
	p.When = Day(p.When)

	updated := b
	updated.Payments = make([]Payment, len(b.Payments), len(b.Payments)+1)
	copy(updated.Payments, b.Payments)
	updated.Payments = append(updated.Payments, p)
	return updated, nil
}

// RevertLastPayment returns a copy of the bill with its most recent payment
// removed, along with the removed payment.
func RevertLastPayment(b Bill) (Bill, Payment, error) {
	if len(b.Payments) == 0 {
		return Bill{}, Payment{}, fmt.Errorf("bill %q has no payments to revert", b.Name)
	}
	removed := b.Payments[len(b.Payments)-1]

	updated := b
	updated.Payments = make([]Payment, len(b.Payments)-1)
	copy(updated.Payments, b.Payments[:len(b.Payments)-1])
	return updated, removed, nil
}

// RemovePayment returns a copy of the bill with the payment at the given
// index removed. This is the only other sanctioned way a payment leaves a
// bill's history.
func RemovePayment(b Bill, index int) (Bill, error) {
	if index < 0 || index >= len(b.Payments) {
		return Bill{}, fmt.Errorf("payment index %d out of range for bill %q (%d payments)",
			index, b.Name, len(b.Payments))
	}

	updated := b
	updated.Payments = make([]Payment, 0, len(b.Payments)-1)
	updated.Payments = append(updated.Payments, b.Payments[:index]...)
	updated.Payments = append(updated.Payments, b.Payments[index+1:]...)
	return updated, nil
}
