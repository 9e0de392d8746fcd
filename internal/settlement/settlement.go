// Package settlement holds the pure rules that relate an invoice total, the
// payments recorded against it and its settlement status.
package settlement

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

var (
	ErrInvalidAmount  = errors.New("invalid_amount")
	ErrExceedsPending = errors.New("amount_exceeds_pending")
)

// AmountError carries the offending values of a rejected payment amount.
type AmountError struct {
	Kind    error
	Amount  decimal.Decimal
	Pending decimal.Decimal
}

func (e *AmountError) Error() string {
	if errors.Is(e.Kind, ErrExceedsPending) {
		return fmt.Sprintf("Payment amount (%s) exceeds pending amount (%s)", Format(e.Amount), Format(e.Pending))
	}
	return fmt.Sprintf("Payment amount must be greater than zero, got %s", Format(e.Amount))
}

func (e *AmountError) Unwrap() error {
	return e.Kind
}

// Pending returns what is still owed. The result is not clamped at zero.
func Pending(amountTotal, totalPaid decimal.Decimal) decimal.Decimal {
	return amountTotal.Sub(totalPaid)
}

// DeriveStatus maps accumulated payments to a settlement status. It never
// returns StatusVoid.
func DeriveStatus(amountTotal, totalPaid decimal.Decimal) Status {
	switch {
	case totalPaid.IsZero():
		return StatusIssued
	case totalPaid.GreaterThanOrEqual(amountTotal):
		return StatusPaid
	default:
		return StatusPartial
	}
}

// Resolve is DeriveStatus with the void override applied first.
func Resolve(voided bool, amountTotal, totalPaid decimal.Decimal) Status {
	if voided {
		return StatusVoid
	}
	return DeriveStatus(amountTotal, totalPaid)
}

// ValidatePaymentAmount accepts amounts in (0, pending].
func ValidatePaymentAmount(amount, pending decimal.Decimal) error {
	if !amount.IsPositive() {
		return &AmountError{Kind: ErrInvalidAmount, Amount: amount, Pending: pending}
	}
	if amount.GreaterThan(pending) {
		return &AmountError{Kind: ErrExceedsPending, Amount: amount, Pending: pending}
	}
	return nil
}
