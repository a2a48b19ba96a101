package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// LedgerState is the lifecycle state of a tx_ref in the idempotency ledger.
// Completed and Failed are terminal; any notification that arrives after a
// terminal state is a duplicate, not an error.
type LedgerState string

const (
	LedgerStateInitiated LedgerState = "initiated"
	LedgerStateVerifying LedgerState = "verifying"
	LedgerStateCompleted LedgerState = "completed"
	LedgerStateFailed    LedgerState = "failed"
)

// IsTerminal reports whether the state absorbs further notifications
func (s LedgerState) IsTerminal() bool {
	return s == LedgerStateCompleted || s == LedgerStateFailed
}

// LedgerEntry records the expected charge for a tx_ref and, once processed,
// its final outcome. Created at initiation, finalized at most once.
type LedgerEntry struct {
	TxRef            string
	ExpectedAmount   decimal.Decimal
	ExpectedCurrency string
	State            LedgerState
	ChargeID         string
	CreatedAt        time.Time
	ProcessedAt      *time.Time
}

// ValidateCharge checks a reported charge against the values expected for
// this tx_ref at initiation time. An amount below expectation, or a currency
// mismatch, invalidates the charge even when the reported status is success.
func (e *LedgerEntry) ValidateCharge(status PaymentStatus, amount decimal.Decimal, currency string) error {
	if status != PaymentStatusSuccess {
		return NewDomainError(ErrorCodeValidationStatus, "verified payment status is not successful").
			WithDetail("status", string(status))
	}
	if amount.LessThan(e.ExpectedAmount) {
		return NewDomainError(ErrorCodeValidationAmountMismatch, "paid amount is below the expected amount").
			WithDetail("expected", e.ExpectedAmount.String()).
			WithDetail("paid", amount.String())
	}
	if currency != e.ExpectedCurrency {
		return NewDomainError(ErrorCodeValidationCurrencyMismatch, "paid currency does not match the expected currency").
			WithDetail("expected", e.ExpectedCurrency).
			WithDetail("paid", currency)
	}
	return nil
}
