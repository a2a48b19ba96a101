package ports

import (
	"context"

	"github.com/shopspring/decimal"

	"github.com/prosblk/paychangu-service/internal/domain"
)

// Ledger is the idempotency ledger port. Implementations must make
// MarkProcessed atomic per tx_ref: two concurrent notifications for the same
// reference must not both observe a non-terminal entry.
type Ledger interface {
	// CreateInitiated records the expected charge for a new tx_ref.
	CreateInitiated(ctx context.Context, txRef string, amount decimal.Decimal, currency string) error

	// Get returns the entry for a tx_ref, or domain.ErrLedgerNotFound.
	Get(ctx context.Context, txRef string) (*domain.LedgerEntry, error)

	// HasProcessed reports whether the tx_ref has reached a terminal state.
	HasProcessed(ctx context.Context, txRef string) (bool, error)

	// MarkVerifying moves an initiated entry into the verifying state while a
	// gateway re-verification is in flight. No-op for any other state.
	MarkVerifying(ctx context.Context, txRef string) error

	// MarkProcessed transitions the tx_ref to a terminal state exactly once.
	// Recording the identical terminal status again is a no-op; recording a
	// differing status returns a LEDGER_CONFLICT error. The boolean result is
	// true only for the first transition, which gates the business action.
	MarkProcessed(ctx context.Context, txRef string, status domain.LedgerState, chargeID string) (bool, error)
}
