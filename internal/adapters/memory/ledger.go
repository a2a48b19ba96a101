package memory

import (
	"context"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/prosblk/paychangu-service/internal/domain"
)

// Ledger is a mutex-guarded in-memory idempotency ledger. Suitable for unit
// tests and local development only: notification delivery can be retried
// across process instances, so production uses the Postgres ledger.
type Ledger struct {
	mu      sync.Mutex
	entries map[string]*domain.LedgerEntry
}

// NewLedger creates an empty in-memory ledger
func NewLedger() *Ledger {
	return &Ledger{entries: make(map[string]*domain.LedgerEntry)}
}

// CreateInitiated records the expected charge for a tx_ref; no-op if known
func (l *Ledger) CreateInitiated(_ context.Context, txRef string, amount decimal.Decimal, currency string) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if _, ok := l.entries[txRef]; ok {
		return nil
	}
	l.entries[txRef] = &domain.LedgerEntry{
		TxRef:            txRef,
		ExpectedAmount:   amount,
		ExpectedCurrency: currency,
		State:            domain.LedgerStateInitiated,
		CreatedAt:        time.Now().UTC(),
	}
	return nil
}

// Get returns a copy of the entry for a tx_ref
func (l *Ledger) Get(_ context.Context, txRef string) (*domain.LedgerEntry, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	entry, ok := l.entries[txRef]
	if !ok {
		return nil, domain.ErrLedgerNotFound
	}
	cp := *entry
	return &cp, nil
}

// HasProcessed reports whether the tx_ref has reached a terminal state
func (l *Ledger) HasProcessed(_ context.Context, txRef string) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	entry, ok := l.entries[txRef]
	if !ok {
		return false, nil
	}
	return entry.State.IsTerminal(), nil
}

// MarkVerifying moves an initiated entry to verifying; no-op otherwise
func (l *Ledger) MarkVerifying(_ context.Context, txRef string) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if entry, ok := l.entries[txRef]; ok && entry.State == domain.LedgerStateInitiated {
		entry.State = domain.LedgerStateVerifying
	}
	return nil
}

// MarkProcessed transitions a tx_ref to a terminal state exactly once.
// The check-then-act runs under the ledger mutex, so concurrent callers for
// the same tx_ref serialize and only one observes the first transition.
func (l *Ledger) MarkProcessed(_ context.Context, txRef string, status domain.LedgerState, chargeID string) (bool, error) {
	if !status.IsTerminal() {
		return false, domain.NewDomainError(domain.ErrorCodeInternalError, "mark processed requires a terminal state").
			WithDetail("state", string(status))
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	entry, ok := l.entries[txRef]
	if !ok {
		return false, domain.ErrLedgerNotFound
	}

	if entry.State.IsTerminal() {
		if entry.State == status {
			return false, nil
		}
		return false, domain.NewDomainError(domain.ErrorCodeLedgerConflict, "conflicting final status already recorded for tx_ref").
			WithDetail("tx_ref", txRef).
			WithDetail("recorded", string(entry.State)).
			WithDetail("attempted", string(status))
	}

	now := time.Now().UTC()
	entry.State = status
	entry.ProcessedAt = &now
	if chargeID != "" {
		entry.ChargeID = chargeID
	}
	return true, nil
}
