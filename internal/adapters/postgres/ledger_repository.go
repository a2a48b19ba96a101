package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"

	"github.com/prosblk/paychangu-service/internal/domain"
)

// LedgerRepository is the durable idempotency ledger backed by the
// payment_ledger table. Finalization uses a single compare-and-set UPDATE so
// that concurrent notifications for the same tx_ref cannot both win.
type LedgerRepository struct {
	db *DBExecutor
}

// NewLedgerRepository creates a new ledger repository
func NewLedgerRepository(db *DBExecutor) *LedgerRepository {
	return &LedgerRepository{db: db}
}

// CreateInitiated records the expected charge for a tx_ref. Inserting an
// already-known tx_ref is a no-op so re-registration from an authenticated
// notification is safe.
func (r *LedgerRepository) CreateInitiated(ctx context.Context, txRef string, amount decimal.Decimal, currency string) error {
	_, err := r.db.GetDB().Exec(ctx, `
		INSERT INTO payment_ledger (tx_ref, expected_amount, expected_currency, state)
		VALUES ($1, $2, $3, 'initiated')
		ON CONFLICT (tx_ref) DO NOTHING
	`, txRef, amount, currency)
	if err != nil {
		return domain.WrapError(domain.ErrorCodeDatabaseError, "create ledger entry", err)
	}
	return nil
}

// Get returns the ledger entry for a tx_ref
func (r *LedgerRepository) Get(ctx context.Context, txRef string) (*domain.LedgerEntry, error) {
	return r.get(ctx, r.db.GetDB(), txRef, false)
}

type queryRower interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

func (r *LedgerRepository) get(ctx context.Context, q queryRower, txRef string, forUpdate bool) (*domain.LedgerEntry, error) {
	query := `
		SELECT tx_ref, expected_amount, expected_currency, state, COALESCE(charge_id, ''), created_at, processed_at
		FROM payment_ledger
		WHERE tx_ref = $1`
	if forUpdate {
		query += " FOR UPDATE"
	}

	var (
		entry       domain.LedgerEntry
		amount      decimal.Decimal
		state       string
		processedAt *time.Time
	)
	err := q.QueryRow(ctx, query, txRef).Scan(
		&entry.TxRef, &amount, &entry.ExpectedCurrency, &state,
		&entry.ChargeID, &entry.CreatedAt, &processedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrLedgerNotFound
		}
		return nil, domain.WrapError(domain.ErrorCodeDatabaseError, "get ledger entry", err)
	}

	entry.ExpectedAmount = amount
	entry.State = domain.LedgerState(state)
	entry.ProcessedAt = processedAt
	return &entry, nil
}

// HasProcessed reports whether the tx_ref has reached a terminal state
func (r *LedgerRepository) HasProcessed(ctx context.Context, txRef string) (bool, error) {
	entry, err := r.Get(ctx, txRef)
	if err != nil {
		if errors.Is(err, domain.ErrLedgerNotFound) {
			return false, nil
		}
		return false, err
	}
	return entry.State.IsTerminal(), nil
}

// MarkVerifying moves an initiated entry to verifying; any other state is left
// untouched, so a lost race against a terminal transition is harmless.
func (r *LedgerRepository) MarkVerifying(ctx context.Context, txRef string) error {
	_, err := r.db.GetDB().Exec(ctx, `
		UPDATE payment_ledger
		SET state = 'verifying'
		WHERE tx_ref = $1 AND state = 'initiated'
	`, txRef)
	if err != nil {
		return domain.WrapError(domain.ErrorCodeDatabaseError, "mark ledger entry verifying", err)
	}
	return nil
}

// MarkProcessed transitions a tx_ref to a terminal state exactly once.
// Returns true only for the transition that won; a repeat of the identical
// status is a silent no-op and a differing status is a LEDGER_CONFLICT.
func (r *LedgerRepository) MarkProcessed(ctx context.Context, txRef string, status domain.LedgerState, chargeID string) (bool, error) {
	if !status.IsTerminal() {
		return false, domain.NewDomainError(domain.ErrorCodeInternalError, "mark processed requires a terminal state").
			WithDetail("state", string(status))
	}

	var first bool
	err := r.db.WithTransaction(ctx, func(ctx context.Context, tx pgx.Tx) error {
		entry, err := r.get(ctx, tx, txRef, true)
		if err != nil {
			return err
		}

		if entry.State.IsTerminal() {
			if entry.State == status {
				// Duplicate delivery after a terminal state: swallow, do not re-process.
				first = false
				return nil
			}
			return domain.NewDomainError(domain.ErrorCodeLedgerConflict, "conflicting final status already recorded for tx_ref").
				WithDetail("tx_ref", txRef).
				WithDetail("recorded", string(entry.State)).
				WithDetail("attempted", string(status))
		}

		tag, err := tx.Exec(ctx, `
			UPDATE payment_ledger
			SET state = $2,
			    charge_id = COALESCE(NULLIF($3, ''), charge_id),
			    processed_at = now()
			WHERE tx_ref = $1 AND state IN ('initiated', 'verifying')
		`, txRef, string(status), chargeID)
		if err != nil {
			return domain.WrapError(domain.ErrorCodeDatabaseError, "finalize ledger entry", err)
		}

		first = tag.RowsAffected() == 1
		return nil
	})
	if err != nil {
		return false, err
	}
	return first, nil
}
