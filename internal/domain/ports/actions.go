package ports

import (
	"context"

	"github.com/prosblk/paychangu-service/internal/domain"
)

// BusinessActions are the downstream hooks invoked after an event has been
// authenticated, verified and gated by the ledger. Implementations own order
// fulfillment, email dispatch and similar side effects; the processor only
// guarantees GrantValue runs at most once per tx_ref.
type BusinessActions interface {
	// GrantValue delivers the purchased value. Invoked exactly once per tx_ref.
	GrantValue(ctx context.Context, event *domain.PaymentEvent) error

	// NotifyFailure informs the customer of a failed attempt. Informational,
	// safe to repeat on duplicate delivery.
	NotifyFailure(ctx context.Context, event *domain.PaymentEvent) error

	// RecordPayout records an outgoing disbursement. No customer-facing side effect.
	RecordPayout(ctx context.Context, event *domain.PaymentEvent) error
}
