package notify

import (
	"context"

	"github.com/prosblk/paychangu-service/internal/domain"
	"github.com/prosblk/paychangu-service/internal/domain/ports"
)

// LoggingActions implements BusinessActions by writing structured logs. It is
// the default wiring until a fulfillment backend is attached; the log lines
// double as an audit trail of granted value.
type LoggingActions struct {
	logger ports.Logger
}

// NewLoggingActions creates a new logging-backed actions adapter
func NewLoggingActions(logger ports.Logger) *LoggingActions {
	return &LoggingActions{logger: logger}
}

// GrantValue logs the completed payment. The processor guarantees this runs
// at most once per tx_ref.
func (a *LoggingActions) GrantValue(ctx context.Context, event *domain.PaymentEvent) error {
	a.logger.Info("value granted for completed payment",
		ports.String("tx_ref", event.TxRef),
		ports.String("charge_id", event.ChargeID),
		ports.String("amount", event.Amount.String()),
		ports.String("currency", event.Currency),
		ports.String("customer_email", event.CustomerEmail),
		ports.String("channel", event.PaymentChannel))
	return nil
}

// NotifyFailure logs the failed attempt
func (a *LoggingActions) NotifyFailure(ctx context.Context, event *domain.PaymentEvent) error {
	a.logger.Info("customer notified of failed payment",
		ports.String("tx_ref", event.TxRef),
		ports.String("customer_email", event.CustomerEmail))
	return nil
}

// RecordPayout logs the disbursement notification
func (a *LoggingActions) RecordPayout(ctx context.Context, event *domain.PaymentEvent) error {
	a.logger.Info("payout recorded",
		ports.String("tx_ref", event.TxRef),
		ports.String("amount", event.Amount.String()),
		ports.String("currency", event.Currency))
	return nil
}
