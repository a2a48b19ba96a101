package payment

import (
	"context"
	"errors"
	"time"

	"github.com/prosblk/paychangu-service/internal/domain"
	"github.com/prosblk/paychangu-service/internal/domain/ports"
	"github.com/prosblk/paychangu-service/pkg/observability"
)

// Processor consumes gateway-originated events. Every path goes through the
// idempotency ledger: a tx_ref reaches a terminal state at most once no
// matter how many times the gateway delivers the notification, and only the
// winning transition runs the value-granting action.
type Processor struct {
	ledger  ports.Ledger
	gateway ports.PaymentGateway
	actions ports.BusinessActions
	logger  ports.Logger
}

// NewProcessor creates a new event processor
func NewProcessor(ledger ports.Ledger, gateway ports.PaymentGateway, actions ports.BusinessActions, logger ports.Logger) *Processor {
	return &Processor{
		ledger:  ledger,
		gateway: gateway,
		actions: actions,
		logger:  logger,
	}
}

// ProcessWebhook dispatches an authenticated webhook event. The caller has
// already verified the HMAC signature, so the payload itself is trusted for
// classification; amount and currency are still validated against the charge
// expected at initiation. Errors returned here are for internal handling
// only; the webhook boundary acknowledges receipt regardless.
func (p *Processor) ProcessWebhook(ctx context.Context, event *domain.PaymentEvent) error {
	switch event.EventType {
	case domain.EventTypePayment:
		if event.TxRef == "" {
			return domain.ErrMissingTxRef
		}
		if event.Status == domain.PaymentStatusSuccess {
			return p.settleSuccess(ctx, event)
		}
		return p.settleFailure(ctx, event)

	case domain.EventTypePayout:
		p.logger.Info("payout notification received",
			ports.String("tx_ref", event.TxRef),
			ports.String("currency", event.Currency),
			ports.String("amount", event.Amount.String()))
		return p.actions.RecordPayout(ctx, event)

	default:
		// Unrecognized events are logged and acknowledged; erroring the
		// response would trigger the gateway's retry storm.
		p.logger.Warn("unknown webhook event type",
			ports.String("event_type", event.RawEventType),
			ports.String("tx_ref", event.TxRef))
		return nil
	}
}

// CallbackOutcome is what the browser-return page renders. Success is decided
// exclusively by the server-side re-verification, never by query parameters.
type CallbackOutcome struct {
	TxRef          string
	Success        bool
	Duplicate      bool
	Amount         string
	Currency       string
	CustomerEmail  string
	PaymentChannel string
	Reason         string
}

// ProcessCallback handles the customer's browser return. The advisory status
// from the query string is ignored: the gateway's verification endpoint is
// re-queried and its answer validated against the expected charge before any
// success state is rendered or value granted.
func (p *Processor) ProcessCallback(ctx context.Context, txRef string) (*CallbackOutcome, error) {
	if txRef == "" {
		return nil, domain.ErrMissingTxRef
	}

	// Record the in-flight re-verification. Unknown and terminal refs are
	// untouched, so a duplicate callback or a racing webhook is harmless.
	if err := p.ledger.MarkVerifying(ctx, txRef); err != nil {
		return nil, err
	}

	start := time.Now()
	verification, err := p.gateway.VerifyTransaction(ctx, txRef)
	observability.RecordVerification(verificationOutcome(err), time.Since(start).Seconds())
	if err != nil {
		p.logger.Error("callback re-verification failed",
			ports.String("tx_ref", txRef),
			ports.Err(err))
		return nil, err
	}

	entry, err := p.ensureEntry(ctx, txRef, verification)
	if err != nil {
		return nil, err
	}

	outcome := &CallbackOutcome{
		TxRef:          txRef,
		Amount:         verification.Amount.String(),
		Currency:       verification.Currency,
		CustomerEmail:  verification.CustomerEmail,
		PaymentChannel: verification.PaymentChannel,
	}

	if entry.State.IsTerminal() {
		// Customer refreshed or revisited the callback URL.
		outcome.Success = entry.State == domain.LedgerStateCompleted
		outcome.Duplicate = true
		return outcome, nil
	}

	if validationErr := entry.ValidateCharge(verification.Status, verification.Amount, verification.Currency); validationErr != nil {
		first, err := p.ledger.MarkProcessed(ctx, txRef, domain.LedgerStateFailed, "")
		if err != nil {
			return nil, err
		}
		if first {
			observability.RecordLedgerTransition(string(domain.LedgerStateFailed))
		}
		p.logger.Warn("callback verification did not validate",
			ports.String("tx_ref", txRef),
			ports.Err(validationErr))
		outcome.Success = false
		outcome.Reason = validationErr.Error()
		return outcome, nil
	}

	first, err := p.ledger.MarkProcessed(ctx, txRef, domain.LedgerStateCompleted, "")
	if err != nil {
		if domain.IsConflictError(err) {
			observability.RecordLedgerConflict()
		}
		return nil, err
	}
	if first {
		observability.RecordLedgerTransition(string(domain.LedgerStateCompleted))
		observability.RecordPaymentAmount(verification.Currency, verification.Amount.InexactFloat64())
		p.runGrantValue(ctx, &domain.PaymentEvent{
			TxRef:          txRef,
			EventType:      domain.EventTypePayment,
			Status:         domain.PaymentStatusSuccess,
			Amount:         verification.Amount,
			Currency:       verification.Currency,
			CustomerEmail:  verification.CustomerEmail,
			PaymentChannel: verification.PaymentChannel,
		})
	} else {
		outcome.Duplicate = true
	}

	outcome.Success = true
	return outcome, nil
}

// settleSuccess finalizes a success notification: validate the reported
// charge against expectations, win the ledger transition, then grant value.
func (p *Processor) settleSuccess(ctx context.Context, event *domain.PaymentEvent) error {
	entry, err := p.ensureEntryFromEvent(ctx, event)
	if err != nil {
		return err
	}

	if entry.State.IsTerminal() {
		p.logger.Info("duplicate notification for terminal tx_ref",
			ports.String("tx_ref", event.TxRef),
			ports.String("state", string(entry.State)))
		return nil
	}

	if validationErr := entry.ValidateCharge(event.Status, event.Amount, event.Currency); validationErr != nil {
		p.logger.Warn("success notification failed charge validation",
			ports.String("tx_ref", event.TxRef),
			ports.Err(validationErr))
		return p.settleFailure(ctx, event)
	}

	first, err := p.ledger.MarkProcessed(ctx, event.TxRef, domain.LedgerStateCompleted, event.ChargeID)
	if err != nil {
		return err
	}
	if !first {
		return nil
	}

	observability.RecordLedgerTransition(string(domain.LedgerStateCompleted))
	observability.RecordPaymentAmount(event.Currency, event.Amount.InexactFloat64())
	p.runGrantValue(ctx, event)
	return nil
}

// settleFailure records the failed outcome and notifies the customer. The
// notification action is informational and safe to repeat.
func (p *Processor) settleFailure(ctx context.Context, event *domain.PaymentEvent) error {
	if _, err := p.ensureEntryFromEvent(ctx, event); err != nil {
		return err
	}

	first, err := p.ledger.MarkProcessed(ctx, event.TxRef, domain.LedgerStateFailed, event.ChargeID)
	if err != nil {
		if domain.IsConflictError(err) {
			observability.RecordLedgerConflict()
		}
		return err
	}
	if first {
		observability.RecordLedgerTransition(string(domain.LedgerStateFailed))
	}

	if err := p.actions.NotifyFailure(ctx, event); err != nil {
		p.logger.Error("failure notification action errored",
			ports.String("tx_ref", event.TxRef),
			ports.Err(err))
	}
	return nil
}

func verificationOutcome(err error) string {
	switch domain.GetErrorCode(err) {
	case "":
		if err != nil {
			return "error"
		}
		return "success"
	case domain.ErrorCodeGatewayTimeout:
		return "timeout"
	case domain.ErrorCodeVerificationUnavailable:
		return "unavailable"
	default:
		return "failed"
	}
}

// runGrantValue invokes the value-granting hook. The ledger transition has
// already been won, so an action failure is logged for reconciliation rather
// than unwinding the terminal state.
func (p *Processor) runGrantValue(ctx context.Context, event *domain.PaymentEvent) {
	if err := p.actions.GrantValue(ctx, event); err != nil {
		p.logger.Error("grant value action errored, manual reconciliation required",
			ports.String("tx_ref", event.TxRef),
			ports.String("charge_id", event.ChargeID),
			ports.Err(err))
	}
}

// ensureEntryFromEvent registers a ledger entry for notifications whose
// tx_ref was initiated elsewhere. The payload is HMAC-authenticated, so its
// amount and currency are acceptable as the expected charge.
func (p *Processor) ensureEntryFromEvent(ctx context.Context, event *domain.PaymentEvent) (*domain.LedgerEntry, error) {
	entry, err := p.ledger.Get(ctx, event.TxRef)
	if err == nil {
		return entry, nil
	}
	if !errors.Is(err, domain.ErrLedgerNotFound) {
		return nil, err
	}

	if err := p.ledger.CreateInitiated(ctx, event.TxRef, event.Amount, event.Currency); err != nil {
		return nil, err
	}
	return p.ledger.Get(ctx, event.TxRef)
}

func (p *Processor) ensureEntry(ctx context.Context, txRef string, verification *domain.VerificationResult) (*domain.LedgerEntry, error) {
	entry, err := p.ledger.Get(ctx, txRef)
	if err == nil {
		return entry, nil
	}
	if !errors.Is(err, domain.ErrLedgerNotFound) {
		return nil, err
	}

	// No initiation record: register the authoritative verification values
	// as the expected charge.
	if err := p.ledger.CreateInitiated(ctx, txRef, verification.Amount, verification.Currency); err != nil {
		return nil, err
	}
	return p.ledger.Get(ctx, txRef)
}
