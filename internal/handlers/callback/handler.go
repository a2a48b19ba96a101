package callback

import (
	"net/http"

	"github.com/prosblk/paychangu-service/internal/domain/ports"
	"github.com/prosblk/paychangu-service/internal/handlers/templates"
	"github.com/prosblk/paychangu-service/internal/services/payment"
)

// Handler serves the customer's browser return from the hosted checkout. The
// status query parameter the gateway appends is advisory only and never
// consulted; the rendered outcome comes from the server-side re-verification.
type Handler struct {
	processor *payment.Processor
	logger    ports.Logger
}

// NewHandler creates a new callback handler
func NewHandler(processor *payment.Processor, logger ports.Logger) *Handler {
	return &Handler{
		processor: processor,
		logger:    logger,
	}
}

type resultPage struct {
	TxRef          string
	Amount         string
	Currency       string
	PaymentChannel string
	Duplicate      bool
	Message        string
}

// Handle processes GET /callback?tx_ref=...
func (h *Handler) Handle(w http.ResponseWriter, r *http.Request) {
	txRef := r.URL.Query().Get("tx_ref")
	if txRef == "" {
		h.renderFailure(w, resultPage{Message: "Missing transaction reference."})
		return
	}

	outcome, err := h.processor.ProcessCallback(r.Context(), txRef)
	if err != nil {
		// Verification unreachable or internal failure. The customer sees a
		// neutral failure page; the ledger is reconciled by the webhook path.
		h.logger.Error("callback processing failed",
			ports.String("tx_ref", txRef),
			ports.Err(err))
		h.renderFailure(w, resultPage{
			TxRef:   txRef,
			Message: "We could not confirm your payment right now. You will receive a confirmation once it settles.",
		})
		return
	}

	page := resultPage{
		TxRef:          outcome.TxRef,
		Amount:         outcome.Amount,
		Currency:       outcome.Currency,
		PaymentChannel: outcome.PaymentChannel,
		Duplicate:      outcome.Duplicate,
	}

	if !outcome.Success {
		h.renderFailure(w, page)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := templates.Pages.ExecuteTemplate(w, "success.html", page); err != nil {
		h.logger.Error("failed to render success page", ports.Err(err))
	}
}

// HandleFailed serves GET /failed, the return URL the gateway redirects to
// when the customer cancels or the charge is declined upstream.
func (h *Handler) HandleFailed(w http.ResponseWriter, r *http.Request) {
	h.renderFailure(w, resultPage{
		TxRef:   r.URL.Query().Get("tx_ref"),
		Message: "The payment was cancelled or declined.",
	})
}

func (h *Handler) renderFailure(w http.ResponseWriter, page resultPage) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := templates.Pages.ExecuteTemplate(w, "failure.html", page); err != nil {
		h.logger.Error("failed to render failure page", ports.Err(err))
	}
}
