package webhook

import (
	"encoding/json"
	"io"
	"net/http"

	"github.com/prosblk/paychangu-service/internal/domain"
	"github.com/prosblk/paychangu-service/internal/domain/ports"
	"github.com/prosblk/paychangu-service/internal/services/payment"
	"github.com/prosblk/paychangu-service/pkg/observability"
)

const maxBodySize = 1 << 20

// Handler receives gateway webhook deliveries. It sits behind the signature
// authentication middleware, so every request reaching Handle carries a
// verified HMAC. Once authenticated, the gateway is always acknowledged with
// 200 so it stops retrying; business failures are resolved internally.
type Handler struct {
	processor *payment.Processor
	logger    ports.Logger
}

// NewHandler creates a new webhook handler
func NewHandler(processor *payment.Processor, logger ports.Logger) *Handler {
	return &Handler{
		processor: processor,
		logger:    logger,
	}
}

type ackResponse struct {
	Status  string `json:"status"`
	Message string `json:"message,omitempty"`
}

// Handle processes an authenticated webhook delivery
func (h *Handler) Handle(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	body, err := io.ReadAll(io.LimitReader(r.Body, maxBodySize))
	if err != nil {
		h.logger.Error("failed to read webhook body", ports.Err(err))
		writeJSON(w, http.StatusBadRequest, ackResponse{Status: "error", Message: "unreadable body"})
		return
	}

	event, err := domain.ParsePaymentEvent(body)
	if err != nil {
		h.logger.Warn("malformed webhook payload", ports.Err(err))
		observability.RecordWebhookAuthFailure("malformed_payload")
		writeJSON(w, http.StatusBadRequest, ackResponse{Status: "error", Message: "malformed payload"})
		return
	}

	if err := h.processor.ProcessWebhook(r.Context(), event); err != nil {
		// The delivery is authentic, so the gateway gets its ack either way;
		// the failure is ours to reconcile.
		h.logger.Error("webhook processing failed",
			ports.String("tx_ref", event.TxRef),
			ports.String("event_type", event.RawEventType),
			ports.Err(err))
		observability.RecordWebhookEvent(string(event.EventType), outcomeLabel(err))
		writeJSON(w, http.StatusOK, ackResponse{Status: "success", Message: "received"})
		return
	}

	observability.RecordWebhookEvent(string(event.EventType), "processed")
	writeJSON(w, http.StatusOK, ackResponse{Status: "success", Message: "received"})
}

func outcomeLabel(err error) string {
	switch {
	case domain.IsConflictError(err):
		return "conflict"
	case domain.IsValidationError(err):
		return "validation_failed"
	default:
		return "error"
	}
}

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}
