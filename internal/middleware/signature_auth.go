package middleware

import (
	"bytes"
	"io"
	"net"
	"net/http"
	"strings"

	"github.com/prosblk/paychangu-service/internal/adapters/paychangu"
	"github.com/prosblk/paychangu-service/internal/domain/ports"
	"github.com/prosblk/paychangu-service/pkg/observability"
)

// maxWebhookBody caps how much of a webhook body is read before signature
// verification. Gateway payloads are small JSON documents.
const maxWebhookBody = 1 << 20

// SignatureAuth authenticates webhook deliveries by their HMAC-SHA256
// signature over the raw request body. Requests without a valid signature
// never reach the handler.
type SignatureAuth struct {
	webhookSecret string
	logger        ports.Logger
}

// NewSignatureAuth creates a new webhook signature authenticator
func NewSignatureAuth(webhookSecret string, logger ports.Logger) *SignatureAuth {
	return &SignatureAuth{
		webhookSecret: webhookSecret,
		logger:        logger,
	}
}

// Middleware wraps an HTTP handler with signature authentication. The body is
// read for verification and restored for the downstream handler.
func (s *SignatureAuth) Middleware(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		clientIP := clientIP(r)

		signature := r.Header.Get(paychangu.SignatureHeader)
		if signature == "" {
			s.logger.Warn("webhook missing signature",
				ports.String("ip", clientIP),
				ports.String("path", r.URL.Path))
			observability.RecordWebhookAuthFailure("missing_signature")
			http.Error(w, "Missing signature", http.StatusForbidden)
			return
		}

		body, err := io.ReadAll(io.LimitReader(r.Body, maxWebhookBody))
		if err != nil {
			s.logger.Error("failed to read webhook body",
				ports.String("ip", clientIP),
				ports.Err(err))
			http.Error(w, "Bad request", http.StatusBadRequest)
			return
		}
		// Restore body for downstream handlers.
		r.Body = io.NopCloser(bytes.NewBuffer(body))

		if !paychangu.VerifySignature(body, signature, s.webhookSecret) {
			s.logger.Warn("webhook signature verification failed",
				ports.String("ip", clientIP),
				ports.String("path", r.URL.Path))
			observability.RecordWebhookAuthFailure("invalid_signature")
			http.Error(w, "Invalid signature", http.StatusForbidden)
			return
		}

		s.logger.Debug("webhook authenticated",
			ports.String("ip", clientIP),
			ports.String("path", r.URL.Path))

		next(w, r)
	}
}

// clientIP extracts the client IP from the request, preferring proxy headers.
func clientIP(r *http.Request) string {
	xff := r.Header.Get("X-Forwarded-For")
	if xff != "" {
		// X-Forwarded-For can contain multiple IPs, take the first one
		ip := strings.TrimSpace(strings.Split(xff, ",")[0])
		if ip != "" {
			return ip
		}
	}

	if xri := r.Header.Get("X-Real-IP"); xri != "" {
		return xri
	}

	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
