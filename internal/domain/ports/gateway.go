package ports

import (
	"context"

	"github.com/shopspring/decimal"

	"github.com/prosblk/paychangu-service/internal/domain"
)

// InitiatePaymentRequest is the payload for the gateway's payment-creation endpoint
type InitiatePaymentRequest struct {
	TxRef       string
	Amount      decimal.Decimal
	Currency    string
	Email       string
	FirstName   string
	LastName    string
	Title       string
	Description string
	CallbackURL string
	ReturnURL   string
	Meta        map[string]string
}

// InitiatePaymentResponse carries the hosted checkout URL to redirect the browser to
type InitiatePaymentResponse struct {
	TxRef       string
	CheckoutURL string
}

// PaymentGateway is the port for the external payment gateway.
// VerifyTransaction is the authoritative status source: its result is trusted
// over any webhook- or browser-supplied status.
type PaymentGateway interface {
	InitiatePayment(ctx context.Context, req *InitiatePaymentRequest) (*InitiatePaymentResponse, error)
	VerifyTransaction(ctx context.Context, txRef string) (*domain.VerificationResult, error)
}
