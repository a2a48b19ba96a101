package payment

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/prosblk/paychangu-service/internal/domain"
	"github.com/prosblk/paychangu-service/internal/domain/ports"
)

// InitiationService starts a payment: it generates a unique tx_ref, records
// the expected charge in the ledger and asks the gateway for a hosted
// checkout URL.
type InitiationService struct {
	gateway     ports.PaymentGateway
	ledger      ports.Ledger
	logger      ports.Logger
	callbackURL string
	returnURL   string
}

// NewInitiationService creates a new initiation service
func NewInitiationService(gateway ports.PaymentGateway, ledger ports.Ledger, logger ports.Logger, callbackURL, returnURL string) *InitiationService {
	return &InitiationService{
		gateway:     gateway,
		ledger:      ledger,
		logger:      logger,
		callbackURL: callbackURL,
		returnURL:   returnURL,
	}
}

// InitiateRequest describes a checkout to start
type InitiateRequest struct {
	Amount      decimal.Decimal
	Currency    string
	Email       string
	FirstName   string
	LastName    string
	Title       string
	Description string
	Meta        map[string]string
}

// NewTxRef generates a unique transaction reference. The reference doubles as
// the idempotency key, so it must never repeat across initiation attempts.
func NewTxRef() string {
	short := strings.Split(uuid.NewString(), "-")[0]
	return fmt.Sprintf("TXN-%d-%s", time.Now().Unix(), short)
}

// Initiate records the expected charge and returns the checkout URL to
// redirect the customer's browser to.
func (s *InitiationService) Initiate(ctx context.Context, req *InitiateRequest) (*ports.InitiatePaymentResponse, error) {
	if req.Amount.IsZero() || req.Amount.IsNegative() {
		return nil, domain.NewDomainError(domain.ErrorCodeValidationMissingField, "amount must be positive").
			WithDetail("amount", req.Amount.String())
	}
	if req.Currency == "" {
		return nil, domain.NewDomainError(domain.ErrorCodeValidationMissingField, "currency is required")
	}
	if req.Email == "" {
		return nil, domain.NewDomainError(domain.ErrorCodeValidationMissingField, "email is required")
	}

	txRef := NewTxRef()

	// The expected amount/currency recorded here is what the webhook and
	// callback paths validate the gateway's answer against.
	if err := s.ledger.CreateInitiated(ctx, txRef, req.Amount, req.Currency); err != nil {
		return nil, err
	}

	resp, err := s.gateway.InitiatePayment(ctx, &ports.InitiatePaymentRequest{
		TxRef:       txRef,
		Amount:      req.Amount,
		Currency:    req.Currency,
		Email:       req.Email,
		FirstName:   req.FirstName,
		LastName:    req.LastName,
		Title:       req.Title,
		Description: req.Description,
		CallbackURL: s.callbackURL,
		ReturnURL:   s.returnURL,
		Meta:        req.Meta,
	})
	if err != nil {
		s.logger.Error("payment initiation failed",
			ports.String("tx_ref", txRef),
			ports.Err(err))
		return nil, err
	}

	return resp, nil
}
