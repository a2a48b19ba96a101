package domain

import (
	"encoding/json"
	"strings"

	"github.com/shopspring/decimal"
)

// EventType classifies an inbound gateway notification
type EventType string

const (
	EventTypePayment EventType = "payment"
	EventTypePayout  EventType = "payout"
	EventTypeUnknown EventType = "unknown"
)

// PaymentStatus represents the payment status reported by the gateway
type PaymentStatus string

const (
	PaymentStatusSuccess PaymentStatus = "success"
	PaymentStatusFailed  PaymentStatus = "failed"
	PaymentStatusPending PaymentStatus = "pending"
)

// PaymentEvent is the normalized representation of an inbound notification.
// It is built per request from the raw webhook payload and discarded after
// dispatch; only the derived ledger entry persists.
type PaymentEvent struct {
	TxRef          string
	EventType      EventType
	RawEventType   string
	Status         PaymentStatus
	Amount         decimal.Decimal
	Currency       string
	ChargeID       string
	CustomerEmail  string
	CustomerName   string
	PaymentChannel string
}

// webhookPayload mirrors the PayChangu webhook JSON body
type webhookPayload struct {
	EventType string          `json:"event_type"`
	Status    string          `json:"status"`
	Reference string          `json:"reference"`
	TxRef     string          `json:"tx_ref"`
	Amount    decimal.Decimal `json:"amount"`
	Currency  string          `json:"currency"`
	ChargeID  string          `json:"charge_id"`
	Customer  struct {
		Email     string `json:"email"`
		FirstName string `json:"first_name"`
		LastName  string `json:"last_name"`
	} `json:"customer"`
	Authorization struct {
		Channel string `json:"channel"`
	} `json:"authorization"`
}

// ParsePaymentEvent decodes a raw webhook body into a PaymentEvent.
// The body must already be authenticated; parsing never trusts the payload
// for anything beyond classification.
func ParsePaymentEvent(body []byte) (*PaymentEvent, error) {
	var p webhookPayload
	if err := json.Unmarshal(body, &p); err != nil {
		return nil, WrapError(ErrorCodeMalformedPayload, "decode webhook payload", err)
	}

	// The gateway sends the reference under "reference" on charge events and
	// "tx_ref" on checkout events; "reference" wins when both are present.
	txRef := p.Reference
	if txRef == "" {
		txRef = p.TxRef
	}

	return &PaymentEvent{
		TxRef:          txRef,
		EventType:      ClassifyEventType(p.EventType),
		RawEventType:   p.EventType,
		Status:         NormalizeStatus(p.Status),
		Amount:         p.Amount,
		Currency:       p.Currency,
		ChargeID:       p.ChargeID,
		CustomerEmail:  p.Customer.Email,
		CustomerName:   strings.TrimSpace(p.Customer.FirstName + " " + p.Customer.LastName),
		PaymentChannel: p.Authorization.Channel,
	}, nil
}

// ClassifyEventType maps a raw gateway event type string to an EventType
func ClassifyEventType(raw string) EventType {
	switch raw {
	case "api.charge.payment", "checkout.payment":
		return EventTypePayment
	case "api.payout":
		return EventTypePayout
	default:
		return EventTypeUnknown
	}
}

// NormalizeStatus maps the gateway's status spellings onto PaymentStatus.
// Anything unrecognized is treated as pending, never as success.
func NormalizeStatus(raw string) PaymentStatus {
	switch strings.ToLower(raw) {
	case "success", "successful":
		return PaymentStatusSuccess
	case "failed", "failure":
		return PaymentStatusFailed
	default:
		return PaymentStatusPending
	}
}

// VerificationResult is the authoritative outcome of re-checking a tx_ref
// against the gateway's verification endpoint. It is the source of truth over
// any client-supplied or webhook-supplied status.
type VerificationResult struct {
	TxRef          string
	Status         PaymentStatus
	Amount         decimal.Decimal
	Currency       string
	CustomerEmail  string
	PaymentChannel string
	Raw            json.RawMessage
}
