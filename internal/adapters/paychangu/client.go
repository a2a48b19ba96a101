package paychangu

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"

	"github.com/shopspring/decimal"

	"github.com/prosblk/paychangu-service/internal/domain"
	"github.com/prosblk/paychangu-service/internal/domain/ports"
)

// Client talks to the PayChangu REST API.
// Initiation and verification are authenticated with the merchant secret key
// as a bearer credential; the public key travels inside the initiation payload.
type Client struct {
	baseURL    string
	publicKey  string
	secretKey  string
	httpClient ports.HTTPClient
	logger     ports.Logger
}

// NewClient creates a PayChangu API client
func NewClient(baseURL, publicKey, secretKey string, httpClient ports.HTTPClient, logger ports.Logger) *Client {
	return &Client{
		baseURL:    baseURL,
		publicKey:  publicKey,
		secretKey:  secretKey,
		httpClient: httpClient,
		logger:     logger,
	}
}

type initiateRequestBody struct {
	PublicKey   string            `json:"public_key"`
	TxRef       string            `json:"tx_ref"`
	Amount      decimal.Decimal   `json:"amount"`
	Currency    string            `json:"currency"`
	Email       string            `json:"email"`
	FirstName   string            `json:"first_name"`
	LastName    string            `json:"last_name"`
	Title       string            `json:"title,omitempty"`
	Description string            `json:"description,omitempty"`
	CallbackURL string            `json:"callback_url"`
	ReturnURL   string            `json:"return_url"`
	Meta        map[string]string `json:"meta,omitempty"`
}

type initiateResponseBody struct {
	Status  string `json:"status"`
	Message string `json:"message"`
	Data    struct {
		CheckoutURL string `json:"checkout_url"`
	} `json:"data"`
}

type verifyResponseBody struct {
	Status  string `json:"status"`
	Message string `json:"message"`
	Data    struct {
		TxRef    string          `json:"tx_ref"`
		Status   string          `json:"status"`
		Amount   decimal.Decimal `json:"amount"`
		Currency string          `json:"currency"`
		Customer struct {
			Email string `json:"email"`
		} `json:"customer"`
		Authorization struct {
			Channel string `json:"channel"`
		} `json:"authorization"`
	} `json:"data"`
}

// InitiatePayment calls the gateway's payment-creation endpoint and returns
// the hosted checkout URL to redirect the browser to.
func (c *Client) InitiatePayment(ctx context.Context, req *ports.InitiatePaymentRequest) (*ports.InitiatePaymentResponse, error) {
	body := initiateRequestBody{
		PublicKey:   c.publicKey,
		TxRef:       req.TxRef,
		Amount:      req.Amount,
		Currency:    req.Currency,
		Email:       req.Email,
		FirstName:   req.FirstName,
		LastName:    req.LastName,
		Title:       req.Title,
		Description: req.Description,
		CallbackURL: req.CallbackURL,
		ReturnURL:   req.ReturnURL,
		Meta:        req.Meta,
	}

	payload, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("marshal initiation payload: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/payment", bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("build initiation request: %w", err)
	}
	c.setHeaders(httpReq)
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, c.transportError("payment initiation", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("read initiation response: %w", err)
	}

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		c.logger.Warn("payment initiation rejected",
			ports.String("tx_ref", req.TxRef),
			ports.Int("status_code", resp.StatusCode))
		return nil, domain.NewDomainError(domain.ErrorCodeGatewayError, "payment initiation failed").
			WithDetail("status_code", resp.StatusCode).
			WithDetail("body", string(respBody))
	}

	var parsed initiateResponseBody
	if err := json.Unmarshal(respBody, &parsed); err != nil {
		return nil, domain.WrapError(domain.ErrorCodeGatewayError, "decode initiation response", err)
	}
	if parsed.Data.CheckoutURL == "" {
		return nil, domain.NewDomainError(domain.ErrorCodeGatewayError, "initiation response missing checkout_url")
	}

	c.logger.Info("payment initiated",
		ports.String("tx_ref", req.TxRef),
		ports.String("currency", req.Currency),
		ports.String("amount", req.Amount.String()))

	return &ports.InitiatePaymentResponse{
		TxRef:       req.TxRef,
		CheckoutURL: parsed.Data.CheckoutURL,
	}, nil
}

// VerifyTransaction re-checks a tx_ref against the gateway's authoritative
// verification endpoint. A transport failure or a non-2xx response never
// yields a success result; the caller must treat it as a verification failure.
func (c *Client) VerifyTransaction(ctx context.Context, txRef string) (*domain.VerificationResult, error) {
	endpoint := c.baseURL + "/verify-payment/" + url.PathEscape(txRef)

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("build verification request: %w", err)
	}
	c.setHeaders(httpReq)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, c.transportError("transaction verification", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, domain.WrapError(domain.ErrorCodeVerificationUnavailable, "read verification response", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		c.logger.Warn("transaction verification returned non-2xx",
			ports.String("tx_ref", txRef),
			ports.Int("status_code", resp.StatusCode))
		return nil, domain.NewDomainError(domain.ErrorCodeVerificationFailed, "verification endpoint rejected tx_ref").
			WithDetail("status_code", resp.StatusCode).
			WithDetail("tx_ref", txRef)
	}

	var parsed verifyResponseBody
	if err := json.Unmarshal(respBody, &parsed); err != nil {
		return nil, domain.WrapError(domain.ErrorCodeVerificationFailed, "decode verification response", err)
	}

	result := &domain.VerificationResult{
		TxRef:          txRef,
		Status:         domain.NormalizeStatus(parsed.Data.Status),
		Amount:         parsed.Data.Amount,
		Currency:       parsed.Data.Currency,
		CustomerEmail:  parsed.Data.Customer.Email,
		PaymentChannel: parsed.Data.Authorization.Channel,
		Raw:            json.RawMessage(respBody),
	}

	c.logger.Info("transaction verified",
		ports.String("tx_ref", txRef),
		ports.String("status", string(result.Status)),
		ports.String("currency", result.Currency))

	return result, nil
}

func (c *Client) setHeaders(req *http.Request) {
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.secretKey)
}

func (c *Client) transportError(op string, err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return domain.WrapError(domain.ErrorCodeGatewayTimeout, op+" timed out", err)
	}
	return domain.WrapError(domain.ErrorCodeVerificationUnavailable, op+" failed", err)
}
