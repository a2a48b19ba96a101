package paychangu_test

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/prosblk/paychangu-service/internal/adapters/paychangu"
	"github.com/prosblk/paychangu-service/internal/domain"
	"github.com/prosblk/paychangu-service/internal/domain/ports"
)

// MockHTTPClient mocks the HTTP client port
type MockHTTPClient struct {
	mock.Mock
}

func (m *MockHTTPClient) Do(req *http.Request) (*http.Response, error) {
	args := m.Called(req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*http.Response), args.Error(1)
}

// nopLogger satisfies the Logger port without output
type nopLogger struct{}

func (nopLogger) Info(string, ...ports.Field)  {}
func (nopLogger) Error(string, ...ports.Field) {}
func (nopLogger) Warn(string, ...ports.Field)  {}
func (nopLogger) Debug(string, ...ports.Field) {}

func jsonResponse(status int, body string) *http.Response {
	return &http.Response{
		StatusCode: status,
		Body:       io.NopCloser(bytes.NewBufferString(body)),
		Header:     http.Header{"Content-Type": []string{"application/json"}},
	}
}

func TestInitiatePayment(t *testing.T) {
	req := &ports.InitiatePaymentRequest{
		TxRef:       "TXN-1700000000-abc123",
		Amount:      decimal.RequireFromString("1000"),
		Currency:    "MWK",
		Email:       "jane@example.com",
		CallbackURL: "https://merchant.example.com/callback",
		ReturnURL:   "https://merchant.example.com/failed",
	}

	t.Run("Success", func(t *testing.T) {
		httpClient := new(MockHTTPClient)
		client := paychangu.NewClient("https://api.paychangu.com", "pub_test", "sec_test", httpClient, nopLogger{})

		httpClient.On("Do", mock.MatchedBy(func(r *http.Request) bool {
			return r.Method == http.MethodPost &&
				r.URL.String() == "https://api.paychangu.com/payment" &&
				r.Header.Get("Authorization") == "Bearer sec_test"
		})).Return(jsonResponse(http.StatusOK,
			`{"status":"success","data":{"checkout_url":"https://checkout.paychangu.com/abc"}}`), nil)

		resp, err := client.InitiatePayment(context.Background(), req)
		require.NoError(t, err)
		assert.Equal(t, "https://checkout.paychangu.com/abc", resp.CheckoutURL)
		assert.Equal(t, req.TxRef, resp.TxRef)
		httpClient.AssertExpectations(t)
	})

	t.Run("GatewayRejects", func(t *testing.T) {
		httpClient := new(MockHTTPClient)
		client := paychangu.NewClient("https://api.paychangu.com", "pub_test", "sec_test", httpClient, nopLogger{})

		httpClient.On("Do", mock.Anything).
			Return(jsonResponse(http.StatusUnprocessableEntity, `{"status":"failed","message":"invalid currency"}`), nil)

		_, err := client.InitiatePayment(context.Background(), req)
		require.Error(t, err)
		assert.Equal(t, domain.ErrorCodeGatewayError, domain.GetErrorCode(err))
	})

	t.Run("MissingCheckoutURL", func(t *testing.T) {
		httpClient := new(MockHTTPClient)
		client := paychangu.NewClient("https://api.paychangu.com", "pub_test", "sec_test", httpClient, nopLogger{})

		httpClient.On("Do", mock.Anything).
			Return(jsonResponse(http.StatusOK, `{"status":"success","data":{}}`), nil)

		_, err := client.InitiatePayment(context.Background(), req)
		require.Error(t, err)
		assert.Equal(t, domain.ErrorCodeGatewayError, domain.GetErrorCode(err))
	})

	t.Run("Timeout", func(t *testing.T) {
		httpClient := new(MockHTTPClient)
		client := paychangu.NewClient("https://api.paychangu.com", "pub_test", "sec_test", httpClient, nopLogger{})

		httpClient.On("Do", mock.Anything).Return(nil, context.DeadlineExceeded)

		_, err := client.InitiatePayment(context.Background(), req)
		require.Error(t, err)
		assert.Equal(t, domain.ErrorCodeGatewayTimeout, domain.GetErrorCode(err))
	})
}

func TestVerifyTransaction(t *testing.T) {
	t.Run("Success", func(t *testing.T) {
		httpClient := new(MockHTTPClient)
		client := paychangu.NewClient("https://api.paychangu.com", "pub_test", "sec_test", httpClient, nopLogger{})

		httpClient.On("Do", mock.MatchedBy(func(r *http.Request) bool {
			return r.Method == http.MethodGet &&
				r.URL.String() == "https://api.paychangu.com/verify-payment/TXN-1" &&
				r.Header.Get("Authorization") == "Bearer sec_test"
		})).Return(jsonResponse(http.StatusOK, `{
			"status":"success",
			"data":{
				"tx_ref":"TXN-1","status":"success","amount":1000,"currency":"MWK",
				"customer":{"email":"jane@example.com"},
				"authorization":{"channel":"Card"}
			}
		}`), nil)

		result, err := client.VerifyTransaction(context.Background(), "TXN-1")
		require.NoError(t, err)
		assert.Equal(t, "TXN-1", result.TxRef)
		assert.Equal(t, domain.PaymentStatusSuccess, result.Status)
		assert.True(t, result.Amount.Equal(decimal.NewFromInt(1000)))
		assert.Equal(t, "MWK", result.Currency)
		assert.Equal(t, "Card", result.PaymentChannel)
		assert.NotEmpty(t, result.Raw)
	})

	t.Run("GatewayStatusNormalized", func(t *testing.T) {
		httpClient := new(MockHTTPClient)
		client := paychangu.NewClient("https://api.paychangu.com", "pub_test", "sec_test", httpClient, nopLogger{})

		httpClient.On("Do", mock.Anything).Return(jsonResponse(http.StatusOK,
			`{"status":"success","data":{"tx_ref":"TXN-1","status":"pending","amount":1000,"currency":"MWK"}}`), nil)

		result, err := client.VerifyTransaction(context.Background(), "TXN-1")
		require.NoError(t, err)
		assert.Equal(t, domain.PaymentStatusPending, result.Status)
	})

	t.Run("NotFound", func(t *testing.T) {
		httpClient := new(MockHTTPClient)
		client := paychangu.NewClient("https://api.paychangu.com", "pub_test", "sec_test", httpClient, nopLogger{})

		httpClient.On("Do", mock.Anything).
			Return(jsonResponse(http.StatusNotFound, `{"status":"failed","message":"not found"}`), nil)

		_, err := client.VerifyTransaction(context.Background(), "TXN-unknown")
		require.Error(t, err)
		assert.Equal(t, domain.ErrorCodeVerificationFailed, domain.GetErrorCode(err))
		assert.True(t, domain.IsVerificationError(err))
	})

	t.Run("TransportFailure", func(t *testing.T) {
		httpClient := new(MockHTTPClient)
		client := paychangu.NewClient("https://api.paychangu.com", "pub_test", "sec_test", httpClient, nopLogger{})

		httpClient.On("Do", mock.Anything).Return(nil, assert.AnError)

		_, err := client.VerifyTransaction(context.Background(), "TXN-1")
		require.Error(t, err)
		assert.Equal(t, domain.ErrorCodeVerificationUnavailable, domain.GetErrorCode(err))
	})

	t.Run("EscapesTxRef", func(t *testing.T) {
		httpClient := new(MockHTTPClient)
		client := paychangu.NewClient("https://api.paychangu.com", "pub_test", "sec_test", httpClient, nopLogger{})

		httpClient.On("Do", mock.MatchedBy(func(r *http.Request) bool {
			return r.URL.String() == "https://api.paychangu.com/verify-payment/TXN%2F..%2Fetc"
		})).Return(jsonResponse(http.StatusOK,
			`{"status":"success","data":{"status":"failed","amount":0,"currency":"MWK"}}`), nil)

		_, err := client.VerifyTransaction(context.Background(), "TXN/../etc")
		require.NoError(t, err)
		httpClient.AssertExpectations(t)
	})
}
