package domain_test

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/prosblk/paychangu-service/internal/domain"
)

func TestParsePaymentEvent(t *testing.T) {
	t.Run("ChargeEvent", func(t *testing.T) {
		body := []byte(`{
			"event_type": "api.charge.payment",
			"status": "success",
			"reference": "TXN-1700000000-abc123",
			"amount": 1500.50,
			"currency": "MWK",
			"charge_id": "chg_001",
			"customer": {"email": "jane@example.com", "first_name": "Jane", "last_name": "Banda"},
			"authorization": {"channel": "Mobile Money"}
		}`)

		event, err := domain.ParsePaymentEvent(body)
		require.NoError(t, err)

		assert.Equal(t, "TXN-1700000000-abc123", event.TxRef)
		assert.Equal(t, domain.EventTypePayment, event.EventType)
		assert.Equal(t, domain.PaymentStatusSuccess, event.Status)
		assert.True(t, event.Amount.Equal(decimal.RequireFromString("1500.50")))
		assert.Equal(t, "MWK", event.Currency)
		assert.Equal(t, "chg_001", event.ChargeID)
		assert.Equal(t, "jane@example.com", event.CustomerEmail)
		assert.Equal(t, "Jane Banda", event.CustomerName)
		assert.Equal(t, "Mobile Money", event.PaymentChannel)
	})

	t.Run("ReferenceWinsOverTxRef", func(t *testing.T) {
		body := []byte(`{"event_type": "api.charge.payment", "status": "success", "reference": "TXN-A", "tx_ref": "TXN-B"}`)

		event, err := domain.ParsePaymentEvent(body)
		require.NoError(t, err)
		assert.Equal(t, "TXN-A", event.TxRef)
	})

	t.Run("TxRefFallback", func(t *testing.T) {
		body := []byte(`{"event_type": "checkout.payment", "status": "success", "tx_ref": "TXN-B"}`)

		event, err := domain.ParsePaymentEvent(body)
		require.NoError(t, err)
		assert.Equal(t, "TXN-B", event.TxRef)
	})

	t.Run("MalformedJSON", func(t *testing.T) {
		_, err := domain.ParsePaymentEvent([]byte(`{not json`))
		require.Error(t, err)
		assert.Equal(t, domain.ErrorCodeMalformedPayload, domain.GetErrorCode(err))
	})

	t.Run("UnknownEventType", func(t *testing.T) {
		body := []byte(`{"event_type": "api.refund", "status": "success", "tx_ref": "TXN-C"}`)

		event, err := domain.ParsePaymentEvent(body)
		require.NoError(t, err)
		assert.Equal(t, domain.EventTypeUnknown, event.EventType)
		assert.Equal(t, "api.refund", event.RawEventType)
	})
}

func TestClassifyEventType(t *testing.T) {
	assert.Equal(t, domain.EventTypePayment, domain.ClassifyEventType("api.charge.payment"))
	assert.Equal(t, domain.EventTypePayment, domain.ClassifyEventType("checkout.payment"))
	assert.Equal(t, domain.EventTypePayout, domain.ClassifyEventType("api.payout"))
	assert.Equal(t, domain.EventTypeUnknown, domain.ClassifyEventType("api.refund"))
	assert.Equal(t, domain.EventTypeUnknown, domain.ClassifyEventType(""))
}

func TestNormalizeStatus(t *testing.T) {
	assert.Equal(t, domain.PaymentStatusSuccess, domain.NormalizeStatus("success"))
	assert.Equal(t, domain.PaymentStatusSuccess, domain.NormalizeStatus("Successful"))
	assert.Equal(t, domain.PaymentStatusFailed, domain.NormalizeStatus("failed"))
	assert.Equal(t, domain.PaymentStatusFailed, domain.NormalizeStatus("failure"))

	// Anything unrecognized must not map to success.
	assert.Equal(t, domain.PaymentStatusPending, domain.NormalizeStatus("pending"))
	assert.Equal(t, domain.PaymentStatusPending, domain.NormalizeStatus("garbage"))
}
