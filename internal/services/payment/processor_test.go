package payment_test

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/prosblk/paychangu-service/internal/adapters/memory"
	"github.com/prosblk/paychangu-service/internal/domain"
	"github.com/prosblk/paychangu-service/internal/domain/ports"
	"github.com/prosblk/paychangu-service/internal/services/payment"
)

// MockGateway mocks the payment gateway port
type MockGateway struct {
	mock.Mock
}

func (m *MockGateway) InitiatePayment(ctx context.Context, req *ports.InitiatePaymentRequest) (*ports.InitiatePaymentResponse, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*ports.InitiatePaymentResponse), args.Error(1)
}

func (m *MockGateway) VerifyTransaction(ctx context.Context, txRef string) (*domain.VerificationResult, error) {
	args := m.Called(ctx, txRef)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.VerificationResult), args.Error(1)
}

// MockActions mocks the business actions port
type MockActions struct {
	mock.Mock
}

func (m *MockActions) GrantValue(ctx context.Context, event *domain.PaymentEvent) error {
	args := m.Called(ctx, event)
	return args.Error(0)
}

func (m *MockActions) NotifyFailure(ctx context.Context, event *domain.PaymentEvent) error {
	args := m.Called(ctx, event)
	return args.Error(0)
}

func (m *MockActions) RecordPayout(ctx context.Context, event *domain.PaymentEvent) error {
	args := m.Called(ctx, event)
	return args.Error(0)
}

// nopLogger satisfies the Logger port without output
type nopLogger struct{}

func (nopLogger) Info(string, ...ports.Field)  {}
func (nopLogger) Error(string, ...ports.Field) {}
func (nopLogger) Warn(string, ...ports.Field)  {}
func (nopLogger) Debug(string, ...ports.Field) {}

func successEvent(txRef string) *domain.PaymentEvent {
	return &domain.PaymentEvent{
		TxRef:        txRef,
		EventType:    domain.EventTypePayment,
		RawEventType: "api.charge.payment",
		Status:       domain.PaymentStatusSuccess,
		Amount:       decimal.NewFromInt(1000),
		Currency:     "MWK",
		ChargeID:     "chg_001",
	}
}

func TestProcessWebhookSuccess(t *testing.T) {
	ctx := context.Background()

	t.Run("CompletesAndGrantsValueOnce", func(t *testing.T) {
		ledger := memory.NewLedger()
		require.NoError(t, ledger.CreateInitiated(ctx, "TXN-1", decimal.NewFromInt(1000), "MWK"))

		actions := new(MockActions)
		actions.On("GrantValue", mock.Anything, mock.Anything).Return(nil).Once()

		processor := payment.NewProcessor(ledger, new(MockGateway), actions, nopLogger{})

		require.NoError(t, processor.ProcessWebhook(ctx, successEvent("TXN-1")))

		entry, err := ledger.Get(ctx, "TXN-1")
		require.NoError(t, err)
		assert.Equal(t, domain.LedgerStateCompleted, entry.State)
		assert.Equal(t, "chg_001", entry.ChargeID)

		// Redelivery of the same notification: acknowledged, no second grant.
		require.NoError(t, processor.ProcessWebhook(ctx, successEvent("TXN-1")))
		actions.AssertNumberOfCalls(t, "GrantValue", 1)
	})

	t.Run("AutoRegistersUnknownTxRef", func(t *testing.T) {
		ledger := memory.NewLedger()
		actions := new(MockActions)
		actions.On("GrantValue", mock.Anything, mock.Anything).Return(nil).Once()

		processor := payment.NewProcessor(ledger, new(MockGateway), actions, nopLogger{})

		require.NoError(t, processor.ProcessWebhook(ctx, successEvent("TXN-1")))

		entry, err := ledger.Get(ctx, "TXN-1")
		require.NoError(t, err)
		assert.Equal(t, domain.LedgerStateCompleted, entry.State)
		assert.True(t, entry.ExpectedAmount.Equal(decimal.NewFromInt(1000)))
		actions.AssertExpectations(t)
	})

	t.Run("AmountBelowExpectedFails", func(t *testing.T) {
		ledger := memory.NewLedger()
		require.NoError(t, ledger.CreateInitiated(ctx, "TXN-1", decimal.NewFromInt(1000), "MWK"))

		actions := new(MockActions)
		actions.On("NotifyFailure", mock.Anything, mock.Anything).Return(nil).Once()

		processor := payment.NewProcessor(ledger, new(MockGateway), actions, nopLogger{})

		event := successEvent("TXN-1")
		event.Amount = decimal.NewFromInt(999)
		require.NoError(t, processor.ProcessWebhook(ctx, event))

		entry, err := ledger.Get(ctx, "TXN-1")
		require.NoError(t, err)
		assert.Equal(t, domain.LedgerStateFailed, entry.State)
		actions.AssertNotCalled(t, "GrantValue", mock.Anything, mock.Anything)
		actions.AssertExpectations(t)
	})

	t.Run("CurrencyMismatchFails", func(t *testing.T) {
		ledger := memory.NewLedger()
		require.NoError(t, ledger.CreateInitiated(ctx, "TXN-1", decimal.NewFromInt(1000), "MWK"))

		actions := new(MockActions)
		actions.On("NotifyFailure", mock.Anything, mock.Anything).Return(nil).Once()

		processor := payment.NewProcessor(ledger, new(MockGateway), actions, nopLogger{})

		event := successEvent("TXN-1")
		event.Currency = "USD"
		require.NoError(t, processor.ProcessWebhook(ctx, event))

		entry, err := ledger.Get(ctx, "TXN-1")
		require.NoError(t, err)
		assert.Equal(t, domain.LedgerStateFailed, entry.State)
	})

	t.Run("MissingTxRef", func(t *testing.T) {
		processor := payment.NewProcessor(memory.NewLedger(), new(MockGateway), new(MockActions), nopLogger{})

		event := successEvent("")
		err := processor.ProcessWebhook(ctx, event)
		assert.ErrorIs(t, err, domain.ErrMissingTxRef)
	})
}

func TestProcessWebhookFailure(t *testing.T) {
	ctx := context.Background()

	t.Run("RecordsFailureAndNotifies", func(t *testing.T) {
		ledger := memory.NewLedger()
		require.NoError(t, ledger.CreateInitiated(ctx, "TXN-1", decimal.NewFromInt(1000), "MWK"))

		actions := new(MockActions)
		actions.On("NotifyFailure", mock.Anything, mock.Anything).Return(nil).Once()

		processor := payment.NewProcessor(ledger, new(MockGateway), actions, nopLogger{})

		event := successEvent("TXN-1")
		event.Status = domain.PaymentStatusFailed
		require.NoError(t, processor.ProcessWebhook(ctx, event))

		entry, err := ledger.Get(ctx, "TXN-1")
		require.NoError(t, err)
		assert.Equal(t, domain.LedgerStateFailed, entry.State)
		actions.AssertExpectations(t)
	})

	t.Run("FailureAfterCompletedIsConflict", func(t *testing.T) {
		ledger := memory.NewLedger()
		require.NoError(t, ledger.CreateInitiated(ctx, "TXN-1", decimal.NewFromInt(1000), "MWK"))

		actions := new(MockActions)
		actions.On("GrantValue", mock.Anything, mock.Anything).Return(nil).Once()

		processor := payment.NewProcessor(ledger, new(MockGateway), actions, nopLogger{})
		require.NoError(t, processor.ProcessWebhook(ctx, successEvent("TXN-1")))

		event := successEvent("TXN-1")
		event.Status = domain.PaymentStatusFailed
		err := processor.ProcessWebhook(ctx, event)
		require.Error(t, err)
		assert.True(t, domain.IsConflictError(err))

		// The recorded completion is untouched.
		entry, err := ledger.Get(ctx, "TXN-1")
		require.NoError(t, err)
		assert.Equal(t, domain.LedgerStateCompleted, entry.State)
	})
}

func TestProcessWebhookDispatch(t *testing.T) {
	ctx := context.Background()

	t.Run("Payout", func(t *testing.T) {
		actions := new(MockActions)
		actions.On("RecordPayout", mock.Anything, mock.Anything).Return(nil).Once()

		processor := payment.NewProcessor(memory.NewLedger(), new(MockGateway), actions, nopLogger{})

		event := &domain.PaymentEvent{
			TxRef:        "TXN-PO-1",
			EventType:    domain.EventTypePayout,
			RawEventType: "api.payout",
			Status:       domain.PaymentStatusSuccess,
			Amount:       decimal.NewFromInt(500),
			Currency:     "MWK",
		}
		require.NoError(t, processor.ProcessWebhook(ctx, event))
		actions.AssertExpectations(t)
	})

	t.Run("UnknownEventAcknowledged", func(t *testing.T) {
		actions := new(MockActions)
		processor := payment.NewProcessor(memory.NewLedger(), new(MockGateway), actions, nopLogger{})

		event := &domain.PaymentEvent{
			TxRef:        "TXN-1",
			EventType:    domain.EventTypeUnknown,
			RawEventType: "api.refund",
		}
		require.NoError(t, processor.ProcessWebhook(ctx, event))
		actions.AssertNotCalled(t, "GrantValue", mock.Anything, mock.Anything)
		actions.AssertNotCalled(t, "NotifyFailure", mock.Anything, mock.Anything)
		actions.AssertNotCalled(t, "RecordPayout", mock.Anything, mock.Anything)
	})
}

func TestProcessCallback(t *testing.T) {
	ctx := context.Background()

	verified := func(status domain.PaymentStatus, amount int64) *domain.VerificationResult {
		return &domain.VerificationResult{
			TxRef:          "TXN-1",
			Status:         status,
			Amount:         decimal.NewFromInt(amount),
			Currency:       "MWK",
			CustomerEmail:  "jane@example.com",
			PaymentChannel: "Mobile Money",
		}
	}

	t.Run("VerifiedSuccessCompletes", func(t *testing.T) {
		ledger := memory.NewLedger()
		require.NoError(t, ledger.CreateInitiated(ctx, "TXN-1", decimal.NewFromInt(1000), "MWK"))

		gateway := new(MockGateway)
		gateway.On("VerifyTransaction", mock.Anything, "TXN-1").Return(verified(domain.PaymentStatusSuccess, 1000), nil)

		actions := new(MockActions)
		actions.On("GrantValue", mock.Anything, mock.Anything).Return(nil).Once()

		processor := payment.NewProcessor(ledger, gateway, actions, nopLogger{})

		outcome, err := processor.ProcessCallback(ctx, "TXN-1")
		require.NoError(t, err)
		assert.True(t, outcome.Success)
		assert.False(t, outcome.Duplicate)
		assert.Equal(t, "MWK", outcome.Currency)

		entry, err := ledger.Get(ctx, "TXN-1")
		require.NoError(t, err)
		assert.Equal(t, domain.LedgerStateCompleted, entry.State)
		actions.AssertExpectations(t)
	})

	t.Run("VerifiedFailureRendersFailure", func(t *testing.T) {
		ledger := memory.NewLedger()
		require.NoError(t, ledger.CreateInitiated(ctx, "TXN-1", decimal.NewFromInt(1000), "MWK"))

		gateway := new(MockGateway)
		gateway.On("VerifyTransaction", mock.Anything, "TXN-1").Return(verified(domain.PaymentStatusFailed, 1000), nil)

		actions := new(MockActions)
		processor := payment.NewProcessor(ledger, gateway, actions, nopLogger{})

		outcome, err := processor.ProcessCallback(ctx, "TXN-1")
		require.NoError(t, err)
		assert.False(t, outcome.Success)
		assert.NotEmpty(t, outcome.Reason)

		entry, err := ledger.Get(ctx, "TXN-1")
		require.NoError(t, err)
		assert.Equal(t, domain.LedgerStateFailed, entry.State)
		actions.AssertNotCalled(t, "GrantValue", mock.Anything, mock.Anything)
	})

	t.Run("AmountBelowExpectedFailsDespiteSuccessStatus", func(t *testing.T) {
		ledger := memory.NewLedger()
		require.NoError(t, ledger.CreateInitiated(ctx, "TXN-1", decimal.NewFromInt(1000), "MWK"))

		gateway := new(MockGateway)
		gateway.On("VerifyTransaction", mock.Anything, "TXN-1").Return(verified(domain.PaymentStatusSuccess, 999), nil)

		processor := payment.NewProcessor(ledger, gateway, new(MockActions), nopLogger{})

		outcome, err := processor.ProcessCallback(ctx, "TXN-1")
		require.NoError(t, err)
		assert.False(t, outcome.Success)

		entry, err := ledger.Get(ctx, "TXN-1")
		require.NoError(t, err)
		assert.Equal(t, domain.LedgerStateFailed, entry.State)
	})

	t.Run("VerificationUnavailableReturnsError", func(t *testing.T) {
		gateway := new(MockGateway)
		gateway.On("VerifyTransaction", mock.Anything, "TXN-1").
			Return(nil, domain.WrapError(domain.ErrorCodeVerificationUnavailable, "verify", assert.AnError))

		processor := payment.NewProcessor(memory.NewLedger(), gateway, new(MockActions), nopLogger{})

		_, err := processor.ProcessCallback(ctx, "TXN-1")
		require.Error(t, err)
		assert.True(t, domain.IsVerificationError(err))
	})

	t.Run("RevisitAfterCompletionIsDuplicate", func(t *testing.T) {
		ledger := memory.NewLedger()
		require.NoError(t, ledger.CreateInitiated(ctx, "TXN-1", decimal.NewFromInt(1000), "MWK"))
		_, err := ledger.MarkProcessed(ctx, "TXN-1", domain.LedgerStateCompleted, "chg_001")
		require.NoError(t, err)

		gateway := new(MockGateway)
		gateway.On("VerifyTransaction", mock.Anything, "TXN-1").Return(verified(domain.PaymentStatusSuccess, 1000), nil)

		actions := new(MockActions)
		processor := payment.NewProcessor(ledger, gateway, actions, nopLogger{})

		outcome, err := processor.ProcessCallback(ctx, "TXN-1")
		require.NoError(t, err)
		assert.True(t, outcome.Success)
		assert.True(t, outcome.Duplicate)
		actions.AssertNotCalled(t, "GrantValue", mock.Anything, mock.Anything)
	})

	t.Run("AutoRegistersUnknownTxRef", func(t *testing.T) {
		ledger := memory.NewLedger()

		gateway := new(MockGateway)
		gateway.On("VerifyTransaction", mock.Anything, "TXN-1").Return(verified(domain.PaymentStatusSuccess, 1000), nil)

		actions := new(MockActions)
		actions.On("GrantValue", mock.Anything, mock.Anything).Return(nil).Once()

		processor := payment.NewProcessor(ledger, gateway, actions, nopLogger{})

		outcome, err := processor.ProcessCallback(ctx, "TXN-1")
		require.NoError(t, err)
		assert.True(t, outcome.Success)

		entry, err := ledger.Get(ctx, "TXN-1")
		require.NoError(t, err)
		assert.True(t, entry.ExpectedAmount.Equal(decimal.NewFromInt(1000)))
	})

	t.Run("MissingTxRef", func(t *testing.T) {
		processor := payment.NewProcessor(memory.NewLedger(), new(MockGateway), new(MockActions), nopLogger{})

		_, err := processor.ProcessCallback(ctx, "")
		assert.ErrorIs(t, err, domain.ErrMissingTxRef)
	})
}

func TestProcessWebhookGrantValueErrorDoesNotUnwindLedger(t *testing.T) {
	ctx := context.Background()
	ledger := memory.NewLedger()
	require.NoError(t, ledger.CreateInitiated(ctx, "TXN-1", decimal.NewFromInt(1000), "MWK"))

	actions := new(MockActions)
	actions.On("GrantValue", mock.Anything, mock.Anything).Return(assert.AnError).Once()

	processor := payment.NewProcessor(ledger, new(MockGateway), actions, nopLogger{})

	// The ledger transition was won; the action failure is logged, not returned.
	require.NoError(t, processor.ProcessWebhook(ctx, successEvent("TXN-1")))

	entry, err := ledger.Get(ctx, "TXN-1")
	require.NoError(t, err)
	assert.Equal(t, domain.LedgerStateCompleted, entry.State)
}
