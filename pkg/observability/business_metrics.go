package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Webhook intake metrics
	webhookEventsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "webhook_events_total",
		Help: "Total webhook events received, by type and processing outcome",
	}, []string{
		"event_type", // payment, payout, unknown
		"outcome",    // completed, failed, duplicate, conflict, error, rejected
	})

	webhookAuthFailuresTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "webhook_auth_failures_total",
		Help: "Webhook requests rejected before processing",
	}, []string{
		"reason", // missing_signature, invalid_signature, malformed_payload
	})

	// Gateway verification metrics
	verificationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "gateway_verifications_total",
		Help: "Server-side transaction re-verifications against the gateway",
	}, []string{
		"outcome", // success, failed, unavailable, timeout
	})

	verificationDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "gateway_verification_duration_seconds",
		Help:    "Time spent on a verify-payment call to the gateway",
		Buckets: []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
	}, []string{
		"outcome",
	})

	// Ledger metrics
	ledgerTransitionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "ledger_transitions_total",
		Help: "Terminal ledger transitions, by resulting state",
	}, []string{
		"state", // completed, failed
	})

	ledgerConflictsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "ledger_conflicts_total",
		Help: "Attempts to move a terminal ledger entry to a different terminal state",
	})

	// Revenue tracking
	paymentAmountTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "payment_amount_total",
		Help: "Sum of completed payment amounts in currency units",
	}, []string{
		"currency",
	})

	// Checkout initiation metrics
	initiationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "payment_initiations_total",
		Help: "Checkout initiations, by outcome",
	}, []string{
		"outcome", // redirected, gateway_error, validation_error
	})
)

// RecordWebhookEvent records a processed webhook event
func RecordWebhookEvent(eventType, outcome string) {
	webhookEventsTotal.WithLabelValues(eventType, outcome).Inc()
}

// RecordWebhookAuthFailure records a webhook rejected at the boundary
func RecordWebhookAuthFailure(reason string) {
	webhookAuthFailuresTotal.WithLabelValues(reason).Inc()
}

// RecordVerification records a gateway re-verification attempt
func RecordVerification(outcome string, duration float64) {
	verificationsTotal.WithLabelValues(outcome).Inc()
	verificationDuration.WithLabelValues(outcome).Observe(duration)
}

// RecordLedgerTransition records a terminal state transition
func RecordLedgerTransition(state string) {
	ledgerTransitionsTotal.WithLabelValues(state).Inc()
}

// RecordLedgerConflict records a contradictory terminal transition attempt
func RecordLedgerConflict() {
	ledgerConflictsTotal.Inc()
}

// RecordPaymentAmount adds a completed payment to the revenue counter.
// Success rate is derived in PromQL from ledger_transitions_total.
func RecordPaymentAmount(currency string, amount float64) {
	paymentAmountTotal.WithLabelValues(currency).Add(amount)
}

// RecordInitiation records a checkout initiation attempt
func RecordInitiation(outcome string) {
	initiationsTotal.WithLabelValues(outcome).Inc()
}
