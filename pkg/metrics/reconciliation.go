package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// ReconciliationMetrics records reconciliation outcomes for alerting.
type ReconciliationMetrics struct {
	claims         *prometheus.CounterVec
	ledgerFailures prometheus.Counter
	degradedClears prometheus.Counter
	effectFailures *prometheus.CounterVec
}

// NewReconciliationMetrics registers the reconciliation metrics on the provided registerer.
func NewReconciliationMetrics(reg prometheus.Registerer) *ReconciliationMetrics {
	if reg == nil {
		return &ReconciliationMetrics{}
	}
	claims := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "reconciliation_claims_total",
		Help: "Order claim attempts by outcome.",
	}, []string{"outcome"})
	ledgerFailures := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "payment_record_persistence_failures_total",
		Help: "Payment record writes that failed after the order was claimed.",
	})
	degradedClears := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "cart_full_clear_fallbacks_total",
		Help: "Full-cart clears triggered by farm resolution failures.",
	})
	effectFailures := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "post_confirmation_effect_failures_total",
		Help: "Post-confirmation effects that failed and were dropped.",
	}, []string{"effect"})
	reg.MustRegister(claims, ledgerFailures, degradedClears, effectFailures)
	return &ReconciliationMetrics{
		claims:         claims,
		ledgerFailures: ledgerFailures,
		degradedClears: degradedClears,
		effectFailures: effectFailures,
	}
}

// IncClaim increments the claim counter for the given outcome.
func (m *ReconciliationMetrics) IncClaim(outcome string) {
	if m == nil || m.claims == nil {
		return
	}
	if outcome == "" {
		outcome = "unknown"
	}
	m.claims.WithLabelValues(outcome).Inc()
}

// IncLedgerFailure counts a payment record write that needs out-of-band remediation.
func (m *ReconciliationMetrics) IncLedgerFailure() {
	if m == nil || m.ledgerFailures == nil {
		return
	}
	m.ledgerFailures.Inc()
}

// IncDegradedClear counts a full-cart clear fallback.
func (m *ReconciliationMetrics) IncDegradedClear() {
	if m == nil || m.degradedClears == nil {
		return
	}
	m.degradedClears.Inc()
}

// IncEffectFailure counts a dropped post-confirmation effect.
func (m *ReconciliationMetrics) IncEffectFailure(effect string) {
	if m == nil || m.effectFailures == nil {
		return
	}
	if effect == "" {
		effect = "unknown"
	}
	m.effectFailures.WithLabelValues(effect).Inc()
}
