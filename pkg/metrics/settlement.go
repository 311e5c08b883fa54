package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// SettlementMetrics tracks payment and checkout outcomes.
type SettlementMetrics struct {
	paymentAttempts *prometheus.CounterVec
	gatewayLatency  *prometheus.HistogramVec
	ordersCreated   prometheus.Counter
	refundsPosted   prometheus.Counter
}

// NewSettlementMetrics registers settlement metrics on the provided registerer.
func NewSettlementMetrics(reg prometheus.Registerer) *SettlementMetrics {
	if reg == nil {
		return &SettlementMetrics{}
	}
	paymentAttempts := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "payment_attempts_total",
		Help: "Payment attempts by terminal outcome.",
	}, []string{"outcome"})
	gatewayLatency := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "gateway_call_duration_seconds",
		Help:    "Latency of card gateway calls.",
		Buckets: prometheus.DefBuckets,
	}, []string{"operation"})
	ordersCreated := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "orders_created_total",
		Help: "Orders created from carts.",
	})
	refundsPosted := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "refunds_posted_total",
		Help: "Refunds issued against captured payments.",
	})
	reg.MustRegister(paymentAttempts, gatewayLatency, ordersCreated, refundsPosted)
	return &SettlementMetrics{
		paymentAttempts: paymentAttempts,
		gatewayLatency:  gatewayLatency,
		ordersCreated:   ordersCreated,
		refundsPosted:   refundsPosted,
	}
}

// IncPaymentAttempt counts a payment attempt with its outcome label.
func (s *SettlementMetrics) IncPaymentAttempt(outcome string) {
	if s == nil || s.paymentAttempts == nil {
		return
	}
	s.paymentAttempts.WithLabelValues(normalizeLabel(outcome)).Inc()
}

// ObserveGatewayCall records the latency of one gateway operation.
func (s *SettlementMetrics) ObserveGatewayCall(operation string, duration time.Duration) {
	if s == nil || s.gatewayLatency == nil {
		return
	}
	s.gatewayLatency.WithLabelValues(normalizeLabel(operation)).Observe(duration.Seconds())
}

// IncOrdersCreated counts a successful checkout.
func (s *SettlementMetrics) IncOrdersCreated() {
	if s == nil || s.ordersCreated == nil {
		return
	}
	s.ordersCreated.Inc()
}

// IncRefundsPosted counts an issued refund.
func (s *SettlementMetrics) IncRefundsPosted() {
	if s == nil || s.refundsPosted == nil {
		return
	}
	s.refundsPosted.Inc()
}
