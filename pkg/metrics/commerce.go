package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// CommerceMetrics tracks stock allocation, checkout and refund outcomes.
type CommerceMetrics struct {
	allocations        *prometheus.CounterVec
	allocationDuration prometheus.Histogram
	checkouts          *prometheus.CounterVec
	refunds            *prometheus.CounterVec
}

// NewCommerceMetrics registers the commerce metrics on the provided registerer.
// A nil registerer yields a no-op recorder.
func NewCommerceMetrics(reg prometheus.Registerer) *CommerceMetrics {
	if reg == nil {
		return &CommerceMetrics{}
	}
	allocations := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "moda_stock_allocations_total",
		Help: "Stock allocation attempts by outcome.",
	}, []string{"outcome"})
	allocationDuration := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "moda_stock_allocation_duration_seconds",
		Help:    "Time spent allocating and decrementing stock for one size.",
		Buckets: prometheus.DefBuckets,
	})
	checkouts := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "moda_checkout_outcomes_total",
		Help: "Checkout callback outcomes by gateway.",
	}, []string{"gateway", "outcome"})
	refunds := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "moda_refund_outcomes_total",
		Help: "Gateway refund outcomes by gateway.",
	}, []string{"gateway", "outcome"})
	reg.MustRegister(allocations, allocationDuration, checkouts, refunds)
	return &CommerceMetrics{
		allocations:        allocations,
		allocationDuration: allocationDuration,
		checkouts:          checkouts,
		refunds:            refunds,
	}
}

func (m *CommerceMetrics) ObserveAllocation(outcome string, duration time.Duration) {
	if m == nil || m.allocations == nil {
		return
	}
	m.allocations.WithLabelValues(normalizeLabel(outcome)).Inc()
	m.allocationDuration.Observe(duration.Seconds())
}

func (m *CommerceMetrics) IncCheckout(gateway, outcome string) {
	if m == nil || m.checkouts == nil {
		return
	}
	m.checkouts.WithLabelValues(normalizeLabel(gateway), normalizeLabel(outcome)).Inc()
}

func (m *CommerceMetrics) IncRefund(gateway, outcome string) {
	if m == nil || m.refunds == nil {
		return
	}
	m.refunds.WithLabelValues(normalizeLabel(gateway), normalizeLabel(outcome)).Inc()
}
