package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

func TestCommerceMetricsCountsOutcomes(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewCommerceMetrics(reg)

	m.ObserveAllocation("allocated", 10*time.Millisecond)
	m.ObserveAllocation("depleted", 5*time.Millisecond)
	m.ObserveAllocation("allocated", time.Millisecond)
	m.IncCheckout("VNPAY", "COMPLETED")
	m.IncRefund("MOMO", "")

	mfs, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather metrics: %v", err)
	}

	if got, err := fetchCounterValue(mfs, "moda_stock_allocations_total", "outcome", "allocated"); err != nil {
		t.Fatalf("fetch allocations: %v", err)
	} else if got != 2 {
		t.Fatalf("expected 2 allocated, got %f", got)
	}
	if got, err := fetchCounterValue(mfs, "moda_checkout_outcomes_total", "gateway", "VNPAY"); err != nil {
		t.Fatalf("fetch checkouts: %v", err)
	} else if got != 1 {
		t.Fatalf("expected 1 checkout, got %f", got)
	}
	if got, err := fetchCounterValue(mfs, "moda_refund_outcomes_total", "outcome", "unknown"); err != nil {
		t.Fatalf("fetch refunds: %v", err)
	} else if got != 1 {
		t.Fatalf("expected empty outcome to normalize to unknown, got %f", got)
	}
}

func TestNilCommerceMetricsIsNoop(t *testing.T) {
	var m *CommerceMetrics
	m.ObserveAllocation("allocated", time.Millisecond)
	m.IncCheckout("VNPAY", "COMPLETED")
	NewCommerceMetrics(nil).IncRefund("MOMO", "REFUNDED")
}
