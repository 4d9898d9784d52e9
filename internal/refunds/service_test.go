package refunds

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/moda-commerce/moda-backend/internal/payments"
	"github.com/moda-commerce/moda-backend/internal/testdb"
	"github.com/moda-commerce/moda-backend/pkg/db/models"
	"github.com/moda-commerce/moda-backend/pkg/enums"
	"github.com/moda-commerce/moda-backend/pkg/metrics"
)

type scriptedGateway struct {
	results []error
	calls   []payments.RefundRequest
}

func (g *scriptedGateway) Name() enums.PaymentGateway { return enums.GatewayVNPay }

func (g *scriptedGateway) CreatePayment(context.Context, payments.CreateRequest) (*payments.CreateResult, error) {
	return nil, errors.New("not used")
}

func (g *scriptedGateway) Refund(_ context.Context, req payments.RefundRequest) (*payments.RefundResult, error) {
	g.calls = append(g.calls, req)
	idx := len(g.calls) - 1
	if idx < len(g.results) && g.results[idx] != nil {
		return nil, g.results[idx]
	}
	return &payments.RefundResult{Reference: "RF-1"}, nil
}

func seedPayment(t *testing.T, conn *gorm.DB) *models.Payment {
	t.Helper()
	transNo := "14000001"
	p := &models.Payment{
		OrderRef:             "ORD-" + uuid.NewString()[:8],
		CartID:               uuid.New(),
		UserID:               uuid.New(),
		Gateway:              enums.GatewayVNPay,
		Amount:               300_000,
		Status:               enums.PaymentStatusRefundProcessing,
		GatewayTransactionNo: &transNo,
		Address:              "1 Le Loi",
	}
	require.NoError(t, conn.Create(p).Error)
	return p
}

func newRefundService(t *testing.T, conn *gorm.DB, gw payments.Gateway, m *metrics.CommerceMetrics) Service {
	t.Helper()
	svc, err := NewService(NewRepository(conn), payments.NewRegistry(gw), Options{
		MaxRetries: 2,
		BaseDelay:  time.Millisecond,
		Metrics:    m,
	})
	require.NoError(t, err)
	return svc
}

func TestExecuteRetriesTransientFailures(t *testing.T) {
	conn := testdb.Open(t)
	payment := seedPayment(t, conn)
	gw := &scriptedGateway{results: []error{payments.Unavailable(enums.GatewayVNPay, errors.New("timeout"))}}
	reg := prometheus.NewRegistry()
	svc := newRefundService(t, conn, gw, metrics.NewCommerceMetrics(reg))

	refund, err := svc.Open(context.Background(), conn, payment, "stock depleted")
	require.NoError(t, err)
	require.Equal(t, enums.RefundProcessing, refund.Status)

	refund, err = svc.Execute(context.Background(), refund, payment)
	require.NoError(t, err)
	require.Equal(t, enums.RefundCompleted, refund.Status)
	require.Equal(t, 2, refund.Attempts)
	require.Nil(t, refund.LastError)
	require.Equal(t, "RF-1", *refund.GatewayReference)
	require.Len(t, gw.calls, 2)
	require.Equal(t, 1, gw.calls[0].Attempt)
	require.Equal(t, 2, gw.calls[1].Attempt)
	require.Equal(t, "14000001", gw.calls[0].TransactionNo)

	require.Equal(t, 1.0, refundCount(t, reg, "completed"))
}

func TestExecuteStopsOnDecline(t *testing.T) {
	conn := testdb.Open(t)
	payment := seedPayment(t, conn)
	gw := &scriptedGateway{results: []error{payments.Declined(enums.GatewayVNPay, "94", "duplicate")}}
	svc := newRefundService(t, conn, gw, nil)

	refund, err := svc.Open(context.Background(), conn, payment, "stock depleted")
	require.NoError(t, err)
	refund, err = svc.Execute(context.Background(), refund, payment)
	require.NoError(t, err)
	require.Equal(t, enums.RefundFailed, refund.Status)
	require.Len(t, gw.calls, 1)
	require.NotNil(t, refund.LastError)
	require.Contains(t, *refund.LastError, "94")
}

func TestExecuteGivesUpAfterRetries(t *testing.T) {
	conn := testdb.Open(t)
	payment := seedPayment(t, conn)
	transient := payments.Unavailable(enums.GatewayVNPay, errors.New("timeout"))
	gw := &scriptedGateway{results: []error{transient, transient, transient, transient}}
	svc := newRefundService(t, conn, gw, nil)

	refund, err := svc.Open(context.Background(), conn, payment, "stock depleted")
	require.NoError(t, err)
	refund, err = svc.Execute(context.Background(), refund, payment)
	require.NoError(t, err)
	require.Equal(t, enums.RefundFailed, refund.Status)
	require.Len(t, gw.calls, 3)
	require.Equal(t, 3, refund.Attempts)
}

func refundCount(t *testing.T, reg *prometheus.Registry, outcome string) float64 {
	t.Helper()
	families, err := reg.Gather()
	require.NoError(t, err)
	for _, mf := range families {
		if mf.GetName() != "moda_refund_outcomes_total" {
			continue
		}
		for _, m := range mf.GetMetric() {
			if hasLabel(m.GetLabel(), "outcome", outcome) {
				return m.GetCounter().GetValue()
			}
		}
	}
	return 0
}

func hasLabel(labels []*dto.LabelPair, name, value string) bool {
	for _, l := range labels {
		if l.GetName() == name && l.GetValue() == value {
			return true
		}
	}
	return false
}
