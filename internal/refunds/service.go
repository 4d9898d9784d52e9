package refunds

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/sethvargo/go-retry"
	"gorm.io/gorm"

	"github.com/moda-commerce/moda-backend/internal/payments"
	"github.com/moda-commerce/moda-backend/pkg/db/models"
	"github.com/moda-commerce/moda-backend/pkg/enums"
	pkgerrors "github.com/moda-commerce/moda-backend/pkg/errors"
	"github.com/moda-commerce/moda-backend/pkg/logger"
	"github.com/moda-commerce/moda-backend/pkg/metrics"
)

const defaultBaseDelay = 500 * time.Millisecond

type gatewayResolver interface {
	Get(name enums.PaymentGateway) (payments.Gateway, error)
}

type Options struct {
	MaxRetries uint64
	BaseDelay  time.Duration
	Metrics    *metrics.CommerceMetrics
	Logger     *logger.Logger
}

// Service drives a refund row from PROCESSING to COMPLETED or FAILED.
type Service interface {
	// Open records a PROCESSING refund for the full payment amount inside tx.
	Open(ctx context.Context, tx *gorm.DB, payment *models.Payment, reason string) (*models.Refund, error)
	// Execute calls the gateway until it succeeds, declines, or retries run
	// out. The returned refund carries the final status; err is reserved for
	// bookkeeping failures.
	Execute(ctx context.Context, refund *models.Refund, payment *models.Payment) (*models.Refund, error)
	Latest(ctx context.Context, paymentID uuid.UUID) (*models.Refund, error)
}

type service struct {
	repo       Repository
	gateways   gatewayResolver
	maxRetries uint64
	baseDelay  time.Duration
	metrics    *metrics.CommerceMetrics
	logg       *logger.Logger
}

func NewService(repo Repository, gateways gatewayResolver, opts Options) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("refund repository required")
	}
	if gateways == nil {
		return nil, fmt.Errorf("gateway registry required")
	}
	base := opts.BaseDelay
	if base <= 0 {
		base = defaultBaseDelay
	}
	return &service{
		repo:       repo,
		gateways:   gateways,
		maxRetries: opts.MaxRetries,
		baseDelay:  base,
		metrics:    opts.Metrics,
		logg:       opts.Logger,
	}, nil
}

func (s *service) Open(ctx context.Context, tx *gorm.DB, payment *models.Payment, reason string) (*models.Refund, error) {
	refund := &models.Refund{
		PaymentID: payment.ID,
		Gateway:   payment.Gateway,
		Amount:    payment.Amount,
		Status:    enums.RefundProcessing,
		Reason:    reason,
	}
	if err := s.repo.WithTx(tx).Create(ctx, refund); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "open refund")
	}
	return refund, nil
}

func (s *service) Execute(ctx context.Context, refund *models.Refund, payment *models.Payment) (*models.Refund, error) {
	gw, err := s.gateways.Get(payment.Gateway)
	if err != nil {
		return s.fail(ctx, refund, err)
	}

	req := payments.RefundRequest{
		OrderRef: payment.OrderRef,
		Amount:   refund.Amount,
		Reason:   refund.Reason,
		PaidAt:   payment.GatewayPaidAt,
	}
	if payment.GatewayTransactionNo != nil {
		req.TransactionNo = *payment.GatewayTransactionNo
	}

	var result *payments.RefundResult
	backoff := retry.WithMaxRetries(s.maxRetries, retry.NewExponential(s.baseDelay))
	err = retry.Do(ctx, backoff, func(ctx context.Context) error {
		req.Attempt++
		res, callErr := gw.Refund(ctx, req)
		var lastErr *string
		if callErr != nil {
			msg := callErr.Error()
			lastErr = &msg
		}
		if recErr := s.repo.RecordAttempt(ctx, refund.ID, lastErr); recErr != nil && s.logg != nil {
			s.logg.Error(ctx, "record refund attempt", recErr)
		}
		if callErr != nil {
			if typed := pkgerrors.As(callErr); typed != nil && pkgerrors.MetadataFor(typed.Code()).Retryable {
				return retry.RetryableError(callErr)
			}
			return callErr
		}
		result = res
		return nil
	})
	if err != nil {
		return s.fail(ctx, refund, err)
	}

	if err := s.repo.Complete(ctx, refund.ID, result.Reference); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "complete refund")
	}
	s.metrics.IncRefund(string(payment.Gateway), "completed")
	return s.reload(ctx, refund.ID)
}

func (s *service) Latest(ctx context.Context, paymentID uuid.UUID) (*models.Refund, error) {
	refund, err := s.repo.LatestForPayment(ctx, paymentID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load refund")
	}
	return refund, nil
}

func (s *service) fail(ctx context.Context, refund *models.Refund, cause error) (*models.Refund, error) {
	if s.logg != nil {
		ctx = s.logg.WithPaymentID(ctx, refund.PaymentID.String())
		s.logg.Error(ctx, "refund failed", cause)
	}
	if err := s.repo.Fail(ctx, refund.ID, cause.Error()); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "fail refund")
	}
	s.metrics.IncRefund(string(refund.Gateway), "failed")
	return s.reload(ctx, refund.ID)
}

func (s *service) reload(ctx context.Context, id uuid.UUID) (*models.Refund, error) {
	refund, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "reload refund")
	}
	return refund, nil
}
