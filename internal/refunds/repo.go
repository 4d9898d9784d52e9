package refunds

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/moda-commerce/moda-backend/internal/repo"
	"github.com/moda-commerce/moda-backend/pkg/db/models"
	"github.com/moda-commerce/moda-backend/pkg/enums"
)

type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, refund *models.Refund) error
	RecordAttempt(ctx context.Context, id uuid.UUID, lastError *string) error
	Complete(ctx context.Context, id uuid.UUID, reference string) error
	Fail(ctx context.Context, id uuid.UUID, lastError string) error
	FindByID(ctx context.Context, id uuid.UUID) (*models.Refund, error)
	LatestForPayment(ctx context.Context, paymentID uuid.UUID) (*models.Refund, error)
}

type repository struct {
	repo.Base
}

func NewRepository(db *gorm.DB) Repository {
	return &repository{Base: repo.NewBase(db)}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{Base: r.Bind(tx)}
}

func (r *repository) Create(ctx context.Context, refund *models.Refund) error {
	return r.DB(ctx).Create(refund).Error
}

func (r *repository) RecordAttempt(ctx context.Context, id uuid.UUID, lastError *string) error {
	return r.DB(ctx).
		Model(&models.Refund{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"attempts":   gorm.Expr("attempts + 1"),
			"last_error": lastError,
		}).Error
}

func (r *repository) Complete(ctx context.Context, id uuid.UUID, reference string) error {
	return r.DB(ctx).
		Model(&models.Refund{}).
		Where("id = ? AND status = ?", id, enums.RefundProcessing).
		Updates(map[string]any{
			"status":            enums.RefundCompleted,
			"gateway_reference": reference,
		}).Error
}

func (r *repository) Fail(ctx context.Context, id uuid.UUID, lastError string) error {
	return r.DB(ctx).
		Model(&models.Refund{}).
		Where("id = ? AND status = ?", id, enums.RefundProcessing).
		Updates(map[string]any{
			"status":     enums.RefundFailed,
			"last_error": lastError,
		}).Error
}

func (r *repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Refund, error) {
	var refund models.Refund
	if err := r.DB(ctx).Where("id = ?", id).First(&refund).Error; err != nil {
		return nil, err
	}
	return &refund, nil
}

func (r *repository) LatestForPayment(ctx context.Context, paymentID uuid.UUID) (*models.Refund, error) {
	var refund models.Refund
	err := r.DB(ctx).
		Where("payment_id = ?", paymentID).
		Order("created_at DESC").
		Limit(1).
		Find(&refund).Error
	if err != nil {
		return nil, err
	}
	if refund.ID == uuid.Nil {
		return nil, nil
	}
	return &refund, nil
}
