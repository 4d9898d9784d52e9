package checkout

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/moda-commerce/moda-backend/internal/repo"
	"github.com/moda-commerce/moda-backend/pkg/db/models"
	"github.com/moda-commerce/moda-backend/pkg/enums"
)

// Repository persists payments and the orders they produce.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	CreatePayment(ctx context.Context, payment *models.Payment) error
	FindPaymentByID(ctx context.Context, id uuid.UUID) (*models.Payment, error)
	FindPaymentByOrderRef(ctx context.Context, orderRef string) (*models.Payment, error)
	// TransitionPayment applies fields and the new status only if the payment is still in from.
	TransitionPayment(ctx context.Context, id uuid.UUID, from, to enums.PaymentStatus, fields map[string]any) (bool, error)
	CreateTransaction(ctx context.Context, txn *models.Transaction) error
	CreateDetail(ctx context.Context, detail *models.TransactionDetail) error
	CreateShippings(ctx context.Context, rows []models.Shipping) error
	FindTransactionByPayment(ctx context.Context, paymentID uuid.UUID) (*models.Transaction, error)
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

func (r *repository) CreatePayment(ctx context.Context, payment *models.Payment) error {
	return r.DB(ctx).Create(payment).Error
}

func (r *repository) FindPaymentByID(ctx context.Context, id uuid.UUID) (*models.Payment, error) {
	var payment models.Payment
	if err := r.DB(ctx).Where("id = ?", id).First(&payment).Error; err != nil {
		return nil, err
	}
	return &payment, nil
}

func (r *repository) FindPaymentByOrderRef(ctx context.Context, orderRef string) (*models.Payment, error) {
	var payment models.Payment
	if err := r.DB(ctx).Where("order_ref = ?", orderRef).First(&payment).Error; err != nil {
		return nil, err
	}
	return &payment, nil
}

func (r *repository) TransitionPayment(ctx context.Context, id uuid.UUID, from, to enums.PaymentStatus, fields map[string]any) (bool, error) {
	updates := map[string]any{"status": to}
	for k, v := range fields {
		updates[k] = v
	}
	res := r.DB(ctx).
		Model(&models.Payment{}).
		Where("id = ? AND status = ?", id, from).
		Updates(updates)
	return res.RowsAffected == 1, res.Error
}

func (r *repository) CreateTransaction(ctx context.Context, txn *models.Transaction) error {
	return r.DB(ctx).Omit("Details").Create(txn).Error
}

func (r *repository) CreateDetail(ctx context.Context, detail *models.TransactionDetail) error {
	return r.DB(ctx).Omit("Shippings").Create(detail).Error
}

func (r *repository) CreateShippings(ctx context.Context, rows []models.Shipping) error {
	if len(rows) == 0 {
		return nil
	}
	return r.DB(ctx).Create(&rows).Error
}

func (r *repository) FindTransactionByPayment(ctx context.Context, paymentID uuid.UUID) (*models.Transaction, error) {
	var txn models.Transaction
	err := r.DB(ctx).
		Preload("Details.Shippings").
		Where("payment_id = ?", paymentID).
		First(&txn).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &txn, nil
}
