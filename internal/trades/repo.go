package trades

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/moda-commerce/moda-backend/internal/repo"
	"github.com/moda-commerce/moda-backend/pkg/db/models"
	"github.com/moda-commerce/moda-backend/pkg/enums"
	"github.com/moda-commerce/moda-backend/pkg/pagination"
)

// ListFilter narrows ListMyTrades. Nil fields match everything.
type ListFilter struct {
	Role   *enums.TradeRole
	Status *enums.TradeStatus
}

type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, trade *models.Trade) error
	FindByID(ctx context.Context, id uuid.UUID) (*models.Trade, error)
	// Transition applies fields only while the trade is still in from.
	Transition(ctx context.Context, id uuid.UUID, from enums.TradeStatus, fields map[string]any) (bool, error)
	ListByUser(ctx context.Context, userID uuid.UUID, filter ListFilter, cursor *pagination.Cursor, limit int) ([]models.Trade, error)
	ListDue(ctx context.Context, now time.Time, limit int) ([]models.Trade, error)

	CreateMessage(ctx context.Context, msg *models.TradeMessage) error
	ListMessages(ctx context.Context, tradeID uuid.UUID) ([]models.TradeMessage, error)

	FindReview(ctx context.Context, tradeID, reviewerID uuid.UUID) (*models.Review, error)
	CreateReview(ctx context.Context, review *models.Review) error
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

func (r *repository) Create(ctx context.Context, trade *models.Trade) error {
	return r.DB(ctx).Create(trade).Error
}

func (r *repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Trade, error) {
	var trade models.Trade
	if err := r.DB(ctx).Where("id = ?", id).First(&trade).Error; err != nil {
		return nil, err
	}
	return &trade, nil
}

func (r *repository) Transition(ctx context.Context, id uuid.UUID, from enums.TradeStatus, fields map[string]any) (bool, error) {
	res := r.DB(ctx).
		Model(&models.Trade{}).
		Where("id = ? AND status = ?", id, from).
		Updates(fields)
	return res.RowsAffected == 1, res.Error
}

func (r *repository) ListByUser(ctx context.Context, userID uuid.UUID, filter ListFilter, cursor *pagination.Cursor, limit int) ([]models.Trade, error) {
	q := r.DB(ctx).Scopes(pagination.Keyset(cursor, limit))

	switch {
	case filter.Role == nil:
		q = q.Where("(buyer_id = ? OR seller_id = ?)", userID, userID)
	case *filter.Role == enums.RoleBuyer:
		q = q.Where("buyer_id = ?", userID)
	default:
		q = q.Where("seller_id = ?", userID)
	}
	if filter.Status != nil {
		q = q.Where("status = ?", *filter.Status)
	}

	var rows []models.Trade
	err := q.Find(&rows).Error
	return rows, err
}

func (r *repository) ListDue(ctx context.Context, now time.Time, limit int) ([]models.Trade, error) {
	var rows []models.Trade
	err := r.DB(ctx).
		Where("status = ? AND auto_complete_at <= ?", enums.TradeDelivered, now).
		Order("auto_complete_at ASC").
		Limit(limit).
		Find(&rows).Error
	return rows, err
}

func (r *repository) CreateMessage(ctx context.Context, msg *models.TradeMessage) error {
	return r.DB(ctx).Create(msg).Error
}

func (r *repository) ListMessages(ctx context.Context, tradeID uuid.UUID) ([]models.TradeMessage, error) {
	var rows []models.TradeMessage
	err := r.DB(ctx).
		Where("trade_id = ?", tradeID).
		Order("created_at ASC").
		Order("id ASC").
		Find(&rows).Error
	return rows, err
}

func (r *repository) FindReview(ctx context.Context, tradeID, reviewerID uuid.UUID) (*models.Review, error) {
	var review models.Review
	err := r.DB(ctx).
		Where("trade_id = ? AND reviewer_id = ?", tradeID, reviewerID).
		Limit(1).
		Find(&review).Error
	if err != nil {
		return nil, err
	}
	if review.ID == uuid.Nil {
		return nil, nil
	}
	return &review, nil
}

func (r *repository) CreateReview(ctx context.Context, review *models.Review) error {
	return r.DB(ctx).Create(review).Error
}
