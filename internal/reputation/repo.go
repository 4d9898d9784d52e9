package reputation

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/moda-commerce/moda-backend/internal/repo"
	"github.com/moda-commerce/moda-backend/pkg/db/models"
	"github.com/moda-commerce/moda-backend/pkg/enums"
)

type Repository interface {
	WithTx(tx *gorm.DB) Repository
	// CountTrades returns how many trades in status the user took part in on the given side.
	CountTrades(ctx context.Context, userID uuid.UUID, role enums.TradeRole, status enums.TradeStatus) (int, error)
	RatingTotals(ctx context.Context, userID uuid.UUID, role enums.TradeRole) (sum int64, count int64, err error)
	Upsert(ctx context.Context, rep *models.Reputation) error
	FindByUser(ctx context.Context, userID uuid.UUID) ([]models.Reputation, error)
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

func (r *repository) CountTrades(ctx context.Context, userID uuid.UUID, role enums.TradeRole, status enums.TradeStatus) (int, error) {
	column := "seller_id"
	if role == enums.RoleBuyer {
		column = "buyer_id"
	}
	var n int64
	err := r.DB(ctx).
		Model(&models.Trade{}).
		Where(column+" = ? AND status = ?", userID, status).
		Count(&n).Error
	return int(n), err
}

func (r *repository) RatingTotals(ctx context.Context, userID uuid.UUID, role enums.TradeRole) (int64, int64, error) {
	var row struct {
		Total int64
		Count int64
	}
	err := r.DB(ctx).
		Model(&models.Review{}).
		Select("COALESCE(SUM(rating), 0) AS total, COUNT(*) AS count").
		Where("reviewee_id = ? AND role = ?", userID, role).
		Scan(&row).Error
	return row.Total, row.Count, err
}

func (r *repository) Upsert(ctx context.Context, rep *models.Reputation) error {
	return r.DB(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "user_id"}, {Name: "role"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"total_trades",
			"completed_trades",
			"disputed_trades",
			"average_rating",
			"completion_rate",
			"dispute_rate",
			"updated_at",
		}),
	}).Create(rep).Error
}

func (r *repository) FindByUser(ctx context.Context, userID uuid.UUID) ([]models.Reputation, error) {
	var rows []models.Reputation
	err := r.DB(ctx).Where("user_id = ?", userID).Find(&rows).Error
	return rows, err
}
