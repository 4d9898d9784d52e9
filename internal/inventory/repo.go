package inventory

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/moda-commerce/moda-backend/internal/repo"
	"github.com/moda-commerce/moda-backend/pkg/db/models"
)

// Holding is a user's total of one (item, size) across all lots.
type Holding struct {
	ItemID   uuid.UUID `json:"itemId"`
	SizeID   uuid.UUID `json:"sizeId"`
	Quantity int       `json:"quantity"`
	Lots     int       `json:"lots"`
}

type Repository interface {
	WithTx(tx *gorm.DB) Repository
	UpsertLot(ctx context.Context, lot *models.UserInventory) error
	FindLot(ctx context.Context, userID, itemID, sizeID uuid.UUID, sourceRef string) (*models.UserInventory, error)
	LotsFIFO(ctx context.Context, userID, itemID, sizeID uuid.UUID) ([]models.UserInventory, error)
	ReduceLot(ctx context.Context, lotID uuid.UUID, qty int) (bool, error)
	DeleteLot(ctx context.Context, lotID uuid.UUID, expectedQty int) (bool, error)
	Sum(ctx context.Context, userID, itemID, sizeID uuid.UUID) (int, error)
	Holdings(ctx context.Context, userID uuid.UUID) ([]Holding, error)
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

// UpsertLot merges into the lot with the same source ref. Lots without a
// source ref never conflict, since NULLs are distinct in the unique index.
func (r *repository) UpsertLot(ctx context.Context, lot *models.UserInventory) error {
	if lot.SourceRef == nil {
		return r.DB(ctx).Create(lot).Error
	}
	return r.DB(ctx).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "user_id"}, {Name: "item_id"}, {Name: "size_id"}, {Name: "source_ref"}},
			DoUpdates: clause.Assignments(map[string]any{
				"quantity":   gorm.Expr("user_inventory.quantity + excluded.quantity"),
				"updated_at": gorm.Expr("excluded.updated_at"),
			}),
		}).
		Create(lot).Error
}

func (r *repository) FindLot(ctx context.Context, userID, itemID, sizeID uuid.UUID, sourceRef string) (*models.UserInventory, error) {
	var lot models.UserInventory
	err := r.DB(ctx).
		Where("user_id = ? AND item_id = ? AND size_id = ? AND source_ref = ?", userID, itemID, sizeID, sourceRef).
		First(&lot).Error
	if err != nil {
		return nil, err
	}
	return &lot, nil
}

func (r *repository) LotsFIFO(ctx context.Context, userID, itemID, sizeID uuid.UUID) ([]models.UserInventory, error) {
	q := r.DB(ctx).
		Where("user_id = ? AND item_id = ? AND size_id = ? AND quantity > 0", userID, itemID, sizeID).
		Order("acquired_at ASC").
		Order("id ASC").
		Scopes(r.ForUpdate())
	var lots []models.UserInventory
	err := q.Find(&lots).Error
	return lots, err
}

func (r *repository) ReduceLot(ctx context.Context, lotID uuid.UUID, qty int) (bool, error) {
	res := r.DB(ctx).
		Model(&models.UserInventory{}).
		Where("id = ? AND quantity > ?", lotID, qty).
		Update("quantity", gorm.Expr("quantity - ?", qty))
	return res.RowsAffected == 1, res.Error
}

func (r *repository) DeleteLot(ctx context.Context, lotID uuid.UUID, expectedQty int) (bool, error) {
	res := r.DB(ctx).
		Where("id = ? AND quantity = ?", lotID, expectedQty).
		Delete(&models.UserInventory{})
	return res.RowsAffected == 1, res.Error
}

func (r *repository) Sum(ctx context.Context, userID, itemID, sizeID uuid.UUID) (int, error) {
	var total int
	err := r.DB(ctx).
		Model(&models.UserInventory{}).
		Select("COALESCE(SUM(quantity), 0)").
		Where("user_id = ? AND item_id = ? AND size_id = ?", userID, itemID, sizeID).
		Scan(&total).Error
	return total, err
}

func (r *repository) Holdings(ctx context.Context, userID uuid.UUID) ([]Holding, error) {
	var rows []Holding
	err := r.DB(ctx).
		Model(&models.UserInventory{}).
		Select("item_id, size_id, SUM(quantity) AS quantity, COUNT(*) AS lots").
		Where("user_id = ? AND quantity > 0", userID).
		Group("item_id, size_id").
		Order("item_id ASC").
		Order("size_id ASC").
		Scan(&rows).Error
	return rows, err
}
