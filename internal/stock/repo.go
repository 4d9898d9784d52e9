package stock

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/moda-commerce/moda-backend/internal/repo"
	"github.com/moda-commerce/moda-backend/pkg/db/models"
)

// Repository is the persistence surface of the stock ledger.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	SumForSize(ctx context.Context, sizeID uuid.UUID) (int, error)
	Candidates(ctx context.Context, sizeID uuid.UUID, lockRows bool) ([]models.Stock, error)
	ConditionalDecrement(ctx context.Context, stockID uuid.UUID, qty int) (bool, error)
	Increment(ctx context.Context, branchID, sizeID uuid.UUID, qty int) error
	FindStock(ctx context.Context, branchID, sizeID uuid.UUID) (*models.Stock, error)
	ListForSize(ctx context.Context, sizeID uuid.UUID) ([]models.Stock, error)
	FindBranchByCode(ctx context.Context, code string) (*models.Branch, error)
	FindBranch(ctx context.Context, id uuid.UUID) (*models.Branch, error)
	Warehouse(ctx context.Context) (*models.Branch, error)
	FindItem(ctx context.Context, itemID uuid.UUID) (*models.CatalogItem, error)
	FindSizeByLabel(ctx context.Context, itemID uuid.UUID, label string) (*models.Size, error)
	FindSize(ctx context.Context, sizeID uuid.UUID) (*models.Size, error)
}

type repository struct {
	repo.Base
}

// NewRepository binds the stock repository to db.
func NewRepository(db *gorm.DB) Repository {
	return &repository{Base: repo.NewBase(db)}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{Base: r.Bind(tx)}
}

func (r *repository) SumForSize(ctx context.Context, sizeID uuid.UUID) (int, error) {
	var total int
	err := r.DB(ctx).
		Model(&models.Stock{}).
		Select("COALESCE(SUM(quantity), 0)").
		Where("size_id = ?", sizeID).
		Scan(&total).Error
	return total, err
}

// Candidates lists the non-empty rows of a size in allocation order: the
// fullest branch first, ties broken by branch id.
func (r *repository) Candidates(ctx context.Context, sizeID uuid.UUID, lockRows bool) ([]models.Stock, error) {
	q := r.DB(ctx).
		Where("size_id = ? AND quantity > 0", sizeID).
		Order("quantity DESC").
		Order("branch_id ASC")
	if lockRows {
		q = q.Scopes(r.ForUpdate())
	}
	var rows []models.Stock
	err := q.Find(&rows).Error
	return rows, err
}

// ConditionalDecrement subtracts qty only while the row still holds it. It
// reports false when a concurrent writer got there first.
func (r *repository) ConditionalDecrement(ctx context.Context, stockID uuid.UUID, qty int) (bool, error) {
	res := r.DB(ctx).
		Model(&models.Stock{}).
		Where("id = ? AND quantity >= ?", stockID, qty).
		Update("quantity", gorm.Expr("quantity - ?", qty))
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

func (r *repository) Increment(ctx context.Context, branchID, sizeID uuid.UUID, qty int) error {
	row := models.Stock{BranchID: branchID, SizeID: sizeID, Quantity: qty}
	return r.DB(ctx).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "branch_id"}, {Name: "size_id"}},
			DoUpdates: clause.Assignments(map[string]any{
				"quantity":   gorm.Expr("stocks.quantity + excluded.quantity"),
				"updated_at": gorm.Expr("excluded.updated_at"),
			}),
		}).
		Create(&row).Error
}

func (r *repository) FindStock(ctx context.Context, branchID, sizeID uuid.UUID) (*models.Stock, error) {
	var row models.Stock
	err := r.DB(ctx).Where("branch_id = ? AND size_id = ?", branchID, sizeID).First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &row, nil
}

func (r *repository) ListForSize(ctx context.Context, sizeID uuid.UUID) ([]models.Stock, error) {
	var rows []models.Stock
	err := r.DB(ctx).Where("size_id = ?", sizeID).Order("branch_id ASC").Find(&rows).Error
	return rows, err
}

func (r *repository) FindBranchByCode(ctx context.Context, code string) (*models.Branch, error) {
	return r.firstBranch(ctx, "code = ?", code)
}

func (r *repository) FindBranch(ctx context.Context, id uuid.UUID) (*models.Branch, error) {
	return r.firstBranch(ctx, "id = ?", id)
}

func (r *repository) Warehouse(ctx context.Context) (*models.Branch, error) {
	return r.firstBranch(ctx, "is_online_warehouse = ?", true)
}

func (r *repository) firstBranch(ctx context.Context, query string, arg any) (*models.Branch, error) {
	var b models.Branch
	if err := r.DB(ctx).Where(query, arg).First(&b).Error; err != nil {
		return nil, err
	}
	return &b, nil
}

func (r *repository) FindItem(ctx context.Context, itemID uuid.UUID) (*models.CatalogItem, error) {
	var item models.CatalogItem
	if err := r.DB(ctx).Where("id = ?", itemID).First(&item).Error; err != nil {
		return nil, err
	}
	return &item, nil
}

func (r *repository) FindSizeByLabel(ctx context.Context, itemID uuid.UUID, label string) (*models.Size, error) {
	var size models.Size
	if err := r.DB(ctx).Where("item_id = ? AND label = ?", itemID, label).First(&size).Error; err != nil {
		return nil, err
	}
	return &size, nil
}

func (r *repository) FindSize(ctx context.Context, sizeID uuid.UUID) (*models.Size, error) {
	var size models.Size
	if err := r.DB(ctx).Where("id = ?", sizeID).First(&size).Error; err != nil {
		return nil, err
	}
	return &size, nil
}
