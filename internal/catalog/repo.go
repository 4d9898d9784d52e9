package catalog

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/moda-commerce/moda-backend/internal/repo"
	"github.com/moda-commerce/moda-backend/pkg/db/models"
	"github.com/moda-commerce/moda-backend/pkg/pagination"
)

type Repository interface {
	WithTx(tx *gorm.DB) Repository
	CreateItem(ctx context.Context, item *models.CatalogItem) error
	FindItem(ctx context.Context, itemID uuid.UUID) (*models.CatalogItem, error)
	ListItems(ctx context.Context, cursor *pagination.Cursor, limit int) ([]models.CatalogItem, error)
	CountStockForItem(ctx context.Context, itemID uuid.UUID) (int64, error)
	DeleteSizes(ctx context.Context, itemID uuid.UUID) error
	CreateSizes(ctx context.Context, sizes []models.Size) error
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

func (r *repository) CreateItem(ctx context.Context, item *models.CatalogItem) error {
	return r.DB(ctx).Create(item).Error
}

func (r *repository) FindItem(ctx context.Context, itemID uuid.UUID) (*models.CatalogItem, error) {
	var item models.CatalogItem
	err := r.DB(ctx).
		Preload("Sizes", func(db *gorm.DB) *gorm.DB { return db.Order("label ASC") }).
		Where("id = ?", itemID).
		First(&item).Error
	if err != nil {
		return nil, err
	}
	return &item, nil
}

func (r *repository) ListItems(ctx context.Context, cursor *pagination.Cursor, limit int) ([]models.CatalogItem, error) {
	q := r.DB(ctx).
		Preload("Sizes", func(db *gorm.DB) *gorm.DB { return db.Order("label ASC") }).
		Scopes(pagination.Keyset(cursor, limit))
	var items []models.CatalogItem
	err := q.Find(&items).Error
	return items, err
}

func (r *repository) CountStockForItem(ctx context.Context, itemID uuid.UUID) (int64, error) {
	var count int64
	err := r.DB(ctx).
		Model(&models.Stock{}).
		Joins("JOIN sizes ON sizes.id = stocks.size_id").
		Where("sizes.item_id = ?", itemID).
		Count(&count).Error
	return count, err
}

func (r *repository) DeleteSizes(ctx context.Context, itemID uuid.UUID) error {
	return r.DB(ctx).Where("item_id = ?", itemID).Delete(&models.Size{}).Error
}

func (r *repository) CreateSizes(ctx context.Context, sizes []models.Size) error {
	if len(sizes) == 0 {
		return nil
	}
	return r.DB(ctx).Create(&sizes).Error
}
