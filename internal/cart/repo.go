package cart

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/moda-commerce/moda-backend/internal/repo"
	"github.com/moda-commerce/moda-backend/pkg/db/models"
	"github.com/moda-commerce/moda-backend/pkg/enums"
)

type cartRepository struct {
	repo.Base
}

func NewRepository(db *gorm.DB) CartRepository {
	return &cartRepository{Base: repo.NewBase(db)}
}

func (r *cartRepository) WithTx(tx *gorm.DB) CartRepository {
	if tx == nil {
		return r
	}
	return &cartRepository{Base: r.Bind(tx)}
}

func (r *cartRepository) withItems(ctx context.Context) *gorm.DB {
	return r.DB(ctx).Preload("Items", func(db *gorm.DB) *gorm.DB {
		return db.Order("created_at ASC").Order("id ASC")
	})
}

// FindOpenByUser returns the newest cart that has not completed, or nil.
func (r *cartRepository) FindOpenByUser(ctx context.Context, userID uuid.UUID) (*models.Cart, error) {
	var cart models.Cart
	err := r.withItems(ctx).
		Where("user_id = ? AND state IN ?", userID, []enums.CartState{enums.CartStatePending, enums.CartStateProcessing}).
		Order("created_at DESC").
		First(&cart).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &cart, nil
}

func (r *cartRepository) FindByIDAndUser(ctx context.Context, id, userID uuid.UUID) (*models.Cart, error) {
	var cart models.Cart
	if err := r.withItems(ctx).Where("id = ? AND user_id = ?", id, userID).First(&cart).Error; err != nil {
		return nil, err
	}
	return &cart, nil
}

func (r *cartRepository) FindByID(ctx context.Context, id uuid.UUID) (*models.Cart, error) {
	var cart models.Cart
	if err := r.withItems(ctx).Where("id = ?", id).First(&cart).Error; err != nil {
		return nil, err
	}
	return &cart, nil
}

func (r *cartRepository) Create(ctx context.Context, cart *models.Cart) error {
	return r.DB(ctx).Create(cart).Error
}

func (r *cartRepository) AddItem(ctx context.Context, item *models.CartItem) error {
	return r.DB(ctx).Create(item).Error
}

func (r *cartRepository) DeleteItem(ctx context.Context, cartID, itemID uuid.UUID) (bool, error) {
	res := r.DB(ctx).Where("id = ? AND cart_id = ?", itemID, cartID).Delete(&models.CartItem{})
	return res.RowsAffected == 1, res.Error
}

func (r *cartRepository) TransitionState(ctx context.Context, id uuid.UUID, from, to enums.CartState) (bool, error) {
	res := r.DB(ctx).
		Model(&models.Cart{}).
		Where("id = ? AND state = ?", id, from).
		Update("state", to)
	return res.RowsAffected == 1, res.Error
}

func (r *cartRepository) FindCatalogItem(ctx context.Context, itemID uuid.UUID) (*models.CatalogItem, error) {
	var item models.CatalogItem
	if err := r.DB(ctx).Where("id = ?", itemID).First(&item).Error; err != nil {
		return nil, err
	}
	return &item, nil
}

func (r *cartRepository) FindSize(ctx context.Context, sizeID uuid.UUID) (*models.Size, error) {
	var size models.Size
	if err := r.DB(ctx).Where("id = ?", sizeID).First(&size).Error; err != nil {
		return nil, err
	}
	return &size, nil
}

func (r *cartRepository) FindBranch(ctx context.Context, branchID uuid.UUID) (*models.Branch, error) {
	var branch models.Branch
	if err := r.DB(ctx).Where("id = ?", branchID).First(&branch).Error; err != nil {
		return nil, err
	}
	return &branch, nil
}
