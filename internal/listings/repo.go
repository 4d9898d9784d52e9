package listings

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/moda-commerce/moda-backend/internal/repo"
	"github.com/moda-commerce/moda-backend/pkg/db/models"
	"github.com/moda-commerce/moda-backend/pkg/enums"
	"github.com/moda-commerce/moda-backend/pkg/pagination"
)

type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, listing *models.Listing) error
	FindByID(ctx context.Context, id uuid.UUID) (*models.Listing, error)
	FindForUpdate(ctx context.Context, id uuid.UUID) (*models.Listing, error)
	// Transition moves the listing to `to` only while its status is one of from.
	Transition(ctx context.Context, id uuid.UUID, from []enums.ListingStatus, to enums.ListingStatus) (bool, error)
	ListActive(ctx context.Context, cursor *pagination.Cursor, limit int) ([]models.Listing, error)
	ListBySeller(ctx context.Context, sellerID uuid.UUID) ([]models.Listing, error)
	FindSize(ctx context.Context, sizeID uuid.UUID) (*models.Size, error)
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

func (r *repository) Create(ctx context.Context, listing *models.Listing) error {
	return r.DB(ctx).Create(listing).Error
}

func (r *repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Listing, error) {
	var listing models.Listing
	if err := r.DB(ctx).Where("id = ?", id).First(&listing).Error; err != nil {
		return nil, err
	}
	return &listing, nil
}

func (r *repository) FindForUpdate(ctx context.Context, id uuid.UUID) (*models.Listing, error) {
	q := r.DB(ctx).Where("id = ?", id).Scopes(r.ForUpdate())
	var listing models.Listing
	if err := q.First(&listing).Error; err != nil {
		return nil, err
	}
	return &listing, nil
}

func (r *repository) Transition(ctx context.Context, id uuid.UUID, from []enums.ListingStatus, to enums.ListingStatus) (bool, error) {
	res := r.DB(ctx).
		Model(&models.Listing{}).
		Where("id = ? AND status IN ?", id, from).
		Update("status", to)
	return res.RowsAffected == 1, res.Error
}

func (r *repository) ListActive(ctx context.Context, cursor *pagination.Cursor, limit int) ([]models.Listing, error) {
	q := r.DB(ctx).
		Where("status = ?", enums.ListingActive).
		Scopes(pagination.Keyset(cursor, limit))
	var rows []models.Listing
	err := q.Find(&rows).Error
	return rows, err
}

func (r *repository) ListBySeller(ctx context.Context, sellerID uuid.UUID) ([]models.Listing, error) {
	var rows []models.Listing
	err := r.DB(ctx).
		Where("seller_id = ?", sellerID).
		Order("created_at DESC").
		Find(&rows).Error
	return rows, err
}

func (r *repository) FindSize(ctx context.Context, sizeID uuid.UUID) (*models.Size, error) {
	var size models.Size
	if err := r.DB(ctx).Where("id = ?", sizeID).First(&size).Error; err != nil {
		return nil, err
	}
	return &size, nil
}
