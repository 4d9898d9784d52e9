package devices

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/moda-commerce/moda-backend/internal/repo"
	"github.com/moda-commerce/moda-backend/pkg/db/models"
)

type Repository interface {
	// Upsert inserts the device or refreshes the row already registered
	// under the same (user, device name).
	Upsert(ctx context.Context, device *models.UserDevice) error
	FindByName(ctx context.Context, userID uuid.UUID, name string) (*models.UserDevice, error)
	ListByUser(ctx context.Context, userID uuid.UUID) ([]models.UserDevice, error)
	Delete(ctx context.Context, userID, deviceID uuid.UUID) (bool, error)
}

type repository struct {
	repo.Base
}

func NewRepository(db *gorm.DB) Repository {
	return &repository{Base: repo.NewBase(db)}
}

func (r *repository) Upsert(ctx context.Context, device *models.UserDevice) error {
	return r.DB(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "user_id"}, {Name: "device_name"}},
		DoUpdates: clause.AssignmentColumns([]string{"user_agent", "public_key", "fingerprint", "last_seen_at", "updated_at"}),
	}).Create(device).Error
}

func (r *repository) FindByName(ctx context.Context, userID uuid.UUID, name string) (*models.UserDevice, error) {
	var device models.UserDevice
	if err := r.DB(ctx).Where("user_id = ? AND device_name = ?", userID, name).First(&device).Error; err != nil {
		return nil, err
	}
	return &device, nil
}

func (r *repository) ListByUser(ctx context.Context, userID uuid.UUID) ([]models.UserDevice, error) {
	var rows []models.UserDevice
	err := r.DB(ctx).Where("user_id = ?", userID).Order("created_at ASC").Find(&rows).Error
	return rows, err
}

func (r *repository) Delete(ctx context.Context, userID, deviceID uuid.UUID) (bool, error) {
	res := r.DB(ctx).Where("id = ? AND user_id = ?", deviceID, userID).Delete(&models.UserDevice{})
	return res.RowsAffected > 0, res.Error
}
