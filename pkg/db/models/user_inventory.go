package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/moda-commerce/moda-backend/pkg/enums"
)

// UserInventory is one lot of a (item, size) a user personally owns. Lots
// sharing a SourceRef merge; a nil SourceRef is always its own lot.
type UserInventory struct {
	ID         uuid.UUID             `gorm:"column:id;type:uuid;primaryKey"`
	UserID     uuid.UUID             `gorm:"column:user_id;type:uuid;not null;uniqueIndex:ux_user_inventory_lot,priority:1;index:idx_user_inventory_fifo,priority:1"`
	ItemID     uuid.UUID             `gorm:"column:item_id;type:uuid;not null;uniqueIndex:ux_user_inventory_lot,priority:2;index:idx_user_inventory_fifo,priority:2"`
	SizeID     uuid.UUID             `gorm:"column:size_id;type:uuid;not null;uniqueIndex:ux_user_inventory_lot,priority:3;index:idx_user_inventory_fifo,priority:3"`
	SourceRef  *string               `gorm:"column:source_ref;type:varchar(128);uniqueIndex:ux_user_inventory_lot,priority:4"`
	Quantity   int                   `gorm:"column:quantity;not null;check:chk_user_inventory_quantity,quantity >= 0"`
	Source     enums.InventorySource `gorm:"column:source;type:varchar(32);not null"`
	AcquiredAt time.Time             `gorm:"column:acquired_at;not null;index:idx_user_inventory_fifo,priority:4"`
	UpdatedAt  time.Time             `gorm:"column:updated_at;autoUpdateTime"`
}

func (UserInventory) TableName() string { return "user_inventory" }

func (u *UserInventory) BeforeCreate(*gorm.DB) error {
	ensureID(&u.ID)
	if u.AcquiredAt.IsZero() {
		u.AcquiredAt = time.Now().UTC()
	}
	return nil
}
