package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type CatalogItem struct {
	ID          uuid.UUID `gorm:"column:id;type:uuid;primaryKey"`
	Name        string    `gorm:"column:name;type:text;not null"`
	Description *string   `gorm:"column:description;type:text"`
	Price       int64     `gorm:"column:price;not null"`
	CreatedAt   time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt   time.Time `gorm:"column:updated_at;autoUpdateTime"`

	Sizes []Size `gorm:"foreignKey:ItemID;references:ID"`
}

func (c *CatalogItem) BeforeCreate(*gorm.DB) error {
	ensureID(&c.ID)
	return nil
}

// Size is a sellable variant of a catalog item. TotalQuantity is the
// network-wide ceiling for the sum of its stock rows.
type Size struct {
	ID            uuid.UUID `gorm:"column:id;type:uuid;primaryKey"`
	ItemID        uuid.UUID `gorm:"column:item_id;type:uuid;not null;uniqueIndex:ux_sizes_item_label,priority:1"`
	Label         string    `gorm:"column:label;type:varchar(32);not null;uniqueIndex:ux_sizes_item_label,priority:2"`
	TotalQuantity int       `gorm:"column:total_quantity;not null;default:0;check:chk_sizes_total_quantity,total_quantity >= 0"`
	CreatedAt     time.Time `gorm:"column:created_at;autoCreateTime"`
}

func (s *Size) BeforeCreate(*gorm.DB) error {
	ensureID(&s.ID)
	return nil
}

// Stock is the on-hand quantity of one size at one branch. Rows are never deleted.
type Stock struct {
	ID        uuid.UUID `gorm:"column:id;type:uuid;primaryKey"`
	BranchID  uuid.UUID `gorm:"column:branch_id;type:uuid;not null;uniqueIndex:ux_stocks_branch_size,priority:1"`
	SizeID    uuid.UUID `gorm:"column:size_id;type:uuid;not null;uniqueIndex:ux_stocks_branch_size,priority:2;index:idx_stocks_size"`
	Quantity  int       `gorm:"column:quantity;not null;default:0;check:chk_stocks_quantity,quantity >= 0"`
	UpdatedAt time.Time `gorm:"column:updated_at;autoUpdateTime"`
}

func (s *Stock) BeforeCreate(*gorm.DB) error {
	ensureID(&s.ID)
	return nil
}
