package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/moda-commerce/moda-backend/pkg/enums"
)

type Cart struct {
	ID        uuid.UUID       `gorm:"column:id;type:uuid;primaryKey"`
	UserID    uuid.UUID       `gorm:"column:user_id;type:uuid;not null;index:idx_carts_user_state,priority:1"`
	State     enums.CartState `gorm:"column:state;type:varchar(16);not null;default:'PENDING';index:idx_carts_user_state,priority:2"`
	CreatedAt time.Time       `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time       `gorm:"column:updated_at;autoUpdateTime"`

	Items []CartItem `gorm:"foreignKey:CartID;references:ID"`
}

func (c *Cart) BeforeCreate(*gorm.DB) error {
	ensureID(&c.ID)
	return nil
}

type CartItem struct {
	ID                uuid.UUID               `gorm:"column:id;type:uuid;primaryKey"`
	CartID            uuid.UUID               `gorm:"column:cart_id;type:uuid;not null;index"`
	ItemID            uuid.UUID               `gorm:"column:item_id;type:uuid;not null"`
	SizeID            uuid.UUID               `gorm:"column:size_id;type:uuid;not null"`
	Quantity          int                     `gorm:"column:quantity;not null"`
	TotalPrice        int64                   `gorm:"column:total_price;not null"`
	FulfillmentMethod enums.FulfillmentMethod `gorm:"column:fulfillment_method;type:varchar(16);not null"`
	SourceBranchID    *uuid.UUID              `gorm:"column:source_branch_id;type:uuid"`
	PickupBranchID    *uuid.UUID              `gorm:"column:pickup_branch_id;type:uuid"`
	RequiresTransfer  bool                    `gorm:"column:requires_transfer;not null;default:false"`
	CreatedAt         time.Time               `gorm:"column:created_at;autoCreateTime"`
}

func (c *CartItem) BeforeCreate(*gorm.DB) error {
	ensureID(&c.ID)
	return nil
}
