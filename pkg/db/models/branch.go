package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Branch is a physical store or the online warehouse.
type Branch struct {
	ID                uuid.UUID `gorm:"column:id;type:uuid;primaryKey"`
	Code              string    `gorm:"column:code;type:varchar(32);not null;uniqueIndex:ux_branches_code"`
	Name              string    `gorm:"column:name;type:text;not null"`
	IsOnlineWarehouse bool      `gorm:"column:is_online_warehouse;not null;default:false"`
	CreatedAt         time.Time `gorm:"column:created_at;autoCreateTime"`
}

func (b *Branch) BeforeCreate(*gorm.DB) error {
	ensureID(&b.ID)
	return nil
}
