package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type UserDevice struct {
	ID          uuid.UUID  `gorm:"column:id;type:uuid;primaryKey"`
	UserID      uuid.UUID  `gorm:"column:user_id;type:uuid;not null;uniqueIndex:ux_user_devices_user_name,priority:1"`
	DeviceName  string     `gorm:"column:device_name;type:varchar(128);not null;uniqueIndex:ux_user_devices_user_name,priority:2"`
	UserAgent   *string    `gorm:"column:user_agent;type:text"`
	PublicKey   string     `gorm:"column:public_key;type:text;not null"`
	Fingerprint string     `gorm:"column:fingerprint;type:varchar(64);not null"`
	LastSeenAt  *time.Time `gorm:"column:last_seen_at"`
	CreatedAt   time.Time  `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt   time.Time  `gorm:"column:updated_at;autoUpdateTime"`
}

func (d *UserDevice) BeforeCreate(*gorm.DB) error {
	ensureID(&d.ID)
	return nil
}
