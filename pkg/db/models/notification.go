package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/ecujcuj-2024028/Restaurant-ejemplo/pkg/enums"
)

// Notification stores in-app notification payloads scoped to users.
type Notification struct {
	ID           uuid.UUID              `gorm:"column:id;type:uuid;primaryKey"`
	UserID       uuid.UUID              `gorm:"column:user_id;type:uuid;not null;index"`
	RestaurantID *uuid.UUID             `gorm:"column:restaurant_id;type:uuid"`
	Kind         enums.NotificationKind `gorm:"column:kind;type:text;not null"`
	Title        string                 `gorm:"column:title;type:text;not null"`
	Message      string                 `gorm:"column:message;type:text;not null"`
	ReadAt       *time.Time             `gorm:"column:read_at;type:timestamptz"`
	CreatedAt    time.Time              `gorm:"column:created_at;autoCreateTime"`
}

// BeforeCreate assigns a client-side id when the row does not carry one.
func (n *Notification) BeforeCreate(*gorm.DB) error {
	if n.ID == uuid.Nil {
		n.ID = uuid.New()
	}
	return nil
}
