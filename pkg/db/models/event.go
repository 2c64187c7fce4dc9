package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/ecujcuj-2024028/Restaurant-ejemplo/pkg/enums"
)

// Event is a scheduled restaurant happening in the catalog store. The stored
// status is a cache of the phase derived from the event window; reads
// recompute it and write it back when it drifted.
type Event struct {
	ID           uuid.UUID         `gorm:"column:id;type:uuid;primaryKey"`
	RestaurantID uuid.UUID         `gorm:"column:restaurant_id;type:uuid;not null;index"`
	Name         string            `gorm:"column:name;type:text;not null"`
	Description  *string           `gorm:"column:description;type:text"`
	StartAt      time.Time         `gorm:"column:start_at;not null"`
	EndAt        time.Time         `gorm:"column:end_at;not null"`
	Capacity     *int              `gorm:"column:capacity"`
	PriceCents   int               `gorm:"column:price_cents;not null;default:0"`
	Status       enums.EventStatus `gorm:"column:status;type:text;not null;default:'scheduled'"`
	IsActive     bool              `gorm:"column:is_active;not null;default:true"`
	CreatedAt    time.Time         `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt    time.Time         `gorm:"column:updated_at;autoUpdateTime"`
}

// BeforeCreate assigns a client-side id when the row does not carry one.
func (e *Event) BeforeCreate(*gorm.DB) error {
	if e.ID == uuid.Nil {
		e.ID = uuid.New()
	}
	return nil
}
