package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/ecujcuj-2024028/Restaurant-ejemplo/pkg/enums"
)

// Reservation books a table for a date and time slot. A partial unique index
// over (table_id, date, time) restricted to pending/confirmed rows is the
// authoritative double-booking guard; cancelled rows never block a slot.
type Reservation struct {
	ID           uuid.UUID               `gorm:"column:id;type:uuid;primaryKey"`
	RestaurantID uuid.UUID               `gorm:"column:restaurant_id;type:uuid;not null;index"`
	TableID      uuid.UUID               `gorm:"column:table_id;type:uuid;not null;index"`
	UserID       uuid.UUID               `gorm:"column:user_id;type:uuid;not null;index"`
	Date         string                  `gorm:"column:date;type:text;not null"`
	Time         string                  `gorm:"column:time;type:text;not null"`
	GuestCount   int                     `gorm:"column:guest_count;not null;default:1"`
	Status       enums.ReservationStatus `gorm:"column:status;type:text;not null;default:'pending'"`
	Notes        *string                 `gorm:"column:notes;type:text"`
	CreatedAt    time.Time               `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt    time.Time               `gorm:"column:updated_at;autoUpdateTime"`
}

// BeforeCreate assigns a client-side id when the row does not carry one.
func (r *Reservation) BeforeCreate(*gorm.DB) error {
	if r.ID == uuid.Nil {
		r.ID = uuid.New()
	}
	return nil
}
