package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/ecujcuj-2024028/Restaurant-ejemplo/pkg/enums"
)

// Table is a physical dining table in the catalog store.
type Table struct {
	ID           uuid.UUID               `gorm:"column:id;type:uuid;primaryKey"`
	RestaurantID uuid.UUID               `gorm:"column:restaurant_id;type:uuid;not null;uniqueIndex:uq_tables_restaurant_number"`
	Number       int                     `gorm:"column:number;not null;uniqueIndex:uq_tables_restaurant_number"`
	Capacity     int                     `gorm:"column:capacity;not null"`
	Location     enums.TableLocation     `gorm:"column:location;type:text;not null;default:'indoor'"`
	Availability enums.TableAvailability `gorm:"column:availability;type:text;not null;default:'available'"`
	IsActive     bool                    `gorm:"column:is_active;not null;default:true"`
	CreatedAt    time.Time               `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt    time.Time               `gorm:"column:updated_at;autoUpdateTime"`
}

// BeforeCreate assigns a client-side id when the row does not carry one.
func (t *Table) BeforeCreate(*gorm.DB) error {
	if t.ID == uuid.Nil {
		t.ID = uuid.New()
	}
	return nil
}
