package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/ecujcuj-2024028/Restaurant-ejemplo/pkg/enums"
)

// ProductIngredient is the per-unit ledger demand of a recipe line. Quantity
// is the amount consumed for a single unit of the product.
type ProductIngredient struct {
	Name     string              `json:"name"`
	Quantity decimal.Decimal     `json:"quantity"`
	Unit     enums.InventoryUnit `json:"unit"`
}

// ProductIngredients is stored as a jsonb document on the product row.
type ProductIngredients []ProductIngredient

// Product is a menu item in the catalog store. Its recipe references ledger
// rows by ingredient name only.
type Product struct {
	ID           uuid.UUID          `gorm:"column:id;type:uuid;primaryKey"`
	RestaurantID uuid.UUID          `gorm:"column:restaurant_id;type:uuid;not null;index"`
	Name         string             `gorm:"column:name;type:text;not null"`
	Description  *string            `gorm:"column:description;type:text"`
	PriceCents   int                `gorm:"column:price_cents;not null"`
	Ingredients  ProductIngredients `gorm:"column:ingredients;type:jsonb;serializer:json"`
	IsAvailable  bool               `gorm:"column:is_available;not null;default:true"`
	IsActive     bool               `gorm:"column:is_active;not null;default:true"`
	CreatedAt    time.Time          `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt    time.Time          `gorm:"column:updated_at;autoUpdateTime"`
}

// BeforeCreate assigns a client-side id when the row does not carry one.
func (p *Product) BeforeCreate(*gorm.DB) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	return nil
}
