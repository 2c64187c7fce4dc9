package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/ecujcuj-2024028/Restaurant-ejemplo/pkg/enums"
)

// InventoryItem is a stock row in the ledger store. Rows are addressed by
// (restaurant_id, name); catalog products reference ingredients by name only,
// never by foreign key, since the two stores are independent databases.
type InventoryItem struct {
	ID           uuid.UUID           `gorm:"column:id;type:uuid;primaryKey"`
	RestaurantID uuid.UUID           `gorm:"column:restaurant_id;type:uuid;not null;uniqueIndex:uq_inventory_restaurant_name"`
	Name         string              `gorm:"column:name;type:text;not null;uniqueIndex:uq_inventory_restaurant_name"`
	ProductRef   *string             `gorm:"column:product_ref;type:text"`
	Quantity     decimal.Decimal     `gorm:"column:quantity;type:decimal(10,3);not null;default:0"`
	Unit         enums.InventoryUnit `gorm:"column:unit;type:text;not null;default:'unit'"`
	CostPerUnit  decimal.Decimal     `gorm:"column:cost_per_unit;type:decimal(10,2);not null;default:0"`
	MinStock     decimal.Decimal     `gorm:"column:min_stock;type:decimal(10,3);not null;default:5"`
	IsActive     bool                `gorm:"column:is_active;not null;default:true"`
	CreatedAt    time.Time           `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt    time.Time           `gorm:"column:updated_at;autoUpdateTime"`
}

// BeforeCreate assigns a client-side id when the row does not carry one.
func (i *InventoryItem) BeforeCreate(*gorm.DB) error {
	if i.ID == uuid.Nil {
		i.ID = uuid.New()
	}
	return nil
}
