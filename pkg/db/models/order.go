package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/ecujcuj-2024028/Restaurant-ejemplo/pkg/enums"
)

// OrderItem is a line snapshot taken at creation time. Name, price and the
// resolved ingredient demands are frozen so later product edits can never
// change what an order charges or what a cancellation restocks.
type OrderItem struct {
	ProductID      uuid.UUID          `json:"productId"`
	Name           string             `json:"name"`
	Quantity       int                `json:"quantity"`
	UnitPriceCents int                `json:"unitPriceCents"`
	SubtotalCents  int                `json:"subtotalCents"`
	Ingredients    ProductIngredients `json:"ingredients,omitempty"`
}

// OrderItems is stored as a jsonb document on the order row.
type OrderItems []OrderItem

// Order is the catalog-side order document.
type Order struct {
	ID               uuid.UUID         `gorm:"column:id;type:uuid;primaryKey"`
	RestaurantID     uuid.UUID         `gorm:"column:restaurant_id;type:uuid;not null;index"`
	UserID           uuid.UUID         `gorm:"column:user_id;type:uuid;not null;index"`
	TableNumber      *int              `gorm:"column:table_number"`
	Items            OrderItems        `gorm:"column:items;type:jsonb;serializer:json"`
	TotalCents       int               `gorm:"column:total_cents;not null"`
	Status           enums.OrderStatus `gorm:"column:status;type:text;not null;default:'received'"`
	InvoiceGenerated bool              `gorm:"column:invoice_generated;not null;default:false"`
	Notes            *string           `gorm:"column:notes;type:text"`
	CreatedAt        time.Time         `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt        time.Time         `gorm:"column:updated_at;autoUpdateTime"`
}

// BeforeCreate assigns a client-side id when the row does not carry one.
func (o *Order) BeforeCreate(*gorm.DB) error {
	if o.ID == uuid.Nil {
		o.ID = uuid.New()
	}
	return nil
}
