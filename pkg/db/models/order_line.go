package models

import (
	"time"

	"github.com/google/uuid"
)

// OrderLine is one product row on an order. A given product appears at most
// once per order; repeated adds merge into the existing line's quantity.
type OrderLine struct {
	ID             uuid.UUID `gorm:"column:id;type:uuid;primaryKey"`
	OrderID        uuid.UUID `gorm:"column:order_id;type:uuid;not null;uniqueIndex:idx_order_lines_order_product"`
	ProductRef     string    `gorm:"column:product_ref;type:text;not null;uniqueIndex:idx_order_lines_order_product"`
	ProductName    string    `gorm:"column:product_name;type:text;not null"`
	Quantity       int       `gorm:"column:quantity;not null"`
	UnitPriceCents int64     `gorm:"column:unit_price_cents;not null"`
	CreatedAt      time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt      time.Time `gorm:"column:updated_at;autoUpdateTime"`
}
