package models

import (
	"time"

	"github.com/dmoratto/storefront-backend/pkg/enums"
)

// Product is the sellable catalog entry. ProductRef is the stable external
// identifier carried on order lines.
type Product struct {
	ID          int64          `gorm:"column:id;primaryKey;autoIncrement"`
	ProductRef  string         `gorm:"column:product_ref;type:text;not null;uniqueIndex"`
	Name        string         `gorm:"column:name;type:text;not null"`
	PriceCents  int64          `gorm:"column:price_cents;not null"`
	Currency    enums.Currency `gorm:"column:currency;type:text;not null;default:'USD'"`
	IsActive    bool           `gorm:"column:is_active;not null;default:true"`
	Description *string        `gorm:"column:description"`
	CreatedAt   time.Time      `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt   time.Time      `gorm:"column:updated_at;autoUpdateTime"`
}
