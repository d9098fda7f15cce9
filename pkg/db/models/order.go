package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/dmoratto/storefront-backend/pkg/enums"
	"github.com/dmoratto/storefront-backend/pkg/types"
)

// Order is the single aggregation point for a customer's purchase: it is the
// cart while status=draft and the confirmed order afterwards. The partial
// unique index keeps at most one draft per customer even under concurrent
// get-or-create races.
type Order struct {
	ID              uuid.UUID         `gorm:"column:id;type:uuid;primaryKey"`
	CustomerID      int64             `gorm:"column:customer_id;not null;uniqueIndex:idx_orders_one_draft_per_customer,where:status = 'draft'"`
	Status          enums.OrderStatus `gorm:"column:status;type:text;not null;default:'draft'"`
	Currency        enums.Currency    `gorm:"column:currency;type:text;not null;default:'USD'"`
	BillingAddress  *types.Address    `gorm:"column:billing_address;type:jsonb;serializer:json"`
	ShippingAddress *types.Address    `gorm:"column:shipping_address;type:jsonb;serializer:json"`
	CarrierRef      *string           `gorm:"column:carrier_ref"`
	Reference       *string           `gorm:"column:reference;type:text;uniqueIndex"`
	SubtotalCents   int64             `gorm:"column:subtotal_cents;not null;default:0"`
	TaxCents        int64             `gorm:"column:tax_cents;not null;default:0"`
	DeliveryCents   int64             `gorm:"column:delivery_cents;not null;default:0"`
	TotalCents      int64             `gorm:"column:total_cents;not null;default:0"`
	DeliveryWarning *string           `gorm:"column:delivery_warning"`
	ConfirmedAt     *time.Time        `gorm:"column:confirmed_at"`
	Lines           []OrderLine       `gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE"`
	CreatedAt       time.Time         `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt       time.Time         `gorm:"column:updated_at;autoUpdateTime"`
}
