package cart

import (
	"time"

	"github.com/google/uuid"

	"github.com/dmoratto/storefront-backend/pkg/db/models"
	"github.com/dmoratto/storefront-backend/pkg/enums"
	"github.com/dmoratto/storefront-backend/pkg/types"
)

// LineDTO is the wire view of one cart line.
type LineDTO struct {
	ID             uuid.UUID `json:"id"`
	ProductRef     string    `json:"product_ref"`
	ProductName    string    `json:"product_name"`
	Quantity       int       `json:"quantity"`
	UnitPriceCents int64     `json:"unit_price_cents"`
	AmountCents    int64     `json:"amount_cents"`
}

// OrderDTO is the wire view of a draft or confirmed order.
type OrderDTO struct {
	ID              uuid.UUID         `json:"id"`
	Status          enums.OrderStatus `json:"status"`
	Currency        enums.Currency    `json:"currency"`
	Lines           []LineDTO         `json:"lines"`
	BillingAddress  *types.Address    `json:"billing_address,omitempty"`
	ShippingAddress *types.Address    `json:"shipping_address,omitempty"`
	CarrierRef      *string           `json:"carrier_ref,omitempty"`
	Reference       *string           `json:"reference,omitempty"`
	SubtotalCents   int64             `json:"subtotal_cents"`
	TaxCents        int64             `json:"tax_cents"`
	DeliveryCents   int64             `json:"delivery_cents"`
	TotalCents      int64             `json:"total_cents"`
	DeliveryWarning *string           `json:"delivery_warning,omitempty"`
	ConfirmedAt     *time.Time        `json:"confirmed_at,omitempty"`
}

// FromModel maps an order model onto its wire view.
func FromModel(order *models.Order) *OrderDTO {
	if order == nil {
		return nil
	}
	lines := make([]LineDTO, 0, len(order.Lines))
	for _, line := range order.Lines {
		lines = append(lines, LineDTO{
			ID:             line.ID,
			ProductRef:     line.ProductRef,
			ProductName:    line.ProductName,
			Quantity:       line.Quantity,
			UnitPriceCents: line.UnitPriceCents,
			AmountCents:    line.UnitPriceCents * int64(line.Quantity),
		})
	}
	return &OrderDTO{
		ID:              order.ID,
		Status:          order.Status,
		Currency:        order.Currency,
		Lines:           lines,
		BillingAddress:  order.BillingAddress,
		ShippingAddress: order.ShippingAddress,
		CarrierRef:      order.CarrierRef,
		Reference:       order.Reference,
		SubtotalCents:   order.SubtotalCents,
		TaxCents:        order.TaxCents,
		DeliveryCents:   order.DeliveryCents,
		TotalCents:      order.TotalCents,
		DeliveryWarning: order.DeliveryWarning,
		ConfirmedAt:     order.ConfirmedAt,
	}
}

// EmptyCart is the wire view returned when a customer has no open draft.
func EmptyCart(currency enums.Currency) *OrderDTO {
	return &OrderDTO{
		Status:   enums.OrderStatusDraft,
		Currency: currency,
		Lines:    []LineDTO{},
	}
}
