package checkout

import (
	"github.com/dmoratto/storefront-backend/internal/cart"
	"github.com/dmoratto/storefront-backend/pkg/db/models"
	"github.com/dmoratto/storefront-backend/pkg/enums"
	"github.com/dmoratto/storefront-backend/pkg/types"
)

// AddressInput carries the billing address plus an optional shipping
// override; when Shipping is nil the shipping address mirrors billing.
type AddressInput struct {
	Billing  types.Address  `json:"billing" validate:"required"`
	Shipping *types.Address `json:"shipping,omitempty"`
}

// CarrierInput selects the delivery option for the open cart.
type CarrierInput struct {
	CarrierRef string `json:"carrier_ref" validate:"required"`
}

// ViewDTO is the checkout page payload: the cart plus address bookkeeping.
type ViewDTO struct {
	Order                 *cart.OrderDTO `json:"order"`
	ShippingSameAsBilling bool           `json:"shipping_same_as_billing"`
}

// ViewFromModel maps an order onto the checkout view. A nil order renders as
// an empty draft in the deployment currency.
func ViewFromModel(order *models.Order, currency enums.Currency) *ViewDTO {
	if order == nil {
		return &ViewDTO{Order: cart.EmptyCart(currency), ShippingSameAsBilling: true}
	}
	return &ViewDTO{
		Order:                 cart.FromModel(order),
		ShippingSameAsBilling: sameAddress(order.BillingAddress, order.ShippingAddress),
	}
}

func sameAddress(billing, shipping *types.Address) bool {
	if billing == nil || shipping == nil {
		return billing == shipping
	}
	return billing.Name == shipping.Name &&
		billing.Street == shipping.Street &&
		strPtrEqual(billing.Street2, shipping.Street2) &&
		billing.City == shipping.City &&
		strPtrEqual(billing.Zip, shipping.Zip) &&
		strPtrEqual(billing.State, shipping.State) &&
		billing.Country == shipping.Country &&
		strPtrEqual(billing.Email, shipping.Email) &&
		strPtrEqual(billing.Phone, shipping.Phone)
}

func strPtrEqual(a, b *string) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}
