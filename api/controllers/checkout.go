package controllers

import (
	"net/http"

	"github.com/dmoratto/storefront-backend/api/middleware"
	"github.com/dmoratto/storefront-backend/api/responses"
	"github.com/dmoratto/storefront-backend/api/validators"
	"github.com/dmoratto/storefront-backend/internal/cart"
	"github.com/dmoratto/storefront-backend/internal/checkout"
	"github.com/dmoratto/storefront-backend/pkg/enums"
	"github.com/dmoratto/storefront-backend/pkg/logger"
)

// CheckoutView renders the checkout page payload. A customer with no open
// cart sees an empty draft rather than an error.
func CheckoutView(svc checkout.Service, currency enums.Currency, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		customerID := middleware.CustomerIDFromContext(r.Context())
		order, err := svc.View(r.Context(), customerID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, checkout.ViewFromModel(order, currency))
	}
}

// CheckoutAddress assigns billing/shipping to the cart.
func CheckoutAddress(svc checkout.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var body checkout.AddressInput
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		customerID := middleware.CustomerIDFromContext(r.Context())
		order, err := svc.SetAddress(r.Context(), customerID, body)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, cart.FromModel(order))
	}
}

// CheckoutCarrier selects the delivery option.
func CheckoutCarrier(svc checkout.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var body checkout.CarrierInput
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		customerID := middleware.CustomerIDFromContext(r.Context())
		order, err := svc.SelectCarrier(r.Context(), customerID, body.CarrierRef)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, cart.FromModel(order))
	}
}

// CheckoutConfirm transitions the draft to a confirmed order.
func CheckoutConfirm(svc checkout.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		customerID := middleware.CustomerIDFromContext(r.Context())
		order, err := svc.Confirm(r.Context(), customerID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, cart.FromModel(order))
	}
}
