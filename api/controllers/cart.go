package controllers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/dmoratto/storefront-backend/api/middleware"
	"github.com/dmoratto/storefront-backend/api/responses"
	"github.com/dmoratto/storefront-backend/api/validators"
	"github.com/dmoratto/storefront-backend/internal/cart"
	pkgerrors "github.com/dmoratto/storefront-backend/pkg/errors"
	"github.com/dmoratto/storefront-backend/pkg/logger"
)

type cartAddItemRequest struct {
	ProductRef string `json:"product_ref" validate:"required"`
	Qty        int    `json:"qty"`
}

type cartUpdateItemRequest struct {
	Qty *int `json:"qty" validate:"required"`
}

// CartGet returns the customer's cart, creating the draft on first access.
func CartGet(svc cart.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		customerID := middleware.CustomerIDFromContext(r.Context())
		order, err := svc.GetOrCreate(r.Context(), customerID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, cart.FromModel(order))
	}
}

// CartAddItem adds a product to the cart, merging with an existing line for
// the same product.
func CartAddItem(svc cart.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var body cartAddItemRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		customerID := middleware.CustomerIDFromContext(r.Context())
		order, err := svc.AddLine(r.Context(), customerID, body.ProductRef, body.Qty)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, cart.FromModel(order))
	}
}

// CartUpdateItem sets a line's quantity; zero or negative removes the line.
func CartUpdateItem(svc cart.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		lineID, err := lineIDParam(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var body cartUpdateItemRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		customerID := middleware.CustomerIDFromContext(r.Context())
		order, err := svc.SetLineQty(r.Context(), customerID, lineID, *body.Qty)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, cart.FromModel(order))
	}
}

// CartRemoveItem deletes a line from the cart.
func CartRemoveItem(svc cart.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		lineID, err := lineIDParam(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		customerID := middleware.CustomerIDFromContext(r.Context())
		order, err := svc.RemoveLine(r.Context(), customerID, lineID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, cart.FromModel(order))
	}
}

func lineIDParam(r *http.Request) (uuid.UUID, error) {
	raw := chi.URLParam(r, "lineID")
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid line id")
	}
	return id, nil
}
