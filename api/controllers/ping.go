package controllers

import (
	"net/http"
	"strconv"

	"github.com/dmoratto/storefront-backend/api/middleware"
	"github.com/dmoratto/storefront-backend/api/responses"
)

func PublicPing() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		responses.WriteSuccess(w, map[string]string{"scope": "public", "status": "ok"})
	}
}

func PrivatePing() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		payload := map[string]string{"scope": "private", "status": "ok"}
		if customerID := middleware.CustomerIDFromContext(r.Context()); customerID != 0 {
			payload["customer_id"] = strconv.FormatInt(customerID, 10)
		}
		responses.WriteSuccess(w, payload)
	}
}
