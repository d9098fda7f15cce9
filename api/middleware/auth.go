package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/dmoratto/storefront-backend/api/responses"
	"github.com/dmoratto/storefront-backend/internal/identity"
	pkgerrors "github.com/dmoratto/storefront-backend/pkg/errors"
	"github.com/dmoratto/storefront-backend/pkg/logger"
)

// Authenticator resolves a bearer credential into the acting customer.
type Authenticator interface {
	Authenticate(ctx context.Context, credential string) (identity.Record, error)
}

// Auth validates the bearer credential and seeds the request context with
// the customer id. Every rejection carries the same public message; the
// distinguishing cause lives only in the error chain for logs.
func Auth(authenticator Authenticator, logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := bearerToken(r)
			if token == "" {
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "invalid credentials"))
				return
			}

			record, err := authenticator.Authenticate(r.Context(), token)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, err)
				return
			}

			ctx := WithCustomerID(r.Context(), record.ID)
			if logg != nil {
				ctx = logg.WithCustomerID(ctx, record.ID)
			}

			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func bearerToken(r *http.Request) string {
	raw := strings.TrimSpace(r.Header.Get("Authorization"))
	if raw == "" {
		return ""
	}
	if strings.HasPrefix(strings.ToLower(raw), "bearer ") {
		return strings.TrimSpace(raw[7:])
	}
	return ""
}
