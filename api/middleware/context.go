package middleware

import "context"

type contextKey string

const ctxCustomerID contextKey = "customer_id"

// CustomerIDFromContext returns the authenticated customer id, or zero when
// the request is unauthenticated.
func CustomerIDFromContext(ctx context.Context) int64 {
	if ctx == nil {
		return 0
	}
	if v, ok := ctx.Value(ctxCustomerID).(int64); ok {
		return v
	}
	return 0
}

// WithCustomerID injects the acting customer into the context.
func WithCustomerID(ctx context.Context, customerID int64) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, ctxCustomerID, customerID)
}
