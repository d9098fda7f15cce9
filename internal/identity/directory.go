package identity

import "context"

// Record is the read-only directory view of a customer. Exists and Active
// are separated so callers can log the distinction without exposing it to
// clients.
type Record struct {
	Exists      bool
	Active      bool
	ID          int64
	DisplayName string
	Email       string
	Guest       bool
}

// Directory resolves subject ids carried inside credentials.
type Directory interface {
	Lookup(ctx context.Context, id int64) (Record, error)
}
