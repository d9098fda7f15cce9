package checkout

import (
	"encoding/base32"
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// crockford avoids the ambiguous I/L/O/U glyphs in human-facing references.
var crockford = base32.NewEncoding("0123456789ABCDEFGHJKMNPQRSTVWXYZ").WithPadding(base32.NoPadding)

// NewReference derives a human-readable order reference from the order id.
// Deriving instead of counting keeps the reference stable across confirm
// retries: the same order always yields the same reference.
func NewReference(prefix string, orderID uuid.UUID) string {
	prefix = strings.TrimSpace(prefix)
	if prefix == "" {
		prefix = "SO"
	}
	return fmt.Sprintf("%s-%s", prefix, crockford.EncodeToString(orderID[:8]))
}
