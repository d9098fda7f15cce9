package outbox

import (
	"encoding/json"
	"time"
)

// ActorRef identifies the customer whose action produced the event.
type ActorRef struct {
	CustomerID int64 `json:"customerId"`
}

// PayloadEnvelope is the stable payload structure stored in outbox_events.
type PayloadEnvelope struct {
	Version    int             `json:"version"`
	EventID    string          `json:"eventId"`
	OccurredAt time.Time       `json:"occurredAt"`
	Actor      *ActorRef       `json:"actor,omitempty"`
	Data       json.RawMessage `json:"data"`
}
