package enums

// OutboxEventType enumerates the domain events emitted via the outbox.
type OutboxEventType string

const (
	OutboxEventOrderConfirmed OutboxEventType = "order.confirmed"
)

func (e OutboxEventType) String() string { return string(e) }

func (e OutboxEventType) IsValid() bool {
	switch e {
	case OutboxEventOrderConfirmed:
		return true
	}
	return false
}

// OutboxAggregateType names the aggregate an outbox event belongs to.
type OutboxAggregateType string

const (
	OutboxAggregateOrder OutboxAggregateType = "order"
)

func (a OutboxAggregateType) String() string { return string(a) }
