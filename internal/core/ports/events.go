package ports

import (
	"context"
	"time"

	"orderflow/internal/core/domain/model/kernel"
	"orderflow/internal/core/domain/model/order"
)

// OrderUpdated is emitted after a change to an order was committed. It
// carries enough for a client to decide whether its snapshot is stale;
// the new state itself is fetched through a batch refresh.
type OrderUpdated struct {
	OrderID kernel.UUID
	Status  order.Status
	Version int64

	// Action names what changed the order: an order.ActionKind string,
	// "place" or "set_paid".
	Action string
	At     time.Time
}

// EventPublisher distributes OrderUpdated notifications. Delivery is
// at-most-once: a failed publish is logged by the caller and not retried.
type EventPublisher interface {
	Publish(ctx context.Context, event OrderUpdated) error
}
