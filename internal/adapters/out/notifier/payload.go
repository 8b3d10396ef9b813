package notifier

import (
	"time"

	"orderflow/internal/core/ports"
)

// Payload is the wire form of an order update, shared by every sink and
// the server-sent event stream.
type Payload struct {
	OrderID string    `json:"orderId"`
	Status  string    `json:"status"`
	Version int64     `json:"version"`
	Action  string    `json:"action"`
	At      time.Time `json:"at"`
}

func NewPayload(event ports.OrderUpdated) Payload {
	return Payload{
		OrderID: event.OrderID.String(),
		Status:  event.Status.String(),
		Version: event.Version,
		Action:  event.Action,
		At:      event.At.UTC(),
	}
}
