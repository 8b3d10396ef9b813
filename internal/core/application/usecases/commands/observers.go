package commands

import (
	"context"
	"log/slog"
	"time"

	"orderflow/internal/core/domain/model/order"
	"orderflow/internal/core/ports"
)

const (
	placeAction   = "place"
	setPaidAction = "set_paid"
)

// Observers are told about commands after the fact. All fields are optional.
type Observers struct {
	Publisher ports.EventPublisher
	Recorder  Recorder
	Logger    *slog.Logger
}

func (o Observers) logger() *slog.Logger {
	if o.Logger == nil {
		return slog.Default()
	}
	return o.Logger
}

// updated publishes the committed state of an order. A failed publish is
// logged and dropped; the transition itself already happened.
func (o Observers) updated(ctx context.Context, aggregate *order.Order, action string, at time.Time) {
	if o.Publisher == nil {
		return
	}

	err := o.Publisher.Publish(ctx, ports.OrderUpdated{
		OrderID: aggregate.ID(),
		Status:  aggregate.Status(),
		Version: aggregate.Version(),
		Action:  action,
		At:      at,
	})
	if err != nil {
		o.logger().WarnContext(ctx, "order update was not published",
			"order_id", aggregate.ID().String(), "action", action, "error", err)
	}
}

func (o Observers) rejected(action string, err error) {
	if o.Recorder != nil {
		o.Recorder.Rejected(action, err)
	}
}

func (o Observers) transitioned(from, to order.Status, action order.ActionKind) {
	if o.Recorder != nil {
		o.Recorder.Transition(from, to, action)
	}
}

func (o Observers) adjusted(phase order.Phase, delta order.Delta, floored bool) {
	if o.Recorder != nil {
		o.Recorder.Adjustment(phase, delta, floored)
	}
}
