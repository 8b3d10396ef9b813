package queries

import (
	"context"

	"orderflow/internal/core/domain/model/order"
	"orderflow/internal/core/domain/services"
	"orderflow/internal/core/ports"
)

// OrderView is an order together with what the viewer can do with it and
// its progress at the time of the read.
type OrderView struct {
	Order    *order.Order
	Actions  []services.Availability
	Progress services.OrderProgress
}

type GetOrderQueryHandler struct {
	reader  ports.OrderReader
	gateway services.ActionGateway
	engine  services.ProgressEngine
	clock   services.Clock
}

func NewGetOrderQueryHandler(
	reader ports.OrderReader,
	gateway services.ActionGateway,
	engine services.ProgressEngine,
	clock services.Clock,
) GetOrderQueryHandler {
	return GetOrderQueryHandler{reader: reader, gateway: gateway, engine: engine, clock: clock}
}

// Handle returns errs.ObjectNotFoundError for unknown ids and
// errs.PermissionDeniedError for orders the actor may not see.
func (h GetOrderQueryHandler) Handle(ctx context.Context, query GetOrderQuery) (OrderView, error) {
	if err := query.Validate(); err != nil {
		return OrderView{}, err
	}

	o, err := h.reader.Get(ctx, query.OrderID())
	if err != nil {
		return OrderView{}, err
	}
	if !h.gateway.CanView(query.Actor(), o) {
		return OrderView{}, notVisible(query.Actor(), o)
	}

	return OrderView{
		Order:    o,
		Actions:  h.gateway.AvailableActions(query.Actor(), o),
		Progress: h.engine.Compute(o, h.clock.Now()),
	}, nil
}
