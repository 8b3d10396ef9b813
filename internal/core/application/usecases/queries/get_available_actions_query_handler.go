package queries

import (
	"context"

	"orderflow/internal/core/domain/services"
	"orderflow/internal/core/ports"
)

type GetAvailableActionsQueryHandler struct {
	reader  ports.OrderReader
	gateway services.ActionGateway
}

func NewGetAvailableActionsQueryHandler(reader ports.OrderReader, gateway services.ActionGateway) GetAvailableActionsQueryHandler {
	return GetAvailableActionsQueryHandler{reader: reader, gateway: gateway}
}

// Handle returns the action set, sorted by kind. An order the actor can see
// but not act on yields an empty, non-nil set.
func (h GetAvailableActionsQueryHandler) Handle(
	ctx context.Context,
	query GetAvailableActionsQuery,
) ([]services.Availability, error) {
	if err := query.Validate(); err != nil {
		return nil, err
	}

	o, err := h.reader.Get(ctx, query.OrderID())
	if err != nil {
		return nil, err
	}
	if !h.gateway.CanView(query.Actor(), o) {
		return nil, notVisible(query.Actor(), o)
	}

	set := h.gateway.AvailableActions(query.Actor(), o)
	if set == nil {
		set = []services.Availability{}
	}
	return set, nil
}
