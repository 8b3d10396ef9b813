package commands

import (
	"context"

	"orderflow/internal/core/domain/model/order"
	"orderflow/internal/core/domain/services"
)

// PlaceOrderCommandHandler persists new orders in the placed status.
type PlaceOrderCommandHandler struct {
	uowFactory OrderUoWFactory
	clock      services.Clock
	observers  Observers
}

func NewPlaceOrderCommandHandler(uowFactory OrderUoWFactory, clock services.Clock, observers Observers) PlaceOrderCommandHandler {
	return PlaceOrderCommandHandler{
		uowFactory: uowFactory,
		clock:      clock,
		observers:  observers,
	}
}

// Handle creates the order and returns it with version 1.
func (h *PlaceOrderCommandHandler) Handle(ctx context.Context, cmd PlaceOrderCommand) (*order.Order, error) {
	if err := cmd.Validate(); err != nil {
		return nil, err
	}

	now := h.clock.Now()
	placed, err := order.NewOrder(cmd.OrderID(), cmd.Details(), now)
	if err != nil {
		h.observers.rejected(placeAction, err)
		return nil, err
	}

	uow := h.uowFactory.Create()
	if err = uow.Begin(ctx); err != nil {
		return nil, err
	}

	defer func() {
		_ = uow.Rollback(ctx)
	}()

	if err = uow.OrderRepository().Add(ctx, placed); err != nil {
		return nil, err
	}

	if err = uow.Commit(ctx); err != nil {
		return nil, err
	}

	h.observers.updated(ctx, placed, placeAction, now)
	return placed, nil
}
