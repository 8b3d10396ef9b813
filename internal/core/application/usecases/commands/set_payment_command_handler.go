package commands

import (
	"context"

	"orderflow/internal/core/domain/model/order"
	"orderflow/internal/core/domain/services"
)

// SetPaymentCommandHandler toggles the paid flag. Setting the flag to the
// value it already has succeeds without writing or publishing anything.
type SetPaymentCommandHandler struct {
	uowFactory OrderUoWFactory
	gateway    services.ActionGateway
	clock      services.Clock
	observers  Observers
}

func NewSetPaymentCommandHandler(
	uowFactory OrderUoWFactory,
	gateway services.ActionGateway,
	clock services.Clock,
	observers Observers,
) SetPaymentCommandHandler {
	return SetPaymentCommandHandler{
		uowFactory: uowFactory,
		gateway:    gateway,
		clock:      clock,
		observers:  observers,
	}
}

func (h *SetPaymentCommandHandler) Handle(ctx context.Context, cmd SetPaymentCommand) (*order.Order, error) {
	if err := cmd.Validate(); err != nil {
		return nil, err
	}

	o, changed, err := h.handle(ctx, cmd)
	if err != nil {
		h.observers.rejected(setPaidAction, err)
		return nil, err
	}

	if changed {
		h.observers.updated(ctx, o, setPaidAction, h.clock.Now())
	}
	return o, nil
}

func (h *SetPaymentCommandHandler) handle(ctx context.Context, cmd SetPaymentCommand) (*order.Order, bool, error) {
	uow := h.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return nil, false, err
	}

	defer func() {
		_ = uow.Rollback(ctx)
	}()

	repo := uow.OrderRepository()
	o, err := repo.Get(ctx, cmd.OrderID())
	if err != nil {
		return nil, false, err
	}

	if err = h.gateway.CanSetPayment(cmd.Actor(), o); err != nil {
		return nil, false, err
	}

	changed, err := o.SetPaid(cmd.Paid())
	if err != nil || !changed {
		return o, false, err
	}

	if err = repo.Update(ctx, o); err != nil {
		return nil, false, err
	}

	if err = uow.Commit(ctx); err != nil {
		return nil, false, err
	}

	return o, true, nil
}
