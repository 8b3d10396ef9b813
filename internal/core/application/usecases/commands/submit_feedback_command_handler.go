package commands

import (
	"context"
	"time"

	"orderflow/internal/core/domain/model/order"
	"orderflow/internal/core/domain/services"
)

// SubmitFeedbackCommandHandler attaches write-once feedback to a received order.
type SubmitFeedbackCommandHandler struct {
	uowFactory OrderUoWFactory
	machine    services.StateMachine
	clock      services.Clock
	observers  Observers
}

func NewSubmitFeedbackCommandHandler(
	uowFactory OrderUoWFactory,
	machine services.StateMachine,
	clock services.Clock,
	observers Observers,
) SubmitFeedbackCommandHandler {
	return SubmitFeedbackCommandHandler{
		uowFactory: uowFactory,
		machine:    machine,
		clock:      clock,
		observers:  observers,
	}
}

func (h *SubmitFeedbackCommandHandler) Handle(ctx context.Context, cmd SubmitFeedbackCommand) (*order.Order, error) {
	if err := cmd.Validate(); err != nil {
		return nil, err
	}

	now := h.clock.Now()
	o, err := h.handle(ctx, cmd, now)
	if err != nil {
		h.observers.rejected(order.SubmitFeedback.String(), err)
		return nil, err
	}

	h.observers.updated(ctx, o, order.SubmitFeedback.String(), now)
	return o, nil
}

func (h *SubmitFeedbackCommandHandler) handle(ctx context.Context, cmd SubmitFeedbackCommand, now time.Time) (*order.Order, error) {
	feedback, err := order.NewFeedback(cmd.Rating(), cmd.Comment(), cmd.Reactions(), now)
	if err != nil {
		return nil, err
	}

	uow := h.uowFactory.Create()
	if err = uow.Begin(ctx); err != nil {
		return nil, err
	}

	defer func() {
		_ = uow.Rollback(ctx)
	}()

	repo := uow.OrderRepository()
	o, err := repo.Get(ctx, cmd.OrderID())
	if err != nil {
		return nil, err
	}

	if err = h.machine.SubmitFeedback(cmd.Actor(), o, feedback); err != nil {
		return nil, err
	}

	if err = repo.Update(ctx, o); err != nil {
		return nil, err
	}

	if err = uow.Commit(ctx); err != nil {
		return nil, err
	}

	return o, nil
}
