package commands

import (
	"context"

	"orderflow/internal/core/domain/model/order"
	"orderflow/internal/core/domain/services"
	"orderflow/internal/pkg/errs"
)

// PerformActionResult is the committed order and what happened to it.
type PerformActionResult struct {
	Order   *order.Order
	Outcome services.Outcome
}

// PerformActionCommandHandler runs one protocol action inside a unit of
// work. A refused action is never persisted and never published.
type PerformActionCommandHandler struct {
	uowFactory OrderUoWFactory
	machine    services.StateMachine
	clock      services.Clock
	observers  Observers
}

func NewPerformActionCommandHandler(
	uowFactory OrderUoWFactory,
	machine services.StateMachine,
	clock services.Clock,
	observers Observers,
) PerformActionCommandHandler {
	return PerformActionCommandHandler{
		uowFactory: uowFactory,
		machine:    machine,
		clock:      clock,
		observers:  observers,
	}
}

func (h *PerformActionCommandHandler) Handle(ctx context.Context, cmd PerformActionCommand) (PerformActionResult, error) {
	if err := cmd.Validate(); err != nil {
		return PerformActionResult{}, err
	}

	kind := cmd.Action().Kind()
	result, err := h.handle(ctx, cmd)
	if err != nil {
		h.observers.rejected(kind.String(), err)
		return PerformActionResult{}, err
	}

	out := result.Outcome
	if out.Transitioned() {
		h.observers.transitioned(out.From, out.To, kind)
	}
	if adj := out.Adjustment; adj != nil {
		h.observers.adjusted(adj.Phase, adj.Delta, adj.Floored())
	}
	h.observers.updated(ctx, result.Order, kind.String(), h.clock.Now())

	return result, nil
}

func (h *PerformActionCommandHandler) handle(ctx context.Context, cmd PerformActionCommand) (PerformActionResult, error) {
	uow := h.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return PerformActionResult{}, err
	}

	defer func() {
		_ = uow.Rollback(ctx)
	}()

	repo := uow.OrderRepository()
	o, err := repo.Get(ctx, cmd.OrderID())
	if err != nil {
		return PerformActionResult{}, err
	}

	if v := cmd.ExpectedVersion(); v != 0 && v != o.Version() {
		return PerformActionResult{}, errs.NewStaleStateError("order", o.ID().String())
	}

	out, err := h.machine.Perform(cmd.Actor(), o, cmd.Action(), h.clock.Now())
	if err != nil {
		return PerformActionResult{}, err
	}

	if err = repo.Update(ctx, o); err != nil {
		return PerformActionResult{}, err
	}

	if err = uow.Commit(ctx); err != nil {
		return PerformActionResult{}, err
	}

	return PerformActionResult{Order: o, Outcome: out}, nil
}
