package queries

import (
	"errors"

	"orderflow/internal/core/domain/model/actor"
	"orderflow/internal/core/domain/model/kernel"
	"orderflow/internal/pkg/guard"
)

var ErrGetAvailableActionsQueryIsNotConstructed = errors.New(
	"GetAvailableActionsQuery must be created via NewGetAvailableActionsQuery constructor",
)

// GetAvailableActionsQuery asks which actions an actor may take on an order.
type GetAvailableActionsQuery struct {
	actor   actor.Actor
	orderID kernel.UUID

	guard guard.ConstructorGuard
}

func NewGetAvailableActionsQuery(a actor.Actor, orderID kernel.UUID) (GetAvailableActionsQuery, error) {
	if err := errors.Join(a.Validate(), orderID.Validate()); err != nil {
		return GetAvailableActionsQuery{}, err
	}
	return GetAvailableActionsQuery{actor: a, orderID: orderID, guard: guard.NewConstructorGuard()}, nil
}

func (q GetAvailableActionsQuery) Validate() error {
	return q.guard.Validate(ErrGetAvailableActionsQueryIsNotConstructed)
}

func (q GetAvailableActionsQuery) Actor() actor.Actor   { return q.actor }
func (q GetAvailableActionsQuery) OrderID() kernel.UUID { return q.orderID }
