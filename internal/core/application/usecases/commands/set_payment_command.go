package commands

import (
	"errors"

	"orderflow/internal/core/domain/model/actor"
	"orderflow/internal/core/domain/model/kernel"
	"orderflow/internal/pkg/guard"
)

var ErrSetPaymentCommandIsNotConstructed = errors.New(
	"SetPaymentCommand must be created via NewSetPaymentCommand constructor",
)

// SetPaymentCommand marks an order as paid or unpaid.
type SetPaymentCommand struct { //nolint:recvcheck //using for validation
	actor   actor.Actor
	orderID kernel.UUID
	paid    bool

	guard guard.ConstructorGuard
}

func NewSetPaymentCommand(a actor.Actor, orderID kernel.UUID, paid bool) (SetPaymentCommand, error) {
	if err := errors.Join(a.Validate(), orderID.Validate()); err != nil {
		return SetPaymentCommand{}, err
	}

	return SetPaymentCommand{
		actor:   a,
		orderID: orderID,
		paid:    paid,
		guard:   guard.NewConstructorGuard(),
	}, nil
}

func (c SetPaymentCommand) Validate() error {
	return c.guard.Validate(ErrSetPaymentCommandIsNotConstructed)
}

func (c SetPaymentCommand) Actor() actor.Actor   { return c.actor }
func (c SetPaymentCommand) OrderID() kernel.UUID { return c.orderID }
func (c SetPaymentCommand) Paid() bool           { return c.paid }
