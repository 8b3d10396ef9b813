package commands

import (
	"errors"

	"orderflow/internal/core/domain/model/actor"
	"orderflow/internal/core/domain/model/kernel"
	"orderflow/internal/core/domain/model/order"
	"orderflow/internal/pkg/errs"
	"orderflow/internal/pkg/guard"
)

var ErrPerformActionCommandIsNotConstructed = errors.New(
	"PerformActionCommand must be created via NewPerformActionCommand constructor",
)

// PerformActionCommand asks for one action of the order protocol on behalf
// of an actor: a transition or a time adjustment.
//
// ExpectedVersion is the order version the caller last saw. When set, a
// newer stored version fails the command with errs.StaleStateError before
// permissions are checked, so the caller re-fetches instead of acting on
// an outdated action set.
type PerformActionCommand struct { //nolint:recvcheck //using for validation
	actor           actor.Actor
	orderID         kernel.UUID
	action          order.Action
	expectedVersion int64

	guard guard.ConstructorGuard
}

// NewPerformActionCommand builds the command. expectedVersion 0 skips the
// version check.
func NewPerformActionCommand(
	a actor.Actor,
	orderID kernel.UUID,
	action order.Action,
	expectedVersion int64,
) (PerformActionCommand, error) {
	cmd := PerformActionCommand{
		guard: guard.NewConstructorGuard(),
	}

	if err := errors.Join(
		cmd.setActor(a),
		cmd.setOrderID(orderID),
		cmd.setAction(action),
		cmd.setExpectedVersion(expectedVersion),
	); err != nil {
		return PerformActionCommand{}, err
	}

	return cmd, nil
}

func (c PerformActionCommand) Validate() error {
	return c.guard.Validate(ErrPerformActionCommandIsNotConstructed)
}

func (c PerformActionCommand) Actor() actor.Actor     { return c.actor }
func (c PerformActionCommand) OrderID() kernel.UUID   { return c.orderID }
func (c PerformActionCommand) Action() order.Action   { return c.action }
func (c PerformActionCommand) ExpectedVersion() int64 { return c.expectedVersion }

func (c *PerformActionCommand) setActor(a actor.Actor) error {
	if err := a.Validate(); err != nil {
		return err
	}
	c.actor = a
	return nil
}

func (c *PerformActionCommand) setOrderID(id kernel.UUID) error {
	if err := id.Validate(); err != nil {
		return err
	}
	c.orderID = id
	return nil
}

func (c *PerformActionCommand) setAction(action order.Action) error {
	if err := action.Validate(); err != nil {
		return err
	}
	if action.Kind() == order.SubmitFeedback {
		return errs.NewValueIsInvalidErrorWithCause("action", errors.New("feedback is submitted with SubmitFeedbackCommand"))
	}
	c.action = action
	return nil
}

func (c *PerformActionCommand) setExpectedVersion(v int64) error {
	if v < 0 {
		return errs.NewVersionIsInvalidError("expectedVersion")
	}
	c.expectedVersion = v
	return nil
}
