package commands

import (
	"errors"
	"slices"

	"orderflow/internal/core/domain/model/actor"
	"orderflow/internal/core/domain/model/kernel"
	"orderflow/internal/core/domain/model/order"
	"orderflow/internal/pkg/errs"
	"orderflow/internal/pkg/guard"
)

var ErrSubmitFeedbackCommandIsNotConstructed = errors.New(
	"SubmitFeedbackCommand must be created via NewSubmitFeedbackCommand constructor",
)

// SubmitFeedbackCommand carries a customer's review of a received order.
// The feedback itself is built by the handler, stamped with the commit time.
type SubmitFeedbackCommand struct { //nolint:recvcheck //using for validation
	actor     actor.Actor
	orderID   kernel.UUID
	rating    int
	comment   string
	reactions []order.Reaction

	guard guard.ConstructorGuard
}

func NewSubmitFeedbackCommand(
	a actor.Actor,
	orderID kernel.UUID,
	rating int,
	comment string,
	reactions []order.Reaction,
) (SubmitFeedbackCommand, error) {
	cmd := SubmitFeedbackCommand{
		comment:   comment,
		reactions: slices.Clone(reactions),
		guard:     guard.NewConstructorGuard(),
	}

	if err := errors.Join(
		a.Validate(),
		orderID.Validate(),
		cmd.setRating(rating),
	); err != nil {
		return SubmitFeedbackCommand{}, err
	}
	cmd.actor = a
	cmd.orderID = orderID

	return cmd, nil
}

func (c SubmitFeedbackCommand) Validate() error {
	return c.guard.Validate(ErrSubmitFeedbackCommandIsNotConstructed)
}

func (c SubmitFeedbackCommand) Actor() actor.Actor          { return c.actor }
func (c SubmitFeedbackCommand) OrderID() kernel.UUID        { return c.orderID }
func (c SubmitFeedbackCommand) Rating() int                 { return c.rating }
func (c SubmitFeedbackCommand) Comment() string             { return c.comment }
func (c SubmitFeedbackCommand) Reactions() []order.Reaction { return slices.Clone(c.reactions) }

func (c *SubmitFeedbackCommand) setRating(rating int) error {
	if rating < order.MinRating || rating > order.MaxRating {
		return errs.NewValueIsOutOfRangeError("rating", rating, order.MinRating, order.MaxRating)
	}
	c.rating = rating
	return nil
}
