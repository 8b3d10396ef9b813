package commands

import (
	"errors"

	"orderflow/internal/core/domain/model/actor"
	"orderflow/internal/core/domain/model/kernel"
	"orderflow/internal/core/domain/model/order"
	"orderflow/internal/pkg/errs"
	"orderflow/internal/pkg/guard"
)

var (
	ErrPlaceOrderCommandIsNotConstructed = errors.New(
		"PlaceOrderCommand must be created via NewPlaceOrderCommand constructor",
	)
	ErrCustomerMismatch = errors.New("customer does not match the caller")
)

// PlaceOrderCommand represents a customer or a guest placing an order.
//
// Example:
//
//	customer, _ := order.NewCustomer(caller.ID(), "Sara", "sara")
//	cmd, err := NewPlaceOrderCommand(kernel.NewUUID(), caller, order.Details{
//	    Customer: customer, Store: storeID, Amount: amount, DeliveryFee: fee,
//	    IsTakeout: true, Items: items,
//	})
//	if err != nil {
//	    return fmt.Errorf("invalid order: %w", err)
//	}
//	placed, err := handler.Handle(ctx, cmd)
type PlaceOrderCommand struct { //nolint:recvcheck //using for validation
	orderID  kernel.UUID
	placedBy actor.Actor
	details  order.Details

	guard guard.ConstructorGuard
}

// NewPlaceOrderCommand checks that the caller may place the order: a
// customer orders for itself, a guest places a guest order.
func NewPlaceOrderCommand(orderID kernel.UUID, placedBy actor.Actor, details order.Details) (PlaceOrderCommand, error) {
	cmd := PlaceOrderCommand{
		guard: guard.NewConstructorGuard(),
	}

	if err := errors.Join(
		cmd.setOrderID(orderID),
		cmd.setPlacedBy(placedBy, details.Customer),
	); err != nil {
		return PlaceOrderCommand{}, err
	}
	cmd.details = details

	return cmd, nil
}

func (c PlaceOrderCommand) Validate() error {
	return c.guard.Validate(ErrPlaceOrderCommandIsNotConstructed)
}

func (c PlaceOrderCommand) OrderID() kernel.UUID {
	return c.orderID
}

func (c PlaceOrderCommand) PlacedBy() actor.Actor {
	return c.placedBy
}

func (c PlaceOrderCommand) Details() order.Details {
	return c.details
}

func (c *PlaceOrderCommand) setOrderID(orderID kernel.UUID) error {
	if err := orderID.Validate(); err != nil {
		return err
	}

	c.orderID = orderID
	return nil
}

func (c *PlaceOrderCommand) setPlacedBy(a actor.Actor, customer order.Customer) error {
	if err := a.Validate(); err != nil {
		return err
	}

	//nolint:exhaustive // every other role is refused below
	switch a.Role() {
	case actor.Customer:
		if !a.IsRef(customer.ID()) {
			return errs.NewPermissionDeniedErrorWithCause(a.Role().String(), placeAction, ErrCustomerMismatch)
		}
	case actor.Guest:
		if !customer.IsGuest() {
			return errs.NewPermissionDeniedErrorWithCause(a.Role().String(), placeAction, ErrCustomerMismatch)
		}
	default:
		return errs.NewPermissionDeniedError(a.Role().String(), placeAction)
	}

	c.placedBy = a
	return nil
}
