package order

import (
	"errors"
	"fmt"
	"strings"

	"orderflow/internal/core/domain/model/kernel"
	"orderflow/internal/pkg/errs"
)

// Customer is the snapshot of the ordering party taken at placement.
// Guest orders have no customer identifier.
type Customer struct {
	id       *kernel.UUID
	name     string
	username string
}

// NewCustomer builds the snapshot of a registered customer.
func NewCustomer(id kernel.UUID, name, username string) (Customer, error) {
	if err := id.Validate(); err != nil {
		return Customer{}, errs.NewValueIsRequiredErrorWithCause("customer id", err)
	}
	c := Customer{id: &id}
	if err := c.setNames(name, username); err != nil {
		return Customer{}, err
	}
	return c, nil
}

// NewGuestCustomer builds the snapshot of an anonymous customer. A display
// name is still required so the store can call the order out.
func NewGuestCustomer(name string) (Customer, error) {
	c := Customer{}
	if err := c.setNames(name, ""); err != nil {
		return Customer{}, err
	}
	return c, nil
}

func (c *Customer) setNames(name, username string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return errs.NewValueIsRequiredError("customer name")
	}
	c.name = name
	c.username = strings.TrimSpace(username)
	return nil
}

// ID is nil for guests.
func (c Customer) ID() *kernel.UUID {
	if c.id == nil {
		return nil
	}
	id := *c.id
	return &id
}

func (c Customer) Name() string {
	return c.name
}

func (c Customer) Username() string {
	return c.username
}

func (c Customer) IsGuest() bool {
	return c.id == nil
}

// Item is one line of an order.
type Item struct {
	name     string
	quantity int
}

func NewItem(name string, quantity int) (Item, error) {
	name = strings.TrimSpace(name)
	var nameErr, qtyErr error
	if name == "" {
		nameErr = errs.NewValueIsRequiredError("item name")
	}
	if quantity <= 0 {
		qtyErr = errs.NewValueIsInvalidErrorWithCause("item quantity", fmt.Errorf("%d is not greater than 0", quantity))
	}
	if err := errors.Join(nameErr, qtyErr); err != nil {
		return Item{}, err
	}
	return Item{name: name, quantity: quantity}, nil
}

func (i Item) Name() string {
	return i.name
}

func (i Item) Quantity() int {
	return i.quantity
}
