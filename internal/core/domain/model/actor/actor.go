package actor

import (
	"errors"
	"fmt"

	"orderflow/internal/core/domain/model/kernel"
	"orderflow/internal/pkg/errs"
	"orderflow/internal/pkg/guard"
)

var ErrActorIsNotConstructed = errors.New("Actor must be created via New or NewGuest")

// Actor is the resolved identity behind a request: a role and, for every
// role except Guest, the identifier of the customer, store, driver or admin.
type Actor struct {
	role  Role
	id    kernel.UUID
	guard guard.ConstructorGuard
}

// New builds an identified actor. Use NewGuest for anonymous callers.
func New(role Role, id kernel.UUID) (Actor, error) {
	if err := role.Validate(); err != nil {
		return Actor{}, err
	}
	if !role.RequiresIdentity() {
		return Actor{}, errs.NewValueIsInvalidErrorWithCause("actor", fmt.Errorf("%s does not carry an identifier", role))
	}
	if err := id.Validate(); err != nil {
		return Actor{}, errs.NewValueIsRequiredErrorWithCause("actor id", err)
	}

	return Actor{role: role, id: id, guard: guard.NewConstructorGuard()}, nil
}

// NewGuest returns the anonymous actor.
func NewGuest() Actor {
	return Actor{role: Guest, guard: guard.NewConstructorGuard()}
}

func (a Actor) Role() Role {
	return a.role
}

// ID returns the zero UUID for guests.
func (a Actor) ID() kernel.UUID {
	return a.id
}

func (a Actor) IsGuest() bool {
	return a.role == Guest
}

// Is reports whether the actor is the identified party id. Guests are nobody.
func (a Actor) Is(id kernel.UUID) bool {
	return !a.IsGuest() && !a.id.IsNil() && a.id.IsEqual(id)
}

// IsRef is Is for optional references such as an unassigned driver.
func (a Actor) IsRef(id *kernel.UUID) bool {
	return id != nil && a.Is(*id)
}

func (a Actor) Validate() error {
	return a.guard.Validate(ErrActorIsNotConstructed)
}

func (a Actor) String() string {
	if a.IsGuest() {
		return a.role.String()
	}
	return a.role.String() + ":" + a.id.String()
}
