package services

import (
	"errors"
	"slices"

	"orderflow/internal/core/domain/model/actor"
	"orderflow/internal/core/domain/model/order"
	"orderflow/internal/pkg/errs"
)

var errNotOwner = errors.New("actor is not a party to the order")

// Availability is one entry of an actor's action set. A disabled entry is
// visible to the actor but is refused by the state machine, with Reason
// explaining why.
type Availability struct {
	Kind    order.ActionKind
	Enabled bool
	Reason  string
}

// ActionGateway derives which actions an actor may perform on an order and
// refuses everything else before it reaches the state machine.
//
// The derived set depends only on the actor's role and identity and on the
// order's status, driver, stateGiven, takeout flag, ownership and whether
// feedback exists. Identical inputs always produce the identical, kind-sorted set.
//
// Example:
//
//	gw := NewActionGateway()
//	for _, a := range gw.AvailableActions(driver, o) {
//	    fmt.Println(a.Kind, a.Enabled, a.Reason)
//	}
//	if err := gw.Authorize(driver, o, order.Pickup); err != nil {
//	    // errs.ErrPermissionDenied
//	}
type ActionGateway struct{}

func NewActionGateway() ActionGateway {
	return ActionGateway{}
}

// AvailableActions returns the action set of a for o, sorted by kind.
// An empty (nil) set means the actor can do nothing.
func (g ActionGateway) AvailableActions(a actor.Actor, o *order.Order) []Availability {
	if a.Validate() != nil || o.Validate() != nil {
		return nil
	}

	var set []Availability
	if o.Status().IsTerminal() {
		set = g.terminalActions(a, o)
	} else {
		switch a.Role() {
		case actor.Store:
			set = g.storeActions(a, o)
		case actor.Driver:
			set = g.driverActions(a, o)
		case actor.Customer:
			set = g.customerActions(a, o)
		case actor.Admin, actor.Guest, actor.UnknownRole:
			set = nil
		}
	}

	slices.SortFunc(set, func(x, y Availability) int { return int(x.Kind) - int(y.Kind) })
	return set
}

// terminalActions is the one-time feedback offered to the customer who
// received the order.
func (g ActionGateway) terminalActions(a actor.Actor, o *order.Order) []Availability {
	if a.Role() != actor.Customer || o.Status() != order.Received || o.Feedback() != nil {
		return nil
	}
	if !a.IsRef(o.Customer().ID()) {
		return nil
	}
	return []Availability{enabled(order.SubmitFeedback)}
}

func (g ActionGateway) storeActions(a actor.Actor, o *order.Order) []Availability {
	if !a.Is(o.Store()) {
		return nil
	}

	//nolint:exhaustive // the store has nothing to do in the remaining statuses
	switch o.Status() {
	case order.Placed:
		return []Availability{enabled(order.Accept), enabled(order.Reject)}
	case order.Accepted, order.AcceptedByDriver:
		return []Availability{enabled(order.Prepare), enabled(order.AdjustPrepare)}
	default:
		return nil
	}
}

func (g ActionGateway) driverActions(a actor.Actor, o *order.Order) []Availability {
	var set []Availability

	if o.Driver() == nil && o.StateGiven() == order.ByStore && o.IsTakeout() &&
		(o.Status() == order.Accepted || o.Status() == order.Prepared) {
		set = append(set, enabled(order.AcceptDriver))
	}

	if !a.IsRef(o.Driver()) {
		return set
	}

	//nolint:exhaustive // a driver has no actions before assignment or after delivery
	switch o.Status() {
	case order.Accepted:
		set = append(set, enabled(order.AdjustPickup))
	case order.AcceptedByDriver:
		set = append(set,
			Availability{Kind: order.Pickup, Reason: order.ErrNotYetPrepared.Error()},
			enabled(order.AdjustPickup),
		)
	case order.Prepared:
		set = append(set, enabled(order.Pickup))
	case order.PickedUp:
		set = append(set, enabled(order.Deliver), enabled(order.AdjustDeliver))
	}
	return set
}

func (g ActionGateway) customerActions(a actor.Actor, o *order.Order) []Availability {
	if !a.IsRef(o.Customer().ID()) {
		return nil
	}

	s := o.Status()
	if (!o.IsTakeout() && s == order.Prepared) || (o.IsTakeout() && (s == order.PickedUp || s == order.Delivered)) {
		return []Availability{enabled(order.Receive)}
	}
	return nil
}

// Permits reports whether kind is in a's action set, enabled or not.
func (g ActionGateway) Permits(a actor.Actor, o *order.Order, kind order.ActionKind) bool {
	return slices.ContainsFunc(g.AvailableActions(a, o), func(av Availability) bool { return av.Kind == kind })
}

// Authorize returns a PermissionDeniedError unless kind is in a's action set.
// Disabled entries pass: the state machine reports why they cannot run.
func (g ActionGateway) Authorize(a actor.Actor, o *order.Order, kind order.ActionKind) error {
	if err := o.Validate(); err != nil {
		return err
	}
	if !g.Permits(a, o, kind) {
		return errs.NewPermissionDeniedError(a.Role().String(), kind.String())
	}
	return nil
}

// CanSetPayment allows the owning store or an admin to toggle the paid flag
// of an open order. It is independent of the action set.
func (g ActionGateway) CanSetPayment(a actor.Actor, o *order.Order) error {
	if err := o.Validate(); err != nil {
		return err
	}
	if o.Status().IsTerminal() {
		return errs.NewInvalidTransitionError(o.Status().String(), "set_paid")
	}
	if a.Role() == actor.Admin || (a.Role() == actor.Store && a.Is(o.Store())) {
		return nil
	}
	return errs.NewPermissionDeniedErrorWithCause(a.Role().String(), "set_paid", errNotOwner)
}

// CanView reports whether a may read o. Drivers see the orders assigned to
// them and the open delivery orders they could accept. Guests track orders
// by id, so any id they know is readable.
func (g ActionGateway) CanView(a actor.Actor, o *order.Order) bool {
	if a.Validate() != nil || o.Validate() != nil {
		return false
	}

	switch a.Role() {
	case actor.Admin, actor.Guest:
		return true
	case actor.Store:
		return a.Is(o.Store())
	case actor.Customer:
		return a.IsRef(o.Customer().ID())
	case actor.Driver:
		return a.IsRef(o.Driver()) || g.Permits(a, o, order.AcceptDriver)
	case actor.UnknownRole:
		return false
	}
	return false
}

func enabled(kind order.ActionKind) Availability {
	return Availability{Kind: kind, Enabled: true}
}
