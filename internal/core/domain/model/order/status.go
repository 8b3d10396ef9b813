package order

import (
	"fmt"

	"orderflow/internal/pkg/errs"
)

// Status represents the lifecycle state of an order.
//
// State transitions:
//
//	Placed           ──accept──────────> Accepted
//	Placed           ──reject──────────> Rejected
//	Accepted         ──accept_driver───> AcceptedByDriver
//	Accepted         ──prepare─────────> Prepared
//	AcceptedByDriver ──prepare─────────> Prepared
//	Prepared         ──pickup──────────> PickedUp    (delivery orders)
//	PickedUp         ──deliver─────────> Delivered
//	Prepared         ──receive─────────> Received    (in-store orders)
//	PickedUp         ──receive─────────> Received
//	Delivered        ──receive─────────> Received
//
// Received and Rejected are terminal. Status is a value object: transition
// methods never mutate the receiver and return the next status or an
// errs.InvalidTransitionError.
type Status int

const (
	// Unknown represents an invalid or undefined status.
	// This value (0) helps catch uninitialized Status values.
	Unknown Status = iota

	// Placed is the initial status; the store has not answered yet.
	Placed

	// Accepted means the store took the order and preparation is running.
	Accepted

	// AcceptedByDriver means a driver assigned themself while the store is still preparing.
	AcceptedByDriver

	// Prepared means the store finished preparation.
	Prepared

	// PickedUp means the driver collected a delivery order from the store.
	PickedUp

	// Delivered means the driver handed the order over at the destination.
	Delivered

	// Received is terminal: the customer confirmed the order.
	Received

	// Rejected is terminal: the store declined the order.
	Rejected
)

// StatusInfo is the display metadata registered for a status.
type StatusInfo struct {
	Code  string
	Label string
	Color string
}

func getStatusRegistry() map[Status]StatusInfo {
	return map[Status]StatusInfo{
		Unknown:          {Code: "unknown", Label: "Unknown", Color: "#9e9e9e"},
		Placed:           {Code: "placed", Label: "Placed", Color: "#607d8b"},
		Accepted:         {Code: "accepted", Label: "Accepted", Color: "#1976d2"},
		AcceptedByDriver: {Code: "accepted-by-driver", Label: "Accepted by driver", Color: "#7b1fa2"},
		Prepared:         {Code: "prepared", Label: "Prepared", Color: "#f9a825"},
		PickedUp:         {Code: "pickedup", Label: "Picked up", Color: "#ef6c00"},
		Delivered:        {Code: "delivered", Label: "Delivered", Color: "#00897b"},
		Received:         {Code: "received", Label: "Received", Color: "#2e7d32"},
		Rejected:         {Code: "rejected", Label: "Rejected", Color: "#c62828"},
	}
}

// Statuses lists every valid status in lifecycle order.
func Statuses() []Status {
	return []Status{Placed, Accepted, AcceptedByDriver, Prepared, PickedUp, Delivered, Received, Rejected}
}

// ParseStatus maps a wire code such as "accepted-by-driver" to its Status.
func ParseStatus(code string) (Status, error) {
	for _, s := range Statuses() {
		if getStatusRegistry()[s].Code == code {
			return s, nil
		}
	}
	return Unknown, errs.NewValueIsInvalidErrorWithCause("status is invalid", fmt.Errorf("%q is not a valid status", code))
}

// Validate checks if the Status value is one of the registered statuses.
// Unknown (0) and any other values are invalid.
func (s Status) Validate() error {
	if s <= Unknown || s > Rejected {
		return errs.NewValueIsInvalidErrorWithCause("status is invalid", fmt.Errorf("%d is not a valid status", s))
	}
	return nil
}

// String returns the wire code of the status, "unknown" for invalid values.
func (s Status) String() string {
	return s.Info().Code
}

// Info returns the registered display metadata. Invalid values get Unknown's.
func (s Status) Info() StatusInfo {
	if info, ok := getStatusRegistry()[s]; ok {
		return info
	}
	return getStatusRegistry()[Unknown]
}

// Label is the human readable name of the status.
func (s Status) Label() string {
	return s.Info().Label
}

// Color is the hex color used to render the status.
func (s Status) Color() string {
	return s.Info().Color
}

// IsTerminal reports whether no transition leaves s.
func (s Status) IsTerminal() bool {
	return s == Received || s == Rejected
}

func (s Status) invalid(action string) error {
	return errs.NewInvalidTransitionError(s.String(), action)
}

// Accept moves Placed to Accepted.
func (s Status) Accept() (Status, error) {
	if s != Placed {
		return Unknown, s.invalid("accept")
	}
	return Accepted, nil
}

// Reject moves Placed to Rejected.
func (s Status) Reject() (Status, error) {
	if s != Placed {
		return Unknown, s.invalid("reject")
	}
	return Rejected, nil
}

// Prepare completes preparation from Accepted or AcceptedByDriver.
func (s Status) Prepare() (Status, error) {
	if s != Accepted && s != AcceptedByDriver {
		return Unknown, s.invalid("prepare")
	}
	return Prepared, nil
}

// AcceptDriver records driver self-assignment. From Accepted the order moves
// to AcceptedByDriver; a Prepared order keeps its status.
func (s Status) AcceptDriver() (Status, error) {
	//nolint:exhaustive // every other status is rejected below
	switch s {
	case Accepted:
		return AcceptedByDriver, nil
	case Prepared:
		return Prepared, nil
	default:
		return Unknown, s.invalid("accept_driver")
	}
}

// Pickup moves Prepared to PickedUp. A pickup from AcceptedByDriver is
// premature and fails with a "not yet prepared" cause.
func (s Status) Pickup() (Status, error) {
	//nolint:exhaustive // every other status is rejected below
	switch s {
	case Prepared:
		return PickedUp, nil
	case AcceptedByDriver:
		return Unknown, errs.NewInvalidTransitionErrorWithCause(s.String(), "pickup", ErrNotYetPrepared)
	default:
		return Unknown, s.invalid("pickup")
	}
}

// Deliver moves PickedUp to Delivered.
func (s Status) Deliver() (Status, error) {
	if s != PickedUp {
		return Unknown, s.invalid("deliver")
	}
	return Delivered, nil
}

// Receive closes the order. In-store orders are received once prepared;
// delivery orders once picked up or delivered.
func (s Status) Receive(isTakeout bool) (Status, error) {
	switch {
	case !isTakeout && s == Prepared:
		return Received, nil
	case isTakeout && (s == PickedUp || s == Delivered):
		return Received, nil
	default:
		return Unknown, s.invalid("receive")
	}
}
