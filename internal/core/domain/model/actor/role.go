package actor

import (
	"fmt"
	"strings"

	"orderflow/internal/pkg/errs"
)

// Role is the tagged variant of every party that can read or act on an order.
//
// Code that branches on Role is expected to switch over every value; the
// exhaustive linter reports a missing case instead of silently falling through.
type Role int

const (
	// UnknownRole is the zero value and is never valid.
	UnknownRole Role = iota
	Customer
	Store
	Driver
	Admin
	// Guest is an unauthenticated caller. Guests may place orders and read
	// the orders they know identifiers of, but never act on them.
	Guest
)

func getRoleStrings() map[Role]string {
	return map[Role]string{
		UnknownRole: "unknown",
		Customer:    "customer",
		Store:       "store",
		Driver:      "driver",
		Admin:       "admin",
		Guest:       "guest",
	}
}

// Roles lists the valid roles in declaration order.
func Roles() []Role {
	return []Role{Customer, Store, Driver, Admin, Guest}
}

// ParseRole accepts the lower-case role name used in tokens and query strings.
func ParseRole(s string) (Role, error) {
	needle := strings.ToLower(strings.TrimSpace(s))
	for _, r := range Roles() {
		if r.String() == needle {
			return r, nil
		}
	}
	return UnknownRole, errs.NewValueIsInvalidErrorWithCause("role", fmt.Errorf("%q is not a known role", s))
}

func (r Role) String() string {
	if str, ok := getRoleStrings()[r]; ok {
		return str
	}
	return "unknown"
}

// Validate rejects UnknownRole and out-of-range values.
func (r Role) Validate() error {
	if r <= UnknownRole || r > Guest {
		return errs.NewValueIsInvalidErrorWithCause("role", fmt.Errorf("%d is not a valid role", r))
	}
	return nil
}

// RequiresIdentity reports whether actors of this role must carry an identifier.
func (r Role) RequiresIdentity() bool {
	//nolint:exhaustive // only the guest and the invalid sentinel are anonymous
	switch r {
	case Customer, Store, Driver, Admin:
		return true
	default:
		return false
	}
}
