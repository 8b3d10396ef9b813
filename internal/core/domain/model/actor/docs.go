// Package actor models who is acting on an order.
//
// Role is a closed set of variants (customer, store, driver, admin, guest)
// and Actor pairs a role with the party identifier taken from the caller's
// credentials. Ownership checks across the domain go through Actor.Is so
// that guests never match any party.
package actor
