// Package ports defines the contracts between the order lifecycle core and
// the infrastructure that stores orders and distributes their updates.
package ports

import (
	"context"

	"orderflow/internal/core/domain/model/actor"
	"orderflow/internal/core/domain/model/kernel"
	"orderflow/internal/core/domain/model/order"
)

// OrderRepository defines the persistence contract for order aggregates.
type OrderRepository interface {
	// Add persists a newly placed order.
	Add(ctx context.Context, aggregate *order.Order) error

	// Update persists changes to an existing order. The write succeeds only
	// if the stored version still equals aggregate.Version(); the aggregate's
	// version is advanced once the unit of work commits. A lost race yields
	// errs.StaleStateError.
	Update(ctx context.Context, aggregate *order.Order) error

	// Get retrieves an order by id or returns errs.ObjectNotFoundError.
	Get(ctx context.Context, id kernel.UUID) (*order.Order, error)

	// GetMany retrieves the orders that exist among ids. Missing ids are
	// skipped; the result follows the order of ids.
	GetMany(ctx context.Context, ids []kernel.UUID) ([]*order.Order, error)
}

// ListScope narrows a listing to the orders a viewer may see. Statuses and
// IDs are pushed down to storage; the remaining criteria run in memory.
type ListScope struct {
	Viewer   actor.Actor
	Statuses []order.Status

	// IDs restricts the listing to known orders. Guests can only list by id.
	IDs []kernel.UUID

	Limit  uint64
	Offset uint64
}

// OrderReader is the read side used by queries. It reads committed state
// outside any unit of work.
//
// List results are newest first. Scopes per role:
//   - store: orders of that store
//   - driver: orders assigned to the driver plus unassigned delivery orders
//     a driver could accept
//   - customer: the customer's own orders
//   - admin: every order
//   - guest: only the ids in the scope
type OrderReader interface {
	List(ctx context.Context, scope ListScope) ([]*order.Order, error)

	// Get and GetMany behave like their OrderRepository counterparts.
	Get(ctx context.Context, id kernel.UUID) (*order.Order, error)
	GetMany(ctx context.Context, ids []kernel.UUID) ([]*order.Order, error)
}
