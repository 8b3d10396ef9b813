package queries

import (
	"errors"

	"orderflow/internal/core/domain/model/actor"
	"orderflow/internal/core/domain/model/kernel"
	"orderflow/internal/core/domain/services"
	"orderflow/internal/pkg/errs"
	"orderflow/internal/pkg/guard"
)

const (
	DefaultListLimit = 50
	MaxListLimit     = 500
)

var ErrListOrdersQueryIsNotConstructed = errors.New(
	"ListOrdersQuery must be created via NewListOrdersQuery constructor",
)

// ListOrdersQuery is a role-scoped listing narrowed by filter criteria.
// Guests have no listing of their own and must name the orders they track.
type ListOrdersQuery struct {
	actor    actor.Actor
	criteria services.Criteria
	ids      []kernel.UUID
	limit    uint64
	offset   uint64

	guard guard.ConstructorGuard
}

// NewListOrdersQuery builds the query. A zero limit means DefaultListLimit.
func NewListOrdersQuery(
	a actor.Actor,
	criteria services.Criteria,
	ids []kernel.UUID,
	limit, offset uint64,
) (ListOrdersQuery, error) {
	q := ListOrdersQuery{
		actor:    a,
		criteria: criteria,
		offset:   offset,
		guard:    guard.NewConstructorGuard(),
	}

	errList := []error{a.Validate(), criteria.Validate(), q.setLimit(limit)}
	for _, id := range ids {
		errList = append(errList, id.Validate())
	}
	if a.IsGuest() && len(ids) == 0 {
		errList = append(errList, errs.NewValueIsRequiredError("ids"))
	}
	if err := errors.Join(errList...); err != nil {
		return ListOrdersQuery{}, err
	}

	q.ids = append([]kernel.UUID(nil), ids...)
	return q, nil
}

func (q *ListOrdersQuery) setLimit(limit uint64) error {
	switch {
	case limit == 0:
		q.limit = DefaultListLimit
	case limit > MaxListLimit:
		return errs.NewValueIsOutOfRangeError("limit", limit, 1, MaxListLimit)
	default:
		q.limit = limit
	}
	return nil
}

func (q ListOrdersQuery) Validate() error {
	return q.guard.Validate(ErrListOrdersQueryIsNotConstructed)
}

func (q ListOrdersQuery) Actor() actor.Actor          { return q.actor }
func (q ListOrdersQuery) Criteria() services.Criteria { return q.criteria }
func (q ListOrdersQuery) IDs() []kernel.UUID          { return append([]kernel.UUID(nil), q.ids...) }
func (q ListOrdersQuery) Limit() uint64               { return q.limit }
func (q ListOrdersQuery) Offset() uint64              { return q.offset }
