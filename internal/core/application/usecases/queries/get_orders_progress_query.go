package queries

import (
	"errors"

	"orderflow/internal/core/domain/model/actor"
	"orderflow/internal/core/domain/model/kernel"
	"orderflow/internal/pkg/errs"
	"orderflow/internal/pkg/guard"
)

var ErrGetOrdersProgressQueryIsNotConstructed = errors.New(
	"GetOrdersProgressQuery must be created via NewGetOrdersProgressQuery constructor",
)

// GetOrdersProgressQuery is the batch refresh of a client's visible orders.
// Duplicate ids are dropped; the first occurrence keeps its position.
type GetOrdersProgressQuery struct {
	actor actor.Actor
	ids   []kernel.UUID

	guard guard.ConstructorGuard
}

func NewGetOrdersProgressQuery(a actor.Actor, ids []kernel.UUID) (GetOrdersProgressQuery, error) {
	if len(ids) == 0 {
		return GetOrdersProgressQuery{}, errors.Join(a.Validate(), errs.NewValueIsRequiredError("ids"))
	}

	errList := []error{a.Validate()}
	seen := make(map[kernel.UUID]struct{}, len(ids))
	unique := make([]kernel.UUID, 0, len(ids))
	for _, id := range ids {
		if err := id.Validate(); err != nil {
			errList = append(errList, err)
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		unique = append(unique, id)
	}
	if err := errors.Join(errList...); err != nil {
		return GetOrdersProgressQuery{}, err
	}

	return GetOrdersProgressQuery{actor: a, ids: unique, guard: guard.NewConstructorGuard()}, nil
}

func (q GetOrdersProgressQuery) Validate() error {
	return q.guard.Validate(ErrGetOrdersProgressQueryIsNotConstructed)
}

func (q GetOrdersProgressQuery) Actor() actor.Actor { return q.actor }

func (q GetOrdersProgressQuery) IDs() []kernel.UUID {
	out := make([]kernel.UUID, len(q.ids))
	copy(out, q.ids)
	return out
}
