// Package queries contains the read operations. Queries never open a unit
// of work; they read committed state through ports.OrderReader and decide
// visibility with the same gateway the commands authorize with.
package queries

import (
	"orderflow/internal/core/domain/model/actor"
	"orderflow/internal/core/domain/model/order"
	"orderflow/internal/pkg/errs"
)

// BatchRecorder observes the size of batch progress requests.
type BatchRecorder interface {
	ProgressBatch(size int)
}

const viewAction = "view"

func notVisible(a actor.Actor, o *order.Order) error {
	return errs.NewPermissionDeniedError(a.Role().String(), viewAction+" order "+o.ID().String())
}
