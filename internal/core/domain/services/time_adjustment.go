package services

import (
	"fmt"
	"time"

	"orderflow/internal/core/domain/model/actor"
	"orderflow/internal/core/domain/model/order"
	"orderflow/internal/pkg/errs"
)

// Adjustment describes one applied estimate change.
type Adjustment struct {
	Phase     order.Phase
	Delta     order.Delta
	Previous  time.Time
	Estimated time.Time
}

// Floored reports whether the floor at the time of the change cut the delta short.
func (a Adjustment) Floored() bool {
	return a.Estimated.Sub(a.Previous) != a.Delta.Duration()
}

// TimeAdjustmentManager applies manual estimate changes. Only the owner of
// a phase may adjust it (the store for prepare, the assigned driver for
// pickup and deliver) and only while the phase is running. Each change is
// independent; apart from the floor at now there is no bound on the
// cumulative drift.
type TimeAdjustmentManager struct {
	gateway ActionGateway
}

func NewTimeAdjustmentManager(gateway ActionGateway) TimeAdjustmentManager {
	return TimeAdjustmentManager{gateway: gateway}
}

// Adjust authorizes a for the adjustment action and applies it at now.
func (m TimeAdjustmentManager) Adjust(a actor.Actor, o *order.Order, action order.Action, now time.Time) (Adjustment, error) {
	if err := action.Validate(); err != nil {
		return Adjustment{}, err
	}
	if err := m.gateway.Authorize(a, o, action.Kind()); err != nil {
		return Adjustment{}, err
	}
	return m.apply(o, action, now)
}

func (m TimeAdjustmentManager) apply(o *order.Order, action order.Action, now time.Time) (Adjustment, error) {
	if !action.Kind().IsAdjustment() {
		return Adjustment{}, errs.NewValueIsInvalidErrorWithCause("action", fmt.Errorf("%s is not an adjustment", action.Kind()))
	}

	previous, estimated, err := o.AdjustPhase(action.Phase(), action.Delta(), now)
	if err != nil {
		return Adjustment{}, err
	}

	return Adjustment{
		Phase:     action.Phase(),
		Delta:     action.Delta(),
		Previous:  previous,
		Estimated: estimated,
	}, nil
}
