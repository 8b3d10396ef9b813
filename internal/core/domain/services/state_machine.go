package services

import (
	"errors"
	"fmt"
	"time"

	"orderflow/internal/core/domain/model/actor"
	"orderflow/internal/core/domain/model/order"
	"orderflow/internal/pkg/errs"
)

// PhaseTargets are the initial durations of each phase. The estimate of a
// phase is its start plus the target until someone adjusts it.
type PhaseTargets struct {
	Prepare time.Duration
	Pickup  time.Duration
	Deliver time.Duration
}

func DefaultPhaseTargets() PhaseTargets {
	return PhaseTargets{
		Prepare: 20 * time.Minute,
		Pickup:  10 * time.Minute,
		Deliver: 25 * time.Minute,
	}
}

func (t PhaseTargets) Validate() error {
	check := func(name string, d time.Duration) error {
		if d <= 0 {
			return errs.NewValueIsInvalidErrorWithCause(name+" target", fmt.Errorf("%s is not positive", d))
		}
		return nil
	}
	return errors.Join(
		check("prepare", t.Prepare),
		check("pickup", t.Pickup),
		check("deliver", t.Deliver),
	)
}

// Outcome is the observable effect of one performed action.
type Outcome struct {
	Action     order.Action
	From       order.Status
	To         order.Status
	Adjustment *Adjustment
}

// Transitioned reports whether the status changed.
func (o Outcome) Transitioned() bool {
	return o.From != o.To
}

// StateMachine validates and applies role gated actions to an order.
//
// Perform runs in three steps: the action must be constructed, the actor
// must hold it in its action set (PermissionDenied otherwise), and the order
// must accept the transition from its current status (InvalidTransition
// otherwise). Failures leave the order unchanged.
type StateMachine struct {
	gateway  ActionGateway
	adjuster TimeAdjustmentManager
	targets  PhaseTargets
}

func NewStateMachine(gateway ActionGateway, targets PhaseTargets) (StateMachine, error) {
	if err := targets.Validate(); err != nil {
		return StateMachine{}, err
	}
	return StateMachine{
		gateway:  gateway,
		adjuster: NewTimeAdjustmentManager(gateway),
		targets:  targets,
	}, nil
}

// Gateway returns the gateway the state machine authorizes with.
func (m StateMachine) Gateway() ActionGateway {
	return m.gateway
}

// Perform authorizes a for action and applies it to o at now.
// Feedback carries a payload and goes through SubmitFeedback instead.
func (m StateMachine) Perform(a actor.Actor, o *order.Order, action order.Action, now time.Time) (Outcome, error) {
	if err := action.Validate(); err != nil {
		return Outcome{}, err
	}
	if action.Kind() == order.SubmitFeedback {
		return Outcome{}, errs.NewValueIsInvalidErrorWithCause("action", fmt.Errorf("%s requires feedback", action.Kind()))
	}
	if err := m.gateway.Authorize(a, o, action.Kind()); err != nil {
		return Outcome{}, err
	}

	outcome := Outcome{Action: action, From: o.Status()}
	if action.Kind().IsAdjustment() {
		adj, err := m.adjuster.apply(o, action, now)
		if err != nil {
			return Outcome{}, err
		}
		outcome.Adjustment = &adj
	} else if err := m.transition(a, o, action.Kind(), now); err != nil {
		return Outcome{}, err
	}

	outcome.To = o.Status()
	return outcome, nil
}

func (m StateMachine) transition(a actor.Actor, o *order.Order, kind order.ActionKind, now time.Time) error {
	switch kind {
	case order.Accept:
		return o.Accept(now, m.targets.Prepare)
	case order.Reject:
		return o.Reject()
	case order.Prepare:
		return o.Prepare(now)
	case order.AcceptDriver:
		return o.AcceptByDriver(a.ID(), now, m.targets.Pickup)
	case order.Pickup:
		return o.Pickup(now, m.targets.Deliver)
	case order.Deliver:
		return o.Deliver(now)
	case order.Receive:
		return o.Receive(now)
	case order.AdjustPrepare, order.AdjustPickup, order.AdjustDeliver, order.SubmitFeedback, order.UnknownAction:
		return errs.NewValueIsInvalidErrorWithCause("action", fmt.Errorf("%s is not a transition", kind))
	default:
		return errs.NewValueIsInvalidErrorWithCause("action", fmt.Errorf("%d is not a valid action", kind))
	}
}

// SubmitFeedback authorizes a and attaches the one-time feedback.
func (m StateMachine) SubmitFeedback(a actor.Actor, o *order.Order, f order.Feedback) error {
	if err := m.gateway.Authorize(a, o, order.SubmitFeedback); err != nil {
		return err
	}
	return o.AddFeedback(f)
}
