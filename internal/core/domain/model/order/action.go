package order

import (
	"errors"
	"fmt"
	"slices"
	"time"

	"orderflow/internal/pkg/errs"
	"orderflow/internal/pkg/guard"
)

var ErrActionIsNotConstructed = errors.New("Action must be created via NewAction or NewAdjustment")

// ActionKind enumerates everything an actor can ask of an order.
type ActionKind int

const (
	UnknownAction ActionKind = iota
	Accept
	Reject
	Prepare
	AcceptDriver
	Pickup
	Deliver
	Receive
	AdjustPrepare
	AdjustPickup
	AdjustDeliver
	SubmitFeedback
)

func getActionKindStrings() map[ActionKind]string {
	return map[ActionKind]string{
		UnknownAction:  "unknown",
		Accept:         "accept",
		Reject:         "reject",
		Prepare:        "prepare",
		AcceptDriver:   "accept_driver",
		Pickup:         "pickup",
		Deliver:        "deliver",
		Receive:        "receive",
		AdjustPrepare:  "adjust_prepare",
		AdjustPickup:   "adjust_pickup",
		AdjustDeliver:  "adjust_deliver",
		SubmitFeedback: "submit_feedback",
	}
}

// ActionKinds lists every valid kind in declaration order.
func ActionKinds() []ActionKind {
	return []ActionKind{
		Accept, Reject, Prepare, AcceptDriver, Pickup, Deliver, Receive,
		AdjustPrepare, AdjustPickup, AdjustDeliver, SubmitFeedback,
	}
}

func ParseActionKind(s string) (ActionKind, error) {
	for _, k := range ActionKinds() {
		if k.String() == s {
			return k, nil
		}
	}
	return UnknownAction, errs.NewValueIsInvalidErrorWithCause("action", fmt.Errorf("%q is not a known action", s))
}

func (k ActionKind) String() string {
	if str, ok := getActionKindStrings()[k]; ok {
		return str
	}
	return "unknown"
}

func (k ActionKind) Validate() error {
	if k <= UnknownAction || k > SubmitFeedback {
		return errs.NewValueIsInvalidErrorWithCause("action", fmt.Errorf("%d is not a valid action", k))
	}
	return nil
}

// IsAdjustment reports the kinds that shift a phase estimate.
func (k ActionKind) IsAdjustment() bool {
	return k == AdjustPrepare || k == AdjustPickup || k == AdjustDeliver
}

// AdjustmentKind returns the adjustment kind that targets phase p.
func AdjustmentKind(p Phase) (ActionKind, error) {
	//nolint:exhaustive // invalid phases fall through to the error
	switch p {
	case PhasePrepare:
		return AdjustPrepare, nil
	case PhasePickup:
		return AdjustPickup, nil
	case PhaseDeliver:
		return AdjustDeliver, nil
	default:
		return UnknownAction, p.Validate()
	}
}

// Delta is a manual estimate change in whole minutes. Only the canonical
// increments ±1, ±3 and ±5 can be constructed.
type Delta int

func canonicalDeltas() []int {
	return []int{-5, -3, -1, 1, 3, 5}
}

// NewDelta validates minutes against the canonical increments.
func NewDelta(minutes int) (Delta, error) {
	if !slices.Contains(canonicalDeltas(), minutes) {
		return 0, errs.NewValueIsInvalidErrorWithCause(
			"deltaMinutes",
			fmt.Errorf("%d is not one of %v", minutes, canonicalDeltas()),
		)
	}
	return Delta(minutes), nil
}

func (d Delta) Minutes() int {
	return int(d)
}

func (d Delta) Duration() time.Duration {
	return time.Duration(d) * time.Minute
}

// Action is one request against an order: a kind and, for adjustments,
// the target phase and delta. Adjustments can only be built by NewAdjustment,
// so every Action carries a delta from the canonical set or none at all.
type Action struct {
	kind  ActionKind
	phase Phase
	delta Delta
	guard guard.ConstructorGuard
}

// NewAction builds an action without payload. Adjustment kinds are rejected;
// use NewAdjustment for them.
func NewAction(kind ActionKind) (Action, error) {
	if err := kind.Validate(); err != nil {
		return Action{}, err
	}
	if kind.IsAdjustment() {
		return Action{}, errs.NewValueIsInvalidErrorWithCause("action", fmt.Errorf("%s requires a phase and delta", kind))
	}
	return Action{kind: kind, guard: guard.NewConstructorGuard()}, nil
}

// NewAdjustment builds the adjustment of phase by minutes.
func NewAdjustment(phase Phase, minutes int) (Action, error) {
	kind, err := AdjustmentKind(phase)
	delta, deltaErr := NewDelta(minutes)
	if err = errors.Join(err, deltaErr); err != nil {
		return Action{}, err
	}
	return Action{kind: kind, phase: phase, delta: delta, guard: guard.NewConstructorGuard()}, nil
}

func (a Action) Kind() ActionKind {
	return a.kind
}

// Phase is UnknownPhase for non-adjustments.
func (a Action) Phase() Phase {
	return a.phase
}

// Delta is zero for non-adjustments.
func (a Action) Delta() Delta {
	return a.delta
}

func (a Action) Validate() error {
	return a.guard.Validate(ErrActionIsNotConstructed)
}

func (a Action) String() string {
	if a.kind.IsAdjustment() {
		return fmt.Sprintf("%s(%+d)", a.kind, a.delta)
	}
	return a.kind.String()
}
