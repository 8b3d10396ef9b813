package order

import (
	"errors"
	"fmt"
	"time"

	"orderflow/internal/pkg/errs"
)

// Phase is a timed sub-interval of fulfillment.
type Phase int

const (
	UnknownPhase Phase = iota
	PhasePrepare
	PhasePickup
	PhaseDeliver
)

func getPhaseStrings() map[Phase]string {
	return map[Phase]string{
		UnknownPhase: "unknown",
		PhasePrepare: "prepare",
		PhasePickup:  "pickup",
		PhaseDeliver: "deliver",
	}
}

// Phases lists the phases in fulfillment order.
func Phases() []Phase {
	return []Phase{PhasePrepare, PhasePickup, PhaseDeliver}
}

func ParsePhase(s string) (Phase, error) {
	for _, p := range Phases() {
		if p.String() == s {
			return p, nil
		}
	}
	return UnknownPhase, errs.NewValueIsInvalidErrorWithCause("phase", fmt.Errorf("%q is not one of prepare, pickup, deliver", s))
}

func (p Phase) String() string {
	if str, ok := getPhaseStrings()[p]; ok {
		return str
	}
	return "unknown"
}

func (p Phase) Validate() error {
	if p < PhasePrepare || p > PhaseDeliver {
		return errs.NewValueIsInvalidErrorWithCause("phase", fmt.Errorf("%d is not a valid phase", p))
	}
	return nil
}

// Previous returns the phase that must complete before p can progress.
// PhasePrepare has none.
func (p Phase) Previous() (Phase, bool) {
	//nolint:exhaustive // prepare and invalid phases have no predecessor
	switch p {
	case PhasePickup:
		return PhasePrepare, true
	case PhaseDeliver:
		return PhasePickup, true
	default:
		return UnknownPhase, false
	}
}

// PhaseTimer holds the timestamps of one phase. Unset timestamps are zero.
// A timer is started when its phase begins, may have its estimate shifted
// while running, and is completed only by a status transition.
type PhaseTimer struct {
	startedAt   time.Time
	estimatedAt time.Time
	completedAt time.Time
}

// RestorePhaseTimer rebuilds a timer from storage. An estimate or completion
// without a start, or a completion before the start, is rejected.
func RestorePhaseTimer(startedAt, estimatedAt, completedAt time.Time) (PhaseTimer, error) {
	if startedAt.IsZero() && (!estimatedAt.IsZero() || !completedAt.IsZero()) {
		return PhaseTimer{}, errs.NewValueIsInvalidErrorWithCause("phase timer", errors.New("timer has no start"))
	}
	if !completedAt.IsZero() && completedAt.Before(startedAt) {
		return PhaseTimer{}, errs.NewValueIsInvalidErrorWithCause("phase timer", errors.New("completed before start"))
	}
	return PhaseTimer{startedAt: startedAt, estimatedAt: estimatedAt, completedAt: completedAt}, nil
}

func (t PhaseTimer) StartedAt() time.Time   { return t.startedAt }
func (t PhaseTimer) EstimatedAt() time.Time { return t.estimatedAt }
func (t PhaseTimer) CompletedAt() time.Time { return t.completedAt }

func (t PhaseTimer) IsStarted() bool   { return !t.startedAt.IsZero() }
func (t PhaseTimer) IsCompleted() bool { return !t.completedAt.IsZero() }

// IsRunning reports a started, not yet completed timer.
func (t PhaseTimer) IsRunning() bool {
	return t.IsStarted() && !t.IsCompleted()
}

func (t PhaseTimer) start(now time.Time, target time.Duration) PhaseTimer {
	return PhaseTimer{startedAt: now, estimatedAt: now.Add(target)}
}

func (t PhaseTimer) complete(now time.Time) PhaseTimer {
	if !t.IsStarted() {
		t.startedAt = now
		t.estimatedAt = now
	}
	if !t.IsCompleted() {
		t.completedAt = now
	}
	return t
}

// shift moves the estimate by delta, never below floor.
func (t PhaseTimer) shift(delta time.Duration, floor time.Time) PhaseTimer {
	est := t.estimatedAt.Add(delta)
	if est.Before(floor) {
		est = floor
	}
	t.estimatedAt = est
	return t
}
