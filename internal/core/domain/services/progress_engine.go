package services

import (
	"math"
	"time"

	"orderflow/internal/core/domain/model/kernel"
	"orderflow/internal/core/domain/model/order"
)

// Clock supplies the current time to code that must stay a pure function of it.
type Clock interface {
	Now() time.Time
}

// SystemClock reads the wall clock.
type SystemClock struct{}

func (SystemClock) Now() time.Time {
	return time.Now()
}

// PhaseProgress is the derived state of one phase at a point in time.
type PhaseProgress struct {
	Phase order.Phase

	// Percent is within [0, 100]: 100 once completed, 0 before the phase or
	// its predecessor started, elapsed over estimated window otherwise.
	Percent int

	// MinutesLeft is the rounded time to the estimate of a running phase.
	// It is never negative; an estimate that has passed sets Overdue instead.
	MinutesLeft int
	Overdue     bool

	Started     bool
	Completed   bool
	EstimatedAt time.Time
}

// OrderProgress is the progress view of one order. Pickup and Deliver are
// nil for in-store orders.
type OrderProgress struct {
	OrderID kernel.UUID
	Status  order.Status
	Version int64
	Prepare PhaseProgress
	Pickup  *PhaseProgress
	Deliver *PhaseProgress
}

// ProgressEngine derives progress from stored timestamps and the time of
// evaluation only. Repeated calls with the same order and now return equal
// results, and for fixed timestamps every percentage is non-decreasing in now.
type ProgressEngine struct{}

func NewProgressEngine() ProgressEngine {
	return ProgressEngine{}
}

// Compute returns the progress view of o at now.
func (e ProgressEngine) Compute(o *order.Order, now time.Time) OrderProgress {
	view := OrderProgress{
		OrderID: o.ID(),
		Status:  o.Status(),
		Version: o.Version(),
		Prepare: e.Phase(o, order.PhasePrepare, now),
	}
	if o.IsTakeout() {
		pickup := e.Phase(o, order.PhasePickup, now)
		deliver := e.Phase(o, order.PhaseDeliver, now)
		view.Pickup = &pickup
		view.Deliver = &deliver
	}
	return view
}

// Phase computes the progress of a single phase of o at now.
func (e ProgressEngine) Phase(o *order.Order, p order.Phase, now time.Time) PhaseProgress {
	timer := o.Timer(p)
	pp := PhaseProgress{
		Phase:       p,
		Started:     timer.IsStarted(),
		Completed:   timer.IsCompleted(),
		EstimatedAt: timer.EstimatedAt(),
	}

	switch {
	case timer.IsCompleted():
		pp.Percent = 100
		return pp
	case !timer.IsStarted():
		return pp
	}

	pp.MinutesLeft, pp.Overdue = minutesLeft(timer.EstimatedAt(), now)

	start := timer.StartedAt()
	if prev, ok := p.Previous(); ok {
		before := o.Timer(prev)
		if !before.IsCompleted() {
			return pp
		}
		if before.CompletedAt().After(start) {
			start = before.CompletedAt()
		}
	}

	pp.Percent = percent(start, timer.EstimatedAt(), now)
	return pp
}

func percent(start, estimated, now time.Time) int {
	window := estimated.Sub(start)
	if window <= 0 {
		return 100
	}
	ratio := float64(now.Sub(start)) / float64(window) * 100
	return int(math.Floor(math.Max(0, math.Min(100, ratio))))
}

func minutesLeft(estimated, now time.Time) (int, bool) {
	left := int(math.Round(estimated.Sub(now).Minutes()))
	if left <= 0 {
		return 0, true
	}
	return left, false
}
