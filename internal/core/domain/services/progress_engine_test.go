package services_test

import (
	"testing"
	"time"

	"orderflow/internal/core/domain/model/order"
	"orderflow/internal/core/domain/services"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProgressEngine_Placed(t *testing.T) {
	f := newFixture(t)
	e := services.NewProgressEngine()
	o := f.order(t, true, order.Placed)

	p := e.Compute(o, t0.Add(time.Hour))

	assert.Equal(t, 0, p.Prepare.Percent)
	assert.False(t, p.Prepare.Started)
	assert.False(t, p.Prepare.Overdue)
	require.NotNil(t, p.Pickup)
	require.NotNil(t, p.Deliver)
	assert.Equal(t, 0, p.Pickup.Percent)
	assert.Equal(t, 0, p.Deliver.Percent)
	assert.Equal(t, order.Placed, p.Status)
	assert.Equal(t, o.Version(), p.Version)
}

func TestProgressEngine_RunningPhase(t *testing.T) {
	f := newFixture(t)
	e := services.NewProgressEngine()
	o := f.order(t, true, order.Accepted)
	start := o.Timer(order.PhasePrepare).StartedAt()

	p := e.Phase(o, order.PhasePrepare, start.Add(targets.Prepare/2))

	assert.Equal(t, 50, p.Percent)
	assert.Equal(t, 10, p.MinutesLeft)
	assert.False(t, p.Overdue)
	assert.True(t, p.Started)
	assert.False(t, p.Completed)
}

func TestProgressEngine_Overdue(t *testing.T) {
	f := newFixture(t)
	e := services.NewProgressEngine()
	o := f.order(t, true, order.Accepted)
	est := o.Timer(order.PhasePrepare).EstimatedAt()

	for _, now := range []time.Time{est, est.Add(20 * time.Second), est.Add(2 * time.Hour)} {
		p := e.Phase(o, order.PhasePrepare, now)

		assert.Equal(t, 100, p.Percent)
		assert.Equal(t, 0, p.MinutesLeft)
		assert.True(t, p.Overdue)
		assert.False(t, p.Completed)
	}
}

func TestProgressEngine_IsMonotonicInNow(t *testing.T) {
	f := newFixture(t)
	e := services.NewProgressEngine()

	for _, s := range []order.Status{order.Accepted, order.AcceptedByDriver, order.Prepared, order.PickedUp} {
		o := f.order(t, true, s, orderOpts{withDriver: true})
		prev := e.Compute(o, t0.Add(-time.Hour))

		for i := range 240 {
			now := t0.Add(time.Duration(i) * 30 * time.Second)
			cur := e.Compute(o, now)

			assert.GreaterOrEqual(t, cur.Prepare.Percent, prev.Prepare.Percent)
			assert.GreaterOrEqual(t, cur.Pickup.Percent, prev.Pickup.Percent)
			assert.GreaterOrEqual(t, cur.Deliver.Percent, prev.Deliver.Percent)
			for _, pp := range []services.PhaseProgress{cur.Prepare, *cur.Pickup, *cur.Deliver} {
				assert.GreaterOrEqual(t, pp.Percent, 0)
				assert.LessOrEqual(t, pp.Percent, 100)
				assert.GreaterOrEqual(t, pp.MinutesLeft, 0)
			}
			prev = cur
		}
	}
}

func TestProgressEngine_IsIdempotent(t *testing.T) {
	f := newFixture(t)
	e := services.NewProgressEngine()
	o := f.order(t, true, order.PickedUp)
	now := t0.Add(17 * time.Minute)

	first := e.Compute(o, now)
	for range 10 {
		assert.Equal(t, first, e.Compute(o, now))
	}
}

func TestProgressEngine_PhaseWaitsForItsPredecessor(t *testing.T) {
	f := newFixture(t)
	e := services.NewProgressEngine()
	o := f.order(t, true, order.AcceptedByDriver)

	p := e.Compute(o, t0.Add(8*time.Minute))

	assert.Positive(t, p.Prepare.Percent)
	assert.True(t, p.Pickup.Started)
	assert.Equal(t, 0, p.Pickup.Percent)
	assert.Positive(t, p.Pickup.MinutesLeft)
	assert.Equal(t, 0, p.Deliver.Percent)
}

func TestProgressEngine_CompletedPhasesReportFull(t *testing.T) {
	f := newFixture(t)
	e := services.NewProgressEngine()
	o := f.order(t, true, order.Delivered)

	p := e.Compute(o, t0)

	for _, pp := range []services.PhaseProgress{p.Prepare, *p.Pickup, *p.Deliver} {
		assert.Equal(t, 100, pp.Percent, pp.Phase.String())
		assert.True(t, pp.Completed)
		assert.False(t, pp.Overdue)
		assert.Equal(t, 0, pp.MinutesLeft)
	}
}

func TestProgressEngine_InStoreOrdersHaveNoPickupOrDelivery(t *testing.T) {
	f := newFixture(t)
	e := services.NewProgressEngine()

	for _, s := range []order.Status{order.Placed, order.Accepted, order.Prepared, order.Received} {
		p := e.Compute(f.order(t, false, s), t0.Add(time.Hour))

		assert.Nil(t, p.Pickup, s.String())
		assert.Nil(t, p.Deliver, s.String())
	}
}

func TestProgressEngine_AdjustmentMovesTheWindow(t *testing.T) {
	f := newFixture(t)
	e := services.NewProgressEngine()
	m := services.NewTimeAdjustmentManager(services.NewActionGateway())
	o := f.order(t, true, order.Accepted)
	start := o.Timer(order.PhasePrepare).StartedAt()
	now := start.Add(10 * time.Minute)

	before := e.Phase(o, order.PhasePrepare, now)
	_, err := m.Adjust(f.store, o, mustAdjust(t, order.PhasePrepare, 5), now)
	require.NoError(t, err)
	after := e.Phase(o, order.PhasePrepare, now)

	assert.Equal(t, 50, before.Percent)
	assert.Equal(t, 40, after.Percent)
	assert.Equal(t, before.MinutesLeft+5, after.MinutesLeft)
}
