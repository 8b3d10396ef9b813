package services_test

import (
	"testing"
	"time"

	"orderflow/internal/core/domain/model/actor"
	"orderflow/internal/core/domain/model/kernel"
	"orderflow/internal/core/domain/model/order"
	"orderflow/internal/core/domain/services"

	"github.com/stretchr/testify/require"
)

var t0 = time.Date(2025, 5, 2, 18, 30, 0, 0, time.UTC)

var targets = services.PhaseTargets{
	Prepare: 20 * time.Minute,
	Pickup:  10 * time.Minute,
	Deliver: 30 * time.Minute,
}

type fixture struct {
	storeID    kernel.UUID
	customerID kernel.UUID
	driverID   kernel.UUID

	store       actor.Actor
	otherStore  actor.Actor
	customer    actor.Actor
	driver      actor.Actor
	otherDriver actor.Actor
	admin       actor.Actor
	guest       actor.Actor
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	f := &fixture{
		storeID:    kernel.NewUUID(),
		customerID: kernel.NewUUID(),
		driverID:   kernel.NewUUID(),
		guest:      actor.NewGuest(),
	}

	mk := func(r actor.Role, id kernel.UUID) actor.Actor {
		a, err := actor.New(r, id)
		require.NoError(t, err)
		return a
	}
	f.store = mk(actor.Store, f.storeID)
	f.otherStore = mk(actor.Store, kernel.NewUUID())
	f.customer = mk(actor.Customer, f.customerID)
	f.driver = mk(actor.Driver, f.driverID)
	f.otherDriver = mk(actor.Driver, kernel.NewUUID())
	f.admin = mk(actor.Admin, kernel.NewUUID())
	return f
}

// actors lists one actor per role plus strangers of the store and driver roles.
func (f *fixture) actors() []actor.Actor {
	return []actor.Actor{f.store, f.otherStore, f.customer, f.driver, f.otherDriver, f.admin, f.guest}
}

type orderOpts struct {
	name       string
	amount     int64
	placedAt   time.Time
	withDriver bool
}

// order drives a fresh order to status through legal transitions.
// Prepared delivery orders get the fixture driver only when opts.withDriver is set.
func (f *fixture) order(t *testing.T, takeout bool, status order.Status, opts ...orderOpts) *order.Order {
	t.Helper()

	opt := orderOpts{name: "Pizza night", amount: 420000, placedAt: t0}
	if len(opts) > 0 {
		if opts[0].name != "" {
			opt.name = opts[0].name
		}
		if opts[0].amount != 0 {
			opt.amount = opts[0].amount
		}
		if !opts[0].placedAt.IsZero() {
			opt.placedAt = opts[0].placedAt
		}
		opt.withDriver = opts[0].withDriver
	}

	customer, err := order.NewCustomer(f.customerID, "Dariush Karimi", "dkarimi")
	require.NoError(t, err)
	amount, err := kernel.NewMoney(opt.amount, kernel.IRT)
	require.NoError(t, err)
	var feeAmount int64
	if takeout {
		feeAmount = 35000
	}
	fee, err := kernel.NewMoney(feeAmount, kernel.IRT)
	require.NoError(t, err)
	item, err := order.NewItem("Margherita", 1)
	require.NoError(t, err)

	o, err := order.NewOrder(kernel.NewUUID(), order.Details{
		Name:        opt.name,
		Customer:    customer,
		Store:       f.storeID,
		Amount:      amount,
		DeliveryFee: fee,
		IsTakeout:   takeout,
		Items:       []order.Item{item},
	}, opt.placedAt)
	require.NoError(t, err)

	at := opt.placedAt
	step := func(fn func() error) {
		at = at.Add(time.Minute)
		require.NoError(t, fn())
	}
	accept := func() { step(func() error { return o.Accept(at, targets.Prepare) }) }
	acceptDriver := func() { step(func() error { return o.AcceptByDriver(f.driverID, at, targets.Pickup) }) }
	prepare := func() { step(func() error { return o.Prepare(at) }) }
	pickup := func() { step(func() error { return o.Pickup(at, targets.Deliver) }) }
	deliver := func() { step(func() error { return o.Deliver(at) }) }
	receive := func() { step(func() error { return o.Receive(at) }) }

	//nolint:exhaustive // Unknown is not reachable
	switch status {
	case order.Placed:
	case order.Rejected:
		step(o.Reject)
	case order.Accepted:
		accept()
	case order.AcceptedByDriver:
		accept()
		acceptDriver()
	case order.Prepared:
		accept()
		if opt.withDriver {
			acceptDriver()
		}
		prepare()
	case order.PickedUp:
		accept()
		acceptDriver()
		prepare()
		pickup()
	case order.Delivered:
		accept()
		acceptDriver()
		prepare()
		pickup()
		deliver()
	case order.Received:
		accept()
		if takeout {
			acceptDriver()
			prepare()
			pickup()
			deliver()
		} else {
			prepare()
		}
		receive()
	default:
		t.Fatalf("cannot build an order in status %s", status)
	}

	require.Equal(t, status, o.Status())
	return o
}

func kinds(set []services.Availability) []order.ActionKind {
	out := make([]order.ActionKind, 0, len(set))
	for _, a := range set {
		out = append(out, a.Kind)
	}
	return out
}

func mustAction(t *testing.T, kind order.ActionKind) order.Action {
	t.Helper()
	a, err := order.NewAction(kind)
	require.NoError(t, err)
	return a
}

func mustAdjust(t *testing.T, phase order.Phase, minutes int) order.Action {
	t.Helper()
	a, err := order.NewAdjustment(phase, minutes)
	require.NoError(t, err)
	return a
}
