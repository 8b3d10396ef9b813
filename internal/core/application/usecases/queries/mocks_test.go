package queries_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"orderflow/internal/core/domain/model/actor"
	"orderflow/internal/core/domain/model/kernel"
	"orderflow/internal/core/domain/model/order"
	"orderflow/internal/core/ports"

	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type MockOrderReader struct{ mock.Mock }

func (m *MockOrderReader) List(ctx context.Context, scope ports.ListScope) ([]*order.Order, error) {
	args := m.Called(ctx, scope)
	orders, _ := args.Get(0).([]*order.Order)
	return orders, args.Error(1)
}

func (m *MockOrderReader) Get(ctx context.Context, id kernel.UUID) (*order.Order, error) {
	args := m.Called(ctx, id)
	o, _ := args.Get(0).(*order.Order)
	return o, args.Error(1)
}

func (m *MockOrderReader) GetMany(ctx context.Context, ids []kernel.UUID) ([]*order.Order, error) {
	args := m.Called(ctx, ids)
	if fn, ok := args.Get(0).(func(context.Context, []kernel.UUID) ([]*order.Order, error)); ok {
		return fn(ctx, ids)
	}
	orders, _ := args.Get(0).([]*order.Order)
	return orders, args.Error(1)
}

type batchRecorder struct {
	mu    sync.Mutex
	sizes []int
}

func (r *batchRecorder) ProgressBatch(size int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sizes = append(r.sizes, size)
}

type fixedClock struct{ now time.Time }

func (c fixedClock) Now() time.Time { return c.now }

var now = time.Date(2025, 5, 2, 19, 0, 0, 0, time.UTC)

type env struct {
	reader *MockOrderReader
	clock  fixedClock

	storeID, customerID, driverID kernel.UUID
	store, customer, driver       actor.Actor
}

func newEnv(t *testing.T) *env {
	t.Helper()

	e := &env{
		reader:     new(MockOrderReader),
		clock:      fixedClock{now: now},
		storeID:    kernel.NewUUID(),
		customerID: kernel.NewUUID(),
		driverID:   kernel.NewUUID(),
	}
	e.store = mustActor(t, actor.Store, e.storeID)
	e.customer = mustActor(t, actor.Customer, e.customerID)
	e.driver = mustActor(t, actor.Driver, e.driverID)
	return e
}

func mustActor(t *testing.T, r actor.Role, id kernel.UUID) actor.Actor {
	t.Helper()
	a, err := actor.New(r, id)
	require.NoError(t, err)
	return a
}

// order places an order named name, amount minor units, placed at placedAt.
func (e *env) order(t *testing.T, name string, amount int64, takeout bool, placedAt time.Time) *order.Order {
	t.Helper()

	customer, err := order.NewCustomer(e.customerID, "Sara Rahimi", "sara")
	require.NoError(t, err)
	total, err := kernel.NewMoney(amount, kernel.IRT)
	require.NoError(t, err)
	var feeAmount int64
	if takeout {
		feeAmount = 20000
	}
	fee, err := kernel.NewMoney(feeAmount, kernel.IRT)
	require.NoError(t, err)
	item, err := order.NewItem("Ghormeh sabzi", 1)
	require.NoError(t, err)

	o, err := order.NewOrder(kernel.NewUUID(), order.Details{
		Name:        name,
		Customer:    customer,
		Store:       e.storeID,
		Amount:      total,
		DeliveryFee: fee,
		IsTakeout:   takeout,
		Items:       []order.Item{item},
	}, placedAt)
	require.NoError(t, err)
	return o
}
