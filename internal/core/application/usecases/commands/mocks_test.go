package commands_test

import (
	"context"
	"testing"
	"time"

	"orderflow/internal/core/application/usecases/commands"
	"orderflow/internal/core/domain/model/actor"
	"orderflow/internal/core/domain/model/kernel"
	"orderflow/internal/core/domain/model/order"
	"orderflow/internal/core/domain/services"
	"orderflow/internal/core/ports"

	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type MockOrderRepository struct{ mock.Mock }

func (m *MockOrderRepository) Add(ctx context.Context, o *order.Order) error {
	args := m.Called(ctx, o)
	return args.Error(0)
}

func (m *MockOrderRepository) Update(ctx context.Context, o *order.Order) error {
	args := m.Called(ctx, o)
	return args.Error(0)
}

func (m *MockOrderRepository) Get(ctx context.Context, id kernel.UUID) (*order.Order, error) {
	args := m.Called(ctx, id)
	o, _ := args.Get(0).(*order.Order)
	return o, args.Error(1)
}

func (m *MockOrderRepository) GetMany(ctx context.Context, ids []kernel.UUID) ([]*order.Order, error) {
	args := m.Called(ctx, ids)
	orders, _ := args.Get(0).([]*order.Order)
	return orders, args.Error(1)
}

type MockOrderUoW struct{ mock.Mock }

func (m *MockOrderUoW) Begin(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

func (m *MockOrderUoW) Commit(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

func (m *MockOrderUoW) Rollback(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

func (m *MockOrderUoW) OrderRepository() ports.OrderRepository {
	args := m.Called()
	return args.Get(0).(ports.OrderRepository)
}

type MockOrderUoWFactory struct{ mock.Mock }

func (m *MockOrderUoWFactory) Create() commands.OrderUoW {
	args := m.Called()
	return args.Get(0).(commands.OrderUoW)
}

type MockPublisher struct{ mock.Mock }

func (m *MockPublisher) Publish(ctx context.Context, event ports.OrderUpdated) error {
	args := m.Called(ctx, event)
	return args.Error(0)
}

type MockRecorder struct{ mock.Mock }

func (m *MockRecorder) Transition(from, to order.Status, action order.ActionKind) {
	m.Called(from, to, action)
}

func (m *MockRecorder) Adjustment(phase order.Phase, delta order.Delta, floored bool) {
	m.Called(phase, delta, floored)
}

func (m *MockRecorder) Rejected(action string, err error) {
	m.Called(action, err)
}

type fixedClock struct{ now time.Time }

func (c fixedClock) Now() time.Time { return c.now }

var now = time.Date(2025, 5, 2, 19, 0, 0, 0, time.UTC)

// env wires the mocks the way the composition root wires the real adapters.
type env struct {
	repo      *MockOrderRepository
	uow       *MockOrderUoW
	factory   *MockOrderUoWFactory
	publisher *MockPublisher
	recorder  *MockRecorder
	machine   services.StateMachine
	clock     fixedClock

	storeID, customerID, driverID kernel.UUID
	store, customer, driver       actor.Actor
}

func newEnv(t *testing.T) *env {
	t.Helper()

	machine, err := services.NewStateMachine(services.NewActionGateway(), services.DefaultPhaseTargets())
	require.NoError(t, err)

	e := &env{
		repo:       new(MockOrderRepository),
		uow:        new(MockOrderUoW),
		factory:    new(MockOrderUoWFactory),
		publisher:  new(MockPublisher),
		recorder:   new(MockRecorder),
		machine:    machine,
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

func (e *env) observers() commands.Observers {
	return commands.Observers{Publisher: e.publisher, Recorder: e.recorder}
}

func (e *env) assertExpectations(t *testing.T) {
	t.Helper()
	e.repo.AssertExpectations(t)
	e.uow.AssertExpectations(t)
	e.factory.AssertExpectations(t)
	e.publisher.AssertExpectations(t)
	e.recorder.AssertExpectations(t)
}

// openUoW expects a unit of work that is begun and rolled back.
func (e *env) openUoW(ctx context.Context) {
	e.factory.On("Create").Return(e.uow).Once()
	e.uow.On("Begin", ctx).Return(nil).Once()
	e.uow.On("OrderRepository").Return(e.repo).Maybe()
	e.uow.On("Rollback", ctx).Return(nil).Once()
}

func mustActor(t *testing.T, r actor.Role, id kernel.UUID) actor.Actor {
	t.Helper()
	a, err := actor.New(r, id)
	require.NoError(t, err)
	return a
}

func (e *env) details(t *testing.T, takeout bool) order.Details {
	t.Helper()

	customer, err := order.NewCustomer(e.customerID, "Nima Ahmadi", "nima")
	require.NoError(t, err)
	amount, err := kernel.NewMoney(300000, kernel.IRT)
	require.NoError(t, err)
	var feeAmount int64
	if takeout {
		feeAmount = 25000
	}
	fee, err := kernel.NewMoney(feeAmount, kernel.IRT)
	require.NoError(t, err)
	item, err := order.NewItem("Kabab", 2)
	require.NoError(t, err)

	return order.Details{
		Customer:    customer,
		Store:       e.storeID,
		Amount:      amount,
		DeliveryFee: fee,
		IsTakeout:   takeout,
		Items:       []order.Item{item},
	}
}

// placed returns a new delivery order; accepted moves it on to accepted.
func (e *env) placed(t *testing.T) *order.Order {
	t.Helper()
	o, err := order.NewOrder(kernel.NewUUID(), e.details(t, true), now.Add(-time.Hour))
	require.NoError(t, err)
	return o
}

func (e *env) accepted(t *testing.T) *order.Order {
	t.Helper()
	o := e.placed(t)
	require.NoError(t, o.Accept(now.Add(-5*time.Minute), 20*time.Minute))
	return o
}

func (e *env) received(t *testing.T) *order.Order {
	t.Helper()
	o, err := order.NewOrder(kernel.NewUUID(), e.details(t, false), now.Add(-time.Hour))
	require.NoError(t, err)
	require.NoError(t, o.Accept(now.Add(-50*time.Minute), 20*time.Minute))
	require.NoError(t, o.Prepare(now.Add(-30*time.Minute)))
	require.NoError(t, o.Receive(now.Add(-20*time.Minute)))
	return o
}

func mustAction(t *testing.T, kind order.ActionKind) order.Action {
	t.Helper()
	a, err := order.NewAction(kind)
	require.NoError(t, err)
	return a
}
