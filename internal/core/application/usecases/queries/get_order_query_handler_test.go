package queries_test

import (
	"testing"
	"time"

	"orderflow/internal/core/application/usecases/queries"
	"orderflow/internal/core/domain/model/actor"
	"orderflow/internal/core/domain/model/kernel"
	"orderflow/internal/core/domain/model/order"
	"orderflow/internal/core/domain/services"
	"orderflow/internal/pkg/errs"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewGetOrderQuery(t *testing.T) {
	_, err := queries.NewGetOrderQuery(actor.NewGuest(), kernel.UUID{})
	require.ErrorIs(t, err, kernel.ErrUUIDIsNotConstructed)

	err = queries.GetOrderQuery{}.Validate()
	require.ErrorIs(t, err, queries.ErrGetOrderQueryIsNotConstructed)
}

func TestGetOrderQueryHandler_Handle(t *testing.T) {
	ctx := t.Context()
	e := newEnv(t)
	o := e.order(t, "Dinner", 300000, true, now.Add(-time.Hour))
	require.NoError(t, o.Accept(now.Add(-10*time.Minute), 20*time.Minute))
	h := queries.NewGetOrderQueryHandler(e.reader, services.NewActionGateway(), services.NewProgressEngine(), e.clock)

	t.Run("should return the order with actions and progress", func(t *testing.T) {
		e.reader.On("Get", ctx, o.ID()).Return(o, nil).Once()
		q, err := queries.NewGetOrderQuery(e.store, o.ID())
		require.NoError(t, err)

		view, err := h.Handle(ctx, q)

		require.NoError(t, err)
		assert.Equal(t, o, view.Order)
		assert.Equal(t, 50, view.Progress.Prepare.Percent)
		assert.Equal(t, 10, view.Progress.Prepare.MinutesLeft)
		require.NotEmpty(t, view.Actions)
		assert.Equal(t, order.Prepare, view.Actions[0].Kind)
	})

	t.Run("should deny a stranger store", func(t *testing.T) {
		e.reader.On("Get", ctx, o.ID()).Return(o, nil).Once()
		q, err := queries.NewGetOrderQuery(mustActor(t, actor.Store, kernel.NewUUID()), o.ID())
		require.NoError(t, err)

		_, err = h.Handle(ctx, q)

		require.ErrorIs(t, err, errs.ErrPermissionDenied)
	})

	t.Run("should pass not found through", func(t *testing.T) {
		id := kernel.NewUUID()
		e.reader.On("Get", ctx, id).Return(nil, errs.NewObjectNotFoundError("order", id.String())).Once()
		q, err := queries.NewGetOrderQuery(e.store, id)
		require.NoError(t, err)

		_, err = h.Handle(ctx, q)

		require.ErrorIs(t, err, errs.ErrObjectNotFound)
	})

	e.reader.AssertExpectations(t)
}

func TestGetAvailableActionsQueryHandler_Handle(t *testing.T) {
	ctx := t.Context()
	e := newEnv(t)
	o := e.order(t, "Lunch", 120000, false, now.Add(-time.Hour))
	h := queries.NewGetAvailableActionsQueryHandler(e.reader, services.NewActionGateway())

	t.Run("should list the store actions", func(t *testing.T) {
		e.reader.On("Get", ctx, o.ID()).Return(o, nil).Once()
		q, err := queries.NewGetAvailableActionsQuery(e.store, o.ID())
		require.NoError(t, err)

		set, err := h.Handle(ctx, q)

		require.NoError(t, err)
		assert.Equal(t, []services.Availability{
			{Kind: order.Accept, Enabled: true},
			{Kind: order.Reject, Enabled: true},
		}, set)
	})

	t.Run("should return an empty set to the waiting customer", func(t *testing.T) {
		e.reader.On("Get", ctx, o.ID()).Return(o, nil).Once()
		q, err := queries.NewGetAvailableActionsQuery(e.customer, o.ID())
		require.NoError(t, err)

		set, err := h.Handle(ctx, q)

		require.NoError(t, err)
		assert.NotNil(t, set)
		assert.Empty(t, set)
	})

	t.Run("should hide in-store orders from drivers", func(t *testing.T) {
		e.reader.On("Get", ctx, o.ID()).Return(o, nil).Once()
		q, err := queries.NewGetAvailableActionsQuery(e.driver, o.ID())
		require.NoError(t, err)

		_, err = h.Handle(ctx, q)

		require.ErrorIs(t, err, errs.ErrPermissionDenied)
	})

	e.reader.AssertExpectations(t)
}
