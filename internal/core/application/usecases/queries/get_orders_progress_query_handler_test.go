package queries_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"orderflow/internal/core/application/usecases/queries"
	"orderflow/internal/core/domain/model/actor"
	"orderflow/internal/core/domain/model/kernel"
	"orderflow/internal/core/domain/model/order"
	"orderflow/internal/core/domain/services"
	"orderflow/internal/pkg/errs"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func TestNewGetOrdersProgressQuery(t *testing.T) {
	e := newEnv(t)

	t.Run("should drop duplicates and keep the first position", func(t *testing.T) {
		a, b := kernel.NewUUID(), kernel.NewUUID()
		q, err := queries.NewGetOrdersProgressQuery(e.store, []kernel.UUID{b, a, b})
		require.NoError(t, err)
		assert.Equal(t, []kernel.UUID{b, a}, q.IDs())
	})

	t.Run("should require ids", func(t *testing.T) {
		_, err := queries.NewGetOrdersProgressQuery(e.store, nil)
		require.ErrorIs(t, err, errs.ErrValueIsRequired)
	})

	t.Run("should refuse a zero id", func(t *testing.T) {
		_, err := queries.NewGetOrdersProgressQuery(e.store, []kernel.UUID{kernel.NewUUID(), {}})
		require.ErrorIs(t, err, kernel.ErrUUIDIsNotConstructed)
	})
}

func sortedIDs(ids ...kernel.UUID) any {
	return mock.MatchedBy(func(got []kernel.UUID) bool {
		if len(got) != len(ids) {
			return false
		}
		for i := 1; i < len(got); i++ {
			if got[i-1].String() > got[i].String() {
				return false
			}
		}
		for _, id := range ids {
			found := false
			for _, g := range got {
				found = found || g.IsEqual(id)
			}
			if !found {
				return false
			}
		}
		return true
	})
}

func TestGetOrdersProgressQueryHandler_Handle(t *testing.T) {
	ctx := t.Context()
	e := newEnv(t)
	gw := services.NewActionGateway()
	engine := services.NewProgressEngine()

	first := e.order(t, "First", 100000, true, now.Add(-time.Hour))
	require.NoError(t, first.Accept(now.Add(-10*time.Minute), 20*time.Minute))
	second := e.order(t, "Second", 100000, false, now.Add(-time.Hour))
	missing := kernel.NewUUID()

	t.Run("should answer in request order and skip unknown ids", func(t *testing.T) {
		rec := &batchRecorder{}
		h := queries.NewGetOrdersProgressQueryHandler(e.reader, gw, engine, e.clock, 10, rec)
		e.reader.On("GetMany", mock.Anything, sortedIDs(second.ID(), missing, first.ID())).
			Return([]*order.Order{first, second}, nil).Once()

		q, err := queries.NewGetOrdersProgressQuery(e.store, []kernel.UUID{second.ID(), missing, first.ID()})
		require.NoError(t, err)
		got, err := h.Handle(ctx, q)

		require.NoError(t, err)
		require.Len(t, got, 2)
		assert.Equal(t, second.ID(), got[0].OrderID)
		assert.Equal(t, first.ID(), got[1].OrderID)
		assert.Equal(t, 50, got[1].Prepare.Percent)
		assert.Nil(t, got[0].Pickup)
		assert.Equal(t, []int{3}, rec.sizes)
	})

	t.Run("should leave out orders the actor cannot see", func(t *testing.T) {
		h := queries.NewGetOrdersProgressQueryHandler(e.reader, gw, engine, e.clock, 10, nil)
		e.reader.On("GetMany", mock.Anything, sortedIDs(first.ID(), second.ID())).
			Return([]*order.Order{first, second}, nil).Once()

		q, err := queries.NewGetOrdersProgressQuery(e.driver, []kernel.UUID{first.ID(), second.ID()})
		require.NoError(t, err)
		got, err := h.Handle(ctx, q)

		require.NoError(t, err)
		require.Len(t, got, 1)
		assert.Equal(t, first.ID(), got[0].OrderID)
	})

	t.Run("should refuse a batch above the limit", func(t *testing.T) {
		h := queries.NewGetOrdersProgressQueryHandler(e.reader, gw, engine, e.clock, 1, nil)
		q, err := queries.NewGetOrdersProgressQuery(e.store, []kernel.UUID{first.ID(), second.ID()})
		require.NoError(t, err)

		_, err = h.Handle(ctx, q)

		require.ErrorIs(t, err, errs.ErrValueIsOutOfRange)
	})

	t.Run("should surface storage failures", func(t *testing.T) {
		h := queries.NewGetOrdersProgressQueryHandler(e.reader, gw, engine, e.clock, 0, nil)
		e.reader.On("GetMany", mock.Anything, sortedIDs(missing)).Return(nil, errors.New("db down")).Once()
		q, err := queries.NewGetOrdersProgressQuery(e.store, []kernel.UUID{missing})
		require.NoError(t, err)

		_, err = h.Handle(ctx, q)

		require.Error(t, err)
	})

	e.reader.AssertExpectations(t)
}

func TestGetOrdersProgressQueryHandler_CollapsesConcurrentBatches(t *testing.T) {
	ctx := t.Context()
	e := newEnv(t)
	o := e.order(t, "Shared", 100000, true, now.Add(-time.Hour))

	release := make(chan struct{})
	started := make(chan struct{})
	e.reader.On("GetMany", mock.Anything, sortedIDs(o.ID())).
		Run(func(mock.Arguments) {
			close(started)
			<-release
		}).
		Return([]*order.Order{o}, nil).Once()

	h := queries.NewGetOrdersProgressQueryHandler(
		e.reader, services.NewActionGateway(), services.NewProgressEngine(), e.clock, 0, nil,
	)
	q, err := queries.NewGetOrdersProgressQuery(actor.NewGuest(), []kernel.UUID{o.ID()})
	require.NoError(t, err)

	var wg sync.WaitGroup
	results := make([][]services.OrderProgress, 2)
	wg.Add(1)
	go func() {
		defer wg.Done()
		results[0], _ = h.Handle(ctx, q)
	}()
	<-started
	wg.Add(1)
	go func() {
		defer wg.Done()
		results[1], _ = h.Handle(ctx, q)
	}()

	// the second caller joins the load already in flight
	time.Sleep(50 * time.Millisecond)
	close(release)
	wg.Wait()

	for _, r := range results {
		require.Len(t, r, 1)
		assert.Equal(t, o.ID(), r[0].OrderID)
	}
	e.reader.AssertNumberOfCalls(t, "GetMany", 1)
}

func TestGetOrdersProgressQueryHandler_CancelledCallerDoesNotFailOthers(t *testing.T) {
	e := newEnv(t)
	o := e.order(t, "Shared", 100000, true, now.Add(-time.Hour))

	release := make(chan struct{})
	started := make(chan struct{})
	var once sync.Once
	e.reader.On("GetMany", mock.Anything, sortedIDs(o.ID())).
		Run(func(args mock.Arguments) {
			once.Do(func() { close(started) })
			<-release
		}).
		Return(func(ctx context.Context, _ []kernel.UUID) ([]*order.Order, error) {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
			return []*order.Order{o}, nil
		})

	h := queries.NewGetOrdersProgressQueryHandler(
		e.reader, services.NewActionGateway(), services.NewProgressEngine(), e.clock, 0, nil,
	)
	q, err := queries.NewGetOrdersProgressQuery(actor.NewGuest(), []kernel.UUID{o.ID()})
	require.NoError(t, err)

	leaderCtx, cancelLeader := context.WithCancel(context.Background())
	leaderErr := make(chan error, 1)
	go func() {
		_, err := h.Handle(leaderCtx, q)
		leaderErr <- err
	}()
	<-started

	var follower []services.OrderProgress
	var followerErr error
	done := make(chan struct{})
	go func() {
		defer close(done)
		follower, followerErr = h.Handle(context.Background(), q)
	}()

	time.Sleep(50 * time.Millisecond)
	cancelLeader()
	require.ErrorIs(t, <-leaderErr, context.Canceled)

	close(release)
	<-done
	require.NoError(t, followerErr)
	require.Len(t, follower, 1)
	assert.Equal(t, o.ID(), follower[0].OrderID)
}
