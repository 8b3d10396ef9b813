package progresssync_test

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"testing"
	"time"

	httpapi "orderflow/internal/adapters/in/http"
	"orderflow/internal/core/domain/model/kernel"
	"orderflow/internal/pkg/errs"
	"orderflow/internal/progresssync"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type MockFetcher struct{ mock.Mock }

func (m *MockFetcher) Progress(ctx context.Context, ids []kernel.UUID) (httpapi.BatchProgressResponse, error) {
	args := m.Called(ctx, ids)
	resp, _ := args.Get(0).(httpapi.BatchProgressResponse)
	return resp, args.Error(1)
}

// MockClient can refresh and act, like orderapi.Client.
type MockClient struct{ MockFetcher }

func (m *MockClient) Perform(ctx context.Context, id kernel.UUID, action string, expectedVersion int64) (httpapi.ActionResponse, error) {
	args := m.Called(ctx, id, action, expectedVersion)
	resp, _ := args.Get(0).(httpapi.ActionResponse)
	return resp, args.Error(1)
}

func (m *MockClient) Adjust(
	ctx context.Context,
	id kernel.UUID,
	phase string,
	deltaMinutes int,
	expectedVersion int64,
) (httpapi.ActionResponse, error) {
	args := m.Called(ctx, id, phase, deltaMinutes, expectedVersion)
	resp, _ := args.Get(0).(httpapi.ActionResponse)
	return resp, args.Error(1)
}

func batch(orders ...httpapi.ProgressResponse) httpapi.BatchProgressResponse {
	return httpapi.BatchProgressResponse{Orders: orders}
}

func progress(id kernel.UUID, status string, version int64) httpapi.ProgressResponse {
	return httpapi.ProgressResponse{OrderID: id.String(), Status: status, Version: version}
}

func newSession(f progresssync.Fetcher, opts ...progresssync.Option) *progresssync.Session {
	return progresssync.NewSession(f, slog.New(slog.DiscardHandler), opts...)
}

// recorder collects updates delivered to a subscriber.
type recorder struct {
	mu      sync.Mutex
	updates []progresssync.Update
}

func (r *recorder) observe(u progresssync.Update) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.updates = append(r.updates, u)
}

func (r *recorder) all() []progresssync.Update {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]progresssync.Update(nil), r.updates...)
}

func TestSession_Poll(t *testing.T) {
	a, b := kernel.NewUUID(), kernel.NewUUID()
	fetcher := new(MockFetcher)
	s := newSession(fetcher)
	defer s.Close()

	rec := new(recorder)
	s.Subscribe(rec.observe)
	require.NoError(t, s.SetVisible([]kernel.UUID{a, b, a}))

	evaluated := time.Date(2025, 5, 2, 19, 0, 0, 0, time.UTC)
	fetcher.On("Progress", mock.Anything, []kernel.UUID{a, b}).Return(httpapi.BatchProgressResponse{
		Orders: []httpapi.ProgressResponse{
			progress(a, "accepted", 2),
			progress(kernel.NewUUID(), "placed", 1),
		},
		Evaluated: evaluated,
	}, nil).Once()

	require.NoError(t, s.Poll(context.Background()))

	snapshot := s.Snapshot()
	assert.Len(t, snapshot, 1)
	assert.Equal(t, "accepted", snapshot[a].Status)

	updates := rec.all()
	require.Len(t, updates, 1)
	assert.NoError(t, updates[0].Err)
	assert.Equal(t, evaluated, updates[0].At)
	fetcher.AssertExpectations(t)
}

func TestSession_FailedPollKeepsSnapshot(t *testing.T) {
	a := kernel.NewUUID()
	fetcher := new(MockFetcher)
	s := newSession(fetcher)
	defer s.Close()
	require.NoError(t, s.SetVisible([]kernel.UUID{a}))

	fetcher.On("Progress", mock.Anything, []kernel.UUID{a}).
		Return(httpapi.BatchProgressResponse{Orders: []httpapi.ProgressResponse{progress(a, "prepared", 3)}}, nil).Once()
	require.NoError(t, s.Poll(context.Background()))

	rec := new(recorder)
	s.Subscribe(rec.observe)
	failure := errs.NewNetworkFailureErrorWithCause("progress", errors.New("connection refused"))
	fetcher.On("Progress", mock.Anything, []kernel.UUID{a}).Return(nil, failure).Once()

	err := s.Poll(context.Background())
	require.ErrorIs(t, err, errs.ErrNetworkFailure)

	assert.Equal(t, "prepared", s.Snapshot()[a].Status)
	updates := rec.all()
	require.Len(t, updates, 1)
	require.ErrorIs(t, updates[0].Err, errs.ErrNetworkFailure)
	assert.Equal(t, "prepared", updates[0].Snapshot[a].Status)
	fetcher.AssertExpectations(t)
}

func TestSession_Lifecycle(t *testing.T) {
	fetcher := new(MockFetcher)
	fetcher.On("Progress", mock.Anything, mock.Anything).Return(httpapi.BatchProgressResponse{}, nil).Maybe()
	s := newSession(fetcher)

	t.Run("should not run without visible orders", func(t *testing.T) {
		assert.False(t, s.Running())
		require.NoError(t, s.Poll(context.Background()))
		fetcher.AssertNumberOfCalls(t, "Progress", 0)
	})

	t.Run("should start when orders become visible", func(t *testing.T) {
		require.NoError(t, s.SetVisible([]kernel.UUID{kernel.NewUUID()}))
		assert.True(t, s.Running())
	})

	t.Run("should stop when the visible set empties", func(t *testing.T) {
		require.NoError(t, s.SetVisible(nil))
		assert.False(t, s.Running())
		assert.Empty(t, s.Snapshot())
	})

	t.Run("should stay stopped after close", func(t *testing.T) {
		require.NoError(t, s.SetVisible([]kernel.UUID{kernel.NewUUID()}))
		s.Close()
		assert.False(t, s.Running())

		require.NoError(t, s.SetVisible([]kernel.UUID{kernel.NewUUID()}))
		assert.False(t, s.Running())
		s.Close()
	})
}

func TestSession_PollsOnSchedule(t *testing.T) {
	a := kernel.NewUUID()
	fetcher := new(MockFetcher)
	fetcher.On("Progress", mock.Anything, []kernel.UUID{a}).
		Return(httpapi.BatchProgressResponse{Orders: []httpapi.ProgressResponse{progress(a, "accepted", 2)}}, nil)

	s := newSession(fetcher, progresssync.WithSchedule("@every 1s"))
	defer s.Close()

	polled := make(chan struct{}, 8)
	s.Subscribe(func(progresssync.Update) { polled <- struct{}{} })
	require.NoError(t, s.SetVisible([]kernel.UUID{a}))

	select {
	case <-polled:
	case <-time.After(3 * time.Second):
		t.Fatal("no scheduled poll")
	}
	assert.Equal(t, "accepted", s.Snapshot()[a].Status)
}

func TestSession_Unsubscribe(t *testing.T) {
	a := kernel.NewUUID()
	fetcher := new(MockFetcher)
	fetcher.On("Progress", mock.Anything, mock.Anything).Return(httpapi.BatchProgressResponse{}, nil)

	s := newSession(fetcher)
	defer s.Close()
	require.NoError(t, s.SetVisible([]kernel.UUID{a}))

	rec := new(recorder)
	sub := s.Subscribe(rec.observe)
	require.NoError(t, s.Poll(context.Background()))
	s.Unsubscribe(sub)
	s.Unsubscribe(sub)
	require.NoError(t, s.Poll(context.Background()))

	assert.Len(t, rec.all(), 1)
}

func TestSession_Apply(t *testing.T) {
	a, hidden := kernel.NewUUID(), kernel.NewUUID()
	s := newSession(new(MockFetcher))
	defer s.Close()
	require.NoError(t, s.SetVisible([]kernel.UUID{a}))

	s.Apply(progress(a, "accepted", 2))
	s.Apply(progress(a, "placed", 1))
	s.Apply(progress(hidden, "accepted", 2))

	snapshot := s.Snapshot()
	assert.Len(t, snapshot, 1)
	assert.Equal(t, "accepted", snapshot[a].Status)
}

func TestSession_PollSplitsLargeVisibleSets(t *testing.T) {
	ids := []kernel.UUID{kernel.NewUUID(), kernel.NewUUID(), kernel.NewUUID(), kernel.NewUUID(), kernel.NewUUID()}
	fetcher := new(MockFetcher)
	s := newSession(fetcher, progresssync.WithBatchLimit(2))
	defer s.Close()
	require.NoError(t, s.SetVisible(ids))

	t.Run("should refresh every chunk in one poll", func(t *testing.T) {
		fetcher.On("Progress", mock.Anything, ids[0:2]).Return(batch(progress(ids[0], "placed", 1), progress(ids[1], "placed", 1)), nil).Once()
		fetcher.On("Progress", mock.Anything, ids[2:4]).Return(batch(progress(ids[2], "placed", 1), progress(ids[3], "placed", 1)), nil).Once()
		fetcher.On("Progress", mock.Anything, ids[4:5]).Return(batch(progress(ids[4], "placed", 1)), nil).Once()

		require.NoError(t, s.Poll(context.Background()))
		assert.Len(t, s.Snapshot(), 5)
		fetcher.AssertExpectations(t)
	})

	t.Run("should keep the snapshot when a chunk fails", func(t *testing.T) {
		fetcher.On("Progress", mock.Anything, ids[0:2]).Return(batch(progress(ids[0], "accepted", 2)), nil).Once()
		fetcher.On("Progress", mock.Anything, ids[2:4]).Return(nil, errs.NewValueIsOutOfRangeError("ids", 2, 0, 1)).Once()

		require.ErrorIs(t, s.Poll(context.Background()), errs.ErrValueIsOutOfRange)
		snapshot := s.Snapshot()
		assert.Len(t, snapshot, 5)
		assert.Equal(t, "placed", snapshot[ids[0]].Status)
		fetcher.AssertExpectations(t)
	})
}

func TestSession_Perform(t *testing.T) {
	ctx := context.Background()

	setup := func(t *testing.T) (*MockClient, *progresssync.Session, kernel.UUID) {
		t.Helper()
		id := kernel.NewUUID()
		client := new(MockClient)
		s := newSession(client)
		t.Cleanup(s.Close)
		require.NoError(t, s.SetVisible([]kernel.UUID{id}))
		s.Apply(progress(id, "placed", 1))
		return client, s, id
	}

	t.Run("should send the known version and refresh the order", func(t *testing.T) {
		client, s, id := setup(t)
		client.On("Perform", ctx, id, "accept", int64(1)).Return(httpapi.ActionResponse{Action: "accept"}, nil).Once()
		client.On("Progress", mock.Anything, []kernel.UUID{id}).Return(batch(progress(id, "accepted", 2)), nil).Once()

		resp, err := s.Perform(ctx, id, "accept")
		require.NoError(t, err)
		assert.Equal(t, "accept", resp.Action)
		assert.Equal(t, int64(2), s.Snapshot()[id].Version)
		client.AssertExpectations(t)
	})

	t.Run("should re-fetch the order on stale state", func(t *testing.T) {
		client, s, id := setup(t)
		client.On("Perform", ctx, id, "accept", int64(1)).Return(nil, errs.NewStaleStateError("order", id.String())).Once()
		client.On("Progress", mock.Anything, []kernel.UUID{id}).Return(batch(progress(id, "rejected", 3)), nil).Once()

		_, err := s.Perform(ctx, id, "accept")
		require.ErrorIs(t, err, errs.ErrStaleState)
		snapshot := s.Snapshot()
		assert.Equal(t, "rejected", snapshot[id].Status)
		assert.Equal(t, int64(3), snapshot[id].Version)
		client.AssertExpectations(t)
	})

	t.Run("should not refresh after other refusals", func(t *testing.T) {
		client, s, id := setup(t)
		client.On("Perform", ctx, id, "deliver", int64(1)).Return(nil, errs.NewPermissionDeniedError("store", "deliver")).Once()

		_, err := s.Perform(ctx, id, "deliver")
		require.ErrorIs(t, err, errs.ErrPermissionDenied)
		client.AssertNotCalled(t, "Progress", mock.Anything, mock.Anything)
		client.AssertExpectations(t)
	})

	t.Run("should re-fetch after a stale adjustment", func(t *testing.T) {
		client, s, id := setup(t)
		client.On("Adjust", ctx, id, "prepare", 5, int64(1)).Return(nil, errs.NewStaleStateError("order", id.String())).Once()
		client.On("Progress", mock.Anything, []kernel.UUID{id}).Return(batch(progress(id, "accepted", 2)), nil).Once()

		_, err := s.Adjust(ctx, id, "prepare", 5)
		require.ErrorIs(t, err, errs.ErrStaleState)
		assert.Equal(t, int64(2), s.Snapshot()[id].Version)
		client.AssertExpectations(t)
	})

	t.Run("should need a client that can act", func(t *testing.T) {
		s := newSession(new(MockFetcher))
		defer s.Close()

		_, err := s.Perform(ctx, kernel.NewUUID(), "accept")
		require.ErrorIs(t, err, progresssync.ErrActionsUnsupported)
	})
}
