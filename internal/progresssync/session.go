// Package progresssync keeps a client's view of order progress in step
// with the server. A Session refreshes the whole visible set on a fixed
// schedule, in batch requests no larger than the server accepts, runs only
// while something is visible, and tells its subscribers about every
// refresh. Actions sent through the session refresh the affected order
// afterwards, and a stale-state refusal re-fetches it before returning.
//
// Usage:
//
//	s := progresssync.NewSession(client, logger)
//	defer s.Close()
//
//	sub := s.Subscribe(func(u progresssync.Update) { render(u.Snapshot) })
//	defer s.Unsubscribe(sub)
//
//	s.SetVisible(ids) // starts polling; an empty set stops it
//
//	if _, err := s.Perform(ctx, id, "accept"); errors.Is(err, errs.ErrStaleState) {
//	    // the snapshot already holds the current version; decide again
//	}
package progresssync

import (
	"context"
	"errors"
	"log/slog"
	"maps"
	"slices"
	"sync"
	"time"

	httpapi "orderflow/internal/adapters/in/http"
	"orderflow/internal/core/domain/model/kernel"
	"orderflow/internal/pkg/errs"

	"github.com/robfig/cron/v3"
)

const (
	DefaultSchedule = "@every 2s"
	DefaultTimeout  = 5 * time.Second

	// DefaultBatchLimit matches the server's default PROGRESS_BATCH_LIMIT.
	DefaultBatchLimit = 100
)

var ErrActionsUnsupported = errors.New("fetcher cannot perform actions")

// Fetcher performs a batch refresh. orderapi.Client implements it.
type Fetcher interface {
	Progress(ctx context.Context, ids []kernel.UUID) (httpapi.BatchProgressResponse, error)
}

// Performer sends actions. When the Fetcher also implements it, as
// orderapi.Client does, the session offers Perform and Adjust.
type Performer interface {
	Perform(ctx context.Context, id kernel.UUID, action string, expectedVersion int64) (httpapi.ActionResponse, error)
	Adjust(ctx context.Context, id kernel.UUID, phase string, deltaMinutes int, expectedVersion int64) (httpapi.ActionResponse, error)
}

// Snapshot is the last known server state per visible order. It is only
// ever replaced by a successful refresh or an action response.
type Snapshot map[kernel.UUID]httpapi.ProgressResponse

// Update is delivered to subscribers after every poll. Err is set when the
// poll failed; Snapshot is then the unchanged previous one.
type Update struct {
	Snapshot Snapshot
	At       time.Time
	Err      error
}

// Subscription identifies a registered observer.
type Subscription struct {
	id uint64
}

type Option func(*Session)

// WithSchedule overrides DefaultSchedule with any robfig/cron schedule expression.
func WithSchedule(schedule string) Option {
	return func(s *Session) { s.schedule = schedule }
}

// WithBatchLimit caps the ids sent per request; a larger visible set is
// refreshed in several requests within one poll. Values below 1 are ignored.
func WithBatchLimit(n int) Option {
	return func(s *Session) {
		if n > 0 {
			s.batchLimit = n
		}
	}
}

// WithTimeout bounds a single refresh.
func WithTimeout(d time.Duration) Option {
	return func(s *Session) { s.timeout = d }
}

// Session owns one poll schedule and its observers. It is safe for
// concurrent use.
type Session struct {
	fetcher    Fetcher
	performer  Performer
	logger     *slog.Logger
	schedule   string
	timeout    time.Duration
	batchLimit int

	mu        sync.Mutex
	cron      *cron.Cron
	visible   []kernel.UUID
	snapshot  Snapshot
	observers map[uint64]func(Update)
	nextID    uint64
	closed    bool
}

func NewSession(fetcher Fetcher, logger *slog.Logger, opts ...Option) *Session {
	s := &Session{
		fetcher:    fetcher,
		logger:     logger.With("component", "progress_sync"),
		schedule:   DefaultSchedule,
		timeout:    DefaultTimeout,
		batchLimit: DefaultBatchLimit,
		snapshot:   Snapshot{},
		observers:  make(map[uint64]func(Update)),
	}
	s.performer, _ = fetcher.(Performer)
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// SetVisible replaces the visible set. Polling starts when the set becomes
// non-empty and stops when it becomes empty. Orders that left the set are
// dropped from the snapshot.
func (s *Session) SetVisible(ids []kernel.UUID) error {
	visible := dedupe(ids)

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}

	s.visible = visible
	for id := range s.snapshot {
		if !slices.Contains(visible, id) {
			delete(s.snapshot, id)
		}
	}

	switch {
	case len(visible) == 0 && s.cron != nil:
		s.stopLocked()
	case len(visible) > 0 && s.cron == nil:
		return s.startLocked()
	}
	return nil
}

// Running reports whether a poll schedule is active.
func (s *Session) Running() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cron != nil
}

func (s *Session) Subscribe(fn func(Update)) Subscription {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.nextID++
	s.observers[s.nextID] = fn
	return Subscription{id: s.nextID}
}

// Unsubscribe is idempotent.
func (s *Session) Unsubscribe(sub Subscription) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.observers, sub.id)
}

// Snapshot returns a copy of the current snapshot.
func (s *Session) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return maps.Clone(s.snapshot)
}

// Poll refreshes the visible set once. A failed refresh keeps the previous
// snapshot and is not retried before the next scheduled poll. A visible set
// above the batch limit is fetched in chunks; any failing chunk fails the
// whole poll.
func (s *Session) Poll(ctx context.Context) error {
	s.mu.Lock()
	ids := slices.Clone(s.visible)
	closed := s.closed
	s.mu.Unlock()
	if closed || len(ids) == 0 {
		return nil
	}

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	resp, err := s.fetch(ctx, ids)

	s.mu.Lock()
	if err == nil {
		next := make(Snapshot, len(resp.Orders))
		for _, p := range resp.Orders {
			id, parseErr := kernel.UUIDFromString(p.OrderID)
			if parseErr != nil || !slices.Contains(s.visible, id) {
				continue
			}
			next[id] = p
		}
		s.snapshot = next
	}
	update := Update{Snapshot: maps.Clone(s.snapshot), At: resp.Evaluated, Err: err}
	observers := slices.Collect(maps.Values(s.observers))
	s.mu.Unlock()

	if err != nil {
		s.logger.WarnContext(ctx, "progress refresh failed", "orders", len(ids), "error", err)
	}
	for _, fn := range observers {
		fn(update)
	}
	return err
}

func (s *Session) fetch(ctx context.Context, ids []kernel.UUID) (httpapi.BatchProgressResponse, error) {
	var out httpapi.BatchProgressResponse
	for chunk := range slices.Chunk(ids, s.batchLimit) {
		resp, err := s.fetcher.Progress(ctx, chunk)
		if err != nil {
			return httpapi.BatchProgressResponse{}, err
		}
		out.Orders = append(out.Orders, resp.Orders...)
		out.Evaluated = resp.Evaluated
	}
	return out, nil
}

// Perform sends action for id with the version the snapshot knows as
// If-Match. On success, and on a stale-state refusal, the order is
// re-fetched into the snapshot before Perform returns, so a retry decides
// on current state.
func (s *Session) Perform(ctx context.Context, id kernel.UUID, action string) (httpapi.ActionResponse, error) {
	if s.performer == nil {
		return httpapi.ActionResponse{}, ErrActionsUnsupported
	}
	resp, err := s.performer.Perform(ctx, id, action, s.knownVersion(id))
	return resp, s.afterAction(ctx, id, err)
}

// Adjust moves the estimate of phase like Perform sends an action.
func (s *Session) Adjust(ctx context.Context, id kernel.UUID, phase string, deltaMinutes int) (httpapi.ActionResponse, error) {
	if s.performer == nil {
		return httpapi.ActionResponse{}, ErrActionsUnsupported
	}
	resp, err := s.performer.Adjust(ctx, id, phase, deltaMinutes, s.knownVersion(id))
	return resp, s.afterAction(ctx, id, err)
}

func (s *Session) knownVersion(id kernel.UUID) int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshot[id].Version
}

// afterAction returns the action error unchanged. A failed re-fetch after
// a successful action is only logged; the next poll catches up.
func (s *Session) afterAction(ctx context.Context, id kernel.UUID, err error) error {
	if err != nil && !errors.Is(err, errs.ErrStaleState) {
		return err
	}

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	resp, fetchErr := s.fetcher.Progress(ctx, []kernel.UUID{id})
	if fetchErr != nil {
		s.logger.WarnContext(ctx, "order refresh after action failed", "order_id", id.String(), "error", fetchErr)
		return err
	}
	for _, p := range resp.Orders {
		s.Apply(p)
	}
	return err
}

// Apply records the order returned by an action response, so the view
// reflects the action without waiting for the next poll. Older versions
// than the one already known are ignored.
func (s *Session) Apply(p httpapi.ProgressResponse) {
	id, err := kernel.UUIDFromString(p.OrderID)
	if err != nil {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if !slices.Contains(s.visible, id) {
		return
	}
	if known, ok := s.snapshot[id]; ok && known.Version > p.Version {
		return
	}
	s.snapshot[id] = p
}

// Close stops polling and drops every observer. The session cannot be
// restarted.
func (s *Session) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.closed = true
	s.stopLocked()
	clear(s.observers)
}

func (s *Session) startLocked() error {
	c := cron.New(cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger)))
	if _, err := c.AddFunc(s.schedule, func() {
		_ = s.Poll(context.Background())
	}); err != nil {
		return err
	}

	c.Start()
	s.cron = c
	s.logger.Debug("progress sync started", "schedule", s.schedule, "orders", len(s.visible))
	return nil
}

// stopLocked does not wait for a running poll; Poll re-checks the state
// under the lock and never outlives its timeout.
func (s *Session) stopLocked() {
	if s.cron == nil {
		return
	}
	s.cron.Stop()
	s.cron = nil
	s.logger.Debug("progress sync stopped")
}

func dedupe(ids []kernel.UUID) []kernel.UUID {
	out := make([]kernel.UUID, 0, len(ids))
	for _, id := range ids {
		if !slices.Contains(out, id) {
			out = append(out, id)
		}
	}
	return out
}
