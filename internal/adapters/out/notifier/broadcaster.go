// Package notifier distributes order updates inside the process. The
// Broadcaster keeps an explicit subscription list: subscribers receive on
// their own buffered channel and sinks are called synchronously. Delivery
// is at-most-once, nothing is stored and nothing is replayed.
package notifier

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"orderflow/internal/core/ports"
)

const DefaultBuffer = 16

// Sink is a named downstream publisher, such as a message broker.
type Sink interface {
	ports.EventPublisher
	Name() string
}

// PublishRecorder observes every sink delivery.
type PublishRecorder interface {
	Published(sink string, err error)
}

// Subscription is one registered listener. C is closed on Unsubscribe.
type Subscription struct {
	id uint64
	c  chan ports.OrderUpdated
}

func (s *Subscription) C() <-chan ports.OrderUpdated {
	return s.c
}

type Broadcaster struct {
	mu     sync.RWMutex
	subs   map[uint64]*Subscription
	nextID uint64
	closed bool

	sinks    []Sink
	recorder PublishRecorder
	logger   *slog.Logger
}

// NewBroadcaster returns a broadcaster forwarding to sinks. recorder may
// be nil.
func NewBroadcaster(logger *slog.Logger, recorder PublishRecorder, sinks ...Sink) *Broadcaster {
	return &Broadcaster{
		subs:     make(map[uint64]*Subscription),
		sinks:    sinks,
		recorder: recorder,
		logger:   logger.With("component", "notifier"),
	}
}

// Subscribe registers a listener with a channel of the given capacity
// (DefaultBuffer when below one). After Close it returns an already
// closed subscription.
func (b *Broadcaster) Subscribe(buffer int) *Subscription {
	if buffer < 1 {
		buffer = DefaultBuffer
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	b.nextID++
	s := &Subscription{id: b.nextID, c: make(chan ports.OrderUpdated, buffer)}
	if b.closed {
		close(s.c)
		return s
	}
	b.subs[s.id] = s
	return s
}

// Unsubscribe removes s and closes its channel. It is safe to call twice.
func (b *Broadcaster) Unsubscribe(s *Subscription) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if _, ok := b.subs[s.id]; !ok {
		return
	}
	delete(b.subs, s.id)
	close(s.c)
}

// Subscribers reports the number of registered listeners.
func (b *Broadcaster) Subscribers() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subs)
}

// Publish hands event to every subscriber without blocking; a subscriber
// whose buffer is full misses it. Sinks are then called in order and their
// failures are joined into the returned error.
func (b *Broadcaster) Publish(ctx context.Context, event ports.OrderUpdated) error {
	b.mu.RLock()
	for _, s := range b.subs {
		select {
		case s.c <- event:
		default:
			b.logger.Warn("subscriber is lagging, update dropped",
				"subscription", s.id, "order_id", event.OrderID.String())
		}
	}
	b.mu.RUnlock()

	var errList []error
	for _, sink := range b.sinks {
		err := sink.Publish(ctx, event)
		if b.recorder != nil {
			b.recorder.Published(sink.Name(), err)
		}
		if err != nil {
			errList = append(errList, fmt.Errorf("%s: %w", sink.Name(), err))
		}
	}
	return errors.Join(errList...)
}

// Close unsubscribes everyone. Later subscriptions are born closed.
func (b *Broadcaster) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()

	for id, s := range b.subs {
		delete(b.subs, id)
		close(s.c)
	}
	b.closed = true
}
