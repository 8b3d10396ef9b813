package broker

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"orderflow/internal/adapters/out/notifier"
	"orderflow/internal/core/domain/model/kernel"
	"orderflow/internal/core/domain/model/order"
	"orderflow/internal/core/ports"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeWriter struct {
	messages []kafka.Message
	err      error
	closed   bool
	hang     bool
}

func (w *fakeWriter) WriteMessages(ctx context.Context, msgs ...kafka.Message) error {
	if w.hang {
		<-ctx.Done()
		return ctx.Err()
	}
	if w.err != nil {
		return w.err
	}
	w.messages = append(w.messages, msgs...)
	return nil
}

func (w *fakeWriter) Close() error {
	w.closed = true
	return nil
}

func TestOrderUpdatesPublisher_Publish(t *testing.T) {
	w := &fakeWriter{}
	p := newOrderUpdatesPublisher(w, 0)
	ev := ports.OrderUpdated{
		OrderID: kernel.NewUUID(),
		Status:  order.PickedUp,
		Version: 5,
		Action:  "pickup",
		At:      time.Date(2025, 5, 2, 19, 30, 0, 0, time.UTC),
	}

	require.NoError(t, p.Publish(t.Context(), ev))

	require.Len(t, w.messages, 1)
	msg := w.messages[0]
	assert.Equal(t, ev.OrderID.String(), string(msg.Key))
	assert.Equal(t, []kafka.Header{{Key: "action", Value: []byte("pickup")}}, msg.Headers)

	var payload notifier.Payload
	require.NoError(t, json.Unmarshal(msg.Value, &payload))
	assert.Equal(t, notifier.NewPayload(ev), payload)
	assert.Equal(t, "kafka", p.Name())
}

func TestOrderUpdatesPublisher_PublishError(t *testing.T) {
	boom := errors.New("leader not available")
	p := newOrderUpdatesPublisher(&fakeWriter{err: boom}, 0)

	err := p.Publish(t.Context(), ports.OrderUpdated{OrderID: kernel.NewUUID(), Status: order.Placed, Version: 1})

	require.ErrorIs(t, err, boom)
}

func TestOrderUpdatesPublisher_Close(t *testing.T) {
	w := &fakeWriter{}
	require.NoError(t, newOrderUpdatesPublisher(w, 0).Close())
	assert.True(t, w.closed)
}

func TestNewOrderUpdatesPublisher_WriterSettings(t *testing.T) {
	t.Run("should flush quickly by default", func(t *testing.T) {
		p := NewOrderUpdatesPublisher(Config{Brokers: []string{"localhost:9092"}})
		defer p.Close()

		w, ok := p.writer.(*kafka.Writer)
		require.True(t, ok)
		assert.Equal(t, DefaultBatchTimeout, w.BatchTimeout)
		assert.Equal(t, DefaultTopic, w.Topic)
		assert.Equal(t, DefaultPublishTimeout, p.timeout)
	})

	t.Run("should take configured timeouts", func(t *testing.T) {
		p := NewOrderUpdatesPublisher(Config{
			Brokers:        []string{"localhost:9092"},
			Topic:          "orders",
			BatchTimeout:   time.Millisecond,
			PublishTimeout: time.Second,
		})
		defer p.Close()

		w, ok := p.writer.(*kafka.Writer)
		require.True(t, ok)
		assert.Equal(t, time.Millisecond, w.BatchTimeout)
		assert.Equal(t, "orders", w.Topic)
		assert.Equal(t, time.Second, p.timeout)
	})
}

func TestOrderUpdatesPublisher_PublishGivesUpAfterTimeout(t *testing.T) {
	p := newOrderUpdatesPublisher(&fakeWriter{hang: true}, 20*time.Millisecond)

	start := time.Now()
	err := p.Publish(t.Context(), ports.OrderUpdated{OrderID: kernel.NewUUID(), Status: order.Placed, Version: 1})

	require.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Less(t, time.Since(start), time.Second)
}
