// Package broker forwards order updates to a Kafka topic. Messages are keyed
// by order id so the updates of one order stay on one partition, in order.
package broker

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"orderflow/internal/adapters/out/notifier"
	"orderflow/internal/core/ports"

	"github.com/segmentio/kafka-go"
)

const (
	DefaultTopic = "order-updates"

	// Publish runs inside the request that changed the order, so a message
	// is flushed almost at once and a broker outage costs at most
	// DefaultPublishTimeout.
	DefaultBatchTimeout   = 10 * time.Millisecond
	DefaultPublishTimeout = 500 * time.Millisecond

	sinkName    = "kafka"
	maxAttempts = 3
)

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// Config zero values fall back to the defaults above.
type Config struct {
	Brokers        []string
	Topic          string
	BatchTimeout   time.Duration
	PublishTimeout time.Duration
}

// OrderUpdatesPublisher implements notifier.Sink.
type OrderUpdatesPublisher struct {
	writer  messageWriter
	timeout time.Duration
}

func NewOrderUpdatesPublisher(cfg Config) *OrderUpdatesPublisher {
	topic := cfg.Topic
	if topic == "" {
		topic = DefaultTopic
	}
	batchTimeout := cfg.BatchTimeout
	if batchTimeout <= 0 {
		batchTimeout = DefaultBatchTimeout
	}
	return newOrderUpdatesPublisher(&kafka.Writer{
		Addr:                   kafka.TCP(cfg.Brokers...),
		Topic:                  topic,
		Balancer:               &kafka.Hash{},
		BatchTimeout:           batchTimeout,
		MaxAttempts:            maxAttempts,
		RequiredAcks:           kafka.RequireOne,
		AllowAutoTopicCreation: true,
	}, cfg.PublishTimeout)
}

func newOrderUpdatesPublisher(w messageWriter, timeout time.Duration) *OrderUpdatesPublisher {
	if timeout <= 0 {
		timeout = DefaultPublishTimeout
	}
	return &OrderUpdatesPublisher{writer: w, timeout: timeout}
}

func (p *OrderUpdatesPublisher) Name() string {
	return sinkName
}

// Publish writes one message within the publish timeout. Failed writes are
// not retried beyond the writer's own attempts.
func (p *OrderUpdatesPublisher) Publish(ctx context.Context, event ports.OrderUpdated) error {
	value, err := json.Marshal(notifier.NewPayload(event))
	if err != nil {
		return fmt.Errorf("encode order update: %w", err)
	}

	msg := kafka.Message{
		Key:   []byte(event.OrderID.String()),
		Value: value,
		Time:  event.At,
		Headers: []kafka.Header{
			{Key: "action", Value: []byte(event.Action)},
		},
	}

	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()
	if err = p.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("write order update: %w", err)
	}
	return nil
}

func (p *OrderUpdatesPublisher) Close() error {
	return p.writer.Close()
}
