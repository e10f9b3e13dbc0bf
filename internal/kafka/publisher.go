package kafka

import (
	"context"
	"encoding/json"
	"fmt"

	kafkago "github.com/segmentio/kafka-go"
	"go.uber.org/zap"

	"orderservice/internal/domain"
	"orderservice/internal/pkg/retry"
)

type Writer interface {
	WriteMessages(ctx context.Context, msgs ...kafkago.Message) error
	Close() error
}

// Publisher emits order-created events with at-least-once semantics:
// WriteMessages is retried with backoff, duplicates are the consumer's
// problem (every downstream stage is idempotent on order id).
type Publisher struct {
	writer      Writer
	retryPolicy retry.Policy
	logger      *zap.Logger
}

func NewPublisher(brokers []string, topic string, retryPolicy retry.Policy, logger *zap.Logger) *Publisher {
	w := &kafkago.Writer{
		Addr:         kafkago.TCP(brokers...),
		Topic:        topic,
		Balancer:     &kafkago.Hash{},
		RequiredAcks: kafkago.RequireAll,
	}
	return &Publisher{writer: w, retryPolicy: retryPolicy, logger: logger}
}

// NewPublisherWithWriter exists for tests.
func NewPublisherWithWriter(w Writer, retryPolicy retry.Policy, logger *zap.Logger) *Publisher {
	return &Publisher{writer: w, retryPolicy: retryPolicy, logger: logger}
}

// PublishOrderCreated keys the message by order id so all events for one
// order land on one partition in order.
func (p *Publisher) PublishOrderCreated(ctx context.Context, order *domain.Order) error {
	value, err := json.Marshal(order)
	if err != nil {
		return fmt.Errorf("marshal order: %w", err)
	}
	msg := kafkago.Message{
		Key:   []byte(order.ID),
		Value: value,
	}

	if err := retry.Do(ctx, p.retryPolicy, func() error {
		return p.writer.WriteMessages(ctx, msg)
	}); err != nil {
		return domain.RemoteUnavailable("publish order created", err)
	}
	return nil
}

func (p *Publisher) Close() error { return p.writer.Close() }
