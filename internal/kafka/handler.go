package kafka

import (
	"context"
	"encoding/json"
	"errors"

	lru "github.com/hashicorp/golang-lru/v2"
	kafkago "github.com/segmentio/kafka-go"
	"go.uber.org/zap"

	"orderservice/internal/domain"
)

//go:generate mockgen -source internal/kafka/handler.go -destination=internal/kafka/handler_mock_test.go -package=kafka

var ErrBadPayload = errors.New("bad event payload")

// Enqueuer hands an order off to the durable task queue. It must be
// idempotent per order id: enqueueing an already-queued order reports
// success.
type Enqueuer interface {
	EnqueueOrder(ctx context.Context, order *domain.Order) error
}

// OrderEventHandler converts each order-created event into a task-queue
// item. A nil return lets the consumer commit the offset, so the hand-off
// happens strictly before the ack; a crash in between only causes a
// redelivery, which the idempotent enqueue absorbs.
//
// The LRU of recently enqueued ids is a best-effort short-circuit for
// broker redeliveries within one process lifetime; correctness never
// depends on it.
type OrderEventHandler struct {
	enqueuer Enqueuer
	recent   *lru.Cache[string, struct{}]
	logger   *zap.Logger
}

func NewOrderEventHandler(enqueuer Enqueuer, recentSize int, logger *zap.Logger) (*OrderEventHandler, error) {
	recent, err := lru.New[string, struct{}](recentSize)
	if err != nil {
		return nil, err
	}
	return &OrderEventHandler{
		enqueuer: enqueuer,
		recent:   recent,
		logger:   logger,
	}, nil
}

func (h *OrderEventHandler) Handle(ctx context.Context, msg kafkago.Message) error {
	var order domain.Order
	if err := json.Unmarshal(msg.Value, &order); err != nil {
		// Poison messages must not wedge the partition: log, count the
		// message as handled so the offset can move on.
		h.logger.Error("undecodable order event, skipping",
			zap.Error(err),
			zap.Int("partition", msg.Partition),
			zap.Int64("offset", msg.Offset),
		)
		return nil
	}
	if order.ID == "" {
		h.logger.Error("order event without id, skipping",
			zap.Int("partition", msg.Partition),
			zap.Int64("offset", msg.Offset),
		)
		return nil
	}

	if h.recent.Contains(order.ID) {
		h.logger.Debug("duplicate order event short-circuited",
			zap.String("order_id", order.ID),
		)
		return nil
	}

	if err := h.enqueuer.EnqueueOrder(ctx, &order); err != nil {
		return err
	}
	h.recent.Add(order.ID, struct{}{})

	h.logger.Info("order event forwarded to task queue",
		zap.String("order_id", order.ID),
		zap.Int("partition", msg.Partition),
		zap.Int64("offset", msg.Offset),
	)
	return nil
}
