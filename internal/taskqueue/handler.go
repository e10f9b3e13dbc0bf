package taskqueue

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/hibiken/asynq"
	"go.uber.org/zap"

	"orderservice/internal/domain"
	"orderservice/internal/observability"
)

//go:generate mockgen -source internal/taskqueue/handler.go -destination=internal/taskqueue/handler_mock_test.go -package=taskqueue

// Marker records which orders were already processed, so a duplicate
// delivery of the same order is an externally-invisible no-op.
type Marker interface {
	Processed(ctx context.Context, orderID string) (bool, error)
	MarkProcessed(ctx context.Context, orderID string) error
}

// Processor performs the order-processing side effect. Returned errors are
// treated as transient; asynq retries with backoff up to the configured
// bound and archives the task afterwards.
type Processor interface {
	Process(ctx context.Context, order *domain.Order) error
}

// Handler executes one order work item: decode, dedup check, side effect,
// record marker. The marker is written only after the side effect
// succeeds, so a failed attempt stays retryable.
type Handler struct {
	marker    Marker
	processor Processor
	logger    *zap.Logger
	metrics   observability.Metrics
}

func NewHandler(marker Marker, processor Processor, logger *zap.Logger, metrics observability.Metrics) *Handler {
	return &Handler{
		marker:    marker,
		processor: processor,
		logger:    logger,
		metrics:   metrics,
	}
}

func (h *Handler) ProcessTask(ctx context.Context, task *asynq.Task) error {
	var order domain.Order
	if err := json.Unmarshal(task.Payload(), &order); err != nil {
		// An undecodable payload will never succeed; skip the retry loop
		// and let asynq archive it right away.
		return fmt.Errorf("unmarshal order task: %w: %w", err, asynq.SkipRetry)
	}

	done, err := h.marker.Processed(ctx, order.ID)
	if err != nil {
		return fmt.Errorf("check processed marker: %w", err)
	}
	if done {
		h.logger.Info("order already processed, skipping",
			zap.String("order_id", order.ID),
		)
		return nil
	}

	t0 := time.Now()
	if err := h.processor.Process(ctx, &order); err != nil {
		h.metrics.ObserveTask(observability.SinceMs(t0), false)
		return fmt.Errorf("process order %s: %w", order.ID, err)
	}
	h.metrics.ObserveTask(observability.SinceMs(t0), true)

	if err := h.marker.MarkProcessed(ctx, order.ID); err != nil {
		// The side effect is done; failing here only risks one extra
		// (idempotent) execution on redelivery.
		h.logger.Warn("failed to record processed marker",
			zap.String("order_id", order.ID),
			zap.Error(err),
		)
	}

	h.logger.Info("order processed",
		zap.String("order_id", order.ID),
		zap.Duration("elapsed", time.Since(t0)),
	)
	return nil
}
