package taskqueue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/hibiken/asynq"
	"go.uber.org/zap"

	"orderservice/internal/config"
	"orderservice/internal/domain"
)

// TypeOrderProcess is the task type for order fulfillment work items.
const TypeOrderProcess = "order:process"

const taskRetention = 24 * time.Hour

func taskID(orderID string) string { return TypeOrderProcess + ":" + orderID }

// Enqueuer persists order work items in the task queue. Enqueue is
// idempotent per order id: the task id is derived from the order id, so a
// redelivered event collides with the already-queued task and reports
// success.
type Enqueuer struct {
	client *asynq.Client
	cfg    config.Worker
	logger *zap.Logger
}

func NewEnqueuer(redisOpt asynq.RedisClientOpt, cfg config.Worker, logger *zap.Logger) *Enqueuer {
	return &Enqueuer{
		client: asynq.NewClient(redisOpt),
		cfg:    cfg,
		logger: logger,
	}
}

func (e *Enqueuer) EnqueueOrder(ctx context.Context, order *domain.Order) error {
	payload, err := json.Marshal(order)
	if err != nil {
		return fmt.Errorf("marshal order task: %w", err)
	}

	info, err := e.client.EnqueueContext(ctx,
		asynq.NewTask(TypeOrderProcess, payload),
		asynq.TaskID(taskID(order.ID)),
		asynq.Queue(e.cfg.Queue),
		asynq.MaxRetry(e.cfg.MaxRetry),
		asynq.Timeout(e.cfg.TaskTimeout),
		asynq.Retention(taskRetention),
	)
	if err != nil {
		if errors.Is(err, asynq.ErrTaskIDConflict) {
			e.logger.Debug("order task already enqueued",
				zap.String("order_id", order.ID),
			)
			return nil
		}
		return domain.RemoteUnavailable("enqueue order task", err)
	}

	e.logger.Info("order task enqueued",
		zap.String("order_id", order.ID),
		zap.String("task_id", info.ID),
		zap.String("queue", info.Queue),
	)
	return nil
}

func (e *Enqueuer) Close() error { return e.client.Close() }
