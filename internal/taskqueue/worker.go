package taskqueue

import (
	"context"
	"time"

	"github.com/hibiken/asynq"
	"go.uber.org/zap"

	"orderservice/internal/config"
	"orderservice/internal/domain"
	"orderservice/internal/pkg/retry"
)

// NewServer builds the asynq worker server: competing consumers on the
// order queue, exponential backoff between attempts, archive (dead-letter)
// once MaxRetry is exhausted. Archived tasks stay inspectable in redis,
// they are never dropped.
func NewServer(redisOpt asynq.RedisClientOpt, cfg config.Worker, retryPolicy retry.Policy, logger *zap.Logger) *asynq.Server {
	return asynq.NewServer(redisOpt, asynq.Config{
		Concurrency: cfg.Concurrency,
		Queues:      map[string]int{cfg.Queue: 1},
		RetryDelayFunc: func(n int, _ error, _ *asynq.Task) time.Duration {
			return retryPolicy.Backoff(n)
		},
		ErrorHandler: asynq.ErrorHandlerFunc(func(ctx context.Context, task *asynq.Task, err error) {
			retried, _ := asynq.GetRetryCount(ctx)
			maxRetry, _ := asynq.GetMaxRetry(ctx)
			if retried >= maxRetry {
				logger.Error("task exhausted retries, moving to archive",
					zap.String("type", task.Type()),
					zap.Int("retried", retried),
					zap.Error(err),
				)
				return
			}
			logger.Warn("task failed, will retry",
				zap.String("type", task.Type()),
				zap.Int("retried", retried),
				zap.Int("max_retry", maxRetry),
				zap.Error(err),
			)
		}),
		Logger: zapLogger{logger.Sugar()},
	})
}

// NewMux registers the order handler.
func NewMux(handler *Handler) *asynq.ServeMux {
	mux := asynq.NewServeMux()
	mux.HandleFunc(TypeOrderProcess, handler.ProcessTask)
	return mux
}

// FulfillmentProcessor is the placeholder order-processing side effect; a
// real deployment swaps in shipping, billing or notification calls behind
// the Processor interface.
type FulfillmentProcessor struct {
	logger *zap.Logger
}

func NewFulfillmentProcessor(logger *zap.Logger) *FulfillmentProcessor {
	return &FulfillmentProcessor{logger: logger}
}

func (p *FulfillmentProcessor) Process(ctx context.Context, order *domain.Order) error {
	select {
	case <-time.After(2 * time.Second):
	case <-ctx.Done():
		return ctx.Err()
	}
	p.logger.Info("order fulfillment completed",
		zap.String("order_id", order.ID),
		zap.String("creator_id", order.CreatorID),
		zap.Int("item_count", len(order.Items)),
	)
	return nil
}

// zapLogger adapts zap's sugared logger to asynq's Logger interface.
type zapLogger struct {
	s *zap.SugaredLogger
}

func (l zapLogger) Debug(args ...any) { l.s.Debug(args...) }
func (l zapLogger) Info(args ...any)  { l.s.Info(args...) }
func (l zapLogger) Warn(args ...any)  { l.s.Warn(args...) }
func (l zapLogger) Error(args ...any) { l.s.Error(args...) }
func (l zapLogger) Fatal(args ...any) { l.s.Fatal(args...) }
