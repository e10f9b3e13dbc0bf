package kafka

import (
	"context"
	"errors"
	"strings"
	"time"

	kafkago "github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

type MessageHandler interface {
	Handle(ctx context.Context, msg kafkago.Message) error
}

type Reader interface {
	Config() kafkago.ReaderConfig
	FetchMessage(ctx context.Context) (kafkago.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafkago.Message) error
	Close() error
}

// Consumer runs the fetch -> handle -> commit cycle for one consumer-group
// member. Handling is fanned out to a worker pool, but the fetch loop waits
// for each message's result before committing, so offsets advance in fetch
// order. A message whose handling fails is re-dispatched until it succeeds:
// committing a later offset on the same partition would move the group
// position past the failed message and lose it, so the loop never fetches
// past an unacked message. Only undecodable payloads are skipped, and that
// decision belongs to the handler.
type Consumer struct {
	handler MessageHandler
	reader  Reader
	logger  *zap.Logger

	workerPoolSize int
	jobs           chan jobItem
}

type jobItem struct {
	msg    kafkago.Message
	result chan error
}

func NewReader(brokers []string, topic, groupID string) Reader {
	return kafkago.NewReader(kafkago.ReaderConfig{
		Brokers: brokers,
		Topic:   topic,
		GroupID: groupID,
	})
}

func NewConsumer(handler MessageHandler, reader Reader, workers int, logger *zap.Logger) *Consumer {
	if workers < 1 {
		workers = 1
	}
	return &Consumer{
		handler:        handler,
		reader:         reader,
		logger:         logger,
		workerPoolSize: workers,
		jobs:           make(chan jobItem, workers*2),
	}
}

func (c *Consumer) Start(ctx context.Context) {
	rc := c.reader.Config()
	c.logger.Info("starting kafka consumer",
		zap.Strings("brokers", rc.Brokers),
		zap.String("group", rc.GroupID),
		zap.String("topic", rc.Topic),
	)

	for i := 0; i < c.workerPoolSize; i++ {
		go c.worker(ctx)
	}

	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		msg, err := c.reader.FetchMessage(ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return
			}
			if isBenignFetchTimeout(err) {
				c.logger.Debug("fetch timeout (idle), backing off", zap.Error(err))
				sleepWithContext(ctx, 10*time.Second)
				continue
			}
			// Frequent temporary errors during rebalancing; wait and continue.
			c.logger.Warn("fetch message error, backing off", zap.Error(err))
			sleepWithContext(ctx, 500*time.Millisecond)
			continue
		}

		for attempt := 1; ; attempt++ {
			done := make(chan error, 1)
			select {
			case c.jobs <- jobItem{msg: msg, result: done}:
			case <-ctx.Done():
				return
			}

			var procErr error
			select {
			case procErr = <-done:
			case <-ctx.Done():
				return
			}
			if procErr == nil {
				break
			}

			c.logger.Error("handler failed; retrying same message",
				zap.Error(procErr),
				zap.String("topic", msg.Topic),
				zap.Int("partition", msg.Partition),
				zap.Int64("offset", msg.Offset),
				zap.Int("attempt", attempt),
			)
			sleepWithContext(ctx, 200*time.Millisecond)
			if ctx.Err() != nil {
				return
			}
		}

		if err := c.reader.CommitMessages(ctx, msg); err != nil {
			c.logger.Warn("commit failed",
				zap.Error(err),
				zap.String("topic", msg.Topic),
				zap.Int("partition", msg.Partition),
				zap.Int64("offset", msg.Offset),
			)
			sleepWithContext(ctx, 200*time.Millisecond)
			continue
		}
		c.logger.Debug("message committed",
			zap.String("topic", msg.Topic),
			zap.Int("partition", msg.Partition),
			zap.Int64("offset", msg.Offset),
		)
	}
}

func (c *Consumer) worker(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case it := <-c.jobs:
			if it.result == nil {
				continue
			}

			start := time.Now()
			err := c.handler.Handle(ctx, it.msg)
			if err != nil {
				c.logger.Error("message handling failed",
					zap.Error(err),
					zap.String("topic", it.msg.Topic),
					zap.Int("partition", it.msg.Partition),
					zap.Int64("offset", it.msg.Offset),
					zap.Duration("elapsed", time.Since(start)),
				)
				it.result <- err
				continue
			}

			c.logger.Debug("message handled",
				zap.String("topic", it.msg.Topic),
				zap.Int("partition", it.msg.Partition),
				zap.Int64("offset", it.msg.Offset),
				zap.Int("value_bytes", len(it.msg.Value)),
				zap.Duration("elapsed", time.Since(start)),
			)
			it.result <- nil
		}
	}
}

func sleepWithContext(ctx context.Context, d time.Duration) {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
	case <-t.C:
	}
}

func isBenignFetchTimeout(err error) bool {
	s := err.Error()
	return strings.Contains(s, "Request Timed Out") ||
		strings.Contains(s, "no messages received from kafka within the allocated time")
}
