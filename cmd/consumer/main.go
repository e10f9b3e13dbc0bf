package main

import (
	"context"
	"os/signal"
	"syscall"

	"github.com/hibiken/asynq"
	"go.uber.org/zap"

	"orderservice/internal/config"
	"orderservice/internal/kafka"
	"orderservice/internal/taskqueue"
)

// recentIDsSize bounds the in-process redelivery short-circuit.
const recentIDsSize = 10000

func main() {
	cfg := config.Load()

	logger, err := zap.NewProduction()
	if err != nil {
		panic(err)
	}
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := kafka.EnsureTopic(ctx, cfg.Kafka.Brokers, cfg.Kafka.OrderTopic, cfg.Kafka.Partitions, 1, logger); err != nil {
		logger.Fatal("kafka topic bootstrap failed", zap.Error(err))
	}

	enqueuer := taskqueue.NewEnqueuer(asynq.RedisClientOpt{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	}, cfg.Worker, logger)
	defer enqueuer.Close()

	handler, err := kafka.NewOrderEventHandler(enqueuer, recentIDsSize, logger)
	if err != nil {
		logger.Fatal("handler init failed", zap.Error(err))
	}

	reader := kafka.NewReader(cfg.Kafka.Brokers, cfg.Kafka.OrderTopic, cfg.Kafka.Group)
	defer reader.Close()

	consumer := kafka.NewConsumer(handler, reader, cfg.Kafka.Workers, logger)
	consumer.Start(ctx)

	logger.Info("consumer stopped")
}
