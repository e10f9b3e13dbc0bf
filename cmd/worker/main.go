package main

import (
	"context"
	"os/signal"
	"syscall"

	"github.com/hibiken/asynq"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"orderservice/internal/config"
	"orderservice/internal/observability"
	"orderservice/internal/taskqueue"
)

func main() {
	cfg := config.Load()

	logger, err := zap.NewProduction()
	if err != nil {
		panic(err)
	}
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	defer redisClient.Close()

	marker := taskqueue.NewRedisMarker(redisClient, cfg.Worker.MarkerTTL)
	processor := taskqueue.NewFulfillmentProcessor(logger)
	handler := taskqueue.NewHandler(marker, processor, logger, observability.NewInmem(1000))

	srv := taskqueue.NewServer(asynq.RedisClientOpt{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	}, cfg.Worker, cfg.Retry, logger)

	go func() {
		<-ctx.Done()
		srv.Shutdown()
	}()

	logger.Info("worker starting",
		zap.String("queue", cfg.Worker.Queue),
		zap.Int("concurrency", cfg.Worker.Concurrency),
	)
	if err := srv.Run(taskqueue.NewMux(handler)); err != nil {
		logger.Fatal("worker failed", zap.Error(err))
	}
	logger.Info("worker stopped")
}
