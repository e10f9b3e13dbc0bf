package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"orderservice/internal/auth"
	"orderservice/internal/cache"
	"orderservice/internal/config"
	"orderservice/internal/database"
	"orderservice/internal/httpapi"
	"orderservice/internal/kafka"
	"orderservice/internal/observability"
	"orderservice/internal/pkg/breaker"
	"orderservice/internal/repository"
	"orderservice/internal/service"
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

	pool, err := database.Connect(ctx, cfg.DSN())
	if err != nil {
		logger.Fatal("postgres connect failed", zap.Error(err))
	}
	defer pool.Close()
	if err := database.EnsureSchema(ctx, pool); err != nil {
		logger.Fatal("schema bootstrap failed", zap.Error(err))
	}
	store := database.New(pool)

	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	defer redisClient.Close()
	orderCache := cache.New(redisClient)

	if err := kafka.EnsureTopic(ctx, cfg.Kafka.Brokers, cfg.Kafka.OrderTopic, cfg.Kafka.Partitions, 1, logger); err != nil {
		logger.Fatal("kafka topic bootstrap failed", zap.Error(err))
	}
	publisher := kafka.NewPublisher(cfg.Kafka.Brokers, cfg.Kafka.OrderTopic, cfg.Retry, logger)
	defer publisher.Close()

	metrics := observability.NewInmem(1000)
	repo := repository.New(store, orderCache, cfg.CacheTTL, breaker.New(cfg.Breaker), logger, metrics)
	orderSvc := service.NewOrderService(repo, publisher, logger, metrics)

	tokens := auth.NewHelper(cfg.Auth.JWTSecret, cfg.Auth.AccessTTL, cfg.Auth.RefreshTTL)
	authSvc := service.NewAuthService(store, tokens, logger)

	server := httpapi.New(orderSvc, authSvc, logger, metrics)

	logger.Info("api listening", zap.String("addr", cfg.HTTPAddr))
	if err := server.ListenAndServe(ctx, cfg.HTTPAddr); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Fatal("http server failed", zap.Error(err))
	}
	logger.Info("api stopped")
}
