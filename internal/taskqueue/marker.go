package taskqueue

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

const markerPrefix = "processed:order:"

// RedisMarker keeps processed-markers in redis so the dedup survives
// worker restarts and is shared across competing workers.
type RedisMarker struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRedisMarker(client *redis.Client, ttl time.Duration) *RedisMarker {
	return &RedisMarker{client: client, ttl: ttl}
}

func (m *RedisMarker) Processed(ctx context.Context, orderID string) (bool, error) {
	n, err := m.client.Exists(ctx, markerPrefix+orderID).Result()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func (m *RedisMarker) MarkProcessed(ctx context.Context, orderID string) error {
	return m.client.Set(ctx, markerPrefix+orderID, time.Now().UTC().Format(time.RFC3339), m.ttl).Err()
}
