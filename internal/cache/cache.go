package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"orderservice/internal/domain"
)

const keyPrefix = "order:"

// OrderCache keeps one redis hash per order under "order:<id>" with a flat
// field set, TTL attached on every write.
type OrderCache struct {
	client *redis.Client
}

func New(client *redis.Client) *OrderCache {
	return &OrderCache{client: client}
}

func Key(orderID string) string { return keyPrefix + orderID }

// Get returns (order, true) on a usable entry. A missing key, an expired
// key or a corrupt hash all report a plain miss: the read path falls back
// to the store, never fails on cache content.
func (c *OrderCache) Get(ctx context.Context, orderID string) (*domain.Order, bool, error) {
	fields, err := c.client.HGetAll(ctx, Key(orderID)).Result()
	if err != nil {
		return nil, false, fmt.Errorf("redis hgetall: %w", err)
	}
	if len(fields) == 0 {
		return nil, false, nil
	}
	order, err := decode(fields)
	if err != nil {
		// Corrupt or partially written entry; treat as a miss.
		return nil, false, nil
	}
	return order, true, nil
}

// Set overwrites the hash and resets the TTL in one pipelined transaction.
func (c *OrderCache) Set(ctx context.Context, order *domain.Order, ttl time.Duration) error {
	fields, err := encode(order)
	if err != nil {
		return fmt.Errorf("encode order: %w", err)
	}
	pipe := c.client.TxPipeline()
	pipe.Del(ctx, Key(order.ID))
	pipe.HSet(ctx, Key(order.ID), fields)
	pipe.Expire(ctx, Key(order.ID), ttl)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("redis hset: %w", err)
	}
	return nil
}

// Del drops the entry so readers fall back to the store. Used when a
// write-through refresh cannot land after a store commit.
func (c *OrderCache) Del(ctx context.Context, orderID string) error {
	if err := c.client.Del(ctx, Key(orderID)).Err(); err != nil {
		return fmt.Errorf("redis del: %w", err)
	}
	return nil
}

func encode(order *domain.Order) (map[string]string, error) {
	items, err := json.Marshal(order.Items)
	if err != nil {
		return nil, err
	}
	return map[string]string{
		"id":         order.ID,
		"creator_id": order.CreatorID,
		"status":     string(order.Status),
		"created_at": order.CreatedAt.Format(time.RFC3339Nano),
		"version":    strconv.FormatInt(order.Version, 10),
		"items":      string(items),
	}, nil
}

func decode(fields map[string]string) (*domain.Order, error) {
	for _, f := range []string{"id", "creator_id", "status", "created_at", "version", "items"} {
		if _, ok := fields[f]; !ok {
			return nil, fmt.Errorf("missing field %s", f)
		}
	}
	status, err := domain.ParseOrderStatus(fields["status"])
	if err != nil {
		return nil, err
	}
	createdAt, err := time.Parse(time.RFC3339Nano, fields["created_at"])
	if err != nil {
		return nil, fmt.Errorf("parse created_at: %w", err)
	}
	version, err := strconv.ParseInt(fields["version"], 10, 64)
	if err != nil {
		return nil, fmt.Errorf("parse version: %w", err)
	}
	var items map[string]any
	if err := json.Unmarshal([]byte(fields["items"]), &items); err != nil {
		return nil, fmt.Errorf("unmarshal items: %w", err)
	}
	return &domain.Order{
		ID:        fields["id"],
		CreatorID: fields["creator_id"],
		Items:     items,
		Status:    status,
		CreatedAt: createdAt,
		Version:   version,
	}, nil
}
