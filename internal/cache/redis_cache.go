package cache

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"

	"dastak/backend/internal/domain"
)

type RedisReportCache struct {
	client *redis.Client
}

func NewRedisReportCache(ctx context.Context, addr, password string, db int) (*RedisReportCache, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, err
	}

	return &RedisReportCache{client: client}, nil
}

func (c *RedisReportCache) Get(ctx context.Context, key string) (*domain.SalesReport, error) {
	raw, err := c.client.Get(ctx, key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, err
	}

	var report domain.SalesReport
	if err := json.Unmarshal(raw, &report); err != nil {
		// A corrupt entry is treated as a miss rather than an outage.
		return nil, nil
	}
	return &report, nil
}

func (c *RedisReportCache) Set(ctx context.Context, key string, report domain.SalesReport, ttl time.Duration) error {
	raw, err := json.Marshal(report)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, key, raw, ttl).Err()
}

func (c *RedisReportCache) Close() error {
	return c.client.Close()
}
