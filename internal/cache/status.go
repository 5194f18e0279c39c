package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"loanapi/internal/config"
)

// StatusCache is the advisory application-status projection used by the
// read path. A hit may lag the metadata store by up to the TTL.
type StatusCache interface {
	// Get returns the cached status and true, or false on a miss.
	Get(ctx context.Context, applicationID string) (string, bool, error)
	// Set stores status for ttl.
	Set(ctx context.Context, applicationID, status string, ttl time.Duration) error
}

// RedisStatusCache stores statuses under "status:<applicationID>".
type RedisStatusCache struct {
	client *redis.Client
}

var _ StatusCache = (*RedisStatusCache)(nil)

// NewRedisClient creates the pooled Redis client.
func NewRedisClient(cfg config.RedisConfig) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:         cfg.Address,
		Password:     cfg.Password,
		DB:           cfg.DB,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
		PoolSize:     10,
		MinIdleConns: 2,
	})
}

// NewRedisStatusCache wraps an existing client.
func NewRedisStatusCache(client *redis.Client) *RedisStatusCache {
	return &RedisStatusCache{client: client}
}

func statusKey(applicationID string) string {
	return "status:" + applicationID
}

func (c *RedisStatusCache) Get(ctx context.Context, applicationID string) (string, bool, error) {
	v, err := c.client.Get(ctx, statusKey(applicationID)).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("redis get: %w", err)
	}
	return v, true, nil
}

func (c *RedisStatusCache) Set(ctx context.Context, applicationID, status string, ttl time.Duration) error {
	if err := c.client.Set(ctx, statusKey(applicationID), status, ttl).Err(); err != nil {
		return fmt.Errorf("redis set: %w", err)
	}
	return nil
}

// Ping tests the Redis connection.
func (c *RedisStatusCache) Ping(ctx context.Context) error {
	if err := c.client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("redis ping failed: %w", err)
	}
	return nil
}
