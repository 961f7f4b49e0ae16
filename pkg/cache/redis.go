package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisConfig configures [NewRedisCache].
type RedisConfig struct {
	// Addr is host:port of the Redis server.
	Addr string
	// Password is optional.
	Password string
	// DB selects the logical database.
	DB int
	// DialTimeout bounds connection setup. Zero uses the client default.
	DialTimeout time.Duration
}

// RedisCache stores entries in Redis and is shared between service
// instances. Expiry is delegated to Redis.
type RedisCache struct {
	client *redis.Client
}

// NewRedisCache connects to Redis and verifies the connection with PING.
func NewRedisCache(ctx context.Context, cfg RedisConfig) (*RedisCache, error) {
	client := redis.NewClient(&redis.Options{
		Addr:        cfg.Addr,
		Password:    cfg.Password,
		DB:          cfg.DB,
		DialTimeout: cfg.DialTimeout,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("%w: ping %s: %v", ErrUnavailable, cfg.Addr, err)
	}
	return &RedisCache{client: client}, nil
}

// Get implements [Cache]. Transient failures are retried with backoff.
func (c *RedisCache) Get(ctx context.Context, key string) ([]byte, bool, error) {
	var data []byte
	var hit bool
	err := RetryWithBackoff(ctx, func() error {
		b, err := c.client.Get(ctx, key).Bytes()
		if errors.Is(err, redis.Nil) {
			return nil
		}
		if err != nil {
			return classify(err)
		}
		data, hit = b, true
		return nil
	})
	if err != nil {
		return nil, false, err
	}
	return data, hit, nil
}

// Set implements [Cache].
func (c *RedisCache) Set(ctx context.Context, key string, data []byte, ttl time.Duration) error {
	return RetryWithBackoff(ctx, func() error {
		return classify(c.client.Set(ctx, key, data, ttl).Err())
	})
}

// Delete implements [Cache].
func (c *RedisCache) Delete(ctx context.Context, key string) error {
	return RetryWithBackoff(ctx, func() error {
		return classify(c.client.Del(ctx, key).Err())
	})
}

// Close closes the underlying client.
func (c *RedisCache) Close() error {
	return c.client.Close()
}

// classify marks connection-level failures as retryable. Errors returned
// by the server itself (wrong type, auth) are not retried.
func classify(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	var redisErr redis.Error
	if errors.As(err, &redisErr) {
		return err
	}
	return Retryable(fmt.Errorf("%w: %v", ErrUnavailable, err))
}

var _ Cache = (*RedisCache)(nil)
