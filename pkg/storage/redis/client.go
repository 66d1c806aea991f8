// Package redis implements the shared request counter used by the rate
// limiter on top of go-redis.
package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	goredis "github.com/go-redis/redis/v8"

	"github.com/platinummonkey/animerged/pkg/storage"
)

// CounterStore keeps expiring integer counters in Redis
type CounterStore struct {
	client *goredis.Client
}

// NewCounterStore creates a new Redis client and verifies connectivity
func NewCounterStore(config storage.Config) (*CounterStore, error) {
	// Parse Redis URL or use default options
	opts, err := goredis.ParseURL(config.RedisURL)
	if err != nil {
		return nil, fmt.Errorf("invalid redis URL: %w", err)
	}

	// Override with config values if provided
	if config.RedisPassword != "" {
		opts.Password = config.RedisPassword
	}
	if config.RedisDB > 0 {
		opts.DB = config.RedisDB
	}
	if config.RedisMaxRetries > 0 {
		opts.MaxRetries = config.RedisMaxRetries
	}
	if config.RedisPoolSize > 0 {
		opts.PoolSize = config.RedisPoolSize
	}

	timeout := config.RedisTimeout
	if timeout <= 0 {
		timeout = 3 * time.Second
	}
	opts.DialTimeout = timeout
	opts.ReadTimeout = timeout
	opts.WriteTimeout = timeout
	opts.PoolTimeout = timeout + time.Second

	client := goredis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	return &CounterStore{client: client}, nil
}

// Get returns the counter stored at key. A missing key counts as zero.
func (s *CounterStore) Get(ctx context.Context, key string) (int64, error) {
	n, err := s.client.Get(ctx, key).Int64()
	if errors.Is(err, goredis.Nil) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("redis get failed: %w", err)
	}
	return n, nil
}

// IncrExpire increments key and resets its TTL in one MULTI/EXEC, so a
// counter can never be left without an expiry.
func (s *CounterStore) IncrExpire(ctx context.Context, key string, ttl time.Duration) (int64, error) {
	var incr *goredis.IntCmd
	_, err := s.client.TxPipelined(ctx, func(pipe goredis.Pipeliner) error {
		incr = pipe.Incr(ctx, key)
		pipe.Expire(ctx, key, ttl)
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("redis incr/expire failed: %w", err)
	}
	return incr.Val(), nil
}

// TTL returns the remaining time to live of a key
func (s *CounterStore) TTL(ctx context.Context, key string) (time.Duration, error) {
	return s.client.TTL(ctx, key).Result()
}

// Ping checks Redis connectivity
func (s *CounterStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

// Close closes the Redis connection
func (s *CounterStore) Close() error {
	return s.client.Close()
}
