// Package rate holds the Redis counter and flag primitives the login
// throttle is built from. It knows nothing about emails or thresholds.
package rate

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

// Counter wraps the handful of Redis commands used for TTL-bounded counters
// and marker keys.
type Counter struct {
	redis redis.UniversalClient
}

// New creates a [Counter] backed by the given Redis client.
func New(redisClient redis.UniversalClient) *Counter {
	return &Counter{redis: redisClient}
}

// Get returns the current value of key. found is false when the key does not
// exist; a missing key is never reported as an error.
func (c *Counter) Get(ctx context.Context, key string) (value int64, found bool, err error) {
	raw, err := c.redis.Get(ctx, key).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return 0, false, nil
		}
		return 0, false, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}

	value, err = strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, true, fmt.Errorf("%w: %q", ErrCounterCorrupt, raw)
	}
	if value < 0 {
		return 0, true, nil
	}
	return value, true, nil
}

// InitIfAbsent sets key to 0 with ttl unless it already exists.
func (c *Counter) InitIfAbsent(ctx context.Context, key string, ttl time.Duration) error {
	if err := c.redis.SetNX(ctx, key, 0, ttl).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	return nil
}

// IncrementWithTTL atomically increments key and resets its TTL.
//
// INCR and EXPIRE are queued in one MULTI/EXEC on a single connection so the
// counter never outlives a failed round-trip without its expiry. A failure
// reported after EXEC still leaves the window documented for callers: the
// increment may have been applied.
func (c *Counter) IncrementWithTTL(ctx context.Context, key string, ttl time.Duration) (int64, error) {
	var incr *redis.IntCmd
	_, err := c.redis.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		incr = pipe.Incr(ctx, key)
		pipe.Expire(ctx, key, ttl)
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}

	return incr.Val(), nil
}

// Delete removes keys. Missing keys are not an error.
func (c *Counter) Delete(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	if err := c.redis.Del(ctx, keys...).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	return nil
}

// Exists reports whether key is present.
func (c *Counter) Exists(ctx context.Context, key string) (bool, error) {
	n, err := c.redis.Exists(ctx, key).Result()
	if err != nil {
		return false, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	return n > 0, nil
}

// Replace deletes oldKey and sets flagKey to "true" with ttl in a single
// transaction.
func (c *Counter) Replace(ctx context.Context, oldKey, flagKey string, ttl time.Duration) error {
	_, err := c.redis.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, oldKey)
		pipe.Set(ctx, flagKey, "true", ttl)
		return nil
	})
	if err != nil {
		return fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	return nil
}
