package limiters

import (
	"context"
	"errors"
	"time"

	"github.com/MrEthical07/loginGuard/internal/rate"
	"github.com/redis/go-redis/v9"
)

// AttemptConfig holds configuration for the failed-login counter.
type AttemptConfig struct {
	Prefix string
	Window time.Duration
}

var (
	// ErrAttemptsUnavailable indicates the attempt counter backend is unreachable.
	ErrAttemptsUnavailable = errors.New("attempt counter backend unavailable")
)

// AttemptTracker counts failed logins per email. Keys are
// "<prefix>:<email>" and expire Window after the most recent failure.
type AttemptTracker struct {
	counter *rate.Counter
	config  AttemptConfig
}

// NewAttemptTracker creates a new attempt tracker.
func NewAttemptTracker(redisClient redis.UniversalClient, cfg AttemptConfig) *AttemptTracker {
	if cfg.Prefix == "" {
		cfg.Prefix = "loginAttempts"
	}
	return &AttemptTracker{counter: rate.New(redisClient), config: cfg}
}

// Key returns the Redis key holding the counter for email.
func (t *AttemptTracker) Key(email string) string {
	return t.config.Prefix + ":" + email
}

// Read returns the current count. An absent counter reads as zero and is
// created at zero with the configured window.
func (t *AttemptTracker) Read(ctx context.Context, email string) (int, error) {
	key := t.Key(email)

	count, found, err := t.counter.Get(ctx, key)
	if err != nil {
		return 0, wrapUnavailable(ErrAttemptsUnavailable, err)
	}
	if !found {
		if err := t.counter.InitIfAbsent(ctx, key, t.config.Window); err != nil {
			return 0, wrapUnavailable(ErrAttemptsUnavailable, err)
		}
		return 0, nil
	}

	return int(count), nil
}

// Peek returns the current count without creating the counter.
func (t *AttemptTracker) Peek(ctx context.Context, email string) (int, error) {
	count, _, err := t.counter.Get(ctx, t.Key(email))
	if err != nil {
		return 0, wrapUnavailable(ErrAttemptsUnavailable, err)
	}
	return int(count), nil
}

// RecordFailure increments the counter and restarts its window.
func (t *AttemptTracker) RecordFailure(ctx context.Context, email string) (int, error) {
	count, err := t.counter.IncrementWithTTL(ctx, t.Key(email), t.config.Window)
	if err != nil {
		return 0, wrapUnavailable(ErrAttemptsUnavailable, err)
	}
	return int(count), nil
}

// Reset clears the counter (e.g., after successful login).
func (t *AttemptTracker) Reset(ctx context.Context, email string) error {
	if err := t.counter.Delete(ctx, t.Key(email)); err != nil {
		return wrapUnavailable(ErrAttemptsUnavailable, err)
	}
	return nil
}
