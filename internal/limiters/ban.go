package limiters

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/MrEthical07/loginGuard/internal/rate"
	"github.com/redis/go-redis/v9"
)

// BanConfig holds configuration for the temporary ban record.
type BanConfig struct {
	Prefix   string
	Duration time.Duration
}

var (
	// ErrBanUnavailable indicates the ban backend is unreachable.
	ErrBanUnavailable = errors.New("ban backend unavailable")
)

// BanGate stores "<prefix>:<email>" markers that reject every login for
// the email until they expire. There is no unban operation.
type BanGate struct {
	counter  *rate.Counter
	attempts *AttemptTracker
	config   BanConfig
}

// NewBanGate creates a ban gate that consumes the counters of attempts.
func NewBanGate(redisClient redis.UniversalClient, attempts *AttemptTracker, cfg BanConfig) *BanGate {
	if cfg.Prefix == "" {
		cfg.Prefix = "bannedUser"
	}
	return &BanGate{counter: rate.New(redisClient), attempts: attempts, config: cfg}
}

// Key returns the Redis key holding the ban marker for email.
func (g *BanGate) Key(email string) string {
	return g.config.Prefix + ":" + email
}

// IsBanned reports whether an active ban exists for email.
func (g *BanGate) IsBanned(ctx context.Context, email string) (bool, error) {
	banned, err := g.counter.Exists(ctx, g.Key(email))
	if err != nil {
		return false, wrapUnavailable(ErrBanUnavailable, err)
	}
	return banned, nil
}

// Promote deletes the attempt counter for email and creates the ban record
// in one transaction. Once promoted the ban no longer depends on the counter.
func (g *BanGate) Promote(ctx context.Context, email string) error {
	if err := g.counter.Replace(ctx, g.attempts.Key(email), g.Key(email), g.config.Duration); err != nil {
		return wrapUnavailable(ErrBanUnavailable, err)
	}
	return nil
}

func wrapUnavailable(sentinel, err error) error {
	return fmt.Errorf("%w: %v", sentinel, err)
}
