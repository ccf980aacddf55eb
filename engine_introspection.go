package loginGuard

import (
	"context"
	"time"
)

const opThrottleStatus = "reading the throttle state"

// HealthStatus is an on-demand backend health result.
type HealthStatus struct {
	RedisAvailable bool
	RedisLatency   time.Duration
}

// ThrottleStatus is the read-only view of an email's throttle state.
type ThrottleStatus struct {
	Email           string
	Attempts        int
	CaptchaRequired bool
	Banned          bool
}

// Health pings Redis. It never returns an error; unavailability is reported
// in the result.
func (e *Engine) Health(ctx context.Context) HealthStatus {
	if e == nil || e.sessionStore == nil {
		return HealthStatus{}
	}

	latency, err := e.sessionStore.Ping(ctx)
	return HealthStatus{
		RedisAvailable: err == nil,
		RedisLatency:   latency,
	}
}

// ThrottleStatus reports the attempt count and ban state for email without
// creating or modifying any key.
func (e *Engine) ThrottleStatus(ctx context.Context, email string) (*ThrottleStatus, error) {
	email = NormalizeEmail(email)

	banned, err := e.bans.IsBanned(ctx, email)
	if err != nil {
		return nil, wrapInternal(opThrottleStatus, err)
	}
	attempts, err := e.attempts.Peek(ctx, email)
	if err != nil {
		return nil, wrapInternal(opThrottleStatus, err)
	}

	return &ThrottleStatus{
		Email:    email,
		Attempts: attempts,
		CaptchaRequired: e.config.Throttle.CaptchaEnabled &&
			attempts >= e.config.Throttle.CaptchaThreshold &&
			attempts < e.config.Throttle.BanThreshold,
		Banned: banned,
	}, nil
}
