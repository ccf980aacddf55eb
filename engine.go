package loginGuard

import (
	"log/slog"
	"strings"

	internalaudit "github.com/MrEthical07/loginGuard/internal/audit"
	"github.com/MrEthical07/loginGuard/internal/limiters"
	"github.com/MrEthical07/loginGuard/internal/stores"
	"github.com/MrEthical07/loginGuard/password"
	"github.com/MrEthical07/loginGuard/session"
	"github.com/redis/go-redis/v9"
)

// Engine runs login throttling, sessions, CSRF checks and the verification
// flow on top of one Redis client and one [CredentialStore].
//
// Engine holds no per-user state in memory and is safe for concurrent use.
type Engine struct {
	config       Config
	redis        redis.UniversalClient
	attempts     *limiters.AttemptTracker
	bans         *limiters.BanGate
	sessionStore *session.Store
	verifyTokens *stores.VerifyTokenStore
	hasher       *password.Hasher
	users        CredentialStore
	captcha      CaptchaVerifier
	mailer       Mailer
	logger       *slog.Logger
	audit        *internalaudit.Dispatcher
	metrics      *Metrics
}

// Close drains pending audit events. It does not close the Redis client.
func (e *Engine) Close() {
	if e == nil {
		return
	}
	if e.audit != nil {
		e.audit.Close()
	}
}

// Config returns a copy of the active configuration.
func (e *Engine) Config() Config {
	return cloneConfig(e.config)
}

// AuditDropped reports how many audit events were dropped on a full buffer.
func (e *Engine) AuditDropped() uint64 {
	if e == nil || e.audit == nil {
		return 0
	}
	return e.audit.Dropped()
}

// AuditDroppedByType breaks AuditDropped down by event type.
func (e *Engine) AuditDroppedByType() map[string]uint64 {
	if e == nil || e.audit == nil {
		return map[string]uint64{}
	}
	return e.audit.DroppedByType()
}

// MetricsSnapshot returns a copy of all engine counters.
func (e *Engine) MetricsSnapshot() MetricsSnapshot {
	if e == nil || e.metrics == nil {
		return MetricsSnapshot{
			Counters:   map[MetricID]uint64{},
			Histograms: map[MetricID][]uint64{},
		}
	}
	return e.metrics.Snapshot()
}

func (e *Engine) metricInc(id MetricID) {
	if e == nil || e.metrics == nil {
		return
	}
	e.metrics.Inc(id)
}

// NormalizeEmail trims and case-folds an email the way every key and
// lookup in the engine does.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
