package loginGuard

import (
	"errors"
	"log/slog"

	internalaudit "github.com/MrEthical07/loginGuard/internal/audit"
	"github.com/MrEthical07/loginGuard/internal/limiters"
	"github.com/MrEthical07/loginGuard/internal/stores"
	"github.com/MrEthical07/loginGuard/password"
	"github.com/MrEthical07/loginGuard/session"
	"github.com/redis/go-redis/v9"
)

// Builder assembles an [Engine]. A Builder can be built once.
type Builder struct {
	config Config
	redis  redis.UniversalClient

	users   CredentialStore
	captcha CaptchaVerifier
	mailer  Mailer
	logger  *slog.Logger

	auditSink AuditSink

	built bool
}

// New returns a Builder seeded with [DefaultConfig].
func New() *Builder {
	return &Builder{
		config: defaultConfig(),
	}
}

// WithConfig replaces the whole configuration. The value is copied.
func (b *Builder) WithConfig(cfg Config) *Builder {
	b.config = cloneConfig(cfg)
	return b
}

// WithRedis sets the single client shared by the attempt counter, ban
// records, sessions and verification tokens.
func (b *Builder) WithRedis(client redis.UniversalClient) *Builder {
	b.redis = client
	return b
}

func (b *Builder) WithCredentialStore(store CredentialStore) *Builder {
	b.users = store
	return b
}

// WithCaptchaVerifier is required unless Throttle.CaptchaEnabled is false.
func (b *Builder) WithCaptchaVerifier(v CaptchaVerifier) *Builder {
	b.captcha = v
	return b
}

// WithMailer is required when Account.Enabled and Account.SendWelcomeEmail are set.
func (b *Builder) WithMailer(m Mailer) *Builder {
	b.mailer = m
	return b
}

// WithLogger sets the logger for best-effort failures. Defaults to slog.Default.
func (b *Builder) WithLogger(logger *slog.Logger) *Builder {
	b.logger = logger
	return b
}

func (b *Builder) WithAuditSink(sink AuditSink) *Builder {
	b.auditSink = sink
	return b
}

func (b *Builder) WithMetricsEnabled(enabled bool) *Builder {
	b.config.Metrics.Enabled = enabled
	return b
}

func (b *Builder) WithLatencyHistograms(enabled bool) *Builder {
	b.config.Metrics.EnableLatencyHistograms = enabled
	return b
}

// Build validates the configuration and wires every component.
func (b *Builder) Build() (*Engine, error) {
	if b.built {
		return nil, errors.New("builder already used")
	}

	cfg := cloneConfig(b.config)

	if b.redis == nil {
		return nil, errors.New("redis client required")
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	if b.users == nil {
		return nil, errors.New("credential store required")
	}
	if cfg.Throttle.CaptchaEnabled && b.captcha == nil {
		return nil, errors.New("captcha verifier required when Throttle CaptchaEnabled")
	}
	if cfg.Account.Enabled && cfg.Account.SendWelcomeEmail && b.mailer == nil {
		return nil, errors.New("mailer required when Account SendWelcomeEmail")
	}

	hasher, err := password.New(password.Config{
		Memory:      cfg.Password.Memory,
		Time:        cfg.Password.Time,
		Parallelism: cfg.Password.Parallelism,
		SaltLength:  cfg.Password.SaltLength,
		KeyLength:   cfg.Password.KeyLength,
		Pepper:      cfg.Password.Pepper,
		MinLength:   cfg.Password.MinLength,
	})
	if err != nil {
		return nil, err
	}

	logger := b.logger
	if logger == nil {
		logger = slog.Default()
	}

	// -------- THROTTLE --------
	attempts := limiters.NewAttemptTracker(b.redis, limiters.AttemptConfig{
		Prefix: cfg.Throttle.AttemptPrefix,
		Window: cfg.Throttle.AttemptWindow,
	})
	bans := limiters.NewBanGate(b.redis, attempts, limiters.BanConfig{
		Prefix:   cfg.Throttle.BanPrefix,
		Duration: cfg.Throttle.BanDuration,
	})

	engine := &Engine{
		config:       cfg,
		redis:        b.redis,
		attempts:     attempts,
		bans:         bans,
		sessionStore: session.NewStore(b.redis, cfg.Session.RedisPrefix, cfg.Session.SlidingExpiration),
		verifyTokens: stores.NewVerifyTokenStore(b.redis, cfg.Verification.RedisPrefix),
		hasher:       hasher,
		users:        b.users,
		captcha:      b.captcha,
		mailer:       b.mailer,
		logger:       logger.With("component", "loginGuard"),
		metrics:      NewMetrics(cfg.Metrics),
		audit: internalaudit.NewDispatcher(internalaudit.Config{
			Enabled:    cfg.Audit.Enabled,
			BufferSize: cfg.Audit.BufferSize,
			DropIfFull: cfg.Audit.DropIfFull,
			Critical:   cfg.Audit.CriticalEvents,
		}, b.auditSink),
	}

	b.built = true

	return engine, nil
}
