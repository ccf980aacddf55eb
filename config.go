package loginGuard

import (
	"errors"
	"net/http"
	"strings"
	"time"
)

// Config is the full engine configuration. The engine keeps a private
// copy; changing a Config after Build has no effect.
type Config struct {
	Session      SessionConfig
	Throttle     ThrottleConfig
	Verification VerificationConfig
	Password     PasswordConfig
	Cookie       CookieConfig
	CSRF         CSRFConfig
	Fingerprint  FingerprintConfig
	Account      AccountConfig
	Audit        AuditConfig
	Metrics      MetricsConfig
	Security     SecurityConfig
}

/*
====================================
SESSION CONFIG
====================================
*/

// SessionConfig controls session records stored under "<RedisPrefix>:<id>".
type SessionConfig struct {
	RedisPrefix       string
	TTL               time.Duration
	SlidingExpiration bool
}

/*
====================================
THROTTLE CONFIG
====================================
*/

// ThrottleConfig controls the attempt counter, the challenge band and the ban.
//
// Counts in [CaptchaThreshold, BanThreshold) require a CAPTCHA token; a
// count at or above BanThreshold converts the counter into a ban record.
type ThrottleConfig struct {
	AttemptPrefix    string
	BanPrefix        string
	AttemptWindow    time.Duration
	CaptchaThreshold int
	BanThreshold     int
	BanDuration      time.Duration
	// CaptchaEnabled disables the challenge band entirely when false.
	CaptchaEnabled bool
}

/*
====================================
VERIFICATION CONFIG
====================================
*/

// VerificationConfig controls one-time verify tokens stored under "<RedisPrefix>:<token>".
type VerificationConfig struct {
	RedisPrefix string
	TTL         time.Duration
}

/*
====================================
PASSWORD CONFIG
====================================
*/

// PasswordConfig holds the argon2id parameters and the password policy.
//
// Pepper is appended to every plaintext before hashing and must stay
// constant for the lifetime of the stored hashes.
type PasswordConfig struct {
	Memory         uint32 // in KB
	Time           uint32
	Parallelism    uint8
	SaltLength     uint32
	KeyLength      uint32
	Pepper         string
	MinLength      int
	UpgradeOnLogin bool
}

/*
====================================
COOKIE CONFIG
====================================
*/

// CookieConfig names the three client cookies and their shared attributes.
type CookieConfig struct {
	SessionName string
	CSRFName    string
	VerifyName  string
	Path        string
	Domain      string
	Secure      bool
	SameSite    http.SameSite
}

/*
====================================
CSRF CONFIG
====================================
*/

// CSRFConfig names the request header and the paths exempt from the check.
type CSRFConfig struct {
	HeaderName string
	// ExemptPaths are matched exactly against the request path.
	ExemptPaths []string
}

/*
====================================
FINGERPRINT CONFIG
====================================
*/

// FingerprintConfig controls advisory device anomaly detection at login.
type FingerprintConfig struct {
	DetectIPChange        bool
	DetectUserAgentChange bool
	// UpdateOnLogin records the current fingerprint after every verified
	// login. When false only the verification flow updates it.
	UpdateOnLogin bool
}

/*
====================================
ACCOUNT CONFIG
====================================
*/

// AccountConfig controls CreateAccount.
type AccountConfig struct {
	Enabled                   bool
	TemporaryPasswordLength   int
	DefaultRole               string
	SendWelcomeEmail          bool
	PlaceholderFingerprintTag string
}

/*
====================================
AUDIT / METRICS CONFIG
====================================
*/

// AuditConfig controls the async audit dispatcher.
type AuditConfig struct {
	Enabled    bool
	BufferSize int
	DropIfFull bool
	// CriticalEvents are never dropped on a full buffer; they wait for
	// space within the request context instead.
	CriticalEvents []string
}

// MetricsConfig toggles counters and the session validation histogram.
type MetricsConfig struct {
	Enabled                 bool
	EnableLatencyHistograms bool
}

/*
====================================
SECURITY CONFIG
====================================
*/

// SecurityConfig enables the production hardening checks in Validate.
type SecurityConfig struct {
	ProductionMode bool
}

// DefaultConfig returns the configuration every deployment starts from.
func DefaultConfig() Config {
	return defaultConfig()
}

func defaultConfig() Config {
	return Config{
		Session: SessionConfig{
			RedisPrefix:       "session",
			TTL:               time.Hour,
			SlidingExpiration: true,
		},
		Throttle: ThrottleConfig{
			AttemptPrefix:    "loginAttempts",
			BanPrefix:        "bannedUser",
			AttemptWindow:    900 * time.Second,
			CaptchaThreshold: 3,
			BanThreshold:     5,
			BanDuration:      time.Hour,
			CaptchaEnabled:   true,
		},
		Verification: VerificationConfig{
			RedisPrefix: "verifyToken",
			TTL:         30 * time.Minute,
		},
		Password: PasswordConfig{
			Memory:         64 * 1024,
			Time:           3,
			Parallelism:    2,
			SaltLength:     16,
			KeyLength:      32,
			MinLength:      5,
			UpgradeOnLogin: true,
		},
		Cookie: CookieConfig{
			SessionName: "sessionId",
			CSRFName:    "csrfToken",
			VerifyName:  "verifyToken",
			Path:        "/",
			SameSite:    http.SameSiteLaxMode,
		},
		CSRF: CSRFConfig{
			HeaderName: "X-CSRF-Token",
			ExemptPaths: []string{
				"/auth/logIn",
				"/auth/logOut",
				"/auth/changePassword",
			},
		},
		Fingerprint: FingerprintConfig{
			DetectIPChange:        true,
			DetectUserAgentChange: true,
		},
		Account: AccountConfig{
			Enabled:                   true,
			TemporaryPasswordLength:   10,
			SendWelcomeEmail:          true,
			PlaceholderFingerprintTag: "unknown",
		},
		Audit: AuditConfig{
			Enabled:    false,
			BufferSize: 1024,
			DropIfFull: true,
			CriticalEvents: []string{
				auditEventBanCreated,
				auditEventLoginBanned,
				auditEventCSRFRejected,
			},
		},
		Metrics: MetricsConfig{
			Enabled:                 true,
			EnableLatencyHistograms: true,
		},
	}
}

func cloneConfig(cfg Config) Config {
	out := cfg
	if cfg.CSRF.ExemptPaths != nil {
		out.CSRF.ExemptPaths = append([]string(nil), cfg.CSRF.ExemptPaths...)
	}
	if cfg.Audit.CriticalEvents != nil {
		out.Audit.CriticalEvents = append([]string(nil), cfg.Audit.CriticalEvents...)
	}
	return out
}

/*
====================================
VALIDATION
====================================
*/

// Validate returns the first violated constraint; it never mutates c.
func (c *Config) Validate() error {
	// Session
	if strings.TrimSpace(c.Session.RedisPrefix) == "" {
		return errors.New("Session RedisPrefix must not be empty")
	}
	if c.Session.TTL <= 0 {
		return errors.New("Session TTL must be > 0")
	}

	// Throttle
	if c.Throttle.AttemptPrefix == "" || c.Throttle.BanPrefix == "" {
		return errors.New("Throttle prefixes must not be empty")
	}
	if c.Throttle.AttemptPrefix == c.Throttle.BanPrefix {
		return errors.New("Throttle AttemptPrefix and BanPrefix must differ")
	}
	if c.Throttle.AttemptWindow <= 0 {
		return errors.New("Throttle AttemptWindow must be > 0")
	}
	if c.Throttle.BanThreshold <= 0 {
		return errors.New("Throttle BanThreshold must be > 0")
	}
	if c.Throttle.CaptchaEnabled {
		if c.Throttle.CaptchaThreshold <= 0 {
			return errors.New("Throttle CaptchaThreshold must be > 0")
		}
		if c.Throttle.CaptchaThreshold >= c.Throttle.BanThreshold {
			return errors.New("Throttle CaptchaThreshold must be < BanThreshold")
		}
	}
	if c.Throttle.BanDuration <= 0 {
		return errors.New("Throttle BanDuration must be > 0")
	}

	// Verification
	if c.Verification.RedisPrefix == "" {
		return errors.New("Verification RedisPrefix must not be empty")
	}
	if c.Verification.TTL <= 0 {
		return errors.New("Verification TTL must be > 0")
	}
	prefixes := map[string]struct{}{}
	for _, p := range []string{c.Session.RedisPrefix, c.Throttle.AttemptPrefix, c.Throttle.BanPrefix, c.Verification.RedisPrefix} {
		if _, dup := prefixes[p]; dup {
			return errors.New("Redis key prefixes must be distinct")
		}
		prefixes[p] = struct{}{}
	}

	// Password
	if c.Password.MinLength <= 0 {
		return errors.New("Password MinLength must be > 0")
	}

	// Cookie
	if c.Cookie.SessionName == "" || c.Cookie.CSRFName == "" || c.Cookie.VerifyName == "" {
		return errors.New("Cookie names must not be empty")
	}
	if c.Cookie.SameSite == http.SameSiteNoneMode && !c.Cookie.Secure {
		return errors.New("Cookie SameSite=None requires Secure")
	}

	// CSRF
	if strings.TrimSpace(c.CSRF.HeaderName) == "" {
		return errors.New("CSRF HeaderName must not be empty")
	}

	// Account
	if c.Account.Enabled && c.Account.TemporaryPasswordLength < c.Password.MinLength {
		return errors.New("Account TemporaryPasswordLength must be >= Password MinLength")
	}
	if c.Account.TemporaryPasswordLength > 32 {
		return errors.New("Account TemporaryPasswordLength must be <= 32")
	}

	// Audit
	if c.Audit.Enabled && c.Audit.BufferSize <= 0 {
		return errors.New("Audit BufferSize must be > 0")
	}

	// Metrics
	if c.Metrics.EnableLatencyHistograms && !c.Metrics.Enabled {
		return errors.New("Metrics EnableLatencyHistograms requires Metrics Enabled")
	}

	// Production hardening
	if c.Security.ProductionMode {
		if !c.Cookie.Secure {
			return errors.New("ProductionMode requires secure cookies")
		}
		if c.Password.Pepper == "" {
			return errors.New("ProductionMode requires a password pepper")
		}
	}

	return nil
}
