package loginGuard

import "time"

// SecurityReport summarizes the security posture of a built engine. It is
// logged at startup and carries no secrets.
type SecurityReport struct {
	ProductionMode    bool
	SecureCookies     bool
	PepperConfigured  bool
	CaptchaEnabled    bool
	CaptchaThreshold  int
	BanThreshold      int
	AttemptWindow     time.Duration
	BanDuration       time.Duration
	SessionTTL        time.Duration
	SlidingSessions   bool
	VerificationTTL   time.Duration
	FingerprintChecks bool
	AccountCreation   bool
	AuditEnabled      bool
	Argon2            PasswordConfigReport
	CSRFExemptPaths   []string
}

type PasswordConfigReport struct {
	Memory      uint32
	Time        uint32
	Parallelism uint8
	SaltLength  uint32
	KeyLength   uint32
	MinLength   int
}

func (e *Engine) SecurityReport() SecurityReport {
	if e == nil {
		return SecurityReport{}
	}

	cfg := e.config
	return SecurityReport{
		ProductionMode:    cfg.Security.ProductionMode,
		SecureCookies:     cfg.Cookie.Secure,
		PepperConfigured:  cfg.Password.Pepper != "",
		CaptchaEnabled:    cfg.Throttle.CaptchaEnabled,
		CaptchaThreshold:  cfg.Throttle.CaptchaThreshold,
		BanThreshold:      cfg.Throttle.BanThreshold,
		AttemptWindow:     cfg.Throttle.AttemptWindow,
		BanDuration:       cfg.Throttle.BanDuration,
		SessionTTL:        cfg.Session.TTL,
		SlidingSessions:   cfg.Session.SlidingExpiration,
		VerificationTTL:   cfg.Verification.TTL,
		FingerprintChecks: cfg.Fingerprint.DetectIPChange || cfg.Fingerprint.DetectUserAgentChange,
		AccountCreation:   cfg.Account.Enabled,
		AuditEnabled:      cfg.Audit.Enabled,
		Argon2: PasswordConfigReport{
			Memory:      cfg.Password.Memory,
			Time:        cfg.Password.Time,
			Parallelism: cfg.Password.Parallelism,
			SaltLength:  cfg.Password.SaltLength,
			KeyLength:   cfg.Password.KeyLength,
			MinLength:   cfg.Password.MinLength,
		},
		CSRFExemptPaths: append([]string(nil), cfg.CSRF.ExemptPaths...),
	}
}
