package loginGuard

import (
	"context"
	"errors"
	"strconv"
	"strings"

	"github.com/MrEthical07/loginGuard/password"
)

const opLogin = "logging in"

// Login authenticates one attempt under progressive throttling.
//
// The steps run in a fixed order: ban precheck, counter read, ban
// promotion, challenge gate, credential check. Only a credential failure
// increments the counter; a success deletes it, in the verification
// branch as part of issuing the token. Verified users receive a
// session; unverified users receive a verification token and no session.
func (e *Engine) Login(ctx context.Context, req LoginRequest) (*LoginResult, error) {
	email := NormalizeEmail(req.Email)
	ip := firstNonEmpty(req.IP, ClientIPFromContext(ctx))
	userAgent := firstNonEmpty(req.UserAgent, UserAgentFromContext(ctx))
	ctx = WithUserAgent(WithClientIP(ctx, ip), userAgent)

	banned, err := e.bans.IsBanned(ctx, email)
	if err != nil {
		return nil, wrapInternal(opLogin, err)
	}
	if banned {
		e.metricInc(MetricLoginBanned)
		e.emitAudit(ctx, auditEventLoginBanned, false, "", email, "", ErrAccountBanned, nil)
		return nil, ErrAccountBanned
	}

	count, err := e.attempts.Read(ctx, email)
	if err != nil {
		return nil, wrapInternal(opLogin, err)
	}

	// The ban check runs before the challenge gate so it takes priority.
	if count >= e.config.Throttle.BanThreshold {
		if err := e.bans.Promote(ctx, email); err != nil {
			return nil, wrapInternal(opLogin, err)
		}
		e.metricInc(MetricBanCreated)
		e.emitAudit(ctx, auditEventBanCreated, false, "", email, "", ErrTooManyAttempts, func() map[string]string {
			return map[string]string{"attempts": strconv.Itoa(count)}
		})
		return nil, ErrTooManyAttempts
	}

	if e.config.Throttle.CaptchaEnabled && count >= e.config.Throttle.CaptchaThreshold {
		if err := e.checkCaptcha(ctx, email, req.CaptchaToken); err != nil {
			return nil, err
		}
	}

	user, err := e.verifyCredentials(ctx, email, req.Password)
	if err != nil {
		if errors.Is(err, ErrInvalidCredentials) {
			return nil, e.recordLoginFailure(ctx, email)
		}
		return nil, wrapInternal(opLogin, err)
	}

	if e.config.Password.UpgradeOnLogin {
		e.upgradePasswordHash(ctx, user, req.Password)
	}

	if !user.IsVerified {
		token, err := e.issueVerification(ctx, user, email)
		if err != nil {
			return nil, wrapInternal(opLogin, err)
		}
		e.metricInc(MetricLoginSuccess)
		e.emitAudit(ctx, auditEventLoginSuccess, true, user.ID, email, "", nil, func() map[string]string {
			return map[string]string{"verification_required": "true"}
		})
		return &LoginResult{
			UserID:               user.ID,
			VerificationRequired: true,
			VerifyToken:          token,
			VerifyTokenTTL:       e.config.Verification.TTL,
		}, nil
	}

	if err := e.attempts.Reset(ctx, email); err != nil {
		return nil, wrapInternal(opLogin, err)
	}

	e.recordFingerprint(ctx, user, ip, userAgent)

	info, err := e.IssueSession(ctx, user.ID, user.Role, ip, userAgent)
	if err != nil {
		return nil, wrapInternal(opLogin, err)
	}

	e.metricInc(MetricLoginSuccess)
	e.emitAudit(ctx, auditEventLoginSuccess, true, user.ID, email, info.SessionID, nil, nil)

	return &LoginResult{
		UserID:  user.ID,
		Session: info,
	}, nil
}

func (e *Engine) checkCaptcha(ctx context.Context, email, token string) error {
	if strings.TrimSpace(token) == "" {
		e.metricInc(MetricCaptchaRequired)
		e.emitAudit(ctx, auditEventCaptchaRequired, false, "", email, "", ErrCaptchaRequired, nil)
		return ErrCaptchaRequired
	}

	ok, err := e.captcha.Verify(ctx, token)
	if err != nil {
		return wrapInternal(opLogin, err)
	}
	if !ok {
		e.metricInc(MetricCaptchaFailed)
		e.emitAudit(ctx, auditEventCaptchaFailed, false, "", email, "", ErrCaptchaFailed, nil)
		return ErrCaptchaFailed
	}
	return nil
}

// verifyCredentials reports unknown emails and wrong passwords identically.
func (e *Engine) verifyCredentials(ctx context.Context, email, plaintext string) (*User, error) {
	user, err := e.users.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, ErrUserStoreNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}
	if user == nil || user.PasswordHash == "" {
		return nil, ErrInvalidCredentials
	}

	ok, err := e.hasher.Verify(plaintext, user.PasswordHash)
	if err != nil {
		if errors.Is(err, password.ErrPasswordTooLong) {
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}
	if !ok {
		return nil, ErrInvalidCredentials
	}
	return user, nil
}

func (e *Engine) recordLoginFailure(ctx context.Context, email string) error {
	count, err := e.attempts.RecordFailure(ctx, email)
	if err != nil {
		return wrapInternal(opLogin, err)
	}
	e.metricInc(MetricLoginFailure)
	e.emitAudit(ctx, auditEventLoginFailure, false, "", email, "", ErrInvalidCredentials, func() map[string]string {
		return map[string]string{"attempts": strconv.Itoa(count)}
	})
	return ErrInvalidCredentials
}

// upgradePasswordHash rewrites legacy or outdated hashes after a successful
// verification. Failures are logged and never affect the login.
func (e *Engine) upgradePasswordHash(ctx context.Context, user *User, plaintext string) {
	needs, err := e.hasher.NeedsRehash(user.PasswordHash)
	if err != nil || !needs {
		return
	}
	hash, err := e.hasher.Hash(plaintext)
	if err != nil {
		// legacy passwords may be shorter than the current policy
		e.logger.DebugContext(ctx, "password rehash skipped", "user_id", user.ID, "err", err)
		return
	}
	if err := e.users.UpdatePassword(ctx, user.ID, hash); err != nil {
		e.logger.WarnContext(ctx, "password rehash failed", "user_id", user.ID, "err", err)
		return
	}
	user.PasswordHash = hash
	e.metricInc(MetricPasswordUpgraded)
}
