package loginGuard

import (
	"context"
	"errors"
	"time"
)

const (
	auditEventLoginSuccess         = "login_success"
	auditEventLoginFailure         = "login_failure"
	auditEventLoginBanned          = "login_banned"
	auditEventBanCreated           = "ban_created"
	auditEventCaptchaRequired      = "captcha_required"
	auditEventCaptchaFailed        = "captcha_failed"
	auditEventVerificationIssued   = "verification_issued"
	auditEventVerificationRedeemed = "verification_redeemed"
	auditEventVerificationFailed   = "verification_failed"
	auditEventSessionCreated       = "session_created"
	auditEventSessionRevoked       = "session_revoked"
	auditEventCSRFRejected         = "csrf_rejected"
	auditEventIPMismatch           = SecurityEventIPMismatch
	auditEventUserAgentMismatch    = SecurityEventUserAgentMismatch
	auditEventAccountCreated       = "account_created"
	auditEventAccountDuplicate     = "account_duplicate"
)

// AuditErrorCode is the stable, client-safe error label attached to failed audit events.
type AuditErrorCode string

const (
	auditErrBanned             AuditErrorCode = "banned"
	auditErrTooManyAttempts    AuditErrorCode = "too_many_attempts"
	auditErrCaptchaRequired    AuditErrorCode = "captcha_required"
	auditErrCaptchaFailed      AuditErrorCode = "captcha_failed"
	auditErrInvalidCredentials AuditErrorCode = "invalid_credentials"
	auditErrSessionNotFound    AuditErrorCode = "session_not_found"
	auditErrCSRF               AuditErrorCode = "csrf_rejected"
	auditErrInvalidToken       AuditErrorCode = "invalid_token"
	auditErrPasswordPolicy     AuditErrorCode = "password_policy"
	auditErrDuplicate          AuditErrorCode = "duplicate"
	auditErrInternal           AuditErrorCode = "internal_error"
)

func (e *Engine) emitAudit(
	ctx context.Context,
	eventType string,
	success bool,
	userID string,
	email string,
	sessionID string,
	err error,
	metadataBuilder func() map[string]string,
) {
	if e == nil || e.audit == nil {
		return
	}

	var metadata map[string]string
	if metadataBuilder != nil {
		metadata = metadataBuilder()
	}

	event := AuditEvent{
		Timestamp: time.Now().UTC(),
		EventType: eventType,
		UserID:    userID,
		Email:     email,
		SessionID: sessionID,
		IP:        ClientIPFromContext(ctx),
		UserAgent: UserAgentFromContext(ctx),
		Success:   success,
		Metadata:  metadata,
	}
	if code := auditErrorCode(err); code != "" {
		event.Error = string(code)
	}

	e.audit.Emit(ctx, event)
}

func auditErrorCode(err error) AuditErrorCode {
	if err == nil {
		return ""
	}

	switch {
	case errors.Is(err, ErrAccountBanned):
		return auditErrBanned
	case errors.Is(err, ErrTooManyAttempts):
		return auditErrTooManyAttempts
	case errors.Is(err, ErrCaptchaRequired):
		return auditErrCaptchaRequired
	case errors.Is(err, ErrCaptchaFailed):
		return auditErrCaptchaFailed
	case errors.Is(err, ErrInvalidCredentials):
		return auditErrInvalidCredentials
	case errors.Is(err, ErrSessionNotFound), errors.Is(err, ErrSessionIDMissing):
		return auditErrSessionNotFound
	case errors.Is(err, ErrCSRFMissing), errors.Is(err, ErrCSRFInvalid):
		return auditErrCSRF
	case errors.Is(err, ErrVerifyTokenMissing), errors.Is(err, ErrVerifyTokenInvalid):
		return auditErrInvalidToken
	case errors.Is(err, ErrPasswordPolicy):
		return auditErrPasswordPolicy
	case errors.Is(err, ErrAccountExists):
		return auditErrDuplicate
	default:
		return auditErrInternal
	}
}
