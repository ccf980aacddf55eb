package loginGuard

import (
	"context"
	"crypto/subtle"
	"errors"
	"net/http"
	"time"

	"github.com/MrEthical07/loginGuard/internal"
	"github.com/MrEthical07/loginGuard/session"
	"github.com/redis/go-redis/v9"
)

const (
	opIssueSession    = "creating the session"
	opValidateSession = "checking the session"
	opRevokeSession   = "logging out"
	opCheckCSRF       = "checking the CSRF token"

	sessionIDAttempts = 3
)

// IssueSession creates a new session with a fresh id and CSRF token.
// An existing session id is never reused.
func (e *Engine) IssueSession(ctx context.Context, userID, role, ip, userAgent string) (*SessionInfo, error) {
	csrfToken, err := internal.NewCSRFToken()
	if err != nil {
		return nil, wrapInternal(opIssueSession, err)
	}

	sess := &session.Session{
		UserID:    userID,
		UserRole:  role,
		IP:        ip,
		UserAgent: userAgent,
		CSRFToken: csrfToken,
		CreatedAt: time.Now().UTC().Unix(),
	}

	for attempt := 0; ; attempt++ {
		sid, err := internal.NewSessionID()
		if err != nil {
			return nil, wrapInternal(opIssueSession, err)
		}
		sess.SessionID = sid.String()

		err = e.sessionStore.Save(ctx, sess, e.config.Session.TTL)
		if err == nil {
			break
		}
		if errors.Is(err, session.ErrSessionIDCollision) && attempt+1 < sessionIDAttempts {
			continue
		}
		return nil, wrapInternal(opIssueSession, err)
	}

	e.metricInc(MetricSessionCreated)
	e.emitAudit(ctx, auditEventSessionCreated, true, userID, "", sess.SessionID, nil, nil)

	return e.sessionInfo(sess), nil
}

// ValidateSession loads a session and slides its TTL. There is no IP or
// user-agent recheck.
func (e *Engine) ValidateSession(ctx context.Context, sessionID string) (*SessionInfo, error) {
	if sessionID == "" {
		return nil, ErrSessionIDMissing
	}

	start := time.Now()
	sess, err := e.sessionStore.Get(ctx, sessionID, e.config.Session.TTL)
	if e.metrics.LatencyEnabled() {
		e.metrics.Observe(MetricValidateLatency, time.Since(start))
	}
	if err != nil {
		if isSessionMissing(err) {
			e.metricInc(MetricSessionNotFound)
			return nil, ErrSessionNotFound
		}
		return nil, wrapInternal(opValidateSession, err)
	}

	return e.sessionInfo(sess), nil
}

// RevokeSession deletes a session. Revoking an unknown or empty id is not an error.
func (e *Engine) RevokeSession(ctx context.Context, sessionID string) error {
	if sessionID == "" {
		return nil
	}

	existed, err := e.sessionStore.Delete(ctx, sessionID)
	if err != nil {
		return wrapInternal(opRevokeSession, err)
	}
	if existed {
		e.metricInc(MetricSessionRevoked)
		e.emitAudit(ctx, auditEventSessionRevoked, true, "", "", sessionID, nil, nil)
	}
	return nil
}

// CheckCSRF enforces the double-submit check for mutating requests.
//
// Safe methods and exempt paths pass. Otherwise both the session id and
// the header token must be present and the token must equal the one stored
// in the session. The session TTL is not touched.
func (e *Engine) CheckCSRF(ctx context.Context, method, path, sessionID, headerToken string) error {
	if !isMutatingMethod(method) || e.csrfExempt(path) {
		return nil
	}

	if sessionID == "" || headerToken == "" {
		e.rejectCSRF(ctx, sessionID, path, ErrCSRFMissing)
		return ErrCSRFMissing
	}

	sess, err := e.sessionStore.GetReadOnly(ctx, sessionID)
	if err != nil {
		if isSessionMissing(err) {
			e.rejectCSRF(ctx, sessionID, path, ErrCSRFInvalid)
			return ErrCSRFInvalid
		}
		return wrapInternal(opCheckCSRF, err)
	}

	if subtle.ConstantTimeCompare([]byte(sess.CSRFToken), []byte(headerToken)) != 1 {
		e.rejectCSRF(ctx, sessionID, path, ErrCSRFInvalid)
		return ErrCSRFInvalid
	}
	return nil
}

func (e *Engine) rejectCSRF(ctx context.Context, sessionID, path string, err error) {
	e.metricInc(MetricCSRFRejected)
	e.emitAudit(ctx, auditEventCSRFRejected, false, "", "", sessionID, err, func() map[string]string {
		return map[string]string{"path": path}
	})
}

func (e *Engine) csrfExempt(path string) bool {
	for _, p := range e.config.CSRF.ExemptPaths {
		if p == path {
			return true
		}
	}
	return false
}

func (e *Engine) sessionInfo(sess *session.Session) *SessionInfo {
	info := &SessionInfo{
		SessionID: sess.SessionID,
		CSRFToken: sess.CSRFToken,
		UserID:    sess.UserID,
		Role:      sess.UserRole,
		IP:        sess.IP,
		UserAgent: sess.UserAgent,
		TTL:       e.config.Session.TTL,
	}
	if sess.CreatedAt > 0 {
		info.CreatedAt = time.Unix(sess.CreatedAt, 0).UTC()
	}
	return info
}

func isMutatingMethod(method string) bool {
	switch method {
	case http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete:
		return true
	default:
		return false
	}
}

// isSessionMissing treats a corrupt record like a missing one: neither can
// authenticate anybody.
func isSessionMissing(err error) bool {
	return errors.Is(err, redis.Nil) || errors.Is(err, session.ErrSessionCorrupt)
}
