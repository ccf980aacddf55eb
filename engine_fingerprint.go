package loginGuard

import (
	"context"
	"time"

	"github.com/MrEthical07/loginGuard/internal"
)

// recordFingerprint compares the login fingerprint of a verified user with
// the stored one and appends advisory security events. Empty and
// placeholder values are compared like any other. Nothing here can fail
// the login.
func (e *Engine) recordFingerprint(ctx context.Context, user *User, ip, userAgent string) {
	cfg := e.config.Fingerprint

	if cfg.DetectIPChange && internal.IPChanged(user.LastIP, ip) {
		e.metricInc(MetricIPMismatch)
		e.appendSecurityEvent(ctx, SecurityEvent{
			UserID:      user.ID,
			EventType:   SecurityEventIPMismatch,
			IP:          ip,
			UserAgent:   userAgent,
			Description: "login from " + internal.NormalizeIP(ip) + ".*, last seen " + internal.NormalizeIP(user.LastIP) + ".*",
		})
	}

	if cfg.DetectUserAgentChange && internal.UserAgentChanged(user.LastUserAgent, userAgent) {
		e.metricInc(MetricUserAgentMismatch)
		e.appendSecurityEvent(ctx, SecurityEvent{
			UserID:      user.ID,
			EventType:   SecurityEventUserAgentMismatch,
			IP:          ip,
			UserAgent:   userAgent,
			Description: "login from a different user agent",
		})
	}

	if cfg.UpdateOnLogin {
		if err := e.users.UpdateFingerprint(ctx, user.ID, ip, userAgent); err != nil {
			e.logger.WarnContext(ctx, "fingerprint update failed", "user_id", user.ID, "err", err)
		}
	}
}

func (e *Engine) appendSecurityEvent(ctx context.Context, event SecurityEvent) {
	event.Timestamp = time.Now().UTC()

	e.emitAudit(ctx, event.EventType, false, event.UserID, "", "", nil, func() map[string]string {
		return map[string]string{"description": event.Description}
	})

	if err := e.users.AppendSecurityEvent(ctx, event); err != nil {
		e.metricInc(MetricSecurityEventDropped)
		e.logger.WarnContext(ctx, "security event not recorded",
			"user_id", event.UserID,
			"event_type", event.EventType,
			"err", err,
		)
	}
}
