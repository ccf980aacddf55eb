package loginGuard

import (
	"context"
	"errors"

	"github.com/MrEthical07/loginGuard/internal"
	"github.com/MrEthical07/loginGuard/internal/stores"
	"github.com/MrEthical07/loginGuard/password"
)

const (
	opIssueVerification  = "issuing the verify token"
	opRedeemVerification = "changing the password"
	opPeekVerification   = "checking the verify token"
)

// issueVerification mints a single-use token bound to user and clears the
// attempt counter for email.
func (e *Engine) issueVerification(ctx context.Context, user *User, email string) (string, error) {
	token, err := internal.NewVerifyToken()
	if err != nil {
		return "", wrapInternal(opIssueVerification, err)
	}

	if err := e.verifyTokens.Save(ctx, token, stores.VerifyTokenRecord{UserID: user.ID}, e.config.Verification.TTL); err != nil {
		return "", wrapInternal(opIssueVerification, err)
	}
	if err := e.attempts.Reset(ctx, email); err != nil {
		return "", wrapInternal(opIssueVerification, err)
	}

	e.metricInc(MetricVerificationIssued)
	e.emitAudit(ctx, auditEventVerificationIssued, true, user.ID, email, "", nil, nil)
	return token, nil
}

// RedeemVerification sets a new password for the account bound to the
// token, marks it verified and returns a fresh session.
//
// The password is validated and hashed before the token is consumed, so a
// rejected password leaves the token usable. Consumption is a single
// atomic GET+DEL: of two concurrent redemptions exactly one succeeds.
func (e *Engine) RedeemVerification(ctx context.Context, req RedeemRequest) (*SessionInfo, error) {
	ip := firstNonEmpty(req.IP, ClientIPFromContext(ctx))
	userAgent := firstNonEmpty(req.UserAgent, UserAgentFromContext(ctx))
	ctx = WithUserAgent(WithClientIP(ctx, ip), userAgent)

	if req.Token == "" {
		e.failVerification(ctx, "", ErrVerifyTokenMissing)
		return nil, ErrVerifyTokenMissing
	}

	hash, err := e.hashNewPassword(req.NewPassword)
	if err != nil {
		e.failVerification(ctx, "", err)
		return nil, err
	}

	record, err := e.verifyTokens.Consume(ctx, req.Token)
	if err != nil {
		if isVerifyTokenMissing(err) {
			e.failVerification(ctx, "", ErrVerifyTokenInvalid)
			return nil, ErrVerifyTokenInvalid
		}
		return nil, wrapInternal(opRedeemVerification, err)
	}

	user, err := e.users.FindByID(ctx, record.UserID)
	if err != nil {
		if errors.Is(err, ErrUserStoreNotFound) {
			e.failVerification(ctx, record.UserID, ErrUserNotFound)
			return nil, ErrUserNotFound
		}
		return nil, wrapInternal(opRedeemVerification, err)
	}

	if err := e.users.UpdatePassword(ctx, user.ID, hash); err != nil {
		return nil, e.redeemIncomplete(ctx, user.ID, "update_password", err)
	}
	if err := e.users.SetVerified(ctx, user.ID, true); err != nil {
		return nil, e.redeemIncomplete(ctx, user.ID, "set_verified", err)
	}
	if err := e.users.UpdateFingerprint(ctx, user.ID, ip, userAgent); err != nil {
		return nil, e.redeemIncomplete(ctx, user.ID, "update_fingerprint", err)
	}

	info, err := e.IssueSession(ctx, user.ID, user.Role, ip, userAgent)
	if err != nil {
		return nil, wrapInternal(opRedeemVerification, err)
	}

	e.metricInc(MetricVerificationRedeemed)
	e.emitAudit(ctx, auditEventVerificationRedeemed, true, user.ID, user.Email, info.SessionID, nil, nil)
	return info, nil
}

// PeekVerification reports the user bound to token without consuming it.
func (e *Engine) PeekVerification(ctx context.Context, token string) (string, error) {
	if token == "" {
		return "", ErrVerifyTokenMissing
	}

	record, err := e.verifyTokens.Peek(ctx, token)
	if err != nil {
		if isVerifyTokenMissing(err) {
			return "", ErrVerifyTokenInvalid
		}
		return "", wrapInternal(opPeekVerification, err)
	}
	return record.UserID, nil
}

func (e *Engine) hashNewPassword(plaintext string) (string, error) {
	if len(plaintext) < e.config.Password.MinLength {
		return "", ErrPasswordPolicy
	}
	hash, err := e.hasher.Hash(plaintext)
	if err != nil {
		if errors.Is(err, password.ErrPasswordTooShort) || errors.Is(err, password.ErrPasswordTooLong) {
			return "", ErrPasswordPolicy
		}
		return "", wrapInternal(opRedeemVerification, err)
	}
	return hash, nil
}

// redeemIncomplete reports a store failure after the token was consumed.
// The account stays in whatever state the earlier steps left it; while it
// is unverified its next login issues a fresh token.
func (e *Engine) redeemIncomplete(ctx context.Context, userID, step string, err error) error {
	e.failVerification(ctx, userID, err)
	e.logger.ErrorContext(ctx, "verify token consumed but redemption incomplete",
		"user_id", userID,
		"step", step,
		"err", err,
	)
	return wrapInternal(opRedeemVerification, err)
}

func (e *Engine) failVerification(ctx context.Context, userID string, err error) {
	e.metricInc(MetricVerificationFailed)
	e.emitAudit(ctx, auditEventVerificationFailed, false, userID, "", "", err, nil)
}

func isVerifyTokenMissing(err error) bool {
	return errors.Is(err, stores.ErrVerifyTokenNotFound) || errors.Is(err, stores.ErrVerifyTokenCorrupt)
}
