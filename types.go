package loginGuard

import (
	"context"
	"time"
)

// User is the credential-store record read and written by the engine.
// Fields beyond these belong to the host application.
type User struct {
	ID            string
	Email         string
	PasswordHash  string
	Role          string
	IsVerified    bool
	Is2FA         bool
	LastIP        string
	LastUserAgent string
}

const (
	// SecurityEventIPMismatch is recorded when the normalized login IP differs from the stored one.
	SecurityEventIPMismatch = "ip_mismatch"
	// SecurityEventUserAgentMismatch is recorded when the login user agent differs from the stored one.
	SecurityEventUserAgentMismatch = "userAgent_mismatch"
)

// SecurityEvent is an advisory record appended to the credential store.
type SecurityEvent struct {
	UserID      string
	EventType   string
	IP          string
	UserAgent   string
	Description string
	IsResolved  bool
	Timestamp   time.Time
}

// CredentialStore is the persistence boundary for user records.
//
// Implementations return [ErrUserStoreNotFound] for missing users and
// [ErrUserStoreDuplicate] from CreateUser for a taken email. Emails are
// passed already normalized.
type CredentialStore interface {
	FindByEmail(ctx context.Context, email string) (*User, error)
	FindByID(ctx context.Context, userID string) (*User, error)
	CreateUser(ctx context.Context, user User) (*User, error)
	UpdatePassword(ctx context.Context, userID, passwordHash string) error
	SetVerified(ctx context.Context, userID string, verified bool) error
	UpdateFingerprint(ctx context.Context, userID, ip, userAgent string) error
	AppendSecurityEvent(ctx context.Context, event SecurityEvent) error
}

// CaptchaVerifier checks a client-supplied challenge token with its provider.
// A false verdict is not an error.
type CaptchaVerifier interface {
	Verify(ctx context.Context, token string) (bool, error)
}

// Mailer delivers the temporary password of a freshly created account.
type Mailer interface {
	SendTemporaryPassword(ctx context.Context, email, password string) error
}

// LoginRequest carries one login attempt. IP and UserAgent fall back to the
// values attached with [WithClientIP] and [WithUserAgent].
type LoginRequest struct {
	Email        string
	Password     string
	CaptchaToken string
	IP           string
	UserAgent    string
}

// LoginResult is returned for valid credentials.
//
// Exactly one of Session or VerifyToken is set: unverified accounts receive
// a verification token instead of a session.
type LoginResult struct {
	UserID               string
	VerificationRequired bool
	VerifyToken          string
	VerifyTokenTTL       time.Duration
	Session              *SessionInfo
}

// SessionInfo describes an active session as seen by the caller.
type SessionInfo struct {
	SessionID string
	CSRFToken string
	UserID    string
	Role      string
	IP        string
	UserAgent string
	CreatedAt time.Time
	TTL       time.Duration
}

// RedeemRequest trades a verification token and a new password for a session.
type RedeemRequest struct {
	Token       string
	NewPassword string
	IP          string
	UserAgent   string
}

// CreateAccountRequest names the email and role of an account to create.
type CreateAccountRequest struct {
	Email string
	Role  string
}

// CreateAccountResult describes the account CreateAccount stored.
//
// The temporary password is only ever handed to the [Mailer].
type CreateAccountResult struct {
	UserID        string
	Email         string
	Role          string
	MailDelivered bool
}
