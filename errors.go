package loginGuard

import (
	"errors"
)

// ErrorKind classifies every failure returned by Engine operations.
//
// Callers map kinds to transport status codes; the message carried by an
// [Error] is always safe to show to the client.
type ErrorKind uint8

const (
	// KindUnknown is reported by [KindOf] for a nil error.
	KindUnknown ErrorKind = iota
	// KindUnauthorized covers missing, invalid or expired credential material.
	KindUnauthorized
	// KindForbidden covers policy denials such as bans and CSRF mismatches.
	KindForbidden
	// KindInternal covers store and hashing failures. Detail is never exposed.
	KindInternal
	// KindInvalid covers malformed requests to account management operations.
	KindInvalid
)

func (k ErrorKind) String() string {
	switch k {
	case KindUnauthorized:
		return "unauthorized"
	case KindForbidden:
		return "forbidden"
	case KindInternal:
		return "internal"
	case KindInvalid:
		return "invalid"
	default:
		return "unknown"
	}
}

// Error is the single error type returned across the public API.
type Error struct {
	Kind    ErrorKind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches another *Error with the same kind and message, so wrapped
// copies of a sentinel still satisfy errors.Is.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind && t.Message == e.Message
}

// Retryable reports whether the failure came from infrastructure rather
// than from the caller's input.
func (e *Error) Retryable() bool {
	return e.Kind == KindInternal
}

func unauthorized(msg string) *Error { return &Error{Kind: KindUnauthorized, Message: msg} }
func forbidden(msg string) *Error    { return &Error{Kind: KindForbidden, Message: msg} }
func invalid(msg string) *Error      { return &Error{Kind: KindInvalid, Message: msg} }

var (
	// ErrAccountBanned is returned while a ban record exists for the email.
	ErrAccountBanned = unauthorized("account is banned")
	// ErrTooManyAttempts is returned on the attempt that converts the counter into a ban.
	ErrTooManyAttempts = forbidden("too many login attempts")
	// ErrCaptchaRequired is returned inside the challenge band when no CAPTCHA token was sent.
	ErrCaptchaRequired = unauthorized("recaptcha token required")
	// ErrCaptchaFailed is returned when the CAPTCHA provider rejects the token.
	ErrCaptchaFailed = unauthorized("recaptcha verification failed")
	// ErrInvalidCredentials is shared by unknown emails and wrong passwords.
	ErrInvalidCredentials = unauthorized("some of the fields are incorrect")

	// ErrSessionIDMissing is returned when no session cookie was sent.
	ErrSessionIDMissing = unauthorized("session id missing")
	// ErrSessionNotFound covers expired, revoked and corrupt sessions.
	ErrSessionNotFound = unauthorized("session not found")

	// ErrCSRFMissing is returned when the session cookie or the CSRF header is absent.
	ErrCSRFMissing = forbidden("missing CSRF token or session id")
	// ErrCSRFInvalid is returned when the header token does not match the session.
	ErrCSRFInvalid = forbidden("invalid CSRF token")

	// ErrVerifyTokenMissing is returned when no verify token was sent.
	ErrVerifyTokenMissing = unauthorized("verify token is missing")
	// ErrVerifyTokenInvalid covers unknown, expired and already redeemed tokens.
	ErrVerifyTokenInvalid = unauthorized("verify token is invalid or expired")

	// ErrPasswordPolicy is returned when a new password is rejected before hashing.
	ErrPasswordPolicy = invalid("new password does not meet the password policy")
	// ErrAccountExists is returned by CreateAccount for a taken email.
	ErrAccountExists = invalid("user with this email already exists")
	// ErrAccountCreationDisabled is returned by CreateAccount when Account.Enabled is false.
	ErrAccountCreationDisabled = forbidden("account creation is disabled")
	// ErrEmailInvalid is returned by CreateAccount for a malformed email.
	ErrEmailInvalid = invalid("email is invalid")
	// ErrUserNotFound is returned by CurrentUser when the session outlived its user.
	ErrUserNotFound = unauthorized("user not found")

	// ErrUserStoreNotFound is returned by CredentialStore implementations for
	// missing records. It is never surfaced to clients directly.
	ErrUserStoreNotFound = errors.New("user record not found")
	// ErrUserStoreDuplicate is returned by CredentialStore.CreateUser for a taken email.
	ErrUserStoreDuplicate = errors.New("user record already exists")
)

// KindOf reports the kind of err. Errors that are not an *Error are
// reported as KindInternal.
func KindOf(err error) ErrorKind {
	if err == nil {
		return KindUnknown
	}
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}

// wrapInternal keeps domain errors intact and converts everything else into
// an internal error carrying a generic, operation-specific message.
func wrapInternal(op string, err error) error {
	if err == nil {
		return nil
	}
	var e *Error
	if errors.As(err, &e) {
		return err
	}
	return &Error{Kind: KindInternal, Message: "an error occurred while " + op, Err: err}
}
