package loginGuard

import (
	"context"
	"errors"
	"net/mail"

	"github.com/MrEthical07/loginGuard/internal"
)

const (
	opCreateAccount = "creating the account"
	opCurrentUser   = "loading the user"
)

// CreateAccount registers an unverified user with a temporary password and
// hands that password to the [Mailer].
//
// The account starts with placeholder fingerprint values, so its first
// login always goes through the verification flow. A delivery failure is
// logged and reported in the result; it does not undo the account.
func (e *Engine) CreateAccount(ctx context.Context, req CreateAccountRequest) (*CreateAccountResult, error) {
	if !e.config.Account.Enabled {
		return nil, ErrAccountCreationDisabled
	}

	email := NormalizeEmail(req.Email)
	if !validEmail(email) {
		return nil, ErrEmailInvalid
	}

	role := req.Role
	if role == "" {
		role = e.config.Account.DefaultRole
	}

	temporary, err := internal.NewTemporaryPassword(e.config.Account.TemporaryPasswordLength)
	if err != nil {
		return nil, wrapInternal(opCreateAccount, err)
	}
	hash, err := e.hasher.Hash(temporary)
	if err != nil {
		return nil, wrapInternal(opCreateAccount, err)
	}

	placeholder := e.config.Account.PlaceholderFingerprintTag
	created, err := e.users.CreateUser(ctx, User{
		Email:         email,
		PasswordHash:  hash,
		Role:          role,
		IsVerified:    false,
		LastIP:        placeholder,
		LastUserAgent: placeholder,
	})
	if err != nil {
		if errors.Is(err, ErrUserStoreDuplicate) {
			e.metricInc(MetricAccountDuplicate)
			e.emitAudit(ctx, auditEventAccountDuplicate, false, "", email, "", ErrAccountExists, nil)
			return nil, ErrAccountExists
		}
		return nil, wrapInternal(opCreateAccount, err)
	}
	if created == nil || created.ID == "" {
		return nil, wrapInternal(opCreateAccount, errors.New("credential store returned no user id"))
	}

	result := &CreateAccountResult{
		UserID: created.ID,
		Email:  email,
		Role:   role,
	}

	if e.config.Account.SendWelcomeEmail && e.mailer != nil {
		if err := e.mailer.SendTemporaryPassword(ctx, email, temporary); err != nil {
			e.logger.WarnContext(ctx, "temporary password delivery failed", "user_id", created.ID, "err", err)
		} else {
			result.MailDelivered = true
		}
	}

	e.metricInc(MetricAccountCreated)
	e.emitAudit(ctx, auditEventAccountCreated, true, created.ID, email, "", nil, func() map[string]string {
		return map[string]string{"role": role}
	})

	return result, nil
}

// CurrentUser validates the session, sliding its TTL, and loads its user.
func (e *Engine) CurrentUser(ctx context.Context, sessionID string) (*User, error) {
	info, err := e.ValidateSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	user, err := e.users.FindByID(ctx, info.UserID)
	if err != nil {
		if errors.Is(err, ErrUserStoreNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, wrapInternal(opCurrentUser, err)
	}
	return user, nil
}

func validEmail(email string) bool {
	if email == "" || len(email) > 254 {
		return false
	}
	addr, err := mail.ParseAddress(email)
	return err == nil && addr.Address == email
}
