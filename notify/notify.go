// Package notify delivers account emails for loginGuard.
package notify

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/smtp"
	"strings"
)

// DefaultSubject is the subject of the temporary password email.
const DefaultSubject = "Welcome! Your temporary password"

// SMTPConfig holds the relay settings for [SMTPMailer].
type SMTPConfig struct {
	Addr     string // host:port
	Username string
	Password string
	From     string
	Subject  string
}

// SendFunc matches smtp.SendMail.
type SendFunc func(addr string, a smtp.Auth, from string, to []string, msg []byte) error

// SMTPMailer sends the temporary password through an SMTP relay with
// PLAIN auth.
type SMTPMailer struct {
	cfg  SMTPConfig
	auth smtp.Auth
	send SendFunc
}

func NewSMTPMailer(cfg SMTPConfig) (*SMTPMailer, error) {
	if cfg.Addr == "" || cfg.From == "" {
		return nil, errors.New("notify: smtp address and sender are required")
	}
	host, _, err := net.SplitHostPort(cfg.Addr)
	if err != nil {
		return nil, fmt.Errorf("notify: invalid smtp address (expected host:port): %w", err)
	}
	if cfg.Subject == "" {
		cfg.Subject = DefaultSubject
	}

	var auth smtp.Auth
	if cfg.Username != "" {
		auth = smtp.PlainAuth("", cfg.Username, cfg.Password, host)
	}
	return &SMTPMailer{cfg: cfg, auth: auth, send: smtp.SendMail}, nil
}

// WithSendFunc replaces the transport. Used by tests.
func (m *SMTPMailer) WithSendFunc(fn SendFunc) *SMTPMailer {
	m.send = fn
	return m
}

// SendTemporaryPassword implements loginGuard.Mailer. net/smtp has no
// context support; ctx is only checked before dialing.
func (m *SMTPMailer) SendTemporaryPassword(ctx context.Context, email, password string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if strings.ContainsAny(email, "\r\n") {
		return errors.New("notify: invalid recipient")
	}

	msg := "From: " + m.cfg.From + "\r\n" +
		"To: " + email + "\r\n" +
		"Subject: " + m.cfg.Subject + "\r\n" +
		"MIME-Version: 1.0\r\n" +
		"Content-Type: text/plain; charset=UTF-8\r\n\r\n" +
		temporaryPasswordBody(email, password)

	if err := m.send(m.cfg.Addr, m.auth, m.cfg.From, []string{email}, []byte(msg)); err != nil {
		return fmt.Errorf("notify: send mail via %s: %w", m.cfg.Addr, err)
	}
	return nil
}

func temporaryPasswordBody(email, password string) string {
	return "An account was created for " + email + ".\r\n\r\n" +
		"Temporary password: " + password + "\r\n\r\n" +
		"You will be asked to choose a new password on first sign-in.\r\n"
}

// LogMailer writes the temporary password to a logger instead of sending
// it. Development only: the password ends up in the log stream.
type LogMailer struct {
	logger *slog.Logger
}

func NewLogMailer(logger *slog.Logger) *LogMailer {
	if logger == nil {
		logger = slog.Default()
	}
	return &LogMailer{logger: logger}
}

func (m *LogMailer) SendTemporaryPassword(ctx context.Context, email, password string) error {
	m.logger.WarnContext(ctx, "temporary password issued (log mailer)",
		"email", email,
		"password", password,
	)
	return nil
}
