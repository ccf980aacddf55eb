// Package sqlite is a loginGuard.CredentialStore backed by SQLite
// (modernc.org/sqlite, no cgo).
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	loginGuard "github.com/MrEthical07/loginGuard"
	"github.com/oklog/ulid/v2"
	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"
)

type Store struct {
	db *sql.DB
}

// NewStore opens dsn and enables foreign keys. Call [Store.ApplyMigrations]
// before use.
func NewStore(dsn string) (*Store, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, err
	}

	// Every connection to ":memory:" is a separate database.
	if strings.Contains(dsn, ":memory:") {
		db.SetMaxOpenConns(1)
	}

	if _, err := db.ExecContext(context.Background(), `PRAGMA foreign_keys = ON;`); err != nil {
		_ = db.Close()
		return nil, err
	}
	return &Store{db: db}, nil
}

func (s *Store) Close() error { return s.db.Close() }

// Ping verifies the database connection is still alive.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

const userColumns = `id, email, password_hash, role, is_verified, is_2fa, last_ip, last_user_agent`

func (s *Store) FindByEmail(ctx context.Context, email string) (*loginGuard.User, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE email = ?`, email)
	return scanUser(row)
}

func (s *Store) FindByID(ctx context.Context, userID string) (*loginGuard.User, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE id = ?`, userID)
	return scanUser(row)
}

// CreateUser inserts user, assigning a ULID when ID is empty. A taken
// email is reported as loginGuard.ErrUserStoreDuplicate.
func (s *Store) CreateUser(ctx context.Context, user loginGuard.User) (*loginGuard.User, error) {
	if user.ID == "" {
		user.ID = ulid.Make().String()
	}
	now := time.Now().UTC().Unix()

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO users (`+userColumns+`, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		user.ID, user.Email, user.PasswordHash, user.Role,
		user.IsVerified, user.Is2FA, user.LastIP, user.LastUserAgent,
		now, now,
	)
	if err != nil {
		if isConstraint(err) {
			return nil, loginGuard.ErrUserStoreDuplicate
		}
		return nil, err
	}
	return &user, nil
}

func (s *Store) UpdatePassword(ctx context.Context, userID, passwordHash string) error {
	return s.exec(ctx, `UPDATE users SET password_hash = ?, updated_at = ? WHERE id = ?`,
		passwordHash, time.Now().UTC().Unix(), userID)
}

func (s *Store) SetVerified(ctx context.Context, userID string, verified bool) error {
	return s.exec(ctx, `UPDATE users SET is_verified = ?, updated_at = ? WHERE id = ?`,
		verified, time.Now().UTC().Unix(), userID)
}

func (s *Store) UpdateFingerprint(ctx context.Context, userID, ip, userAgent string) error {
	return s.exec(ctx, `UPDATE users SET last_ip = ?, last_user_agent = ?, updated_at = ? WHERE id = ?`,
		ip, userAgent, time.Now().UTC().Unix(), userID)
}

func (s *Store) AppendSecurityEvent(ctx context.Context, ev loginGuard.SecurityEvent) error {
	ts := ev.Timestamp
	if ts.IsZero() {
		ts = time.Now()
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO security_events (user_id, event_type, ip, user_agent, description, is_resolved, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		ev.UserID, ev.EventType, ev.IP, ev.UserAgent, ev.Description, ev.IsResolved, ts.UTC().Unix(),
	)
	if err != nil && isConstraint(err) {
		return loginGuard.ErrUserStoreNotFound
	}
	return err
}

// SecurityEvents lists a user's events, oldest first.
func (s *Store) SecurityEvents(ctx context.Context, userID string) ([]loginGuard.SecurityEvent, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT user_id, event_type, ip, user_agent, description, is_resolved, created_at
		FROM security_events WHERE user_id = ? ORDER BY id`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []loginGuard.SecurityEvent
	for rows.Next() {
		var ev loginGuard.SecurityEvent
		var created int64
		if err := rows.Scan(&ev.UserID, &ev.EventType, &ev.IP, &ev.UserAgent,
			&ev.Description, &ev.IsResolved, &created); err != nil {
			return nil, err
		}
		ev.Timestamp = time.Unix(created, 0).UTC()
		out = append(out, ev)
	}
	return out, rows.Err()
}

func (s *Store) exec(ctx context.Context, query string, args ...any) error {
	res, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return loginGuard.ErrUserStoreNotFound
	}
	return nil
}

func scanUser(row *sql.Row) (*loginGuard.User, error) {
	var u loginGuard.User
	err := row.Scan(&u.ID, &u.Email, &u.PasswordHash, &u.Role,
		&u.IsVerified, &u.Is2FA, &u.LastIP, &u.LastUserAgent)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, loginGuard.ErrUserStoreNotFound
		}
		return nil, err
	}
	return &u, nil
}

func isConstraint(err error) bool {
	var se *sqlite.Error
	if !errors.As(err, &se) {
		return false
	}
	return se.Code()&0xff == sqlite3.SQLITE_CONSTRAINT
}
