// Package memory is a process-local loginGuard.CredentialStore for tests
// and single-node development.
package memory

import (
	"context"
	"sync"

	loginGuard "github.com/MrEthical07/loginGuard"
	"github.com/oklog/ulid/v2"
)

// Store keeps users and security events in maps guarded by one mutex.
type Store struct {
	mu      sync.RWMutex
	byID    map[string]*loginGuard.User
	byEmail map[string]string
	events  []loginGuard.SecurityEvent
}

func New() *Store {
	return &Store{
		byID:    make(map[string]*loginGuard.User),
		byEmail: make(map[string]string),
	}
}

func (s *Store) FindByEmail(_ context.Context, email string) (*loginGuard.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	id, ok := s.byEmail[email]
	if !ok {
		return nil, loginGuard.ErrUserStoreNotFound
	}
	u := *s.byID[id]
	return &u, nil
}

func (s *Store) FindByID(_ context.Context, userID string) (*loginGuard.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	u, ok := s.byID[userID]
	if !ok {
		return nil, loginGuard.ErrUserStoreNotFound
	}
	out := *u
	return &out, nil
}

// CreateUser assigns a ULID when user.ID is empty.
func (s *Store) CreateUser(_ context.Context, user loginGuard.User) (*loginGuard.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, dup := s.byEmail[user.Email]; dup {
		return nil, loginGuard.ErrUserStoreDuplicate
	}
	if user.ID == "" {
		user.ID = ulid.Make().String()
	}
	if _, dup := s.byID[user.ID]; dup {
		return nil, loginGuard.ErrUserStoreDuplicate
	}

	stored := user
	s.byID[user.ID] = &stored
	s.byEmail[user.Email] = user.ID
	return &user, nil
}

func (s *Store) UpdatePassword(_ context.Context, userID, passwordHash string) error {
	return s.update(userID, func(u *loginGuard.User) { u.PasswordHash = passwordHash })
}

func (s *Store) SetVerified(_ context.Context, userID string, verified bool) error {
	return s.update(userID, func(u *loginGuard.User) { u.IsVerified = verified })
}

func (s *Store) UpdateFingerprint(_ context.Context, userID, ip, userAgent string) error {
	return s.update(userID, func(u *loginGuard.User) {
		u.LastIP = ip
		u.LastUserAgent = userAgent
	})
}

func (s *Store) AppendSecurityEvent(_ context.Context, event loginGuard.SecurityEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, event)
	return nil
}

// SecurityEvents returns a copy of the events appended so far.
func (s *Store) SecurityEvents() []loginGuard.SecurityEvent {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]loginGuard.SecurityEvent(nil), s.events...)
}

func (s *Store) update(userID string, fn func(*loginGuard.User)) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	u, ok := s.byID[userID]
	if !ok {
		return loginGuard.ErrUserStoreNotFound
	}
	fn(u)
	return nil
}
