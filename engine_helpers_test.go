package loginGuard

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"testing"

	"github.com/MrEthical07/loginGuard/password"
	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

const testPepper = "test-pepper"

type mockCredentialStore struct {
	mu      sync.Mutex
	users   map[string]User
	byEmail map[string]string
	events  []SecurityEvent

	findErr   error
	appendErr error
	updateErr error
	verifyErr error

	findByEmailCalls       int
	updatePasswordCalls    int
	updateFingerprintCalls int
}

func newMockCredentialStore() *mockCredentialStore {
	return &mockCredentialStore{
		users:   map[string]User{},
		byEmail: map[string]string{},
	}
}

func (m *mockCredentialStore) FindByEmail(_ context.Context, email string) (*User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.findByEmailCalls++

	if m.findErr != nil {
		return nil, m.findErr
	}
	id, ok := m.byEmail[email]
	if !ok {
		return nil, ErrUserStoreNotFound
	}
	u := m.users[id]
	return &u, nil
}

func (m *mockCredentialStore) FindByID(_ context.Context, userID string) (*User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.findErr != nil {
		return nil, m.findErr
	}
	u, ok := m.users[userID]
	if !ok {
		return nil, ErrUserStoreNotFound
	}
	return &u, nil
}

func (m *mockCredentialStore) CreateUser(_ context.Context, user User) (*User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.byEmail[user.Email]; ok {
		return nil, ErrUserStoreDuplicate
	}
	user.ID = fmt.Sprintf("u%d", len(m.users)+1)
	m.users[user.ID] = user
	m.byEmail[user.Email] = user.ID
	return &user, nil
}

func (m *mockCredentialStore) UpdatePassword(_ context.Context, userID, hash string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.updatePasswordCalls++

	if m.updateErr != nil {
		return m.updateErr
	}
	u, ok := m.users[userID]
	if !ok {
		return ErrUserStoreNotFound
	}
	u.PasswordHash = hash
	m.users[userID] = u
	return nil
}

func (m *mockCredentialStore) SetVerified(_ context.Context, userID string, verified bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.verifyErr != nil {
		return m.verifyErr
	}

	u, ok := m.users[userID]
	if !ok {
		return ErrUserStoreNotFound
	}
	u.IsVerified = verified
	m.users[userID] = u
	return nil
}

func (m *mockCredentialStore) UpdateFingerprint(_ context.Context, userID, ip, userAgent string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.updateFingerprintCalls++

	u, ok := m.users[userID]
	if !ok {
		return ErrUserStoreNotFound
	}
	u.LastIP = ip
	u.LastUserAgent = userAgent
	m.users[userID] = u
	return nil
}

func (m *mockCredentialStore) AppendSecurityEvent(_ context.Context, event SecurityEvent) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.appendErr != nil {
		return m.appendErr
	}
	m.events = append(m.events, event)
	return nil
}

func (m *mockCredentialStore) user(id string) User {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.users[id]
}

func (m *mockCredentialStore) securityEvents() []SecurityEvent {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]SecurityEvent(nil), m.events...)
}

func (m *mockCredentialStore) addUser(t testing.TB, hasher *password.Hasher, u User, plaintext string) User {
	t.Helper()

	hash, err := hasher.Hash(plaintext)
	if err != nil {
		t.Fatalf("hash failed: %v", err)
	}
	u.PasswordHash = hash
	if u.ID == "" {
		u.ID = fmt.Sprintf("u%d", len(m.users)+1)
	}
	u.Email = strings.ToLower(u.Email)

	m.mu.Lock()
	defer m.mu.Unlock()
	m.users[u.ID] = u
	m.byEmail[u.Email] = u.ID
	return u
}

type stubCaptcha struct {
	mu      sync.Mutex
	verdict bool
	err     error
	tokens  []string
}

func (s *stubCaptcha) Verify(_ context.Context, token string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tokens = append(s.tokens, token)
	return s.verdict, s.err
}

func (s *stubCaptcha) calls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.tokens)
}

type captureMailer struct {
	mu   sync.Mutex
	sent map[string]string
	err  error
}

func (c *captureMailer) SendTemporaryPassword(_ context.Context, email, plaintext string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.err != nil {
		return c.err
	}
	if c.sent == nil {
		c.sent = map[string]string{}
	}
	c.sent[email] = plaintext
	return nil
}

func newTestRedis(t testing.TB) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()

	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis.Run failed: %v", err)
	}

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	return mr, client
}

// testConfig keeps argon2 cheap enough for table tests.
func testConfig() Config {
	cfg := defaultConfig()
	cfg.Password.Memory = 8 * 1024
	cfg.Password.Time = 1
	cfg.Password.Parallelism = 1
	cfg.Password.Pepper = testPepper
	return cfg
}

func testHasher(t testing.TB, cfg Config) *password.Hasher {
	t.Helper()

	h, err := password.New(password.Config{
		Memory:      cfg.Password.Memory,
		Time:        cfg.Password.Time,
		Parallelism: cfg.Password.Parallelism,
		SaltLength:  cfg.Password.SaltLength,
		KeyLength:   cfg.Password.KeyLength,
		Pepper:      cfg.Password.Pepper,
		MinLength:   cfg.Password.MinLength,
	})
	if err != nil {
		t.Fatalf("password.New failed: %v", err)
	}
	return h
}

type testEnv struct {
	engine  *Engine
	mr      *miniredis.Miniredis
	rdb     *redis.Client
	users   *mockCredentialStore
	captcha *stubCaptcha
	mailer  *captureMailer
	hasher  *password.Hasher
	logs    *lockedBuffer
	cfg     Config
}

// lockedBuffer collects engine log output for assertions.
type lockedBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *lockedBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *lockedBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func newTestEnv(t testing.TB, cfg Config) *testEnv {
	t.Helper()

	mr, rdb := newTestRedis(t)
	env := &testEnv{
		mr:      mr,
		rdb:     rdb,
		users:   newMockCredentialStore(),
		captcha: &stubCaptcha{verdict: true},
		mailer:  &captureMailer{},
		hasher:  testHasher(t, cfg),
		logs:    &lockedBuffer{},
		cfg:     cfg,
	}

	engine, err := New().
		WithConfig(cfg).
		WithRedis(rdb).
		WithCredentialStore(env.users).
		WithCaptchaVerifier(env.captcha).
		WithMailer(env.mailer).
		WithLogger(slog.New(slog.NewJSONHandler(env.logs, nil))).
		Build()
	if err != nil {
		mr.Close()
		t.Fatalf("Build failed: %v", err)
	}
	env.engine = engine

	t.Cleanup(func() {
		engine.Close()
		_ = rdb.Close()
		mr.Close()
	})
	return env
}

func (env *testEnv) login(email, plaintext, captchaToken string) (*LoginResult, error) {
	return env.engine.Login(context.Background(), LoginRequest{
		Email:        email,
		Password:     plaintext,
		CaptchaToken: captchaToken,
		IP:           "203.0.113.7",
		UserAgent:    "test-agent/1.0",
	})
}

func (env *testEnv) attemptCount(t testing.TB, email string) (string, bool) {
	t.Helper()

	key := "loginAttempts:" + email
	if !env.mr.Exists(key) {
		return "", false
	}
	v, err := env.mr.Get(key)
	if err != nil {
		t.Fatalf("miniredis get: %v", err)
	}
	return v, true
}
