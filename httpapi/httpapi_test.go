package httpapi_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"net/url"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	loginGuard "github.com/MrEthical07/loginGuard"
	"github.com/MrEthical07/loginGuard/httpapi"
	"github.com/MrEthical07/loginGuard/logging"
	"github.com/MrEthical07/loginGuard/metrics/export/prometheus"
	"github.com/MrEthical07/loginGuard/middleware"
	"github.com/MrEthical07/loginGuard/userstore/memory"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
)

type captureMailer struct {
	mu   sync.Mutex
	sent map[string]string
}

func (m *captureMailer) SendTemporaryPassword(_ context.Context, email, password string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sent[email] = password
	return nil
}

func (m *captureMailer) password(email string) string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.sent[email]
}

type testServer struct {
	*httptest.Server

	engine *loginGuard.Engine
	mailer *captureMailer
	mr     *miniredis.Miniredis
	client *http.Client
}

func newServer(t *testing.T, limit middleware.RateLimitConfig, checks map[string]httpapi.ReadinessCheck) *testServer {
	t.Helper()

	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	cfg := loginGuard.DefaultConfig()
	cfg.Password.Memory = 8 * 1024
	cfg.Password.Time = 1
	cfg.Password.Parallelism = 1
	cfg.Throttle.CaptchaEnabled = false

	mailer := &captureMailer{sent: map[string]string{}}
	engine, err := loginGuard.New().
		WithConfig(cfg).
		WithRedis(rdb).
		WithCredentialStore(memory.New()).
		WithMailer(mailer).
		Build()
	require.NoError(t, err)
	t.Cleanup(engine.Close)

	router := httpapi.NewRouter(httpapi.Config{
		Engine:        engine,
		Version:       "test",
		AuthRateLimit: limit,
		Checks:        checks,
		Metrics:       prometheus.NewPrometheusExporter(engine).Handler(),
	})
	srv := httptest.NewServer(router)
	t.Cleanup(srv.Close)

	jar, err := cookiejar.New(nil)
	require.NoError(t, err)

	return &testServer{
		Server: srv,
		engine: engine,
		mailer: mailer,
		mr:     mr,
		client: &http.Client{Jar: jar},
	}
}

var generousLimit = middleware.RateLimitConfig{RequestsPerWindow: 100, Window: time.Minute, Burst: 100}

func (s *testServer) do(t *testing.T, method, path string, body any, headers map[string]string) (*http.Response, []byte) {
	t.Helper()

	var rdr io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		rdr = bytes.NewReader(raw)
	}
	req, err := http.NewRequest(method, s.URL+path, rdr)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := s.client.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp, raw
}

func (s *testServer) cookie(t *testing.T, name string) string {
	t.Helper()
	u, err := url.Parse(s.URL)
	require.NoError(t, err)
	for _, c := range s.client.Jar.Cookies(u) {
		if c.Name == name {
			return c.Value
		}
	}
	return ""
}

func decodeError(t *testing.T, raw []byte) middleware.ErrorResponse {
	t.Helper()
	var body middleware.ErrorResponse
	require.NoError(t, json.Unmarshal(raw, &body))
	return body
}

func TestFirstLoginFlow(t *testing.T) {
	s := newServer(t, generousLimit, nil)
	ctx := context.Background()

	_, err := s.engine.CreateAccount(ctx, loginGuard.CreateAccountRequest{Email: "admin@x.com", Role: "admin"})
	require.NoError(t, err)
	temp := s.mailer.password("admin@x.com")
	require.Len(t, temp, 10)

	// Unverified account: verify cookie instead of a session.
	resp, raw := s.do(t, http.MethodPost, "/auth/logIn", map[string]string{"email": "Admin@X.com", "password": temp}, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode, string(raw))
	require.JSONEq(t, `{"message":"User must change password","isVerified":false}`, string(raw))
	require.NotEmpty(t, s.cookie(t, "verifyToken"))
	require.Empty(t, s.cookie(t, "sessionId"))

	resp, raw = s.do(t, http.MethodGet, "/auth/checkVerifyToken", nil, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode, string(raw))

	// Weak password keeps the token alive.
	resp, raw = s.do(t, http.MethodPost, "/auth/changePassword", map[string]string{"newPassword": "abc"}, nil)
	require.Equal(t, http.StatusBadRequest, resp.StatusCode, string(raw))
	require.NotEmpty(t, s.cookie(t, "verifyToken"))

	resp, raw = s.do(t, http.MethodPost, "/auth/changePassword", map[string]string{"newPassword": "s3cure-pass"}, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode, string(raw))
	require.Empty(t, s.cookie(t, "verifyToken"))
	require.NotEmpty(t, s.cookie(t, "sessionId"))
	require.NotEmpty(t, s.cookie(t, "csrfToken"))

	resp, raw = s.do(t, http.MethodGet, "/auth/checkSession", nil, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode, string(raw))
	var session struct {
		User struct {
			Email      string `json:"email"`
			IsVerified bool   `json:"isVerified"`
			LastIP     string `json:"lastIp"`
		} `json:"user"`
	}
	require.NoError(t, json.Unmarshal(raw, &session))
	require.Equal(t, "admin@x.com", session.User.Email)
	require.True(t, session.User.IsVerified)
	require.Equal(t, "127.0.0.1", session.User.LastIP)
	require.NotContains(t, string(raw), "argon2")

	// The verify token was spent.
	for _, key := range s.mr.Keys() {
		require.NotContains(t, key, "verifyToken:")
	}
}

func TestSignUpRequiresSessionAndCSRF(t *testing.T) {
	s := newServer(t, generousLimit, nil)

	info, err := s.engine.IssueSession(context.Background(), "op-1", "admin", "127.0.0.1", "test")
	require.NoError(t, err)
	u, _ := url.Parse(s.URL)
	s.client.Jar.SetCookies(u, []*http.Cookie{{Name: "sessionId", Value: info.SessionID}})

	body := map[string]string{"email": "new@x.com", "role": "viewer"}

	resp, raw := s.do(t, http.MethodPost, "/auth/signUp", body, nil)
	require.Equal(t, http.StatusForbidden, resp.StatusCode, string(raw))
	require.Equal(t, "missing CSRF token or session id", decodeError(t, raw).Message)

	resp, raw = s.do(t, http.MethodPost, "/auth/signUp", body, map[string]string{"X-CSRF-Token": "wrong"})
	require.Equal(t, http.StatusForbidden, resp.StatusCode, string(raw))

	csrf := map[string]string{"X-CSRF-Token": info.CSRFToken}
	resp, raw = s.do(t, http.MethodPost, "/auth/signUp", body, csrf)
	require.Equal(t, http.StatusCreated, resp.StatusCode, string(raw))
	require.JSONEq(t, `{"message":"ok"}`, string(raw))
	require.NotEmpty(t, s.mailer.password("new@x.com"))

	resp, raw = s.do(t, http.MethodPost, "/auth/signUp", body, csrf)
	require.Equal(t, http.StatusBadRequest, resp.StatusCode, string(raw))
	require.Equal(t, "user with this email already exists", decodeError(t, raw).Message)
}

func TestLoginFailureEnvelope(t *testing.T) {
	s := newServer(t, generousLimit, nil)

	resp, raw := s.do(t, http.MethodPost, "/auth/logIn", map[string]string{"email": "ghost@x.com", "password": "whatever"}, nil)
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	body := decodeError(t, raw)
	require.Equal(t, http.StatusUnauthorized, body.StatusCode)
	require.Equal(t, "some of the fields are incorrect", body.Message)
	require.Equal(t, "/auth/logIn", body.Path)
	require.Equal(t, resp.Header.Get(logging.CorrelationHeader), body.CorrelationID)

	resp, _ = s.do(t, http.MethodPost, "/auth/logIn", map[string]string{"email": "ghost@x.com"}, nil)
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestLoginBanAfterRepeatedFailures(t *testing.T) {
	s := newServer(t, generousLimit, nil)
	require.NoError(t, s.mr.Set("loginAttempts:ghost@x.com", "5"))

	resp, raw := s.do(t, http.MethodPost, "/auth/logIn", map[string]string{"email": "ghost@x.com", "password": "whatever"}, nil)
	require.Equal(t, http.StatusForbidden, resp.StatusCode, string(raw))

	resp, raw = s.do(t, http.MethodPost, "/auth/logIn", map[string]string{"email": "ghost@x.com", "password": "whatever"}, nil)
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	require.Equal(t, "account is banned", decodeError(t, raw).Message)
}

func TestLogOutAlwaysClearsCookies(t *testing.T) {
	s := newServer(t, generousLimit, nil)

	info, err := s.engine.IssueSession(context.Background(), "u1", "viewer", "127.0.0.1", "test")
	require.NoError(t, err)
	u, _ := url.Parse(s.URL)
	s.client.Jar.SetCookies(u, []*http.Cookie{
		{Name: "sessionId", Value: info.SessionID},
		{Name: "csrfToken", Value: info.CSRFToken},
	})

	resp, raw := s.do(t, http.MethodPost, "/auth/logOut", nil, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode, string(raw))
	require.Empty(t, s.cookie(t, "sessionId"))
	require.Empty(t, s.cookie(t, "csrfToken"))
	require.False(t, s.mr.Exists("session:"+info.SessionID))

	resp, _ = s.do(t, http.MethodPost, "/auth/logOut", nil, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode, "logout without a session is not an error")

	resp, _ = s.do(t, http.MethodGet, "/auth/checkSession", nil, nil)
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestAuthRateLimit(t *testing.T) {
	s := newServer(t, middleware.RateLimitConfig{RequestsPerWindow: 2, Window: time.Minute, Burst: 2}, nil)

	login := map[string]string{"email": "ghost@x.com", "password": "whatever"}
	for i := 0; i < 2; i++ {
		resp, _ := s.do(t, http.MethodPost, "/auth/logIn", login, nil)
		require.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	}

	resp, _ := s.do(t, http.MethodPost, "/auth/logIn", login, nil)
	require.Equal(t, http.StatusTooManyRequests, resp.StatusCode)
	require.NotEmpty(t, resp.Header.Get("Retry-After"))
}

func TestHealthEndpoints(t *testing.T) {
	dbErr := errors.New("database is locked")
	s := newServer(t, generousLimit, map[string]httpapi.ReadinessCheck{
		"database": func(context.Context) error { return dbErr },
	})

	resp, _ := s.do(t, http.MethodGet, "/livez", nil, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp, raw := s.do(t, http.MethodGet, "/readyz", nil, nil)
	require.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
	var body struct {
		Status string            `json:"status"`
		Checks map[string]string `json:"checks"`
	}
	require.NoError(t, json.Unmarshal(raw, &body))
	require.Equal(t, "degraded", body.Status)
	require.Equal(t, "ok", body.Checks["redis"])
	require.Equal(t, "error: database is locked", body.Checks["database"])

	resp, raw = s.do(t, http.MethodGet, "/metrics", nil, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Contains(t, string(raw), "loginguard_login_success_total")

	resp, raw = s.do(t, http.MethodGet, "/nope", nil, nil)
	require.Equal(t, http.StatusNotFound, resp.StatusCode)
	require.Equal(t, http.StatusNotFound, decodeError(t, raw).StatusCode)
}
