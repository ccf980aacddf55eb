package loginGuard

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"
)

func TestIssueSessionUsesFreshIDAndCSRFToken(t *testing.T) {
	env := newTestEnv(t, testConfig())
	ctx := context.Background()

	seen := map[string]bool{}
	csrf := map[string]bool{}
	for i := 0; i < 20; i++ {
		info, err := env.engine.IssueSession(ctx, "u1", "member", "203.0.113.7", "ua")
		if err != nil {
			t.Fatalf("IssueSession failed: %v", err)
		}
		if seen[info.SessionID] || csrf[info.CSRFToken] {
			t.Fatalf("reused session id or csrf token at iteration %d", i)
		}
		seen[info.SessionID] = true
		csrf[info.CSRFToken] = true
		if len(info.CSRFToken) != 36 {
			t.Fatalf("expected UUID csrf token, got %q", info.CSRFToken)
		}
	}
}

func TestValidateSessionSlidesTTL(t *testing.T) {
	env := newTestEnv(t, testConfig())
	ctx := context.Background()

	info, err := env.engine.IssueSession(ctx, "u1", "member", "203.0.113.7", "ua")
	if err != nil {
		t.Fatalf("IssueSession failed: %v", err)
	}
	key := "session:" + info.SessionID

	env.mr.FastForward(40 * time.Minute)
	got, err := env.engine.ValidateSession(ctx, info.SessionID)
	if err != nil {
		t.Fatalf("ValidateSession failed: %v", err)
	}
	if got.UserID != "u1" || got.CSRFToken != info.CSRFToken {
		t.Fatalf("unexpected session %+v", got)
	}
	if ttl := env.mr.TTL(key); ttl != time.Hour {
		t.Fatalf("expected TTL slid back to 1h, got %v", ttl)
	}
}

func TestValidateSessionErrors(t *testing.T) {
	env := newTestEnv(t, testConfig())
	ctx := context.Background()

	if _, err := env.engine.ValidateSession(ctx, ""); !errors.Is(err, ErrSessionIDMissing) {
		t.Fatalf("expected ErrSessionIDMissing, got %v", err)
	}
	if _, err := env.engine.ValidateSession(ctx, "does-not-exist"); !errors.Is(err, ErrSessionNotFound) {
		t.Fatalf("expected ErrSessionNotFound, got %v", err)
	}

	if err := env.mr.Set("session:corrupt", "{not json"); err != nil {
		t.Fatalf("seed: %v", err)
	}
	if _, err := env.engine.ValidateSession(ctx, "corrupt"); !errors.Is(err, ErrSessionNotFound) {
		t.Fatalf("expected corrupt record to read as not found, got %v", err)
	}

	info, err := env.engine.IssueSession(ctx, "u1", "member", "", "")
	if err != nil {
		t.Fatalf("IssueSession failed: %v", err)
	}
	env.mr.FastForward(time.Hour + time.Second)
	if _, err := env.engine.ValidateSession(ctx, info.SessionID); !errors.Is(err, ErrSessionNotFound) {
		t.Fatalf("expected expired session to be not found, got %v", err)
	}
}

func TestRevokeSessionIsIdempotent(t *testing.T) {
	env := newTestEnv(t, testConfig())
	ctx := context.Background()

	info, err := env.engine.IssueSession(ctx, "u1", "member", "", "")
	if err != nil {
		t.Fatalf("IssueSession failed: %v", err)
	}

	if err := env.engine.RevokeSession(ctx, info.SessionID); err != nil {
		t.Fatalf("RevokeSession failed: %v", err)
	}
	if _, err := env.engine.ValidateSession(ctx, info.SessionID); !errors.Is(err, ErrSessionNotFound) {
		t.Fatalf("expected ErrSessionNotFound after revoke, got %v", err)
	}
	if err := env.engine.RevokeSession(ctx, info.SessionID); err != nil {
		t.Fatalf("second revoke must succeed, got %v", err)
	}
	if err := env.engine.RevokeSession(ctx, ""); err != nil {
		t.Fatalf("empty revoke must succeed, got %v", err)
	}
	if got := env.engine.MetricsSnapshot().Counters[MetricSessionRevoked]; got != 1 {
		t.Fatalf("expected one revoke metric, got %d", got)
	}
}

func TestCheckCSRF(t *testing.T) {
	env := newTestEnv(t, testConfig())
	ctx := context.Background()

	info, err := env.engine.IssueSession(ctx, "u1", "member", "", "")
	if err != nil {
		t.Fatalf("IssueSession failed: %v", err)
	}
	other, err := env.engine.IssueSession(ctx, "u2", "member", "", "")
	if err != nil {
		t.Fatalf("IssueSession failed: %v", err)
	}

	tests := []struct {
		name      string
		method    string
		path      string
		sessionID string
		header    string
		want      error
	}{
		{"safe method", http.MethodGet, "/auth/checkSession", "", "", nil},
		{"exempt login", http.MethodPost, "/auth/logIn", "", "", nil},
		{"exempt logout", http.MethodPost, "/auth/logOut", "", "", nil},
		{"exempt change password", http.MethodPost, "/auth/changePassword", "", "", nil},
		{"missing header", http.MethodPost, "/auth/signUp", info.SessionID, "", ErrCSRFMissing},
		{"missing session", http.MethodDelete, "/auth/signUp", "", info.CSRFToken, ErrCSRFMissing},
		{"unknown session", http.MethodPut, "/auth/signUp", "nope", info.CSRFToken, ErrCSRFInvalid},
		{"wrong token", http.MethodPatch, "/auth/signUp", info.SessionID, "wrong", ErrCSRFInvalid},
		{"token of another session", http.MethodPost, "/auth/signUp", info.SessionID, other.CSRFToken, ErrCSRFInvalid},
		{"match", http.MethodPost, "/auth/signUp", info.SessionID, info.CSRFToken, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := env.engine.CheckCSRF(ctx, tt.method, tt.path, tt.sessionID, tt.header)
			if tt.want == nil {
				if err != nil {
					t.Fatalf("expected pass, got %v", err)
				}
				return
			}
			if !errors.Is(err, tt.want) {
				t.Fatalf("expected %v, got %v", tt.want, err)
			}
			if KindOf(err) != KindForbidden {
				t.Fatalf("expected forbidden kind, got %v", KindOf(err))
			}
		})
	}
}

func TestCheckCSRFDoesNotRefreshTTL(t *testing.T) {
	env := newTestEnv(t, testConfig())
	ctx := context.Background()

	info, err := env.engine.IssueSession(ctx, "u1", "member", "", "")
	if err != nil {
		t.Fatalf("IssueSession failed: %v", err)
	}
	env.mr.FastForward(20 * time.Minute)

	if err := env.engine.CheckCSRF(ctx, http.MethodPost, "/auth/signUp", info.SessionID, info.CSRFToken); err != nil {
		t.Fatalf("CheckCSRF failed: %v", err)
	}
	if ttl := env.mr.TTL("session:" + info.SessionID); ttl != 40*time.Minute {
		t.Fatalf("expected TTL untouched at 40m, got %v", ttl)
	}
}

func TestSessionOperationsRedisDown(t *testing.T) {
	env := newTestEnv(t, testConfig())
	env.mr.Close()
	ctx := context.Background()

	if _, err := env.engine.ValidateSession(ctx, "abc"); KindOf(err) != KindInternal {
		t.Fatalf("expected internal error, got %v", err)
	}
	if err := env.engine.RevokeSession(ctx, "abc"); KindOf(err) != KindInternal {
		t.Fatalf("expected internal error, got %v", err)
	}
	if err := env.engine.CheckCSRF(ctx, http.MethodPost, "/auth/signUp", "abc", "t"); KindOf(err) != KindInternal {
		t.Fatalf("expected internal error, got %v", err)
	}
}
