package loginGuard

import (
	"context"
	"errors"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func newVerificationEnv(t *testing.T) (*testEnv, User, string) {
	t.Helper()

	env := newTestEnv(t, testConfig())
	u := env.users.addUser(t, env.hasher, User{
		Email:         testEmail,
		Role:          "member",
		IsVerified:    false,
		LastIP:        "unknown",
		LastUserAgent: "unknown",
	}, testPassword)

	res, err := env.login(testEmail, testPassword, "")
	if err != nil {
		t.Fatalf("login failed: %v", err)
	}
	if !res.VerificationRequired {
		t.Fatal("expected verification to be required")
	}
	return env, u, res.VerifyToken
}

func TestRedeemVerificationCompletesReset(t *testing.T) {
	env, u, token := newVerificationEnv(t)
	ctx := context.Background()

	userID, err := env.engine.PeekVerification(ctx, token)
	if err != nil || userID != u.ID {
		t.Fatalf("PeekVerification = %q, %v", userID, err)
	}

	info, err := env.engine.RedeemVerification(ctx, RedeemRequest{
		Token:       token,
		NewPassword: "brand-new-secret",
		IP:          "::ffff:198.51.100.20",
		UserAgent:   "browser/2",
	})
	if err != nil {
		t.Fatalf("RedeemVerification failed: %v", err)
	}
	if info.UserID != u.ID || info.Role != "member" || info.SessionID == "" {
		t.Fatalf("unexpected session %+v", info)
	}

	stored := env.users.user(u.ID)
	if !stored.IsVerified {
		t.Fatal("expected user to be verified")
	}
	if stored.LastIP != "::ffff:198.51.100.20" || stored.LastUserAgent != "browser/2" {
		t.Fatalf("expected fingerprint update, got %q / %q", stored.LastIP, stored.LastUserAgent)
	}
	if env.mr.Exists("verifyToken:" + token) {
		t.Fatal("expected token to be consumed")
	}

	if _, err := env.login(testEmail, testPassword, ""); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("old password must stop working, got %v", err)
	}
	res, err := env.login(testEmail, "brand-new-secret", "")
	if err != nil || res.Session == nil {
		t.Fatalf("login with new password failed: %+v %v", res, err)
	}
}

func TestRedeemVerificationIsSingleUse(t *testing.T) {
	env, _, token := newVerificationEnv(t)
	ctx := context.Background()

	if _, err := env.engine.RedeemVerification(ctx, RedeemRequest{Token: token, NewPassword: "first-secret"}); err != nil {
		t.Fatalf("first redeem failed: %v", err)
	}
	_, err := env.engine.RedeemVerification(ctx, RedeemRequest{Token: token, NewPassword: "second-secret"})
	if !errors.Is(err, ErrVerifyTokenInvalid) {
		t.Fatalf("expected ErrVerifyTokenInvalid, got %v", err)
	}
	if KindOf(err) != KindUnauthorized {
		t.Fatalf("expected unauthorized kind, got %v", KindOf(err))
	}
	if _, err := env.engine.PeekVerification(ctx, token); !errors.Is(err, ErrVerifyTokenInvalid) {
		t.Fatalf("expected peek after redeem to fail, got %v", err)
	}
}

func TestRedeemVerificationConcurrentExactlyOnce(t *testing.T) {
	env, u, token := newVerificationEnv(t)

	const workers = 8
	var wins, invalid atomic.Int32
	var wg sync.WaitGroup
	start := make(chan struct{})

	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-start
			_, err := env.engine.RedeemVerification(context.Background(), RedeemRequest{
				Token:       token,
				NewPassword: "racing-secret",
			})
			switch {
			case err == nil:
				wins.Add(1)
			case errors.Is(err, ErrVerifyTokenInvalid):
				invalid.Add(1)
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}()
	}
	close(start)
	wg.Wait()

	if wins.Load() != 1 || invalid.Load() != workers-1 {
		t.Fatalf("expected exactly one winner, got wins=%d invalid=%d", wins.Load(), invalid.Load())
	}
	env.users.mu.Lock()
	calls := env.users.updatePasswordCalls
	env.users.mu.Unlock()
	if calls != 1 {
		t.Fatalf("expected one password update, got %d", calls)
	}
	if !env.users.user(u.ID).IsVerified {
		t.Fatal("expected user verified")
	}
}

func TestRedeemVerificationRejectsWeakPasswordWithoutBurningToken(t *testing.T) {
	env, _, token := newVerificationEnv(t)
	ctx := context.Background()

	_, err := env.engine.RedeemVerification(ctx, RedeemRequest{Token: token, NewPassword: "abc"})
	if !errors.Is(err, ErrPasswordPolicy) {
		t.Fatalf("expected ErrPasswordPolicy, got %v", err)
	}
	if KindOf(err) != KindInvalid {
		t.Fatalf("expected invalid kind, got %v", KindOf(err))
	}
	if !env.mr.Exists("verifyToken:" + token) {
		t.Fatal("a rejected password must leave the token usable")
	}
	if _, err := env.engine.RedeemVerification(ctx, RedeemRequest{Token: token, NewPassword: "long-enough"}); err != nil {
		t.Fatalf("redeem after policy failure: %v", err)
	}
}

func TestRedeemVerificationErrors(t *testing.T) {
	env, _, token := newVerificationEnv(t)
	ctx := context.Background()

	if _, err := env.engine.RedeemVerification(ctx, RedeemRequest{NewPassword: "whatever"}); !errors.Is(err, ErrVerifyTokenMissing) {
		t.Fatalf("expected ErrVerifyTokenMissing, got %v", err)
	}
	if _, err := env.engine.PeekVerification(ctx, ""); !errors.Is(err, ErrVerifyTokenMissing) {
		t.Fatalf("expected ErrVerifyTokenMissing from peek, got %v", err)
	}
	if _, err := env.engine.RedeemVerification(ctx, RedeemRequest{Token: "unknown", NewPassword: "whatever"}); !errors.Is(err, ErrVerifyTokenInvalid) {
		t.Fatalf("expected ErrVerifyTokenInvalid, got %v", err)
	}

	env.mr.FastForward(31 * time.Minute)
	if _, err := env.engine.RedeemVerification(ctx, RedeemRequest{Token: token, NewPassword: "whatever"}); !errors.Is(err, ErrVerifyTokenInvalid) {
		t.Fatalf("expected expired token to be invalid, got %v", err)
	}
}

func TestUnverifiedLoginSkipsFingerprintCheck(t *testing.T) {
	env, _, _ := newVerificationEnv(t)

	if events := env.users.securityEvents(); len(events) != 0 {
		t.Fatalf("expected no security events for unverified users, got %+v", events)
	}
}

func TestRedeemVerificationStoreFailureAfterConsume(t *testing.T) {
	tests := []struct {
		name      string
		inject    func(m *mockCredentialStore)
		step      string
		nextLogin string
	}{
		{"password update fails", func(m *mockCredentialStore) { m.updateErr = errors.New("db down") }, "update_password", testPassword},
		{"verify flag fails", func(m *mockCredentialStore) { m.verifyErr = errors.New("db down") }, "set_verified", "brand-new-secret"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env, u, token := newVerificationEnv(t)
			tt.inject(env.users)

			_, err := env.engine.RedeemVerification(context.Background(), RedeemRequest{
				Token:       token,
				NewPassword: "brand-new-secret",
				IP:          "198.51.100.20",
				UserAgent:   "browser/2",
			})
			if KindOf(err) != KindInternal {
				t.Fatalf("expected internal error, got %v", err)
			}
			if env.mr.Exists("verifyToken:" + token) {
				t.Fatal("token must stay consumed")
			}
			if env.users.user(u.ID).IsVerified {
				t.Fatal("account must stay unverified")
			}

			logs := env.logs.String()
			if !strings.Contains(logs, `"level":"ERROR"`) ||
				!strings.Contains(logs, "redemption incomplete") ||
				!strings.Contains(logs, `"user_id":"`+u.ID+`"`) ||
				!strings.Contains(logs, `"step":"`+tt.step+`"`) {
				t.Fatalf("expected error log with user id and step, got %s", logs)
			}

			env.users.updateErr = nil
			env.users.verifyErr = nil
			res, err := env.login(testEmail, tt.nextLogin, "")
			if err != nil {
				t.Fatalf("login after failed redemption: %v", err)
			}
			if !res.VerificationRequired || res.VerifyToken == "" || res.VerifyToken == token {
				t.Fatalf("expected a fresh verify token, got %+v", res)
			}
		})
	}
}
