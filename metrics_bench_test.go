package loginGuard

import (
	"context"
	"errors"
	"testing"
)

func BenchmarkLoginBannedRejected(b *testing.B) {
	env := newBenchmarkEnv(b)
	if err := env.mr.Set("bannedUser:"+testEmail, "1"); err != nil {
		b.Fatalf("seed ban failed: %v", err)
	}

	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := env.login(testEmail, testPassword, ""); !errors.Is(err, ErrAccountBanned) {
			b.Fatalf("expected ErrAccountBanned, got %v", err)
		}
	}
}

func BenchmarkLoginFailureRecorded(b *testing.B) {
	env := newBenchmarkEnv(b)
	key := "loginAttempts:" + testEmail

	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := env.login(testEmail, "wrong-password", ""); !errors.Is(err, ErrInvalidCredentials) {
			b.Fatalf("expected ErrInvalidCredentials, got %v", err)
		}
		b.StopTimer()
		env.mr.Del(key)
		b.StartTimer()
	}
}

func BenchmarkThrottleStatus(b *testing.B) {
	env := newBenchmarkEnv(b)
	ctx := context.Background()
	if err := env.mr.Set("loginAttempts:"+testEmail, "4"); err != nil {
		b.Fatalf("seed attempts failed: %v", err)
	}

	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := env.engine.ThrottleStatus(ctx, testEmail); err != nil {
			b.Fatalf("ThrottleStatus failed: %v", err)
		}
	}
}

func BenchmarkMetricsSnapshotWithThrottleCounters(b *testing.B) {
	m := NewMetrics(MetricsConfig{Enabled: true, EnableLatencyHistograms: true})
	for _, id := range []MetricID{MetricLoginFailure, MetricCaptchaRequired, MetricBanCreated, MetricLoginBanned} {
		m.Inc(id)
	}

	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = m.Snapshot()
	}
}
