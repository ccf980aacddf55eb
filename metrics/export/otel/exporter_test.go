package otel

import (
	"context"
	"sync"
	"testing"

	loginGuard "github.com/MrEthical07/loginGuard"
	"go.opentelemetry.io/otel/attribute"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
)

type fakeSource struct {
	mu       sync.RWMutex
	snapshot loginGuard.MetricsSnapshot
	dropped  map[string]uint64
}

func (f *fakeSource) MetricsSnapshot() loginGuard.MetricsSnapshot {
	f.mu.RLock()
	defer f.mu.RUnlock()
	out := loginGuard.MetricsSnapshot{
		Counters:   make(map[loginGuard.MetricID]uint64, len(f.snapshot.Counters)),
		Histograms: make(map[loginGuard.MetricID][]uint64, len(f.snapshot.Histograms)),
	}
	for k, v := range f.snapshot.Counters {
		out.Counters[k] = v
	}
	for k, buckets := range f.snapshot.Histograms {
		next := make([]uint64, len(buckets))
		copy(next, buckets)
		out.Histograms[k] = next
	}
	return out
}

func (f *fakeSource) AuditDroppedByType() map[string]uint64 {
	f.mu.RLock()
	defer f.mu.RUnlock()
	out := make(map[string]uint64, len(f.dropped))
	for k, v := range f.dropped {
		out[k] = v
	}
	return out
}

func TestExporterRegistersAndCollects(t *testing.T) {
	reader := sdkmetric.NewManualReader()
	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	meter := provider.Meter("loginguard-test")

	src := &fakeSource{
		snapshot: loginGuard.MetricsSnapshot{
			Counters: map[loginGuard.MetricID]uint64{
				loginGuard.MetricLoginSuccess: 3,
				loginGuard.MetricLoginFailure: 5,
				loginGuard.MetricBanCreated:   2,
			},
			Histograms: map[loginGuard.MetricID][]uint64{
				loginGuard.MetricValidateLatency: {1, 1, 1, 1, 1, 1, 1, 1},
			},
		},
		dropped: map[string]uint64{"login_failure": 1},
	}

	exp, err := NewOTelExporterFromSource(meter, src)
	if err != nil {
		t.Fatalf("NewOTelExporterFromSource failed: %v", err)
	}
	defer func() {
		if err := exp.Close(); err != nil {
			t.Fatalf("Close failed: %v", err)
		}
	}()

	var rm metricdata.ResourceMetrics
	if err := reader.Collect(context.Background(), &rm); err != nil {
		t.Fatalf("Collect failed: %v", err)
	}
	if len(rm.ScopeMetrics) == 0 {
		t.Fatal("expected collected metrics, got none")
	}
	if got := pointValue(t, rm, "loginguard_login_success_total", nil); got != 3 {
		t.Fatalf("login success = %d, want 3", got)
	}
	if got := pointValue(t, rm, "loginguard_throttle_events_total", map[string]string{"gate": "attempt", "event": "recorded"}); got != 5 {
		t.Fatalf("attempts recorded = %d, want 5", got)
	}
	if got := pointValue(t, rm, "loginguard_throttle_events_total", map[string]string{"gate": "ban", "event": "created"}); got != 2 {
		t.Fatalf("bans created = %d, want 2", got)
	}
	if got := pointValue(t, rm, "loginguard_throttle_events_total", map[string]string{"gate": "captcha", "event": "failed"}); got != 0 {
		t.Fatalf("captcha failed = %d, want 0", got)
	}
	if got := pointValue(t, rm, "loginguard_audit_dropped_total", map[string]string{"event_type": "login_failure"}); got != 1 {
		t.Fatalf("audit dropped = %d, want 1", got)
	}
}

// pointValue returns the data point of name whose attributes equal attrs.
func pointValue(t *testing.T, rm metricdata.ResourceMetrics, name string, attrs map[string]string) int64 {
	t.Helper()
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			if m.Name != name {
				continue
			}
			sum, ok := m.Data.(metricdata.Sum[int64])
			if !ok {
				t.Fatalf("metric %s has unexpected data %T", name, m.Data)
			}
			for _, dp := range sum.DataPoints {
				if dp.Attributes.Len() != len(attrs) {
					continue
				}
				match := true
				for k, want := range attrs {
					if v, ok := dp.Attributes.Value(attribute.Key(k)); !ok || v.AsString() != want {
						match = false
						break
					}
				}
				if match {
					return dp.Value
				}
			}
			t.Fatalf("metric %s has no point with %v", name, attrs)
		}
	}
	t.Fatalf("metric %s not collected", name)
	return 0
}

func TestExporterRejectsNilSource(t *testing.T) {
	reader := sdkmetric.NewManualReader()
	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	meter := provider.Meter("loginguard-test")

	if _, err := NewOTelExporterFromSource(meter, nil); err == nil {
		t.Fatal("expected error for nil source")
	}
}

func TestExporterConcurrentCollectNoPanic(t *testing.T) {
	reader := sdkmetric.NewManualReader()
	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	meter := provider.Meter("loginguard-test")

	src := &fakeSource{
		snapshot: loginGuard.MetricsSnapshot{
			Counters: map[loginGuard.MetricID]uint64{
				loginGuard.MetricLoginSuccess: 1,
			},
			Histograms: map[loginGuard.MetricID][]uint64{
				loginGuard.MetricValidateLatency: {1, 0, 0, 0, 0, 0, 0, 0},
			},
		},
	}

	exp, err := NewOTelExporterFromSource(meter, src)
	if err != nil {
		t.Fatalf("NewOTelExporterFromSource failed: %v", err)
	}
	defer func() {
		if err := exp.Close(); err != nil {
			t.Fatalf("Close failed: %v", err)
		}
	}()

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(v uint64) {
			defer wg.Done()
			src.mu.Lock()
			src.snapshot.Counters[loginGuard.MetricLoginSuccess] = v
			src.mu.Unlock()

			var rm metricdata.ResourceMetrics
			_ = reader.Collect(context.Background(), &rm)
		}(uint64(i + 1))
	}
	wg.Wait()
}
