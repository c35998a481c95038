package goShare

import (
	"context"
	"sync"
	"testing"
)

func TestMetricsDisabledNoIncrement(t *testing.T) {
	m := NewMetrics(MetricsConfig{Enabled: false})
	m.Inc(MetricLoginSuccess)

	if got := m.Value(MetricLoginSuccess); got != 0 {
		t.Fatalf("expected 0, got %d", got)
	}
}

func TestMetricsEnabledIncrement(t *testing.T) {
	m := NewMetrics(MetricsConfig{Enabled: true})
	m.Inc(MetricLoginSuccess)
	m.Inc(MetricLoginSuccess)
	m.Inc(MetricLoginSuccess)

	if got := m.Value(MetricLoginSuccess); got != 3 {
		t.Fatalf("expected 3, got %d", got)
	}
}

func TestMetricsConcurrentIncrementSafe(t *testing.T) {
	m := NewMetrics(MetricsConfig{Enabled: true})

	const goroutines = 32
	const perG = 4000

	var wg sync.WaitGroup
	wg.Add(goroutines)
	for i := 0; i < goroutines; i++ {
		go func() {
			defer wg.Done()
			for j := 0; j < perG; j++ {
				m.Inc(MetricRefreshSuccess)
			}
		}()
	}
	wg.Wait()

	want := uint64(goroutines * perG)
	if got := m.Value(MetricRefreshSuccess); got != want {
		t.Fatalf("expected %d, got %d", want, got)
	}
}

func TestMetricsSnapshotConsistency(t *testing.T) {
	m := NewMetrics(MetricsConfig{Enabled: true})
	m.Inc(MetricLoginSuccess)
	m.Inc(MetricRefreshReuseDetected)
	m.Inc(MetricRefreshReuseDetected)

	s := m.Snapshot()
	if len(s.Counters) != int(metricIDCount) {
		t.Fatalf("expected every counter in snapshot, got %d", len(s.Counters))
	}
	if s.Counters[MetricLoginSuccess] != 1 || s.Counters[MetricRefreshReuseDetected] != 2 {
		t.Fatalf("unexpected snapshot %v", s.Counters)
	}

	m.Inc(MetricLoginSuccess)
	if s.Counters[MetricLoginSuccess] != 1 {
		t.Fatal("snapshot must not track later increments")
	}
}

func TestMetricNamesComplete(t *testing.T) {
	seen := map[string]bool{}
	for _, id := range MetricIDs() {
		name := id.String()
		if name == "" || name == "unknown" {
			t.Fatalf("metric %d has no name", id)
		}
		if seen[name] {
			t.Fatalf("duplicate metric name %q", name)
		}
		seen[name] = true
	}
	if MetricID(metricIDCount).String() != "unknown" {
		t.Fatal("out of range id should be unknown")
	}
}

func TestEngineMetricsSnapshotDisabled(t *testing.T) {
	cfg := testConfig()
	cfg.Metrics.Enabled = false
	e, err := New().WithConfig(cfg).WithCredentialStore(newMemoryStore()).Build()
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	defer e.Close()

	_, _ = e.Login(context.Background(), "nobody", "pw")
	for id, v := range e.MetricsSnapshot().Counters {
		if v != 0 {
			t.Fatalf("metric %s incremented while disabled", id)
		}
	}
}
