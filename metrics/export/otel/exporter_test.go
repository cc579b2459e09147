package otel

import (
	"context"
	"sync"
	"testing"

	eduAuth "github.com/MrEthical07/eduAuth"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
)

type fakeSource struct {
	mu       sync.RWMutex
	snapshot eduAuth.MetricsSnapshot
	dropped  uint64
}

func (f *fakeSource) MetricsSnapshot() eduAuth.MetricsSnapshot {
	f.mu.RLock()
	defer f.mu.RUnlock()
	out := eduAuth.MetricsSnapshot{
		Counters:   make(map[eduAuth.MetricID]uint64, len(f.snapshot.Counters)),
		Histograms: make(map[eduAuth.MetricID][]uint64, len(f.snapshot.Histograms)),
	}
	for k, v := range f.snapshot.Counters {
		out.Counters[k] = v
	}
	for k, buckets := range f.snapshot.Histograms {
		out.Histograms[k] = append([]uint64(nil), buckets...)
	}
	return out
}

func (f *fakeSource) AuditDropped() uint64 {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.dropped
}

func newTestMeter() (*sdkmetric.ManualReader, *sdkmetric.MeterProvider) {
	reader := sdkmetric.NewManualReader()
	return reader, sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
}

func findSum(rm metricdata.ResourceMetrics, name string) (int64, bool) {
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			if m.Name != name {
				continue
			}
			sum, ok := m.Data.(metricdata.Sum[int64])
			if !ok || len(sum.DataPoints) == 0 {
				return 0, false
			}
			return sum.DataPoints[0].Value, true
		}
	}
	return 0, false
}

func TestExporterRegistersAndCollects(t *testing.T) {
	reader, provider := newTestMeter()
	meter := provider.Meter("eduauth-test")

	src := &fakeSource{
		snapshot: eduAuth.MetricsSnapshot{
			Counters: map[eduAuth.MetricID]uint64{
				eduAuth.MetricLoginSuccess: 3,
			},
			Histograms: map[eduAuth.MetricID][]uint64{
				eduAuth.MetricValidateLatency: {1, 1, 1, 1, 1, 1, 1, 1},
			},
		},
		dropped: 1,
	}

	exp, err := NewExporter(meter, src)
	if err != nil {
		t.Fatalf("NewExporter failed: %v", err)
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
	if got, ok := findSum(rm, "eduauth_login_success_total"); !ok || got != 3 {
		t.Fatalf("expected login success 3, got %d (found=%v)", got, ok)
	}
	if got, ok := findSum(rm, "eduauth_audit_dropped_total"); !ok || got != 1 {
		t.Fatalf("expected audit dropped 1, got %d (found=%v)", got, ok)
	}
}

func TestExporterRejectsNilArguments(t *testing.T) {
	_, provider := newTestMeter()
	meter := provider.Meter("eduauth-test")

	if _, err := NewExporter(meter, nil); err != ErrNilSource {
		t.Fatalf("expected ErrNilSource, got %v", err)
	}
	if _, err := NewExporter(nil, &fakeSource{}); err != ErrNilMeter {
		t.Fatalf("expected ErrNilMeter, got %v", err)
	}
}

func TestExporterConcurrentCollectNoPanic(t *testing.T) {
	reader, provider := newTestMeter()
	meter := provider.Meter("eduauth-test")

	src := &fakeSource{
		snapshot: eduAuth.MetricsSnapshot{
			Counters: map[eduAuth.MetricID]uint64{
				eduAuth.MetricLoginSuccess: 1,
			},
			Histograms: map[eduAuth.MetricID][]uint64{
				eduAuth.MetricValidateLatency: {1, 0, 0, 0, 0, 0, 0, 0},
			},
		},
	}

	exp, err := NewExporter(meter, src)
	if err != nil {
		t.Fatalf("NewExporter failed: %v", err)
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
			src.snapshot.Counters[eduAuth.MetricLoginSuccess] = v
			src.mu.Unlock()

			var rm metricdata.ResourceMetrics
			_ = reader.Collect(context.Background(), &rm)
		}(uint64(i + 1))
	}
	wg.Wait()
}
