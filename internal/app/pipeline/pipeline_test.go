package pipeline

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/ghalamif/LineFlow/internal/domain"
	"github.com/ghalamif/LineFlow/internal/ports"
)

var t0 = time.Date(2024, 3, 1, 8, 0, 0, 0, time.UTC)

func window() domain.QueryWindow {
	return domain.QueryWindow{Start: t0, End: t0.Add(time.Hour)}
}

func TestRunProducesDowntime(t *testing.T) {
	src := &mockSource{series: domain.Series{
		Samples: minutes(50, 0, 0, 52),
		Total:   5,
		Dropped: 1,
	}}
	obs := &mockObs{}
	r := NewRunner(src, ports.DetectionPolicy{ThresholdSpeed: 5, MinRunLength: 1}, obs)

	res, err := r.Run(context.Background(), window())
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if len(res.Intervals) != 3 || len(res.Records) != 1 {
		t.Fatalf("expected 3 intervals and 1 record, got %d and %d", len(res.Intervals), len(res.Records))
	}
	if res.Records[0].Duration != time.Minute {
		t.Fatalf("expected 1m stoppage, got %s", res.Records[0].Duration)
	}
	if res.RunID == "" {
		t.Fatalf("expected run id")
	}
	if res.Status() != domain.StatusPartial || res.DroppedRows != 1 {
		t.Fatalf("expected partial result with 1 dropped row, got %s/%d", res.Status(), res.DroppedRows)
	}
	if obs.dropped != 1 {
		t.Fatalf("expected dropped rows to be recorded, got %d", obs.dropped)
	}
	if obs.counters["lineflow_pipeline_runs_total"] != 1 {
		t.Fatalf("expected run counter to be incremented")
	}
}

func TestRunEmptySeries(t *testing.T) {
	r := NewRunner(&mockSource{}, ports.DetectionPolicy{ThresholdSpeed: 5}, &mockObs{})
	res, err := r.Run(context.Background(), window())
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if len(res.Samples) != 0 || len(res.Intervals) != 0 || len(res.Records) != 0 {
		t.Fatalf("expected empty result, got %+v", res)
	}
	if res.Status() != domain.StatusEmpty {
		t.Fatalf("expected empty status, got %s", res.Status())
	}
}

func TestRunRejectsInvalidWindowBeforeFetch(t *testing.T) {
	src := &mockSource{}
	r := NewRunner(src, ports.DetectionPolicy{}, &mockObs{})

	_, err := r.Run(context.Background(), domain.QueryWindow{Start: t0, End: t0})
	if !errors.Is(err, domain.ErrInvalidWindow) {
		t.Fatalf("expected ErrInvalidWindow, got %v", err)
	}
	if src.calls != 0 {
		t.Fatalf("source must not be called for an invalid window")
	}
}

func TestRunWrapsForeignErrors(t *testing.T) {
	obs := &mockObs{}
	r := NewRunner(&mockSource{err: errors.New("dial tcp: refused")}, ports.DetectionPolicy{}, obs)

	_, err := r.Run(context.Background(), window())
	var upErr *domain.UpstreamError
	if !errors.As(err, &upErr) || upErr.Kind != domain.UpstreamNetwork {
		t.Fatalf("expected network UpstreamError, got %v", err)
	}
	if len(obs.errors) != 1 || obs.counters["lineflow_pipeline_failures_total"] != 1 {
		t.Fatalf("expected failure to be logged and counted")
	}
}

func minutes(speeds ...float64) []domain.Sample {
	out := make([]domain.Sample, len(speeds))
	for i, v := range speeds {
		out[i] = domain.Sample{Timestamp: t0.Add(time.Duration(i) * time.Minute), Speed: domain.Value(v)}
	}
	return out
}

type mockSource struct {
	series domain.Series
	err    error
	calls  int
}

func (m *mockSource) Fetch(context.Context, domain.QueryWindow) (domain.Series, error) {
	m.calls++
	return m.series, m.err
}

func (m *mockSource) Name() string { return "mock" }

type mockObs struct {
	errors   []error
	counters map[string]float64
	dropped  int
}

func (m *mockObs) LogInfo(string, ...ports.Field)                 {}
func (m *mockObs) LogError(_ string, err error, _ ...ports.Field) { m.errors = append(m.errors, err) }
func (m *mockObs) LogCritical(string, error, ...ports.Field)      {}
func (m *mockObs) IncCounter(name string, v float64) {
	if m.counters == nil {
		m.counters = map[string]float64{}
	}
	m.counters[name] += v
}
func (m *mockObs) ObserveLatency(string, float64)                         {}
func (m *mockObs) SetGauge(string, float64)                               {}
func (m *mockObs) RecordDroppedRows(_ domain.QueryWindow, dropped, _ int) { m.dropped += dropped }
