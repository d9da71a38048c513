package lineflow

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/ghalamif/LineFlow/internal/app/normalize"
	"github.com/ghalamif/LineFlow/internal/app/pipeline"
	"github.com/ghalamif/LineFlow/internal/domain"
	"github.com/ghalamif/LineFlow/internal/ports"
)

// DefaultDetectionPolicy returns the thresholds a config file gets when its
// detection section is empty.
func DefaultDetectionPolicy() DetectionPolicy {
	return ports.DefaultDetectionPolicy()
}

// Analyze replays samples through the same classify/aggregate pipeline the
// runtime uses, without a source or scheduler. Samples outside w are ignored.
func Analyze(samples []Sample, policy DetectionPolicy, w QueryWindow) (Result, error) {
	runner := pipeline.NewRunner(NewStaticSource("analyze", samples), policy, nopObservability{})
	return runner.Run(context.Background(), w)
}

// AnalyzeRows decodes raw upstream rows with fields first, so recorded API
// responses can be replayed. Rows without a usable timestamp are counted in
// Result.DroppedRows.
func AnalyzeRows(rows []map[string]any, fields FieldMap, loc *time.Location, policy DetectionPolicy, w QueryWindow) (Result, error) {
	series, err := normalize.Rows(normalize.NewDecoder(fields, loc), rows)
	if err != nil {
		return Result{}, err
	}
	src := &StaticSource{name: "rows", samples: series.Samples, dropped: series.Dropped}
	runner := pipeline.NewRunner(src, policy, nopObservability{})
	return runner.Run(context.Background(), w)
}

// StaticSource serves a fixed set of samples; useful for simulators, demos
// and tests. Replace swaps the data between runs.
type StaticSource struct {
	name    string
	mu      sync.RWMutex
	samples []Sample
	dropped int
}

func NewStaticSource(name string, samples []Sample) *StaticSource {
	if name == "" {
		name = "static"
	}
	s := &StaticSource{name: name}
	s.Replace(samples)
	return s
}

func (s *StaticSource) Name() string { return s.name }

func (s *StaticSource) Replace(samples []Sample) {
	cp := append([]Sample(nil), samples...)
	sort.SliceStable(cp, func(i, j int) bool { return cp[i].Timestamp.Before(cp[j].Timestamp) })
	s.mu.Lock()
	s.samples = cp
	s.dropped = 0
	s.mu.Unlock()
}

func (s *StaticSource) Fetch(_ context.Context, w QueryWindow) (Series, error) {
	if err := w.Validate(); err != nil {
		return Series{}, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := Series{Dropped: s.dropped}
	for _, sample := range s.samples {
		if sample.Timestamp.Before(w.Start) || sample.Timestamp.After(w.End) {
			continue
		}
		out.Samples = append(out.Samples, sample)
	}
	out.Total = len(out.Samples) + out.Dropped
	return out, nil
}

type nopObservability struct{}

func (nopObservability) LogInfo(string, ...ports.Field)                 {}
func (nopObservability) LogError(string, error, ...ports.Field)         {}
func (nopObservability) LogCritical(string, error, ...ports.Field)      {}
func (nopObservability) IncCounter(string, float64)                     {}
func (nopObservability) ObserveLatency(string, float64)                 {}
func (nopObservability) SetGauge(string, float64)                       {}
func (nopObservability) RecordDroppedRows(domain.QueryWindow, int, int) {}

var _ ports.SeriesSource = (*StaticSource)(nil)
