package downtime

import (
	"math/rand"
	"testing"
	"time"

	"github.com/ghalamif/LineFlow/internal/domain"
)

var base = time.Date(2024, 3, 1, 8, 0, 0, 0, time.UTC)

// series builds one sample per minute; a negative speed means "missing".
func series(speeds ...float64) []domain.Sample {
	out := make([]domain.Sample, len(speeds))
	for i, v := range speeds {
		out[i].Timestamp = base.Add(time.Duration(i) * time.Minute)
		if v >= 0 {
			out[i].Speed = domain.Value(v)
		}
	}
	return out
}

func states(ivs []domain.Interval) []domain.State {
	out := make([]domain.State, len(ivs))
	for i, iv := range ivs {
		out[i] = iv.State
	}
	return out
}

func TestClassifyConcreteScenario(t *testing.T) {
	ivs := Classify(series(50, 0, 0, 52), 5, 1)

	want := []domain.State{domain.Running, domain.Stopped, domain.Running}
	got := states(ivs)
	if len(got) != len(want) {
		t.Fatalf("expected %d intervals, got %v", len(want), got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("interval %d: expected %s, got %s", i, want[i], got[i])
		}
	}
	if !ivs[1].Start.Equal(base.Add(time.Minute)) || !ivs[1].End.Equal(base.Add(2*time.Minute)) {
		t.Fatalf("unexpected stopped interval bounds %s..%s", ivs[1].Start, ivs[1].End)
	}
	if ivs[1].SampleCount != 2 {
		t.Fatalf("expected 2 stopped samples, got %d", ivs[1].SampleCount)
	}
}

func TestClassifyEmptyAndSingle(t *testing.T) {
	if ivs := Classify(nil, 5, 3); len(ivs) != 0 {
		t.Fatalf("expected no intervals for empty input, got %d", len(ivs))
	}
	ivs := Classify(series(0), 5, 3)
	if len(ivs) != 1 || ivs[0].State != domain.Stopped || ivs[0].SampleCount != 1 {
		t.Fatalf("expected single stopped interval, got %+v", ivs)
	}
}

func TestClassifyMissingSpeedInherits(t *testing.T) {
	ivs := Classify(series(-1, 0, -1, -1, 40, -1), 5, 1)
	got := states(ivs)
	want := []domain.State{domain.Running, domain.Stopped, domain.Running}
	if len(got) != 3 || got[0] != want[0] || got[1] != want[1] || got[2] != want[2] {
		t.Fatalf("unexpected states %v", got)
	}
	if ivs[1].SampleCount != 3 || ivs[1].SpeedCount != 1 {
		t.Fatalf("expected missing samples to join the stopped run, got %+v", ivs[1])
	}
}

func TestClassifyDebounceIsolatedLowSample(t *testing.T) {
	ivs := Classify(series(40, 40, 40, 0, 40, 40, 40), 5, 3)
	if len(ivs) != 1 || ivs[0].State != domain.Running || ivs[0].SampleCount != 7 {
		t.Fatalf("expected the noisy sample to be absorbed, got %+v", ivs)
	}
	if recs := Aggregate(ivs, 0, 0); len(recs) != 0 {
		t.Fatalf("expected zero downtime records, got %d", len(recs))
	}
}

func TestClassifyDebounceRepeatsUntilStable(t *testing.T) {
	// R R R | S | R | S S S S: the lone S folds into the first run, which then
	// swallows the lone R as well.
	ivs := Classify(series(40, 40, 40, 0, 40, 0, 0, 0, 0), 5, 2)
	got := states(ivs)
	if len(got) != 2 || got[0] != domain.Running || got[1] != domain.Stopped {
		t.Fatalf("unexpected states %v", got)
	}
	if ivs[0].LastIndex != 4 || ivs[1].FirstIndex != 5 {
		t.Fatalf("unexpected split %+v", ivs)
	}
}

func TestClassifyFirstIntervalIsKept(t *testing.T) {
	ivs := Classify(series(0, 40, 40, 40), 5, 3)
	if len(ivs) != 2 || ivs[0].State != domain.Stopped {
		t.Fatalf("expected leading short interval to survive, got %+v", ivs)
	}
}

func TestClassifyIntervalsCoverInput(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	for round := 0; round < 200; round++ {
		n := rng.Intn(60)
		speeds := make([]float64, n)
		for i := range speeds {
			switch rng.Intn(4) {
			case 0:
				speeds[i] = -1
			case 1:
				speeds[i] = 0
			default:
				speeds[i] = float64(rng.Intn(80))
			}
		}
		samples := series(speeds...)
		ivs := Classify(samples, 5, 1+rng.Intn(4))
		assertCoverage(t, samples, ivs)
	}
}

func assertCoverage(t *testing.T, samples []domain.Sample, ivs []domain.Interval) {
	t.Helper()
	if len(samples) == 0 {
		if len(ivs) != 0 {
			t.Fatalf("expected no intervals for empty input")
		}
		return
	}
	if ivs[0].FirstIndex != 0 || !ivs[0].Start.Equal(samples[0].Timestamp) {
		t.Fatalf("first interval does not start at the first sample: %+v", ivs[0])
	}
	last := ivs[len(ivs)-1]
	if last.LastIndex != len(samples)-1 || !last.End.Equal(samples[len(samples)-1].Timestamp) {
		t.Fatalf("last interval does not end at the last sample: %+v", last)
	}
	total := 0
	for i, iv := range ivs {
		total += iv.SampleCount
		if iv.SampleCount != iv.LastIndex-iv.FirstIndex+1 {
			t.Fatalf("interval %d count mismatch: %+v", i, iv)
		}
		if i > 0 {
			if iv.FirstIndex != ivs[i-1].LastIndex+1 {
				t.Fatalf("gap or overlap between intervals %d and %d", i-1, i)
			}
			if iv.State == ivs[i-1].State {
				t.Fatalf("adjacent intervals %d and %d share state %s", i-1, i, iv.State)
			}
		}
	}
	if total != len(samples) {
		t.Fatalf("intervals cover %d samples, want %d", total, len(samples))
	}
}
