package lineflow

import (
	"errors"
	"testing"
	"time"
)

var base = time.Date(2024, 3, 1, 8, 0, 0, 0, time.UTC)

// lineSamples returns one sample per minute starting at start.
func lineSamples(start time.Time, speeds ...float64) []Sample {
	out := make([]Sample, len(speeds))
	for i, v := range speeds {
		out[i] = Sample{
			Timestamp: start.Add(time.Duration(i) * time.Minute),
			Speed:     Measurement{Value: v, Valid: true},
		}
	}
	return out
}

func TestAnalyzeFindsStoppage(t *testing.T) {
	policy := DefaultDetectionPolicy()
	policy.MinRunLength = 1
	w := QueryWindow{Start: base, End: base.Add(time.Hour)}

	res, err := Analyze(lineSamples(base, 10, 10, 0, 0, 0, 10), policy, w)
	if err != nil {
		t.Fatalf("analyze: %v", err)
	}
	if len(res.Records) != 1 {
		t.Fatalf("expected one record, got %+v", res.Records)
	}
	rec := res.Records[0]
	if !rec.Start.Equal(base.Add(2*time.Minute)) || rec.Duration != 2*time.Minute || rec.SampleCount != 3 {
		t.Fatalf("unexpected record %+v", rec)
	}
	if res.Summary.TotalDowntime != 2*time.Minute {
		t.Fatalf("unexpected summary %+v", res.Summary)
	}
}

func TestAnalyzeIgnoresSamplesOutsideWindow(t *testing.T) {
	w := QueryWindow{Start: base.Add(time.Hour), End: base.Add(2 * time.Hour)}
	res, err := Analyze(lineSamples(base, 0, 0, 0, 0), DefaultDetectionPolicy(), w)
	if err != nil {
		t.Fatalf("analyze: %v", err)
	}
	if len(res.Samples) != 0 || res.Status() != "empty" {
		t.Fatalf("expected empty result, got %d samples", len(res.Samples))
	}
}

func TestAnalyzeRejectsInvalidWindow(t *testing.T) {
	_, err := Analyze(nil, DefaultDetectionPolicy(), QueryWindow{Start: base, End: base})
	if !errors.Is(err, ErrInvalidWindow) {
		t.Fatalf("expected ErrInvalidWindow, got %v", err)
	}
}

func TestAnalyzeRowsCountsDroppedRows(t *testing.T) {
	rows := []map[string]any{
		{"datetime": "2024-03-01 08:00:00", "line_speed": 12.0},
		{"datetime": "garbage", "line_speed": 12.0},
		{"datetime": "2024-03-01 08:01:00", "line_speed": "11.5"},
	}
	w := QueryWindow{Start: base, End: base.Add(time.Hour)}
	res, err := AnalyzeRows(rows, FieldMap{}, nil, DefaultDetectionPolicy(), w)
	if err != nil {
		t.Fatalf("analyze rows: %v", err)
	}
	if res.DroppedRows != 1 || len(res.Samples) != 2 || res.Status() != "partial" {
		t.Fatalf("unexpected result: dropped=%d samples=%d status=%s", res.DroppedRows, len(res.Samples), res.Status())
	}
}

func TestPresetWindow(t *testing.T) {
	now := base.Add(30 * time.Second).Add(400 * time.Millisecond)
	w, err := PresetWindow("6h", now)
	if err != nil {
		t.Fatalf("preset: %v", err)
	}
	if w.Span() != 6*time.Hour || !w.End.Equal(base.Add(30*time.Second)) {
		t.Fatalf("unexpected window %+v", w)
	}
	if _, err := PresetWindow("2w", now); !errors.Is(err, ErrUnknownPreset) {
		t.Fatalf("expected ErrUnknownPreset, got %v", err)
	}
}

func TestDefaultDetectionPolicyMatchesConfig(t *testing.T) {
	cfg, err := ParseConfig([]byte("source: {base_url: 'http://x'}"))
	if err != nil {
		t.Fatalf("parse config: %v", err)
	}
	if cfg.Detection != DefaultDetectionPolicy() {
		t.Fatalf("config default %+v differs from %+v", cfg.Detection, DefaultDetectionPolicy())
	}
}
