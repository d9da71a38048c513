package main

import (
	"bytes"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/ghalamif/LineFlow"
)

var now = time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

func TestResolveWindow(t *testing.T) {
	w, err := resolveWindow("24h", "", "", now)
	if err != nil || w.Span() != 24*time.Hour {
		t.Fatalf("preset window: %+v %v", w, err)
	}

	w, err = resolveWindow("", "1709280000", "2024-03-01T09:00:00Z", now)
	if err != nil {
		t.Fatalf("explicit window: %v", err)
	}
	if s, e := w.EpochSeconds(); s != 1709280000 || e != 1709283600 {
		t.Fatalf("unexpected bounds %d %d", s, e)
	}

	if _, err := resolveWindow("", "1709283600", "1709280000", now); !errors.Is(err, lineflow.ErrInvalidWindow) {
		t.Fatalf("expected ErrInvalidWindow, got %v", err)
	}
	if _, err := resolveWindow("", "", "", now); err == nil {
		t.Fatalf("expected error without bounds")
	}
}

func TestPrintReport(t *testing.T) {
	start := now.Add(-time.Hour)
	res := lineflow.Result{
		Window: lineflow.QueryWindow{Start: start, End: now},
		Records: []lineflow.DowntimeRecord{
			{Start: start, End: start.Add(5 * time.Minute), Duration: 5 * time.Minute, SampleCount: 6, MergedStops: 2},
		},
		Summary: lineflow.Summary{Records: 1, TotalDowntime: 5 * time.Minute, Span: time.Hour, Availability: 11.0 / 12},
	}
	var buf bytes.Buffer
	if err := printReport(&buf, res); err != nil {
		t.Fatalf("report: %v", err)
	}
	out := buf.String()
	if !strings.Contains(out, "availability 91.7%") || !strings.Contains(out, "5m0s") {
		t.Fatalf("unexpected report:\n%s", out)
	}
}

func TestScanMetrics(t *testing.T) {
	text := `# HELP lineflow_pipeline_runs_total Pipeline runs.
# TYPE lineflow_pipeline_runs_total counter
lineflow_pipeline_runs_total 7
lineflow_last_run_availability 0.875
lineflow_pipeline_runs_total_other 3
`
	values, err := scanMetrics(strings.NewReader(text), statsTargets)
	if err != nil {
		t.Fatalf("scan: %v", err)
	}
	if values["lineflow_pipeline_runs_total"] != 7 || values["lineflow_last_run_availability"] != 0.875 {
		t.Fatalf("unexpected values %v", values)
	}
}
