package pipeline

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/ghalamif/LineFlow/internal/app/downtime"
	"github.com/ghalamif/LineFlow/internal/domain"
	"github.com/ghalamif/LineFlow/internal/ports"
)

// Runner executes one fetch -> classify -> aggregate pass.
type Runner struct {
	source ports.SeriesSource
	policy ports.DetectionPolicy
	obs    ports.Observability
	now    func() time.Time
	newID  func() string
}

func NewRunner(src ports.SeriesSource, pol ports.DetectionPolicy, obs ports.Observability) *Runner {
	return &Runner{
		source: src,
		policy: pol,
		obs:    obs,
		now:    time.Now,
		newID:  uuid.NewString,
	}
}

func (r *Runner) Policy() ports.DetectionPolicy { return r.policy }

// Run validates the window, fetches and derives downtime. A failed fetch
// short-circuits: nothing is classified and the error is always an
// *domain.UpstreamError.
func (r *Runner) Run(ctx context.Context, w domain.QueryWindow) (domain.Result, error) {
	if err := w.Validate(); err != nil {
		return domain.Result{}, err
	}

	runID := r.newID()
	started := r.now()
	series, err := r.source.Fetch(ctx, w)
	r.obs.ObserveLatency("lineflow_fetch_latency_seconds", time.Since(started).Seconds())
	if err != nil {
		var upErr *domain.UpstreamError
		if !errors.As(err, &upErr) {
			err = &domain.UpstreamError{Kind: domain.UpstreamNetwork, Err: err}
		}
		r.obs.IncCounter("lineflow_pipeline_failures_total", 1)
		r.obs.LogError("fetch_failed", err,
			ports.Field{Key: "run_id", Value: runID},
			ports.Field{Key: "source", Value: r.source.Name()})
		return domain.Result{}, err
	}
	if series.Dropped > 0 {
		r.obs.RecordDroppedRows(w, series.Dropped, series.Total)
	}

	intervals := downtime.Classify(series.Samples, r.policy.ThresholdSpeed, r.policy.MinRunLength)
	records := downtime.Aggregate(intervals, r.policy.MaxGap, r.policy.MinStoppage)

	res := domain.Result{
		RunID:       runID,
		Window:      w,
		Samples:     series.Samples,
		Intervals:   intervals,
		Records:     records,
		Summary:     downtime.Summarize(records, w),
		DroppedRows: series.Dropped,
		StartedAt:   started,
		FinishedAt:  r.now(),
	}

	r.obs.IncCounter("lineflow_pipeline_runs_total", 1)
	r.obs.SetGauge("lineflow_last_run_samples", float64(len(res.Samples)))
	r.obs.SetGauge("lineflow_last_run_downtime_records", float64(len(res.Records)))
	r.obs.SetGauge("lineflow_last_run_availability", res.Summary.Availability)
	r.obs.LogInfo("pipeline_run_complete",
		ports.Field{Key: "run_id", Value: runID},
		ports.Field{Key: "samples", Value: len(res.Samples)},
		ports.Field{Key: "dropped", Value: res.DroppedRows},
		ports.Field{Key: "records", Value: len(res.Records)})
	return res, nil
}
