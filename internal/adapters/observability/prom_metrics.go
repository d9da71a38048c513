package observability

import (
	"log/slog"

	"github.com/ghalamif/LineFlow/internal/domain"
	"github.com/ghalamif/LineFlow/internal/ports"
	"github.com/prometheus/client_golang/prometheus"
)

type PromObs struct {
	log      *slog.Logger
	counters map[string]prometheus.Counter
	gauges   map[string]prometheus.Gauge
	histos   map[string]prometheus.Observer
}

// NewPromObs registers the lineflow metrics on the default registerer. A nil
// logger discards log output.
func NewPromObs(logger *slog.Logger) *PromObs {
	if logger == nil {
		logger = slog.New(discardHandler{})
	}

	runs := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "lineflow_pipeline_runs_total",
		Help: "Pipeline runs that produced a result.",
	})
	failures := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "lineflow_pipeline_failures_total",
		Help: "Pipeline runs that failed with an upstream error.",
	})
	rowsDropped := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "lineflow_rows_dropped_total",
		Help: "Upstream rows dropped because their timestamp was missing or unparseable.",
	})
	ticksSkipped := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "lineflow_ticks_skipped_total",
		Help: "Refresh ticks skipped because a run was still in flight.",
	})
	discarded := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "lineflow_results_discarded_total",
		Help: "Results dropped because their session was stopped or replaced.",
	})
	wsDropped := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "lineflow_ws_events_dropped_total",
		Help: "Events not delivered to a slow websocket client.",
	})
	lastSamples := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "lineflow_last_run_samples",
		Help: "Samples in the most recent result.",
	})
	lastRecords := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "lineflow_last_run_downtime_records",
		Help: "Downtime records in the most recent result.",
	})
	lastAvailability := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "lineflow_last_run_availability",
		Help: "Availability ratio of the most recent result.",
	})
	wsClients := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "lineflow_ws_clients",
		Help: "Connected websocket clients.",
	})
	fetchLatency := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "lineflow_fetch_latency_seconds",
		Help:    "Time spent fetching one window from the source.",
		Buckets: prometheus.ExponentialBuckets(0.01, 2, 12),
	})

	prometheus.MustRegister(runs, failures, rowsDropped, ticksSkipped, discarded, wsDropped,
		lastSamples, lastRecords, lastAvailability, wsClients, fetchLatency)

	return &PromObs{
		log: logger,
		counters: map[string]prometheus.Counter{
			"lineflow_pipeline_runs_total":     runs,
			"lineflow_pipeline_failures_total": failures,
			"lineflow_rows_dropped_total":      rowsDropped,
			"lineflow_ticks_skipped_total":     ticksSkipped,
			"lineflow_results_discarded_total": discarded,
			"lineflow_ws_events_dropped_total": wsDropped,
		},
		gauges: map[string]prometheus.Gauge{
			"lineflow_last_run_samples":          lastSamples,
			"lineflow_last_run_downtime_records": lastRecords,
			"lineflow_last_run_availability":     lastAvailability,
			"lineflow_ws_clients":                wsClients,
		},
		histos: map[string]prometheus.Observer{
			"lineflow_fetch_latency_seconds": fetchLatency,
		},
	}
}

func (p *PromObs) LogInfo(msg string, fields ...ports.Field) {
	p.log.Info(msg, attrs(fields)...)
}

func (p *PromObs) LogError(msg string, err error, fields ...ports.Field) {
	p.log.Error(msg, append(attrs(fields), slog.Any("err", err))...)
}

func (p *PromObs) LogCritical(msg string, err error, fields ...ports.Field) {
	p.log.Error(msg, append(attrs(fields), slog.Any("err", err), slog.Bool("critical", true))...)
}

func (p *PromObs) IncCounter(name string, v float64) {
	if c, ok := p.counters[name]; ok {
		c.Add(v)
	}
}

func (p *PromObs) ObserveLatency(name string, seconds float64) {
	if h, ok := p.histos[name]; ok {
		h.Observe(seconds)
	}
}

func (p *PromObs) SetGauge(name string, v float64) {
	if g, ok := p.gauges[name]; ok {
		g.Set(v)
	}
}

func (p *PromObs) RecordDroppedRows(w domain.QueryWindow, dropped, total int) {
	p.IncCounter("lineflow_rows_dropped_total", float64(dropped))
	start, end := w.EpochSeconds()
	p.log.Warn("rows_dropped",
		slog.Int("dropped", dropped),
		slog.Int("total", total),
		slog.Int64("start", start),
		slog.Int64("end", end))
}

func attrs(fields []ports.Field) []any {
	out := make([]any, 0, len(fields))
	for _, f := range fields {
		out = append(out, slog.Any(f.Key, f.Value))
	}
	return out
}

var _ ports.Observability = (*PromObs)(nil)
