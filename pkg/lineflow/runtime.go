package lineflow

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/ghalamif/LineFlow/internal/adapters/httpapi"
	"github.com/ghalamif/LineFlow/internal/adapters/httpsource"
	"github.com/ghalamif/LineFlow/internal/adapters/observability"
	"github.com/ghalamif/LineFlow/internal/adapters/sqlsource"
	"github.com/ghalamif/LineFlow/internal/app/config"
	"github.com/ghalamif/LineFlow/internal/app/normalize"
	"github.com/ghalamif/LineFlow/internal/app/pipeline"
	"github.com/ghalamif/LineFlow/internal/app/scheduler"
	"github.com/ghalamif/LineFlow/internal/domain"
	"github.com/ghalamif/LineFlow/internal/ports"
)

// RuntimeOption customizes the dependencies used by Runtime.
type RuntimeOption func(*runtimeOverrides)

type runtimeOverrides struct {
	source        SeriesSource
	observability Observability
	logOutput     io.Writer
	subscribers   []Subscriber
	withoutAPI    bool
	withoutMetric bool
}

// WithSource injects a custom series source (simulators, other databases, recorded files).
func WithSource(src SeriesSource) RuntimeOption {
	return func(o *runtimeOverrides) {
		o.source = src
	}
}

// WithObservability plugs in a custom observability backend.
func WithObservability(obs Observability) RuntimeOption {
	return func(o *runtimeOverrides) {
		o.observability = obs
	}
}

// WithLogOutput redirects structured logs and access logs (stdout by default).
func WithLogOutput(w io.Writer) RuntimeOption {
	return func(o *runtimeOverrides) {
		o.logOutput = w
	}
}

// WithSubscriber registers a subscriber before the runtime starts.
func WithSubscriber(sub Subscriber) RuntimeOption {
	return func(o *runtimeOverrides) {
		if sub != nil {
			o.subscribers = append(o.subscribers, sub)
		}
	}
}

// WithoutAPI skips the presentation server, for embedding in another service.
func WithoutAPI() RuntimeOption {
	return func(o *runtimeOverrides) {
		o.withoutAPI = true
	}
}

// WithoutMetricsServer skips the /metrics listener.
func WithoutMetricsServer() RuntimeOption {
	return func(o *runtimeOverrides) {
		o.withoutMetric = true
	}
}

// Runtime wires source → pipeline → scheduler → API and exposes simple
// lifecycle hooks for embedding LineFlow inside any Go service.
type Runtime struct {
	cfg        *Config
	obs        ports.Observability
	source     ports.SeriesSource
	runner     *pipeline.Runner
	sched      *scheduler.Scheduler
	api        *httpapi.Server
	db         *sql.DB
	metricsSrv *http.Server
	runCancel  context.CancelFunc
}

// NewRuntime bootstraps the default adapters (HTTP or Timescale source,
// Prometheus observability, presentation API). RuntimeOption values override
// any of them.
func NewRuntime(cfg *Config, opts ...RuntimeOption) (*Runtime, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config is required")
	}

	var overrides runtimeOverrides
	for _, opt := range opts {
		if opt != nil {
			opt(&overrides)
		}
	}
	logOut := overrides.logOutput
	if logOut == nil {
		logOut = os.Stdout
	}

	obs := overrides.observability
	if obs == nil {
		logger, err := observability.NewLogger(logOut, cfg.Log.Level, cfg.Log.Format)
		if err != nil {
			return nil, err
		}
		obs = observability.NewPromObs(logger)
	}

	var (
		db  *sql.DB
		src = overrides.source
		err error
	)
	if src == nil {
		src, db, err = buildSource(cfg)
		if err != nil {
			return nil, err
		}
	}

	runCtx, runCancel := context.WithCancel(context.Background())
	runner := pipeline.NewRunner(src, cfg.Detection, obs)
	sched := scheduler.New(runner.Run, obs, scheduler.WithRunContext(runCtx))
	for _, sub := range overrides.subscribers {
		sched.Subscribe(sub)
	}

	rt := &Runtime{
		cfg:       cfg,
		obs:       obs,
		source:    src,
		runner:    runner,
		sched:     sched,
		db:        db,
		runCancel: runCancel,
	}
	if !overrides.withoutAPI {
		rt.api = httpapi.NewServer(cfg.HTTP, sched, obs,
			httpapi.WithAccessLog(logOut),
			httpapi.WithRefreshDefaults(cfg.Refresh.Interval, cfg.Refresh.Preset))
	}
	if !overrides.withoutMetric {
		rt.metricsSrv = newMetricsServer(cfg.Metrics.Addr)
	}
	return rt, nil
}

func buildSource(cfg *Config) (ports.SeriesSource, *sql.DB, error) {
	loc, err := cfg.Source.TimeLocation()
	if err != nil {
		return nil, nil, err
	}
	dec := normalize.NewDecoder(cfg.Source.Fields, loc)

	switch cfg.Source.Kind {
	case config.SourceTimescale:
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		db, err := sqlsource.Open(ctx, cfg.Timescale)
		if err != nil {
			return nil, nil, err
		}
		return sqlsource.NewTimescaleSource(db, cfg.Timescale.Table, cfg.Source.SensorID, dec), db, nil
	default:
		src, err := httpsource.New(cfg.Source.Config, dec)
		return src, nil, err
	}
}

// Start launches the servers and, when configured, auto-refresh. It returns
// immediately; call Run to block on a context instead.
func (r *Runtime) Start() error {
	if r == nil {
		return fmt.Errorf("runtime is nil")
	}
	if r.metricsSrv != nil {
		go func() {
			if err := r.metricsSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				r.obs.LogCritical("metrics_server_exited", err)
			}
		}()
	}
	if r.api != nil {
		if err := r.api.Start(); err != nil {
			return err
		}
	}

	if r.cfg.Refresh.Enabled {
		span, err := domain.PresetSpan(r.cfg.Refresh.Preset)
		if err != nil {
			return err
		}
		target := scheduler.FollowNow(span)
		if r.cfg.Refresh.RunOnStart {
			target = target.Immediately()
		}
		if err := r.sched.Start(target, r.cfg.Refresh.Interval); err != nil {
			return err
		}
	}
	r.obs.LogInfo("runtime_started",
		ports.Field{Key: "source", Value: r.source.Name()},
		ports.Field{Key: "refresh", Value: r.cfg.Refresh.Enabled})
	return nil
}

// Run starts the runtime and blocks until the provided context is cancelled.
// Upon cancellation it attempts a graceful shutdown.
func (r *Runtime) Run(ctx context.Context) error {
	if err := r.Start(); err != nil {
		return err
	}
	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	return r.Shutdown(shutdownCtx)
}

// Shutdown stops refresh, waits for the in-flight run and closes servers and the DB.
func (r *Runtime) Shutdown(ctx context.Context) error {
	var errs []error

	if err := r.sched.Shutdown(ctx); err != nil {
		// give up on the fetch; the source sees a cancelled context
		r.runCancel()
		errs = append(errs, err)
	}
	r.runCancel()

	if r.api != nil {
		if err := r.api.Shutdown(ctx); err != nil {
			errs = append(errs, err)
		}
	}

	if r.metricsSrv != nil {
		if err := r.metricsSrv.Shutdown(ctx); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errs = append(errs, err)
		}
	}

	if r.db != nil {
		if err := r.db.Close(); err != nil {
			errs = append(errs, err)
		}
	}

	return errors.Join(errs...)
}

// Query runs one window synchronously. It ends auto-refresh, and subscribers
// receive the outcome too.
func (r *Runtime) Query(ctx context.Context, w QueryWindow) (Result, error) {
	return r.sched.Query(ctx, w)
}

// QueryPreset resolves a preset against the current time and queries it.
func (r *Runtime) QueryPreset(ctx context.Context, name string) (Result, error) {
	w, err := PresetWindow(name, time.Now())
	if err != nil {
		return Result{}, err
	}
	return r.Query(ctx, w)
}

// Scheduler exposes refresh control (Start/Stop/Subscribe/Latest).
func (r *Runtime) Scheduler() *Scheduler { return r.sched }

// Policy returns the detection policy runs use.
func (r *Runtime) Policy() DetectionPolicy { return r.runner.Policy() }

func newMetricsServer(addr string) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	return &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
}
