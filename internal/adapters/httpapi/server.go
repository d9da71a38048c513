package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"

	"github.com/ghalamif/LineFlow/internal/app/scheduler"
	"github.com/ghalamif/LineFlow/internal/domain"
	"github.com/ghalamif/LineFlow/internal/ports"
)

// Controller is the part of the scheduler the API drives.
type Controller interface {
	Query(ctx context.Context, w domain.QueryWindow) (domain.Result, error)
	Start(t scheduler.Target, interval time.Duration) error
	Stop()
	Latest() (ports.Event, bool)
	State() scheduler.State
	Subscribe(sub ports.Subscriber) func()
}

type Config struct {
	Addr           string   `yaml:"addr"`
	AllowedOrigins []string `yaml:"allowed_origins"`
	ClientQueueLen int      `yaml:"client_queue_len"`
}

func (c *Config) ApplyDefaults() {
	if c.Addr == "" {
		c.Addr = ":8080"
	}
	if len(c.AllowedOrigins) == 0 {
		c.AllowedOrigins = []string{"*"}
	}
	if c.ClientQueueLen <= 0 {
		c.ClientQueueLen = 16
	}
}

type Option func(*Server)

// WithAccessLog sets the writer for access logs (stdout by default).
func WithAccessLog(w io.Writer) Option {
	return func(s *Server) {
		if w != nil {
			s.accessLog = w
		}
	}
}

// WithRefreshDefaults sets the interval and preset used when a refresh
// request leaves them out.
func WithRefreshDefaults(interval time.Duration, preset string) Option {
	return func(s *Server) {
		if interval > 0 {
			s.defaultInterval = interval
		}
		if preset != "" {
			s.defaultPreset = preset
		}
	}
}

func withClock(now func() time.Time) Option {
	return func(s *Server) { s.now = now }
}

// Server is the presentation surface: JSON endpoints plus an event stream.
type Server struct {
	cfg       Config
	ctl       Controller
	obs       ports.Observability
	hub       *Hub
	upgrader  websocket.Upgrader
	accessLog io.Writer
	now       func() time.Time

	defaultInterval time.Duration
	defaultPreset   string

	unsubscribe func()
	srv         *http.Server
}

func NewServer(cfg Config, ctl Controller, obs ports.Observability, opts ...Option) *Server {
	cfg.ApplyDefaults()
	s := &Server{
		cfg:             cfg,
		ctl:             ctl,
		obs:             obs,
		accessLog:       os.Stdout,
		now:             time.Now,
		defaultInterval: scheduler.DefaultInterval,
		defaultPreset:   "1h",
	}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	s.hub = NewHub(ports.QueuePolicy{MaxQueueLen: cfg.ClientQueueLen}, obs)
	s.upgrader = websocket.Upgrader{CheckOrigin: s.checkOrigin}
	s.unsubscribe = ctl.Subscribe(s.hub)
	return s
}

func (s *Server) Hub() *Hub { return s.hub }

// Handler returns the routed API wrapped in CORS and access logging.
func (s *Server) Handler() http.Handler {
	r := mux.NewRouter()
	r.HandleFunc("/healthz", s.handleHealth).Methods(http.MethodGet)
	api := r.PathPrefix("/api").Subrouter()
	api.HandleFunc("/presets", s.handlePresets).Methods(http.MethodGet)
	api.HandleFunc("/query", s.handleQuery).Methods(http.MethodPost, http.MethodOptions)
	api.HandleFunc("/refresh", s.handleRefresh).Methods(http.MethodPost, http.MethodOptions)
	api.HandleFunc("/refresh", s.handleRefreshState).Methods(http.MethodGet)
	api.HandleFunc("/latest", s.handleLatest).Methods(http.MethodGet)
	r.HandleFunc("/ws", s.handleWS).Methods(http.MethodGet)

	cors := handlers.CORS(
		handlers.AllowedOrigins(s.cfg.AllowedOrigins),
		handlers.AllowedMethods([]string{http.MethodGet, http.MethodPost, http.MethodOptions}),
		handlers.AllowedHeaders([]string{"Content-Type"}),
	)
	return handlers.LoggingHandler(s.accessLog, cors(r))
}

// Start listens in the background.
func (s *Server) Start() error {
	if s.srv != nil {
		return fmt.Errorf("api server already started")
	}
	s.srv = &http.Server{
		Addr:              s.cfg.Addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		s.obs.LogInfo("api_listening", ports.Field{Key: "addr", Value: s.cfg.Addr})
		if err := s.srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.obs.LogCritical("api_server_exited", err)
		}
	}()
	return nil
}

// Shutdown closes websocket clients and the listener.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.unsubscribe != nil {
		s.unsubscribe()
	}
	s.hub.Close()
	if s.srv == nil {
		return nil
	}
	if err := s.srv.Shutdown(ctx); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

type presetView struct {
	Name    string `json:"name"`
	Seconds int64  `json:"seconds"`
}

func (s *Server) handlePresets(w http.ResponseWriter, _ *http.Request) {
	names := domain.PresetNames()
	out := make([]presetView, 0, len(names))
	for _, name := range names {
		out = append(out, presetView{Name: name, Seconds: int64(domain.Presets[name] / time.Second)})
	}
	writeJSON(w, http.StatusOK, out)
}

type queryRequest struct {
	Preset string `json:"preset"`
	Start  *int64 `json:"start"`
	End    *int64 `json:"end"`
}

func (s *Server) handleQuery(w http.ResponseWriter, r *http.Request) {
	if r.Method == http.MethodOptions {
		w.WriteHeader(http.StatusOK)
		return
	}
	var req queryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	win, err := s.resolveWindow(req)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	res, err := s.ctl.Query(r.Context(), win)
	if err != nil {
		s.writeRunError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, queryResponse{Status: res.Status(), Result: res})
}

type queryResponse struct {
	Status string        `json:"status"`
	Result domain.Result `json:"result"`
}

func (s *Server) resolveWindow(req queryRequest) (domain.QueryWindow, error) {
	if req.Preset != "" {
		span, err := domain.PresetSpan(req.Preset)
		if err != nil {
			return domain.QueryWindow{}, err
		}
		return domain.WindowEndingAt(s.now(), span), nil
	}
	if req.Start == nil || req.End == nil {
		return domain.QueryWindow{}, fmt.Errorf("%w: preset or start and end are required", domain.ErrInvalidWindow)
	}
	win := domain.WindowFromEpoch(*req.Start, *req.End)
	return win, win.Validate()
}

type refreshRequest struct {
	Enabled  bool   `json:"enabled"`
	Interval string `json:"interval"`
	Preset   string `json:"preset"`
}

type refreshView struct {
	Enabled  bool   `json:"enabled"`
	Interval string `json:"interval,omitempty"`
	Span     string `json:"span,omitempty"`
}

func (s *Server) handleRefresh(w http.ResponseWriter, r *http.Request) {
	if r.Method == http.MethodOptions {
		w.WriteHeader(http.StatusOK)
		return
	}
	var req refreshRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if !req.Enabled {
		s.ctl.Stop()
		s.handleRefreshState(w, r)
		return
	}

	interval := s.defaultInterval
	if req.Interval != "" {
		d, err := time.ParseDuration(req.Interval)
		if err != nil || d < time.Second {
			writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid interval %q", req.Interval))
			return
		}
		interval = d
	}
	preset := req.Preset
	if preset == "" {
		preset = s.defaultPreset
	}
	span, err := domain.PresetSpan(preset)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := s.ctl.Start(scheduler.FollowNow(span), interval); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	s.handleRefreshState(w, r)
}

func (s *Server) handleRefreshState(w http.ResponseWriter, _ *http.Request) {
	st := s.ctl.State()
	view := refreshView{Enabled: st.Recurring}
	if st.Recurring {
		view.Interval = st.Interval.String()
		view.Span = st.Span.String()
	}
	writeJSON(w, http.StatusOK, view)
}

func (s *Server) handleLatest(w http.ResponseWriter, _ *http.Request) {
	ev, ok := s.ctl.Latest()
	if !ok {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	writeJSON(w, http.StatusOK, ev)
}

func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.obs.LogError("ws_upgrade_failed", err)
		return
	}
	s.hub.Register(conn)
}

func (s *Server) checkOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" {
		return true
	}
	for _, allowed := range s.cfg.AllowedOrigins {
		if allowed == "*" || allowed == origin {
			return true
		}
	}
	return false
}

func (s *Server) writeRunError(w http.ResponseWriter, err error) {
	var upErr *domain.UpstreamError
	switch {
	case errors.Is(err, domain.ErrInvalidWindow), errors.Is(err, domain.ErrUnknownPreset):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.As(err, &upErr):
		writeJSON(w, http.StatusBadGateway, map[string]any{
			"error": upErr.Error(),
			"kind":  upErr.Kind,
		})
	default:
		s.obs.LogError("query_failed", err)
		writeError(w, http.StatusInternalServerError, err.Error())
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
