package scheduler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/ghalamif/LineFlow/internal/domain"
	"github.com/ghalamif/LineFlow/internal/ports"
)

// DefaultInterval is the auto-refresh cadence when none is configured.
const DefaultInterval = 45 * time.Second

// RunFunc performs one pipeline run for a window.
type RunFunc func(ctx context.Context, w domain.QueryWindow) (domain.Result, error)

// Target is either a fixed window (run once) or a span that follows "now".
type Target struct {
	window    *domain.QueryWindow
	span      time.Duration
	immediate bool
}

func Fixed(w domain.QueryWindow) Target { return Target{window: &w} }

func FollowNow(span time.Duration) Target { return Target{span: span} }

// Immediately makes a follow-now target also run right away instead of
// waiting for the first tick.
func (t Target) Immediately() Target {
	t.immediate = true
	return t
}

func (t Target) Recurring() bool { return t.window == nil }

// State describes the current session for status endpoints.
type State struct {
	Recurring bool          `json:"recurring"`
	Interval  time.Duration `json:"interval_ns,omitempty"`
	Span      time.Duration `json:"span_ns,omitempty"`
}

type Option func(*Scheduler)

func WithClock(c Clock) Option {
	return func(s *Scheduler) {
		if c != nil {
			s.clock = c
		}
	}
}

// WithRunContext sets the context handed to runs. Stop never cancels it, so
// an in-flight fetch always finishes or times out on its own.
func WithRunContext(ctx context.Context) Option {
	return func(s *Scheduler) {
		if ctx != nil {
			s.runCtx = ctx
		}
	}
}

type subscription struct {
	id  uint64
	sub ports.Subscriber
}

// Scheduler drives pipeline runs and fans results out to subscribers.
// At most one run is in flight at a time. Results of a run whose session was
// stopped or replaced before it completed are discarded. A stop that lands
// during fan-out cuts delivery short for the subscribers not yet notified.
type Scheduler struct {
	run    RunFunc
	obs    ports.Observability
	clock  Clock
	runCtx context.Context

	guard chan struct{}

	mu      sync.Mutex
	session uint64
	stopCh  chan struct{}
	state   State
	latest  *ports.Event
	subs    []subscription
	nextSub uint64

	wg sync.WaitGroup
}

func New(run RunFunc, obs ports.Observability, opts ...Option) *Scheduler {
	s := &Scheduler{
		run:    run,
		obs:    obs,
		clock:  realClock{},
		runCtx: context.Background(),
		guard:  make(chan struct{}, 1),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	return s
}

// Start replaces the current session. A fixed target runs once in the
// background; a follow-now target runs on every tick of interval, the first
// one interval after Start.
func (s *Scheduler) Start(t Target, interval time.Duration) error {
	if t.Recurring() {
		if t.span < time.Second {
			return fmt.Errorf("%w: follow span %s is shorter than one second", domain.ErrInvalidWindow, t.span)
		}
	} else if err := t.window.Validate(); err != nil {
		return err
	}
	if interval <= 0 {
		interval = DefaultInterval
	}

	s.mu.Lock()
	gen, stop := s.newSessionLocked()
	if t.Recurring() {
		s.state = State{Recurring: true, Interval: interval, Span: t.span}
	}
	s.wg.Add(1)
	s.mu.Unlock()

	if !t.Recurring() {
		w := *t.window
		go func() {
			defer s.wg.Done()
			if !s.acquire(context.Background(), stop) {
				return
			}
			defer s.release()
			s.runAndPublish(gen, w)
		}()
		return nil
	}

	s.obs.LogInfo("refresh_started",
		ports.Field{Key: "interval", Value: interval.String()},
		ports.Field{Key: "span", Value: t.span.String()})
	go func() {
		defer s.wg.Done()
		s.loop(gen, stop, t.span, interval, t.immediate)
	}()
	return nil
}

// Query runs a one-shot query synchronously, replacing any recurring session.
// Subscribers receive the outcome as well.
func (s *Scheduler) Query(ctx context.Context, w domain.QueryWindow) (domain.Result, error) {
	if err := w.Validate(); err != nil {
		return domain.Result{}, err
	}

	s.mu.Lock()
	gen, stop := s.newSessionLocked()
	s.mu.Unlock()

	if !s.acquire(ctx, stop) {
		if err := ctx.Err(); err != nil {
			return domain.Result{}, err
		}
		return domain.Result{}, fmt.Errorf("query superseded before it started")
	}
	defer s.release()
	return s.runAndPublish(gen, w)
}

// Stop prevents further ticks. A run already in flight completes but its
// result is not delivered.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stopCh != nil {
		close(s.stopCh)
		s.stopCh = nil
	}
	s.session++
	if s.state.Recurring {
		s.obs.LogInfo("refresh_stopped")
	}
	s.state = State{}
}

// Shutdown stops the scheduler and waits for in-flight runs.
func (s *Scheduler) Shutdown(ctx context.Context) error {
	s.Stop()
	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Subscribe registers sub and returns a function that removes it.
func (s *Scheduler) Subscribe(sub ports.Subscriber) func() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextSub++
	id := s.nextSub
	s.subs = append(s.subs, subscription{id: id, sub: sub})
	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		for i, entry := range s.subs {
			if entry.id == id {
				s.subs = append(s.subs[:i:i], s.subs[i+1:]...)
				return
			}
		}
	}
}

// Latest returns the most recently delivered event.
func (s *Scheduler) Latest() (ports.Event, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.latest == nil {
		return ports.Event{}, false
	}
	return *s.latest, true
}

func (s *Scheduler) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

func (s *Scheduler) newSessionLocked() (uint64, chan struct{}) {
	if s.stopCh != nil {
		close(s.stopCh)
	}
	s.session++
	s.stopCh = make(chan struct{})
	s.state = State{}
	return s.session, s.stopCh
}

func (s *Scheduler) loop(gen uint64, stop <-chan struct{}, span, interval time.Duration, immediate bool) {
	ticker := s.clock.NewTicker(interval)
	defer ticker.Stop()

	for first := true; ; first = false {
		if !first || !immediate {
			select {
			case <-stop:
				return
			case <-ticker.C():
			}
		}
		select {
		case <-stop:
			return
		default:
		}

		if !s.tryAcquire() {
			s.obs.IncCounter("lineflow_ticks_skipped_total", 1)
			s.obs.LogInfo("tick_skipped", ports.Field{Key: "reason", Value: "run in flight"})
			continue
		}
		w := domain.WindowEndingAt(s.clock.Now(), span)
		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			defer s.release()
			s.runAndPublish(gen, w)
		}()
	}
}

func (s *Scheduler) runAndPublish(gen uint64, w domain.QueryWindow) (domain.Result, error) {
	res, err := s.run(s.runCtx, w)
	ev := newEvent(w, res, err)

	s.mu.Lock()
	current := s.session == gen
	var subs []subscription
	if current {
		s.latest = &ev
		subs = append(subs, s.subs...)
	}
	s.mu.Unlock()

	if !current {
		s.obs.IncCounter("lineflow_results_discarded_total", 1)
		return res, err
	}
	for _, entry := range subs {
		if !s.isCurrent(gen) {
			s.obs.IncCounter("lineflow_results_discarded_total", 1)
			break
		}
		entry.sub.Notify(ev)
	}
	return res, err
}

func (s *Scheduler) isCurrent(gen uint64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.session == gen
}

func (s *Scheduler) tryAcquire() bool {
	select {
	case s.guard <- struct{}{}:
		return true
	default:
		return false
	}
}

func (s *Scheduler) acquire(ctx context.Context, stop <-chan struct{}) bool {
	select {
	case s.guard <- struct{}{}:
		return true
	case <-stop:
		return false
	case <-ctx.Done():
		return false
	}
}

func (s *Scheduler) release() { <-s.guard }

func newEvent(w domain.QueryWindow, res domain.Result, err error) ports.Event {
	if err != nil {
		return ports.Event{Kind: ports.EventError, Window: w, Error: err.Error(), Err: err}
	}
	return ports.Event{
		Kind:   ports.EventResult,
		RunID:  res.RunID,
		Window: w,
		Status: res.Status(),
		Result: &res,
	}
}
