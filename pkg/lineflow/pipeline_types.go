package lineflow

import (
	"time"

	"github.com/ghalamif/LineFlow/internal/app/scheduler"
	"github.com/ghalamif/LineFlow/internal/domain"
	"github.com/ghalamif/LineFlow/internal/ports"
)

// Sample is one telemetry reading. Missing fields are Measurements with Valid false.
type Sample = domain.Sample

type Measurement = domain.Measurement

// QueryWindow is the [Start, End] range sent to the source.
type QueryWindow = domain.QueryWindow

// Series is what a SeriesSource returns for one window.
type Series = domain.Series

// Interval is a maximal run of samples sharing a RUNNING or STOPPED state.
type Interval = domain.Interval

type State = domain.State

const (
	Running = domain.Running
	Stopped = domain.Stopped
)

// DowntimeRecord is one reportable stoppage after gap merging and filtering.
type DowntimeRecord = domain.DowntimeRecord

type Summary = domain.Summary

// Result is the output of one fetch → classify → aggregate run.
type Result = domain.Result

// UpstreamError reports a failed fetch; match it with errors.As.
type UpstreamError = domain.UpstreamError

type UpstreamKind = domain.UpstreamKind

// Event is what subscribers receive after every run.
type Event = ports.Event

type EventKind = ports.EventKind

const (
	EventResult = ports.EventResult
	EventError  = ports.EventError
)

// SeriesSource fetches samples for a window (HTTP API, database, simulators, etc.).
type SeriesSource = ports.SeriesSource

// Subscriber is notified after each delivered run.
type Subscriber = ports.Subscriber

// SubscriberFunc adapts a plain function into a Subscriber.
type SubscriberFunc = ports.SubscriberFunc

// Observability emits metrics/logs about runs, skipped ticks and dropped rows.
type Observability = ports.Observability

// Field is a structured log field used by Observability implementations.
type Field = ports.Field

// Scheduler drives single-flight runs and auto-refresh.
type Scheduler = scheduler.Scheduler

// Target is a fixed window or a span that follows the current time.
type Target = scheduler.Target

var (
	ErrInvalidWindow = domain.ErrInvalidWindow
	ErrUnknownPreset = domain.ErrUnknownPreset
)

// FixedWindow targets one window, run once.
func FixedWindow(w QueryWindow) Target { return scheduler.Fixed(w) }

// FollowNow targets [now-span, now], re-derived on every tick.
func FollowNow(span time.Duration) Target { return scheduler.FollowNow(span) }

// WindowEndingAt returns [now-span, now] truncated to whole seconds.
func WindowEndingAt(now time.Time, span time.Duration) QueryWindow {
	return domain.WindowEndingAt(now, span)
}

// PresetWindow resolves a preset name such as "1h" or "7d" against now.
func PresetWindow(name string, now time.Time) (QueryWindow, error) {
	span, err := domain.PresetSpan(name)
	if err != nil {
		return QueryWindow{}, err
	}
	return domain.WindowEndingAt(now, span), nil
}

// PresetNames lists presets from the shortest span to the longest.
func PresetNames() []string { return domain.PresetNames() }
