package lineflow

import (
	"io"
	"time"

	base "github.com/ghalamif/LineFlow/pkg/lineflow"
)

// Re-exported errors for convenience.
var (
	ErrInvalidWindow = base.ErrInvalidWindow
	ErrUnknownPreset = base.ErrUnknownPreset
)

// Type aliases so consumers can import github.com/ghalamif/LineFlow directly.
type (
	Config           = base.Config
	DetectionPolicy  = base.DetectionPolicy
	SourceConfig     = base.SourceConfig
	HTTPSourceConfig = base.HTTPSourceConfig
	FieldMap         = base.FieldMap
	RefreshConfig    = base.RefreshConfig
	HTTPConfig       = base.HTTPConfig
	MetricsConfig    = base.MetricsConfig
	TimescaleConfig  = base.TimescaleConfig
	LogConfig        = base.LogConfig
	Flow             = base.Flow
	FlowOption       = base.FlowOption
	StreamInOption   = base.StreamInOption
	StreamOutOption  = base.StreamOutOption
	Runtime          = base.Runtime
	RuntimeOption    = base.RuntimeOption
	Scheduler        = base.Scheduler
	Target           = base.Target
	Sample           = base.Sample
	Measurement      = base.Measurement
	Series           = base.Series
	QueryWindow      = base.QueryWindow
	Interval         = base.Interval
	DowntimeRecord   = base.DowntimeRecord
	Summary          = base.Summary
	Result           = base.Result
	UpstreamError    = base.UpstreamError
	Event            = base.Event
	SeriesSource     = base.SeriesSource
	Subscriber       = base.Subscriber
	SubscriberFunc   = base.SubscriberFunc
	Observability    = base.Observability
	Field            = base.Field
	StaticSource     = base.StaticSource
)

const (
	EventResult = base.EventResult
	EventError  = base.EventError
)

// Config helpers.
func LoadConfig(path string) (*Config, error) {
	return base.LoadConfig(path)
}

func ParseConfig(raw []byte) (*Config, error) {
	return base.ParseConfig(raw)
}

// Flow builder helpers.
func Conf(path string, opts ...FlowOption) (*Flow, error) {
	return base.Conf(path, opts...)
}

func ConfFromConfig(cfg *Config, opts ...FlowOption) (*Flow, error) {
	return base.ConfFromConfig(cfg, opts...)
}

func WithFlowOptions(opts ...RuntimeOption) FlowOption {
	return base.WithFlowOptions(opts...)
}

func StreamInSource(src SeriesSource) StreamInOption {
	return base.StreamInSource(src)
}

func StreamInObservability(obs Observability) StreamInOption {
	return base.StreamInObservability(obs)
}

func StreamOutSubscriber(sub Subscriber) StreamOutOption {
	return base.StreamOutSubscriber(sub)
}

func StreamOutCallback(fn func(Event)) StreamOutOption {
	return base.StreamOutCallback(fn)
}

func StreamOutObservability(obs Observability) StreamOutOption {
	return base.StreamOutObservability(obs)
}

// Runtime and options.
func NewRuntime(cfg *Config, opts ...RuntimeOption) (*Runtime, error) {
	return base.NewRuntime(cfg, opts...)
}

func WithSource(src SeriesSource) RuntimeOption {
	return base.WithSource(src)
}

func WithObservability(obs Observability) RuntimeOption {
	return base.WithObservability(obs)
}

func WithLogOutput(w io.Writer) RuntimeOption {
	return base.WithLogOutput(w)
}

func WithSubscriber(sub Subscriber) RuntimeOption {
	return base.WithSubscriber(sub)
}

func WithoutAPI() RuntimeOption {
	return base.WithoutAPI()
}

func WithoutMetricsServer() RuntimeOption {
	return base.WithoutMetricsServer()
}

// Subscriber adapters.
func NewCallbackSubscriber(fn func(Event)) Subscriber {
	return base.NewCallbackSubscriber(fn)
}

func NewChannelSubscriber(buffer int) (Subscriber, <-chan Event, func()) {
	return base.NewChannelSubscriber(buffer)
}

// Offline analysis.
func Analyze(samples []Sample, policy DetectionPolicy, w QueryWindow) (Result, error) {
	return base.Analyze(samples, policy, w)
}

func DefaultDetectionPolicy() DetectionPolicy {
	return base.DefaultDetectionPolicy()
}

func NewStaticSource(name string, samples []Sample) *StaticSource {
	return base.NewStaticSource(name, samples)
}

// Windows.
func FixedWindow(w QueryWindow) Target {
	return base.FixedWindow(w)
}

func FollowNow(span time.Duration) Target {
	return base.FollowNow(span)
}

func PresetWindow(name string, now time.Time) (QueryWindow, error) {
	return base.PresetWindow(name, now)
}

func PresetNames() []string {
	return base.PresetNames()
}
