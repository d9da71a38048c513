package lineflow

import (
	"context"
	"fmt"
)

// Flow assembles a Runtime step by step, starting from Conf and ending with
// StreamOUT.
type Flow struct {
	cfg  *Config
	opts []RuntimeOption
}

// FlowOption adjusts a Flow right after its config is loaded.
type FlowOption func(*Flow)

// StreamInOption replaces the series source or its instrumentation.
type StreamInOption func(*Flow)

// StreamOutOption adds a consumer of run outcomes.
type StreamOutOption func(*Flow)

// Conf reads the YAML config at path and starts a Flow.
func Conf(path string, opts ...FlowOption) (*Flow, error) {
	cfg, err := LoadConfig(path)
	if err != nil {
		return nil, err
	}
	return ConfFromConfig(cfg, opts...)
}

// ConfFromConfig starts a Flow from a Config that is already parsed.
func ConfFromConfig(cfg *Config, opts ...FlowOption) (*Flow, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config is required")
	}
	f := &Flow{cfg: cfg}
	for _, opt := range opts {
		f.apply(opt)
	}
	return f, nil
}

// Config exposes the parsed config; edits made before StreamOUT take effect.
func (f *Flow) Config() *Config {
	if f == nil {
		return nil
	}
	return f.cfg
}

// Options passes RuntimeOption values straight to NewRuntime.
func (f *Flow) Options(opts ...RuntimeOption) *Flow {
	if f == nil {
		return nil
	}
	f.appendOptions(opts...)
	return f
}

// StreamIN applies source overrides. Without any, the source named by
// source.kind is used.
func (f *Flow) StreamIN(opts ...StreamInOption) *Flow {
	if f == nil {
		return nil
	}
	for _, opt := range opts {
		f.apply(opt)
	}
	return f
}

// StreamOUT registers consumers and builds the Runtime. Nothing is started
// until Runtime.Start or Runtime.Run.
func (f *Flow) StreamOUT(opts ...StreamOutOption) (*Runtime, error) {
	if f == nil {
		return nil, fmt.Errorf("flow is nil")
	}
	for _, opt := range opts {
		f.apply(opt)
	}
	return NewRuntime(f.cfg, f.opts...)
}

// Run builds the Runtime and blocks in Runtime.Run until ctx is done.
func (f *Flow) Run(ctx context.Context, opts ...StreamOutOption) error {
	rt, err := f.StreamOUT(opts...)
	if err != nil {
		return err
	}
	return rt.Run(ctx)
}

// WithFlowOptions is Options in FlowOption form, for use with Conf.
func WithFlowOptions(opts ...RuntimeOption) FlowOption {
	return func(f *Flow) {
		if f != nil {
			f.appendOptions(opts...)
		}
	}
}

// StreamInSource fetches windows from src instead of the configured source.
func StreamInSource(src SeriesSource) StreamInOption {
	return func(f *Flow) {
		if f != nil && src != nil {
			f.appendOptions(WithSource(src))
		}
	}
}

// StreamInObservability sends metrics and logs to obs instead of PromObs.
func StreamInObservability(obs Observability) StreamInOption {
	return func(f *Flow) {
		if f != nil && obs != nil {
			f.appendOptions(WithObservability(obs))
		}
	}
}

// StreamOutSubscriber delivers every result and error event to sub.
func StreamOutSubscriber(sub Subscriber) StreamOutOption {
	return func(f *Flow) {
		if f != nil && sub != nil {
			f.appendOptions(WithSubscriber(sub))
		}
	}
}

// StreamOutCallback delivers every event to fn.
func StreamOutCallback(fn func(Event)) StreamOutOption {
	return func(f *Flow) {
		if f != nil && fn != nil {
			f.appendOptions(WithSubscriber(NewCallbackSubscriber(fn)))
		}
	}
}

// StreamOutObservability is StreamInObservability for the output side.
func StreamOutObservability(obs Observability) StreamOutOption {
	return func(f *Flow) {
		if f != nil && obs != nil {
			f.appendOptions(WithObservability(obs))
		}
	}
}

func (f *Flow) apply(opt func(*Flow)) {
	if opt != nil {
		opt(f)
	}
}

func (f *Flow) appendOptions(opts ...RuntimeOption) {
	for _, opt := range opts {
		if opt != nil {
			f.opts = append(f.opts, opt)
		}
	}
}
