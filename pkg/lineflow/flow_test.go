package lineflow

import (
	"context"
	"testing"
)

func TestConfFromConfigAndStreamBuilder(t *testing.T) {
	cfg := testCfg(t)

	flow, err := ConfFromConfig(cfg)
	if err != nil {
		t.Fatalf("ConfFromConfig returned error: %v", err)
	}
	if flow.Config() != cfg {
		t.Fatalf("expected Config to be returned verbatim")
	}

	src := NewStaticSource("stub", nil)
	obs := &stubObservability{}

	rt, err := flow.
		Options(WithoutAPI(), WithoutMetricsServer()).
		StreamIN(
			StreamInSource(src),
			StreamInObservability(obs),
		).
		StreamOUT(
			StreamOutCallback(func(Event) {}),
			StreamOutSubscriber(SubscriberFunc(func(Event) {})),
		)
	if err != nil {
		t.Fatalf("StreamOUT returned error: %v", err)
	}
	if rt.source != src {
		t.Fatalf("expected custom source to be wired")
	}
	if rt.obs != obs {
		t.Fatalf("expected custom observability to be wired")
	}
}

func TestConfFromConfigNil(t *testing.T) {
	if _, err := ConfFromConfig(nil); err == nil {
		t.Fatalf("expected error for nil config")
	}
}

func TestFlowRunUsesStreamOutOptions(t *testing.T) {
	flow, err := ConfFromConfig(testCfg(t), WithFlowOptions(WithoutAPI(), WithoutMetricsServer()))
	if err != nil {
		t.Fatalf("ConfFromConfig returned error: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	// Stop immediately; refresh is disabled so nothing reaches the network.
	cancel()
	if err := flow.StreamIN(
		StreamInSource(NewStaticSource("stub", nil)),
		StreamInObservability(&stubObservability{}),
	).Run(ctx,
		StreamOutObservability(&stubObservability{}),
	); err != nil && err != context.Canceled {
		t.Fatalf("Run returned unexpected error: %v", err)
	}
}

func TestFlowIgnoresNilOptions(t *testing.T) {
	flow, err := ConfFromConfig(testCfg(t), nil, WithFlowOptions(WithoutAPI(), WithoutMetricsServer()))
	if err != nil {
		t.Fatalf("ConfFromConfig returned error: %v", err)
	}
	rt, err := flow.
		StreamIN(nil, StreamInObservability(&stubObservability{})).
		StreamOUT(nil, StreamOutCallback(nil))
	if err != nil {
		t.Fatalf("StreamOUT returned error: %v", err)
	}
	if rt == nil {
		t.Fatalf("expected a runtime")
	}
}
