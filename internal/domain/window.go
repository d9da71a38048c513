package domain

import (
	"errors"
	"fmt"
	"sort"
	"time"
)

// ErrInvalidWindow is returned before any network call when start >= end.
var ErrInvalidWindow = errors.New("lineflow: invalid query window")

// ErrUnknownPreset is returned for a preset name outside Presets.
var ErrUnknownPreset = errors.New("lineflow: unknown window preset")

// QueryWindow is the [Start, End] range requested from the source.
type QueryWindow struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// Validate checks start < end at the epoch-second resolution the upstream API uses.
func (w QueryWindow) Validate() error {
	if w.Start.Unix() >= w.End.Unix() {
		return fmt.Errorf("%w: start %s is not before end %s",
			ErrInvalidWindow, w.Start.UTC().Format(time.RFC3339), w.End.UTC().Format(time.RFC3339))
	}
	return nil
}

func (w QueryWindow) Span() time.Duration { return w.End.Sub(w.Start) }

// EpochSeconds returns the request-side bounds.
func (w QueryWindow) EpochSeconds() (start, end int64) {
	return w.Start.Unix(), w.End.Unix()
}

// WindowFromEpoch builds a window from integer epoch seconds.
func WindowFromEpoch(start, end int64) QueryWindow {
	return QueryWindow{Start: time.Unix(start, 0).UTC(), End: time.Unix(end, 0).UTC()}
}

// WindowEndingAt returns the sliding window [now-span, now] truncated to seconds.
func WindowEndingAt(now time.Time, span time.Duration) QueryWindow {
	end := now.UTC().Truncate(time.Second)
	return QueryWindow{Start: end.Add(-span), End: end}
}

// Presets are the window selectors offered to the presentation layer.
var Presets = map[string]time.Duration{
	"1h":  time.Hour,
	"6h":  6 * time.Hour,
	"12h": 12 * time.Hour,
	"24h": 24 * time.Hour,
	"3d":  72 * time.Hour,
	"7d":  7 * 24 * time.Hour,
}

func PresetSpan(name string) (time.Duration, error) {
	d, ok := Presets[name]
	if !ok {
		return 0, fmt.Errorf("%w: %q", ErrUnknownPreset, name)
	}
	return d, nil
}

// PresetNames lists presets from the shortest to the longest span.
func PresetNames() []string {
	names := make([]string, 0, len(Presets))
	for name := range Presets {
		names = append(names, name)
	}
	sort.Slice(names, func(i, j int) bool { return Presets[names[i]] < Presets[names[j]] })
	return names
}
