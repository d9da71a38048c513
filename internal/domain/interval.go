package domain

import (
	"fmt"
	"time"
)

type State uint8

const (
	Running State = iota
	Stopped
)

func (s State) String() string {
	if s == Stopped {
		return "STOPPED"
	}
	return "RUNNING"
}

func (s State) MarshalText() ([]byte, error) { return []byte(s.String()), nil }

func (s *State) UnmarshalText(b []byte) error {
	switch string(b) {
	case "RUNNING":
		*s = Running
	case "STOPPED":
		*s = Stopped
	default:
		return fmt.Errorf("unknown state %q", b)
	}
	return nil
}

// Interval is a maximal run of consecutive samples sharing one state.
// FirstIndex and LastIndex point into the classified sample slice.
type Interval struct {
	State       State     `json:"state"`
	Start       time.Time `json:"start"`
	End         time.Time `json:"end"`
	FirstIndex  int       `json:"first_index"`
	LastIndex   int       `json:"last_index"`
	SampleCount int       `json:"sample_count"`
	SpeedSum    float64   `json:"-"`
	SpeedCount  int       `json:"-"`
}

func (iv Interval) Duration() time.Duration { return iv.End.Sub(iv.Start) }
