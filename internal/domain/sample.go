package domain

import (
	"encoding/json"
	"time"
)

// Sample is one telemetry reading from the production line.
type Sample struct {
	Timestamp     time.Time      `json:"ts"`
	Speed         Measurement    `json:"line_speed"`
	ExtrusionTemp Measurement    `json:"extrusion_temp"`
	RollerTemp    Measurement    `json:"roller_temp"`
	Extra         map[string]any `json:"extra,omitempty"`
}

// Measurement is an optional numeric field. Valid is false when the upstream
// row did not carry the field or carried something that is not a number.
type Measurement struct {
	Value float64
	Valid bool
}

func Value(v float64) Measurement { return Measurement{Value: v, Valid: true} }

func (m Measurement) MarshalJSON() ([]byte, error) {
	if !m.Valid {
		return []byte("null"), nil
	}
	return json.Marshal(m.Value)
}

func (m *Measurement) UnmarshalJSON(b []byte) error {
	if string(b) == "null" {
		*m = Measurement{}
		return nil
	}
	var v float64
	if err := json.Unmarshal(b, &v); err != nil {
		return err
	}
	*m = Value(v)
	return nil
}

// Series is the normalized output of one fetch.
type Series struct {
	Samples []Sample
	// Dropped counts rows that could not be turned into a Sample.
	Dropped int
	// Total is the number of rows the source returned.
	Total int
}
