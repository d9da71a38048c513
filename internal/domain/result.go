package domain

import "time"

// Result is the output of one fetch-classify-aggregate run.
type Result struct {
	RunID       string           `json:"run_id"`
	Window      QueryWindow      `json:"window"`
	Samples     []Sample         `json:"samples"`
	Intervals   []Interval       `json:"intervals"`
	Records     []DowntimeRecord `json:"records"`
	Summary     Summary          `json:"summary"`
	DroppedRows int              `json:"dropped_rows"`
	StartedAt   time.Time        `json:"started_at"`
	FinishedAt  time.Time        `json:"finished_at"`
}

const (
	StatusOK      = "ok"
	StatusEmpty   = "empty"
	StatusPartial = "partial"
)

// Status separates "no data in range" from "some rows were unusable".
func (r Result) Status() string {
	switch {
	case r.DroppedRows > 0:
		return StatusPartial
	case len(r.Samples) == 0:
		return StatusEmpty
	default:
		return StatusOK
	}
}
