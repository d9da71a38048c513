package domain

import "time"

// DowntimeRecord is one reportable stoppage.
type DowntimeRecord struct {
	Start       time.Time     `json:"start"`
	End         time.Time     `json:"end"`
	Duration    time.Duration `json:"duration_ns"`
	SampleCount int           `json:"sample_count"`
	MergedStops int           `json:"merged_stops"`
	MeanSpeed   float64       `json:"mean_speed"`
}

// Summary condenses the records of one run for the report header.
type Summary struct {
	Records       int           `json:"records"`
	TotalDowntime time.Duration `json:"total_downtime_ns"`
	Span          time.Duration `json:"span_ns"`
	Availability  float64       `json:"availability"`
}
