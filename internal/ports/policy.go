package ports

import "time"

// DetectionPolicy holds the downtime detection parameters.
type DetectionPolicy struct {
	ThresholdSpeed float64       `yaml:"threshold_speed"`
	MinRunLength   int           `yaml:"min_run_length"`
	MaxGap         time.Duration `yaml:"max_gap"`
	MinStoppage    time.Duration `yaml:"min_stoppage"`
}

// DefaultDetectionPolicy returns the parameters used when a config file
// leaves a detection key out.
func DefaultDetectionPolicy() DetectionPolicy {
	return DetectionPolicy{
		ThresholdSpeed: 5,
		MinRunLength:   3,
		MaxGap:         2 * time.Minute,
		MinStoppage:    time.Minute,
	}
}

type QueuePolicy struct {
	MaxQueueLen  int           `yaml:"max_queue_len"`
	MaxBatchSize int           `yaml:"max_batch_size"`
	IdleSleep    time.Duration `yaml:"idle_sleep"`

	OnQueueFull string `yaml:"on_queue_full"` // "drop", "drop_oldest"
}
