package config

import (
	"fmt"
	"os"
	"slices"
	"time"
	_ "time/tzdata"

	"github.com/ghalamif/LineFlow/internal/adapters/httpapi"
	"github.com/ghalamif/LineFlow/internal/adapters/httpsource"
	"github.com/ghalamif/LineFlow/internal/adapters/sqlsource"
	"github.com/ghalamif/LineFlow/internal/app/normalize"
	"github.com/ghalamif/LineFlow/internal/app/scheduler"
	"github.com/ghalamif/LineFlow/internal/domain"
	"github.com/ghalamif/LineFlow/internal/ports"
	"gopkg.in/yaml.v3"
)

const (
	SourceHTTP      = "http"
	SourceTimescale = "timescale"
)

type Config struct {
	Source    SourceConfig          `yaml:"source"`
	Detection ports.DetectionPolicy `yaml:"detection"`
	Refresh   RefreshConfig         `yaml:"refresh"`
	HTTP      httpapi.Config        `yaml:"http"`
	Metrics   MetricsConfig         `yaml:"metrics"`
	Timescale sqlsource.Config      `yaml:"timescale"`
	Log       LogConfig             `yaml:"log"`
}

type SourceConfig struct {
	Kind              string `yaml:"kind"`
	httpsource.Config `yaml:",inline"`
	Fields            normalize.FieldMap `yaml:"fields"`
	Location          string             `yaml:"location"`
	SensorID          string             `yaml:"sensor_id"`
}

// TimeLocation resolves the zone used for zone-less upstream timestamps.
func (s SourceConfig) TimeLocation() (*time.Location, error) {
	if s.Location == "" {
		return time.UTC, nil
	}
	return time.LoadLocation(s.Location)
}

type RefreshConfig struct {
	Enabled    bool          `yaml:"enabled"`
	Interval   time.Duration `yaml:"interval"`
	Preset     string        `yaml:"preset"`
	RunOnStart bool          `yaml:"run_on_start"`
}

type MetricsConfig struct {
	Addr string `yaml:"addr"`
}

type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

func Load(path string) (*Config, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return Parse(raw)
}

// Parse decodes YAML, applies defaults and validates. Detection defaults are
// set before decoding so explicit zeros in the file are kept.
func Parse(raw []byte) (*Config, error) {
	cfg := Config{Detection: ports.DefaultDetectionPolicy()}
	if err := yaml.Unmarshal(raw, &cfg); err != nil {
		return nil, err
	}

	cfg.applyDefaults()
	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func (c *Config) applyDefaults() {
	if c.Source.Kind == "" {
		c.Source.Kind = SourceHTTP
	}
	c.Source.Config.ApplyDefaults()
	c.Source.Fields.ApplyDefaults()
	if c.Source.Kind == SourceTimescale && !slices.Contains(c.Source.Fields.Timestamp, sqlsource.TimestampKey) {
		c.Source.Fields.Timestamp = append([]string{sqlsource.TimestampKey}, c.Source.Fields.Timestamp...)
	}

	if c.Refresh.Interval == 0 {
		c.Refresh.Interval = scheduler.DefaultInterval
	}
	if c.Refresh.Preset == "" {
		c.Refresh.Preset = "1h"
	}

	c.HTTP.ApplyDefaults()
	if c.Metrics.Addr == "" {
		c.Metrics.Addr = ":9100"
	}
	c.Timescale.ApplyDefaults()
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Log.Format == "" {
		c.Log.Format = "json"
	}
}

func (c *Config) validate() error {
	switch c.Source.Kind {
	case SourceHTTP:
		if err := c.Source.Config.Validate(); err != nil {
			return fmt.Errorf("source config: %w", err)
		}
	case SourceTimescale:
		if err := c.Timescale.Validate(); err != nil {
			return fmt.Errorf("timescale config: %w", err)
		}
	default:
		return fmt.Errorf("source.kind %q must be %q or %q", c.Source.Kind, SourceHTTP, SourceTimescale)
	}
	if err := c.Source.Fields.Validate(); err != nil {
		return fmt.Errorf("source.fields: %w", err)
	}
	if _, err := c.Source.TimeLocation(); err != nil {
		return fmt.Errorf("source.location: %w", err)
	}

	if c.Detection.ThresholdSpeed < 0 {
		return fmt.Errorf("detection.threshold_speed must not be negative")
	}
	if c.Detection.MinRunLength < 1 {
		return fmt.Errorf("detection.min_run_length must be at least 1")
	}
	if c.Detection.MaxGap < 0 || c.Detection.MinStoppage < 0 {
		return fmt.Errorf("detection durations must not be negative")
	}

	if c.Refresh.Interval < time.Second {
		return fmt.Errorf("refresh.interval must be at least 1s, got %s", c.Refresh.Interval)
	}
	if _, err := domain.PresetSpan(c.Refresh.Preset); err != nil {
		return fmt.Errorf("refresh.preset: %w", err)
	}
	if c.Metrics.Addr == "" {
		return fmt.Errorf("metrics.addr is required")
	}
	return nil
}
