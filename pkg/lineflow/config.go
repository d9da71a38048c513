package lineflow

import (
	"github.com/ghalamif/LineFlow/internal/adapters/httpapi"
	"github.com/ghalamif/LineFlow/internal/adapters/httpsource"
	"github.com/ghalamif/LineFlow/internal/adapters/sqlsource"
	"github.com/ghalamif/LineFlow/internal/app/config"
	"github.com/ghalamif/LineFlow/internal/app/normalize"
	"github.com/ghalamif/LineFlow/internal/ports"
)

// Config re-exports the root configuration struct so downstream projects can
// construct or modify it programmatically.
type Config = config.Config

type (
	// DetectionPolicy holds the stoppage detection thresholds.
	DetectionPolicy = ports.DetectionPolicy
	// SourceConfig selects and configures the series source.
	SourceConfig = config.SourceConfig
	// HTTPSourceConfig describes the document API endpoint.
	HTTPSourceConfig = httpsource.Config
	// FieldMap names the upstream field codes.
	FieldMap = normalize.FieldMap
	// RefreshConfig configures auto-refresh.
	RefreshConfig = config.RefreshConfig
	// HTTPConfig configures the presentation API.
	HTTPConfig = httpapi.Config
	// MetricsConfig configures the metrics HTTP server.
	MetricsConfig = config.MetricsConfig
	// TimescaleConfig configures the SQL source.
	TimescaleConfig = sqlsource.Config
	LogConfig       = config.LogConfig
)

const (
	SourceHTTP      = config.SourceHTTP
	SourceTimescale = config.SourceTimescale
)

// LoadConfig loads YAML from disk using the internal config reader.
func LoadConfig(path string) (*Config, error) {
	return config.Load(path)
}

// ParseConfig is LoadConfig for YAML already in memory.
func ParseConfig(raw []byte) (*Config, error) {
	return config.Parse(raw)
}
