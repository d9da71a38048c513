package sqlsource

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"time"

	_ "github.com/lib/pq"

	"github.com/ghalamif/LineFlow/internal/app/normalize"
	"github.com/ghalamif/LineFlow/internal/domain"
	"github.com/ghalamif/LineFlow/internal/ports"
)

// TimestampKey is the row key the ts column is stored under before decoding.
const TimestampKey = "ts"

var tableName = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*(\.[A-Za-z_][A-Za-z0-9_]*)?$`)

type Config struct {
	ConnString string `yaml:"conn_string"`
	Table      string `yaml:"table"`
}

func (c *Config) ApplyDefaults() {
	if c.Table == "" {
		c.Table = "line_samples"
	}
}

func (c *Config) Validate() error {
	if c.ConnString == "" {
		return errors.New("timescale conn_string is required")
	}
	if !tableName.MatchString(c.Table) {
		return fmt.Errorf("timescale table %q is not a plain identifier", c.Table)
	}
	return nil
}

// Open connects with the lib/pq driver and pings once.
func Open(ctx context.Context, cfg Config) (*sql.DB, error) {
	db, err := sql.Open("postgres", cfg.ConnString)
	if err != nil {
		return nil, fmt.Errorf("open timescale: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping timescale: %w", err)
	}
	return db, nil
}

// TimescaleSource reads a window of samples from a hypertable whose values
// column holds the same field codes the document API returns.
type TimescaleSource struct {
	db        *sql.DB
	tableName string
	sensorID  string
	dec       ports.RowDecoder
}

func NewTimescaleSource(db *sql.DB, table, sensorID string, dec ports.RowDecoder) *TimescaleSource {
	return &TimescaleSource{db: db, tableName: table, sensorID: sensorID, dec: dec}
}

func (t *TimescaleSource) Name() string { return "timescaledb" }

func (t *TimescaleSource) query() string {
	q := "SELECT ts, values FROM " + t.tableName + " WHERE ts >= $1 AND ts <= $2"
	if t.sensorID != "" {
		q += " AND sensor_id = $3"
	}
	return q + " ORDER BY ts"
}

func (t *TimescaleSource) Fetch(ctx context.Context, w domain.QueryWindow) (domain.Series, error) {
	if err := w.Validate(); err != nil {
		return domain.Series{}, err
	}
	args := []any{w.Start.UTC(), w.End.UTC()}
	if t.sensorID != "" {
		args = append(args, t.sensorID)
	}

	rows, err := t.db.QueryContext(ctx, t.query(), args...)
	if err != nil {
		return domain.Series{}, &domain.UpstreamError{Kind: domain.UpstreamNetwork, Message: "query samples", Err: err}
	}
	defer rows.Close()

	var out []map[string]any
	for rows.Next() {
		var (
			ts  time.Time
			raw []byte
		)
		if err := rows.Scan(&ts, &raw); err != nil {
			return domain.Series{}, &domain.UpstreamError{Kind: domain.UpstreamNetwork, Message: "scan sample", Err: err}
		}
		out = append(out, decodeValues(ts, raw))
	}
	if err := rows.Err(); err != nil {
		return domain.Series{}, &domain.UpstreamError{Kind: domain.UpstreamNetwork, Message: "iterate samples", Err: err}
	}
	return normalize.Rows(t.dec, out)
}

// decodeValues returns nil for a malformed values column so the row is dropped.
func decodeValues(ts time.Time, raw []byte) map[string]any {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	row := map[string]any{}
	if err := dec.Decode(&row); err != nil || row == nil {
		return nil
	}
	row[TimestampKey] = ts
	return row
}

var _ ports.SeriesSource = (*TimescaleSource)(nil)
