package normalize

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/ghalamif/LineFlow/internal/domain"
	"github.com/ghalamif/LineFlow/internal/ports"
)

var (
	ErrNoTimestamp  = errors.New("row has no timestamp field")
	ErrBadTimestamp = errors.New("row timestamp is not parseable")
)

// FieldMap names the upstream field codes of the known Sample fields.
// Timestamp lists candidate keys; the first one present in a row wins.
type FieldMap struct {
	Timestamp     []string `yaml:"timestamp"`
	Speed         string   `yaml:"speed"`
	ExtrusionTemp string   `yaml:"extrusion_temp"`
	RollerTemp    string   `yaml:"roller_temp"`
}

func (f *FieldMap) ApplyDefaults() {
	if len(f.Timestamp) == 0 {
		f.Timestamp = []string{"datetime", "timestamp", "ts"}
	}
	if f.Speed == "" {
		f.Speed = "line_speed"
	}
	if f.ExtrusionTemp == "" {
		f.ExtrusionTemp = "extrusion_temp"
	}
	if f.RollerTemp == "" {
		f.RollerTemp = "roller_temp"
	}
}

func (f *FieldMap) Validate() error {
	for _, k := range f.Timestamp {
		if strings.TrimSpace(k) == "" {
			return errors.New("timestamp field names must not be empty")
		}
	}
	if f.Speed == "" {
		return errors.New("speed field is required")
	}
	return nil
}

var layouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02 15:04:05Z07:00",
	"2006/01/02 15:04:05.999999999",
}

type Decoder struct {
	fields FieldMap
	loc    *time.Location
}

// NewDecoder returns a decoder; zone-less timestamps are read in loc (UTC when nil).
func NewDecoder(fields FieldMap, loc *time.Location) *Decoder {
	fields.ApplyDefaults()
	if loc == nil {
		loc = time.UTC
	}
	return &Decoder{fields: fields, loc: loc}
}

func (d *Decoder) Decode(row map[string]any) (domain.Sample, error) {
	var (
		s     domain.Sample
		tsKey string
	)
	for _, k := range d.fields.Timestamp {
		if v, ok := row[k]; ok && v != nil {
			tsKey = k
			break
		}
	}
	if tsKey == "" {
		return s, ErrNoTimestamp
	}
	ts, err := ParseTimestamp(row[tsKey], d.loc)
	if err != nil {
		return s, err
	}
	s.Timestamp = ts
	s.Speed = measurement(row[d.fields.Speed])
	s.ExtrusionTemp = measurement(row[d.fields.ExtrusionTemp])
	s.RollerTemp = measurement(row[d.fields.RollerTemp])

	for k, v := range row {
		switch k {
		case tsKey, d.fields.Speed, d.fields.ExtrusionTemp, d.fields.RollerTemp:
			continue
		}
		if s.Extra == nil {
			s.Extra = make(map[string]any, len(row))
		}
		s.Extra[k] = v
	}
	return s, nil
}

// ParseTimestamp accepts ISO-8601-like strings and numeric epoch seconds or milliseconds.
func ParseTimestamp(v any, loc *time.Location) (time.Time, error) {
	switch t := v.(type) {
	case time.Time:
		if t.IsZero() {
			return time.Time{}, ErrBadTimestamp
		}
		return t.UTC(), nil
	case string:
		raw := strings.TrimSpace(t)
		if raw == "" {
			return time.Time{}, ErrBadTimestamp
		}
		for _, layout := range layouts {
			if ts, err := time.ParseInLocation(layout, raw, loc); err == nil {
				return ts.UTC(), nil
			}
		}
		if f, err := strconv.ParseFloat(raw, 64); err == nil {
			return fromEpoch(f)
		}
		return time.Time{}, fmt.Errorf("%w: %q", ErrBadTimestamp, raw)
	default:
		f, ok := toFloat(v)
		if !ok {
			return time.Time{}, fmt.Errorf("%w: %v", ErrBadTimestamp, v)
		}
		return fromEpoch(f)
	}
}

func fromEpoch(f float64) (time.Time, error) {
	if f <= 0 || math.IsNaN(f) || math.IsInf(f, 0) {
		return time.Time{}, ErrBadTimestamp
	}
	if f > 1e12 {
		return time.UnixMilli(int64(f)).UTC(), nil
	}
	sec, frac := math.Modf(f)
	return time.Unix(int64(sec), int64(frac*1e9)).UTC(), nil
}

func measurement(v any) domain.Measurement {
	f, ok := toFloat(v)
	if !ok {
		return domain.Measurement{}
	}
	return domain.Value(f)
}

func toFloat(v any) (float64, bool) {
	var (
		f   float64
		err error
	)
	switch t := v.(type) {
	case float64:
		f = t
	case float32:
		f = float64(t)
	case int:
		f = float64(t)
	case int64:
		f = float64(t)
	case json.Number:
		f, err = t.Float64()
	case string:
		f, err = strconv.ParseFloat(strings.TrimSpace(t), 64)
	default:
		return 0, false
	}
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}

// Rows decodes a batch, counts dropped rows and sorts the result by timestamp.
// A batch where every row fails is an UpstreamError; an empty batch is not.
func Rows(dec ports.RowDecoder, rows []map[string]any) (domain.Series, error) {
	series := domain.Series{
		Samples: make([]domain.Sample, 0, len(rows)),
		Total:   len(rows),
	}
	var firstErr error
	for _, row := range rows {
		s, err := dec.Decode(row)
		if err != nil {
			series.Dropped++
			if firstErr == nil {
				firstErr = err
			}
			continue
		}
		series.Samples = append(series.Samples, s)
	}
	if series.Total > 0 && series.Dropped == series.Total {
		return domain.Series{}, &domain.UpstreamError{
			Kind:    domain.UpstreamEmptyOrUnparseable,
			Message: fmt.Sprintf("all %d rows dropped", series.Total),
			Err:     firstErr,
		}
	}
	sort.SliceStable(series.Samples, func(i, j int) bool {
		return series.Samples[i].Timestamp.Before(series.Samples[j].Timestamp)
	})
	return series, nil
}

var _ ports.RowDecoder = (*Decoder)(nil)
