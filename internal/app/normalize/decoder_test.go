package normalize

import (
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/ghalamif/LineFlow/internal/domain"
)

func TestDecodeKnownAndExtraFields(t *testing.T) {
	dec := NewDecoder(FieldMap{}, nil)

	s, err := dec.Decode(map[string]any{
		"datetime":       "2024-03-01 08:15:00",
		"line_speed":     json.Number("52.5"),
		"extrusion_temp": "210.4",
		"operator":       "B-shift",
	})
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	want := time.Date(2024, 3, 1, 8, 15, 0, 0, time.UTC)
	if !s.Timestamp.Equal(want) {
		t.Fatalf("expected ts %s, got %s", want, s.Timestamp)
	}
	if !s.Speed.Valid || s.Speed.Value != 52.5 {
		t.Fatalf("unexpected speed %+v", s.Speed)
	}
	if !s.ExtrusionTemp.Valid || s.ExtrusionTemp.Value != 210.4 {
		t.Fatalf("expected numeric string to parse, got %+v", s.ExtrusionTemp)
	}
	if s.RollerTemp.Valid {
		t.Fatalf("missing roller temp must be invalid")
	}
	if s.Extra["operator"] != "B-shift" {
		t.Fatalf("expected unknown field to pass through, got %v", s.Extra)
	}
	if _, ok := s.Extra["datetime"]; ok {
		t.Fatalf("timestamp key must not be duplicated into extra")
	}
}

func TestDecodeNonNumericSpeedIsMissing(t *testing.T) {
	dec := NewDecoder(FieldMap{}, nil)
	s, err := dec.Decode(map[string]any{"ts": "2024-03-01T08:15:00Z", "line_speed": "n/a"})
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if s.Speed.Valid {
		t.Fatalf("expected categorical speed to be treated as missing")
	}
}

func TestDecodeUsesLocationForZonelessTimestamps(t *testing.T) {
	loc := time.FixedZone("CST", 8*3600)
	dec := NewDecoder(FieldMap{}, loc)
	s, err := dec.Decode(map[string]any{"datetime": "2024-03-01 08:00:00"})
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if want := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC); !s.Timestamp.Equal(want) {
		t.Fatalf("expected %s, got %s", want, s.Timestamp)
	}
}

func TestDecodeTimestampErrors(t *testing.T) {
	dec := NewDecoder(FieldMap{}, nil)
	if _, err := dec.Decode(map[string]any{"line_speed": 3.0}); !errors.Is(err, ErrNoTimestamp) {
		t.Fatalf("expected ErrNoTimestamp, got %v", err)
	}
	if _, err := dec.Decode(map[string]any{"datetime": "yesterday"}); !errors.Is(err, ErrBadTimestamp) {
		t.Fatalf("expected ErrBadTimestamp, got %v", err)
	}
}

func TestParseTimestampEpoch(t *testing.T) {
	ts, err := ParseTimestamp(float64(1700000000), time.UTC)
	if err != nil || ts.Unix() != 1700000000 {
		t.Fatalf("epoch seconds: %v %v", ts, err)
	}
	ts, err = ParseTimestamp(json.Number("1700000000123"), time.UTC)
	if err != nil || ts.UnixMilli() != 1700000000123 {
		t.Fatalf("epoch millis: %v %v", ts, err)
	}
}

func TestRowsSortsAndCountsDrops(t *testing.T) {
	dec := NewDecoder(FieldMap{}, nil)
	series, err := Rows(dec, []map[string]any{
		{"datetime": "2024-03-01 08:02:00", "line_speed": 1.0},
		{"datetime": "garbage"},
		{"datetime": "2024-03-01 08:00:00", "line_speed": 2.0},
	})
	if err != nil {
		t.Fatalf("rows: %v", err)
	}
	if series.Total != 3 || series.Dropped != 1 || len(series.Samples) != 2 {
		t.Fatalf("unexpected series counts %+v", series)
	}
	if !series.Samples[0].Timestamp.Before(series.Samples[1].Timestamp) {
		t.Fatalf("expected ascending order")
	}
}

func TestRowsAllDroppedFails(t *testing.T) {
	dec := NewDecoder(FieldMap{}, nil)
	_, err := Rows(dec, []map[string]any{{"foo": 1}, {"datetime": ""}})
	var upErr *domain.UpstreamError
	if !errors.As(err, &upErr) || upErr.Kind != domain.UpstreamEmptyOrUnparseable {
		t.Fatalf("expected EmptyOrUnparseable, got %v", err)
	}
}

func TestRowsEmptyIsSuccess(t *testing.T) {
	series, err := Rows(NewDecoder(FieldMap{}, nil), nil)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if len(series.Samples) != 0 || series.Dropped != 0 {
		t.Fatalf("expected empty series, got %+v", series)
	}
}
