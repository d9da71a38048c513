package httpsource

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/ghalamif/LineFlow/internal/app/normalize"
	"github.com/ghalamif/LineFlow/internal/domain"
	"github.com/ghalamif/LineFlow/internal/ports"
)

const (
	DefaultPath    = "/api/huacore.forms/documentapi/getvalue"
	DefaultTimeout = 10 * time.Second

	maxErrorBody = 4 << 10
)

// Config describes the document API (or the proxy in front of it).
type Config struct {
	BaseURL string            `yaml:"base_url"`
	Path    string            `yaml:"path"`
	Timeout time.Duration     `yaml:"timeout"`
	Headers map[string]string `yaml:"headers"`
}

func (c *Config) ApplyDefaults() {
	if c.Path == "" {
		c.Path = DefaultPath
	}
	if c.Timeout <= 0 {
		c.Timeout = DefaultTimeout
	}
	if c.Headers == nil {
		c.Headers = map[string]string{"ngrok-skip-browser-warning": "1"}
	}
}

func (c *Config) Validate() error {
	if c.BaseURL == "" {
		return errors.New("base_url is required")
	}
	if !strings.HasPrefix(c.BaseURL, "http://") && !strings.HasPrefix(c.BaseURL, "https://") {
		return fmt.Errorf("base_url %q must be http or https", c.BaseURL)
	}
	if !strings.HasPrefix(c.Path, "/") {
		return fmt.Errorf("path %q must start with /", c.Path)
	}
	return nil
}

// Source fetches a window of samples with one POST per call. Nothing is cached.
type Source struct {
	cfg    Config
	url    string
	client *http.Client
	dec    ports.RowDecoder
}

type Option func(*Source)

// WithHTTPClient replaces the default client; its Timeout is left untouched.
func WithHTTPClient(c *http.Client) Option {
	return func(s *Source) {
		if c != nil {
			s.client = c
		}
	}
}

func New(cfg Config, dec ports.RowDecoder, opts ...Option) (*Source, error) {
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if dec == nil {
		return nil, errors.New("row decoder is required")
	}
	s := &Source{
		cfg:    cfg,
		url:    strings.TrimRight(cfg.BaseURL, "/") + cfg.Path,
		client: &http.Client{Timeout: cfg.Timeout},
		dec:    dec,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	return s, nil
}

func (s *Source) Name() string { return "http" }

type request struct {
	StartDatetime int64 `json:"start_datetime"`
	EndDatetime   int64 `json:"end_datetime"`
}

func (s *Source) Fetch(ctx context.Context, w domain.QueryWindow) (domain.Series, error) {
	if err := w.Validate(); err != nil {
		return domain.Series{}, err
	}
	start, end := w.EpochSeconds()
	body, err := json.Marshal(request{StartDatetime: start, EndDatetime: end})
	if err != nil {
		return domain.Series{}, fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.url, bytes.NewReader(body))
	if err != nil {
		return domain.Series{}, &domain.UpstreamError{Kind: domain.UpstreamNetwork, Message: "build request", Err: err}
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	for k, v := range s.cfg.Headers {
		req.Header.Set(k, v)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return domain.Series{}, &domain.UpstreamError{Kind: domain.UpstreamNetwork, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return domain.Series{}, &domain.UpstreamError{
			Kind:       domain.UpstreamStatus,
			StatusCode: resp.StatusCode,
			Message:    errorMessage(raw),
		}
	}

	rows, err := decodeRows(resp.Body)
	if err != nil {
		return domain.Series{}, err
	}
	return normalize.Rows(s.dec, rows)
}

// decodeRows accepts a bare array of objects or an object holding it under
// rows, data or items. Array elements that are not objects become empty rows
// so the decoder drops and counts them.
func decodeRows(r io.Reader) ([]map[string]any, error) {
	dec := json.NewDecoder(r)
	dec.UseNumber()
	var payload any
	if err := dec.Decode(&payload); err != nil {
		return nil, &domain.UpstreamError{Kind: domain.UpstreamPayload, Message: "response is not JSON", Err: err}
	}

	var items []any
	switch v := payload.(type) {
	case []any:
		items = v
	case map[string]any:
		for _, key := range []string{"rows", "data", "items"} {
			if arr, ok := v[key].([]any); ok {
				items = arr
				break
			}
		}
		if items == nil {
			if msg, ok := v["error"].(string); ok {
				return nil, &domain.UpstreamError{Kind: domain.UpstreamPayload, Message: msg}
			}
			return nil, &domain.UpstreamError{Kind: domain.UpstreamPayload, Message: "response object holds no row array"}
		}
	default:
		return nil, &domain.UpstreamError{Kind: domain.UpstreamPayload, Message: fmt.Sprintf("unexpected response type %T", payload)}
	}

	rows := make([]map[string]any, len(items))
	for i, item := range items {
		if obj, ok := item.(map[string]any); ok {
			rows[i] = obj
		}
	}
	return rows, nil
}

func errorMessage(raw []byte) string {
	var body struct {
		Error string `json:"error"`
	}
	if err := json.Unmarshal(raw, &body); err == nil && body.Error != "" {
		return body.Error
	}
	return strings.TrimSpace(string(raw))
}

var _ ports.SeriesSource = (*Source)(nil)
