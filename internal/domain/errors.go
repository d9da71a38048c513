package domain

import "fmt"

type UpstreamKind string

const (
	UpstreamNetwork            UpstreamKind = "network"
	UpstreamStatus             UpstreamKind = "status"
	UpstreamPayload            UpstreamKind = "payload"
	UpstreamEmptyOrUnparseable UpstreamKind = "empty_or_unparseable"
)

// UpstreamError reports a failed fetch. Subscribers receive it as an error
// event; recurring refresh keeps going.
type UpstreamError struct {
	Kind       UpstreamKind
	StatusCode int
	Message    string
	Err        error
}

func (e *UpstreamError) Error() string {
	msg := "upstream " + string(e.Kind)
	if e.StatusCode != 0 {
		msg += fmt.Sprintf(" (status %d)", e.StatusCode)
	}
	if e.Message != "" {
		msg += ": " + e.Message
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *UpstreamError) Unwrap() error { return e.Err }
