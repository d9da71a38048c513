package ports

import "github.com/ghalamif/LineFlow/internal/domain"

type EventKind string

const (
	EventResult EventKind = "result"
	EventError  EventKind = "error"
)

// Event is what the scheduler hands to subscribers after each run.
type Event struct {
	Kind   EventKind          `json:"kind"`
	RunID  string             `json:"run_id,omitempty"`
	Window domain.QueryWindow `json:"window"`
	Status string             `json:"status,omitempty"`
	Result *domain.Result     `json:"result,omitempty"`
	Error  string             `json:"error,omitempty"`
	Err    error              `json:"-"`
}

type Subscriber interface {
	Notify(Event)
}

// SubscriberFunc adapts a plain function.
type SubscriberFunc func(Event)

func (f SubscriberFunc) Notify(e Event) { f(e) }
