package lineflow

import (
	"sync"
)

// NewCallbackSubscriber adapts a function into a Subscriber. A nil function
// ignores events.
func NewCallbackSubscriber(fn func(Event)) Subscriber {
	return SubscriberFunc(func(ev Event) {
		if fn != nil {
			fn(ev)
		}
	})
}

// NewChannelSubscriber exposes events via a channel; it returns the
// subscriber, the read-only channel, and a close function that the caller
// should invoke before shutting the runtime down. Notify blocks while the
// buffer is full, holding up the next run, until the event is read or the
// subscriber is closed.
//
// Warning: a reader that stops draining the channel without calling close
// stalls the scheduler, and every later refresh tick is skipped.
func NewChannelSubscriber(buffer int) (Subscriber, <-chan Event, func()) {
	if buffer < 0 {
		buffer = 0
	}
	s := &channelSubscriber{
		ch:     make(chan Event, buffer),
		closed: make(chan struct{}),
	}
	return s, s.ch, s.close
}

type channelSubscriber struct {
	mu     sync.RWMutex
	ch     chan Event
	closed chan struct{}
	once   sync.Once
}

func (s *channelSubscriber) Notify(ev Event) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	select {
	case <-s.closed:
		return
	default:
	}
	select {
	case <-s.closed:
	case s.ch <- ev:
	}
}

func (s *channelSubscriber) close() {
	s.once.Do(func() {
		close(s.closed)
		s.mu.Lock()
		close(s.ch)
		s.mu.Unlock()
	})
}
