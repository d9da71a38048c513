package queue

import (
	"sync"

	"github.com/ghalamif/LineFlow/internal/ports"
)

// MemQueue is a bounded in-memory queue that preserves FIFO ordering.
type MemQueue struct {
	mu         sync.Mutex
	data       []ports.QueuedEvent
	cap        int
	dropOldest bool
}

// NewMemQueue returns a queue that rejects new events when full, or evicts
// the oldest one when onFull is "drop_oldest".
func NewMemQueue(capacity int, onFull string) *MemQueue {
	if capacity <= 0 {
		capacity = 1
	}
	return &MemQueue{
		data:       make([]ports.QueuedEvent, 0, capacity),
		cap:        capacity,
		dropOldest: onFull == "drop_oldest",
	}
}

// Enqueue reports whether the event was queued without losing another one.
func (q *MemQueue) Enqueue(seq ports.EventSeq, payload []byte) bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.data) >= q.cap {
		if !q.dropOldest {
			return false
		}
		q.data = append(q.data[:0], q.data[1:]...)
		q.data = append(q.data, ports.QueuedEvent{Seq: seq, Payload: payload})
		return false
	}
	q.data = append(q.data, ports.QueuedEvent{Seq: seq, Payload: payload})
	return true
}

func (q *MemQueue) DequeueBatch(max int) []ports.QueuedEvent {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.data) == 0 {
		return nil
	}
	if max <= 0 || max > len(q.data) {
		max = len(q.data)
	}
	out := make([]ports.QueuedEvent, max)
	copy(out, q.data[:max])
	q.data = append(q.data[:0], q.data[max:]...)
	return out
}

func (q *MemQueue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.data)
}

var _ ports.EventQueue = (*MemQueue)(nil)
