package httpapi

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/ghalamif/LineFlow/internal/adapters/queue"
	"github.com/ghalamif/LineFlow/internal/ports"
)

const writeWait = 10 * time.Second

// Hub fans scheduler events out to websocket clients. Each client drains its
// own bounded queue so a slow browser never blocks the scheduler.
type Hub struct {
	pol ports.QueuePolicy
	obs ports.Observability

	mu      sync.Mutex
	seq     ports.EventSeq
	clients map[*client]struct{}
	closed  bool
}

func NewHub(pol ports.QueuePolicy, obs ports.Observability) *Hub {
	if pol.MaxQueueLen <= 0 {
		pol.MaxQueueLen = 16
	}
	if pol.MaxBatchSize <= 0 {
		pol.MaxBatchSize = pol.MaxQueueLen
	}
	if pol.IdleSleep <= 0 {
		pol.IdleSleep = 50 * time.Millisecond
	}
	if pol.OnQueueFull == "" {
		pol.OnQueueFull = "drop"
	}
	return &Hub{pol: pol, obs: obs, clients: make(map[*client]struct{})}
}

// Notify encodes the event once and queues it for every client.
func (h *Hub) Notify(ev ports.Event) {
	payload, err := json.Marshal(ev)
	if err != nil {
		h.obs.LogError("ws_encode_failed", err, ports.Field{Key: "run_id", Value: ev.RunID})
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	h.seq++
	for c := range h.clients {
		if !c.queue.Enqueue(h.seq, payload) {
			h.obs.IncCounter("lineflow_ws_events_dropped_total", 1)
		}
	}
}

// Register starts the writer and reader of conn and returns once both are running.
func (h *Hub) Register(conn *websocket.Conn) {
	c := &client{
		conn:  conn,
		queue: queue.NewMemQueue(h.pol.MaxQueueLen, h.pol.OnQueueFull),
		done:  make(chan struct{}),
	}

	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		_ = conn.Close()
		return
	}
	h.clients[c] = struct{}{}
	n := len(h.clients)
	h.mu.Unlock()
	h.obs.SetGauge("lineflow_ws_clients", float64(n))

	go c.writeLoop(h.pol)
	go func() {
		c.readLoop()
		h.unregister(c)
	}()
}

func (h *Hub) unregister(c *client) {
	h.mu.Lock()
	delete(h.clients, c)
	n := len(h.clients)
	h.mu.Unlock()
	c.close()
	h.obs.SetGauge("lineflow_ws_clients", float64(n))
}

// Len returns the number of connected clients.
func (h *Hub) Len() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

// Close disconnects every client and rejects new ones.
func (h *Hub) Close() {
	h.mu.Lock()
	h.closed = true
	clients := make([]*client, 0, len(h.clients))
	for c := range h.clients {
		clients = append(clients, c)
	}
	h.mu.Unlock()
	for _, c := range clients {
		c.close()
	}
}

var _ ports.Subscriber = (*Hub)(nil)
