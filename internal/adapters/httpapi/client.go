package httpapi

import (
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/ghalamif/LineFlow/internal/ports"
)

type client struct {
	conn  *websocket.Conn
	queue ports.EventQueue
	done  chan struct{}
	once  sync.Once
}

// writeLoop polls the queue and writes each payload as one text frame.
func (c *client) writeLoop(pol ports.QueuePolicy) {
	ticker := time.NewTicker(pol.IdleSleep)
	defer ticker.Stop()

	for {
		for {
			batch := c.queue.DequeueBatch(pol.MaxBatchSize)
			if len(batch) == 0 {
				break
			}
			for _, ev := range batch {
				_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
				if err := c.conn.WriteMessage(websocket.TextMessage, ev.Payload); err != nil {
					c.close()
					return
				}
			}
		}
		select {
		case <-c.done:
			return
		case <-ticker.C:
		}
	}
}

// readLoop discards inbound frames; it returns when the peer goes away.
func (c *client) readLoop() {
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (c *client) close() {
	c.once.Do(func() {
		close(c.done)
		_ = c.conn.Close()
	})
}
