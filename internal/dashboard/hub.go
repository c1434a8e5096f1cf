package dashboard

import (
	"context"
	"time"
)

// Frame is one dashboard socket message. Types mirror the event bus:
// "status", "log", "qr_code".
type Frame struct {
	Type string    `json:"type"`
	At   time.Time `json:"at"`
	Data any       `json:"data"`
}

// Hub fans frames out to all connected dashboard clients.
type Hub struct {
	register   chan *client
	unregister chan *client
	broadcast  chan Frame

	clients map[*client]struct{}
}

func newHub() *Hub {
	return &Hub{
		register:   make(chan *client),
		unregister: make(chan *client),
		broadcast:  make(chan Frame, 64),
		clients:    map[*client]struct{}{},
	}
}

func (h *Hub) run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			for c := range h.clients {
				close(c.send)
				delete(h.clients, c)
			}
			return
		case c := <-h.register:
			h.clients[c] = struct{}{}
		case c := <-h.unregister:
			if _, ok := h.clients[c]; ok {
				delete(h.clients, c)
				close(c.send)
			}
		case f := <-h.broadcast:
			for c := range h.clients {
				select {
				case c.send <- f:
				default:
					// Slow consumer: drop it rather than stall the hub.
					delete(h.clients, c)
					close(c.send)
				}
			}
		}
	}
}

// Broadcast queues a frame for all clients (non-blocking; drops when the
// hub itself is backed up).
func (h *Hub) Broadcast(f Frame) {
	if f.At.IsZero() {
		f.At = time.Now()
	}
	select {
	case h.broadcast <- f:
	default:
	}
}
