package server

import (
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

const (
	writeWait  = 5 * time.Second
	sendBuffer = 64
)

type wsClient struct {
	conn *websocket.Conn
	send chan []byte
}

// hub fans frames out to every connected viewer. A client whose buffer is
// full misses frames rather than stalling the simulation.
type hub struct {
	mu      sync.RWMutex
	clients map[*wsClient]struct{}
	dropped uint64
}

func newHub() *hub { return &hub{clients: make(map[*wsClient]struct{})} }

func (h *hub) add(c *wsClient) { h.mu.Lock(); h.clients[c] = struct{}{}; h.mu.Unlock() }

func (h *hub) remove(c *wsClient) {
	h.mu.Lock()
	if _, ok := h.clients[c]; ok {
		delete(h.clients, c)
		close(c.send)
	}
	h.mu.Unlock()
}

func (h *hub) broadcast(b []byte) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for c := range h.clients {
		select {
		case c.send <- b:
		default:
			h.dropped++
		}
	}
}

// droppedFrames counts frames skipped for slow clients since start.
func (h *hub) droppedFrames() uint64 {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.dropped
}

func (h *hub) count() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// writeLoop drains the client's queue until the hub closes it.
func (c *wsClient) writeLoop() {
	for b := range c.send {
		_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
		if err := c.conn.WriteMessage(websocket.TextMessage, b); err != nil {
			return
		}
	}
	_ = c.conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
}
