// Package gateway serves backtest runs over HTTP and streams live equity
// curves to WebSocket clients.
package gateway

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/overcomerlin/hybrid-backtest/internal/model"
	"github.com/overcomerlin/hybrid-backtest/internal/ringbuf"
)

// Hub manages WebSocket clients and fans out equity points produced by
// running backtests.
type Hub struct {
	mu      sync.RWMutex
	clients map[*Client]bool

	latestRun   *model.RunRecord
	latestCurve []float64

	// Optional callbacks for metrics wiring
	OnClientChange func(count int)
}

// NewHub creates a new Hub with no connected clients.
func NewHub() *Hub {
	return &Hub{
		clients: make(map[*Client]bool),
	}
}

// AddClient registers a client and starts its pumps.
func (h *Hub) AddClient(c *Client) {
	h.mu.Lock()
	h.clients[c] = true
	count := len(h.clients)
	h.mu.Unlock()

	log.Printf("[gateway] ws client connected (%d total)", count)
	if h.OnClientChange != nil {
		h.OnClientChange(count)
	}

	go c.writePump()
	go c.readPump()
}

// RemoveClient removes a client from the hub and closes its send queue.
func (h *Hub) RemoveClient(c *Client) {
	h.mu.Lock()
	if !h.clients[c] {
		h.mu.Unlock()
		return
	}
	delete(h.clients, c)
	count := len(h.clients)
	h.mu.Unlock()

	close(c.send)
	if h.OnClientChange != nil {
		h.OnClientChange(count)
	}
}

// Broadcast queues a message to every connected client. Slow clients are
// skipped rather than blocking the fan-out.
func (h *Hub) Broadcast(msg []byte) {
	h.mu.RLock()
	for client := range h.clients {
		select {
		case client.send <- msg:
		default:
		}
	}
	h.mu.RUnlock()
}

// BroadcastPoint sends one equity point to all clients.
func (h *Hub) BroadcastPoint(pt model.EquityPoint) {
	h.Broadcast(pt.JSON())
}

// SetLatest records the most recently completed run and its curve for the
// REST snapshot endpoint.
func (h *Hub) SetLatest(rec model.RunRecord, curve []float64) {
	h.mu.Lock()
	h.latestRun = &rec
	h.latestCurve = curve
	h.mu.Unlock()
}

// Latest returns the most recent run record and equity curve, or nil if no
// run has completed yet.
func (h *Hub) Latest() (*model.RunRecord, []float64) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.latestRun, h.latestCurve
}

// ClientCount returns the number of connected WS clients.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// StreamFromRing drains equity points from the ring and broadcasts them.
// Blocks until ctx is cancelled. The ring is single-consumer: only one
// StreamFromRing loop may run per ring.
func (h *Hub) StreamFromRing(ctx context.Context, ring *ringbuf.Ring) {
	idle := time.NewTicker(5 * time.Millisecond)
	defer idle.Stop()

	for {
		drained := 0
		for {
			pt, ok := ring.Pop()
			if !ok {
				break
			}
			h.BroadcastPoint(pt)
			drained++
			if drained >= 4096 {
				break
			}
		}

		select {
		case <-ctx.Done():
			return
		case <-idle.C:
		}
	}
}
