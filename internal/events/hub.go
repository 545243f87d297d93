// Package events pushes session events to browsers over WebSocket.
package events

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"sync"

	"github.com/claude/trailog/internal/session"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

var (
	ErrEmptyConn      = errors.New("connection is empty")
	ErrConnIsNotFound = errors.New("connection not found")
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(*http.Request) bool { return true },
}

// Hub tracks live connections and fans session events out to them.
// It implements session.Notifier.
type Hub struct {
	clients map[uuid.UUID]*Conn
	log     *slog.Logger
	mu      sync.Mutex
	wg      sync.WaitGroup
}

func NewHub(log *slog.Logger) *Hub {
	return &Hub{
		clients: make(map[uuid.UUID]*Conn),
		log:     log,
	}
}

// Add registers a connection and starts its writer.
func (h *Hub) Add(c *Conn) error {
	if c == nil {
		return ErrEmptyConn
	}
	h.mu.Lock()
	defer h.mu.Unlock()

	h.clients[c.id] = c
	h.wg.Add(1)
	go func() {
		defer h.wg.Done()
		if err := c.writeLoop(); err != nil {
			h.log.Debug("websocket writer stopped", "client", c.id, "error", err)
		}
	}()
	return nil
}

// Delete closes and removes the connection with the given id.
func (h *Hub) Delete(id uuid.UUID) error {
	h.mu.Lock()
	c, ok := h.clients[id]
	delete(h.clients, id)
	h.mu.Unlock()

	if !ok {
		return ErrConnIsNotFound
	}
	if err := c.Close(); err != nil {
		h.log.Warn("closing websocket", "client", id, "error", err)
	}
	return nil
}

// Notify broadcasts e to every client. A client whose queue is full is
// dropped instead of blocking the caller.
func (h *Hub) Notify(e session.Event) {
	msg, err := json.Marshal(e)
	if err != nil {
		h.log.Error("encoding event", "type", e.Type, "error", err)
		return
	}

	h.mu.Lock()
	var slow []uuid.UUID
	for id, c := range h.clients {
		if !c.enqueue(msg) {
			slow = append(slow, id)
		}
	}
	h.mu.Unlock()

	for _, id := range slow {
		h.log.Warn("dropping slow websocket client", "client", id)
		_ = h.Delete(id)
	}
}

// Len reports the number of connected clients.
func (h *Hub) Len() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

// ServeHTTP upgrades the request and keeps the connection registered
// until the client goes away.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ws, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Warn("websocket upgrade failed", "error", err)
		return
	}

	c := NewConn(uuid.New(), ws)
	if err := h.Add(c); err != nil {
		ws.Close()
		return
	}
	h.log.Info("websocket client connected", "client", c.id, "clients", h.Len())

	err = c.readLoop()
	_ = h.Delete(c.id)
	h.log.Info("websocket client disconnected", "client", c.id, "reason", err)
}

// Close disconnects every client and waits for their writers to exit.
func (h *Hub) Close() {
	h.mu.Lock()
	ids := make([]uuid.UUID, 0, len(h.clients))
	for id := range h.clients {
		ids = append(ids, id)
	}
	h.mu.Unlock()

	for _, id := range ids {
		_ = h.Delete(id)
	}
	h.wg.Wait()
	h.log.Info("all websocket connections closed")
}
