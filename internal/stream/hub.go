package stream

import (
	"log/slog"
	"sync"

	"github.com/logtrail/logtrail/internal/model"
)

// Conn is the minimal surface Hub needs from a live connection: anything
// that can push a JSON-encodable value to one client. *websocket.Conn
// satisfies it.
type Conn interface {
	WriteJSON(v any) error
}

// Hub tracks active query-stream connections so the anomaly detector can
// broadcast alerts to all of them, same as the original's module-level
// active_connections list plus broadcast_alert.
type Hub struct {
	mu     sync.Mutex
	conns  map[Conn]struct{}
	logger *slog.Logger
}

func NewHub(logger *slog.Logger) *Hub {
	if logger == nil {
		logger = slog.Default()
	}
	return &Hub{conns: make(map[Conn]struct{}), logger: logger}
}

// Register adds c to the broadcast set.
func (h *Hub) Register(c Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.conns[c] = struct{}{}
}

// Unregister removes c from the broadcast set. Safe to call more than
// once for the same connection.
func (h *Hub) Unregister(c Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.conns, c)
}

// Len returns the number of currently registered connections.
func (h *Hub) Len() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.conns)
}

// Broadcast sends alert to every registered connection, dropping any
// connection whose write fails.
func (h *Hub) Broadcast(alert model.Alert) {
	h.mu.Lock()
	conns := make([]Conn, 0, len(h.conns))
	for c := range h.conns {
		conns = append(conns, c)
	}
	h.mu.Unlock()

	payload := map[string]any{
		"type":      "alert",
		"alert":     alert.Type,
		"severity":  alert.Severity,
		"message":   alert.Message,
		"data":      alert.Data,
		"timestamp": alert.Timestamp,
	}

	var dead []Conn
	success, failed := 0, 0
	for _, c := range conns {
		if err := c.WriteJSON(payload); err != nil {
			h.logger.Warn("failed to send alert to client", "error", err)
			dead = append(dead, c)
			failed++
			continue
		}
		success++
	}

	if len(dead) > 0 {
		h.mu.Lock()
		for _, c := range dead {
			delete(h.conns, c)
		}
		h.mu.Unlock()
	}

	h.mu.Lock()
	remaining := len(h.conns)
	h.mu.Unlock()

	h.logger.Info("alert broadcast complete",
		"success", success, "failed", failed, "active_connections", remaining)
}
