// Package channel fans out entity state change events to the live
// duplex connections subscribed to one actor instance. Delivery is
// best-effort: a connection whose send fails is pruned, never retried.
package channel

import (
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/creastat/statehub"
)

// Conn is the subset of *websocket.Conn the manager needs. Tests
// substitute in-process fakes.
type Conn interface {
	WriteMessage(messageType int, data []byte) error
	Close() error
}

// Option is a functional option for configuring a Manager.
type Option func(*Manager)

// WithLogger sets the logger. Defaults to slog.Default.
func WithLogger(logger *slog.Logger) Option {
	return func(m *Manager) {
		m.logger = logger
	}
}

// WithClock sets the time source for frame timestamps.
func WithClock(now func() time.Time) Option {
	return func(m *Manager) {
		m.now = now
	}
}

// Manager tracks the live connections subscribed to one actor instance.
// All sends are serialized through the manager mutex; websocket
// connections do not allow concurrent writers.
type Manager struct {
	mu     sync.Mutex
	conns  map[string]Conn
	logger *slog.Logger
	now    func() time.Time
}

// NewManager creates an empty connection manager.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		conns:  make(map[string]Conn),
		logger: slog.Default(),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Register adds a connection and immediately sends it the full state
// snapshot. Returns the connection id used for HandleFrame/Deregister.
func (m *Manager) Register(conn Conn, snap ConnectedFrame) string {
	id := uuid.NewString()

	snap.Type = FrameConnected
	snap.Timestamp = m.now()
	if snap.Sessions == nil {
		snap.Sessions = []*statehub.Session{}
	}
	if snap.Context == nil {
		snap.Context = map[string]any{}
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	m.conns[id] = conn
	m.send(id, conn, snap)
	return id
}

// Deregister removes a connection without closing it; the caller owns
// the underlying socket lifecycle on a clean disconnect.
func (m *Manager) Deregister(id string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.conns, id)
}

// Count returns the number of live connections.
func (m *Manager) Count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.conns)
}

// HandleFrame dispatches an inbound frame from a subscriber. Malformed
// or unknown frames are answered with an inline error frame; the
// connection stays open.
func (m *Manager) HandleFrame(id string, raw []byte) {
	m.mu.Lock()
	defer m.mu.Unlock()

	conn, ok := m.conns[id]
	if !ok {
		return
	}

	var frame ClientFrame
	if err := json.Unmarshal(raw, &frame); err != nil {
		m.send(id, conn, Frame{Type: FrameError, Data: errorData{Message: "invalid JSON"}, Timestamp: m.now()})
		return
	}

	switch frame.Type {
	case FrameSubscribe:
		m.send(id, conn, Frame{Type: FrameSubscribed, Timestamp: m.now()})
	case FramePing:
		m.send(id, conn, Frame{Type: FramePong, Timestamp: m.now()})
	default:
		m.send(id, conn, Frame{Type: FrameError, Data: errorData{Message: "unknown type: " + frame.Type}, Timestamp: m.now()})
	}
}

// Broadcast sends a {type, data, timestamp} frame to every live
// connection. Connections whose send fails are dropped.
func (m *Manager) Broadcast(eventType string, data any) {
	m.mu.Lock()
	defer m.mu.Unlock()

	frame := Frame{Type: eventType, Data: data, Timestamp: m.now()}
	for id, conn := range m.conns {
		m.send(id, conn, frame)
	}
}

// CloseAll closes and removes every connection, used when the owning
// actor shuts down.
func (m *Manager) CloseAll() {
	m.mu.Lock()
	defer m.mu.Unlock()

	for id, conn := range m.conns {
		_ = conn.Close()
		delete(m.conns, id)
	}
}

// send marshals and writes one frame, pruning the connection on
// failure. Callers must hold the mutex.
func (m *Manager) send(id string, conn Conn, frame any) {
	b, err := json.Marshal(frame)
	if err != nil {
		m.logger.Error("frame marshal failed", "error", err)
		return
	}
	if err := conn.WriteMessage(websocket.TextMessage, b); err != nil {
		m.logger.Debug("dropping dead connection", "conn_id", id, "error", err)
		delete(m.conns, id)
		_ = conn.Close()
	}
}
