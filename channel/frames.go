package channel

import (
	"encoding/json"
	"time"

	"github.com/creastat/statehub"
)

// Event type constants for frames exchanged with real-time subscribers.
const (
	// Client → server frame types
	FrameSubscribe = "subscribe"
	FramePing      = "ping"

	// Server → client frame types
	FrameConnected  = "connected"
	FrameSubscribed = "subscribed"
	FramePong       = "pong"
	FrameError      = "error"

	// Broadcast event types
	EventSessionCreated = "session_created"
	EventSessionUpdated = "session_updated"
	EventDecisionAdded  = "decision_added"
	EventContextUpdated = "context_updated"
	EventCleanup        = "cleanup"
)

// ClientFrame is an inbound frame from a subscriber.
type ClientFrame struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data,omitempty"`
}

// Frame is an outbound frame to a subscriber. Server→client frames
// always carry a timestamp.
type Frame struct {
	Type      string    `json:"type"`
	Data      any       `json:"data,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// ConnectedFrame is the full state snapshot sent immediately after a
// subscriber connects.
type ConnectedFrame struct {
	Type      string              `json:"type"`
	Sessions  []*statehub.Session `json:"sessions"`
	Context   map[string]any      `json:"context"`
	Timestamp time.Time           `json:"timestamp"`
}

// errorData is the payload of an inline error frame.
type errorData struct {
	Message string `json:"message"`
}
