package statehub

import "time"

// Session states. A session is active until its expiry passes; expired
// sessions are removed lazily on read or by the periodic sweep.
const (
	SessionStateActive  = "active"
	SessionStateExpired = "expired"
)

// Session represents one client session owned by an entity. Multiple
// sessions may exist per entity at the same time.
type Session struct {
	ID               string         `json:"id"`
	EntityID         string         `json:"entity_id"`
	CreatedAt        time.Time      `json:"created_at"`
	UpdatedAt        time.Time      `json:"updated_at"`
	ExpiresAt        time.Time      `json:"expires_at"`
	Metadata         map[string]any `json:"metadata,omitempty"`
	State            string         `json:"state"`
	InteractionCount int            `json:"interaction_count"`
}

// Expired reports whether the session's expiry has passed at the given time.
func (s *Session) Expired(now time.Time) bool {
	return now.After(s.ExpiresAt)
}

// DecisionRecord is one entry in an entity's bounded decision log.
// The payload is opaque to this package.
type DecisionRecord struct {
	Timestamp time.Time `json:"timestamp"`
	EntityID  string    `json:"entity_id"`
	Payload   any       `json:"payload"`
}

// WorkingSet is the full in-memory state for one entity: all sessions,
// the decision log (oldest first), and the context map. It is also the
// unit of durable persistence: every mutation serializes the entire
// working set back to the store.
type WorkingSet struct {
	Sessions      map[string]*Session `json:"sessions"`
	Decisions     []DecisionRecord    `json:"decisions"`
	Context       map[string]any      `json:"context"`
	ContextUpdate time.Time           `json:"context_updated,omitzero"`
	LastPersisted time.Time           `json:"last_persisted,omitzero"`
}

// NewWorkingSet returns an empty working set.
func NewWorkingSet() *WorkingSet {
	return &WorkingSet{
		Sessions: make(map[string]*Session),
		Context:  make(map[string]any),
	}
}
