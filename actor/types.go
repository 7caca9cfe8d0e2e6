package actor

import "time"

// Update carries the fields a session update may change. Nil fields are
// left untouched.
type Update struct {
	// Metadata replaces the session's metadata map when non-nil.
	Metadata map[string]any `json:"metadata,omitempty"`
	// ExpiresAt extends the session expiry when non-nil. Expiry never
	// decreases; an earlier time is ignored.
	ExpiresAt *time.Time `json:"expires_at,omitempty"`
}

// Metrics is a point-in-time view of one actor's working set.
type Metrics struct {
	EntityID             string    `json:"entity_id"`
	ActiveSessions       int       `json:"active_sessions"`
	TotalDecisions       int       `json:"total_decisions"`
	ContextKeys          int       `json:"context_keys"`
	Subscribers          int       `json:"subscribers"`
	LastActivity         time.Time `json:"last_activity,omitzero"`
	ApproxFootprintBytes int       `json:"approx_footprint_bytes"`
}

// CleanupResult reports the outcome of an expiry cleanup pass.
type CleanupResult struct {
	Cleaned   int `json:"cleaned_count"`
	Remaining int `json:"remaining"`
}
