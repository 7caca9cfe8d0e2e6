// Package actor implements the per-entity session-state actor and the
// router that guarantees a single live instance per entity identifier.
//
// An actor owns the working set for one entity: its sessions, its
// bounded decision log and its context map. Every mutation persists the
// full working set to the durable store and broadcasts a change event to
// live subscribers. Operations on one actor are serialized by a mutex;
// actors for different entities run fully in parallel.
package actor

import (
	"context"
	"encoding/json"
	"sort"
	"sync"
	"time"

	"github.com/creastat/statehub"
	"github.com/creastat/statehub/channel"
	"github.com/creastat/statehub/scheduler"
	"github.com/creastat/statehub/store"
)

// Actor holds and mutates the working set for one entity. It is the
// single point of truth for that entity while loaded.
type Actor struct {
	entityID string
	cfg      settings

	mu           sync.Mutex
	ws           *statehub.WorkingSet
	initialized  bool
	lastActivity time.Time
	idleTimer    *time.Timer

	db       store.Store
	sched    scheduler.Scheduler
	channels *channel.Manager
}

// New creates an actor for the given entity. State is loaded lazily on
// the first operation. The periodic sweep wake-up is armed immediately
// if none is pending.
func New(entityID string, db store.Store, opts ...Option) *Actor {
	cfg := defaultSettings()
	for _, opt := range opts {
		opt(&cfg)
	}

	a := &Actor{
		entityID: entityID,
		cfg:      cfg,
		ws:       statehub.NewWorkingSet(),
		db:       db,
		channels: channel.NewManager(
			channel.WithLogger(cfg.logger.With("entity_id", entityID)),
			channel.WithClock(cfg.now),
		),
	}
	a.sched = cfg.newScheduler(a.onWake)

	if wake, err := a.sched.Wake(context.Background()); err == nil && wake.IsZero() {
		if err := a.sched.SetWake(context.Background(), cfg.now().Add(cfg.sweepInterval)); err != nil {
			cfg.logger.Error("failed to arm sweep", "entity_id", entityID, "error", err)
		}
	}
	return a
}

// EntityID returns the entity identifier this actor owns.
func (a *Actor) EntityID() string {
	return a.entityID
}

// CreateSession creates a session with the given id and metadata. The
// session expires after the configured TTL. An existing session with the
// same id is replaced.
func (a *Actor) CreateSession(ctx context.Context, id string, metadata map[string]any) (*statehub.Session, error) {
	if id == "" {
		return nil, statehub.ErrInvalidInput
	}

	a.mu.Lock()
	defer a.mu.Unlock()
	a.ensureInit(ctx)

	now := a.cfg.now()
	sess := &statehub.Session{
		ID:        id,
		EntityID:  a.entityID,
		CreatedAt: now,
		UpdatedAt: now,
		ExpiresAt: now.Add(a.cfg.sessionTTL),
		Metadata:  metadata,
		State:     statehub.SessionStateActive,
	}
	a.ws.Sessions[id] = sess

	a.touch(now)
	a.persist(ctx)
	a.channels.Broadcast(channel.EventSessionCreated, cloneSession(sess))
	return cloneSession(sess), nil
}

// UpdateSession merges the given fields into an existing session,
// increments its interaction count and refreshes its updated timestamp.
// Returns ErrNotFound for unknown or expired session ids.
func (a *Actor) UpdateSession(ctx context.Context, id string, upd Update) (*statehub.Session, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.ensureInit(ctx)

	now := a.cfg.now()
	sess, ok := a.ws.Sessions[id]
	if !ok || sess.Expired(now) {
		return nil, statehub.ErrNotFound
	}

	if upd.Metadata != nil {
		sess.Metadata = upd.Metadata
	}
	if upd.ExpiresAt != nil && upd.ExpiresAt.After(sess.ExpiresAt) {
		sess.ExpiresAt = *upd.ExpiresAt
	}
	sess.InteractionCount++
	sess.UpdatedAt = now

	a.touch(now)
	a.persist(ctx)
	a.channels.Broadcast(channel.EventSessionUpdated, cloneSession(sess))
	return cloneSession(sess), nil
}

// GetSession returns a session by id. Expired sessions are reported as
// not found; they remain in the persisted map until a cleanup or sweep
// removes them. Pure read: no persistence, no broadcast.
func (a *Actor) GetSession(ctx context.Context, id string) (*statehub.Session, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.ensureInit(ctx)

	now := a.cfg.now()
	sess, ok := a.ws.Sessions[id]
	if !ok || sess.Expired(now) {
		return nil, statehub.ErrNotFound
	}
	a.resetIdle()
	return cloneSession(sess), nil
}

// ListSessions returns all non-expired sessions sorted by updated
// timestamp, most recent first. Pure read.
func (a *Actor) ListSessions(ctx context.Context) ([]*statehub.Session, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.ensureInit(ctx)

	now := a.cfg.now()
	out := make([]*statehub.Session, 0, len(a.ws.Sessions))
	for _, sess := range a.ws.Sessions {
		if sess.Expired(now) {
			continue
		}
		out = append(out, cloneSession(sess))
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].UpdatedAt.After(out[j].UpdatedAt)
	})

	a.resetIdle()
	return out, nil
}

// AddDecision appends a record to the decision log, evicting the oldest
// record if the log is over its cap.
func (a *Actor) AddDecision(ctx context.Context, payload any) (*statehub.DecisionRecord, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.ensureInit(ctx)

	now := a.cfg.now()
	rec := statehub.DecisionRecord{
		Timestamp: now,
		EntityID:  a.entityID,
		Payload:   payload,
	}
	a.ws.Decisions = statehub.TrimDecisions(append(a.ws.Decisions, rec), a.cfg.decisionCap)

	a.touch(now)
	a.persist(ctx)
	a.channels.Broadcast(channel.EventDecisionAdded, rec)
	return &rec, nil
}

// ListDecisions returns the most recent limit records in stored order,
// most recent last. A non-positive limit selects the default.
func (a *Actor) ListDecisions(ctx context.Context, limit int) ([]statehub.DecisionRecord, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.ensureInit(ctx)

	if limit <= 0 {
		limit = a.cfg.decisionLimit
	}
	recent := statehub.RecentDecisions(a.ws.Decisions, limit)
	out := make([]statehub.DecisionRecord, len(recent))
	copy(out, recent)

	a.resetIdle()
	return out, nil
}

// SetContext sets a context key. Last write wins; the map-wide updated
// marker is refreshed.
func (a *Actor) SetContext(ctx context.Context, key string, value any) error {
	if key == "" {
		return statehub.ErrInvalidInput
	}

	a.mu.Lock()
	defer a.mu.Unlock()
	a.ensureInit(ctx)

	now := a.cfg.now()
	a.ws.Context[key] = value
	a.ws.ContextUpdate = now

	a.touch(now)
	a.persist(ctx)
	a.channels.Broadcast(channel.EventContextUpdated, map[string]any{
		"key":     key,
		"value":   value,
		"updated": now,
	})
	return nil
}

// GetContext returns the value for a context key, or ErrNotFound if the
// key is absent. Pure read.
func (a *Actor) GetContext(ctx context.Context, key string) (any, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.ensureInit(ctx)

	value, ok := a.ws.Context[key]
	if !ok {
		return nil, statehub.ErrNotFound
	}
	a.resetIdle()
	return value, nil
}

// ContextMap returns a copy of the whole context map. Pure read.
func (a *Actor) ContextMap(ctx context.Context) (map[string]any, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.ensureInit(ctx)

	out := make(map[string]any, len(a.ws.Context))
	for k, v := range a.ws.Context {
		out[k] = v
	}
	a.resetIdle()
	return out, nil
}

// Metrics returns a point-in-time view of the working set. No side
// effects beyond resetting the idle timer.
func (a *Actor) Metrics(ctx context.Context) (Metrics, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.ensureInit(ctx)

	now := a.cfg.now()
	active := 0
	for _, sess := range a.ws.Sessions {
		if !sess.Expired(now) {
			active++
		}
	}

	a.resetIdle()
	return Metrics{
		EntityID:             a.entityID,
		ActiveSessions:       active,
		TotalDecisions:       len(a.ws.Decisions),
		ContextKeys:          len(a.ws.Context),
		Subscribers:          a.channels.Count(),
		LastActivity:         a.lastActivity,
		ApproxFootprintBytes: statehub.EstimateFootprint(a.ws),
	}, nil
}

// CleanupExpired removes sessions whose expiry has passed. Persists only
// if something changed and broadcasts the cleaned count.
func (a *Actor) CleanupExpired(ctx context.Context) (CleanupResult, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.ensureInit(ctx)

	now := a.cfg.now()
	res := a.removeExpired(now)

	a.touch(now)
	if res.Cleaned > 0 {
		a.persist(ctx)
	}
	a.channels.Broadcast(channel.EventCleanup, res)
	return res, nil
}

// Sweep performs the periodic cleanup pass: expired sessions are
// removed, decision records older than the retention window are purged,
// and the next wake-up is re-armed before returning. Normally invoked by
// the scheduler.
func (a *Actor) Sweep(ctx context.Context) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.ensureInit(ctx)

	now := a.cfg.now()
	changed := a.removeExpired(now).Cleaned > 0

	before := len(a.ws.Decisions)
	a.ws.Decisions = statehub.PurgeDecisionsBefore(a.ws.Decisions, now.Add(-a.cfg.decisionRetention))
	if len(a.ws.Decisions) != before {
		changed = true
	}

	if changed {
		a.persist(ctx)
	}

	if err := a.sched.SetWake(ctx, now.Add(a.cfg.sweepInterval)); err != nil {
		a.cfg.logger.Error("failed to re-arm sweep", "entity_id", a.entityID, "error", err)
	}
}

// Subscribe registers a live connection and sends it the current state
// snapshot. Returns the connection id.
func (a *Actor) Subscribe(conn channel.Conn) string {
	a.mu.Lock()
	a.ensureInit(context.Background())

	now := a.cfg.now()
	sessions := make([]*statehub.Session, 0, len(a.ws.Sessions))
	for _, sess := range a.ws.Sessions {
		if !sess.Expired(now) {
			sessions = append(sessions, cloneSession(sess))
		}
	}
	contextCopy := make(map[string]any, len(a.ws.Context))
	for k, v := range a.ws.Context {
		contextCopy[k] = v
	}
	a.resetIdle()
	a.mu.Unlock()

	return a.channels.Register(conn, channel.ConnectedFrame{
		Sessions: sessions,
		Context:  contextCopy,
	})
}

// Unsubscribe removes a live connection.
func (a *Actor) Unsubscribe(id string) {
	a.channels.Deregister(id)
}

// HandleFrame dispatches an inbound frame from a subscriber.
func (a *Actor) HandleFrame(id string, raw []byte) {
	a.channels.HandleFrame(id, raw)
}

// Subscribers returns the number of live connections.
func (a *Actor) Subscribers() int {
	return a.channels.Count()
}

// Close stops the sweep scheduler and idle timer and closes all live
// connections. Durable state already reflects the last persisted
// mutation, so nothing is saved here.
func (a *Actor) Close() {
	a.sched.Stop()

	a.mu.Lock()
	if a.idleTimer != nil {
		a.idleTimer.Stop()
		a.idleTimer = nil
	}
	a.mu.Unlock()

	a.channels.CloseAll()
}

// onWake adapts the scheduler callback to a sweep.
func (a *Actor) onWake() {
	a.Sweep(context.Background())
}

// ensureInit lazily loads the persisted working set. Runs at most once
// per actor instance; a failed load is logged and the actor proceeds
// with empty state rather than retrying. Callers must hold the mutex.
func (a *Actor) ensureInit(ctx context.Context) {
	if a.initialized {
		return
	}
	a.initialized = true

	blob, err := a.db.Get(ctx, a.entityID)
	if err != nil {
		a.cfg.logger.Error("failed to load working set, starting empty",
			"entity_id", a.entityID, "error", err)
		return
	}
	if blob == nil {
		return
	}

	var ws statehub.WorkingSet
	if err := json.Unmarshal(blob, &ws); err != nil {
		a.cfg.logger.Error("failed to decode working set, starting empty",
			"entity_id", a.entityID, "error", err)
		return
	}
	if ws.Sessions == nil {
		ws.Sessions = make(map[string]*statehub.Session)
	}
	if ws.Context == nil {
		ws.Context = make(map[string]any)
	}
	a.ws = &ws
}

// removeExpired deletes expired sessions from the working set. Callers
// must hold the mutex.
func (a *Actor) removeExpired(now time.Time) CleanupResult {
	var res CleanupResult
	for id, sess := range a.ws.Sessions {
		if sess.Expired(now) {
			delete(a.ws.Sessions, id)
			res.Cleaned++
		}
	}
	res.Remaining = len(a.ws.Sessions)
	return res
}

// persist serializes the entire working set to the durable store.
// Failures are logged and never roll back the in-memory mutation.
// Callers must hold the mutex.
func (a *Actor) persist(ctx context.Context) {
	a.ws.LastPersisted = a.cfg.now()
	blob, err := json.Marshal(a.ws)
	if err != nil {
		a.cfg.logger.Error("failed to encode working set", "entity_id", a.entityID, "error", err)
		return
	}
	if err := a.db.Put(ctx, a.entityID, blob); err != nil {
		a.cfg.logger.Error("failed to persist working set", "entity_id", a.entityID, "error", err)
	}
}

// touch records mutation activity and resets the idle timer. Callers
// must hold the mutex.
func (a *Actor) touch(now time.Time) {
	a.lastActivity = now
	a.resetIdle()
}

// resetIdle restarts the idle-hibernation timer. Callers must hold the
// mutex.
func (a *Actor) resetIdle() {
	if a.cfg.idleTimeout <= 0 || a.cfg.onIdle == nil {
		return
	}
	if a.idleTimer != nil {
		a.idleTimer.Stop()
	}
	a.idleTimer = time.AfterFunc(a.cfg.idleTimeout, func() {
		a.cfg.onIdle(a.entityID)
	})
}

// cloneSession returns a copy safe to hand to callers and broadcasts
// after the actor mutex is released.
func cloneSession(sess *statehub.Session) *statehub.Session {
	cp := *sess
	if sess.Metadata != nil {
		cp.Metadata = make(map[string]any, len(sess.Metadata))
		for k, v := range sess.Metadata {
			cp.Metadata[k] = v
		}
	}
	return &cp
}
