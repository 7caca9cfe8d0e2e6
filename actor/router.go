package actor

import (
	"hash/fnv"
	"log/slog"
	"sync"

	"github.com/creastat/statehub/store"
)

const routerShards = 16

// Router maps entity identifiers to live actor instances, creating them
// on first access. A sharded registry guarded by per-shard mutexes
// guarantees at most one live actor per entity at any time; this stands
// in for the single-instance-per-key guarantee a managed actor platform
// would provide.
type Router struct {
	db     store.Store
	opts   []Option
	logger *slog.Logger
	shards [routerShards]routerShard
}

type routerShard struct {
	mu     sync.Mutex
	actors map[string]*Actor
}

// NewRouter creates a router. The options are applied to every actor it
// creates, in addition to the idle-unload hook the router installs.
func NewRouter(db store.Store, opts ...Option) *Router {
	cfg := defaultSettings()
	for _, opt := range opts {
		opt(&cfg)
	}

	r := &Router{
		db:     db,
		opts:   opts,
		logger: cfg.logger,
	}
	for i := range r.shards {
		r.shards[i].actors = make(map[string]*Actor)
	}
	return r
}

// Get returns the live actor for an entity, creating it on first
// access. All requests for the same entity observe the same instance.
func (r *Router) Get(entityID string) *Actor {
	shard := r.shard(entityID)

	shard.mu.Lock()
	defer shard.mu.Unlock()

	if a, ok := shard.actors[entityID]; ok {
		return a
	}

	opts := make([]Option, 0, len(r.opts)+1)
	opts = append(opts, r.opts...)
	opts = append(opts, WithOnIdle(r.unload))
	a := New(entityID, r.db, opts...)
	shard.actors[entityID] = a

	r.logger.Debug("actor loaded", "entity_id", entityID)
	return a
}

// Count returns the number of live actors across all shards.
func (r *Router) Count() int {
	total := 0
	for i := range r.shards {
		r.shards[i].mu.Lock()
		total += len(r.shards[i].actors)
		r.shards[i].mu.Unlock()
	}
	return total
}

// Shutdown closes every live actor.
func (r *Router) Shutdown() {
	for i := range r.shards {
		shard := &r.shards[i]
		shard.mu.Lock()
		for id, a := range shard.actors {
			a.Close()
			delete(shard.actors, id)
		}
		shard.mu.Unlock()
	}
}

// unload removes an idle actor from memory. Hibernation is advisory:
// actors with live subscribers stay resident, and the durable record
// already reflects the last persisted mutation, so nothing is saved.
func (r *Router) unload(entityID string) {
	shard := r.shard(entityID)

	shard.mu.Lock()
	defer shard.mu.Unlock()

	a, ok := shard.actors[entityID]
	if !ok {
		return
	}
	if a.Subscribers() > 0 {
		return
	}

	delete(shard.actors, entityID)
	a.Close()
	r.logger.Debug("actor hibernated", "entity_id", entityID)
}

func (r *Router) shard(entityID string) *routerShard {
	h := fnv.New32a()
	_, _ = h.Write([]byte(entityID))
	return &r.shards[h.Sum32()%routerShards]
}
