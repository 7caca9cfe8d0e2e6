package store

import (
	"github.com/creastat/statehub"
)

// Type represents the type of durable store.
type Type string

const (
	TypeMemory   Type = "memory"
	TypeRedis    Type = "redis"
	TypeSupabase Type = "supabase"
)

// New creates a new Store based on the given type.
// Supports "memory", "redis" and "supabase" driver types.
// Redis requires WithRedisClient; Supabase requires WithSupabaseClient.
func New(storeType Type, opts ...Option) (Store, error) {
	cfg := &config{}

	// Apply options
	for _, opt := range opts {
		opt(cfg)
	}

	switch storeType {
	case TypeMemory:
		return NewMemoryStore(), nil

	case TypeRedis:
		if cfg.redisClient == nil {
			return nil, statehub.ErrInvalidConfig
		}
		return NewRedisStore(cfg.redisClient, cfg.redisTTL), nil

	case TypeSupabase:
		if cfg.supabaseClient == nil {
			return nil, statehub.ErrInvalidConfig
		}
		return NewSupabaseStore(cfg.supabaseClient, cfg.supabaseTable), nil

	default:
		return nil, statehub.ErrInvalidStoreType
	}
}
