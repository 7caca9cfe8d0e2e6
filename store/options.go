package store

import (
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/supabase-community/supabase-go"
)

// Option is a functional option for configuring a store.
type Option func(*config)

// config holds configuration for stores.
type config struct {
	redisClient    *redis.Client
	redisTTL       time.Duration
	supabaseClient *supabase.Client
	supabaseTable  string
}

// WithRedisClient sets the Redis client for the Redis store.
func WithRedisClient(client *redis.Client) Option {
	return func(c *config) {
		c.redisClient = client
	}
}

// WithRedisTTL sets the TTL for Redis keys. Zero (the default) means
// records never expire; the actor layer owns expiry semantics.
func WithRedisTTL(ttl time.Duration) Option {
	return func(c *config) {
		c.redisTTL = ttl
	}
}

// WithSupabaseClient sets the Supabase client for the Supabase store.
func WithSupabaseClient(client *supabase.Client) Option {
	return func(c *config) {
		c.supabaseClient = client
	}
}

// WithSupabaseTable sets the table holding entity state rows.
// Defaults to "entity_state".
func WithSupabaseTable(table string) Option {
	return func(c *config) {
		c.supabaseTable = table
	}
}
