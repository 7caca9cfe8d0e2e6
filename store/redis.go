package store

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

// Redis key prefix for entity working sets.
const entityKeyPrefix = "entity:"

// RedisStore implements Store using Redis.
// Each entity's working set is stored as a single value under a
// prefixed key.
type RedisStore struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisStore creates a new Redis-based store. A zero ttl means keys
// never expire.
func NewRedisStore(client *redis.Client, ttl time.Duration) *RedisStore {
	return &RedisStore{
		client: client,
		ttl:    ttl,
	}
}

// Get implements Store.
// Returns (nil, nil) if the entity has no persisted blob.
func (s *RedisStore) Get(ctx context.Context, entityID string) ([]byte, error) {
	val, err := s.client.Get(ctx, s.key(entityID)).Bytes()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return val, nil
}

// Put implements Store.
func (s *RedisStore) Put(ctx context.Context, entityID string, blob []byte) error {
	return s.client.Set(ctx, s.key(entityID), blob, s.ttl).Err()
}

// Delete implements Store.
func (s *RedisStore) Delete(ctx context.Context, entityID string) error {
	return s.client.Del(ctx, s.key(entityID)).Err()
}

// Close implements Store.
func (s *RedisStore) Close() error {
	return s.client.Close()
}

// key constructs the Redis key for an entity ID.
func (s *RedisStore) key(entityID string) string {
	return entityKeyPrefix + entityID
}
