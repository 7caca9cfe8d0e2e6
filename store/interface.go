package store

import "context"

// Store defines the interface for durable working-set persistence.
// Each entity's full working set is stored as a single opaque blob
// keyed by the entity identifier.
type Store interface {
	// Get retrieves the persisted blob for an entity.
	// Returns (nil, nil) if no blob exists (not an error).
	Get(ctx context.Context, entityID string) ([]byte, error)

	// Put stores the blob for an entity, overwriting any previous value.
	Put(ctx context.Context, entityID string, blob []byte) error

	// Delete removes the persisted blob for an entity.
	Delete(ctx context.Context, entityID string) error

	// Close closes the store and releases any resources.
	Close() error
}
