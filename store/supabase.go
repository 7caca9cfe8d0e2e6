package store

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/supabase-community/supabase-go"
)

// Default table holding one row per entity.
const defaultEntityTable = "entity_state"

// entityRow is the shape of a persisted entity row.
type entityRow struct {
	EntityID  string          `json:"entity_id"`
	State     json.RawMessage `json:"state"`
	UpdatedAt time.Time       `json:"updated_at"`
}

// SupabaseStore implements Store using a Supabase table, one row per
// entity with the serialized working set in a jsonb column.
type SupabaseStore struct {
	client *supabase.Client
	table  string
}

// NewSupabaseStore creates a new Supabase-backed store. An empty table
// name selects the default "entity_state" table.
func NewSupabaseStore(client *supabase.Client, table string) *SupabaseStore {
	if table == "" {
		table = defaultEntityTable
	}
	return &SupabaseStore{
		client: client,
		table:  table,
	}
}

// Get implements Store.
// Returns (nil, nil) if the entity has no persisted row.
func (s *SupabaseStore) Get(ctx context.Context, entityID string) ([]byte, error) {
	var rows []entityRow
	_, err := s.client.From(s.table).
		Select("*", "", false).
		Eq("entity_id", entityID).
		ExecuteTo(&rows)

	if err != nil {
		return nil, fmt.Errorf("failed to get entity state: %w", err)
	}

	if len(rows) == 0 {
		return nil, nil
	}
	return []byte(rows[0].State), nil
}

// Put implements Store.
// Upserts the entity row keyed by entity_id.
func (s *SupabaseStore) Put(ctx context.Context, entityID string, blob []byte) error {
	row := entityRow{
		EntityID:  entityID,
		State:     json.RawMessage(blob),
		UpdatedAt: time.Now(),
	}

	_, _, err := s.client.From(s.table).
		Upsert(row, "entity_id", "minimal", "").
		Execute()

	if err != nil {
		return fmt.Errorf("failed to put entity state: %w", err)
	}
	return nil
}

// Delete implements Store.
func (s *SupabaseStore) Delete(ctx context.Context, entityID string) error {
	_, _, err := s.client.From(s.table).
		Delete("minimal", "").
		Eq("entity_id", entityID).
		Execute()

	if err != nil {
		return fmt.Errorf("failed to delete entity state: %w", err)
	}
	return nil
}

// Close implements Store.
func (s *SupabaseStore) Close() error {
	// Supabase client doesn't require explicit close
	return nil
}
