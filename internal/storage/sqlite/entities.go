package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/scrypster/tagloop/internal/storage"
	"github.com/scrypster/tagloop/pkg/types"
)

// GetOrCreateType resolves an entity type by name, creating it if absent.
// INSERT OR IGNORE plus re-select is atomic here because the store holds a
// single connection: concurrent callers serialise on it.
func (s *Store) GetOrCreateType(ctx context.Context, typeName string) (string, error) {
	if typeName == "" {
		return "", fmt.Errorf("%w: type name is required", storage.ErrInvalidInput)
	}

	const insertSQL = `
		INSERT INTO entity_types (type_id, type_name, created_at)
		VALUES (?, ?, ?)
		ON CONFLICT (type_name) DO NOTHING
	`

	if _, err := s.db.ExecContext(ctx, insertSQL, uuid.NewString(), typeName, time.Now().UTC()); err != nil {
		return "", fmt.Errorf("sqlite: insert entity type %q: %w", typeName, err)
	}

	const selectSQL = `SELECT type_id FROM entity_types WHERE type_name = ?`

	var typeID string
	if err := s.db.QueryRowContext(ctx, selectSQL, typeName).Scan(&typeID); err != nil {
		return "", fmt.Errorf("sqlite: resolve entity type %q: %w", typeName, err)
	}

	return typeID, nil
}

// GetEntityByValue looks up an entity by its (type_id, entity_value) key.
func (s *Store) GetEntityByValue(ctx context.Context, typeID, entityValue string) (*types.Entity, error) {
	if typeID == "" || entityValue == "" {
		return nil, fmt.Errorf("%w: type ID and entity value are required", storage.ErrInvalidInput)
	}

	const query = `
		SELECT entity_id, type_id, entity_value, entity_vector, confidence, created_at
		FROM entities
		WHERE type_id = ? AND entity_value = ?
	`

	return scanEntity(s.db.QueryRowContext(ctx, query, typeID, entityValue))
}

// GetEntity retrieves an entity by ID.
func (s *Store) GetEntity(ctx context.Context, id string) (*types.Entity, error) {
	if id == "" {
		return nil, fmt.Errorf("%w: entity ID is required", storage.ErrInvalidInput)
	}

	const query = `
		SELECT entity_id, type_id, entity_value, entity_vector, confidence, created_at
		FROM entities
		WHERE entity_id = ?
	`

	return scanEntity(s.db.QueryRowContext(ctx, query, id))
}

// InsertEntity inserts an entity and returns the ID of the surviving row.
// On a (type_id, entity_value) conflict the insert is a no-op and the
// existing row's ID is returned — first-writer-wins on vector and confidence.
func (s *Store) InsertEntity(ctx context.Context, entity *types.Entity) (string, error) {
	if entity == nil {
		return "", fmt.Errorf("%w: entity is required", storage.ErrInvalidInput)
	}
	if entity.TypeID == "" || entity.Value == "" {
		return "", fmt.Errorf("%w: entity type ID and value are required", storage.ErrInvalidInput)
	}

	id := entity.ID
	if id == "" {
		id = uuid.NewString()
	}

	createdAt := entity.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}

	const insertSQL = `
		INSERT INTO entities (entity_id, type_id, entity_value, entity_vector, confidence, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT (type_id, entity_value) DO NOTHING
	`

	if _, err := s.db.ExecContext(ctx, insertSQL, id, entity.TypeID, entity.Value,
		serializeVector(entity.Vector), entity.Confidence, createdAt); err != nil {
		return "", fmt.Errorf("sqlite: insert entity %s/%q: %w", entity.TypeID, entity.Value, err)
	}

	const selectSQL = `
		SELECT entity_id FROM entities WHERE type_id = ? AND entity_value = ?
	`

	var survivorID string
	if err := s.db.QueryRowContext(ctx, selectSQL, entity.TypeID, entity.Value).Scan(&survivorID); err != nil {
		return "", fmt.Errorf("sqlite: resolve entity %s/%q: %w", entity.TypeID, entity.Value, err)
	}

	return survivorID, nil
}

// scanEntity scans a single entity row, mapping sql.ErrNoRows to ErrNotFound.
func scanEntity(row *sql.Row) (*types.Entity, error) {
	var e types.Entity
	var blob []byte

	err := row.Scan(&e.ID, &e.TypeID, &e.Value, &blob, &e.Confidence, &e.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("sqlite: scan entity row: %w", err)
	}

	if e.Vector, err = deserializeVector(blob); err != nil {
		return nil, fmt.Errorf("sqlite: entity %q vector: %w", e.ID, err)
	}

	return &e, nil
}
