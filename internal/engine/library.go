package engine

import (
	"context"
	"errors"
	"fmt"

	"github.com/scrypster/tagloop/internal/llm"
	"github.com/scrypster/tagloop/internal/storage"
	"github.com/scrypster/tagloop/pkg/types"
)

// Library owns get-or-create upserts into the entity library. It resolves the
// entity type by name, then resolves or creates the entity by
// (type_id, value), computing its embedding only when a new row is actually
// needed. The storage layer's unique constraints make the final insert step
// atomic, so concurrent upserts of the same pair converge on one row.
type Library struct {
	store    storage.EntityLibrary
	embedder llm.EmbeddingGenerator
}

// NewLibrary creates a Library over the given entity store and embedder.
func NewLibrary(store storage.EntityLibrary, embedder llm.EmbeddingGenerator) *Library {
	return &Library{store: store, embedder: embedder}
}

// Upsert returns the entity ID for (typeName, value), creating the type
// and/or entity on first sighting. The returned ID is stable: repeated calls
// with the same pair yield the same ID and never a second row. When the pair
// already exists, confidence and vector are left untouched
// (first-writer-wins).
func (l *Library) Upsert(ctx context.Context, typeName, value string, confidence float64) (string, error) {
	if typeName == "" || value == "" {
		return "", fmt.Errorf("%w: type name and entity value are required", storage.ErrInvalidInput)
	}

	typeID, err := l.store.GetOrCreateType(ctx, typeName)
	if err != nil {
		return "", fmt.Errorf("upsert entity type %q: %w", typeName, err)
	}

	// Fast path: the pair already exists, no embedding call needed.
	existing, err := l.store.GetEntityByValue(ctx, typeID, value)
	if err == nil {
		return existing.ID, nil
	}
	if !errors.Is(err, storage.ErrNotFound) {
		return "", fmt.Errorf("lookup entity %q/%q: %w", typeName, value, err)
	}

	vector, err := l.embedder.Embed(ctx, types.EmbeddingText(typeName, value))
	if err != nil {
		return "", fmt.Errorf("embed entity %q/%q: %w", typeName, value, err)
	}

	// InsertEntity swallows the conflict when another writer created the pair
	// between our lookup and now, returning the surviving row's ID either way.
	id, err := l.store.InsertEntity(ctx, &types.Entity{
		TypeID:     typeID,
		Value:      value,
		Vector:     vector,
		Confidence: confidence,
	})
	if err != nil {
		return "", fmt.Errorf("insert entity %q/%q: %w", typeName, value, err)
	}

	return id, nil
}
