// Package storage provides composable storage interfaces for the tagloop
// system.
//
// The storage layer is designed with small, focused interfaces that can be
// implemented independently and composed as needed. Both backends (PostgreSQL
// with pgvector, embedded SQLite) implement every interface; callers depend
// only on the slice they need.
package storage

import (
	"context"
	"time"

	"github.com/scrypster/tagloop/pkg/types"
)

// FeedbackStore provides access to the customer feedback table.
type FeedbackStore interface {
	// CreateFeedback inserts a new feedback record. Used by intake and tests;
	// the tagging pipeline itself never creates feedback.
	CreateFeedback(ctx context.Context, fb *types.Feedback) error

	// GetFeedback retrieves a feedback record by ID.
	// Returns ErrNotFound if the record doesn't exist.
	GetFeedback(ctx context.Context, id string) (*types.Feedback, error)

	// ListUntagged returns up to limit feedback records that have no entity
	// relation yet, oldest first. A feedback item with at least one relation
	// is considered processed and is never returned again.
	ListUntagged(ctx context.Context, limit int) ([]types.Feedback, error)

	// UpdateFeedbackVector persists a backfilled embedding for a feedback
	// record. Overwriting an existing vector with an equal one is harmless,
	// so the operation needs no locking.
	UpdateFeedbackVector(ctx context.Context, id string, vector []float32) error
}

// EntityLibrary is the deduplicated catalog of (type, value) entities.
// All mutation goes through the get-or-create operations below so that the
// uniqueness invariants — type_name unique, (type_id, entity_value) unique —
// hold even under concurrent writers.
type EntityLibrary interface {
	// GetOrCreateType resolves an entity type by name, creating it if absent,
	// and returns its ID. Atomic: concurrent calls with the same name all
	// observe a single row.
	GetOrCreateType(ctx context.Context, typeName string) (string, error)

	// GetEntityByValue looks up an entity by its (type_id, entity_value) key.
	// Returns ErrNotFound if no such entity exists.
	GetEntityByValue(ctx context.Context, typeID, entityValue string) (*types.Entity, error)

	// InsertEntity inserts a new entity and returns the ID of the surviving
	// row: the new row's ID, or the existing row's ID when another writer got
	// there first (first-writer-wins on vector and confidence). Atomic
	// check-then-insert, never a duplicate for the same (type_id, value).
	InsertEntity(ctx context.Context, entity *types.Entity) (string, error)

	// GetEntity retrieves an entity by ID.
	// Returns ErrNotFound if the entity doesn't exist.
	GetEntity(ctx context.Context, id string) (*types.Entity, error)
}

// EntityMatcher performs the hybrid retrieval query: vector similarity between
// the feedback vector and every entity vector, combined with a lexical match
// between the feedback text and the entity value. Both conditions must hold
// for a candidate to appear.
type EntityMatcher interface {
	// MatchEntities returns ranked candidates for the given feedback item,
	// descending by match confidence. Returns an empty slice (not an error)
	// when the feedback row does not exist, has no vector yet, or no
	// candidate satisfies both conditions.
	MatchEntities(ctx context.Context, feedbackID string, opts MatchOptions) ([]types.EntityMatch, error)
}

// TagWriter appends tag results and the escalation audit trail.
// Both writes are append-only; neither is ever updated or rolled back.
type TagWriter interface {
	// WriteTag appends a feedback→entity relation row.
	WriteTag(ctx context.Context, feedbackID, entityID string, matchConfidence float64) error

	// WritePrecipitation appends an escalation audit row. Called only on the
	// escalation path, in addition to (not instead of) WriteTag.
	WritePrecipitation(ctx context.Context, feedbackID, entityID string, agentConfidence float64) error

	// EscalationStats reports direct-vs-escalated tag counts for relations
	// written at or after since.
	EscalationStats(ctx context.Context, since time.Time) (*types.EscalationStats, error)
}

// Store composes every storage capability the tagging pipeline needs.
// Concrete backends (postgres.Store, sqlite.Store) implement it in full.
type Store interface {
	FeedbackStore
	EntityLibrary
	EntityMatcher
	TagWriter

	// Close releases the underlying database resources.
	Close() error
}
