package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	pgvector "github.com/pgvector/pgvector-go"

	"github.com/scrypster/tagloop/internal/storage"
	"github.com/scrypster/tagloop/pkg/types"
)

// nullVector scans a nullable pgvector column. pgvector.Vector itself does
// not accept SQL NULL, and feedback vectors are NULL until backfilled.
type nullVector struct {
	Vec   pgvector.Vector
	Valid bool
}

// Scan implements sql.Scanner.
func (n *nullVector) Scan(src any) error {
	if src == nil {
		n.Valid = false
		return nil
	}
	n.Valid = true
	return n.Vec.Scan(src)
}

// CreateFeedback inserts a new feedback record.
func (s *Store) CreateFeedback(ctx context.Context, fb *types.Feedback) error {
	if fb == nil {
		return fmt.Errorf("%w: feedback is required", storage.ErrInvalidInput)
	}
	if fb.ID == "" {
		return fmt.Errorf("%w: feedback ID is required", storage.ErrInvalidInput)
	}
	if fb.Text == "" {
		return fmt.Errorf("%w: feedback text is required", storage.ErrInvalidInput)
	}

	createdAt := fb.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}

	const query = `
		INSERT INTO customer_feedback (feedback_id, feedback_text, feedback_vector, created_at)
		VALUES ($1, $2, $3, $4)
	`

	var vec any
	if fb.HasVector() {
		vec = pgvector.NewVector(fb.Vector)
	}

	if _, err := s.db.ExecContext(ctx, query, fb.ID, fb.Text, vec, createdAt); err != nil {
		return fmt.Errorf("postgres: create feedback %q: %w", fb.ID, err)
	}

	return nil
}

// GetFeedback retrieves a feedback record by ID.
func (s *Store) GetFeedback(ctx context.Context, id string) (*types.Feedback, error) {
	if id == "" {
		return nil, fmt.Errorf("%w: feedback ID is required", storage.ErrInvalidInput)
	}

	const query = `
		SELECT feedback_id, feedback_text, feedback_vector, created_at
		FROM customer_feedback
		WHERE feedback_id = $1
	`

	var fb types.Feedback
	var vec nullVector

	err := s.db.QueryRowContext(ctx, query, id).Scan(&fb.ID, &fb.Text, &vec, &fb.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("postgres: get feedback %q: %w", id, err)
	}

	if vec.Valid {
		fb.Vector = vec.Vec.Slice()
	}

	return &fb, nil
}

// ListUntagged returns up to limit feedback records with no relation row yet,
// oldest first. The anti-join on feedback_entity_relations is the batch
// cursor: once any relation exists for a feedback ID the item never appears
// again.
func (s *Store) ListUntagged(ctx context.Context, limit int) ([]types.Feedback, error) {
	if limit < 1 {
		return nil, fmt.Errorf("%w: limit must be positive", storage.ErrInvalidInput)
	}

	const query = `
		SELECT f.feedback_id, f.feedback_text, f.feedback_vector, f.created_at
		FROM customer_feedback f
		WHERE NOT EXISTS (
			SELECT 1 FROM feedback_entity_relations r
			WHERE r.feedback_id = f.feedback_id
		)
		ORDER BY f.created_at, f.feedback_id
		LIMIT $1
	`

	rows, err := s.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("postgres: list untagged: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var items []types.Feedback
	for rows.Next() {
		var fb types.Feedback
		var vec nullVector
		if err := rows.Scan(&fb.ID, &fb.Text, &vec, &fb.CreatedAt); err != nil {
			return nil, fmt.Errorf("postgres: scan untagged row: %w", err)
		}
		if vec.Valid {
			fb.Vector = vec.Vec.Slice()
		}
		items = append(items, fb)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres: list untagged rows: %w", err)
	}

	return items, nil
}

// UpdateFeedbackVector persists a backfilled embedding for a feedback record.
func (s *Store) UpdateFeedbackVector(ctx context.Context, id string, vector []float32) error {
	if id == "" {
		return fmt.Errorf("%w: feedback ID is required", storage.ErrInvalidInput)
	}
	if len(vector) == 0 {
		return fmt.Errorf("%w: embedding vector cannot be empty", storage.ErrInvalidInput)
	}

	const query = `
		UPDATE customer_feedback
		SET feedback_vector = $1
		WHERE feedback_id = $2
	`

	result, err := s.db.ExecContext(ctx, query, pgvector.NewVector(vector), id)
	if err != nil {
		return fmt.Errorf("postgres: update feedback vector %q: %w", id, err)
	}

	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("postgres: update feedback vector rows affected: %w", err)
	}
	if n == 0 {
		return storage.ErrNotFound
	}

	return nil
}
