package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/scrypster/tagloop/internal/storage"
	"github.com/scrypster/tagloop/pkg/types"
)

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
		VALUES (?, ?, ?, ?)
	`

	if _, err := s.db.ExecContext(ctx, query, fb.ID, fb.Text, serializeVector(fb.Vector), createdAt); err != nil {
		return fmt.Errorf("sqlite: create feedback %q: %w", fb.ID, err)
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
		WHERE feedback_id = ?
	`

	var fb types.Feedback
	var blob []byte

	err := s.db.QueryRowContext(ctx, query, id).Scan(&fb.ID, &fb.Text, &blob, &fb.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("sqlite: get feedback %q: %w", id, err)
	}

	fb.Vector, err = deserializeVector(blob)
	if err != nil {
		return nil, fmt.Errorf("sqlite: feedback %q vector: %w", id, err)
	}

	return &fb, nil
}

// ListUntagged returns up to limit feedback records with no relation row yet,
// oldest first.
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
		LIMIT ?
	`

	rows, err := s.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("sqlite: list untagged: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var items []types.Feedback
	for rows.Next() {
		var fb types.Feedback
		var blob []byte
		if err := rows.Scan(&fb.ID, &fb.Text, &blob, &fb.CreatedAt); err != nil {
			return nil, fmt.Errorf("sqlite: scan untagged row: %w", err)
		}
		if fb.Vector, err = deserializeVector(blob); err != nil {
			return nil, fmt.Errorf("sqlite: feedback %q vector: %w", fb.ID, err)
		}
		items = append(items, fb)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: list untagged rows: %w", err)
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
		SET feedback_vector = ?
		WHERE feedback_id = ?
	`

	result, err := s.db.ExecContext(ctx, query, serializeVector(vector), id)
	if err != nil {
		return fmt.Errorf("sqlite: update feedback vector %q: %w", id, err)
	}

	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("sqlite: update feedback vector rows affected: %w", err)
	}
	if n == 0 {
		return storage.ErrNotFound
	}

	return nil
}
