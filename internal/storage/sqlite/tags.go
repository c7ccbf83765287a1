package sqlite

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/scrypster/tagloop/internal/storage"
	"github.com/scrypster/tagloop/pkg/types"
)

// WriteTag appends a feedback→entity relation row.
func (s *Store) WriteTag(ctx context.Context, feedbackID, entityID string, matchConfidence float64) error {
	if feedbackID == "" || entityID == "" {
		return fmt.Errorf("%w: feedback ID and entity ID are required", storage.ErrInvalidInput)
	}

	const query = `
		INSERT INTO feedback_entity_relations (feedback_id, entity_id, match_confidence, created_at)
		VALUES (?, ?, ?, ?)
	`

	if _, err := s.db.ExecContext(ctx, query, feedbackID, entityID, matchConfidence, time.Now().UTC()); err != nil {
		return fmt.Errorf("sqlite: write tag %s→%s: %w", feedbackID, entityID, err)
	}

	return nil
}

// WritePrecipitation appends an escalation audit row.
func (s *Store) WritePrecipitation(ctx context.Context, feedbackID, entityID string, agentConfidence float64) error {
	if feedbackID == "" || entityID == "" {
		return fmt.Errorf("%w: feedback ID and entity ID are required", storage.ErrInvalidInput)
	}

	const query = `
		INSERT INTO precipitation_log (id, feedback_id, entity_id, agent_confidence, created_at)
		VALUES (?, ?, ?, ?, ?)
	`

	if _, err := s.db.ExecContext(ctx, query, uuid.NewString(), feedbackID, entityID, agentConfidence, time.Now().UTC()); err != nil {
		return fmt.Errorf("sqlite: write precipitation %s→%s: %w", feedbackID, entityID, err)
	}

	return nil
}

// EscalationStats reports direct-vs-escalated tag counts for relations
// written at or after since.
func (s *Store) EscalationStats(ctx context.Context, since time.Time) (*types.EscalationStats, error) {
	const query = `
		SELECT
			COUNT(*),
			COALESCE(SUM(CASE WHEN EXISTS (
				SELECT 1 FROM precipitation_log p
				WHERE p.feedback_id = r.feedback_id AND p.entity_id = r.entity_id
			) THEN 1 ELSE 0 END), 0)
		FROM feedback_entity_relations r
		WHERE r.created_at >= ?
	`

	var stats types.EscalationStats
	if err := s.db.QueryRowContext(ctx, query, since).Scan(&stats.TotalTags, &stats.EscalatedTags); err != nil {
		return nil, fmt.Errorf("sqlite: escalation stats: %w", err)
	}

	return &stats, nil
}
