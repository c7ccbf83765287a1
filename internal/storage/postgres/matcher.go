package postgres

import (
	"context"
	"errors"
	"fmt"

	pgvector "github.com/pgvector/pgvector-go"

	"github.com/scrypster/tagloop/internal/storage"
	"github.com/scrypster/tagloop/pkg/types"
)

// MatchEntities performs hybrid retrieval for one feedback item in a single
// query: cosine similarity between the feedback vector and every entity
// vector, AND a natural-language match of the feedback text against the
// entity value. Both conditions must hold; similarity alone over short entity
// values is noisy, and the lexical filter drops semantically-near but
// textually-unrelated candidates.
//
// Returns an empty slice when the feedback row does not exist, carries no
// vector yet, or no candidate satisfies both conditions.
func (s *Store) MatchEntities(ctx context.Context, feedbackID string, opts storage.MatchOptions) ([]types.EntityMatch, error) {
	opts.Normalize()

	fb, err := s.GetFeedback(ctx, feedbackID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return []types.EntityMatch{}, nil
		}
		return nil, fmt.Errorf("postgres: match entities load feedback: %w", err)
	}

	if !fb.HasVector() {
		return []types.EntityMatch{}, nil
	}

	vec := pgvector.NewVector(fb.Vector)

	// <=> is cosine distance; similarity = 1 - distance. plainto_tsquery ANDs
	// every feedback word, which would require the short entity value to
	// contain the whole feedback text; rewriting to OR makes any shared
	// lexeme qualify, which is the lexical condition the gate needs.
	const query = `
		SELECT
			e.entity_id,
			t.type_name,
			e.entity_value,
			1 - (e.entity_vector <=> $1::vector) AS match_confidence
		FROM entities e
		JOIN entity_types t ON t.type_id = e.type_id
		WHERE e.entity_vector IS NOT NULL
		  AND 1 - (e.entity_vector <=> $1::vector) > $2
		  AND e.entity_tsv @@ replace(plainto_tsquery('english', $3)::text, '&', '|')::tsquery
		ORDER BY match_confidence DESC, e.entity_id
		LIMIT $4
	`

	rows, err := s.db.QueryContext(ctx, query, vec, opts.SimilarityFloor, fb.Text, opts.Limit)
	if err != nil {
		return nil, fmt.Errorf("postgres: match entities query for %q: %w", feedbackID, err)
	}
	defer func() { _ = rows.Close() }()

	matches := []types.EntityMatch{}
	for rows.Next() {
		var m types.EntityMatch
		if err := rows.Scan(&m.EntityID, &m.TypeName, &m.EntityValue, &m.MatchConfidence); err != nil {
			return nil, fmt.Errorf("postgres: scan match row: %w", err)
		}
		matches = append(matches, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres: match entities rows: %w", err)
	}

	return matches, nil
}
