package sqlite

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"unicode"

	"github.com/scrypster/tagloop/internal/storage"
	"github.com/scrypster/tagloop/pkg/types"
)

// MatchEntities performs hybrid retrieval for one feedback item. SQLite has
// no vector engine, so candidates are scanned sequentially: cosine similarity
// is computed in Go and the lexical condition is a token-overlap match of the
// feedback text against the entity value. Both conditions must hold, same as
// the PostgreSQL backend.
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
		return nil, fmt.Errorf("sqlite: match entities load feedback: %w", err)
	}

	if !fb.HasVector() {
		return []types.EntityMatch{}, nil
	}

	feedbackTokens := tokenize(fb.Text)

	const query = `
		SELECT e.entity_id, t.type_name, e.entity_value, e.entity_vector
		FROM entities e
		JOIN entity_types t ON t.type_id = e.type_id
		WHERE e.entity_vector IS NOT NULL
	`

	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("sqlite: match entities query for %q: %w", feedbackID, err)
	}
	defer func() { _ = rows.Close() }()

	matches := []types.EntityMatch{}
	for rows.Next() {
		var m types.EntityMatch
		var blob []byte
		if err := rows.Scan(&m.EntityID, &m.TypeName, &m.EntityValue, &blob); err != nil {
			return nil, fmt.Errorf("sqlite: scan candidate row: %w", err)
		}

		vector, err := deserializeVector(blob)
		if err != nil {
			return nil, fmt.Errorf("sqlite: entity %q vector: %w", m.EntityID, err)
		}

		m.MatchConfidence = cosineSimilarity(fb.Vector, vector)
		if m.MatchConfidence <= opts.SimilarityFloor {
			continue
		}
		if !lexicalMatch(feedbackTokens, m.EntityValue) {
			continue
		}

		matches = append(matches, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: match entities rows: %w", err)
	}

	// Descending by confidence; entity ID breaks ties so repeated calls
	// return the same ranking.
	sort.SliceStable(matches, func(i, j int) bool {
		if matches[i].MatchConfidence != matches[j].MatchConfidence {
			return matches[i].MatchConfidence > matches[j].MatchConfidence
		}
		return matches[i].EntityID < matches[j].EntityID
	})

	if len(matches) > opts.Limit {
		matches = matches[:opts.Limit]
	}

	return matches, nil
}

// minTokenLength filters out stop-word-sized tokens ("a", "an", "it") that
// would make the lexical condition nearly always true.
const minTokenLength = 3

// tokenize lowercases text and splits it on any non-alphanumeric rune,
// dropping tokens shorter than minTokenLength. Underscores split too, so
// compound entity values like "delivery_delay" yield word tokens.
func tokenize(text string) map[string]bool {
	tokens := make(map[string]bool)

	for _, field := range strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsNumber(r)
	}) {
		if len(field) >= minTokenLength {
			tokens[field] = true
		}
	}

	return tokens
}

// lexicalMatch reports whether the entity value shares at least one token
// with the feedback text. This is the SQLite stand-in for a natural-language
// text match against the entity value.
func lexicalMatch(feedbackTokens map[string]bool, entityValue string) bool {
	for token := range tokenize(entityValue) {
		if feedbackTokens[token] {
			return true
		}
	}
	return false
}
