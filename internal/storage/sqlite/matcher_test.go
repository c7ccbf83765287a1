package sqlite

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/scrypster/tagloop/internal/storage"
)

func TestMatchEntitiesMissingFeedbackReturnsEmpty(t *testing.T) {
	store := newTestStore(t)

	matches, err := store.MatchEntities(context.Background(), uuid.NewString(), storage.MatchOptions{})
	require.NoError(t, err)
	assert.Empty(t, matches)
}

func TestMatchEntitiesVectorlessFeedbackReturnsEmpty(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	seedEntity(t, store, "complaint_category", "delivery_delay", []float32{1, 0})
	fbID := seedFeedback(t, store, "slow delivery again", nil)

	matches, err := store.MatchEntities(ctx, fbID, storage.MatchOptions{})
	require.NoError(t, err)
	assert.Empty(t, matches)
}

func TestMatchEntitiesRequiresBothConditions(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	// Feedback vector points along the first axis.
	fbID := seedFeedback(t, store, "slow delivery again", []float32{1, 0})

	// Similar vector and overlapping token: the only valid candidate.
	bothID := seedEntity(t, store, "complaint_category", "delivery_delay", []float32{1, 0})

	// Similar vector but no token in common with the feedback text.
	seedEntity(t, store, "complaint_category", "billing_error", []float32{0.9, 0.1})

	// Token overlap but orthogonal vector.
	seedEntity(t, store, "complaint_category", "delivery_praise", []float32{0, 1})

	matches, err := store.MatchEntities(ctx, fbID, storage.MatchOptions{})
	require.NoError(t, err)
	require.Len(t, matches, 1)
	assert.Equal(t, bothID, matches[0].EntityID)
	assert.Equal(t, "complaint_category", matches[0].TypeName)
	assert.Equal(t, "delivery_delay", matches[0].EntityValue)
	assert.InDelta(t, 1.0, matches[0].MatchConfidence, 1e-6)
}

func TestMatchEntitiesRankedDescending(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	fbID := seedFeedback(t, store, "delivery was slow and the courier was rude", []float32{1, 0})

	lowID := seedEntity(t, store, "complaint_category", "slow_delivery", []float32{0.8, 0.6})
	highID := seedEntity(t, store, "service_attitude", "rude_courier", []float32{1, 0})

	matches, err := store.MatchEntities(ctx, fbID, storage.MatchOptions{})
	require.NoError(t, err)
	require.Len(t, matches, 2)
	assert.Equal(t, highID, matches[0].EntityID)
	assert.Equal(t, lowID, matches[1].EntityID)
	assert.Greater(t, matches[0].MatchConfidence, matches[1].MatchConfidence)
}

func TestMatchEntitiesHonorsFloorAndLimit(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	fbID := seedFeedback(t, store, "delivery problems", []float32{1, 0})

	seedEntity(t, store, "complaint_category", "delivery_delay", []float32{1, 0})
	seedEntity(t, store, "complaint_category", "delivery_damage", []float32{0.8, 0.6})

	// A raised floor drops the 0.8-similarity candidate.
	matches, err := store.MatchEntities(ctx, fbID, storage.MatchOptions{SimilarityFloor: 0.9})
	require.NoError(t, err)
	require.Len(t, matches, 1)
	assert.Equal(t, "delivery_delay", matches[0].EntityValue)

	// Limit truncates after ranking, keeping the best candidate.
	matches, err = store.MatchEntities(ctx, fbID, storage.MatchOptions{Limit: 1})
	require.NoError(t, err)
	require.Len(t, matches, 1)
	assert.Equal(t, "delivery_delay", matches[0].EntityValue)
}

func TestTokenizeDropsShortTokensAndSplitsCompounds(t *testing.T) {
	tokens := tokenize("The delivery_delay is BAD!")

	assert.True(t, tokens["delivery"])
	assert.True(t, tokens["delay"])
	assert.True(t, tokens["bad"])
	assert.False(t, tokens["is"], "tokens below the minimum length are dropped")
	assert.True(t, tokens["the"], "three-letter tokens are kept, only shorter ones drop")
}

func TestLexicalMatch(t *testing.T) {
	feedback := tokenize("my delivery was very slow")

	assert.True(t, lexicalMatch(feedback, "delivery_delay"))
	assert.True(t, lexicalMatch(feedback, "slow service"))
	assert.False(t, lexicalMatch(feedback, "billing_error"))
	assert.False(t, lexicalMatch(feedback, ""))
}
