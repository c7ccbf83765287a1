package sqlite

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/scrypster/tagloop/pkg/types"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()

	store, err := NewStore(":memory:")
	require.NoError(t, err)

	t.Cleanup(func() {
		store.Close()
	})

	return store
}

// seedFeedback inserts a feedback row and returns its ID.
func seedFeedback(t *testing.T, store *Store, text string, vector []float32) string {
	t.Helper()

	id := uuid.NewString()
	err := store.CreateFeedback(context.Background(), &types.Feedback{
		ID:        id,
		Text:      text,
		Vector:    vector,
		CreatedAt: time.Now().UTC(),
	})
	require.NoError(t, err)
	return id
}

// seedEntity inserts an entity under the named type and returns its ID.
func seedEntity(t *testing.T, store *Store, typeName, value string, vector []float32) string {
	t.Helper()

	ctx := context.Background()
	typeID, err := store.GetOrCreateType(ctx, typeName)
	require.NoError(t, err)

	id, err := store.InsertEntity(ctx, &types.Entity{
		TypeID:     typeID,
		Value:      value,
		Vector:     vector,
		Confidence: 0.9,
	})
	require.NoError(t, err)
	return id
}
