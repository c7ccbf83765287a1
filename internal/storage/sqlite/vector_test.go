package sqlite

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestVectorSerializationRoundTrip(t *testing.T) {
	original := []float32{0.1, -2.5, 0, 3.14159}

	got, err := deserializeVector(serializeVector(original))
	require.NoError(t, err)
	assert.Equal(t, original, got)
}

func TestVectorSerializationNil(t *testing.T) {
	assert.Nil(t, serializeVector(nil))

	got, err := deserializeVector(nil)
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestDeserializeVectorRejectsTruncatedBlob(t *testing.T) {
	_, err := deserializeVector([]byte{1, 2, 3})
	assert.Error(t, err)
}

func TestCosineSimilarity(t *testing.T) {
	assert.InDelta(t, 1.0, cosineSimilarity([]float32{1, 0}, []float32{2, 0}), 1e-9)
	assert.InDelta(t, 0.0, cosineSimilarity([]float32{1, 0}, []float32{0, 1}), 1e-9)
	assert.InDelta(t, -1.0, cosineSimilarity([]float32{1, 0}, []float32{-1, 0}), 1e-9)
	assert.InDelta(t, 0.8, cosineSimilarity([]float32{1, 0}, []float32{0.8, 0.6}), 1e-6)

	// Degenerate inputs fall below any similarity floor.
	assert.Zero(t, cosineSimilarity(nil, nil))
	assert.Zero(t, cosineSimilarity([]float32{1}, []float32{1, 0}))
	assert.Zero(t, cosineSimilarity([]float32{0, 0}, []float32{1, 0}))
}
