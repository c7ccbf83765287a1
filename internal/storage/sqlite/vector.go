package sqlite

import (
	"encoding/binary"
	"fmt"
	"math"
)

// serializeVector packs a float32 slice into a little-endian BLOB.
func serializeVector(vector []float32) []byte {
	if len(vector) == 0 {
		return nil
	}

	buf := make([]byte, len(vector)*4)
	for i, v := range vector {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(v))
	}

	return buf
}

// deserializeVector unpacks a little-endian BLOB into a float32 slice.
func deserializeVector(buf []byte) ([]float32, error) {
	if len(buf) == 0 {
		return nil, nil
	}

	if len(buf)%4 != 0 {
		return nil, fmt.Errorf("vector blob size %d is not a multiple of 4", len(buf))
	}

	vector := make([]float32, len(buf)/4)
	for i := range vector {
		vector[i] = math.Float32frombits(binary.LittleEndian.Uint32(buf[i*4:]))
	}

	return vector, nil
}

// cosineSimilarity returns the cosine similarity of two vectors in [-1, 1].
// Returns 0 for mismatched dimensions or zero-magnitude vectors, which both
// fall below any sensible similarity floor.
func cosineSimilarity(a, b []float32) float64 {
	if len(a) == 0 || len(a) != len(b) {
		return 0
	}

	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}

	if normA == 0 || normB == 0 {
		return 0
	}

	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}
