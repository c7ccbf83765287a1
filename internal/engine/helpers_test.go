package engine_test

import (
	"context"
	"errors"
	"hash/fnv"
	"math"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/scrypster/tagloop/internal/storage/sqlite"
	"github.com/scrypster/tagloop/pkg/types"
)

// newTestStore creates an in-memory SQLite store for engine tests.
func newTestStore(t *testing.T) *sqlite.Store {
	t.Helper()

	store, err := sqlite.NewStore(":memory:")
	require.NoError(t, err, "NewStore should succeed")

	t.Cleanup(func() {
		store.Close()
	})

	return store
}

// fakeEmbedder is a deterministic in-process EmbeddingGenerator. Texts with
// an explicit vector use it; everything else gets a stable vector derived
// from the text, so repeated calls always agree.
type fakeEmbedder struct {
	mu      sync.Mutex
	vectors map[string][]float32
	failOn  map[string]bool
	calls   []string
}

func newFakeEmbedder() *fakeEmbedder {
	return &fakeEmbedder{
		vectors: make(map[string][]float32),
		failOn:  make(map[string]bool),
	}
}

func (f *fakeEmbedder) Embed(_ context.Context, text string) ([]float32, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.calls = append(f.calls, text)

	if f.failOn[text] {
		return nil, errors.New("embedding provider unavailable")
	}
	if v, ok := f.vectors[text]; ok {
		return v, nil
	}
	return deriveVector(text), nil
}

func (f *fakeEmbedder) GetModel() string { return "fake-embedder" }

func (f *fakeEmbedder) HealthCheck(context.Context) error { return nil }

func (f *fakeEmbedder) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

// deriveVector produces a stable unit vector from the text content.
func deriveVector(text string) []float32 {
	const dim = 8

	h := fnv.New64a()
	_, _ = h.Write([]byte(text))
	seed := h.Sum64()

	v := make([]float32, dim)
	var norm float64
	for i := range v {
		seed = seed*6364136223846793005 + 1442695040888963407
		v[i] = float32(seed>>40) / float32(1<<24)
		norm += float64(v[i]) * float64(v[i])
	}

	scale := float32(1 / math.Sqrt(norm))
	for i := range v {
		v[i] *= scale
	}

	return v
}

// fakeExtractor is a canned Extractor implementation.
type fakeExtractor struct {
	mu       sync.Mutex
	entities []types.ExtractedEntity
	err      error
	calls    int
}

func (f *fakeExtractor) Extract(context.Context, string) ([]types.ExtractedEntity, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return f.entities, nil
}

func (f *fakeExtractor) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}
