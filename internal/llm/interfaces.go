// Package llm provides embedding-model clients for the tagging pipeline.
// All clients wrap their HTTP calls with circuit breaker protection and a
// client-side rate limiter.
package llm

import "context"

// EmbeddingGenerator is the interface for generating vector embeddings.
// Embed must be deterministic: the same text yields the same vector within a
// deployed model version, which is what makes feedback vector backfill
// idempotent.
type EmbeddingGenerator interface {
	Embed(ctx context.Context, text string) ([]float32, error)
	GetModel() string

	// HealthCheck verifies the provider is reachable. Called once at startup;
	// a failure there is a configuration error that aborts the run.
	HealthCheck(ctx context.Context) error
}
