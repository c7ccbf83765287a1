// Package types defines the shared domain types for the tagloop system:
// customer feedback records, the deduplicated entity library, and the
// tag/audit rows produced by the tagging pipeline.
package types

import "time"

// Feedback is a single customer-feedback record flowing through the tagging
// pipeline. The record is created by upstream intake; the pipeline only ever
// fills in Vector when it is missing (lazy embedding backfill).
type Feedback struct {
	// ID is the globally unique, immutable feedback identifier.
	ID string `json:"feedback_id"`

	// Text is the raw free-text feedback content.
	Text string `json:"feedback_text"`

	// Vector is the embedding of Text. Nil until backfilled by the pipeline.
	Vector []float32 `json:"feedback_vector,omitempty"`

	// CreatedAt is the intake timestamp.
	CreatedAt time.Time `json:"created_at"`
}

// HasVector reports whether the feedback already carries an embedding.
func (f *Feedback) HasVector() bool {
	return len(f.Vector) > 0
}
