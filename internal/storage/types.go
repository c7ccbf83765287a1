package storage

import "errors"

var (
	// ErrNotFound indicates that the requested resource was not found.
	ErrNotFound = errors.New("resource not found")

	// ErrInvalidInput indicates that the input parameters are invalid.
	ErrInvalidInput = errors.New("invalid input")
)

const (
	// DefaultSimilarityFloor is the minimum cosine similarity a candidate
	// entity must reach before the lexical condition is even considered.
	// Bounds the candidate set; similarity alone over short entity values is
	// too noisy to tag on.
	DefaultSimilarityFloor = 0.5

	// DefaultMatchLimit caps the number of ranked candidates returned.
	DefaultMatchLimit = 20

	// maxMatchLimit is the hard cap on candidates per query.
	maxMatchLimit = 100
)

// MatchOptions tunes the hybrid retrieval query.
type MatchOptions struct {
	// SimilarityFloor filters candidates to cosine similarity strictly
	// greater than this value (default: 0.5).
	SimilarityFloor float64

	// Limit is the maximum number of ranked candidates to return
	// (default: 20, max: 100).
	Limit int
}

// Normalize applies defaults and validates the MatchOptions.
func (o *MatchOptions) Normalize() {
	if o.SimilarityFloor <= 0 || o.SimilarityFloor >= 1 {
		o.SimilarityFloor = DefaultSimilarityFloor
	}

	if o.Limit < 1 {
		o.Limit = DefaultMatchLimit
	}

	if o.Limit > maxMatchLimit {
		o.Limit = maxMatchLimit
	}
}
