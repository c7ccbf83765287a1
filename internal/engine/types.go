// Package engine implements the confidence-gated tagging pipeline: batch
// selection of untagged feedback, lazy embedding backfill, hybrid matching
// against the entity library, the confidence gate, and the escalation path
// through the external extractor.
package engine

import "fmt"

// BatchReport summarizes one orchestrator run.
type BatchReport struct {
	// Processed is the number of feedback items selected and attempted.
	Processed int

	// Tagged is the number of items that ended the run with at least one
	// relation row.
	Tagged int

	// Escalated is the number of items routed to the external extractor.
	Escalated int

	// Failures lists every item-level failure. An item appearing here
	// remains untagged and eligible for the next run.
	Failures []ItemFailure
}

// ItemFailure records a per-item error together with the pipeline stage it
// occurred in. Failures never cross item boundaries: one entry here says
// nothing about any other item in the batch.
type ItemFailure struct {
	FeedbackID string
	Stage      string // "embed", "match", "tag", or "extract"
	Err        error
}

// String renders the failure for batch summary logging.
func (f ItemFailure) String() string {
	return fmt.Sprintf("feedback %s failed at %s: %v", f.FeedbackID, f.Stage, f.Err)
}
