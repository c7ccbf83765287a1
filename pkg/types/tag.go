package types

import "time"

// FeedbackEntityRelation records that a feedback item was tagged with an
// entity at a given confidence. Rows are append-only; a feedback item may
// accumulate several relations (multi-entity tagging) but never loses one.
type FeedbackEntityRelation struct {
	FeedbackID      string    `json:"feedback_id"`
	EntityID        string    `json:"entity_id"`
	MatchConfidence float64   `json:"match_confidence"`
	CreatedAt       time.Time `json:"created_at"`
}

// PrecipitationRecord is the audit trail of a tag produced via the escalation
// path: the entity "precipitated" out of the extractor into the library. Kept
// distinct from direct-match tags so escalation rates can be reported later.
type PrecipitationRecord struct {
	ID              string    `json:"id"`
	FeedbackID      string    `json:"feedback_id"`
	EntityID        string    `json:"entity_id"`
	AgentConfidence float64   `json:"agent_confidence"`
	CreatedAt       time.Time `json:"created_at"`
}

// EscalationStats summarizes how many tags came from direct retrieval matches
// versus the escalation path over a reporting window.
type EscalationStats struct {
	// TotalTags is the number of relation rows written in the window.
	TotalTags int `json:"total_tags"`

	// EscalatedTags is the number of those that have a precipitation record.
	EscalatedTags int `json:"escalated_tags"`
}

// EscalationRate returns the fraction of tags produced via escalation,
// or 0 when no tags were written in the window.
func (s *EscalationStats) EscalationRate() float64 {
	if s.TotalTags == 0 {
		return 0
	}
	return float64(s.EscalatedTags) / float64(s.TotalTags)
}
