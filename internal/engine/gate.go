package engine

import "github.com/scrypster/tagloop/pkg/types"

// DefaultConfidenceThreshold is the retrieval confidence below which a
// feedback item is escalated to the external extractor.
const DefaultConfidenceThreshold = 0.80

// Decision is the confidence gate's routing outcome for one feedback item.
type Decision int

const (
	// DecisionDirectTag tags the item with the best retrieval candidate.
	DecisionDirectTag Decision = iota

	// DecisionEscalate routes the item to the external extractor.
	DecisionEscalate
)

// String returns the decision name for logging.
func (d Decision) String() string {
	switch d {
	case DecisionDirectTag:
		return "direct_tag"
	case DecisionEscalate:
		return "escalate"
	default:
		return "unknown"
	}
}

// Evaluate inspects the matcher's ranked candidates against the threshold:
//
//   - no candidates → escalate
//   - best confidence < threshold → escalate
//   - best confidence ≥ threshold → direct-tag with the best candidate
//
// Candidates arrive sorted descending, so the first element is the best; a
// tie on confidence resolves to the first-encountered candidate, which keeps
// the choice deterministic.
func Evaluate(matches []types.EntityMatch, threshold float64) (Decision, *types.EntityMatch) {
	if len(matches) == 0 {
		return DecisionEscalate, nil
	}

	best := matches[0]
	for _, m := range matches[1:] {
		if m.MatchConfidence > best.MatchConfidence {
			best = m
		}
	}

	if best.MatchConfidence < threshold {
		return DecisionEscalate, nil
	}

	return DecisionDirectTag, &best
}
