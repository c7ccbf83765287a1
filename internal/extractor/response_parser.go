package extractor

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/scrypster/tagloop/pkg/types"
)

// DefaultConfidence is assigned to extracted entities when the agent omits a
// confidence score. Deliberately high: an entity the agent committed to
// naming is trusted, unlike a retrieval similarity score.
const DefaultConfidence = 0.95

// extractJSONArray pulls the first complete JSON array out of a string that
// may contain surrounding prose or markdown fences. Agents add explanations
// around the payload despite instructions; everything outside the brackets is
// discarded.
func extractJSONArray(text string) string {
	text = strings.ReplaceAll(text, "```json", "")
	text = strings.ReplaceAll(text, "```", "")
	text = strings.TrimSpace(text)

	start := strings.Index(text, "[")
	if start == -1 {
		return text // no array found; let the parser report the failure
	}

	depth := 0
	inString := false
	escape := false

	for i := start; i < len(text); i++ {
		ch := text[i]

		if escape {
			escape = false
			continue
		}
		if ch == '\\' {
			escape = true
			continue
		}
		if ch == '"' {
			inString = !inString
			continue
		}

		if !inString {
			switch ch {
			case '[':
				depth++
			case ']':
				depth--
				if depth == 0 {
					return text[start : i+1]
				}
			}
		}
	}

	return text // unbalanced; let the parser report the failure
}

// ParseEntityList parses the agent's content string into candidate entities.
// Items missing a type name or value are skipped rather than failing the
// whole extraction; omitted or out-of-range confidences are replaced with
// DefaultConfidence. Returns ErrMalformedResponse when the payload is not a
// JSON entity list at all.
func ParseEntityList(content string) ([]types.ExtractedEntity, error) {
	if strings.TrimSpace(content) == "" {
		return []types.ExtractedEntity{}, nil
	}

	var raw []types.ExtractedEntity
	if err := json.Unmarshal([]byte(extractJSONArray(content)), &raw); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}

	entities := make([]types.ExtractedEntity, 0, len(raw))
	for _, e := range raw {
		if !e.Valid() {
			continue
		}
		if e.Confidence <= 0 || e.Confidence > 1 {
			e.Confidence = DefaultConfidence
		}
		entities = append(entities, e)
	}

	return entities, nil
}
