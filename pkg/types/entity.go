package types

import "time"

// EntityType is a named category of entities (e.g. "complaint_category").
// Types are created on first sighting via get-or-create and are immutable
// afterwards. Name is unique across the library.
type EntityType struct {
	ID        string    `json:"type_id"`
	Name      string    `json:"type_name"`
	CreatedAt time.Time `json:"created_at"`
}

// Entity is one deduplicated (type, value) pair in the entity library,
// together with its embedding and the confidence the extractor reported when
// it was first discovered. The library is append-only: the (TypeID, Value)
// pair is unique and a row is never updated after creation.
type Entity struct {
	ID         string    `json:"entity_id"`
	TypeID     string    `json:"type_id"`
	Value      string    `json:"entity_value"`
	Vector     []float32 `json:"entity_vector,omitempty"`
	Confidence float64   `json:"confidence"`
	CreatedAt  time.Time `json:"created_at"`
}

// EmbeddingText returns the canonical text that is embedded for an entity:
// the type name joined with the value. Keeping this in one place guarantees
// the library and any reindexing job embed entities identically.
func EmbeddingText(typeName, entityValue string) string {
	return typeName + ":" + entityValue
}

// EntityMatch is one ranked candidate returned by the hybrid matcher: an
// existing library entity plus the similarity score between the feedback
// vector and the entity vector.
type EntityMatch struct {
	EntityID        string  `json:"entity_id"`
	TypeName        string  `json:"type_name"`
	EntityValue     string  `json:"entity_value"`
	MatchConfidence float64 `json:"match_confidence"`
}

// ExtractedEntity is one candidate entity proposed by the external semantic
// extractor for a piece of feedback text. Confidence is the extractor's
// self-reported score; the adapter substitutes a default when it is omitted.
type ExtractedEntity struct {
	TypeName   string  `json:"type_name"`
	Value      string  `json:"entity_value"`
	Confidence float64 `json:"confidence,omitempty"`
}

// Valid reports whether the extracted entity carries both required fields.
// The extractor occasionally emits partial items; those are skipped rather
// than failing the whole escalation.
func (e *ExtractedEntity) Valid() bool {
	return e.TypeName != "" && e.Value != ""
}
