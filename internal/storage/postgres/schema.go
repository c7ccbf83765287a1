// Package postgres provides the PostgreSQL implementation of the storage
// interfaces, using pgvector for similarity search and tsvector full-text
// search for the lexical half of hybrid matching.
package postgres

// Schema contains the SQL statements to create the database schema.
// All statements are idempotent (IF NOT EXISTS) so the schema can be applied
// on every startup. The vector columns require the pgvector extension, which
// NewStore enables before applying the schema.
const Schema = `
-- Customer feedback: created by upstream intake, vector backfilled lazily
-- by the tagging pipeline.
CREATE TABLE IF NOT EXISTS customer_feedback (
    feedback_id TEXT PRIMARY KEY,
    feedback_text TEXT NOT NULL,
    feedback_vector vector,
    created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
);

-- Entity types: created on first sighting, immutable afterwards.
CREATE TABLE IF NOT EXISTS entity_types (
    type_id TEXT PRIMARY KEY,
    type_name TEXT NOT NULL,
    created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,

    UNIQUE(type_name)
);

-- Entity library: deduplicated, append-only catalog of (type, value) pairs.
-- The UNIQUE(type_id, entity_value) constraint is the single serialization
-- point for concurrent get-or-create writers.
CREATE TABLE IF NOT EXISTS entities (
    entity_id TEXT PRIMARY KEY,
    type_id TEXT NOT NULL,
    entity_value TEXT NOT NULL,
    entity_vector vector,
    confidence REAL NOT NULL DEFAULT 0.0,
    created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,

    FOREIGN KEY (type_id) REFERENCES entity_types(type_id) ON DELETE CASCADE,

    UNIQUE(type_id, entity_value)
);

-- Tag results: append-only feedback→entity relations.
CREATE TABLE IF NOT EXISTS feedback_entity_relations (
    feedback_id TEXT NOT NULL,
    entity_id TEXT NOT NULL,
    match_confidence REAL NOT NULL DEFAULT 0.0,
    created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,

    PRIMARY KEY (feedback_id, entity_id),
    FOREIGN KEY (feedback_id) REFERENCES customer_feedback(feedback_id) ON DELETE CASCADE,
    FOREIGN KEY (entity_id) REFERENCES entities(entity_id) ON DELETE CASCADE
);

-- Escalation audit trail: one row per tag produced via the extractor path,
-- kept distinct from direct-match tags for rate reporting.
CREATE TABLE IF NOT EXISTS precipitation_log (
    id TEXT PRIMARY KEY,
    feedback_id TEXT NOT NULL,
    entity_id TEXT NOT NULL,
    agent_confidence REAL NOT NULL DEFAULT 0.0,
    created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
);

-- Indexes

CREATE INDEX IF NOT EXISTS idx_feedback_created_at ON customer_feedback(created_at);
CREATE INDEX IF NOT EXISTS idx_entities_type ON entities(type_id);
CREATE INDEX IF NOT EXISTS idx_relations_entity ON feedback_entity_relations(entity_id);
CREATE INDEX IF NOT EXISTS idx_relations_created_at ON feedback_entity_relations(created_at);
CREATE INDEX IF NOT EXISTS idx_precipitation_feedback ON precipitation_log(feedback_id);
CREATE INDEX IF NOT EXISTS idx_precipitation_entity ON precipitation_log(entity_id);
`

// MigrationLexical adds full-text search support to the entities table.
// The lexical half of hybrid matching runs the feedback text as a
// natural-language query against entity values, so entity_value is the
// indexed document. Safe to run multiple times.
const MigrationLexical = `
-- Add tsvector column for the entity value if it doesn't already exist.
DO $$
BEGIN
    IF NOT EXISTS (
        SELECT 1 FROM information_schema.columns
        WHERE table_name = 'entities' AND column_name = 'entity_tsv'
    ) THEN
        ALTER TABLE entities ADD COLUMN entity_tsv tsvector;
    END IF;
END
$$;

-- Populate the tsvector column for any existing rows. Underscores are folded
-- to spaces so compound values like "delivery_delay" match word queries.
UPDATE entities
SET entity_tsv = to_tsvector('english', replace(entity_value, '_', ' '))
WHERE entity_tsv IS NULL;

-- GIN index for fast lexical filtering inside the hybrid query.
CREATE INDEX IF NOT EXISTS idx_entities_tsv ON entities USING GIN(entity_tsv);

-- Trigger to auto-populate entity_tsv on INSERT. Entities are append-only,
-- so no UPDATE trigger is needed.
CREATE OR REPLACE FUNCTION entities_tsv_update()
RETURNS TRIGGER AS $$
BEGIN
    NEW.entity_tsv := to_tsvector('english', replace(COALESCE(NEW.entity_value, ''), '_', ' '));
    RETURN NEW;
END;
$$ LANGUAGE plpgsql;

DROP TRIGGER IF EXISTS entities_tsv_trigger ON entities;
CREATE TRIGGER entities_tsv_trigger
    BEFORE INSERT OR UPDATE OF entity_value
    ON entities
    FOR EACH ROW
    EXECUTE FUNCTION entities_tsv_update();
`

// MigrationVectorIndex creates the approximate-nearest-neighbor index on
// entity vectors. ivfflat requires at least one row to exist, so the creation
// is guarded; the matcher works (sequentially) without the index.
const MigrationVectorIndex = `
DO $$
BEGIN
  IF NOT EXISTS (
    SELECT 1 FROM pg_indexes WHERE indexname = 'idx_entities_vec_cosine'
  ) THEN
    IF EXISTS (SELECT 1 FROM entities LIMIT 1) THEN
      EXECUTE 'CREATE INDEX idx_entities_vec_cosine ON entities USING ivfflat (entity_vector vector_cosine_ops) WITH (lists = 100)';
    END IF;
  END IF;
END$$;
`
