// Package sqlite provides the embedded SQLite implementation of the storage
// interfaces. Vectors are stored as packed little-endian float32 BLOBs and
// similarity is computed in Go, which keeps the backend dependency-free of
// any vector extension at the cost of a sequential scan per match.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	_ "modernc.org/sqlite" // SQLite driver

	"github.com/scrypster/tagloop/internal/storage"
)

// Ensure *Store implements the composed storage interface at compile time.
var _ storage.Store = (*Store)(nil)

// Schema contains the SQL statements to create the SQLite schema.
// Mirrors the PostgreSQL schema; the uniqueness constraints on type_name and
// (type_id, entity_value) are the invariants the upsert path relies on.
const Schema = `
CREATE TABLE IF NOT EXISTS customer_feedback (
    feedback_id TEXT PRIMARY KEY,
    feedback_text TEXT NOT NULL,
    feedback_vector BLOB,
    created_at TIMESTAMP NOT NULL
);

CREATE TABLE IF NOT EXISTS entity_types (
    type_id TEXT PRIMARY KEY,
    type_name TEXT NOT NULL,
    created_at TIMESTAMP NOT NULL,

    UNIQUE(type_name)
);

CREATE TABLE IF NOT EXISTS entities (
    entity_id TEXT PRIMARY KEY,
    type_id TEXT NOT NULL,
    entity_value TEXT NOT NULL,
    entity_vector BLOB,
    confidence REAL NOT NULL DEFAULT 0.0,
    created_at TIMESTAMP NOT NULL,

    FOREIGN KEY (type_id) REFERENCES entity_types(type_id) ON DELETE CASCADE,

    UNIQUE(type_id, entity_value)
);

CREATE TABLE IF NOT EXISTS feedback_entity_relations (
    feedback_id TEXT NOT NULL,
    entity_id TEXT NOT NULL,
    match_confidence REAL NOT NULL DEFAULT 0.0,
    created_at TIMESTAMP NOT NULL,

    PRIMARY KEY (feedback_id, entity_id),
    FOREIGN KEY (feedback_id) REFERENCES customer_feedback(feedback_id) ON DELETE CASCADE,
    FOREIGN KEY (entity_id) REFERENCES entities(entity_id) ON DELETE CASCADE
);

CREATE TABLE IF NOT EXISTS precipitation_log (
    id TEXT PRIMARY KEY,
    feedback_id TEXT NOT NULL,
    entity_id TEXT NOT NULL,
    agent_confidence REAL NOT NULL DEFAULT 0.0,
    created_at TIMESTAMP NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_feedback_created_at ON customer_feedback(created_at);
CREATE INDEX IF NOT EXISTS idx_entities_type ON entities(type_id);
CREATE INDEX IF NOT EXISTS idx_relations_entity ON feedback_entity_relations(entity_id);
CREATE INDEX IF NOT EXISTS idx_relations_created_at ON feedback_entity_relations(created_at);
CREATE INDEX IF NOT EXISTS idx_precipitation_feedback ON precipitation_log(feedback_id);
CREATE INDEX IF NOT EXISTS idx_precipitation_entity ON precipitation_log(entity_id);
`

// Store implements storage.Store using SQLite.
type Store struct {
	db *sql.DB
}

// NewStore opens a SQLite database, configures WAL mode, and creates the
// schema. Use ":memory:" as the dsn for an ephemeral store in tests.
func NewStore(dsn string) (*Store, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("sqlite: failed to open database: %w", err)
	}

	// SQLite only supports one concurrent writer. Using a single open
	// connection serialises writes and avoids SQLITE_BUSY errors under
	// concurrent load — this is also what makes the entity upsert's
	// check-then-insert atomic across goroutines.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("sqlite: failed to enable WAL mode: %w", err)
	}

	if _, err := db.Exec("PRAGMA busy_timeout = 5000"); err != nil {
		db.Close()
		return nil, fmt.Errorf("sqlite: failed to set busy timeout: %w", err)
	}

	if _, err := db.Exec("PRAGMA foreign_keys=ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("sqlite: failed to enable foreign keys: %w", err)
	}

	if _, err := db.Exec(Schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("sqlite: failed to create schema: %w", err)
	}

	return &Store{db: db}, nil
}

// GetDB returns the underlying database connection. Used by tests for direct
// queries.
func (s *Store) GetDB() *sql.DB {
	return s.db
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// TruncateForTest removes all rows from every table. Only for use in tests.
func (s *Store) TruncateForTest(ctx context.Context) error {
	for _, table := range []string{
		"precipitation_log",
		"feedback_entity_relations",
		"entities",
		"entity_types",
		"customer_feedback",
	} {
		if _, err := s.db.ExecContext(ctx, "DELETE FROM "+table); err != nil {
			return fmt.Errorf("sqlite: truncate %s: %w", table, err)
		}
	}
	return nil
}
