package store

import (
	"database/sql"
	"fmt"
	"time"
)

const schemaVersionTable = `
CREATE TABLE IF NOT EXISTS schema_version (
    version INTEGER PRIMARY KEY,
    applied_at TEXT NOT NULL
);
`

// migrations is an ordered list of database migrations. Each migration
// is a function that takes a transaction and applies schema changes.
// Migrations are applied in order, starting from version 0.
// IMPORTANT: never modify existing migrations, only add new ones.
var migrations = []func(*sql.Tx) error{
	migrateV0,
}

// migrateV0 creates the entity graph and the search index tables.
func migrateV0(tx *sql.Tx) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS entities (
            id INTEGER PRIMARY KEY AUTOINCREMENT,
            permalink TEXT UNIQUE,
            title TEXT NOT NULL,
            entity_type TEXT NOT NULL DEFAULT 'note',
            file_path TEXT NOT NULL UNIQUE,
            content_type TEXT NOT NULL,
            checksum TEXT,
            created_at TEXT NOT NULL,
            updated_at TEXT NOT NULL
        );`,
		`CREATE TABLE IF NOT EXISTS observations (
            id INTEGER PRIMARY KEY AUTOINCREMENT,
            entity_id INTEGER NOT NULL REFERENCES entities(id) ON DELETE CASCADE,
            category TEXT NOT NULL,
            content TEXT NOT NULL,
            UNIQUE(entity_id, category, content)
        );`,
		`CREATE INDEX IF NOT EXISTS idx_observations_entity ON observations(entity_id);`,
		`CREATE TABLE IF NOT EXISTS relations (
            id INTEGER PRIMARY KEY AUTOINCREMENT,
            from_id INTEGER NOT NULL REFERENCES entities(id) ON DELETE CASCADE,
            to_id INTEGER REFERENCES entities(id) ON DELETE SET NULL,
            to_name TEXT NOT NULL,
            relation_type TEXT NOT NULL,
            context TEXT DEFAULT ''
        );`,
		`CREATE INDEX IF NOT EXISTS idx_relations_from ON relations(from_id);`,
		`CREATE INDEX IF NOT EXISTS idx_relations_to ON relations(to_id);`,
		`CREATE INDEX IF NOT EXISTS idx_relations_to_name ON relations(to_name);`,
		`CREATE UNIQUE INDEX IF NOT EXISTS idx_relations_resolved
            ON relations(from_id, to_id, relation_type) WHERE to_id IS NOT NULL;`,
		`CREATE UNIQUE INDEX IF NOT EXISTS idx_relations_unresolved
            ON relations(from_id, to_name, relation_type) WHERE to_id IS NULL;`,
		// Search Indexer (component F): one FTS5 row per entity, observation,
		// and resolved relation. "type" distinguishes the three kinds.
		`CREATE VIRTUAL TABLE IF NOT EXISTS search_index USING fts5(
            type UNINDEXED,
            entity_id UNINDEXED,
            title,
            content,
            permalink,
            file_path UNINDEXED,
            from_id UNINDEXED,
            to_id UNINDEXED,
            relation_type UNINDEXED,
            category UNINDEXED,
            created_at UNINDEXED,
            updated_at UNINDEXED,
            metadata UNINDEXED,
            tokenize="unicode61"
        );`,
	}
	for _, stmt := range stmts {
		if _, err := tx.Exec(stmt); err != nil {
			return fmt.Errorf("exec %q: %w", stmt, err)
		}
	}
	return nil
}

func (s *Store) ensureSchema() error {
	if _, err := s.db.Exec(schemaVersionTable); err != nil {
		return fmt.Errorf("create schema_version table: %w", err)
	}

	var currentVersion int
	row := s.db.QueryRow("SELECT COALESCE(MAX(version), -1) FROM schema_version")
	if err := row.Scan(&currentVersion); err != nil {
		return fmt.Errorf("get schema version: %w", err)
	}

	for i := currentVersion + 1; i < len(migrations); i++ {
		if err := s.runMigration(i); err != nil {
			return fmt.Errorf("run migration %d: %w", i, err)
		}
	}
	return nil
}

func (s *Store) runMigration(version int) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	if err := migrations[version](tx); err != nil {
		return fmt.Errorf("execute migration: %w", err)
	}

	now := time.Now().UTC().Format(time.RFC3339)
	if _, err := tx.Exec("INSERT INTO schema_version (version, applied_at) VALUES (?, ?)", version, now); err != nil {
		return fmt.Errorf("record migration: %w", err)
	}
	return tx.Commit()
}
