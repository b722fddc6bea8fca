// Package store implements the Entity Store: the persistent graph of
// entities, observations, and relations, plus the full-text search rows
// maintained alongside them. It follows the teacher repo's
// database/sql + modernc.org/sqlite + versioned-migration idiom.
package store

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite" // sqlite driver for database/sql
)

// Store wraps the sqlite connection backing both the entity graph and
// the search index rows.
type Store struct {
	db *sql.DB
}

// Entity is a row of the entities table.
type Entity struct {
	ID          int64
	Permalink   sql.NullString
	Title       string
	EntityType  string
	FilePath    string
	ContentType string
	Checksum    sql.NullString
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// EntityFields are the caller-supplied attributes of an upsert; ID and
// Checksum are not set here (checksum is committed last, see Phase 5 of
// the sync protocol).
type EntityFields struct {
	Permalink   sql.NullString
	Title       string
	EntityType  string
	ContentType string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// Observation is a row of the observations table.
type Observation struct {
	ID       int64
	EntityID int64
	Category string
	Content  string
}

// Relation is a row of the relations table. ToID is null while the
// target is unresolved.
type Relation struct {
	ID           int64
	FromID       int64
	ToID         sql.NullInt64
	ToName       string
	RelationType string
	Context      string
}

// Open opens (creating if necessary) the sqlite database at dbPath and
// applies pending migrations.
func Open(dbPath string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, fmt.Errorf("create store directory: %w", err)
	}
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL;",
		"PRAGMA foreign_keys=ON;",
		"PRAGMA busy_timeout=5000;",
	}
	for _, p := range pragmas {
		if _, err := db.ExecContext(context.Background(), p); err != nil {
			db.Close()
			return nil, fmt.Errorf("apply pragma %s: %w", p, err)
		}
	}

	s := &Store{db: db}
	if err := s.ensureSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ensure schema: %w", err)
	}
	return s, nil
}

// DB exposes the underlying connection so the Search Indexer can share
// it; the two components own disjoint tables in the same file.
func (s *Store) DB() *sql.DB { return s.db }

// Close closes the underlying database.
func (s *Store) Close() error { return s.db.Close() }

func formatTime(t time.Time) string {
	if t.IsZero() {
		t = time.Now().UTC()
	}
	return t.UTC().Format(time.RFC3339)
}

func parseTime(s string) time.Time {
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}
	}
	return t
}

func scanEntity(scanner interface {
	Scan(dest ...any) error
}) (Entity, error) {
	var e Entity
	var createdAt, updatedAt string
	if err := scanner.Scan(&e.ID, &e.Permalink, &e.Title, &e.EntityType, &e.FilePath, &e.ContentType, &e.Checksum, &createdAt, &updatedAt); err != nil {
		return Entity{}, err
	}
	e.CreatedAt = parseTime(createdAt)
	e.UpdatedAt = parseTime(updatedAt)
	return e, nil
}

const entityColumns = "id, permalink, title, entity_type, file_path, content_type, checksum, created_at, updated_at"
