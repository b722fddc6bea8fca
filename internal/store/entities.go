package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/basicmemory/basic-memory/internal/syncerr"
)

// ErrNotFound is returned by the Find* lookups when no row matches.
var ErrNotFound = errors.New("store: not found")

// UpsertEntity creates or updates the entity identified by filePath.
// The checksum is left null; CommitChecksum stamps it once relations
// for the entity have been written (Phase 5 of the sync protocol).
func (s *Store) UpsertEntity(ctx context.Context, filePath string, fields EntityFields) (Entity, error) {
	existing, err := s.FindByFilePath(ctx, filePath)
	switch {
	case errors.Is(err, ErrNotFound):
		res, err := s.db.ExecContext(ctx, `
			INSERT INTO entities (permalink, title, entity_type, file_path, content_type, checksum, created_at, updated_at)
			VALUES (?, ?, ?, ?, ?, NULL, ?, ?)
		`, fields.Permalink, fields.Title, fields.EntityType, filePath, fields.ContentType,
			formatTime(fields.CreatedAt), formatTime(fields.UpdatedAt))
		if err != nil {
			return Entity{}, fmt.Errorf("insert entity %s: %w", filePath, err)
		}
		id, err := res.LastInsertId()
		if err != nil {
			return Entity{}, fmt.Errorf("last insert id: %w", err)
		}
		return s.FindByID(ctx, id)
	case err != nil:
		return Entity{}, err
	default:
		_, err := s.db.ExecContext(ctx, `
			UPDATE entities
			SET permalink = ?, title = ?, entity_type = ?, content_type = ?, checksum = NULL, updated_at = ?
			WHERE id = ?
		`, fields.Permalink, fields.Title, fields.EntityType, fields.ContentType, formatTime(fields.UpdatedAt), existing.ID)
		if err != nil {
			return Entity{}, fmt.Errorf("update entity %s: %w", filePath, err)
		}
		return s.FindByID(ctx, existing.ID)
	}
}

// CommitChecksum stamps the final content checksum on an entity; this
// is always the last write for an entity in a sync cycle.
func (s *Store) CommitChecksum(ctx context.Context, id int64, checksum string) error {
	_, err := s.db.ExecContext(ctx, `UPDATE entities SET checksum = ? WHERE id = ?`, checksum, id)
	if err != nil {
		return fmt.Errorf("commit checksum for entity %d: %w", id, err)
	}
	return nil
}

// SetFilePath rewrites the file_path of an entity, used by Phase 2
// (moves) of the sync protocol.
func (s *Store) SetFilePath(ctx context.Context, id int64, newPath string) error {
	_, err := s.db.ExecContext(ctx, `UPDATE entities SET file_path = ? WHERE id = ?`, newPath, id)
	if err != nil {
		return fmt.Errorf("set file_path for entity %d: %w", id, err)
	}
	return nil
}

// SetPermalink rewrites the permalink of an entity, used by Phase 2
// when a moved file's permalink must be recomputed or cleared.
func (s *Store) SetPermalink(ctx context.Context, id int64, permalink sql.NullString) error {
	_, err := s.db.ExecContext(ctx, `UPDATE entities SET permalink = ? WHERE id = ?`, permalink, id)
	if err != nil {
		return fmt.Errorf("set permalink for entity %d: %w", id, err)
	}
	return nil
}

// FindByID looks up an entity by its primary key.
func (s *Store) FindByID(ctx context.Context, id int64) (Entity, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+entityColumns+` FROM entities WHERE id = ?`, id)
	e, err := scanEntity(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Entity{}, ErrNotFound
	}
	if err != nil {
		return Entity{}, fmt.Errorf("find entity by id %d: %w", id, err)
	}
	return e, nil
}

// FindByPermalink looks up an entity by its unique permalink.
func (s *Store) FindByPermalink(ctx context.Context, permalink string) (Entity, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+entityColumns+` FROM entities WHERE permalink = ?`, permalink)
	e, err := scanEntity(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Entity{}, ErrNotFound
	}
	if err != nil {
		return Entity{}, fmt.Errorf("find entity by permalink %q: %w", permalink, err)
	}
	return e, nil
}

// FindByTitle looks up the first entity with an exact title match.
// Titles are not unique; the match with the lowest id is returned.
func (s *Store) FindByTitle(ctx context.Context, title string) (Entity, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+entityColumns+` FROM entities WHERE title = ? ORDER BY id LIMIT 1`, title)
	e, err := scanEntity(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Entity{}, ErrNotFound
	}
	if err != nil {
		return Entity{}, fmt.Errorf("find entity by title %q: %w", title, err)
	}
	return e, nil
}

// FindByFilePath looks up an entity by its unique repository-relative
// file path.
func (s *Store) FindByFilePath(ctx context.Context, filePath string) (Entity, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+entityColumns+` FROM entities WHERE file_path = ?`, filePath)
	e, err := scanEntity(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Entity{}, ErrNotFound
	}
	if err != nil {
		return Entity{}, fmt.Errorf("find entity by file_path %q: %w", filePath, err)
	}
	return e, nil
}

// FindByPathIDs returns every stored file_path -> checksum pair, the
// input the Change Detector diffs a fresh scan against.
func (s *Store) FindByPathIDs(ctx context.Context) (map[string]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT file_path, checksum FROM entities`)
	if err != nil {
		return nil, fmt.Errorf("list file paths: %w", err)
	}
	defer rows.Close()

	out := make(map[string]string)
	for rows.Next() {
		var path string
		var checksum sql.NullString
		if err := rows.Scan(&path, &checksum); err != nil {
			return nil, fmt.Errorf("scan file path row: %w", err)
		}
		if checksum.Valid {
			out[path] = checksum.String
		}
	}
	return out, rows.Err()
}

// AllPermalinks returns every entity's id and permalink, the input a
// glob-matched lookup filters in memory (sqlite has no glob operator
// matching doublestar's semantics).
func (s *Store) AllPermalinks(ctx context.Context) (map[int64]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id, permalink FROM entities`)
	if err != nil {
		return nil, fmt.Errorf("list permalinks: %w", err)
	}
	defer rows.Close()

	out := make(map[int64]string)
	for rows.Next() {
		var id int64
		var permalink sql.NullString
		if err := rows.Scan(&id, &permalink); err != nil {
			return nil, fmt.Errorf("scan permalink row: %w", err)
		}
		if permalink.Valid {
			out[id] = permalink.String
		}
	}
	return out, rows.Err()
}

// DeleteByFilePath removes the entity at filePath, cascading to its
// observations and outgoing relations. Incoming relations are reverted
// to unresolved (to_id null, to_name preserved) by the ON DELETE SET
// NULL foreign key. Returns the deleted entity (its ID and permalink
// serve search index cleanup), or ErrNotFound if no entity had that
// path.
func (s *Store) DeleteByFilePath(ctx context.Context, filePath string) (Entity, error) {
	entity, err := s.FindByFilePath(ctx, filePath)
	if err != nil {
		return Entity{}, err
	}
	if _, err := s.db.ExecContext(ctx, `DELETE FROM entities WHERE id = ?`, entity.ID); err != nil {
		return Entity{}, fmt.Errorf("delete entity %s: %w", filePath, err)
	}
	return entity, nil
}

// AllocateUniquePermalink returns candidate if no entity currently
// holds it, otherwise the smallest "candidate-N" (N >= 1) that is free.
// excludeID, if non-zero, is ignored when checking for a clash (used
// when re-deriving the permalink of an entity being updated).
func (s *Store) AllocateUniquePermalink(ctx context.Context, candidate string, excludeID int64) (string, error) {
	free, err := s.permalinkFree(ctx, candidate, excludeID)
	if err != nil {
		return "", err
	}
	if free {
		return candidate, nil
	}
	const maxAttempts = 10
	for n := 1; n <= maxAttempts; n++ {
		attempt := fmt.Sprintf("%s-%d", candidate, n)
		free, err := s.permalinkFree(ctx, attempt, excludeID)
		if err != nil {
			return "", err
		}
		if free {
			return attempt, nil
		}
	}
	return "", &syncerr.ConflictError{Candidate: candidate, Attempts: maxAttempts}
}

func (s *Store) permalinkFree(ctx context.Context, candidate string, excludeID int64) (bool, error) {
	var count int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM entities WHERE permalink = ? AND id != ?`, candidate, excludeID).Scan(&count)
	if err != nil {
		return false, fmt.Errorf("check permalink %q: %w", candidate, err)
	}
	return count == 0, nil
}
