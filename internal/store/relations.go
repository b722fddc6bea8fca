package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/basicmemory/basic-memory/internal/syncerr"
)

// ReplaceRelations atomically replaces all outgoing relations owned by
// fromID with list, deduplicated by (relation_type, to_name). Each
// relation's ToID, if set, is validated against the foreign key; a
// stale target is reverted to unresolved without returning an error
// (the relation is still written, unresolved, with to_name kept).
func (s *Store) ReplaceRelations(ctx context.Context, fromID int64, list []Relation) ([]Relation, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin replace relations: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM relations WHERE from_id = ?`, fromID); err != nil {
		return nil, fmt.Errorf("clear relations for entity %d: %w", fromID, err)
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO relations (from_id, to_id, to_name, relation_type, context)
		VALUES (?, ?, ?, ?, ?)
	`)
	if err != nil {
		return nil, fmt.Errorf("prepare relation insert: %w", err)
	}
	defer stmt.Close()

	seen := make(map[[2]string]bool, len(list))
	var written []Relation
	for _, rel := range list {
		key := [2]string{rel.RelationType, rel.ToName}
		if seen[key] {
			continue
		}
		seen[key] = true

		toID := rel.ToID
		_, err := stmt.ExecContext(ctx, fromID, toID, rel.ToName, rel.RelationType, rel.Context)
		if err != nil && isForeignKeyViolation(err) {
			// The resolved target vanished between resolution and write;
			// fall back to unresolved and keep going.
			toID = sql.NullInt64{}
			_, err = stmt.ExecContext(ctx, fromID, toID, rel.ToName, rel.RelationType, rel.Context)
		}
		if err != nil {
			return nil, fmt.Errorf("insert relation from %d to %q: %w", fromID, rel.ToName, err)
		}
		written = append(written, Relation{
			FromID:       fromID,
			ToID:         toID,
			ToName:       rel.ToName,
			RelationType: rel.RelationType,
			Context:      rel.Context,
		})
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit relations for entity %d: %w", fromID, err)
	}
	return written, nil
}

func isForeignKeyViolation(err error) bool {
	return err != nil && strings.Contains(err.Error(), "FOREIGN KEY constraint failed")
}

// ResolvePending returns the IDs of relations whose to_id is still
// null and whose to_name equals name.
func (s *Store) ResolvePending(ctx context.Context, name string) ([]int64, error) {
	if name == "" {
		return nil, nil
	}
	rows, err := s.db.QueryContext(ctx, `SELECT id FROM relations WHERE to_id IS NULL AND to_name = ?`, name)
	if err != nil {
		return nil, fmt.Errorf("resolve pending for %q: %w", name, err)
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan pending relation id: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// ResolveRelationTo sets to_id on a previously-unresolved relation. A
// stale toID (the target vanished in the meantime) surfaces an
// IntegrityError and leaves the relation unresolved.
func (s *Store) ResolveRelationTo(ctx context.Context, relationID, toID int64) error {
	_, err := s.db.ExecContext(ctx, `UPDATE relations SET to_id = ? WHERE id = ?`, toID, relationID)
	if err != nil && isForeignKeyViolation(err) {
		return &syncerr.IntegrityError{RelationID: relationID, ToID: toID}
	}
	if err != nil {
		return fmt.Errorf("resolve relation %d to %d: %w", relationID, toID, err)
	}
	return nil
}

// RelationsByFrom returns every outgoing relation for an entity.
func (s *Store) RelationsByFrom(ctx context.Context, fromID int64) ([]Relation, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, from_id, to_id, to_name, relation_type, context
		FROM relations WHERE from_id = ? ORDER BY id
	`, fromID)
	if err != nil {
		return nil, fmt.Errorf("list relations for entity %d: %w", fromID, err)
	}
	defer rows.Close()

	var out []Relation
	for rows.Next() {
		var r Relation
		if err := rows.Scan(&r.ID, &r.FromID, &r.ToID, &r.ToName, &r.RelationType, &r.Context); err != nil {
			return nil, fmt.Errorf("scan relation: %w", err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// RelationsByTo returns every resolved relation pointing at an entity.
func (s *Store) RelationsByTo(ctx context.Context, toID int64) ([]Relation, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, from_id, to_id, to_name, relation_type, context
		FROM relations WHERE to_id = ? ORDER BY id
	`, toID)
	if err != nil {
		return nil, fmt.Errorf("list incoming relations for entity %d: %w", toID, err)
	}
	defer rows.Close()

	var out []Relation
	for rows.Next() {
		var r Relation
		if err := rows.Scan(&r.ID, &r.FromID, &r.ToID, &r.ToName, &r.RelationType, &r.Context); err != nil {
			return nil, fmt.Errorf("scan relation: %w", err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}
