package store

import (
	"context"
	"fmt"
)

// ReplaceObservations atomically replaces all observations owned by
// entityID with list, deduplicated by (category, content).
func (s *Store) ReplaceObservations(ctx context.Context, entityID int64, list []Observation) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin replace observations: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM observations WHERE entity_id = ?`, entityID); err != nil {
		return fmt.Errorf("clear observations for entity %d: %w", entityID, err)
	}

	stmt, err := tx.PrepareContext(ctx, `INSERT OR IGNORE INTO observations (entity_id, category, content) VALUES (?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("prepare observation insert: %w", err)
	}
	defer stmt.Close()

	seen := make(map[[2]string]bool, len(list))
	for _, obs := range list {
		key := [2]string{obs.Category, obs.Content}
		if seen[key] {
			continue
		}
		seen[key] = true
		if _, err := stmt.ExecContext(ctx, entityID, obs.Category, obs.Content); err != nil {
			return fmt.Errorf("insert observation for entity %d: %w", entityID, err)
		}
	}

	return tx.Commit()
}

// ObservationsByEntity returns every observation owned by entityID.
func (s *Store) ObservationsByEntity(ctx context.Context, entityID int64) ([]Observation, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id, entity_id, category, content FROM observations WHERE entity_id = ? ORDER BY id`, entityID)
	if err != nil {
		return nil, fmt.Errorf("list observations for entity %d: %w", entityID, err)
	}
	defer rows.Close()

	var out []Observation
	for rows.Next() {
		var o Observation
		if err := rows.Scan(&o.ID, &o.EntityID, &o.Category, &o.Content); err != nil {
			return nil, fmt.Errorf("scan observation: %w", err)
		}
		out = append(out, o)
	}
	return out, rows.Err()
}
