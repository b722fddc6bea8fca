// Package search implements the Search Indexer: an FTS5-backed index
// over entities, observations, and resolved relations, kept coherent
// with the graph through a background task queue so the sync
// orchestrator never blocks on indexing.
package search

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Row mirrors one entry of the search_index FTS5 table.
type Row struct {
	Type         string // "entity", "observation", or "relation"
	EntityID     int64
	Title        string
	Content      string
	Permalink    string
	FilePath     string
	FromID       int64
	ToID         int64
	RelationType string
	Category     string
	CreatedAt    time.Time
	UpdatedAt    time.Time
	Metadata     string
}

// Result is a single search hit.
type Result struct {
	Row
	Score float64 // lower is closer, per sqlite's bm25()
}

// Query describes a search request.
type Query struct {
	Text      string
	Types     []string // subset of "entity", "observation", "relation"; empty means all
	AfterDate time.Time
	Page      int
	PageSize  int
}

// Indexer maintains the search_index table and a background task
// queue for eventually-consistent updates.
type Indexer struct {
	db      *sql.DB
	queue   chan job
	workers int
	wg      sync.WaitGroup
	ctx     context.Context
	cancel  context.CancelFunc
	stopped sync.Once
}

type job struct {
	id uuid.UUID
	fn func(context.Context) error
}

// New wraps db (already migrated by the entity store) with a search
// indexer running workers background goroutines.
func New(db *sql.DB, workers int) *Indexer {
	if workers < 1 {
		workers = 1
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Indexer{
		db:      db,
		queue:   make(chan job, 1024),
		workers: workers,
		ctx:     ctx,
		cancel:  cancel,
	}
}

// Start launches the background workers.
func (idx *Indexer) Start() {
	for i := 0; i < idx.workers; i++ {
		idx.wg.Add(1)
		go idx.worker()
	}
}

// Stop drains the queue and waits for in-flight jobs to finish. Callers
// should Stop before the process exits so eventual consistency is
// reached before the sync report is considered final.
func (idx *Indexer) Stop() {
	idx.stopped.Do(func() {
		idx.cancel()
		close(idx.queue)
		idx.wg.Wait()
	})
}

func (idx *Indexer) worker() {
	defer idx.wg.Done()
	for j := range idx.queue {
		_ = j.fn(idx.ctx) // errors are caller-observable only via Search staleness
	}
}

// submit enqueues fn as a background task, blocking if the queue is
// saturated rather than dropping — unlike best-effort background work,
// a dropped index update would leave the index permanently
// inconsistent with the graph.
func (idx *Indexer) submit(fn func(context.Context) error) uuid.UUID {
	id := uuid.New()
	idx.queue <- job{id: id, fn: fn}
	return id
}

// SubmitIndexEntity enqueues an index update for entity and its rows.
func (idx *Indexer) SubmitIndexEntity(entity Row, observations, relations []Row) uuid.UUID {
	return idx.submit(func(ctx context.Context) error {
		return idx.IndexEntity(ctx, entity, observations, relations)
	})
}

// SubmitDeleteByEntityID enqueues cascade removal of every row for id.
func (idx *Indexer) SubmitDeleteByEntityID(id int64) uuid.UUID {
	return idx.submit(func(ctx context.Context) error {
		return idx.DeleteByEntityID(ctx, id)
	})
}

// IndexEntity removes every prior row for entity.EntityID across all
// types and inserts the entity row plus one row per observation and
// one row per resolved relation.
func (idx *Indexer) IndexEntity(ctx context.Context, entity Row, observations, relations []Row) error {
	tx, err := idx.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin index entity: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM search_index WHERE entity_id = ?`, entity.EntityID); err != nil {
		return fmt.Errorf("clear search rows for entity %d: %w", entity.EntityID, err)
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO search_index (type, entity_id, title, content, permalink, file_path, from_id, to_id, relation_type, category, created_at, updated_at, metadata)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("prepare search insert: %w", err)
	}
	defer stmt.Close()

	rows := append([]Row{entity}, observations...)
	for _, rel := range relations {
		if rel.ToID == 0 {
			continue // unresolved relations are not searchable targets yet
		}
		rows = append(rows, rel)
	}

	for _, r := range rows {
		if err := insertRow(ctx, stmt, r); err != nil {
			return err
		}
	}
	return tx.Commit()
}

func insertRow(ctx context.Context, stmt *sql.Stmt, r Row) error {
	metadata := r.Metadata
	if metadata == "" {
		metadata = "{}"
	}
	_, err := stmt.ExecContext(ctx,
		r.Type, r.EntityID, r.Title, r.Content, r.Permalink, r.FilePath,
		nullableID(r.FromID), nullableID(r.ToID), r.RelationType, r.Category,
		formatTime(r.CreatedAt), formatTime(r.UpdatedAt), metadata,
	)
	if err != nil {
		return fmt.Errorf("insert search row (type=%s entity_id=%d): %w", r.Type, r.EntityID, err)
	}
	return nil
}

func nullableID(id int64) any {
	if id == 0 {
		return nil
	}
	return id
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}

// DeleteByEntityID cascades removal of every row for id.
func (idx *Indexer) DeleteByEntityID(ctx context.Context, id int64) error {
	_, err := idx.db.ExecContext(ctx, `DELETE FROM search_index WHERE entity_id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete search rows for entity %d: %w", id, err)
	}
	return nil
}

// DeleteByPermalink cascades removal of every row carrying permalink.
func (idx *Indexer) DeleteByPermalink(ctx context.Context, permalink string) error {
	_, err := idx.db.ExecContext(ctx, `DELETE FROM search_index WHERE permalink = ?`, permalink)
	if err != nil {
		return fmt.Errorf("delete search rows for permalink %q: %w", permalink, err)
	}
	return nil
}

// Search runs a (possibly empty-text) query over the index. Empty Text
// matches on the other filters alone; sqlite FTS5 rejects an empty
// MATCH argument, so that case skips the MATCH clause entirely.
func (idx *Indexer) Search(ctx context.Context, q Query) ([]Result, error) {
	page := q.Page
	if page < 1 {
		page = 1
	}
	pageSize := q.PageSize
	if pageSize <= 0 {
		pageSize = 20
	}

	var conditions []string
	var args []any

	text := strings.TrimSpace(q.Text)
	selectScore := "0.0 AS score"
	orderBy := "rowid ASC"
	if text != "" {
		conditions = append(conditions, "search_index MATCH ?")
		args = append(args, quoteFTSQuery(text))
		selectScore = "bm25(search_index) AS score"
		orderBy = "score ASC"
	}
	if len(q.Types) > 0 {
		placeholders := make([]string, len(q.Types))
		for i, t := range q.Types {
			placeholders[i] = "?"
			args = append(args, t)
		}
		conditions = append(conditions, "type IN ("+strings.Join(placeholders, ", ")+")")
	}
	if !q.AfterDate.IsZero() {
		conditions = append(conditions, "updated_at >= ?")
		args = append(args, formatTime(q.AfterDate))
	}

	where := ""
	if len(conditions) > 0 {
		where = "WHERE " + strings.Join(conditions, " AND ")
	}

	query := fmt.Sprintf(`
		SELECT rowid, type, entity_id, title, content, permalink, file_path,
		       COALESCE(from_id, 0), COALESCE(to_id, 0), relation_type, category,
		       created_at, updated_at, metadata, %s
		FROM search_index
		%s
		ORDER BY %s
		LIMIT ? OFFSET ?
	`, selectScore, where, orderBy)
	args = append(args, pageSize, (page-1)*pageSize)

	rows, err := idx.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("search query: %w", err)
	}
	defer rows.Close()

	var results []Result
	for rows.Next() {
		var r Result
		var rowid int64
		var createdAt, updatedAt string
		if err := rows.Scan(&rowid, &r.Type, &r.EntityID, &r.Title, &r.Content, &r.Permalink, &r.FilePath,
			&r.FromID, &r.ToID, &r.RelationType, &r.Category, &createdAt, &updatedAt, &r.Metadata, &r.Score); err != nil {
			return nil, fmt.Errorf("scan search result: %w", err)
		}
		r.CreatedAt = parseTime(createdAt)
		r.UpdatedAt = parseTime(updatedAt)
		results = append(results, r)
	}
	return results, rows.Err()
}

func parseTime(s string) time.Time {
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}
	}
	return t
}

// quoteFTSQuery wraps free text as a single FTS5 phrase so user input
// containing FTS operators (AND, OR, -, *) is treated as literal text.
func quoteFTSQuery(text string) string {
	escaped := strings.ReplaceAll(text, `"`, `""`)
	return `"` + escaped + `"`
}
