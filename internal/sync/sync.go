// Package sync implements the Sync Orchestrator: the two-pass protocol
// that reconciles a repository's files with the entity graph and the
// search index.
package sync

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/basicmemory/basic-memory/internal/changeset"
	"github.com/basicmemory/basic-memory/internal/fsutil"
	"github.com/basicmemory/basic-memory/internal/linkresolver"
	"github.com/basicmemory/basic-memory/internal/logger"
	"github.com/basicmemory/basic-memory/internal/markdown"
	"github.com/basicmemory/basic-memory/internal/search"
	"github.com/basicmemory/basic-memory/internal/store"
	"github.com/basicmemory/basic-memory/internal/syncerr"
)

// Report is the outcome of one sync cycle.
type Report struct {
	ID          string
	New         []string
	Modified    []string
	Deleted     []string
	Moves       []changeset.Move
	Checksums   map[string]string
	StartedAt   time.Time
	CompletedAt time.Time
}

// Orchestrator drives a sync cycle over a single repository root.
type Orchestrator struct {
	root        string
	ignoreGlobs []string
	store       *store.Store
	index       *search.Indexer
	resolver    *linkresolver.Resolver
}

// New builds an Orchestrator for root, backed by s, idx, and resolver.
func New(root string, ignoreGlobs []string, s *store.Store, idx *search.Indexer, resolver *linkresolver.Resolver) *Orchestrator {
	return &Orchestrator{root: root, ignoreGlobs: ignoreGlobs, store: s, index: idx, resolver: resolver}
}

// Sync runs one full sync cycle and returns its report.
func (o *Orchestrator) Sync(ctx context.Context) (Report, error) {
	report := Report{ID: uuid.New().String(), StartedAt: time.Now()}

	// Phase 0 — scan & diff.
	scan, err := fsutil.Scan(o.root, o.ignoreGlobs)
	if err != nil {
		return report, err // ScanError: fatal, nothing committed
	}
	stored, err := o.store.FindByPathIDs(ctx)
	if err != nil {
		return report, &syncerr.TransientStoreError{Op: "load stored checksums", Err: err}
	}
	set := changeset.Detect(scan, stored)
	report.New = set.New
	report.Modified = set.Modified
	report.Deleted = set.Deleted
	report.Moves = set.Moves
	report.Checksums = set.Checksums

	logger.Info("sync: %d new, %d modified, %d deleted, %d moved", len(set.New), len(set.Modified), len(set.Deleted), len(set.Moves))

	// Phase 1 — deletions.
	for _, path := range set.Deleted {
		entity, err := o.store.DeleteByFilePath(ctx, path)
		if errors.Is(err, store.ErrNotFound) {
			continue // never indexed (e.g. was hidden); nothing to delete
		}
		if err != nil {
			return report, &syncerr.TransientStoreError{Op: "delete " + path, Err: err}
		}
		o.index.SubmitDeleteByEntityID(entity.ID)
	}

	// Phase 2 — moves.
	for _, mv := range set.Moves {
		if err := o.applyMove(ctx, mv); err != nil {
			logger.Error("sync: move %s -> %s: %v", mv.From, mv.To, err)
		}
	}

	// Phase 3 — parse.
	touched := sortedUnion(set.New, set.Modified)
	parsed := make(map[string]markdown.ParsedEntity, len(touched))
	for _, path := range touched {
		data, err := os.ReadFile(filepath.Join(o.root, path))
		if err != nil {
			return report, &syncerr.ScanError{Path: path, Err: err}
		}
		p, err := markdown.Parse(data, path)
		if err != nil {
			var parseErr *syncerr.ParseError
			if errors.As(err, &parseErr) {
				logger.Error("sync: %v", parseErr)
				continue // skip this entity for the cycle; no partial state written
			}
			return report, err
		}
		parsed[path] = p
	}

	// Phase 4 — entities (no relations yet).
	entityIDs := make(map[string]int64, len(parsed))
	for _, path := range touched {
		p, ok := parsed[path]
		if !ok {
			continue // dropped by a ParseError above
		}
		id, err := o.upsertEntity(ctx, path, p, isNewPath(path, set))
		if err != nil {
			var conflictErr *syncerr.ConflictError
			if errors.As(err, &conflictErr) {
				logger.Error("sync: %v", conflictErr)
				continue // fatal for this entity only
			}
			return report, err
		}
		entityIDs[path] = id
	}

	// Phase 5 — relations + forward-reference resolution.
	for _, path := range touched {
		id, ok := entityIDs[path]
		if !ok {
			continue
		}
		p := parsed[path]
		if err := o.writeRelations(ctx, id, p.Relations); err != nil {
			return report, err
		}
		if err := o.resolveIncoming(ctx, id); err != nil {
			return report, err
		}
		if checksum, ok := set.Checksums[path]; ok {
			// Phase 4 rewrites a Markdown file's frontmatter when the
			// allocated permalink differs from the parsed one; the file's
			// current hash is committed in that case.
			if e, err := o.store.FindByID(ctx, id); err == nil && e.Permalink.String != p.Permalink && strings.EqualFold(filepath.Ext(path), ".md") {
				if sum, err := fsutil.HashFile(filepath.Join(o.root, path)); err == nil {
					checksum = sum
				}
			}
			if err := o.store.CommitChecksum(ctx, id, checksum); err != nil {
				return report, &syncerr.TransientStoreError{Op: "commit checksum " + path, Err: err}
			}
		}
		// Phase 6 (per-entity) — search indexing.
		if err := o.reindexEntity(ctx, id); err != nil {
			return report, err
		}
	}

	report.CompletedAt = time.Now()
	return report, nil
}

func isNewPath(path string, set changeset.Set) bool {
	for _, p := range set.New {
		if p == path {
			return true
		}
	}
	return false
}

func sortedUnion(a, b []string) []string {
	out := append(append([]string{}, a...), b...)
	sort.Strings(out)
	return out
}

func (o *Orchestrator) upsertEntity(ctx context.Context, path string, p markdown.ParsedEntity, isNew bool) (int64, error) {
	candidate := p.Permalink
	if candidate == "" {
		candidate = store.DerivePermalink(path)
	}

	var excludeID int64
	if !isNew {
		existing, err := o.store.FindByFilePath(ctx, path)
		if err != nil && !errors.Is(err, store.ErrNotFound) {
			return 0, &syncerr.TransientStoreError{Op: "find " + path, Err: err}
		}
		excludeID = existing.ID
	}

	permalink, err := o.store.AllocateUniquePermalink(ctx, candidate, excludeID)
	if err != nil {
		return 0, err
	}

	entityType := p.EntityType
	if entityType == "" {
		entityType = "note"
	}
	createdAt, updatedAt := o.timestamps(path, p)

	entity, err := o.store.UpsertEntity(ctx, path, store.EntityFields{
		Permalink: sql.NullString{String: permalink, Valid: true}, Title: p.Title, EntityType: entityType, ContentType: p.ContentType,
		CreatedAt: createdAt, UpdatedAt: updatedAt,
	})
	if err != nil {
		return 0, &syncerr.TransientStoreError{Op: "upsert " + path, Err: err}
	}

	observations := make([]store.Observation, 0, len(p.Observations))
	for _, obs := range p.Observations {
		observations = append(observations, store.Observation{Category: obs.Category, Content: obs.Content})
	}
	if err := o.store.ReplaceObservations(ctx, entity.ID, observations); err != nil {
		return 0, &syncerr.TransientStoreError{Op: "replace observations " + path, Err: err}
	}

	if permalink != p.Permalink && strings.EqualFold(filepath.Ext(path), ".md") {
		if err := rewritePermalinkFrontmatter(filepath.Join(o.root, path), permalink); err != nil {
			logger.Error("sync: rewrite frontmatter for %s: %v", path, err)
		}
	}

	return entity.ID, nil
}

func (o *Orchestrator) timestamps(path string, p markdown.ParsedEntity) (time.Time, time.Time) {
	created := time.Time{}
	updated := time.Time{}
	if p.Created != nil {
		created = *p.Created
	}
	if p.Modified != nil {
		updated = *p.Modified
	}
	if created.IsZero() || updated.IsZero() {
		if info, err := os.Stat(filepath.Join(o.root, path)); err == nil {
			if created.IsZero() {
				created = info.ModTime()
			}
			if updated.IsZero() {
				updated = info.ModTime()
			}
		}
	}
	return created, updated
}

func (o *Orchestrator) writeRelations(ctx context.Context, fromID int64, parsedRelations []markdown.Relation) error {
	built := make([]store.Relation, 0, len(parsedRelations))
	for _, rel := range parsedRelations {
		var toID sql.NullInt64
		if resolved, ok, err := o.resolver.Resolve(ctx, rel.Target); err != nil {
			return &syncerr.TransientStoreError{Op: "resolve link " + rel.Target, Err: err}
		} else if ok {
			toID = sql.NullInt64{Int64: resolved.ID, Valid: true}
		}
		built = append(built, store.Relation{
			ToID: toID, ToName: rel.Target, RelationType: rel.RelationType, Context: rel.Context,
		})
	}
	if _, err := o.store.ReplaceRelations(ctx, fromID, built); err != nil {
		return &syncerr.TransientStoreError{Op: "replace relations", Err: err}
	}
	return nil
}

// resolveIncoming re-resolves any earlier relation whose to_name
// matches this entity's permalink or title now that the entity exists.
func (o *Orchestrator) resolveIncoming(ctx context.Context, entityID int64) error {
	entity, err := o.store.FindByID(ctx, entityID)
	if err != nil {
		return &syncerr.TransientStoreError{Op: "load entity for resolution", Err: err}
	}
	for _, name := range []string{entity.Permalink.String, entity.Title} {
		ids, err := o.store.ResolvePending(ctx, name)
		if err != nil {
			return &syncerr.TransientStoreError{Op: "resolve pending " + name, Err: err}
		}
		for _, relID := range ids {
			if err := o.store.ResolveRelationTo(ctx, relID, entity.ID); err != nil {
				var integrityErr *syncerr.IntegrityError
				if errors.As(err, &integrityErr) {
					logger.Error("sync: %v", integrityErr)
					continue
				}
				return &syncerr.TransientStoreError{Op: "resolve relation", Err: err}
			}
		}
	}
	return nil
}

func (o *Orchestrator) applyMove(ctx context.Context, mv changeset.Move) error {
	entity, err := o.store.FindByFilePath(ctx, mv.From)
	if err != nil {
		return fmt.Errorf("find moved entity at %s: %w", mv.From, err)
	}

	isMD := strings.EqualFold(filepath.Ext(mv.To), ".md")
	if isMD {
		data, err := os.ReadFile(filepath.Join(o.root, mv.To))
		if err != nil {
			return &syncerr.ScanError{Path: mv.To, Err: err}
		}
		p, err := markdown.Parse(data, mv.To)
		if err == nil && p.Permalink == "" {
			candidate := store.DerivePermalink(mv.To)
			permalink, err := o.store.AllocateUniquePermalink(ctx, candidate, entity.ID)
			if err != nil {
				return err
			}
			if err := o.store.SetPermalink(ctx, entity.ID, sql.NullString{String: permalink, Valid: true}); err != nil {
				return err
			}
		}
	} else {
		if err := o.store.SetPermalink(ctx, entity.ID, sql.NullString{}); err != nil {
			return err
		}
	}

	if err := o.store.SetFilePath(ctx, entity.ID, mv.To); err != nil {
		return err
	}
	return o.reindexEntity(ctx, entity.ID)
}

func (o *Orchestrator) reindexEntity(ctx context.Context, id int64) error {
	entity, err := o.store.FindByID(ctx, id)
	if err != nil {
		return &syncerr.TransientStoreError{Op: "load entity for reindex", Err: err}
	}
	observations, err := o.store.ObservationsByEntity(ctx, id)
	if err != nil {
		return &syncerr.TransientStoreError{Op: "load observations for reindex", Err: err}
	}
	relations, err := o.store.RelationsByFrom(ctx, id)
	if err != nil {
		return &syncerr.TransientStoreError{Op: "load relations for reindex", Err: err}
	}

	entityRow := search.Row{
		Type: "entity", EntityID: entity.ID, Title: entity.Title, Permalink: entity.Permalink.String,
		FilePath: entity.FilePath, Category: entity.EntityType, CreatedAt: entity.CreatedAt, UpdatedAt: entity.UpdatedAt,
	}
	obsRows := make([]search.Row, 0, len(observations))
	for _, obs := range observations {
		obsRows = append(obsRows, search.Row{
			Type: "observation", EntityID: entity.ID, Content: obs.Content, Category: obs.Category,
			Permalink: entity.Permalink.String, FilePath: entity.FilePath, CreatedAt: entity.CreatedAt, UpdatedAt: entity.UpdatedAt,
		})
	}
	relRows := make([]search.Row, 0, len(relations))
	for _, rel := range relations {
		var toID int64
		if rel.ToID.Valid {
			toID = rel.ToID.Int64
		}
		relRows = append(relRows, search.Row{
			Type: "relation", EntityID: entity.ID, FromID: rel.FromID, ToID: toID, RelationType: rel.RelationType,
			Content: rel.Context, Permalink: entity.Permalink.String, FilePath: entity.FilePath,
			CreatedAt: entity.CreatedAt, UpdatedAt: entity.UpdatedAt,
		})
	}

	o.index.SubmitIndexEntity(entityRow, obsRows, relRows)
	return nil
}
