// Package context implements the Context Builder: given a memory://
// URI it resolves primary entities and BFS-expands the graph around
// them, bounded by depth and a timeframe window.
package context

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/bmatcuk/doublestar/v4"

	"github.com/basicmemory/basic-memory/internal/store"
)

const (
	DefaultDepth      = 2
	MaxDepth          = 3
	DefaultTimeframe  = "7d"
	DefaultPageSize   = 10
	DefaultMaxRelated = 50
)

// Request describes one context-build call.
type Request struct {
	URI        string
	Depth      int
	Timeframe  string
	Page       int
	PageSize   int
	MaxRelated int
}

// EntityView pairs an entity with the observations to render alongside it.
type EntityView struct {
	Entity       store.Entity
	Observations []store.Observation
}

// RelatedEntityView is an EntityView reached during BFS expansion.
type RelatedEntityView struct {
	EntityView
	Depth        int
	RelationType string
	Direction    string // "outgoing" or "incoming", relative to the node it was reached from
}

// Metadata describes how a Result was produced.
type Metadata struct {
	URI             string
	Depth           int
	Timeframe       string
	GeneratedAt     time.Time
	MatchedEntities int
	TotalEntities   int
}

// Result is the outcome of a context build.
type Result struct {
	PrimaryEntities []EntityView
	RelatedEntities []RelatedEntityView
	Metadata        Metadata
}

// Builder builds Results against an entity store.
type Builder struct {
	store *store.Store
}

// New builds a Builder over s.
func New(s *store.Store) *Builder {
	return &Builder{store: s}
}

// Build resolves req's primary entities and expands the graph around
// them per §4.H of the traversal contract.
func (b *Builder) Build(ctx context.Context, req Request) (Result, error) {
	now := time.Now()

	depth := req.Depth
	if depth <= 0 {
		depth = DefaultDepth
	}
	if depth > MaxDepth {
		depth = MaxDepth
	}
	maxRelated := req.MaxRelated
	if maxRelated <= 0 {
		maxRelated = DefaultMaxRelated
	}
	timeframe := req.Timeframe
	if timeframe == "" {
		timeframe = DefaultTimeframe
	}
	since := ParseTimeframe(timeframe, now)

	relPath := relativePath(req.URI)
	primaries, err := b.resolvePrimaries(ctx, relPath, req.Page, req.PageSize)
	if err != nil {
		return Result{}, fmt.Errorf("resolve primary entities: %w", err)
	}

	visited := make(map[int64]bool, len(primaries))
	primaryViews := make([]EntityView, 0, len(primaries))
	type frontierEntry struct {
		id    int64
		depth int
	}
	var queue []frontierEntry

	for _, e := range primaries {
		visited[e.ID] = true
		view, err := b.entityView(ctx, e)
		if err != nil {
			return Result{}, err
		}
		primaryViews = append(primaryViews, view)
		queue = append(queue, frontierEntry{id: e.ID, depth: 0})
	}

	var related []RelatedEntityView
	for len(queue) > 0 && len(related) < maxRelated {
		head := queue[0]
		queue = queue[1:]
		if head.depth >= depth {
			continue
		}

		from, err := b.store.FindByID(ctx, head.id)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				continue
			}
			return Result{}, fmt.Errorf("load entity %d: %w", head.id, err)
		}

		outgoing, err := b.store.RelationsByFrom(ctx, head.id)
		if err != nil {
			return Result{}, fmt.Errorf("load outgoing relations for %d: %w", head.id, err)
		}
		for _, rel := range outgoing {
			if !rel.ToID.Valid || visited[rel.ToID.Int64] {
				continue
			}
			// A relation's admission is gated by its owning (from) entity's
			// updated_at, matching how the search indexer timestamps
			// relation rows; an old relation blocks reaching a recent target.
			if from.UpdatedAt.Before(since) {
				continue
			}
			target, err := b.store.FindByID(ctx, rel.ToID.Int64)
			if err != nil {
				if errors.Is(err, store.ErrNotFound) {
					continue
				}
				return Result{}, fmt.Errorf("load relation target %d: %w", rel.ToID.Int64, err)
			}
			if target.UpdatedAt.Before(since) {
				continue
			}
			visited[target.ID] = true
			view, err := b.entityView(ctx, target)
			if err != nil {
				return Result{}, err
			}
			related = append(related, RelatedEntityView{
				EntityView: view, Depth: head.depth + 1, RelationType: rel.RelationType, Direction: "outgoing",
			})
			queue = append(queue, frontierEntry{id: target.ID, depth: head.depth + 1})
			if len(related) >= maxRelated {
				break
			}
		}
		if len(related) >= maxRelated {
			break
		}

		incoming, err := b.store.RelationsByTo(ctx, head.id)
		if err != nil {
			return Result{}, fmt.Errorf("load incoming relations for %d: %w", head.id, err)
		}
		for _, rel := range incoming {
			if visited[rel.FromID] {
				continue
			}
			source, err := b.store.FindByID(ctx, rel.FromID)
			if err != nil {
				if errors.Is(err, store.ErrNotFound) {
					continue
				}
				return Result{}, fmt.Errorf("load relation source %d: %w", rel.FromID, err)
			}
			// The relation is owned by source, so source's own timestamp
			// gates both the relation's admission and the node's.
			if source.UpdatedAt.Before(since) {
				continue
			}
			visited[source.ID] = true
			view, err := b.entityView(ctx, source)
			if err != nil {
				return Result{}, err
			}
			related = append(related, RelatedEntityView{
				EntityView: view, Depth: head.depth + 1, RelationType: rel.RelationType, Direction: "incoming",
			})
			queue = append(queue, frontierEntry{id: source.ID, depth: head.depth + 1})
			if len(related) >= maxRelated {
				break
			}
		}
	}

	return Result{
		PrimaryEntities: primaryViews,
		RelatedEntities: related,
		Metadata: Metadata{
			URI: normalizeURI(req.URI), Depth: depth, Timeframe: timeframe, GeneratedAt: now,
			MatchedEntities: len(primaryViews), TotalEntities: len(primaryViews) + len(related),
		},
	}, nil
}

func (b *Builder) entityView(ctx context.Context, e store.Entity) (EntityView, error) {
	obs, err := b.store.ObservationsByEntity(ctx, e.ID)
	if err != nil {
		return EntityView{}, fmt.Errorf("load observations for %d: %w", e.ID, err)
	}
	return EntityView{Entity: e, Observations: obs}, nil
}

// resolvePrimaries resolves relPath to one or more entities: an exact
// permalink match, or every entity whose permalink matches a glob,
// paginated in permalink order for determinism.
func (b *Builder) resolvePrimaries(ctx context.Context, relPath string, page, pageSize int) ([]store.Entity, error) {
	if !isGlob(relPath) {
		e, err := b.store.FindByPermalink(ctx, relPath)
		if errors.Is(err, store.ErrNotFound) {
			return nil, nil
		}
		if err != nil {
			return nil, err
		}
		return []store.Entity{e}, nil
	}

	permalinks, err := b.store.AllPermalinks(ctx)
	if err != nil {
		return nil, err
	}
	var matched []string
	for _, p := range permalinks {
		ok, err := doublestar.Match(relPath, p)
		if err == nil && ok {
			matched = append(matched, p)
		}
	}
	sort.Strings(matched)

	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}
	if page <= 0 {
		page = 1
	}
	start := (page - 1) * pageSize
	if start >= len(matched) {
		return nil, nil
	}
	end := start + pageSize
	if end > len(matched) {
		end = len(matched)
	}

	entities := make([]store.Entity, 0, end-start)
	for _, permalink := range matched[start:end] {
		e, err := b.store.FindByPermalink(ctx, permalink)
		if errors.Is(err, store.ErrNotFound) {
			continue // deleted between the permalink listing and this lookup
		}
		if err != nil {
			return nil, err
		}
		entities = append(entities, e)
	}
	return entities, nil
}

func isGlob(path string) bool {
	return strings.ContainsAny(path, "*?")
}

// relativePath extracts the relative_path portion of a memory:// URI:
// everything after the host component. A leading memory:// is optional.
func relativePath(uri string) string {
	trimmed := strings.TrimPrefix(uri, "memory://")
	trimmed = strings.TrimPrefix(trimmed, "/")
	idx := strings.Index(trimmed, "/")
	if idx < 0 {
		return trimmed
	}
	return trimmed[idx+1:]
}

// normalizeURI inserts a leading memory:// if the caller omitted it.
func normalizeURI(uri string) string {
	if strings.HasPrefix(uri, "memory://") {
		return uri
	}
	return "memory://" + strings.TrimPrefix(uri, "/")
}
