// Package linkresolver resolves `[[wikilink]]` targets to entities:
// exact permalink, then exact title, then a scored fuzzy search.
package linkresolver

import (
	"context"
	"errors"
	"path"
	"strings"

	"github.com/basicmemory/basic-memory/internal/search"
	"github.com/basicmemory/basic-memory/internal/store"
)

// Resolver resolves wikilink text against the entity store and search
// index.
type Resolver struct {
	store *store.Store
	index *search.Indexer
}

// New builds a Resolver over the given store and search index.
func New(s *store.Store, idx *search.Indexer) *Resolver {
	return &Resolver{store: s, index: idx}
}

// Resolve resolves raw wikilink text to an entity. raw may carry
// surrounding `[[ ]]` and a `|alias` suffix, or may already be the bare
// target (as produced by the markdown parser) — both are accepted.
// Returns (Entity{}, false, nil) when nothing matches.
func (r *Resolver) Resolve(ctx context.Context, raw string) (store.Entity, bool, error) {
	target := normalize(raw)
	if target == "" {
		return store.Entity{}, false, nil
	}

	if e, err := r.store.FindByPermalink(ctx, target); err == nil {
		return e, true, nil
	} else if !errors.Is(err, store.ErrNotFound) {
		return store.Entity{}, false, err
	}

	if e, err := r.store.FindByTitle(ctx, target); err == nil {
		return e, true, nil
	} else if !errors.Is(err, store.ErrNotFound) {
		return store.Entity{}, false, err
	}

	results, err := r.index.Search(ctx, search.Query{Text: target, Types: []string{"entity"}})
	if err != nil {
		return store.Entity{}, false, err
	}
	if len(results) == 0 {
		return store.Entity{}, false, nil
	}

	best := results[0]
	bestScore := score(best, target)
	for _, res := range results[1:] {
		s := score(res, target)
		if s < bestScore {
			bestScore = s
			best = res
		}
	}

	e, err := r.store.FindByPermalink(ctx, best.Permalink)
	if errors.Is(err, store.ErrNotFound) {
		return store.Entity{}, false, nil
	}
	if err != nil {
		return store.Entity{}, false, err
	}
	return e, true, nil
}

// normalize strips a wikilink's surrounding brackets and discards any
// `|alias` suffix, returning only the pre-`|` target.
func normalize(raw string) string {
	s := strings.TrimSpace(raw)
	s = strings.TrimPrefix(s, "[[")
	s = strings.TrimSuffix(s, "]]")
	if idx := strings.Index(s, "|"); idx >= 0 {
		s = s[:idx]
	}
	return strings.TrimSpace(s)
}

// score applies the fuzzy-match weighting: the search result's own
// score, improved by a factor of 0.5 for each target token that
// appears in the last path component of the result's permalink, and
// by a further 0.2 when that last component is an exact match.
func score(result search.Result, target string) float64 {
	s := result.Score
	lastPart := lastPathComponent(result.Permalink)
	lowerTarget := strings.ToLower(target)

	// bm25() scores are negative (lower is closer), so improving a
	// negative score divides it by the factor; a positive one is
	// multiplied.
	improve := func(factor float64) {
		if s < 0 {
			s /= factor
		} else {
			s *= factor
		}
	}
	for _, tok := range strings.Fields(lowerTarget) {
		if strings.Contains(lastPart, tok) {
			improve(0.5)
		}
	}
	if lastPart == lowerTarget {
		improve(0.2)
	}
	return s
}

func lastPathComponent(permalink string) string {
	return strings.ToLower(path.Base(permalink))
}
