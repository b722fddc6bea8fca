package sync_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/basicmemory/basic-memory/internal/linkresolver"
	"github.com/basicmemory/basic-memory/internal/search"
	"github.com/basicmemory/basic-memory/internal/store"
	"github.com/basicmemory/basic-memory/internal/sync"
)

func newHarness(t *testing.T) (string, *store.Store, *sync.Orchestrator) {
	t.Helper()
	root := t.TempDir()
	s, err := store.Open(filepath.Join(t.TempDir(), "db", "memory.db"))
	if err != nil {
		t.Fatalf("open store failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	idx := search.New(s.DB(), 2)
	idx.Start()
	t.Cleanup(idx.Stop)
	resolver := linkresolver.New(s, idx)
	orch := sync.New(root, nil, s, idx, resolver)
	return root, s, orch
}

func writeFile(t *testing.T, root, relPath, content string) {
	t.Helper()
	full := filepath.Join(root, relPath)
	if err := os.MkdirAll(filepath.Dir(full), 0755); err != nil {
		t.Fatalf("mkdir failed: %v", err)
	}
	if err := os.WriteFile(full, []byte(content), 0644); err != nil {
		t.Fatalf("write failed: %v", err)
	}
}

func TestSync_NewFileCreatesEntity(t *testing.T) {
	root, s, orch := newHarness(t)
	writeFile(t, root, "coffee.md", "# Coffee\n\nprose\n")

	report, err := orch.Sync(context.Background())
	if err != nil {
		t.Fatalf("sync failed: %v", err)
	}
	if len(report.New) != 1 || report.New[0] != "coffee.md" {
		t.Fatalf("expected 1 new file, got %v", report.New)
	}

	e, err := s.FindByFilePath(context.Background(), "coffee.md")
	if err != nil {
		t.Fatalf("expected entity to exist: %v", err)
	}
	if e.Title != "Coffee" {
		t.Fatalf("expected title Coffee, got %q", e.Title)
	}
	if !e.Checksum.Valid {
		t.Fatalf("expected checksum to be committed after sync")
	}
}

func TestSync_ObservationsAndRelationsPersisted(t *testing.T) {
	root, s, orch := newHarness(t)
	writeFile(t, root, "a.md", `# A
## Observations
- [fact] a fact about A
## Relations
- relates_to [[b]]
`)
	writeFile(t, root, "b.md", "# B\n\nprose\n")

	if _, err := orch.Sync(context.Background()); err != nil {
		t.Fatalf("sync failed: %v", err)
	}

	a, err := s.FindByFilePath(context.Background(), "a.md")
	if err != nil {
		t.Fatalf("find a failed: %v", err)
	}
	obs, err := s.ObservationsByEntity(context.Background(), a.ID)
	if err != nil {
		t.Fatalf("observations lookup failed: %v", err)
	}
	if len(obs) != 1 || obs[0].Category != "fact" {
		t.Fatalf("expected 1 fact observation, got %+v", obs)
	}

	rels, err := s.RelationsByFrom(context.Background(), a.ID)
	if err != nil {
		t.Fatalf("relations lookup failed: %v", err)
	}
	if len(rels) != 1 {
		t.Fatalf("expected 1 relation, got %+v", rels)
	}
	if !rels[0].ToID.Valid {
		t.Fatalf("expected relation to resolve to B in the same cycle, got %+v", rels[0])
	}
}

func TestSync_ForwardReferenceResolvedAcrossCycles(t *testing.T) {
	root, s, orch := newHarness(t)
	writeFile(t, root, "a.md", `# A
## Relations
- relates_to [[b]]
`)

	if _, err := orch.Sync(context.Background()); err != nil {
		t.Fatalf("first sync failed: %v", err)
	}

	a, err := s.FindByFilePath(context.Background(), "a.md")
	if err != nil {
		t.Fatalf("find a failed: %v", err)
	}
	rels, err := s.RelationsByFrom(context.Background(), a.ID)
	if err != nil || len(rels) != 1 {
		t.Fatalf("expected 1 unresolved relation after first sync, got %+v err=%v", rels, err)
	}
	if rels[0].ToID.Valid {
		t.Fatalf("expected relation to be unresolved before B exists")
	}

	writeFile(t, root, "b.md", "# B\n\nprose\n")
	if _, err := orch.Sync(context.Background()); err != nil {
		t.Fatalf("second sync failed: %v", err)
	}

	rels, err = s.RelationsByFrom(context.Background(), a.ID)
	if err != nil || len(rels) != 1 {
		t.Fatalf("expected 1 relation after second sync, got %+v err=%v", rels, err)
	}
	if !rels[0].ToID.Valid {
		t.Fatalf("expected forward reference to resolve once B appears, got %+v", rels[0])
	}
}

func TestSync_DeletionRemovesEntity(t *testing.T) {
	root, s, orch := newHarness(t)
	writeFile(t, root, "a.md", "# A\n")
	if _, err := orch.Sync(context.Background()); err != nil {
		t.Fatalf("first sync failed: %v", err)
	}
	if err := os.Remove(filepath.Join(root, "a.md")); err != nil {
		t.Fatalf("remove failed: %v", err)
	}

	report, err := orch.Sync(context.Background())
	if err != nil {
		t.Fatalf("second sync failed: %v", err)
	}
	if len(report.Deleted) != 1 {
		t.Fatalf("expected 1 deletion, got %v", report.Deleted)
	}
	if _, err := s.FindByFilePath(context.Background(), "a.md"); err == nil {
		t.Fatalf("expected entity to be gone after deletion")
	}
}

func TestSync_MoveRewritesFilePath(t *testing.T) {
	root, s, orch := newHarness(t)
	writeFile(t, root, "old.md", "# Moved Note\n\nsame content\n")
	if _, err := orch.Sync(context.Background()); err != nil {
		t.Fatalf("first sync failed: %v", err)
	}

	content, err := os.ReadFile(filepath.Join(root, "old.md"))
	if err != nil {
		t.Fatalf("read failed: %v", err)
	}
	if err := os.Remove(filepath.Join(root, "old.md")); err != nil {
		t.Fatalf("remove failed: %v", err)
	}
	writeFile(t, root, "new/path.md", string(content))

	report, err := orch.Sync(context.Background())
	if err != nil {
		t.Fatalf("second sync failed: %v", err)
	}
	if len(report.Moves) != 1 {
		t.Fatalf("expected 1 move, got %v", report.Moves)
	}

	if _, err := s.FindByFilePath(context.Background(), "old.md"); err == nil {
		t.Fatalf("expected old path to be gone")
	}
	moved, err := s.FindByFilePath(context.Background(), "new/path.md")
	if err != nil {
		t.Fatalf("expected entity at new path: %v", err)
	}
	if moved.Title != "Moved Note" {
		t.Fatalf("expected title preserved across move, got %q", moved.Title)
	}
}

func TestSync_PermalinkConflictGetsSuffixed(t *testing.T) {
	root, s, orch := newHarness(t)
	writeFile(t, root, "a.md", "---\npermalink: shared\n---\n# A\n")
	writeFile(t, root, "b.md", "---\npermalink: shared\n---\n# B\n")

	if _, err := orch.Sync(context.Background()); err != nil {
		t.Fatalf("sync failed: %v", err)
	}

	a, err := s.FindByFilePath(context.Background(), "a.md")
	if err != nil {
		t.Fatalf("find a failed: %v", err)
	}
	b, err := s.FindByFilePath(context.Background(), "b.md")
	if err != nil {
		t.Fatalf("find b failed: %v", err)
	}
	if a.Permalink == b.Permalink {
		t.Fatalf("expected distinct permalinks, got %q and %q", a.Permalink, b.Permalink)
	}
}

func TestSync_IdempotentRerunProducesNoChanges(t *testing.T) {
	root, _, orch := newHarness(t)
	writeFile(t, root, "a.md", "# A\n\nprose\n")

	if _, err := orch.Sync(context.Background()); err != nil {
		t.Fatalf("first sync failed: %v", err)
	}
	report, err := orch.Sync(context.Background())
	if err != nil {
		t.Fatalf("second sync failed: %v", err)
	}
	if len(report.New) != 0 || len(report.Modified) != 0 || len(report.Deleted) != 0 {
		t.Fatalf("expected a no-op second sync, got %+v", report)
	}
}
