package changeset

import "testing"

func TestDetect_NewModifiedDeleted(t *testing.T) {
	stored := map[string]string{
		"a.md": "sum-a",
		"b.md": "sum-b",
	}
	current := map[string]string{
		"a.md": "sum-a",      // unchanged
		"b.md": "sum-b-new",  // modified
		"c.md": "sum-c",      // new
	}

	set := Detect(current, stored)

	if len(set.New) != 1 || set.New[0] != "c.md" {
		t.Fatalf("expected New=[c.md], got %v", set.New)
	}
	if len(set.Modified) != 1 || set.Modified[0] != "b.md" {
		t.Fatalf("expected Modified=[b.md], got %v", set.Modified)
	}
	if len(set.Deleted) != 0 {
		t.Fatalf("expected no deletions, got %v", set.Deleted)
	}
	if set.TotalChanges() != 2 {
		t.Fatalf("expected 2 total changes, got %d", set.TotalChanges())
	}
}

func TestDetect_MovePairsIdenticalChecksum(t *testing.T) {
	stored := map[string]string{
		"old/path.md": "sum-x",
	}
	current := map[string]string{
		"new/path.md": "sum-x",
	}

	set := Detect(current, stored)

	if len(set.Moves) != 1 {
		t.Fatalf("expected one move, got %v", set.Moves)
	}
	if set.Moves[0] != (Move{From: "old/path.md", To: "new/path.md"}) {
		t.Fatalf("unexpected move: %+v", set.Moves[0])
	}
	if len(set.New) != 0 || len(set.Deleted) != 0 {
		t.Fatalf("move should not also appear in New/Deleted, got New=%v Deleted=%v", set.New, set.Deleted)
	}
}

func TestDetect_AtMostOneMovePerChecksum(t *testing.T) {
	stored := map[string]string{
		"a.md": "dup",
		"b.md": "dup",
		"c.md": "dup",
	}
	current := map[string]string{
		"x.md": "dup",
		"y.md": "dup",
	}

	set := Detect(current, stored)

	if len(set.Moves) != 1 {
		t.Fatalf("expected 1 move, got %d: %v", len(set.Moves), set.Moves)
	}
	if len(set.Deleted) != 2 {
		t.Fatalf("expected 2 leftover deletions, got %v", set.Deleted)
	}
	if len(set.New) != 1 {
		t.Fatalf("expected 1 new path left unpaired, got %v", set.New)
	}
}

func TestDetect_EmptyRepository(t *testing.T) {
	set := Detect(map[string]string{}, map[string]string{})
	if set.TotalChanges() != 0 {
		t.Fatalf("expected zero changes for empty repository, got %d", set.TotalChanges())
	}
}

func TestDetect_Idempotent(t *testing.T) {
	stored := map[string]string{"a.md": "sum-a", "b.md": "sum-b"}
	current := map[string]string{"a.md": "sum-a", "b.md": "sum-b"}

	set := Detect(current, stored)
	if set.TotalChanges() != 0 {
		t.Fatalf("re-running detect over unchanged tree should yield zero changes, got %d", set.TotalChanges())
	}
}
