// Package changeset diffs a filesystem scan against the checksums stored
// in the entity store, producing the new/modified/deleted/moved sets the
// sync orchestrator drives its two-pass protocol from.
package changeset

import "sort"

// Move pairs a path that disappeared with a path that appeared carrying
// the same checksum.
type Move struct {
	From string
	To   string
}

// Set is the result of diffing a scan against stored checksums.
type Set struct {
	New       []string
	Modified  []string
	Deleted   []string
	Moves     []Move
	Checksums map[string]string // current checksum of every path in the scan
}

// TotalChanges returns the number of paths touched by this cycle (moves
// count once, not twice).
func (s Set) TotalChanges() int {
	return len(s.New) + len(s.Modified) + len(s.Deleted) + len(s.Moves)
}

// Detect compares the current on-disk scan against the checksums
// recorded in the store and classifies every path. A deleted path and a
// new path are paired into a Move when they share an identical
// checksum; each checksum pairs at most one move, so if three files
// with the same content vanish and two appear, only one move is
// produced, the other two deletions stay in Deleted and the other
// addition stays in New.
func Detect(current, stored map[string]string) Set {
	set := Set{Checksums: current}

	var newPaths, deletedPaths []string

	for path, sum := range current {
		old, existed := stored[path]
		if !existed {
			newPaths = append(newPaths, path)
			continue
		}
		if old != sum {
			set.Modified = append(set.Modified, path)
		}
	}
	for path := range stored {
		if _, stillThere := current[path]; !stillThere {
			deletedPaths = append(deletedPaths, path)
		}
	}

	sort.Strings(newPaths)
	sort.Strings(deletedPaths)
	sort.Strings(set.Modified)

	// Pair deletions and additions sharing a checksum, in path order,
	// at most one move per checksum value.
	deletedByChecksum := make(map[string][]string)
	for _, path := range deletedPaths {
		sum := stored[path]
		deletedByChecksum[sum] = append(deletedByChecksum[sum], path)
	}

	usedNew := make(map[string]bool)
	usedDeleted := make(map[string]bool)
	for _, path := range newPaths {
		sum := current[path]
		candidates := deletedByChecksum[sum]
		if len(candidates) == 0 {
			continue
		}
		from := candidates[0]
		delete(deletedByChecksum, sum)
		set.Moves = append(set.Moves, Move{From: from, To: path})
		usedNew[path] = true
		usedDeleted[from] = true
	}

	for _, path := range newPaths {
		if !usedNew[path] {
			set.New = append(set.New, path)
		}
	}
	for _, path := range deletedPaths {
		if !usedDeleted[path] {
			set.Deleted = append(set.Deleted, path)
		}
	}

	sort.Slice(set.Moves, func(i, j int) bool { return set.Moves[i].To < set.Moves[j].To })

	return set
}
