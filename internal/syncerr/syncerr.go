// Package syncerr defines the typed error kinds raised by the sync core,
// matching the propagation policy: per-entity errors are isolated, while
// structural errors abort the whole cycle.
package syncerr

import "fmt"

// ScanError means a file under the repository root was unreadable.
// It is fatal for the whole sync cycle; nothing is committed.
type ScanError struct {
	Path string
	Err  error
}

func (e *ScanError) Error() string {
	return fmt.Sprintf("scan %s: %v", e.Path, e.Err)
}

func (e *ScanError) Unwrap() error { return e.Err }

// ParseError means a file's frontmatter or body was malformed. It is
// logged and the entity is skipped for the cycle; no partial state is
// written for that file.
type ParseError struct {
	Path string
	Err  error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parse %s: %v", e.Path, e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

// IntegrityError means a forward relation's to_id pointed at a row that
// no longer exists by the time it was committed. The caller reverts
// to_id to null and preserves to_name.
type IntegrityError struct {
	RelationID int64
	ToID       int64
}

func (e *IntegrityError) Error() string {
	return fmt.Sprintf("relation %d: stale to_id %d, reverting to unresolved", e.RelationID, e.ToID)
}

// ConflictError means a permalink collision could not be resolved by
// suffixing within the bounded retry count. Fatal for that entity only.
type ConflictError struct {
	Candidate string
	Attempts  int
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("permalink %q: could not allocate a unique suffix after %d attempts", e.Candidate, e.Attempts)
}

// TransientStoreError wraps a storage-layer failure that the caller may
// retry (connection drop, lock timeout, …).
type TransientStoreError struct {
	Op  string
	Err error
}

func (e *TransientStoreError) Error() string {
	return fmt.Sprintf("transient store error during %s: %v", e.Op, e.Err)
}

func (e *TransientStoreError) Unwrap() error { return e.Err }
