// Package fsutil walks a repository tree and computes content checksums.
//
// It implements the Hasher / File Scanner component: a deterministic,
// read-only pass over the tree that never mutates files and surfaces a
// ScanError naming the offending path on the first unreadable file.
package fsutil

import (
	"crypto/sha256"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/bmatcuk/doublestar/v4"

	"github.com/basicmemory/basic-memory/internal/syncerr"
)

// IsHidden reports whether path (or any of its path components) is a
// dotfile. Hidden entries are skipped at every level of the walk.
func IsHidden(relPath string) bool {
	for _, part := range strings.Split(filepath.ToSlash(relPath), "/") {
		if strings.HasPrefix(part, ".") && part != "." && part != ".." {
			return true
		}
	}
	return false
}

// matchesIgnore reports whether rel matches any of the configured
// ignore globs. Globs are matched with doublestar so `**` patterns work
// the same way a repository's exclude list would.
func matchesIgnore(rel string, ignoreGlobs []string) bool {
	normalized := filepath.ToSlash(rel)
	for _, g := range ignoreGlobs {
		if g == "" {
			continue
		}
		if ok, err := doublestar.Match(g, normalized); err == nil && ok {
			return true
		}
	}
	return false
}

// Scan walks root recursively and returns a POSIX-relative path -> hex
// sha256 checksum map. Dotfiles (and anything under a dotfile directory)
// are skipped, as are paths matching ignoreGlobs. The walk never mutates
// files; a permission or I/O error on any file aborts the whole scan so
// no partial result is returned to the caller.
func Scan(root string, ignoreGlobs []string) (map[string]string, error) {
	checksums := make(map[string]string)

	err := filepath.WalkDir(root, func(path string, d os.DirEntry, walkErr error) error {
		if walkErr != nil {
			return &syncerr.ScanError{Path: path, Err: walkErr}
		}
		if path == root {
			return nil
		}
		rel, err := filepath.Rel(root, path)
		if err != nil {
			return &syncerr.ScanError{Path: path, Err: err}
		}
		rel = filepath.ToSlash(rel)

		if IsHidden(rel) {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if matchesIgnore(rel, ignoreGlobs) {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if d.IsDir() {
			return nil
		}
		if d.Type()&os.ModeSymlink != 0 {
			// Resolve once to decide what it points at; broken links are
			// skipped rather than surfaced as scan errors.
			target, statErr := os.Stat(path)
			if statErr != nil {
				return nil
			}
			if target.IsDir() {
				return nil
			}
		}

		sum, err := HashFile(path)
		if err != nil {
			return &syncerr.ScanError{Path: rel, Err: err}
		}
		checksums[rel] = sum
		return nil
	})
	if err != nil {
		return nil, err
	}
	return checksums, nil
}

// HashFile returns the hex-encoded sha256 digest of a file's bytes.
func HashFile(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()
	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", err
	}
	return fmt.Sprintf("%x", h.Sum(nil)), nil
}
