package store

import (
	"path/filepath"
	"regexp"
	"strings"
)

var permalinkWhitespaceOrUnderscore = regexp.MustCompile(`[_\s]+`)

// DerivePermalink computes the canonical permalink candidate for a
// repository-relative path: lowercase, underscores and whitespace
// collapsed to a single hyphen, `/` kept as a path separator, extension
// stripped.
func DerivePermalink(filePath string) string {
	path := filepath.ToSlash(filePath)
	path = strings.TrimSuffix(path, filepath.Ext(path))
	path = strings.ToLower(path)
	path = permalinkWhitespaceOrUnderscore.ReplaceAllString(path, "-")
	return path
}
