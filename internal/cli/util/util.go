// Package util provides small formatting helpers shared by CLI commands.
package util

import "path/filepath"

// MustAbs returns the absolute path, or the original path if resolution fails.
func MustAbs(p string) string {
	abs, err := filepath.Abs(p)
	if err != nil {
		return p
	}
	return abs
}

// TruncateLine truncates a string to maxLen characters, appending "..." if truncated.
func TruncateLine(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}
