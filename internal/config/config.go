// Package config loads and validates a repository's basic-memory
// configuration: its root, scan ignore-globs, and context-build
// defaults, stored as JSONC at .basic-memory/config.jsonc.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/basicmemory/basic-memory/internal/jsonc"
	"github.com/basicmemory/basic-memory/internal/validate"
	"github.com/basicmemory/basic-memory/schemas"
	"github.com/basicmemory/basic-memory/starter"
)

// DirName is the directory basic-memory keeps its database, config,
// and schema copies in, relative to the repository root.
const DirName = ".basic-memory"

// Config is a repository's basic-memory configuration.
type Config struct {
	SchemaVersion string `json:"schemaVersion"`
	Kind          string `json:"kind"`

	IgnoreGlobs []string `json:"ignoreGlobs,omitempty"`

	DefaultTimeframe  string `json:"defaultTimeframe,omitempty"`
	DefaultDepth      int    `json:"defaultDepth,omitempty"`
	DefaultPageSize   int    `json:"defaultPageSize,omitempty"`
	DefaultMaxRelated int    `json:"defaultMaxRelated,omitempty"`

	SearchWorkers int `json:"searchWorkers,omitempty"`

	Provenance any `json:"provenance,omitempty"`
}

// DBPath returns the sqlite database path for root.
func DBPath(root string) string {
	return filepath.Join(root, DirName, "memory.db")
}

// ConfigPath returns the config file path for root.
func ConfigPath(root string) string {
	return filepath.Join(root, DirName, "config.jsonc")
}

// EnsureLayout creates the .basic-memory directory (and its schemas
// subdirectory) under root, returning its path.
func EnsureLayout(root string) (string, error) {
	dir := filepath.Join(root, DirName)
	for _, d := range []string{dir, filepath.Join(dir, "schemas")} {
		if err := os.MkdirAll(d, 0o755); err != nil {
			return "", fmt.Errorf("create %s: %w", d, err)
		}
	}
	return dir, nil
}

// Default returns the configuration a fresh repository starts with.
func Default() Config {
	return Config{
		SchemaVersion:     "1.0.0",
		Kind:              "basic-memory/config",
		IgnoreGlobs:       DefaultIgnoreGlobs(),
		DefaultTimeframe:  "7d",
		DefaultDepth:      2,
		DefaultPageSize:   10,
		DefaultMaxRelated: 50,
		SearchWorkers:     2,
	}
}

// Load reads and validates the config at root, falling back to Default
// when no config file exists yet.
func Load(root string) (Config, error) {
	path := ConfigPath(root)
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return Default(), nil
	}
	if err := validate.JSONC(path, schemas.Config); err != nil {
		return Config{}, fmt.Errorf("validate %s: %w", path, err)
	}
	var cfg Config
	if err := jsonc.DecodeFile(path, &cfg); err != nil {
		return Config{}, err
	}
	applyDefaults(&cfg)
	return cfg, nil
}

func applyDefaults(cfg *Config) {
	def := Default()
	if len(cfg.IgnoreGlobs) == 0 {
		cfg.IgnoreGlobs = def.IgnoreGlobs
	}
	if cfg.DefaultTimeframe == "" {
		cfg.DefaultTimeframe = def.DefaultTimeframe
	}
	if cfg.DefaultDepth == 0 {
		cfg.DefaultDepth = def.DefaultDepth
	}
	if cfg.DefaultPageSize == 0 {
		cfg.DefaultPageSize = def.DefaultPageSize
	}
	if cfg.DefaultMaxRelated == 0 {
		cfg.DefaultMaxRelated = def.DefaultMaxRelated
	}
	if cfg.SearchWorkers == 0 {
		cfg.SearchWorkers = def.SearchWorkers
	}
}

// WriteTemplate writes the config.jsonc starter template to destPath,
// unless the file already exists and allowOverwrite is false.
func WriteTemplate(destPath string, allowOverwrite bool) error {
	if _, err := os.Stat(destPath); err == nil && !allowOverwrite {
		return nil
	}
	tpl, err := starter.Get("config.jsonc")
	if err != nil {
		return fmt.Errorf("load config template: %w", err)
	}
	contents := starter.Apply(tpl, map[string]string{
		"createdAt": time.Now().UTC().Format(time.RFC3339),
	})
	if err := os.WriteFile(destPath, []byte(contents), 0o600); err != nil {
		return fmt.Errorf("write %s: %w", destPath, err)
	}
	return nil
}

// CopySchemas exports the embedded JSON schemas into root's
// .basic-memory/schemas directory for transparency; the embedded
// copies remain canonical for validation.
func CopySchemas(root string) error {
	schemaDir := filepath.Join(root, DirName, "schemas")
	if err := os.MkdirAll(schemaDir, 0o755); err != nil {
		return fmt.Errorf("ensure schema dir: %w", err)
	}
	schemaMap, err := schemas.List()
	if err != nil {
		return err
	}
	for name, data := range schemaMap {
		dest := filepath.Join(schemaDir, name+".schema.json")
		if err := os.WriteFile(dest, data, 0o600); err != nil {
			return fmt.Errorf("write %s: %w", dest, err)
		}
	}
	return nil
}

// DefaultIgnoreGlobs is the scan ignore list new repositories start
// with: version control, dependency, and build-output directories that
// are never useful knowledge-graph entities.
func DefaultIgnoreGlobs() []string {
	return []string{
		".git/**",
		DirName + "/**",
		".idea/**",
		"**/.idea/**",
		".vscode/**",
		"**/.DS_Store",

		"node_modules/**",
		"vendor/**",

		"dist/**",
		"build/**",
		"**/build/**",
		"coverage/**",
		"target/**",
		"out/**",

		"**/*.min.*",
		"**/*.lock",
		"**/*.generated.*",
	}
}

// MergeGlobs deduplicates and normalizes defaults followed by user
// globs, preserving first-seen order.
func MergeGlobs(defaults, user []string) []string {
	seen := make(map[string]struct{})
	var merged []string
	appendIfMissing := func(globs []string) {
		for _, g := range globs {
			norm := normalizeGlob(g)
			if norm == "" {
				continue
			}
			if _, ok := seen[norm]; ok {
				continue
			}
			seen[norm] = struct{}{}
			merged = append(merged, norm)
		}
	}
	appendIfMissing(defaults)
	appendIfMissing(user)
	return merged
}

func normalizeGlob(g string) string {
	trimmed := strings.TrimSpace(g)
	if trimmed == "" {
		return ""
	}
	trimmed = strings.ReplaceAll(trimmed, "\\", "/")
	for strings.Contains(trimmed, "//") {
		trimmed = strings.ReplaceAll(trimmed, "//", "/")
	}
	return filepath.ToSlash(trimmed)
}
