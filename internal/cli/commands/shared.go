// Package commands implements the basic-memory CLI subcommands.
package commands

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/basicmemory/basic-memory/internal/config"
	"github.com/basicmemory/basic-memory/internal/linkresolver"
	"github.com/basicmemory/basic-memory/internal/logger"
	"github.com/basicmemory/basic-memory/internal/search"
	"github.com/basicmemory/basic-memory/internal/store"
)

// printJSON writes doc to stdout as indented JSON.
func printJSON(doc any) error {
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal output: %w", err)
	}
	_, err = os.Stdout.Write(append(data, '\n'))
	return err
}

// resolveRoot returns the absolute form of a --root flag value.
func resolveRoot(rootFlag string) (string, error) {
	abs, err := filepath.Abs(rootFlag)
	if err != nil {
		return "", fmt.Errorf("resolve root: %w", err)
	}
	return abs, nil
}

// env bundles the components a command needs against one repository.
type env struct {
	root     string
	cfg      config.Config
	store    *store.Store
	index    *search.Indexer
	resolver *linkresolver.Resolver
}

// openEnv resolves root to an absolute path, loads its config, and
// opens the entity store and search indexer against its database.
// startIndex controls whether the indexer's background workers are
// launched — commands that only read (search, context, check) don't
// need them.
func openEnv(rootFlag string, startIndex bool) (*env, error) {
	rootPath, err := resolveRoot(rootFlag)
	if err != nil {
		return nil, err
	}
	cfg, err := config.Load(rootPath)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	s, err := store.Open(config.DBPath(rootPath))
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}
	idx := search.New(s.DB(), cfg.SearchWorkers)
	if startIndex {
		idx.Start()
	}
	resolver := linkresolver.New(s, idx)
	return &env{root: rootPath, cfg: cfg, store: s, index: idx, resolver: resolver}, nil
}

// close stops the indexer (draining any queued work) and closes the
// store, in that order so every background write lands before the
// database connection is torn down.
func (e *env) close() {
	e.index.Stop()
	if err := e.store.Close(); err != nil {
		logger.Error("close store: %v", err)
	}
}
