package commands

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"strings"

	"github.com/basicmemory/basic-memory/internal/cli/flags"
	"github.com/basicmemory/basic-memory/internal/cli/util"
	"github.com/basicmemory/basic-memory/internal/search"
)

// Search runs a full-text query against the repository's search index.
func Search(args []string) error {
	fs := flag.NewFlagSet("search", flag.ContinueOnError)
	root := flags.AddRootFlag(fs)
	limit := flags.AddLimitFlag(fs, 20)
	types := fs.String("type", "", "comma-separated subset of entity,observation,relation")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if err := flags.ValidateLimit(*limit); err != nil {
		return err
	}
	remaining := fs.Args()
	if len(remaining) == 0 {
		return errors.New("usage: basic-memory search <query>")
	}
	query := strings.Join(remaining, " ")

	e, err := openEnv(*root, false)
	if err != nil {
		return err
	}
	defer e.close()

	q := search.Query{Text: query, PageSize: *limit}
	if *types != "" {
		q.Types = strings.Split(*types, ",")
	}
	results, err := e.index.Search(context.Background(), q)
	if err != nil {
		return fmt.Errorf("search: %w", err)
	}

	if len(results) == 0 {
		fmt.Println("No results found.")
		return nil
	}
	for _, r := range results {
		fmt.Printf("%-10s %-30s %s\n", r.Type, r.Permalink, util.TruncateLine(r.Title, 50))
		if r.Content != "" {
			fmt.Printf("  %s\n", util.TruncateLine(r.Content, 90))
		}
		fmt.Printf("  score=%.3f\n", r.Score)
	}
	return nil
}
