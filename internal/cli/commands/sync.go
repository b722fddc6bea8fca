package commands

import (
	"context"
	"flag"
	"fmt"

	"github.com/basicmemory/basic-memory/internal/cli/flags"
	"github.com/basicmemory/basic-memory/internal/logger"
	"github.com/basicmemory/basic-memory/internal/model"
	"github.com/basicmemory/basic-memory/internal/sync"
)

// Sync runs one sync cycle over a repository root and reports the
// changes applied.
func Sync(args []string) error {
	fs := flag.NewFlagSet("sync", flag.ContinueOnError)
	root := flags.AddRootFlag(fs)
	verbose := flags.AddVerboseFlag(fs)
	output := fs.String("output", "", "write the sync report JSON to this path instead of stdout")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *verbose {
		logger.SetLevel(logger.LevelInfo)
	}

	e, err := openEnv(*root, true)
	if err != nil {
		return err
	}
	defer e.close()

	orchestrator := sync.New(e.root, e.cfg.IgnoreGlobs, e.store, e.index, e.resolver)
	report, err := orchestrator.Sync(context.Background())
	if err != nil {
		return fmt.Errorf("sync: %w", err)
	}

	moves := make([]model.Move, 0, len(report.Moves))
	for _, mv := range report.Moves {
		moves = append(moves, model.Move{From: mv.From, To: mv.To})
	}
	doc := model.NewSyncReportDocument(e.root, report.ID, report.New, report.Modified, report.Deleted, moves, report.StartedAt, report.CompletedAt)

	if *output != "" {
		if err := model.WriteJSON(*output, doc); err != nil {
			return err
		}
		fmt.Printf("sync report written to %s\n", *output)
		return nil
	}
	return printJSON(doc)
}
