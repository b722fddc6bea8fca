package commands

import (
	"context"
	"flag"
	"fmt"
	"sort"

	"github.com/basicmemory/basic-memory/internal/cli/flags"
	"github.com/basicmemory/basic-memory/internal/fsutil"
)

// Check re-scans the repository and reports any drift between the
// files on disk and the entity store's committed checksums, without
// applying any changes. It mirrors what a sync cycle would find in its
// classification phase, stopping short of writing anything.
func Check(args []string) error {
	fs := flag.NewFlagSet("check", flag.ContinueOnError)
	root := flags.AddRootFlag(fs)
	if err := fs.Parse(args); err != nil {
		return err
	}

	e, err := openEnv(*root, false)
	if err != nil {
		return err
	}
	defer e.close()

	onDisk, err := fsutil.Scan(e.root, e.cfg.IgnoreGlobs)
	if err != nil {
		return fmt.Errorf("check: %w", err)
	}
	committed, err := e.store.FindByPathIDs(context.Background())
	if err != nil {
		return fmt.Errorf("check: %w", err)
	}

	var stale, missing, untracked []string
	for path, checksum := range onDisk {
		known, ok := committed[path]
		if !ok {
			untracked = append(untracked, path)
			continue
		}
		if known != checksum {
			stale = append(stale, path)
		}
	}
	for path := range committed {
		if _, ok := onDisk[path]; !ok {
			missing = append(missing, path)
		}
	}
	sort.Strings(stale)
	sort.Strings(missing)
	sort.Strings(untracked)

	if len(stale) == 0 && len(missing) == 0 && len(untracked) == 0 {
		fmt.Println("check: repository is in sync")
		return nil
	}

	for _, path := range stale {
		fmt.Printf("stale:     %s (content changed since last sync)\n", path)
	}
	for _, path := range missing {
		fmt.Printf("missing:   %s (in store, not on disk)\n", path)
	}
	for _, path := range untracked {
		fmt.Printf("untracked: %s (on disk, not yet synced)\n", path)
	}
	return fmt.Errorf("check: repository is out of sync; run `basic-memory sync` (stale=%d missing=%d untracked=%d)",
		len(stale), len(missing), len(untracked))
}
