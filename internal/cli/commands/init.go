package commands

import (
	"flag"
	"fmt"

	"github.com/basicmemory/basic-memory/internal/cli/flags"
	"github.com/basicmemory/basic-memory/internal/config"
)

// Init scaffolds a fresh .basic-memory layout: directories, a starter
// config.jsonc, and a transparency copy of the embedded JSON schemas.
func Init(args []string) error {
	fs := flag.NewFlagSet("init", flag.ContinueOnError)
	root := flags.AddRootFlag(fs)
	force := flags.AddForceFlag(fs)
	if err := fs.Parse(args); err != nil {
		return err
	}

	rootPath, err := resolveRoot(*root)
	if err != nil {
		return err
	}
	dir, err := config.EnsureLayout(rootPath)
	if err != nil {
		return err
	}
	if err := config.WriteTemplate(config.ConfigPath(rootPath), *force); err != nil {
		return err
	}
	if err := config.CopySchemas(rootPath); err != nil {
		return err
	}

	fmt.Printf("initialized basic-memory scaffolding in %s\n", dir)
	return nil
}
