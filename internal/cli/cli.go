// Package cli is the command-line entry point: a hand-rolled switch
// dispatcher over the init/sync/search/context/check subcommands.
package cli

import (
	"fmt"

	"github.com/basicmemory/basic-memory/internal/cli/commands"
)

// Run dispatches args[0] to a subcommand.
func Run(args []string) error {
	if len(args) == 0 {
		return usage()
	}
	switch args[0] {
	case "version", "--version", "-v":
		return cmdVersion()
	case "init":
		return commands.Init(args[1:])
	case "sync":
		return commands.Sync(args[1:])
	case "search":
		return commands.Search(args[1:])
	case "context":
		return commands.Context(args[1:])
	case "check":
		return commands.Check(args[1:])
	case "help", "-h", "--help":
		return usage()
	default:
		return fmt.Errorf("unknown command: %s", args[0])
	}
}

func usage() error {
	fmt.Println(`basic-memory commands: init | sync | search | context | check

Examples:
  basic-memory init
  basic-memory sync
  basic-memory search "coffee brewing"
  basic-memory context memory://brewing/espresso
  basic-memory check`)
	return nil
}
