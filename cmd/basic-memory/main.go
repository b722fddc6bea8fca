package main

import (
	"fmt"
	"os"

	"github.com/basicmemory/basic-memory/internal/cli"
)

func main() {
	if err := cli.Run(os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "basic-memory: %v\n", err)
		os.Exit(1)
	}
}
