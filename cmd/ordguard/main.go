// Package main provides the entry point for ordguard.
//
// ordguard is the command-line tool for the ordguard guarded map:
// it exercises the memory budget, moves snapshots between the live
// map and the local archive, and serves runtime metrics.
package main

import (
	"fmt"
	"os"

	"github.com/yndnr/ordguard-go/internal/cli/command"
)

func main() {
	app := command.App()

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}
