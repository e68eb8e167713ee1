// Package main provides the stratum-mcp binary entry point.
package main

import (
	"fmt"
	"os"

	"github.com/stratumhq/stratum/internal/cli"
)

func main() {
	if err := cli.NewRootCommand().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(cli.GetExitCode(err))
	}
}
