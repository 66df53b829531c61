// Package main provides the entry point for the codegraph CLI.
package main

import (
	"os"

	"github.com/codegraph-ai/codegraph-core/cmd/codegraph/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
