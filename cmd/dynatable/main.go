// Package main provides the dynatable command.
package main

import (
	"os"

	"github.com/rzpsarthak13/dynatable/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
