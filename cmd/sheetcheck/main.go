// Package main is the entry point for the sheetcheck CLI.
package main

import (
	"os"

	"github.com/JonMunkholm/sheetcheck/internal/cli"
)

// Version is injected at build time.
var Version = "dev"

func main() {
	os.Exit(cli.Execute(Version))
}
