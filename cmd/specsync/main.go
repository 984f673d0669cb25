// Package main provides the entry point for the specsync CLI tool.
package main

import (
	"github.com/apiweave/specsync/cmd/specsync/cmd"
)

// Version information populated by goreleaser.
var (
	version = "dev"
	commit  = "unknown"
	date    = "unknown"
)

func main() {
	cmd.Execute(version, commit, date)
}
