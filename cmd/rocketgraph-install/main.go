// Package main is the entry point for the rocketgraph-install CLI.
//
// The binary installs and manages the Rocketgraph stack on a single
// host. All functionality lives in the internal/cli package, which
// defines the cobra commands.
//
// Build-time variables (version, commit, date) are injected via ldflags
// during release builds. During development they default to "dev",
// "none", and "unknown" respectively.
package main

import (
	"github.com/Rocketgraphai/install/internal/cli"
)

// version, commit, and date are set at build time via ldflags. They
// provide binary identification for the --version flag output.
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	// Inject build-time version info into the CLI package. This
	// decouples the build system from the CLI framework, keeping
	// main.go minimal.
	cli.Version = version
	cli.Commit = commit
	cli.Date = date

	rootCmd := cli.NewRootCommand()
	cli.Execute(rootCmd)
}
