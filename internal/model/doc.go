// Package model defines the domain types and value objects for the
// rocketgraph-install CLI.
//
// This package contains pure data structures with no external dependencies.
// All entities (RuntimeProfile, InstallOptions, ContainerInfo, etc.) are
// transient representations built up during a single installer run — there
// are no persistent state files beyond the compose file and the environment
// document written to the install directory.
//
// The package also defines exit codes (ExitCode) and a custom error type
// (CLIError) that carries exit codes for proper OS process exit handling.
package model
