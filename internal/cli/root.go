// Package cli implements the cobra-based commands of rocketgraph-install.
//
// Each subcommand (install, status, down) lives in its own file. This
// file defines the root command, the global flags, and the translation
// of CLIError values into process exit codes.
package cli

import (
	"encoding/json"
	"fmt"
	"os"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/Rocketgraphai/install/internal/model"
)

// Global flag variables bound to cobra persistent flags on the root
// command, available to every subcommand.
var (
	// jsonOutput switches all command output to structured JSON for
	// machine consumption.
	jsonOutput bool

	// verbose enables debug-level logging on stderr.
	verbose bool
)

// Version, Commit, and Date are injected from the main package, which
// receives them from ldflags at build time.
var (
	// Version is the semantic version of the binary (e.g. "1.0.0").
	Version = "dev"

	// Commit is the Git commit hash the binary was built from.
	Commit = "none"

	// Date is the build timestamp.
	Date = "unknown"
)

// NewRootCommand creates and configures the root cobra command.
//
// The root command performs no action itself — it carries the global
// flags and help text, and configures logging before any subcommand
// runs. Functionality lives in the subcommands.
func NewRootCommand() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "rocketgraph-install",
		Short: "Install and manage the Rocketgraph stack on this host",
		Long: `rocketgraph-install deploys the Rocketgraph analytics stack (xGT engine,
Mission Control, MongoDB, optional notebooks) onto this host using a
container runtime (Docker or Podman) and a compose frontend.

The installer detects a usable runtime, downloads the deployment files,
merges the environment template with any existing local configuration
without destroying operator edits, verifies the required ports are free,
and starts the services in order.`,

		// We format errors ourselves (text or JSON based on --json), so
		// cobra must not print usage or errors on failures.
		SilenceUsage:  true,
		SilenceErrors: true,

		Version: fmt.Sprintf("%s (commit: %s, built: %s)", Version, Commit, Date),

		// Logging is configured here rather than in main so the flags
		// have been parsed by the time the level is chosen.
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			configureLogging()
		},
	}

	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "Output in JSON format")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose output")

	rootCmd.AddCommand(NewInstallCommand())
	rootCmd.AddCommand(NewStatusCommand())
	rootCmd.AddCommand(NewDownCommand())

	return rootCmd
}

// configureLogging sets up logrus: human-readable timestamps on stderr,
// debug level when --verbose is set, warnings and above otherwise so
// normal runs stay quiet outside the printed summary.
func configureLogging() {
	log.SetOutput(os.Stderr)
	log.SetFormatter(&log.TextFormatter{FullTimestamp: true})
	if verbose {
		log.SetLevel(log.DebugLevel)
	} else {
		log.SetLevel(log.WarnLevel)
	}
}

// Execute runs the root command and handles exit codes. This is the
// entry point called from main.
//
// CLIError values carry their own exit code; anything else exits 1.
func Execute(rootCmd *cobra.Command) {
	if err := rootCmd.Execute(); err != nil {
		if cliErr, ok := err.(*model.CLIError); ok {
			printError(cliErr.Message, cliErr.Err)
			os.Exit(int(cliErr.Code))
		}

		printError(err.Error(), nil)
		os.Exit(int(model.ExitGeneralError))
	}
}

// printError outputs an error in the format selected by --json. Errors
// go to stderr in both modes; stdout is reserved for command output.
func printError(message string, underlying error) {
	if jsonOutput {
		errObj := map[string]interface{}{
			"error": map[string]interface{}{
				"message": message,
			},
		}
		if underlying != nil {
			if errMap, ok := errObj["error"].(map[string]interface{}); ok {
				errMap["detail"] = underlying.Error()
			}
		}
		data, _ := json.MarshalIndent(errObj, "", "  ")
		fmt.Fprintln(os.Stderr, string(data))
	} else {
		if underlying != nil {
			fmt.Fprintf(os.Stderr, "Error: %s: %v\n", message, underlying)
		} else {
			fmt.Fprintf(os.Stderr, "Error: %s\n", message)
		}
	}
}

// IsJSONOutput returns whether the --json flag is set. Subcommands use
// this to pick their output format.
func IsJSONOutput() bool {
	return jsonOutput
}
