// Package cli — down.go implements the "rocketgraph-install down"
// command.
//
// Down stops and removes the deployed stack via the resolved compose
// frontend. With --volumes it also removes the named volumes, which
// destroys the database contents, so that path asks for confirmation
// when stdin is a terminal. Non-interactive callers pass --yes.
package cli

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/Rocketgraphai/install/internal/compose"
	"github.com/Rocketgraphai/install/internal/engine"
	"github.com/Rocketgraphai/install/internal/execx"
	"github.com/Rocketgraphai/install/internal/model"
)

// downFlags holds the flag values for the down command.
type downFlags struct {
	// dir is the install directory the compose frontend runs in.
	dir string

	// volumes also removes the stack's named volumes.
	volumes bool

	// yes skips the destructive-action confirmation prompt.
	yes bool
}

// NewDownCommand creates the "down" cobra command.
func NewDownCommand() *cobra.Command {
	flags := &downFlags{}

	cmd := &cobra.Command{
		Use:   "down",
		Short: "Stop and remove the deployed stack",
		Long: `Stop and remove every container of the Rocketgraph deployment.

Without --volumes the data volumes survive and a later install picks
them up again. With --volumes the named volumes are removed too,
destroying all stored data; this asks for confirmation unless --yes is
given.

Examples:
  rocketgraph-install down
  rocketgraph-install down --dir /opt/rocketgraph
  rocketgraph-install down --volumes --yes`,

		Args: cobra.NoArgs,

		RunE: func(cmd *cobra.Command, args []string) error {
			return runDown(cmd.Context(), flags, execx.NewExecutor())
		},
	}

	cmd.Flags().StringVar(&flags.dir, "dir", ".", "Install directory of the deployment files")
	cmd.Flags().BoolVar(&flags.volumes, "volumes", false, "Also remove the named volumes (destroys stored data)")
	cmd.Flags().BoolVar(&flags.yes, "yes", false, "Skip the confirmation prompt")

	return cmd
}

// runDown is the main logic function for the down command.
func runDown(ctx context.Context, flags *downFlags, runner execx.Runner) error {
	// Step 1: confirm volume removal. Refusing silently in a
	// non-interactive session would be worse than requiring --yes, so a
	// missing terminal counts as "not confirmed".
	if flags.volumes && !flags.yes {
		if !confirm("This removes the data volumes and destroys all stored data. Continue? [y/N] ") {
			return model.NewCLIError(model.ExitGeneralError,
				"aborted; re-run with --yes to remove volumes without a prompt")
		}
	}

	// Step 2: resolve the runtime the stack was deployed with.
	profile, err := engine.NewResolver(runner).Resolve(ctx, "")
	if err != nil {
		return err
	}
	log.WithField("profile", profile.String()).Debug("down: runtime resolved")

	// Step 3: run compose down in the install directory.
	res := runner.Run(ctx, compose.NewCommand(profile, flags.dir).Down(flags.volumes))
	if !res.OK() {
		return model.NewCLIError(model.ExitGeneralError,
			fmt.Sprintf("failed to bring the stack down:\n%s", strings.TrimSpace(res.Output)))
	}

	if flags.volumes {
		fmt.Println("Rocketgraph stack removed, including data volumes.")
	} else {
		fmt.Println("Rocketgraph stack stopped. Data volumes were kept.")
	}
	return nil
}

// confirm prompts on stdout and reads one line from stdin. It returns
// true only for an explicit yes from an interactive terminal.
func confirm(prompt string) bool {
	if !term.IsTerminal(int(os.Stdin.Fd())) {
		return false
	}
	fmt.Print(prompt)
	line, err := bufio.NewReader(os.Stdin).ReadString('\n')
	if err != nil {
		return false
	}
	answer := strings.ToLower(strings.TrimSpace(line))
	return answer == "y" || answer == "yes"
}
