// Package cli — status.go implements the "rocketgraph-install status"
// command.
//
// The status command reports every container of the deployed stack,
// discovered through the compose project label. The engine API is the
// preferred source; when no API socket is reachable the command falls
// back to the runtime CLI, so status works against rootless podman
// setups without a podman socket service.
package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/Rocketgraphai/install/internal/engine"
	"github.com/Rocketgraphai/install/internal/engineapi"
	"github.com/Rocketgraphai/install/internal/execx"
	"github.com/Rocketgraphai/install/internal/model"
)

// statusDeps bundles the injectable collaborators of the status command.
type statusDeps struct {
	// runner executes the CLI fallback listing.
	runner execx.Runner

	// newAPIClient builds the optional engine API client.
	newAPIClient func(ctx context.Context) (*engineapi.Client, error)
}

// defaultStatusDeps wires the production collaborators.
func defaultStatusDeps() statusDeps {
	return statusDeps{
		runner: execx.NewExecutor(),
		newAPIClient: func(ctx context.Context) (*engineapi.Client, error) {
			c, err := engineapi.NewClient()
			if err != nil {
				return nil, err
			}
			if err := c.Ping(ctx); err != nil {
				_ = c.Close()
				return nil, err
			}
			return c, nil
		},
	}
}

// NewStatusCommand creates the "status" cobra command.
func NewStatusCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show the state of the deployed stack",
		Long: `Show every container of the Rocketgraph deployment with its service
name, image, and state.

Examples:
  rocketgraph-install status
  rocketgraph-install status --json`,

		Args: cobra.NoArgs,

		RunE: func(cmd *cobra.Command, args []string) error {
			containers, err := stackContainers(cmd.Context(), defaultStatusDeps())
			if err != nil {
				return err
			}
			printStatusResult(containers)
			return nil
		},
	}
}

// stackContainers discovers the stack's containers, preferring the
// engine API and falling back to the runtime CLI.
func stackContainers(ctx context.Context, deps statusDeps) ([]model.ContainerInfo, error) {
	if deps.newAPIClient != nil {
		if api, err := deps.newAPIClient(ctx); err == nil {
			defer func() { _ = api.Close() }()
			containers, err := engineapi.ListStackContainers(ctx, api)
			if err == nil {
				sortContainers(containers)
				return containers, nil
			}
			log.WithError(err).Debug("status: API listing failed, trying the CLI")
		} else {
			log.WithError(err).Debug("status: engine API unavailable, trying the CLI")
		}
	}

	profile, err := engine.NewResolver(deps.runner).Resolve(ctx, "")
	if err != nil {
		return nil, err
	}
	return listViaCLI(ctx, deps.runner, profile)
}

// psFormat asks the runtime CLI for one pipe-separated line per
// container. Both docker and podman support the Label template function,
// which yields the compose service name.
const psFormat = `{{.ID}}|{{.Names}}|{{.Image}}|{{.State}}|{{.Label "` + engineapi.LabelComposeService + `"}}`

// listViaCLI lists the stack's containers by shelling out to the
// resolved runtime.
func listViaCLI(ctx context.Context, runner execx.Runner, profile *model.RuntimeProfile) ([]model.ContainerInfo, error) {
	res := runner.Run(ctx, execx.Spec{
		Name: profile.EnginePath,
		Args: []string{
			"ps", "-a",
			"--filter", "label=" + engineapi.LabelComposeProject + "=" + model.ComposeProjectName,
			"--format", psFormat,
		},
		// Same bound as the resolver's liveness probes: a wedged daemon
		// must fail the listing, not hang it.
		Timeout: engine.DefaultProbeTimeout,
	})
	if !res.OK() {
		return nil, model.NewCLIError(model.ExitGeneralError,
			fmt.Sprintf("failed to list stack containers:\n%s", strings.TrimSpace(res.Output)))
	}

	var containers []model.ContainerInfo
	for _, line := range strings.Split(res.Output, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		fields := strings.SplitN(line, "|", 5)
		if len(fields) < 4 {
			log.WithField("line", line).Debug("status: skipping unparseable ps line")
			continue
		}
		info := model.ContainerInfo{
			ID:    fields[0],
			Name:  fields[1],
			Image: fields[2],
			State: strings.ToLower(fields[3]),
		}
		if len(fields) == 5 {
			info.Service = fields[4]
		}
		containers = append(containers, info)
	}
	sortContainers(containers)
	return containers, nil
}

// sortContainers orders by service name, then container name, so output
// is stable across discovery paths.
func sortContainers(containers []model.ContainerInfo) {
	sort.Slice(containers, func(i, j int) bool {
		if containers[i].Service != containers[j].Service {
			return containers[i].Service < containers[j].Service
		}
		return containers[i].Name < containers[j].Name
	})
}

// printStatusResult outputs the container list in text or JSON format,
// depending on the global --json flag.
func printStatusResult(containers []model.ContainerInfo) {
	if IsJSONOutput() {
		type resultJSON struct {
			Containers []model.ContainerInfo `json:"containers"`
		}
		// Empty slice instead of nil so an empty deployment renders as
		// [] rather than null.
		result := resultJSON{Containers: make([]model.ContainerInfo, 0, len(containers))}
		result.Containers = append(result.Containers, containers...)
		data, _ := json.MarshalIndent(result, "", "  ")
		fmt.Println(string(data))
		return
	}

	if len(containers) == 0 {
		fmt.Println("No Rocketgraph containers found. Run \"rocketgraph-install install\" first.")
		return
	}

	fmt.Printf("%-18s %-34s %-12s %s\n", "SERVICE", "NAME", "STATE", "IMAGE")
	for _, c := range containers {
		service := c.Service
		if service == "" {
			service = "-"
		}
		fmt.Printf("%-18s %-34s %-12s %s\n", service, c.Name, c.State, c.Image)
	}
}
