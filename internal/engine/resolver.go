// Package engine probes the host for a usable container runtime and
// compose frontend pair and freezes the result into a RuntimeProfile.
//
// Candidates are probed in a fixed order, so resolution is deterministic
// on a given host: the first pair whose engine binary exists, whose
// engine answers a liveness probe, and whose compose frontend reports a
// version wins. Probing is read-only — nothing is created or started.
package engine

import (
	"context"
	"fmt"
	"os"
	"runtime"
	"strings"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/Rocketgraphai/install/internal/execx"
	"github.com/Rocketgraphai/install/internal/model"
)

// DefaultProbeTimeout bounds each individual probe command. A healthy
// engine answers `ps` in well under a second; a wedged daemon would
// otherwise hang the whole run before anything was even attempted.
const DefaultProbeTimeout = 15 * time.Second

// Candidate is one (engine, compose frontend) pair to probe.
type Candidate struct {
	// Engine is the engine binary name.
	Engine string

	// Compose is the compose frontend invocation, e.g. ["docker",
	// "compose"] for the plugin form or ["docker-compose"] for the
	// standalone binary.
	Compose []string
}

// String renders the candidate for log lines and diagnostics.
func (c Candidate) String() string {
	return fmt.Sprintf("%s + %s", c.Engine, strings.Join(c.Compose, " "))
}

// Candidates returns the probe order, honoring a runtime preference.
// Docker before podman, plugin frontend before the standalone binary:
// the plugin ships with current engine installs, the standalone binary
// is the fallback on older hosts.
func Candidates(preference string) []Candidate {
	all := []Candidate{
		{Engine: "docker", Compose: []string{"docker", "compose"}},
		{Engine: "docker", Compose: []string{"docker-compose"}},
		{Engine: "podman", Compose: []string{"podman", "compose"}},
		{Engine: "podman", Compose: []string{"podman-compose"}},
	}
	if preference == "" {
		return all
	}

	var filtered []Candidate
	for _, c := range all {
		if c.Engine == preference {
			filtered = append(filtered, c)
		}
	}
	return filtered
}

// Resolver probes candidates and resolves the host architecture.
type Resolver struct {
	// runner executes the probe commands.
	runner execx.Runner

	// probeTimeout bounds each probe. Zero uses DefaultProbeTimeout.
	probeTimeout time.Duration
}

// NewResolver creates a Resolver using the given command runner.
func NewResolver(runner execx.Runner) *Resolver {
	return &Resolver{runner: runner, probeTimeout: DefaultProbeTimeout}
}

// probeStage tracks how far a candidate got, so failure diagnostics can
// come from the candidate that was closest to working.
type probeStage int

const (
	stageEngineMissing probeStage = iota
	stageEngineDead
	stageComposeMissing
	stageComposeDead
	stageHealthy
)

// Resolve probes the candidates in order and returns the frozen profile
// of the first fully healthy pair.
//
// On total failure it returns a RuntimeUnavailable error carrying the
// captured diagnostic output of the furthest-progressed candidate: an
// engine that exists but whose daemon refuses connections produces a far
// more actionable message than "binary not found" from a candidate that
// was never installed.
func (r *Resolver) Resolve(ctx context.Context, preference string) (*model.RuntimeProfile, error) {
	candidates := Candidates(preference)
	if len(candidates) == 0 {
		return nil, model.NewCLIError(model.ExitRuntimeUnavailable,
			fmt.Sprintf("no runtime candidates for preference %q", preference))
	}

	bestStage := stageEngineMissing
	bestDiag := ""
	bestName := candidates[0].String()

	for _, cand := range candidates {
		log.WithField("candidate", cand.String()).Debug("engine: probing")

		profile, stage, diag := r.probe(ctx, cand)
		if profile != nil {
			profile.Arch = r.resolveArch(ctx)
			profile.Rootless = cand.Engine == "podman" && os.Geteuid() > 0
			log.WithField("profile", profile.String()).Debug("engine: resolved")
			return profile, nil
		}

		if stage >= bestStage {
			bestStage = stage
			bestDiag = diag
			bestName = cand.String()
		}
	}

	msg := fmt.Sprintf("no working container runtime found (closest candidate: %s)", bestName)
	if bestDiag != "" {
		msg += "\n" + strings.TrimSpace(bestDiag)
	}
	return nil, model.NewCLIError(model.ExitRuntimeUnavailable, msg)
}

// probe runs the three checks for one candidate. On success it returns
// a partially filled profile (engine + compose, no arch yet); on failure
// it reports how far it got and the diagnostic output of the failing
// step.
func (r *Resolver) probe(ctx context.Context, cand Candidate) (*model.RuntimeProfile, probeStage, string) {
	enginePath, err := r.runner.LookPath(cand.Engine)
	if err != nil {
		return nil, stageEngineMissing, fmt.Sprintf("%s: not found on PATH", cand.Engine)
	}

	// Liveness: `engine ps` exercises the full client-to-daemon path,
	// not just the binary. A stopped daemon or a socket permission
	// problem fails here with a message worth showing the operator.
	res := r.runner.Run(ctx, execx.Spec{
		Name:    cand.Engine,
		Args:    []string{"ps"},
		Timeout: r.timeout(),
	})
	if !res.OK() {
		return nil, stageEngineDead, probeDiag(res)
	}

	if _, err := r.runner.LookPath(cand.Compose[0]); err != nil {
		return nil, stageComposeMissing, fmt.Sprintf("%s: not found on PATH", cand.Compose[0])
	}

	res = r.runner.Run(ctx, execx.Spec{
		Name:    cand.Compose[0],
		Args:    append(append([]string{}, cand.Compose[1:]...), "version"),
		Timeout: r.timeout(),
	})
	if !res.OK() {
		return nil, stageComposeDead, probeDiag(res)
	}

	return &model.RuntimeProfile{
		Engine:     cand.Engine,
		EnginePath: enginePath,
		Compose:    cand.Compose,
	}, stageHealthy, ""
}

// resolveArch queries the host architecture via `uname -m`, the same
// free-form identifier the deployment branches on. When uname is
// unusable (Windows, stripped-down hosts) the Go toolchain's view is
// mapped onto the uname vocabulary instead.
func (r *Resolver) resolveArch(ctx context.Context) string {
	res := r.runner.Run(ctx, execx.Spec{
		Name:    "uname",
		Args:    []string{"-m"},
		Timeout: r.timeout(),
	})
	if res.OK() {
		if arch := strings.TrimSpace(res.Output); arch != "" {
			return arch
		}
	}

	switch runtime.GOARCH {
	case "amd64":
		return "x86_64"
	case "arm64":
		return "aarch64"
	default:
		return runtime.GOARCH
	}
}

// probeDiag renders a failed probe for the diagnostics message.
func probeDiag(res execx.Result) string {
	switch {
	case res.TimedOut:
		return fmt.Sprintf("%s: timed out\n%s", res.Cmd, res.Output)
	case res.Err != nil:
		return fmt.Sprintf("%s: %v", res.Cmd, res.Err)
	default:
		return fmt.Sprintf("%s: exit %d\n%s", res.Cmd, res.ExitCode, res.Output)
	}
}

func (r *Resolver) timeout() time.Duration {
	if r.probeTimeout > 0 {
		return r.probeTimeout
	}
	return DefaultProbeTimeout
}
