// Package deploy sequences the deployment phases against the resolved
// runtime: image pull, architecture-conditional volume preparation,
// phased service startup, session lingering, and best-effort artifact
// extraction.
//
// Phases run strictly in order and the sequence is terminal on the
// first fatal failure. Only the pull and the core-service start are
// fatal — without images or core services there is no deployment. Every
// other phase degrades to an advisory warning on the report, because
// its failure leaves a working (if diminished) stack behind that the
// operator can finish by hand.
package deploy

import (
	"context"
	"fmt"
	"os/user"
	"strings"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/Rocketgraphai/install/internal/compose"
	"github.com/Rocketgraphai/install/internal/engineapi"
	"github.com/Rocketgraphai/install/internal/execx"
	"github.com/Rocketgraphai/install/internal/model"
)

// engineTimeout bounds the direct engine invocations (volume and
// container housekeeping). These are local API calls, not downloads; a
// healthy engine finishes them in seconds.
const engineTimeout = 2 * time.Minute

// Sequencer executes the deployment plan for one resolved runtime and
// install directory.
type Sequencer struct {
	// runner executes every external command.
	runner execx.Runner

	// profile is the frozen runtime resolution result.
	profile *model.RuntimeProfile

	// cmd builds the compose frontend invocations.
	cmd *compose.Command

	// file is the probed compose document. May be nil when the probe
	// failed; the sequence then runs without dependent profiles and
	// falls back to the compiled-in backend image.
	file *compose.File

	// api is the engine API fast path for artifact extraction. May be
	// nil when no socket was reachable.
	api *engineapi.Client

	// dir is the install directory artifacts are extracted into.
	dir string

	// dbImage is the database image active in the reconciled document.
	// Empty falls back to the compiled-in multi-arch reference.
	dbImage string
}

// NewSequencer creates a Sequencer. databaseImage is the document's
// active database image, if any; file and api may be nil — both only
// gate optimizations, never correctness.
func NewSequencer(runner execx.Runner, profile *model.RuntimeProfile, dir, databaseImage string, file *compose.File, api *engineapi.Client) *Sequencer {
	return &Sequencer{
		runner:  runner,
		profile: profile,
		cmd:     compose.NewCommand(profile, dir),
		file:    file,
		api:     api,
		dir:     dir,
		dbImage: databaseImage,
	}
}

// Report is the outcome of a completed (or fatally aborted) sequence.
type Report struct {
	// Completed lists the phases that ran to success, in order.
	Completed []model.Phase `json:"completed"`

	// Warnings collects the advisory failures from non-fatal phases.
	Warnings []string `json:"warnings,omitempty"`
}

// Run executes the phases in order. A non-nil error means a fatal phase
// failed and nothing after it was attempted; the report returned
// alongside still lists what had completed by then.
func (s *Sequencer) Run(ctx context.Context) (*Report, error) {
	report := &Report{}

	type step struct {
		phase model.Phase
		skip  bool
		run   func(context.Context) error
	}
	steps := []step{
		{phase: model.PhasePull, run: s.pull},
		{phase: model.PhaseVolumePrepare, skip: !s.profile.NeedsVolumePrepare(), run: s.volumePrepare},
		{phase: model.PhaseStartCore, run: s.startCore},
		{phase: model.PhaseStartDependent, skip: s.file == nil || len(s.file.Profiles()) == 0, run: s.startDependent},
		{phase: model.PhaseLinger, skip: !s.profile.NeedsLinger(), run: s.linger},
		{phase: model.PhaseExtractArtifacts, run: s.extractArtifacts},
	}

	for _, st := range steps {
		if st.skip {
			log.WithField("phase", st.phase).Debug("deploy: phase skipped")
			continue
		}

		log.WithField("phase", st.phase).Info("deploy: phase starting")
		if err := st.run(ctx); err != nil {
			if st.phase.Fatal() {
				return report, err
			}
			warning := fmt.Sprintf("%s: %v", st.phase, err)
			report.Warnings = append(report.Warnings, warning)
			log.WithField("phase", st.phase).Warn(warning)
			continue
		}
		report.Completed = append(report.Completed, st.phase)
	}

	return report, nil
}

// pull fetches all images named by the compose file. Fatal: without
// local images there is nothing to run.
func (s *Sequencer) pull(ctx context.Context) error {
	res := s.runner.Run(ctx, s.cmd.Pull())
	if !res.OK() {
		return fatal(res, "image pull failed")
	}
	return nil
}

// volumePrepare ensures the database data volume exists with the
// ownership the multi-arch image expects, and clears leftover stopped
// containers from a prior attempt. Runs only on hosts using the
// alternate database image; all failures are advisory.
func (s *Sequencer) volumePrepare(ctx context.Context) error {
	// Idempotent re-run safety first: a previous failed install may
	// have left created-but-stopped containers that would collide with
	// this run's names.
	s.removeLeftovers(ctx)

	res := s.runner.Run(ctx, s.engine("volume", "inspect", model.DataVolume))
	if !res.OK() {
		res = s.runner.Run(ctx, s.engine("volume", "create", model.DataVolume))
		if !res.OK() && !strings.Contains(res.Output, "already exists") {
			return fmt.Errorf("failed to create volume %s: %s",
				model.DataVolume, strings.TrimSpace(res.Output))
		}
	}

	// The mongod user inside the multi-arch image cannot write a volume
	// created as root; chown it once via a disposable helper container.
	res = s.runner.Run(ctx, s.engine(
		"run", "--rm",
		"-v", model.DataVolume+":/fix",
		"--entrypoint", "chown",
		s.databaseImage(),
		"-R", model.DataVolumeOwner, "/fix",
	))
	if !res.OK() {
		return fmt.Errorf("failed to fix ownership on volume %s: %s",
			model.DataVolume, strings.TrimSpace(res.Output))
	}
	return nil
}

// removeLeftovers force-removes non-running containers of the compose
// project. Best-effort: enumeration or removal failures are only
// logged, the start phase will surface any real collision.
func (s *Sequencer) removeLeftovers(ctx context.Context) {
	res := s.runner.Run(ctx, s.engine(
		"ps", "-a", "-q",
		"--filter", "label="+engineapi.LabelComposeProject+"="+model.ComposeProjectName,
		"--filter", "status=exited",
		"--filter", "status=created",
	))
	if !res.OK() {
		log.Debugf("deploy: leftover enumeration failed: %s", strings.TrimSpace(res.Output))
		return
	}

	ids := strings.Fields(res.Output)
	if len(ids) == 0 {
		return
	}
	log.WithField("count", len(ids)).Debug("deploy: removing leftover containers")

	args := append([]string{"rm", "-f"}, ids...)
	if res := s.runner.Run(ctx, s.engine(args...)); !res.OK() {
		log.Debugf("deploy: leftover removal failed: %s", strings.TrimSpace(res.Output))
	}
}

// startCore starts the profile-less services. Fatal on failure, with
// the captured output surfaced verbatim plus the most common cause.
func (s *Sequencer) startCore(ctx context.Context) error {
	res := s.runner.Run(ctx, s.cmd.Up())
	if !res.OK() {
		err := fatal(res, "service start failed")
		err.Message += "\n(a bound port is the most common cause; check with --verbose and re-run)"
		return err
	}
	return nil
}

// startDependent starts each profile-guarded service group. Advisory:
// the core stack is already up, a failed optional group does not undo
// it.
func (s *Sequencer) startDependent(ctx context.Context) error {
	var failed []string
	for _, name := range s.file.Profiles() {
		res := s.runner.Run(ctx, s.cmd.UpProfile(name))
		if !res.OK() {
			failed = append(failed, fmt.Sprintf("%s (%s)", name, strings.TrimSpace(res.Output)))
		}
	}
	if len(failed) > 0 {
		return fmt.Errorf("optional profile(s) failed to start: %s", strings.Join(failed, "; "))
	}
	return nil
}

// linger enables systemd session lingering so rootless containers keep
// running after the invoking user logs out. Advisory.
func (s *Sequencer) linger(ctx context.Context) error {
	u, err := user.Current()
	if err != nil {
		return fmt.Errorf("cannot determine current user: %w", err)
	}

	res := s.runner.Run(ctx, execx.Spec{
		Name:    "loginctl",
		Args:    []string{"enable-linger", u.Username},
		Timeout: engineTimeout,
	})
	if !res.OK() {
		return fmt.Errorf("loginctl enable-linger failed: %s", strings.TrimSpace(res.Output))
	}
	return nil
}

// databaseImage is the image used for the volume-fix helper container:
// the document's active value when one was reconciled (that is the
// image the pull just fetched), the compiled-in reference otherwise.
func (s *Sequencer) databaseImage() string {
	if s.dbImage != "" {
		return s.dbImage
	}
	return model.ArmDatabaseImage
}

// engine builds a direct engine invocation.
func (s *Sequencer) engine(args ...string) execx.Spec {
	name := s.profile.EnginePath
	if name == "" {
		name = s.profile.Engine
	}
	return execx.Spec{
		Name:    name,
		Args:    args,
		Dir:     s.dir,
		Timeout: engineTimeout,
	}
}

// fatal wraps a failed fatal-phase result into a DeploymentFailed error
// carrying the captured output verbatim.
func fatal(res execx.Result, msg string) *model.CLIError {
	detail := strings.TrimSpace(res.Output)
	if res.TimedOut {
		detail = "command timed out\n" + detail
	}
	if detail != "" {
		msg = msg + ": " + res.Cmd + "\n" + detail
	}
	return model.NewCLIError(model.ExitDeploymentFailed, msg)
}
