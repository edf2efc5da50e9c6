// artifacts.go implements the best-effort extraction of the example
// notebooks from the backend container into the install directory.
package deploy

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"

	"github.com/Rocketgraphai/install/internal/engineapi"
	"github.com/Rocketgraphai/install/internal/model"
)

// extractArtifacts copies the notebook directory out of the backend
// container. Preference order:
//
//  1. A running backend container, via the engine API when a socket is
//     reachable, via `engine cp` otherwise.
//  2. A disposable container created from the backend image solely for
//     the copy, then discarded.
//
// Every failure here is advisory: the deployment is already up, the
// notebooks are a convenience.
func (s *Sequencer) extractArtifacts(ctx context.Context) error {
	image := s.file.BackendImage()

	if s.api != nil {
		err := s.extractViaAPI(ctx, image)
		if err == nil {
			return nil
		}
		log.WithError(err).Debug("deploy: API extraction failed, trying the CLI path")
	}

	if err := s.extractViaCLI(ctx, image); err != nil {
		return fmt.Errorf("no artifacts found or extraction failed: %w", err)
	}
	return nil
}

// extractViaAPI uses the engine API: locate a running container by
// image ancestry and stream the directory out as a tar archive.
func (s *Sequencer) extractViaAPI(ctx context.Context, image string) error {
	info, err := engineapi.FindRunningByImage(ctx, s.api, image)
	if err != nil {
		return err
	}
	if info == nil {
		return fmt.Errorf("no running container for image %s", image)
	}

	if err := engineapi.CopyFrom(ctx, s.api, info.ID, model.ArtifactSourceDir, s.dir); err != nil {
		return err
	}
	log.WithField("container", info.Name).Debug("deploy: artifacts extracted via engine API")
	return nil
}

// extractViaCLI shells out: `engine cp` from a running container when
// one exists, otherwise from a disposable container created just for
// the copy.
func (s *Sequencer) extractViaCLI(ctx context.Context, image string) error {
	res := s.runner.Run(ctx, s.engine(
		"ps", "-q",
		"--filter", "ancestor="+image,
		"--filter", "status=running",
	))
	if res.OK() {
		if ids := strings.Fields(res.Output); len(ids) > 0 {
			return s.copyOut(ctx, ids[0])
		}
	}

	// No running backend (e.g. it crashed after start, or extraction is
	// being retried on a stopped stack): spin up a disposable container
	// from the same image solely to copy from, then discard it.
	name := "rocketgraph-extract-" + uuid.NewString()[:8]
	res = s.runner.Run(ctx, s.engine("create", "--name", name, image))
	if !res.OK() {
		return fmt.Errorf("failed to create helper container: %s", strings.TrimSpace(res.Output))
	}
	defer func() {
		if res := s.runner.Run(ctx, s.engine("rm", "-f", name)); !res.OK() {
			log.Debugf("deploy: helper container cleanup failed: %s", strings.TrimSpace(res.Output))
		}
	}()

	return s.copyOut(ctx, name)
}

// copyOut runs `engine cp <container>:<dir> <install-dir>/`. The
// trailing separator makes the source directory land inside the install
// directory under its own name.
func (s *Sequencer) copyOut(ctx context.Context, container string) error {
	res := s.runner.Run(ctx, s.engine(
		"cp", container+":"+model.ArtifactSourceDir, s.dir+"/",
	))
	if !res.OK() {
		return fmt.Errorf("copy failed: %s", strings.TrimSpace(res.Output))
	}
	return nil
}
