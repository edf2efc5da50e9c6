// containers.go implements container discovery and the copy-out used by
// artifact extraction.
package engineapi

import (
	"archive/tar"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/docker/docker/api/types"
	"github.com/docker/docker/api/types/container"

	"github.com/Rocketgraphai/install/internal/model"
)

// ListStackContainers returns every container belonging to the deployed
// stack, including stopped ones. Stopped containers matter for status
// reporting and for the leftover cleanup on re-runs.
func ListStackContainers(ctx context.Context, cli *Client) ([]model.ContainerInfo, error) {
	containers, err := cli.inner.ContainerList(ctx, container.ListOptions{
		All:     true,
		Filters: ProjectFilter(),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list stack containers: %w", err)
	}

	result := make([]model.ContainerInfo, 0, len(containers))
	for _, c := range containers {
		result = append(result, containerToInfo(c))
	}
	return result, nil
}

// FindRunningByImage returns the first running container created from
// the given image, or nil when none is running. Used to locate the
// backend container for artifact extraction without knowing its name.
func FindRunningByImage(ctx context.Context, cli *Client, image string) (*model.ContainerInfo, error) {
	containers, err := cli.inner.ContainerList(ctx, container.ListOptions{
		Filters: ImageFilter(image),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to find container for image %s: %w", image, err)
	}
	if len(containers) == 0 {
		return nil, nil
	}

	info := containerToInfo(containers[0])
	return &info, nil
}

// containerToInfo maps an API container to the domain model. The API
// returns names with a leading "/" that is an artifact of the API, not
// meaningful to users.
func containerToInfo(c types.Container) model.ContainerInfo {
	name := ""
	if len(c.Names) > 0 {
		name = strings.TrimPrefix(c.Names[0], "/")
	}
	return model.ContainerInfo{
		ID:      c.ID,
		Name:    name,
		Service: ServiceOf(c.Labels),
		Image:   c.Image,
		State:   c.State,
	}
}

// CopyFrom copies srcPath out of the container into destDir on the
// host. The engine delivers the path as a tar stream; the stream's top
// directory lands inside destDir (copying "/opt/app/notebooks" into
// "/install" produces "/install/notebooks").
func CopyFrom(ctx context.Context, cli *Client, containerID, srcPath, destDir string) error {
	reader, _, err := cli.inner.CopyFromContainer(ctx, containerID, srcPath)
	if err != nil {
		return fmt.Errorf("failed to copy %s from container %s: %w", srcPath, containerID, err)
	}
	defer func() { _ = reader.Close() }()

	return untar(reader, destDir)
}

// untar extracts a tar stream into destDir. Only directories and
// regular files are materialized; device nodes and the like have no
// business in an artifact directory. Entries that would escape destDir
// are rejected.
func untar(r io.Reader, destDir string) error {
	tr := tar.NewReader(r)
	for {
		hdr, err := tr.Next()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return fmt.Errorf("failed to read archive: %w", err)
		}

		target := filepath.Join(destDir, filepath.Clean(hdr.Name))
		if !strings.HasPrefix(target, filepath.Clean(destDir)+string(os.PathSeparator)) {
			return fmt.Errorf("archive entry %q escapes destination directory", hdr.Name)
		}

		switch hdr.Typeflag {
		case tar.TypeDir:
			if err := os.MkdirAll(target, 0o755); err != nil {
				return fmt.Errorf("failed to create directory %s: %w", target, err)
			}
		case tar.TypeReg:
			if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
				return fmt.Errorf("failed to create directory for %s: %w", target, err)
			}
			if err := writeFileFrom(tr, target, hdr.Mode); err != nil {
				return err
			}
		default:
			// Symlinks, devices, FIFOs: skipped, not an error.
		}
	}
}

// writeFileFrom writes one archive entry to target, preserving the
// entry's permission bits.
func writeFileFrom(r io.Reader, target string, mode int64) error {
	f, err := os.OpenFile(target, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, os.FileMode(mode)&os.ModePerm)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", target, err)
	}
	defer func() { _ = f.Close() }()

	if _, err := io.Copy(f, r); err != nil {
		return fmt.Errorf("failed to write %s: %w", target, err)
	}
	return nil
}
