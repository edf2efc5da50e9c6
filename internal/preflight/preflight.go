// Package preflight runs the host checks that must pass (or at least be
// known) before the deployment touches the container engine.
//
// Writability of the install directory is fatal: both durable artifacts
// (docker-compose.yml and .env) live there, and discovering a read-only
// directory after images were pulled would waste the whole run. Free
// disk space is advisory only — the threshold is a heuristic and the
// engine's storage may live on a different filesystem anyway.
package preflight

import (
	"fmt"
	"os"

	log "github.com/sirupsen/logrus"

	"github.com/Rocketgraphai/install/internal/model"
)

// MinDiskSpace is the advisory free-space threshold for the install
// directory's filesystem. The image set plus the database volume land
// around this figure on a fresh host.
const MinDiskSpace uint64 = 10 << 30 // 10 GiB

// CheckWritable verifies the install directory exists (creating it if
// needed) and accepts writes. The probe is an actual file creation, not
// a permission-bit inspection: ACLs, read-only mounts, and quota
// enforcement all surface only when a write is attempted.
func CheckWritable(dir string) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return model.WrapCLIError(model.ExitPermissionDenied,
			fmt.Sprintf("cannot create install directory %s", dir), err)
	}

	probe, err := os.CreateTemp(dir, ".write-probe-*")
	if err != nil {
		return model.WrapCLIError(model.ExitPermissionDenied,
			fmt.Sprintf("install directory %s is not writable", dir), err)
	}
	name := probe.Name()
	_ = probe.Close()
	_ = os.Remove(name)

	log.WithField("dir", dir).Debug("preflight: install directory writable")
	return nil
}

// CheckDiskSpace returns an advisory warning when the filesystem
// holding dir has less than MinDiskSpace free. An empty string means
// enough space, or that the platform could not report it.
func CheckDiskSpace(dir string) string {
	free, ok := freeDiskSpace(dir)
	if !ok || free >= MinDiskSpace {
		return ""
	}
	return fmt.Sprintf("only %.1f GiB free on %s; the full image set needs about %d GiB",
		float64(free)/float64(1<<30), dir, MinDiskSpace>>30)
}
