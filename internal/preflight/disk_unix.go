//go:build !windows

package preflight

import "golang.org/x/sys/unix"

// freeDiskSpace reports the bytes available to an unprivileged caller
// on the filesystem holding dir. Bavail (not Bfree) excludes the
// reserved root blocks, matching what a write can actually use.
func freeDiskSpace(dir string) (uint64, bool) {
	var stat unix.Statfs_t
	if err := unix.Statfs(dir, &stat); err != nil {
		return 0, false
	}
	return stat.Bavail * uint64(stat.Bsize), true
}
