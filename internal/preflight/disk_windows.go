//go:build windows

package preflight

import "golang.org/x/sys/windows"

// freeDiskSpace reports the bytes available to the caller on the volume
// holding dir.
func freeDiskSpace(dir string) (uint64, bool) {
	path, err := windows.UTF16PtrFromString(dir)
	if err != nil {
		return 0, false
	}
	var freeToCaller, total, free uint64
	if err := windows.GetDiskFreeSpaceEx(path, &freeToCaller, &total, &free); err != nil {
		return 0, false
	}
	return freeToCaller, true
}
