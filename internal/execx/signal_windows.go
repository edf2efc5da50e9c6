//go:build windows

package execx

import "os"

// stopSignal falls back to a hard kill on Windows, where SIGTERM cannot
// be delivered to another process.
var stopSignal os.Signal = os.Kill
