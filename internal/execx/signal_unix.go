//go:build !windows

package execx

import (
	"os"
	"syscall"
)

// stopSignal is sent to a child that hit its deadline, ahead of the
// WaitDelay kill escalation.
var stopSignal os.Signal = syscall.SIGTERM
