// Package execx runs external commands with bounded execution time and
// captured output.
//
// Every invocation goes through one code path: start the child, capture
// combined stdout/stderr, and wait no longer than the configured timeout.
// A child that outlives its deadline is asked to stop (SIGTERM) and, after
// a grace period, killed. Run never returns a Go error for a child that
// merely failed — callers branch on the Result fields, so a missing binary,
// a non-zero exit, and a timeout are all ordinary outcomes.
//
// The Runner interface exists so higher layers (runtime resolution, the
// deployment sequence) can be tested against a fake without spawning
// processes.
package execx
