package execx

import (
	"bytes"
	"context"
	"errors"
	"os"
	"os/exec"
	"strings"
	"time"

	log "github.com/sirupsen/logrus"
)

// DefaultGrace is the window between asking a timed-out child to stop and
// killing it outright.
const DefaultGrace = 5 * time.Second

// Spec describes a single external command invocation.
type Spec struct {
	// Name is the binary to run, resolved via PATH unless absolute.
	Name string

	// Args are the command arguments, excluding the binary name.
	Args []string

	// Dir is the working directory. Empty means the current directory.
	Dir string

	// Env holds extra KEY=VALUE entries appended to the parent
	// environment. Nil inherits the parent environment unchanged.
	Env []string

	// Timeout bounds the total execution time. Zero means no deadline.
	Timeout time.Duration
}

// CommandLine renders the invocation for log lines and error messages.
func (s Spec) CommandLine() string {
	return strings.Join(append([]string{s.Name}, s.Args...), " ")
}

// Result is the outcome of running a command. Exactly one code path
// produces it, so the fields always mean the same thing: Err is only set
// when the command could not be run at all (missing binary, fork failure),
// never for a child that ran and exited non-zero.
type Result struct {
	// Cmd is the rendered command line, for diagnostics.
	Cmd string

	// ExitCode is the child's exit code. -1 when the child was killed
	// by a signal or never started.
	ExitCode int

	// Output is the combined stdout and stderr, interleaved in arrival
	// order. Partial output is preserved on timeout.
	Output string

	// TimedOut is true when the deadline expired before the child
	// finished. Partial output and ExitCode are still populated.
	TimedOut bool

	// Err is the start failure, if any.
	Err error
}

// OK reports whether the command ran to completion with exit code zero.
func (r Result) OK() bool {
	return r.Err == nil && !r.TimedOut && r.ExitCode == 0
}

// Runner abstracts command execution so orchestration layers can be
// tested without spawning processes.
type Runner interface {
	// Run executes the command described by spec and always returns a
	// Result, never panicking and never leaking the child.
	Run(ctx context.Context, spec Spec) Result

	// LookPath reports whether name resolves to an executable on PATH
	// and returns its absolute path.
	LookPath(name string) (string, error)
}

// Executor is the production Runner. The zero value is usable; Grace
// defaults to DefaultGrace when unset.
type Executor struct {
	// Grace is the SIGTERM-to-kill escalation window for children that
	// outlive their deadline.
	Grace time.Duration
}

// NewExecutor returns an Executor with the default grace period.
func NewExecutor() *Executor {
	return &Executor{Grace: DefaultGrace}
}

// Run executes the command. The child is started asynchronously with its
// stdout and stderr merged into one capture buffer. When the timeout
// expires the child receives a stop signal; if it is still alive after
// the grace period it is killed. Run always reaps the child before
// returning, so no zombie outlives the call.
func (e *Executor) Run(ctx context.Context, spec Spec) Result {
	cmdline := spec.CommandLine()
	log.WithField("cmd", cmdline).Debug("exec")

	runCtx := ctx
	if spec.Timeout > 0 {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithTimeout(ctx, spec.Timeout)
		defer cancel()
	}

	cmd := exec.CommandContext(runCtx, spec.Name, spec.Args...)
	cmd.Dir = spec.Dir
	if len(spec.Env) > 0 {
		cmd.Env = append(os.Environ(), spec.Env...)
	}

	var buf bytes.Buffer
	cmd.Stdout = &buf
	cmd.Stderr = &buf

	// Ask politely on deadline; compose frontends detach cleanly on
	// SIGTERM where a straight kill would leave work half done.
	cmd.Cancel = func() error {
		return cmd.Process.Signal(stopSignal)
	}
	cmd.WaitDelay = e.grace()

	err := cmd.Run()

	res := Result{
		Cmd:      cmdline,
		Output:   buf.String(),
		TimedOut: errors.Is(runCtx.Err(), context.DeadlineExceeded),
	}
	if err != nil {
		var exitErr *exec.ExitError
		switch {
		case errors.As(err, &exitErr):
			// Ran and exited. ExitCode is -1 for signal deaths,
			// which is what a killed-on-timeout child reports.
			res.ExitCode = exitErr.ExitCode()
		case res.TimedOut:
			// A child that exits cleanly on the stop signal makes
			// Wait surface the context error instead of an exit
			// status. TimedOut already tells the whole story.
			res.ExitCode = -1
		default:
			res.ExitCode = -1
			res.Err = err
		}
	}

	log.WithFields(log.Fields{
		"cmd":      cmdline,
		"exitCode": res.ExitCode,
		"timedOut": res.TimedOut,
	}).Debug("exec: finished")
	return res
}

// LookPath resolves name against PATH.
func (e *Executor) LookPath(name string) (string, error) {
	return exec.LookPath(name)
}

func (e *Executor) grace() time.Duration {
	if e.Grace > 0 {
		return e.Grace
	}
	return DefaultGrace
}
