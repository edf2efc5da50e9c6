//go:build !windows

package execx

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestExecutor_Run_Success verifies the happy path: exit code zero,
// captured output, no error, no timeout.
func TestExecutor_Run_Success(t *testing.T) {
	e := NewExecutor()
	res := e.Run(context.Background(), Spec{
		Name: "sh",
		Args: []string{"-c", "echo hello"},
	})

	assert.True(t, res.OK())
	assert.Equal(t, 0, res.ExitCode)
	assert.Equal(t, "hello\n", res.Output)
	assert.False(t, res.TimedOut)
	assert.NoError(t, res.Err)
	assert.Equal(t, "sh -c echo hello", res.Cmd)
}

// TestExecutor_Run_NonZeroExit verifies that a child failing on its own
// terms is an ordinary outcome: exit code reported, Err stays nil.
func TestExecutor_Run_NonZeroExit(t *testing.T) {
	e := NewExecutor()
	res := e.Run(context.Background(), Spec{
		Name: "sh",
		Args: []string{"-c", "echo broken >&2; exit 3"},
	})

	assert.False(t, res.OK())
	assert.Equal(t, 3, res.ExitCode)
	assert.NoError(t, res.Err)
	assert.False(t, res.TimedOut)
	assert.Contains(t, res.Output, "broken")
}

// TestExecutor_Run_CombinedOutput verifies stdout and stderr land in the
// same capture buffer, as diagnostics from compose frontends arrive on
// both streams.
func TestExecutor_Run_CombinedOutput(t *testing.T) {
	e := NewExecutor()
	res := e.Run(context.Background(), Spec{
		Name: "sh",
		Args: []string{"-c", "echo out; echo err >&2"},
	})

	require.True(t, res.OK())
	assert.Contains(t, res.Output, "out")
	assert.Contains(t, res.Output, "err")
}

// TestExecutor_Run_MissingBinary verifies a binary that cannot be started
// yields exit code -1 with Err set, never a panic.
func TestExecutor_Run_MissingBinary(t *testing.T) {
	e := NewExecutor()
	res := e.Run(context.Background(), Spec{
		Name: "definitely-not-a-real-binary-name",
	})

	assert.False(t, res.OK())
	assert.Equal(t, -1, res.ExitCode)
	assert.Error(t, res.Err)
	assert.False(t, res.TimedOut)
}

// TestExecutor_Run_Dir verifies the working directory is honored.
func TestExecutor_Run_Dir(t *testing.T) {
	dir := t.TempDir()
	e := NewExecutor()
	res := e.Run(context.Background(), Spec{
		Name: "sh",
		Args: []string{"-c", "pwd"},
		Dir:  dir,
	})

	require.True(t, res.OK())
	assert.Equal(t, dir, strings.TrimSpace(res.Output))
}

// TestExecutor_Run_Env verifies extra environment entries reach the child
// on top of the inherited environment.
func TestExecutor_Run_Env(t *testing.T) {
	e := NewExecutor()
	res := e.Run(context.Background(), Spec{
		Name: "sh",
		Args: []string{"-c", "echo $INSTALL_TEST_MARKER"},
		Env:  []string{"INSTALL_TEST_MARKER=present"},
	})

	require.True(t, res.OK())
	assert.Equal(t, "present", strings.TrimSpace(res.Output))
}

// TestExecutor_Run_Timeout verifies the deadline fires, the result is
// marked TimedOut, and output produced before the deadline survives.
func TestExecutor_Run_Timeout(t *testing.T) {
	e := &Executor{Grace: 500 * time.Millisecond}

	start := time.Now()
	res := e.Run(context.Background(), Spec{
		Name:    "sh",
		Args:    []string{"-c", "echo started; sleep 10"},
		Timeout: 200 * time.Millisecond,
	})
	elapsed := time.Since(start)

	assert.True(t, res.TimedOut)
	assert.False(t, res.OK())
	assert.Contains(t, res.Output, "started")
	assert.NoError(t, res.Err)
	// Bounded wait: timeout plus grace plus scheduling slack, far
	// under the 10s the child wanted.
	assert.Less(t, elapsed, 5*time.Second)
}

// TestExecutor_Run_TimeoutKillEscalation verifies a child that ignores
// the stop signal is still reaped within the grace window.
func TestExecutor_Run_TimeoutKillEscalation(t *testing.T) {
	e := &Executor{Grace: 500 * time.Millisecond}

	start := time.Now()
	res := e.Run(context.Background(), Spec{
		Name:    "sh",
		Args:    []string{"-c", `trap "" TERM; echo trapped; sleep 10`},
		Timeout: 200 * time.Millisecond,
	})
	elapsed := time.Since(start)

	assert.True(t, res.TimedOut)
	assert.Contains(t, res.Output, "trapped")
	// The child never exits voluntarily, so the kill escalation must
	// bring the wait home: timeout + grace + slack.
	assert.Less(t, elapsed, 5*time.Second)
}

// TestExecutor_Run_NoTimeoutOnFastChild verifies a child that finishes
// inside its deadline is not marked TimedOut.
func TestExecutor_Run_NoTimeoutOnFastChild(t *testing.T) {
	e := NewExecutor()
	res := e.Run(context.Background(), Spec{
		Name:    "sh",
		Args:    []string{"-c", "true"},
		Timeout: 5 * time.Second,
	})

	assert.True(t, res.OK())
	assert.False(t, res.TimedOut)
}

// TestExecutor_Run_ParentCancelIsNotTimeout verifies cancellation from
// the parent context is reported as a start/stop error, not a timeout.
func TestExecutor_Run_ParentCancelIsNotTimeout(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	e := NewExecutor()
	res := e.Run(ctx, Spec{Name: "sh", Args: []string{"-c", "true"}})

	assert.False(t, res.OK())
	assert.False(t, res.TimedOut)
}

// TestExecutor_LookPath verifies PATH resolution passthrough.
func TestExecutor_LookPath(t *testing.T) {
	e := NewExecutor()

	path, err := e.LookPath("sh")
	require.NoError(t, err)
	assert.NotEmpty(t, path)

	_, err = e.LookPath("definitely-not-a-real-binary-name")
	assert.Error(t, err)
}

// TestSpec_CommandLine verifies the rendered command line used in
// diagnostics.
func TestSpec_CommandLine(t *testing.T) {
	s := Spec{Name: "docker", Args: []string{"compose", "up", "-d"}}
	assert.Equal(t, "docker compose up -d", s.CommandLine())

	s = Spec{Name: "uname", Args: []string{"-m"}}
	assert.Equal(t, "uname -m", s.CommandLine())
}
