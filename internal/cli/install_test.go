package cli

import (
	"context"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Rocketgraphai/install/internal/engineapi"
	"github.com/Rocketgraphai/install/internal/envfile"
	"github.com/Rocketgraphai/install/internal/execx"
	"github.com/Rocketgraphai/install/internal/model"
)

// fakeRunner answers from canned results keyed by a substring of the
// rendered command line, records every invocation, and succeeds with
// empty output by default. The default makes the runtime resolver pick
// docker + docker compose on the first probe.
type fakeRunner struct {
	results map[string]execx.Result
	calls   []execx.Spec
}

func newFakeRunner() *fakeRunner {
	return &fakeRunner{results: map[string]execx.Result{}}
}

func (f *fakeRunner) Run(_ context.Context, spec execx.Spec) execx.Result {
	f.calls = append(f.calls, spec)
	line := spec.CommandLine()
	for key, res := range f.results {
		if strings.Contains(line, key) {
			res.Cmd = line
			return res
		}
	}
	return execx.Result{Cmd: line, ExitCode: 0}
}

func (f *fakeRunner) LookPath(name string) (string, error) {
	return "/usr/bin/" + name, nil
}

// containsLine reports whether any recorded command line contains sub.
func (f *fakeRunner) containsLine(sub string) bool {
	for _, c := range f.calls {
		if strings.Contains(c.CommandLine(), sub) {
			return true
		}
	}
	return false
}

// fakeFetcher serves deployment files from a map; missing names and a
// global failure mode produce errors.
type fakeFetcher struct {
	files map[string][]byte
	err   error
}

func (f *fakeFetcher) Fetch(_ context.Context, name string) ([]byte, error) {
	if f.err != nil {
		return nil, f.err
	}
	data, ok := f.files[name]
	if !ok {
		return nil, fmt.Errorf("unexpected file %q", name)
	}
	return data, nil
}

const testComposeFile = `services:
  xgt:
    image: rocketgraph/xgt:2.4
  mission-control:
    image: rocketgraph/mission-control:2.4
  mongodb:
    image: ${MONGO_IMAGE:-mongo:7.0}
  jupyter:
    image: rocketgraph/jupyter:2.4
    profiles: [notebooks]
`

const testEnvTemplate = `# Rocketgraph environment
MC_HTTP_PORT=3000
MC_HTTPS_PORT=3443
#MC_SSL_CERT=/certs/server.crt
#MC_SSL_KEY=/certs/server.key
MC_SINGLE_USER_MODE=true
#MONGO_IMAGE=mongo:7.0
`

// testDeps wires the fakes into the orchestration, with the engine API
// disabled so every interaction goes through the recorded runner.
func testDeps(runner *fakeRunner, fetch *fakeFetcher) installDeps {
	return installDeps{
		runner:       runner,
		newFetcher:   func(string) fetcher { return fetch },
		newAPIClient: func(context.Context) (*engineapi.Client, error) { return nil, fmt.Errorf("no socket") },
	}
}

// occupyPort binds an ephemeral TCP port for the duration of the test
// and returns its number, simulating another process holding it.
func occupyPort(t *testing.T) int {
	t.Helper()
	listener, err := net.Listen("tcp", ":0")
	require.NoError(t, err)
	t.Cleanup(func() { _ = listener.Close() })
	return listener.Addr().(*net.TCPAddr).Port
}

// freePort finds a port that is currently available by binding and
// immediately releasing it.
func freePort(t *testing.T) int {
	t.Helper()
	listener, err := net.Listen("tcp", ":0")
	require.NoError(t, err)
	port := listener.Addr().(*net.TCPAddr).Port
	require.NoError(t, listener.Close())
	return port
}

// TestRunInstall_FreshHappyPath runs the complete orchestration against
// an empty directory: files written, port override applied, deployment
// phases executed, console URL derived from the final document.
func TestRunInstall_FreshHappyPath(t *testing.T) {
	dir := t.TempDir()
	httpPort := freePort(t)

	runner := newFakeRunner()
	runner.results["ps -q --filter ancestor="] = execx.Result{ExitCode: 0, Output: "abc123\n"}
	fetch := &fakeFetcher{files: map[string][]byte{
		model.ComposeFileName: []byte(testComposeFile),
		model.EnvTemplateName: []byte(testEnvTemplate),
	}}

	opts := &model.InstallOptions{Dir: dir, HTTPPort: httpPort}
	report, err := runInstall(context.Background(), opts, testDeps(runner, fetch))
	require.NoError(t, err)

	assert.True(t, report.Fresh)
	assert.Equal(t, fmt.Sprintf("http://localhost:%d", httpPort), report.URL)
	assert.Contains(t, report.Phases, model.PhasePull)
	assert.Contains(t, report.Phases, model.PhaseStartCore)
	assert.Contains(t, report.Phases, model.PhaseStartDependent)
	assert.Contains(t, report.Phases, model.PhaseExtractArtifacts)
	assert.Equal(t, []string{"mission-control", "mongodb", "xgt"}, report.Services)
	assert.Equal(t, filepath.Join(dir, model.ArtifactTargetDir), report.Notebooks)

	// Written artifacts: compose file verbatim, document with the port
	// override active.
	composeData, err := os.ReadFile(filepath.Join(dir, model.ComposeFileName))
	require.NoError(t, err)
	assert.Equal(t, testComposeFile, string(composeData))

	envData, err := os.ReadFile(filepath.Join(dir, model.EnvFileName))
	require.NoError(t, err)
	doc := envfile.Parse(envData)
	v, ok := doc.Get(model.KeyHTTPPort)
	require.True(t, ok)
	assert.Equal(t, fmt.Sprintf("%d", httpPort), v)

	// Deployment commands ran with the resolved docker frontend.
	assert.True(t, runner.containsLine("docker compose pull"))
	assert.True(t, runner.containsLine("docker compose up -d"))
	assert.True(t, runner.containsLine("--profile notebooks up -d"))
}

// TestRunInstall_PortConflictStopsBeforeDeployment holds the console
// port open and verifies the run aborts with the conflict exit code
// before any image or container command was issued.
func TestRunInstall_PortConflictStopsBeforeDeployment(t *testing.T) {
	dir := t.TempDir()
	busy := occupyPort(t)

	runner := newFakeRunner()
	fetch := &fakeFetcher{files: map[string][]byte{
		model.ComposeFileName: []byte(testComposeFile),
		model.EnvTemplateName: []byte(testEnvTemplate),
	}}

	opts := &model.InstallOptions{Dir: dir, HTTPPort: busy}
	_, err := runInstall(context.Background(), opts, testDeps(runner, fetch))

	var cliErr *model.CLIError
	require.ErrorAs(t, err, &cliErr)
	assert.Equal(t, model.ExitPortConflict, cliErr.Code)
	assert.Contains(t, cliErr.Message, fmt.Sprintf("%d", busy))

	// Only the runtime probes may have run.
	assert.False(t, runner.containsLine("pull"))
	assert.False(t, runner.containsLine("up -d"))
	assert.False(t, runner.containsLine("create"))

	// No document yet: a retry with corrected port flags must still be
	// treated as a fresh install.
	assert.NoFileExists(t, filepath.Join(dir, model.EnvFileName))
}

// TestRunInstall_FetchFailureOnFreshInstall verifies an unreachable
// download base is fatal when no local copies exist.
func TestRunInstall_FetchFailureOnFreshInstall(t *testing.T) {
	runner := newFakeRunner()
	fetch := &fakeFetcher{err: fmt.Errorf("connection refused")}

	opts := &model.InstallOptions{Dir: t.TempDir()}
	_, err := runInstall(context.Background(), opts, testDeps(runner, fetch))

	var cliErr *model.CLIError
	require.ErrorAs(t, err, &cliErr)
	assert.Equal(t, model.ExitTemplateFetchFailed, cliErr.Code)
}

// TestRunInstall_RerunDegradesToLocalFiles verifies a re-run with an
// unreachable download base reuses the local copies, keeps the
// document byte-identical, and reports the degradation as warnings.
func TestRunInstall_RerunDegradesToLocalFiles(t *testing.T) {
	dir := t.TempDir()
	httpPort := freePort(t)

	localEnv := fmt.Sprintf("MC_HTTP_PORT=%d\nMC_SINGLE_USER_MODE=true\n", httpPort)
	require.NoError(t, os.WriteFile(filepath.Join(dir, model.ComposeFileName), []byte(testComposeFile), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, model.EnvFileName), []byte(localEnv), 0o644))

	runner := newFakeRunner()
	runner.results["ps -q --filter ancestor="] = execx.Result{ExitCode: 0, Output: "abc123\n"}
	fetch := &fakeFetcher{err: fmt.Errorf("connection refused")}

	opts := &model.InstallOptions{Dir: dir}
	report, err := runInstall(context.Background(), opts, testDeps(runner, fetch))
	require.NoError(t, err)

	assert.False(t, report.Fresh)
	assert.Equal(t, fmt.Sprintf("http://localhost:%d", httpPort), report.URL)

	var sawCompose, sawTemplate bool
	for _, w := range report.Warnings {
		if strings.Contains(w, "compose file download failed") {
			sawCompose = true
		}
		if strings.Contains(w, "environment template download failed") {
			sawTemplate = true
		}
	}
	assert.True(t, sawCompose)
	assert.True(t, sawTemplate)

	// The local document must survive untouched.
	envData, err := os.ReadFile(filepath.Join(dir, model.EnvFileName))
	require.NoError(t, err)
	assert.Equal(t, localEnv, string(envData))
}

// TestRunInstall_RerunIgnoresOverrides verifies overrides on an
// existing install produce a warning instead of edits.
func TestRunInstall_RerunIgnoresOverrides(t *testing.T) {
	dir := t.TempDir()
	httpPort := freePort(t)

	localEnv := fmt.Sprintf("MC_HTTP_PORT=%d\n", httpPort)
	require.NoError(t, os.WriteFile(filepath.Join(dir, model.EnvFileName), []byte(localEnv), 0o644))

	runner := newFakeRunner()
	runner.results["ps -q --filter ancestor="] = execx.Result{ExitCode: 0, Output: "abc123\n"}
	fetch := &fakeFetcher{files: map[string][]byte{
		model.ComposeFileName: []byte(testComposeFile),
		model.EnvTemplateName: []byte(testEnvTemplate),
	}}

	opts := &model.InstallOptions{Dir: dir, HTTPPort: freePort(t)}
	report, err := runInstall(context.Background(), opts, testDeps(runner, fetch))
	require.NoError(t, err)

	assert.False(t, report.Fresh)
	// The pre-existing port stays authoritative.
	assert.Equal(t, fmt.Sprintf("http://localhost:%d", httpPort), report.URL)

	envData, err := os.ReadFile(filepath.Join(dir, model.EnvFileName))
	require.NoError(t, err)
	assert.Equal(t, localEnv, string(envData))
}

// TestConsoleURL verifies the scheme choice follows the TLS state of
// the document.
func TestConsoleURL(t *testing.T) {
	plain := envfile.Parse([]byte("MC_HTTP_PORT=8080\n"))
	assert.Equal(t, "http://localhost:8080", consoleURL(plain))

	tls := envfile.Parse([]byte(
		"MC_HTTP_PORT=8080\nMC_HTTPS_PORT=8443\nMC_SSL_CERT=/c.crt\nMC_SSL_KEY=/c.key\n"))
	assert.Equal(t, "https://localhost:8443", consoleURL(tls))

	// Quoted values resolve the way the compose frontend resolves them.
	quoted := envfile.Parse([]byte(`MC_HTTP_PORT="8080"` + "\n"))
	assert.Equal(t, "http://localhost:8080", consoleURL(quoted))
}
