// Package model defines the domain types for the rocketgraph-install CLI.
//
// These types are used throughout the application for passing data between
// components: the runtime resolver produces a RuntimeProfile, the CLI layer
// produces InstallOptions, and every component reports failures through
// CLIError so the process exit code always reflects what actually went wrong.
package model

import (
	"fmt"
	"strings"
)

// Well-known keys in the environment document. The env template published
// alongside each release ships these keys either active or commented out;
// the reconciler and port auditor address them by name.
const (
	// KeyHTTPPort is the host port the web console listens on for HTTP.
	KeyHTTPPort = "MC_HTTP_PORT"

	// KeyHTTPSPort is the host port the web console listens on for HTTPS.
	// Only published when TLS is enabled.
	KeyHTTPSPort = "MC_HTTPS_PORT"

	// KeySSLCert is the path to the TLS certificate. TLS is considered
	// enabled only when both KeySSLCert and KeySSLKey are active.
	KeySSLCert = "MC_SSL_CERT"

	// KeySSLKey is the path to the TLS private key.
	KeySSLKey = "MC_SSL_KEY"

	// KeyLicenseFile is the path to the xGT license file, resolved
	// relative to the install directory by the compose file.
	KeyLicenseFile = "XGT_LICENSE_FILE"

	// KeySingleUserMode toggles the single-user authentication shortcut.
	// The template ships it active; enterprise installs comment it out.
	KeySingleUserMode = "MC_SINGLE_USER_MODE"

	// KeyDatabaseImage overrides the MongoDB image. The template ships it
	// commented out; it is activated on non-x86 hosts where the default
	// image has no manifest.
	KeyDatabaseImage = "MONGO_IMAGE"
)

// Compiled-in defaults used when the environment document does not carry
// an active value for the corresponding key.
const (
	// DefaultHTTPPort is the fallback console HTTP port.
	DefaultHTTPPort = 3000

	// DefaultHTTPSPort is the fallback console HTTPS port.
	DefaultHTTPSPort = 3443

	// ArmDatabaseImage is the multi-arch MongoDB image activated via
	// KeyDatabaseImage on non-x86 hosts.
	ArmDatabaseImage = "mongodb/mongodb-community-server:7.0-ubi8"

	// ConventionalLicenseFile is the license file name looked up beside
	// the environment document when no --license flag was given.
	ConventionalLicenseFile = "xgt.lic"
)

// Install-directory artifact names and deployment constants.
const (
	// ComposeFileName is the compose file written to the install directory.
	ComposeFileName = "docker-compose.yml"

	// EnvFileName is the environment document written to the install
	// directory. Compose frontends pick it up by this name automatically.
	EnvFileName = ".env"

	// EnvTemplateName is the environment template published alongside the
	// compose file at the download base.
	EnvTemplateName = "env.template"

	// DefaultsFileName is the optional JSONC defaults file read from the
	// install directory before flags are applied.
	DefaultsFileName = "install.jsonc"

	// ComposeProjectName pins the compose project so container and volume
	// names are deterministic across hosts and shells.
	ComposeProjectName = "rocketgraph"

	// DefaultBaseURL is the download base for the compose file and the
	// environment template.
	DefaultBaseURL = "https://install.rocketgraph.com/latest"

	// BackendService is the compose service whose container holds the
	// extractable artifacts.
	BackendService = "mission-control"

	// BackendImage is the fallback image name used to locate the backend
	// container when the compose file could not be probed.
	BackendImage = "rocketgraph/mission-control"

	// ArtifactSourceDir is the in-container directory holding the example
	// notebooks extracted after deployment.
	ArtifactSourceDir = "/opt/rocketgraph/notebooks"

	// ArtifactTargetDir is the directory under the install directory the
	// notebooks are extracted into.
	ArtifactTargetDir = "notebooks"

	// DataVolume is the named volume backing the MongoDB data directory.
	// Matches "<project>_<volume>" as composed by the frontend.
	DataVolume = "rocketgraph_mongodb-data"

	// DataVolumeOwner is the uid:gid owning the MongoDB data directory
	// inside the multi-arch image.
	DataVolumeOwner = "999:999"
)

// Phase identifies one step of the deployment sequence. Phases run in a
// fixed order; Fatal reports whether a failure of the phase aborts the
// remainder of the sequence.
type Phase string

const (
	// PhasePull fetches all images named by the compose file.
	PhasePull Phase = "pull"

	// PhaseVolumePrepare creates the data volume and fixes its ownership.
	// Only runs on hosts where the database image override applies.
	PhaseVolumePrepare Phase = "volume-prepare"

	// PhaseStartCore starts the profile-less compose services.
	PhaseStartCore Phase = "start-core"

	// PhaseStartDependent starts the services guarded by compose profiles.
	PhaseStartDependent Phase = "start-dependent"

	// PhaseLinger enables systemd lingering so rootless containers
	// survive logout.
	PhaseLinger Phase = "linger"

	// PhaseExtractArtifacts copies the example notebooks out of the
	// backend container.
	PhaseExtractArtifacts Phase = "extract-artifacts"
)

// String returns the string representation of Phase.
func (p Phase) String() string {
	return string(p)
}

// IsValid checks whether the Phase value is one of the predefined phases.
func (p Phase) IsValid() bool {
	switch p {
	case PhasePull, PhaseVolumePrepare, PhaseStartCore,
		PhaseStartDependent, PhaseLinger, PhaseExtractArtifacts:
		return true
	default:
		return false
	}
}

// Fatal reports whether a failure of this phase aborts the deployment.
// Image pulls and the core service start must succeed; everything else
// degrades to an advisory warning.
func (p Phase) Fatal() bool {
	return p == PhasePull || p == PhaseStartCore
}

// RuntimeProfile is the frozen result of runtime resolution: which
// container engine and compose frontend to use, plus the host facts the
// deployment sequence branches on. The profile never changes after
// resolution — every later command runs against the same pair that
// passed the health probes.
type RuntimeProfile struct {
	// Engine is the engine name, "docker" or "podman".
	Engine string `json:"engine"`

	// EnginePath is the absolute path the engine binary resolved to.
	EnginePath string `json:"enginePath"`

	// Compose is the compose frontend invocation, e.g. ["docker",
	// "compose"] for the plugin or ["docker-compose"] for the
	// standalone binary. Commands append their arguments to it.
	Compose []string `json:"compose"`

	// Arch is the machine architecture as reported by the host,
	// e.g. "x86_64" or "aarch64".
	Arch string `json:"arch"`

	// Rootless indicates a podman engine running without root.
	Rootless bool `json:"rootless"`
}

// String returns a human-readable summary of the profile,
// e.g. "docker + docker compose (x86_64)".
func (p *RuntimeProfile) String() string {
	return fmt.Sprintf("%s + %s (%s)", p.Engine, strings.Join(p.Compose, " "), p.Arch)
}

// IsPodman reports whether the resolved engine is podman.
func (p *RuntimeProfile) IsPodman() bool {
	return p.Engine == "podman"
}

// IsX86 reports whether the host architecture is x86-64. Unknown or
// empty architecture strings are treated as x86 so that the
// architecture-specific handling stays opt-in.
func (p *RuntimeProfile) IsX86() bool {
	switch strings.TrimSpace(p.Arch) {
	case "x86_64", "amd64", "":
		return true
	default:
		return false
	}
}

// NeedsVolumePrepare reports whether the data volume must be created and
// chowned before the first start. The default MongoDB image bundles this
// into its entrypoint; the multi-arch image used on non-x86 hosts does not.
func (p *RuntimeProfile) NeedsVolumePrepare() bool {
	return !p.IsX86()
}

// NeedsDatabaseImageOverride reports whether KeyDatabaseImage must be
// activated in the environment document. Same condition as the volume
// preparation: the default image only publishes an x86 manifest.
func (p *RuntimeProfile) NeedsDatabaseImageOverride() bool {
	return !p.IsX86()
}

// NeedsLinger reports whether systemd lingering should be enabled so the
// containers survive the user logging out. Only applies to rootless
// podman; Docker containers belong to the system daemon.
func (p *RuntimeProfile) NeedsLinger() bool {
	return p.IsPodman() && p.Rootless
}

// InstallOptions carries everything the install command collected from
// flags and the optional defaults file. Zero values mean "not requested":
// a zero port keeps the template's value and an empty license path falls
// back to the conventional file lookup.
type InstallOptions struct {
	// Dir is the install directory holding the compose file and the
	// environment document.
	Dir string `json:"dir"`

	// BaseURL is the download base for the compose file and template.
	BaseURL string `json:"baseUrl"`

	// HTTPPort overrides the console HTTP port on fresh installs.
	HTTPPort int `json:"httpPort,omitempty"`

	// HTTPSPort overrides the console HTTPS port on fresh installs.
	HTTPSPort int `json:"httpsPort,omitempty"`

	// Enterprise disables the single-user authentication shortcut.
	Enterprise bool `json:"enterprise,omitempty"`

	// License is the path to the xGT license file.
	License string `json:"license,omitempty"`

	// Runtime restricts resolution to one engine ("docker" or
	// "podman"). Empty means probe all candidates in order.
	Runtime string `json:"runtime,omitempty"`
}

// Validate checks the option values that can be wrong independent of any
// host state: port ranges, port collisions between the two console
// ports, and the runtime restriction.
func (o *InstallOptions) Validate() error {
	if o.HTTPPort != 0 && (o.HTTPPort < 1 || o.HTTPPort > 65535) {
		return fmt.Errorf("http port %d out of range (1-65535)", o.HTTPPort)
	}
	if o.HTTPSPort != 0 && (o.HTTPSPort < 1 || o.HTTPSPort > 65535) {
		return fmt.Errorf("https port %d out of range (1-65535)", o.HTTPSPort)
	}
	if o.HTTPPort != 0 && o.HTTPPort == o.HTTPSPort {
		return fmt.Errorf("http and https ports must differ (both %d)", o.HTTPPort)
	}
	switch o.Runtime {
	case "", "docker", "podman":
	default:
		return fmt.Errorf("invalid runtime %q (valid: docker, podman)", o.Runtime)
	}
	return nil
}

// ContainerInfo holds runtime information about one container of the
// deployed stack. This data is fetched from the engine on demand, not
// persisted.
type ContainerInfo struct {
	// ID is the container identifier (hash prefix).
	ID string `json:"id"`

	// Name is the human-readable container name.
	Name string `json:"name"`

	// Service is the compose service name the container belongs to.
	Service string `json:"service,omitempty"`

	// Image is the image the container was created from.
	Image string `json:"image"`

	// State is the engine-reported container state
	// (e.g. "running", "exited", "created").
	State string `json:"state"`
}

// ExitCode defines standard CLI exit codes. These codes allow scripts and
// CI systems to programmatically determine the outcome of a command.
type ExitCode int

const (
	// ExitSuccess indicates the command completed successfully.
	ExitSuccess ExitCode = 0

	// ExitGeneralError indicates an unspecified error occurred.
	ExitGeneralError ExitCode = 1

	// ExitRuntimeUnavailable indicates no working container engine and
	// compose frontend pair could be found.
	ExitRuntimeUnavailable ExitCode = 2

	// ExitTemplateFetchFailed indicates the compose file or environment
	// template could not be downloaded on a fresh install.
	ExitTemplateFetchFailed ExitCode = 3

	// ExitPortConflict indicates a required host port is already bound
	// by another process.
	ExitPortConflict ExitCode = 4

	// ExitDeploymentFailed indicates an image pull or the core service
	// start failed.
	ExitDeploymentFailed ExitCode = 5

	// ExitPermissionDenied indicates the install directory is not
	// writable by the current user.
	ExitPermissionDenied ExitCode = 6
)

// CLIError is a custom error type that carries an exit code.
// This allows the CLI layer to translate domain errors into
// appropriate process exit codes.
type CLIError struct {
	// Code is the exit code to return to the OS.
	Code ExitCode

	// Message is the human-readable error description.
	Message string

	// Err is the underlying error, if any.
	Err error
}

// Error satisfies the error interface. It returns the human-readable
// error message, optionally including the underlying error.
func (e *CLIError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

// Unwrap returns the underlying error for use with errors.Is/errors.As.
func (e *CLIError) Unwrap() error {
	return e.Err
}

// NewCLIError creates a new CLIError with the given exit code and message.
func NewCLIError(code ExitCode, message string) *CLIError {
	return &CLIError{Code: code, Message: message}
}

// WrapCLIError creates a new CLIError that wraps an existing error.
func WrapCLIError(code ExitCode, message string, err error) *CLIError {
	return &CLIError{Code: code, Message: message, Err: err}
}
