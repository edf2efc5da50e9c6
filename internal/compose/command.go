// command.go builds the compose frontend invocations. The frontend is
// whatever pair the runtime resolver picked ("docker compose",
// "docker-compose", "podman compose", ...), so every builder starts from
// the profile's compose invocation and appends its subcommand.
package compose

import (
	"time"

	"github.com/Rocketgraphai/install/internal/execx"
	"github.com/Rocketgraphai/install/internal/model"
)

// Timeouts for the compose invocations. Pulls move gigabytes of image
// data on a fresh host; everything else finishes in seconds unless the
// engine itself is wedged, which the timeout converts into a reported
// failure instead of a hang.
const (
	// PullTimeout bounds `compose pull`.
	PullTimeout = 20 * time.Minute

	// UpTimeout bounds `compose up -d`. Images are already local by the
	// time it runs, so this covers container creation and start only.
	UpTimeout = 5 * time.Minute

	// DownTimeout bounds `compose down`.
	DownTimeout = 5 * time.Minute
)

// Command builds execx specs for one resolved compose frontend operating
// on one install directory. All invocations run in the install directory
// so the frontend picks up docker-compose.yml and .env by convention,
// and all carry COMPOSE_PROJECT_NAME so container and volume names are
// deterministic.
type Command struct {
	// profile supplies the compose invocation to prepend.
	profile *model.RuntimeProfile

	// dir is the install directory the frontend runs in.
	dir string
}

// NewCommand creates a Command for the resolved profile and install
// directory.
func NewCommand(profile *model.RuntimeProfile, dir string) *Command {
	return &Command{profile: profile, dir: dir}
}

// Pull builds `compose pull`.
func (c *Command) Pull() execx.Spec {
	return c.spec(PullTimeout, "pull")
}

// Up builds `compose up -d` for the profile-less core services.
func (c *Command) Up() execx.Spec {
	return c.spec(UpTimeout, "up", "-d")
}

// UpProfile builds `compose --profile <name> up -d` for one optional
// service group.
func (c *Command) UpProfile(name string) execx.Spec {
	return c.spec(UpTimeout, "--profile", name, "up", "-d")
}

// Down builds `compose down`, optionally removing named volumes for a
// complete cleanup.
func (c *Command) Down(removeVolumes bool) execx.Spec {
	args := []string{"down"}
	if removeVolumes {
		args = append(args, "--volumes")
	}
	return c.spec(DownTimeout, args...)
}

// spec assembles the invocation: the profile's compose frontend (one or
// two tokens), then the subcommand arguments.
func (c *Command) spec(timeout time.Duration, args ...string) execx.Spec {
	invocation := c.profile.Compose
	name := invocation[0]
	full := make([]string, 0, len(invocation)-1+len(args))
	full = append(full, invocation[1:]...)
	full = append(full, args...)

	return execx.Spec{
		Name:    name,
		Args:    full,
		Dir:     c.dir,
		Env:     []string{"COMPOSE_PROJECT_NAME=" + model.ComposeProjectName},
		Timeout: timeout,
	}
}
