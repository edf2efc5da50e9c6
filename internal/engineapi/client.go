// client.go handles socket detection and client construction. Detection
// covers both the Docker daemon's fixed socket paths and podman's
// per-user API socket, so the fast path works on either engine when the
// operator has a socket at all.
package engineapi

import (
	"context"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"runtime"
	"time"

	"github.com/docker/docker/client"
)

// pingTimeout is the maximum wait for the engine's ping response. A
// reachable daemon answers in milliseconds; anything slower is treated
// as unreachable and callers drop to their CLI fallback.
const pingTimeout = 5 * time.Second

// Client wraps the Docker Engine SDK client. We wrap rather than embed
// to control the exposed API surface and keep the rest of the
// application off the SDK types.
type Client struct {
	inner *client.Client
}

// NewClient creates an engine API client with automatic socket
// detection.
//
// The detection strategy, in priority order:
//  1. DOCKER_HOST environment variable (used as-is when set)
//  2. The Docker daemon's platform socket paths
//  3. Podman's system and per-user API sockets
//
// The returned client has been constructed but not yet verified; call
// Ping before relying on it.
func NewClient() (*Client, error) {
	if dockerHost := os.Getenv("DOCKER_HOST"); dockerHost != "" {
		return newClientWithHost(dockerHost)
	}

	host, err := detectHost()
	if err != nil {
		return nil, err
	}
	return newClientWithHost(host)
}

// newClientWithHost creates a client connected to the specified host
// string (e.g. "unix:///var/run/docker.sock").
func newClientWithHost(host string) (*Client, error) {
	// API version negotiation keeps one binary compatible with the
	// daemon version spread across supported distributions.
	c, err := client.NewClientWithOpts(
		client.WithHost(host),
		client.WithAPIVersionNegotiation(),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create engine API client for %q: %w", host, err)
	}
	return &Client{inner: c}, nil
}

// detectHost probes the known socket locations and returns the host URI
// of the first that exists.
func detectHost() (string, error) {
	if runtime.GOOS == "windows" {
		// Docker Desktop serves a fixed named pipe; os.Stat does not
		// work on pipes, so probe with a brief dial.
		pipePath := `//./pipe/docker_engine`
		conn, err := net.DialTimeout("pipe", pipePath, time.Second)
		if err == nil {
			conn.Close()
			return "npipe://" + pipePath, nil
		}
		return "", fmt.Errorf("engine named pipe not found at %s: %w", pipePath, err)
	}

	candidates := []string{
		"/var/run/docker.sock",
		"/run/podman/podman.sock",
	}
	if home, err := os.UserHomeDir(); err == nil {
		// Docker Desktop on macOS without the /var/run symlink.
		candidates = append(candidates, filepath.Join(home, ".docker", "run", "docker.sock"))
	}
	if xdg := os.Getenv("XDG_RUNTIME_DIR"); xdg != "" {
		// Rootless podman's per-user API socket, present only when the
		// podman.socket systemd unit is enabled.
		candidates = append(candidates, filepath.Join(xdg, "podman", "podman.sock"))
	}

	for _, path := range candidates {
		if _, err := os.Stat(path); err == nil {
			return "unix://" + path, nil
		}
	}
	return "", fmt.Errorf("no engine API socket found at any of %v", candidates)
}

// Ping verifies the engine is reachable and responsive.
func (c *Client) Ping(ctx context.Context) error {
	pingCtx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()

	if _, err := c.inner.Ping(pingCtx); err != nil {
		return fmt.Errorf("engine API not responding: %w", err)
	}
	return nil
}

// Close releases the client's resources. Safe to call multiple times.
func (c *Client) Close() error {
	if c.inner != nil {
		return c.inner.Close()
	}
	return nil
}
