// Package defaults reads the optional install.jsonc defaults file from
// the install directory.
//
// The file lets an operator pin per-host installation settings (ports,
// runtime preference, download base) next to the deployment itself, so a
// re-provisioned host installs identically without a long flag list.
// Explicit command-line flags always win over file defaults.
//
// The file is JSONC (JSON with comments): operators annotate why a port
// was moved or a runtime pinned, so comments must survive in the file.
// github.com/tidwall/jsonc strips them before parsing with encoding/json.
package defaults

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	log "github.com/sirupsen/logrus"
	"github.com/tidwall/jsonc"

	"github.com/Rocketgraphai/install/internal/model"
)

// Defaults is the parsed install.jsonc content. Every field is optional;
// zero values mean "not set" and never override anything.
type Defaults struct {
	// HTTPPort is the default console HTTP port.
	HTTPPort int `json:"httpPort,omitempty"`

	// HTTPSPort is the default console HTTPS port.
	HTTPSPort int `json:"httpsPort,omitempty"`

	// Enterprise requests multi-user mode.
	Enterprise bool `json:"enterprise,omitempty"`

	// License is the default license file path.
	License string `json:"license,omitempty"`

	// Runtime pins the container engine ("docker" or "podman").
	Runtime string `json:"runtime,omitempty"`

	// BaseURL overrides the download base.
	BaseURL string `json:"baseUrl,omitempty"`
}

// Load reads install.jsonc from dir. A missing file is not an error —
// the defaults mechanism is opt-in — so callers get an empty Defaults
// they can apply unconditionally.
func Load(dir string) (*Defaults, error) {
	path := filepath.Join(dir, model.DefaultsFileName)

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return &Defaults{}, nil
		}
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}

	// Strip comments and trailing commas, then parse strictly: a typo in
	// a hand-edited defaults file should fail loudly, not half-apply.
	var d Defaults
	if err := json.Unmarshal(jsonc.ToJSON(data), &d); err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", path, err)
	}

	log.WithField("path", path).Debug("defaults: loaded")
	return &d, nil
}

// Apply fills the unset fields of opts from the defaults. Flags the user
// passed explicitly arrive in opts as non-zero values and are kept.
func (d *Defaults) Apply(opts *model.InstallOptions) {
	if opts.HTTPPort == 0 {
		opts.HTTPPort = d.HTTPPort
	}
	if opts.HTTPSPort == 0 {
		opts.HTTPSPort = d.HTTPSPort
	}
	if !opts.Enterprise {
		opts.Enterprise = d.Enterprise
	}
	if opts.License == "" {
		opts.License = d.License
	}
	if opts.Runtime == "" {
		opts.Runtime = d.Runtime
	}
	if opts.BaseURL == "" {
		opts.BaseURL = d.BaseURL
	}
}
