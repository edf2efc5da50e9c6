// Package compose probes the fetched compose document and builds the
// compose frontend invocations used by the deployment sequence.
//
// The compose file itself is an opaque payload written verbatim to the
// install directory; this package only reads the small slice of it the
// orchestrator needs — service names, their images, and which services
// are guarded by a compose profile. Profile-less services are the core
// of the stack and must start; profiled services are optional extras
// started best-effort.
package compose

import (
	"fmt"
	"sort"

	"gopkg.in/yaml.v3"

	"github.com/Rocketgraphai/install/internal/model"
)

// File is the probed view of a compose document. Everything beyond the
// fields below (networks, volumes, healthchecks, ...) is the compose
// frontend's business and is deliberately not modeled.
type File struct {
	// Services maps service names to the probed per-service fields.
	Services map[string]Service `yaml:"services"`
}

// Service holds the per-service fields the orchestrator reads.
type Service struct {
	// Image is the image reference the service runs.
	Image string `yaml:"image"`

	// Profiles lists the compose profiles guarding the service. An
	// empty list means the service starts with the default `up`.
	Profiles []string `yaml:"profiles"`
}

// Parse decodes the fetched compose payload. A document without a
// services section is rejected: a compose file that defines nothing to
// run cannot be deployed.
func Parse(data []byte) (*File, error) {
	var f File
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("failed to parse compose file: %w", err)
	}
	if len(f.Services) == 0 {
		return nil, fmt.Errorf("compose file defines no services")
	}
	return &f, nil
}

// CoreServices returns the profile-less service names, sorted. These are
// the services `compose up -d` starts by default and whose startup is
// fatal on failure.
func (f *File) CoreServices() []string {
	var names []string
	for name, svc := range f.Services {
		if len(svc.Profiles) == 0 {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	return names
}

// Profiles returns the distinct compose profiles referenced by any
// service, sorted. Each profile is started with its own
// `compose --profile <p> up -d`, best-effort.
func (f *File) Profiles() []string {
	seen := make(map[string]bool)
	var profiles []string
	for _, svc := range f.Services {
		for _, p := range svc.Profiles {
			if !seen[p] {
				seen[p] = true
				profiles = append(profiles, p)
			}
		}
	}
	sort.Strings(profiles)
	return profiles
}

// BackendImage returns the image of the backend service used for
// artifact extraction, falling back to the compiled-in image reference
// when the compose file does not name it. The nil receiver is valid so
// a failed compose probe degrades to the fallback rather than branching
// at every call site.
func (f *File) BackendImage() string {
	if f != nil {
		if svc, ok := f.Services[model.BackendService]; ok && svc.Image != "" {
			return svc.Image
		}
	}
	return model.BackendImage
}
