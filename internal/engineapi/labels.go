// labels.go defines the compose label vocabulary the orchestrator
// filters on. The compose frontend stamps every container it creates
// with the project and service labels; since the project name is pinned,
// those labels are a reliable handle on the deployed stack without any
// state file of our own.
package engineapi

import (
	"github.com/docker/docker/api/types/filters"

	"github.com/Rocketgraphai/install/internal/model"
)

const (
	// LabelComposeProject is the compose-frontend label carrying the
	// project name. Both docker compose and podman compose set it.
	LabelComposeProject = "com.docker.compose.project"

	// LabelComposeService is the compose-frontend label carrying the
	// service name a container belongs to.
	LabelComposeService = "com.docker.compose.service"
)

// ProjectFilter builds the API filter matching every container of the
// deployed stack. Filtering server-side beats listing everything and
// sifting in Go.
func ProjectFilter() filters.Args {
	return filters.NewArgs(
		filters.Arg("label", LabelComposeProject+"="+model.ComposeProjectName),
	)
}

// ImageFilter builds the API filter matching running containers created
// from the given image (ancestor filter).
func ImageFilter(image string) filters.Args {
	return filters.NewArgs(
		filters.Arg("ancestor", image),
		filters.Arg("status", "running"),
	)
}

// ServiceOf extracts the compose service name from a container's
// labels. Empty when the container was not created by a compose
// frontend.
func ServiceOf(labels map[string]string) string {
	return labels[LabelComposeService]
}
