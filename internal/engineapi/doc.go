// Package engineapi wraps the container engine's HTTP API (Docker
// Engine SDK) for the operations where the API beats shelling out:
// container discovery by label or image and the tar-stream copy used
// for artifact extraction.
//
// The API is an optimization, not a requirement. Podman serves the same
// API on its own socket, but rootless setups frequently have no socket
// at all — every caller therefore carries a CLI fallback through the
// command executor, and a failed client construction here is never fatal
// on its own.
package engineapi
