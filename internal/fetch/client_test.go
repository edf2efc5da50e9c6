package fetch

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestClient_Fetch verifies the happy path and that the request hits
// <base>/<name>.
func TestClient_Fetch(t *testing.T) {
	var gotPath string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		_, _ = w.Write([]byte("services:\n  xgt:\n    image: rocketgraph/xgt\n"))
	}))
	defer srv.Close()

	// Trailing slash on the base must not produce a double slash.
	c := NewClient(srv.URL + "/")
	data, err := c.Fetch(context.Background(), "docker-compose.yml")
	require.NoError(t, err)

	assert.Equal(t, "/docker-compose.yml", gotPath)
	assert.Contains(t, string(data), "rocketgraph/xgt")
}

// TestClient_Fetch_HTTPError verifies any non-200 status is an error
// naming the URL and status.
func TestClient_Fetch_HTTPError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	}))
	defer srv.Close()

	c := NewClient(srv.URL)
	_, err := c.Fetch(context.Background(), "env.template")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "404")
	assert.Contains(t, err.Error(), "env.template")
}

// TestClient_Fetch_ConnectionError verifies an unreachable base fails
// rather than hanging.
func TestClient_Fetch_ConnectionError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close() // shut down before use

	c := NewClient(srv.URL)
	_, err := c.Fetch(context.Background(), "docker-compose.yml")
	assert.Error(t, err)
}

// TestClient_Fetch_OversizedPayload verifies the size cap rejects
// responses that cannot be a deployment file.
func TestClient_Fetch_OversizedPayload(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(strings.Repeat("x", maxPayloadSize+1)))
	}))
	defer srv.Close()

	c := NewClient(srv.URL)
	_, err := c.Fetch(context.Background(), "docker-compose.yml")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "exceeds")
}

// TestClient_Fetch_ContextCancelled verifies caller-side cancellation is
// honored.
func TestClient_Fetch_ContextCancelled(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	c := NewClient(srv.URL)
	_, err := c.Fetch(ctx, "docker-compose.yml")
	assert.Error(t, err)
}
