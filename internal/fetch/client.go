// Package fetch retrieves the published deployment files (compose
// definition and environment template) from the download base.
//
// Each retrieval is an atomic get-or-fail: the payload is either fully
// read or the call errors. Retry policy belongs to the caller — for this
// one-shot installer the policy is "no retries", so a flaky network
// surfaces immediately instead of masking a misconfigured base URL.
package fetch

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	log "github.com/sirupsen/logrus"
)

// defaultTimeout bounds one retrieval end to end, connection setup
// through body read. The published files are small (a few KB), so a
// minute only ever matters on a stalled connection.
const defaultTimeout = time.Minute

// maxPayloadSize caps a single download. The real files are tiny; a
// response beyond this is a misconfigured base URL (a captive portal, a
// tarball), not a deployment file.
const maxPayloadSize = 4 << 20 // 4 MiB

// Client fetches deployment files from one download base.
type Client struct {
	// baseURL is the download base, without a trailing slash.
	baseURL string

	// httpClient performs the requests. Swappable for tests.
	httpClient *http.Client
}

// NewClient creates a Client for the given download base.
func NewClient(baseURL string) *Client {
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: defaultTimeout},
	}
}

// Fetch retrieves one named file from the download base and returns its
// payload. Any non-200 status is an error: the published files either
// exist in full or the install cannot proceed with them.
func (c *Client) Fetch(ctx context.Context, name string) ([]byte, error) {
	url := c.baseURL + "/" + name
	log.WithField("url", url).Debug("fetch: downloading")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build request for %s: %w", url, err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to download %s: %w", url, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("failed to download %s: HTTP %s", url, resp.Status)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxPayloadSize+1))
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", url, err)
	}
	if len(data) > maxPayloadSize {
		return nil, fmt.Errorf("download %s exceeds %d bytes; wrong base URL?", url, maxPayloadSize)
	}

	log.WithFields(log.Fields{"url": url, "bytes": len(data)}).Debug("fetch: done")
	return data, nil
}
