// audit.go computes the deployment's port set from the reconciled
// environment document and checks every member against the host.
package port

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	log "github.com/sirupsen/logrus"

	"github.com/Rocketgraphai/install/internal/envfile"
	"github.com/Rocketgraphai/install/internal/model"
)

// Auditor verifies that every port the deployment needs is still free.
type Auditor struct {
	// scanner performs the OS-level availability probes.
	scanner *Scanner
}

// NewAuditor creates an Auditor backed by the given Scanner.
func NewAuditor(scanner *Scanner) *Auditor {
	return &Auditor{scanner: scanner}
}

// FromDocument derives the port set from the reconciled document.
//
// The HTTP port is always a member: the console listens on it
// unconditionally. The HTTPS port joins only when the document is
// TLS-enabled (both certificate keys active) — without the key pair the
// compose file never publishes it.
//
// Values are read through the document's env-file grammar (Values), not
// the raw lines, so quoting resolves exactly the way the compose
// frontend will resolve it: `MC_HTTP_PORT="8080"` must audit 8080, the
// port the deployment actually binds. Values that are absent or not
// parseable as ports fall back to the compiled-in defaults.
func FromDocument(doc *envfile.Document) []int {
	values, err := doc.Values()
	if err != nil {
		log.WithError(err).Warn("port: document not readable as an env file, using defaults")
		values = map[string]string{}
	}

	ports := []int{readPort(values, model.KeyHTTPPort, model.DefaultHTTPPort)}
	if envfile.TLSEnabled(doc) {
		ports = append(ports, readPort(values, model.KeyHTTPSPort, model.DefaultHTTPSPort))
	}
	return ports
}

// readPort reads key from the resolved value map as a port number,
// falling back to def when the key is missing or out of range.
func readPort(values map[string]string, key string, def int) int {
	v, ok := values[key]
	if !ok {
		return def
	}
	n, err := strconv.Atoi(strings.TrimSpace(v))
	if err != nil || n < 1 || n > 65535 {
		log.WithFields(log.Fields{"key": key, "value": v}).
			Warnf("port: unusable value, falling back to %d", def)
		return def
	}
	return n
}

// Audit probes every port in the set and returns a PortConflict error
// naming all busy ports at once. Reporting the complete set in one pass
// saves the operator a fix-one-rerun-discover-the-next loop.
//
// Duplicate entries are probed once; the conflict list is sorted so the
// message is deterministic regardless of input order.
func (a *Auditor) Audit(ports []int) error {
	seen := make(map[int]bool)
	var busy []int
	for _, p := range ports {
		if seen[p] {
			continue
		}
		seen[p] = true
		if !a.scanner.IsAvailable(p) {
			busy = append(busy, p)
		}
	}

	if len(busy) == 0 {
		log.WithField("ports", ports).Debug("port: audit passed")
		return nil
	}

	sort.Ints(busy)
	names := make([]string, 0, len(busy))
	for _, p := range busy {
		names = append(names, strconv.Itoa(p))
	}
	return model.NewCLIError(
		model.ExitPortConflict,
		fmt.Sprintf("port(s) %s already in use by another process; free them or reinstall with --http-port/--https-port",
			strings.Join(names, ", ")),
	)
}
