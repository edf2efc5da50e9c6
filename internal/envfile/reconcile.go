// reconcile.go implements the merge between the downloaded environment
// template and the local document, including the special-cased keys with
// bespoke rewrite rules (console ports, license file, enterprise mode,
// architecture-specific database image).
package envfile

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	log "github.com/sirupsen/logrus"

	"github.com/Rocketgraphai/install/internal/model"
)

// Overrides carries the fresh-install rewrite requests collected from the
// command line. Zero values mean "not requested". Overrides are only
// honored on a fresh install; on a re-run the pre-existing local document
// is ground truth and overrides are ignored with a warning.
type Overrides struct {
	// HTTPPort activates model.KeyHTTPPort with this value when non-zero.
	HTTPPort int

	// HTTPSPort activates model.KeyHTTPSPort with this value when non-zero.
	HTTPSPort int

	// Enterprise disables the single-user authentication shortcut.
	Enterprise bool

	// License activates model.KeyLicenseFile with this path. When empty,
	// the conventional license file beside the document is looked up
	// instead.
	License string

	// DatabaseImage activates model.KeyDatabaseImage with this image
	// reference when non-empty. Unlike the fields above it is not an
	// operator request: the installer sets it on hosts where the default
	// database image has no manifest, so it never triggers the
	// overrides-ignored warning on a re-run.
	DatabaseImage string
}

// Result is the outcome of reconciliation: the document to write back,
// whether this run adopted the template (fresh install) or kept an
// existing local document (re-run), and the advisory warnings collected
// along the way.
type Result struct {
	// Doc is the reconciled document. Callers persist it with Save.
	Doc *Document

	// Fresh is true when no local document existed before this run.
	Fresh bool

	// Warnings are advisory findings: new template keys on a re-run,
	// ignored overrides, a missing license file. They never abort the
	// run.
	Warnings []string
}

// Reconcile merges the template document into the local document at
// localPath.
//
// Fresh install (no file at localPath): the template is adopted verbatim
// and the overrides are applied by activating the matching keys.
// template must not be nil in this mode — a fresh install without a
// template has nothing to write.
//
// Re-run (file exists at localPath): the local document is parsed and
// returned unchanged. Overrides are ignored with a warning, and every
// key the template defines (active or disabled) that has no active
// counterpart locally produces a warning quoting the template's default
// line, so the operator can adopt it deliberately. A nil template in
// this mode degrades to "no warnings produced" — it means the template
// fetch failed, which is tolerable when a usable local document exists.
func Reconcile(template *Document, localPath string, ov Overrides) (*Result, error) {
	data, err := os.ReadFile(localPath)
	switch {
	case err == nil:
		local := Parse(data)
		return &Result{
			Doc:      local,
			Warnings: upgradeWarnings(template, local, ov),
		}, nil

	case os.IsNotExist(err):
		if template == nil {
			return nil, fmt.Errorf("no environment template and no existing document at %s", localPath)
		}
		// Re-parse rather than alias, so the caller's template document
		// is never mutated by the override rewrites below.
		doc := Parse(template.Bytes())
		warnings := applyOverrides(doc, filepath.Dir(localPath), ov)
		return &Result{Doc: doc, Fresh: true, Warnings: warnings}, nil

	default:
		return nil, fmt.Errorf("failed to read environment document %s: %w", localPath, err)
	}
}

// applyOverrides rewrites the freshly adopted template in place according
// to the fresh-install override rules. Returns advisory warnings (only
// the missing-license case today).
func applyOverrides(doc *Document, dir string, ov Overrides) []string {
	var warnings []string

	if ov.HTTPPort != 0 {
		doc.Activate(model.KeyHTTPPort, strconv.Itoa(ov.HTTPPort))
		log.WithField("port", ov.HTTPPort).Debug("envfile: http port override applied")
	}
	if ov.HTTPSPort != 0 {
		doc.Activate(model.KeyHTTPSPort, strconv.Itoa(ov.HTTPSPort))
		log.WithField("port", ov.HTTPSPort).Debug("envfile: https port override applied")
	}

	// License resolution: an explicit path is honored only when the file
	// actually exists (a dangling path would wedge the engine start);
	// with no explicit path, the conventional file beside the document
	// is picked up automatically.
	switch {
	case ov.License != "":
		if fileExists(resolvePath(dir, ov.License)) {
			doc.Activate(model.KeyLicenseFile, ov.License)
		} else {
			warnings = append(warnings, fmt.Sprintf(
				"license file %s not found; %s left unset", ov.License, model.KeyLicenseFile))
		}
	case fileExists(filepath.Join(dir, model.ConventionalLicenseFile)):
		doc.Activate(model.KeyLicenseFile, model.ConventionalLicenseFile)
		log.WithField("file", model.ConventionalLicenseFile).Debug("envfile: conventional license file adopted")
	}

	// Enterprise installs serve multiple users, so the single-user
	// authentication shortcut must not be active.
	if ov.Enterprise {
		doc.Disable(model.KeySingleUserMode)
	}

	if ov.DatabaseImage != "" {
		doc.Activate(model.KeyDatabaseImage, ov.DatabaseImage)
	}

	return warnings
}

// upgradeWarnings computes the advisory warnings for a re-run: ignored
// overrides first, then one warning per template key that the local
// document does not carry as an active pair. The template's own line is
// quoted so the operator can paste it in as-is.
func upgradeWarnings(template, local *Document, ov Overrides) []string {
	var warnings []string

	if !ov.zero() {
		warnings = append(warnings,
			"existing environment document found: command-line overrides ignored (edit the file directly)")
		log.Warn("envfile: overrides ignored on re-run against an existing document")
	}

	if template == nil {
		// Degraded mode: the template could not be fetched. The local
		// document still works, there is just nothing to compare against.
		return warnings
	}

	for _, key := range template.Keys() {
		if local.IsActive(key) {
			continue
		}
		raw, _ := template.RawLine(key)
		warnings = append(warnings, fmt.Sprintf(
			"template key %s is not active in the local document; adopt it manually if wanted: %s", key, raw))
	}
	return warnings
}

// zero reports whether the operator requested no override. DatabaseImage
// is deliberately not consulted: it is installer-driven, and warning
// about "command-line overrides" the operator never typed would be
// wrong on every flagless ARM re-run.
func (ov Overrides) zero() bool {
	return ov.HTTPPort == 0 && ov.HTTPSPort == 0 && !ov.Enterprise &&
		ov.License == ""
}

// TLSEnabled reports whether the document enables TLS: both the
// certificate key and the private-key key must be present and active.
func TLSEnabled(doc *Document) bool {
	return doc.IsActive(model.KeySSLCert) && doc.IsActive(model.KeySSLKey)
}

// resolvePath interprets p relative to dir unless it is absolute.
func resolvePath(dir, p string) string {
	if filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(dir, p)
}

// fileExists reports whether path names an existing regular file.
func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.Mode().IsRegular()
}
