// document.go implements the ordered line-record model of the environment
// document and the typed operations on it (read, activate, disable,
// append). The model replaces regex substitution on raw text: each line
// keeps its original bytes, and only lines explicitly rewritten by an
// operation change on serialization.
package envfile

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/joho/godotenv"
)

// lineKind classifies a single line of the document.
type lineKind int

const (
	// kindBlank is an empty or whitespace-only line.
	kindBlank lineKind = iota

	// kindComment is a comment line that does not look like a disabled
	// key (e.g. "# Section header").
	kindComment

	// kindPair is a "KEY=VALUE" or "#KEY=VALUE" line. The Disabled flag
	// distinguishes the two forms.
	kindPair
)

// line is one record of the document. Raw holds the original bytes of
// the line (without the trailing newline) and is what serialization
// emits, so untouched lines round-trip exactly.
type line struct {
	raw      string
	kind     lineKind
	key      string
	value    string
	disabled bool
}

// Document is an ordered sequence of line records parsed from an
// environment file. Keys are unique among active lines by convention;
// lookups return the first match so a malformed document with duplicates
// still behaves deterministically.
type Document struct {
	lines []line
}

// Parse builds a Document from raw file bytes. Parsing never fails:
// every line is representable as one of the three record kinds, and
// unrecognizable lines are preserved as comments or blanks.
func Parse(data []byte) *Document {
	doc := &Document{}
	if len(data) == 0 {
		return doc
	}

	// Split preserving the knowledge of a missing trailing newline:
	// strings.Split on "\n" yields a final empty element iff the input
	// ended with a newline, which Bytes() uses to reproduce the ending.
	raw := strings.ReplaceAll(string(data), "\r\n", "\n")
	parts := strings.Split(raw, "\n")
	if len(parts) > 0 && parts[len(parts)-1] == "" {
		parts = parts[:len(parts)-1]
	}

	for _, l := range parts {
		doc.lines = append(doc.lines, classify(l))
	}
	return doc
}

// classify turns one raw line into a record. A line is a pair when the
// text before the first "=" (after an optional "#" prefix) is a valid
// key name; everything else is a comment or a blank.
func classify(raw string) line {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return line{raw: raw, kind: kindBlank}
	}

	text := trimmed
	disabled := false
	if strings.HasPrefix(text, "#") {
		disabled = true
		text = strings.TrimSpace(strings.TrimPrefix(text, "#"))
	}

	key, value, found := strings.Cut(text, "=")
	key = strings.TrimSpace(key)
	if !found || !validKey(key) {
		// "#" followed by prose, or a line with no "=": plain comment.
		if disabled {
			return line{raw: raw, kind: kindComment}
		}
		// An active line that is not a pair should not appear in a
		// well-formed env file; keep it verbatim as a comment record so
		// it survives serialization untouched.
		return line{raw: raw, kind: kindComment}
	}

	return line{
		raw:      raw,
		kind:     kindPair,
		key:      key,
		value:    strings.TrimSpace(value),
		disabled: disabled,
	}
}

// validKey reports whether s is an environment variable name:
// [A-Za-z_][A-Za-z0-9_]*.
func validKey(s string) bool {
	if s == "" {
		return false
	}
	for i, r := range s {
		switch {
		case r == '_',
			r >= 'a' && r <= 'z',
			r >= 'A' && r <= 'Z':
		case r >= '0' && r <= '9':
			if i == 0 {
				return false
			}
		default:
			return false
		}
	}
	return true
}

// Bytes serializes the document. Untouched lines are emitted exactly as
// parsed; every line is terminated with "\n" so the file always ends
// with a newline.
func (d *Document) Bytes() []byte {
	var buf bytes.Buffer
	for _, l := range d.lines {
		buf.WriteString(l.raw)
		buf.WriteByte('\n')
	}
	return buf.Bytes()
}

// Get returns the value of the first ACTIVE occurrence of key.
// Disabled pairs are not consulted — a commented-out default is not a
// value the operator has set.
func (d *Document) Get(key string) (string, bool) {
	for _, l := range d.lines {
		if l.kind == kindPair && !l.disabled && l.key == key {
			return l.value, true
		}
	}
	return "", false
}

// IsActive reports whether key exists as an active pair.
func (d *Document) IsActive(key string) bool {
	_, ok := d.Get(key)
	return ok
}

// Has reports whether key exists as a pair at all, active or disabled.
func (d *Document) Has(key string) bool {
	for _, l := range d.lines {
		if l.kind == kindPair && l.key == key {
			return true
		}
	}
	return false
}

// RawLine returns the original line for key (active preferred, disabled
// otherwise). Used to quote the template's default line in upgrade
// warnings.
func (d *Document) RawLine(key string) (string, bool) {
	disabledRaw := ""
	for _, l := range d.lines {
		if l.kind != kindPair || l.key != key {
			continue
		}
		if !l.disabled {
			return l.raw, true
		}
		if disabledRaw == "" {
			disabledRaw = l.raw
		}
	}
	if disabledRaw != "" {
		return disabledRaw, true
	}
	return "", false
}

// Keys returns every key present as a pair (active or disabled), in
// document order, without duplicates.
func (d *Document) Keys() []string {
	seen := make(map[string]bool)
	var keys []string
	for _, l := range d.lines {
		if l.kind == kindPair && !seen[l.key] {
			seen[l.key] = true
			keys = append(keys, l.key)
		}
	}
	return keys
}

// Activate sets key to value as an active pair. The first matching line
// wins: an active line is rewritten in place, a disabled line is
// uncommented and rewritten, and a missing key is appended at the end.
// The rewritten line uses the canonical "KEY=VALUE" form.
func (d *Document) Activate(key, value string) {
	for i := range d.lines {
		l := &d.lines[i]
		if l.kind != kindPair || l.key != key {
			continue
		}
		l.raw = fmt.Sprintf("%s=%s", key, value)
		l.value = value
		l.disabled = false
		return
	}
	d.Append(key, value)
}

// Disable comments out the active pair for key, preserving its value on
// the disabled line. A key that is not active is left untouched.
func (d *Document) Disable(key string) {
	for i := range d.lines {
		l := &d.lines[i]
		if l.kind == kindPair && !l.disabled && l.key == key {
			l.raw = fmt.Sprintf("#%s=%s", key, l.value)
			l.disabled = true
			return
		}
	}
}

// Append adds a new active pair at the end of the document.
func (d *Document) Append(key, value string) {
	d.lines = append(d.lines, line{
		raw:   fmt.Sprintf("%s=%s", key, value),
		kind:  kindPair,
		key:   key,
		value: value,
	})
}

// Values parses the serialized document with godotenv and returns the
// active key/value map. Going through godotenv means quoting and escape
// semantics match what the compose frontend itself will apply when it
// reads the .env file.
func (d *Document) Values() (map[string]string, error) {
	return godotenv.UnmarshalBytes(d.Bytes())
}
