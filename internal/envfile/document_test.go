package envfile

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// sampleTemplate mirrors the shape of the published env template: section
// comments, active defaults, and disabled defaults awaiting adoption.
const sampleTemplate = `# Rocketgraph environment
# Generated defaults; uncomment to override.

MC_SINGLE_USER_MODE=true
#MC_HTTP_PORT=3000
#MC_HTTPS_PORT=3443

# TLS key pair (both required to enable HTTPS)
#MC_SSL_CERT=cert.pem
#MC_SSL_KEY=key.pem

#XGT_LICENSE_FILE=xgt.lic
#MONGO_IMAGE=mongodb/mongodb-community-server:7.0-ubi8
`

// TestParse_RoundTrip verifies serialization reproduces the input
// byte-for-byte when nothing was modified.
func TestParse_RoundTrip(t *testing.T) {
	tests := []struct {
		name  string
		input string
	}{
		{"template", sampleTemplate},
		{"empty", ""},
		{"no trailing newline gains one", "A=1"},
		{"blank lines and comments", "\n# just a comment\n\n"},
		{"whitespace preserved", "  # indented comment\nKEY=value with spaces\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			doc := Parse([]byte(tt.input))
			got := string(doc.Bytes())
			want := tt.input
			// Serialization normalizes only the file ending: every file
			// ends with exactly one newline.
			if want != "" && want[len(want)-1] != '\n' {
				want += "\n"
			}
			assert.Equal(t, want, got)
		})
	}
}

// TestDocument_GetAndIsActive verifies that only active pairs count as
// set, while disabled pairs are visible through Has.
func TestDocument_GetAndIsActive(t *testing.T) {
	doc := Parse([]byte(sampleTemplate))

	v, ok := doc.Get("MC_SINGLE_USER_MODE")
	require.True(t, ok)
	assert.Equal(t, "true", v)
	assert.True(t, doc.IsActive("MC_SINGLE_USER_MODE"))

	_, ok = doc.Get("MC_HTTP_PORT")
	assert.False(t, ok, "disabled key must not read as set")
	assert.False(t, doc.IsActive("MC_HTTP_PORT"))
	assert.True(t, doc.Has("MC_HTTP_PORT"))

	_, ok = doc.Get("NO_SUCH_KEY")
	assert.False(t, ok)
	assert.False(t, doc.Has("NO_SUCH_KEY"))
}

// TestDocument_Activate covers the three activation paths: rewrite an
// active line, uncomment a disabled line, append a missing key.
func TestDocument_Activate(t *testing.T) {
	t.Run("uncomments a disabled key in place", func(t *testing.T) {
		doc := Parse([]byte(sampleTemplate))
		doc.Activate("MC_HTTP_PORT", "8080")

		v, ok := doc.Get("MC_HTTP_PORT")
		require.True(t, ok)
		assert.Equal(t, "8080", v)
		// The line stays where the template put it, now active.
		assert.Contains(t, string(doc.Bytes()), "\nMC_HTTP_PORT=8080\n")
		assert.NotContains(t, string(doc.Bytes()), "#MC_HTTP_PORT")
	})

	t.Run("rewrites an active key in place", func(t *testing.T) {
		doc := Parse([]byte("A=1\nB=2\n"))
		doc.Activate("A", "9")
		assert.Equal(t, "A=9\nB=2\n", string(doc.Bytes()))
	})

	t.Run("appends a missing key", func(t *testing.T) {
		doc := Parse([]byte("A=1\n"))
		doc.Activate("NEW_KEY", "x")
		assert.Equal(t, "A=1\nNEW_KEY=x\n", string(doc.Bytes()))
	})
}

// TestDocument_Disable verifies an active pair is commented out with its
// value preserved, and that disabling a missing key is a no-op.
func TestDocument_Disable(t *testing.T) {
	doc := Parse([]byte("MC_SINGLE_USER_MODE=true\nOTHER=1\n"))

	doc.Disable("MC_SINGLE_USER_MODE")
	assert.False(t, doc.IsActive("MC_SINGLE_USER_MODE"))
	assert.Contains(t, string(doc.Bytes()), "#MC_SINGLE_USER_MODE=true\n")

	before := string(doc.Bytes())
	doc.Disable("NO_SUCH_KEY")
	assert.Equal(t, before, string(doc.Bytes()))
}

// TestDocument_Keys verifies document-order key enumeration across
// active and disabled pairs.
func TestDocument_Keys(t *testing.T) {
	doc := Parse([]byte(sampleTemplate))
	assert.Equal(t, []string{
		"MC_SINGLE_USER_MODE", "MC_HTTP_PORT", "MC_HTTPS_PORT",
		"MC_SSL_CERT", "MC_SSL_KEY", "XGT_LICENSE_FILE", "MONGO_IMAGE",
	}, doc.Keys())
}

// TestDocument_RawLine verifies the original line is returned for
// quoting in warnings, preferring the active form.
func TestDocument_RawLine(t *testing.T) {
	doc := Parse([]byte("#A=disabled\nA=active\n#B=only-disabled\n"))

	raw, ok := doc.RawLine("A")
	require.True(t, ok)
	assert.Equal(t, "A=active", raw)

	raw, ok = doc.RawLine("B")
	require.True(t, ok)
	assert.Equal(t, "#B=only-disabled", raw)

	_, ok = doc.RawLine("C")
	assert.False(t, ok)
}

// TestDocument_Values verifies the godotenv-backed value map applies the
// same quoting semantics the compose frontend will.
func TestDocument_Values(t *testing.T) {
	doc := Parse([]byte("PLAIN=1\nQUOTED=\"hello world\"\n#DISABLED=x\n"))

	values, err := doc.Values()
	require.NoError(t, err)
	assert.Equal(t, "1", values["PLAIN"])
	assert.Equal(t, "hello world", values["QUOTED"])
	_, ok := values["DISABLED"]
	assert.False(t, ok)
}

// TestClassify_Edges exercises the line classifier's corner cases.
func TestClassify_Edges(t *testing.T) {
	tests := []struct {
		name     string
		raw      string
		kind     lineKind
		key      string
		disabled bool
	}{
		{"blank", "", kindBlank, "", false},
		{"spaces only", "   ", kindBlank, "", false},
		{"prose comment", "# hello world", kindComment, "", false},
		{"comment without equals", "#justtext", kindComment, "", false},
		{"active pair", "KEY=value", kindPair, "KEY", false},
		{"disabled pair", "#KEY=value", kindPair, "KEY", true},
		{"disabled pair with space", "# KEY=value", kindPair, "KEY", true},
		{"invalid key name", "9KEY=value", kindComment, "", false},
		{"equals in value", "KEY=a=b", kindPair, "KEY", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			l := classify(tt.raw)
			assert.Equal(t, tt.kind, l.kind)
			assert.Equal(t, tt.key, l.key)
			assert.Equal(t, tt.disabled, l.disabled)
			// Whatever else happens, the original bytes survive.
			assert.Equal(t, tt.raw, l.raw)
		})
	}
}
