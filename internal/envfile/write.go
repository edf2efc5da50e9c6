// write.go persists documents and fetched payloads into the install
// directory.
package envfile

import (
	"fmt"
	"os"
	"path/filepath"
)

// Save writes the serialized document to path, creating parent
// directories as needed. The file is world-readable (0644): the compose
// frontend and any diagnostic tooling must be able to read it.
func Save(doc *Document, path string) error {
	return WriteFile(path, doc.Bytes())
}

// WriteFile writes data to path with 0644 permissions, creating parent
// directories first. Also used for the compose file, which is written
// verbatim from the fetch.
func WriteFile(path string, data []byte) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create directory for %s: %w", path, err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return nil
}
