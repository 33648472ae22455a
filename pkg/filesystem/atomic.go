// Package filesystem provides atomic file writes and cross-process file
// locking for persisted exposure models.
package filesystem

import (
	"os"

	"github.com/google/renameio/v2"
)

// WriteFileAtomic writes data to filename atomically via temp file + rename.
// Readers never observe a truncated file, which keeps persisted models intact
// if the process dies mid-flush.
func WriteFileAtomic(filename string, data []byte, perm os.FileMode) error {
	return renameio.WriteFile(filename, data, perm)
}
