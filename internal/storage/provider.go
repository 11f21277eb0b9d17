// Package storage scans and mutates the sound library directory.
package storage

import (
	"io"

	"github.com/starford/soundboard/internal/models"
)

// Provider is the interface for sound library operations.
type Provider interface {
	// Root returns the library root as configured.
	Root() string
	// Scan rebuilds the catalog from the directory tree.
	Scan() (models.Catalog, error)
	// IsEmpty reports whether the root holds no entries at all.
	IsEmpty() (bool, error)
	// Import copies an external audio file into the root.
	Import(srcPath string) (ImportResult, error)
	// ImportReader writes r into the root under name.
	ImportReader(name string, r io.Reader) (ImportResult, error)
	// Delete removes the file behind entry.
	Delete(entry models.SoundEntry) error
	// Size returns the file size of entry in bytes.
	Size(entry models.SoundEntry) (int64, error)
}

// ImportResult describes a file that landed in the library.
type ImportResult struct {
	Entry     models.SoundEntry `json:"entry"`
	Size      int64             `json:"size"`
	Unchanged bool              `json:"unchanged"` // identical file already present
}
