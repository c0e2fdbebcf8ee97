// Package storage defines the repository file-system abstraction.
package storage

import "github.com/starford/dailynote/internal/models"

// Provider is the interface for repository file operations. All paths are
// relative to the repository root.
type Provider interface {
	// List returns metadata for every .md file under dir.
	List(dir string) ([]models.EntryMetadata, error)
	// Read returns the raw bytes of the file at path.
	Read(path string) ([]byte, error)
	// Write atomically replaces the file at path.
	Write(path string, content []byte) error
	// Create writes a new file and fails with apperr.ErrAlreadyExists if
	// path is already taken.
	Create(path string, content []byte) error
	// Remove deletes the file at path. A missing file is not an error.
	Remove(path string) error
	// Exists reports whether path names an existing file.
	Exists(path string) (bool, error)
}
