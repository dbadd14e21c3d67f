// Package storage defines the library file-system abstraction.
package storage

import "github.com/starford/raido/internal/models"

// Provider is the interface for library file operations.
type Provider interface {
	// List returns metadata for every .md file under dir (relative to library root).
	List(dir string) ([]models.FileMeta, error)
	// Read returns the raw bytes of the file at path (relative to library root).
	Read(path string) ([]byte, error)
	// Write atomically writes content to path (relative to library root).
	Write(path string, content []byte) error
	// Delete removes the file at path (relative to library root).
	Delete(path string) error
	// Root returns the absolute library root directory.
	Root() string
}
