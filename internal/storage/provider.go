// Package storage defines the docs-tree file-system abstraction.
package storage

import "github.com/starford/ansuz/internal/models"

// Provider is the interface for docs-tree file operations.
type Provider interface {
	// List returns metadata for every .md file under dir (relative to the docs root).
	List(dir string) ([]models.DocMetadata, error)
	// Read returns the raw bytes of the file at path (relative to the docs root).
	Read(path string) ([]byte, error)
	// Write atomically writes content to path (relative to the docs root).
	Write(path string, content []byte) error
	// Abs resolves a relative path to its absolute location, rejecting escapes.
	Abs(path string) (string, error)
	// Root returns the absolute docs root.
	Root() string
}
