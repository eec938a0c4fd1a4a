// Package storage is the file-system side of city provisioning: it owns the
// pages root that generated page files and manifests live under.
package storage

import "time"

// File describes one file found under the pages root.
type File struct {
	Path      string    `json:"path"`
	Checksum  string    `json:"checksum"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Provider is the interface for page file operations. Paths are relative to
// the pages root and use forward slashes.
type Provider interface {
	// List returns every file with extension ext directly under dir.
	List(dir, ext string) ([]File, error)
	// Read returns the raw bytes of the file at path.
	Read(path string) ([]byte, error)
	// Write atomically writes content to path, creating parent directories.
	Write(path string, content []byte) error
	// Delete removes the file at path. A missing file is not an error.
	Delete(path string) error
	// Root returns the absolute pages root.
	Root() string
}
