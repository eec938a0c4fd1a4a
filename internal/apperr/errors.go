// Package apperr holds the sentinel errors shared across layers.
// Callers wrap them with fmt.Errorf("%w: ...") and match with errors.Is.
package apperr

import "errors"

var (
	ErrNotFound   = errors.New("not found")
	ErrConflict   = errors.New("already exists")
	ErrValidation = errors.New("validation failed")
	// ErrFilesystem marks a failure to write or remove a generated page.
	ErrFilesystem = errors.New("page file operation failed")
)
