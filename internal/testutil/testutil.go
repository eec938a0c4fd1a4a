// Package testutil provides shared test helpers for setting up registries and
// page roots.
package testutil

import (
	"path/filepath"
	"sync/atomic"
	"testing"

	"github.com/starford/citypages/internal/registry"
	"github.com/starford/citypages/internal/storage"
)

// TestBackend creates a temporary SQLite registry that is closed on cleanup.
func TestBackend(t *testing.T) *registry.SQLite {
	t.Helper()
	db, err := registry.OpenSQLite(filepath.Join(t.TempDir(), "citypages-test.db"))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

// TestPages creates a temporary pages root with a storage.Provider.
func TestPages(t *testing.T) (string, *storage.FS) {
	t.Helper()
	root := t.TempDir()
	store, err := storage.NewFS(root)
	if err != nil {
		t.Fatal(err)
	}
	return root, store
}

// FlakyStore wraps a Provider, counts file operations and fails writes or
// deletes on demand.
type FlakyStore struct {
	storage.Provider
	FailWrite  error
	FailDelete error

	calls atomic.Int64
}

// Calls returns how many List, Read, Write and Delete calls reached the store.
func (f *FlakyStore) Calls() int64 {
	return f.calls.Load()
}

// List counts and delegates.
func (f *FlakyStore) List(dir, ext string) ([]storage.File, error) {
	f.calls.Add(1)
	return f.Provider.List(dir, ext)
}

// Read counts and delegates.
func (f *FlakyStore) Read(path string) ([]byte, error) {
	f.calls.Add(1)
	return f.Provider.Read(path)
}

// Write fails with FailWrite when set.
func (f *FlakyStore) Write(path string, content []byte) error {
	f.calls.Add(1)
	if f.FailWrite != nil {
		return f.FailWrite
	}
	return f.Provider.Write(path, content)
}

// Delete fails with FailDelete when set.
func (f *FlakyStore) Delete(path string) error {
	f.calls.Add(1)
	if f.FailDelete != nil {
		return f.FailDelete
	}
	return f.Provider.Delete(path)
}
