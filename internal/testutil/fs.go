// Package testutil holds fixtures shared by package tests.
package testutil

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"marginalia/internal/adapters/filesystem"
	"marginalia/internal/ports"
)

// FS is the real filesystem adapter with extended attributes kept in memory,
// keyed by file key so they follow renames like real attributes do.
type FS struct {
	*filesystem.Adapter

	// NoAttributes makes every attribute call fail as unsupported
	NoAttributes bool
	// MoveHook, when set, runs instead of the real move
	MoveHook func(src, dst string) error

	mu    sync.Mutex
	attrs map[string]map[string]string
	moves []string
}

// Ensure FS implements Filesystem
var _ ports.Filesystem = (*FS)(nil)

// NewFS creates an FS over the real filesystem
func NewFS() *FS {
	return &FS{
		Adapter: filesystem.NewAdapter(),
		attrs:   make(map[string]map[string]string),
	}
}

func (f *FS) ReadAttribute(path, key string) (string, bool, error) {
	if f.NoAttributes {
		return "", false, fmt.Errorf("getxattr %s: %w", path, ports.ErrAttributeUnsupported)
	}
	fk, err := f.FileKey(path)
	if err != nil {
		return "", false, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	v, ok := f.attrs[fk][key]
	return v, ok, nil
}

func (f *FS) WriteAttribute(path, key, value string) error {
	if f.NoAttributes {
		return fmt.Errorf("setxattr %s: %w", path, ports.ErrAttributeUnsupported)
	}
	fk, err := f.FileKey(path)
	if err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.attrs[fk] == nil {
		f.attrs[fk] = make(map[string]string)
	}
	f.attrs[fk][key] = value
	return nil
}

func (f *FS) Move(src, dst string) error {
	f.mu.Lock()
	f.moves = append(f.moves, src+" -> "+dst)
	hook := f.MoveHook
	f.mu.Unlock()
	if hook != nil {
		return hook(src, dst)
	}
	return f.Adapter.Move(src, dst)
}

// Moves returns every move attempted so far
func (f *FS) Moves() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.moves...)
}

// WriteFiles creates each relative path under root. Paths ending in "/"
// become directories.
func WriteFiles(t *testing.T, root string, paths ...string) {
	t.Helper()
	for _, rel := range paths {
		p := filepath.Join(root, rel)
		if rel[len(rel)-1] == '/' {
			if err := os.MkdirAll(p, 0755); err != nil {
				t.Fatalf("failed to create %s: %v", rel, err)
			}
			continue
		}
		if err := os.MkdirAll(filepath.Dir(p), 0755); err != nil {
			t.Fatalf("failed to create dir for %s: %v", rel, err)
		}
		if err := os.WriteFile(p, []byte(rel), 0644); err != nil {
			t.Fatalf("failed to write %s: %v", rel, err)
		}
	}
}
