package filesystem

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/gabriel-vasile/mimetype"

	"marginalia/internal/domain"
	"marginalia/internal/ports"
)

// Adapter implements ports.Filesystem on the local filesystem
type Adapter struct{}

// Ensure Adapter implements Filesystem
var _ ports.Filesystem = (*Adapter)(nil)

// NewAdapter creates a filesystem adapter
func NewAdapter() *Adapter {
	return &Adapter{}
}

// ExpandPath expands a leading ~ and returns a clean absolute path
func ExpandPath(path string) (string, error) {
	if strings.HasPrefix(path, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}
		path = filepath.Join(home, path[1:])
	}
	return filepath.Abs(path)
}

// Exists reports whether path exists. A dangling symlink counts as existing.
func (a *Adapter) Exists(path string) (bool, error) {
	_, err := os.Lstat(path)
	if err == nil {
		return true, nil
	}
	if errors.Is(err, fs.ErrNotExist) {
		return false, nil
	}
	return false, err
}

// Stat reports size, kind and timestamps of path
func (a *Adapter) Stat(path string) (*domain.FileStat, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, err
	}
	st := &domain.FileStat{
		Size:       info.Size(),
		IsDir:      info.IsDir(),
		ModifiedAt: info.ModTime(),
		CreatedAt:  info.ModTime(),
	}
	if created, ok := birthTime(path); ok {
		st.CreatedAt = created
	}
	st.Volume = volumeName(path, info)
	return st, nil
}

// Move renames src to dst. It never replaces an existing destination.
func (a *Adapter) Move(src, dst string) error {
	if _, err := os.Lstat(dst); err == nil {
		return fmt.Errorf("move %s: %w", dst, fs.ErrExist)
	}
	if err := os.Rename(src, dst); err != nil {
		return fmt.Errorf("failed to move: %w", err)
	}
	return nil
}

// DirWritable reports whether dir is an existing directory that accepts new entries
func (a *Adapter) DirWritable(dir string) (bool, error) {
	info, err := os.Stat(dir)
	if errors.Is(err, fs.ErrNotExist) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if !info.IsDir() {
		return false, nil
	}
	return writable(dir), nil
}

// Enumerate lists the entries of dir, or every entry below it when
// recursive is set. Dot-prefixed entries are skipped and never descended into.
func (a *Adapter) Enumerate(ctx context.Context, dir string, recursive bool) ([]string, error) {
	if !recursive {
		entries, err := os.ReadDir(dir)
		if err != nil {
			return nil, fmt.Errorf("failed to read directory: %w", err)
		}
		var paths []string
		for _, entry := range entries {
			if isDotName(entry.Name()) {
				continue
			}
			paths = append(paths, filepath.Join(dir, entry.Name()))
		}
		return paths, nil
	}

	var paths []string
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if path == dir {
				return err
			}
			return nil // Skip unreadable subtrees
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		if path == dir {
			return nil
		}
		if isDotName(d.Name()) {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		paths = append(paths, path)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to walk directory: %w", err)
	}
	sort.Strings(paths)
	return paths, nil
}

// DetectKind classifies path by its content
func (a *Adapter) DetectKind(path string) (domain.ContentKind, error) {
	info, err := os.Stat(path)
	if err != nil {
		return domain.KindOther, err
	}
	if info.IsDir() {
		return domain.KindFolder, nil
	}
	mtype, err := mimetype.DetectFile(path)
	if err != nil {
		return domain.KindOther, fmt.Errorf("detect content type: %w", err)
	}
	for m := mtype; m != nil; m = m.Parent() {
		if k := domain.KindFromMIME(m.String()); k != domain.KindOther {
			return k, nil
		}
	}
	return domain.KindOther, nil
}

func isDotName(name string) bool {
	return strings.HasPrefix(name, ".")
}
