package domain

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

// ContentID is the stable identity of one physical file across renames and moves
type ContentID string

// NewContentID mints a fresh random identifier
func NewContentID() ContentID {
	return ContentID(uuid.NewString())
}

// ParseContentID validates an identifier read from an attribute, the database or user input
func ParseContentID(s string) (ContentID, error) {
	s = strings.TrimSpace(s)
	if _, err := uuid.Parse(s); err != nil {
		return "", fmt.Errorf("invalid content ID %q: %w", s, err)
	}
	return ContentID(s), nil
}

func (id ContentID) String() string {
	return string(id)
}

// Short returns the first eight characters, enough to tell entries apart in listings
func (id ContentID) Short() string {
	if len(id) <= 8 {
		return string(id)
	}
	return string(id[:8])
}

// ContentPointer pairs an identifier with its last known path.
// The path is advisory and may be stale; the ID is authoritative.
type ContentPointer struct {
	ID   ContentID
	Path string
}

// Dir returns the containing directory of the pointer's path
func (p ContentPointer) Dir() string {
	return filepath.Dir(p.Path)
}

// Name returns the final path element
func (p ContentPointer) Name() string {
	return filepath.Base(p.Path)
}

// ValidateFileName checks that name is a bare filename and not a path
func ValidateFileName(name string) error {
	switch {
	case name == "":
		return fmt.Errorf("name is empty")
	case name == "." || name == "..":
		return fmt.Errorf("name %q is reserved", name)
	case strings.ContainsRune(name, '/') || strings.ContainsRune(name, filepath.Separator):
		return fmt.Errorf("name %q contains a path separator", name)
	case strings.ContainsRune(name, 0):
		return fmt.Errorf("name contains a NUL byte")
	}
	return nil
}

// ValidateLocation checks that dir is an absolute, clean directory path
func ValidateLocation(dir string) error {
	if dir == "" {
		return fmt.Errorf("location is empty")
	}
	if !filepath.IsAbs(dir) {
		return fmt.Errorf("location %q is not absolute", dir)
	}
	if filepath.Clean(dir) != dir {
		return fmt.Errorf("location %q is not clean (expected %q)", dir, filepath.Clean(dir))
	}
	return nil
}

// IsWithin reports whether path equals dir or lies below it
func IsWithin(path, dir string) bool {
	if path == dir {
		return true
	}
	if dir == string(filepath.Separator) {
		return strings.HasPrefix(path, dir)
	}
	return strings.HasPrefix(path, dir+string(filepath.Separator))
}
