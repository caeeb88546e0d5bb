package ports

import (
	"context"
	"errors"

	"marginalia/internal/domain"
)

// ErrAttributeUnsupported is returned when the filesystem holding a path
// cannot store extended attributes
var ErrAttributeUnsupported = errors.New("extended attributes not supported")

// Filesystem is the adapter over the real filesystem. It is the source of
// truth for existence, bytes and actual paths.
type Filesystem interface {
	Exists(path string) (bool, error)
	Stat(path string) (*domain.FileStat, error)
	Move(src, dst string) error

	// DirWritable reports whether dir exists, is a directory and accepts new entries
	DirWritable(dir string) (bool, error)

	// Enumerate lists the paths below dir, descending when recursive is set
	Enumerate(ctx context.Context, dir string, recursive bool) ([]string, error)

	// ReadAttribute returns ok=false when the attribute is absent
	ReadAttribute(path, key string) (value string, ok bool, err error)
	WriteAttribute(path, key, value string) error

	// FileKey identifies the underlying inode independent of its path
	FileKey(path string) (string, error)

	// DetectKind classifies a file's content
	DetectKind(path string) (domain.ContentKind, error)
}
