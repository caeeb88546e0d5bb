//go:build linux || darwin

package filesystem

import (
	"errors"
	"fmt"
	"io/fs"

	"golang.org/x/sys/unix"

	"marginalia/internal/ports"
)

// ReadAttribute reads an extended attribute. ok is false when the file has
// no such attribute.
func (a *Adapter) ReadAttribute(path, key string) (string, bool, error) {
	buf := make([]byte, 128)
	n, err := unix.Getxattr(path, key, buf)
	if errors.Is(err, unix.ERANGE) {
		size, sizeErr := unix.Getxattr(path, key, nil)
		if sizeErr != nil {
			return "", false, attributeError("getxattr", path, sizeErr)
		}
		buf = make([]byte, size)
		n, err = unix.Getxattr(path, key, buf)
	}
	switch {
	case err == nil:
		return string(buf[:n]), true, nil
	case attributeAbsent(err):
		return "", false, nil
	default:
		return "", false, attributeError("getxattr", path, err)
	}
}

// WriteAttribute sets an extended attribute, replacing any previous value
func (a *Adapter) WriteAttribute(path, key, value string) error {
	if err := unix.Setxattr(path, key, []byte(value), 0); err != nil {
		return attributeError("setxattr", path, err)
	}
	return nil
}

func attributeError(op, path string, err error) error {
	if attributeUnsupported(err) {
		return fmt.Errorf("%s %s: %w", op, path, ports.ErrAttributeUnsupported)
	}
	return &fs.PathError{Op: op, Path: path, Err: err}
}
