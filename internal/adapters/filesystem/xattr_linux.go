package filesystem

import (
	"errors"

	"golang.org/x/sys/unix"
)

func attributeAbsent(err error) bool {
	return errors.Is(err, unix.ENODATA)
}

// user.* attributes are refused on symlinks and device files with EPERM
func attributeUnsupported(err error) bool {
	return errors.Is(err, unix.ENOTSUP) || errors.Is(err, unix.EPERM)
}
