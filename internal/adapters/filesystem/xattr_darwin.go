package filesystem

import (
	"errors"

	"golang.org/x/sys/unix"
)

func attributeAbsent(err error) bool {
	return errors.Is(err, unix.ENOATTR)
}

func attributeUnsupported(err error) bool {
	return errors.Is(err, unix.ENOTSUP) || errors.Is(err, unix.EOPNOTSUPP)
}
