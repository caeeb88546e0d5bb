//go:build linux || darwin

package filesystem

import (
	"fmt"

	"golang.org/x/sys/unix"
)

// FileKey returns "device:inode" for path, following symlinks
func (a *Adapter) FileKey(path string) (string, error) {
	var st unix.Stat_t
	if err := unix.Stat(path, &st); err != nil {
		return "", fmt.Errorf("stat %s: %w", path, err)
	}
	return fmt.Sprintf("%d:%d", uint64(st.Dev), st.Ino), nil
}

func writable(dir string) bool {
	return unix.Access(dir, unix.W_OK|unix.X_OK) == nil
}
