//go:build !linux && !darwin

package filesystem

import (
	"errors"
	"os"
	"path/filepath"
	"time"
)

// FileKey is unavailable without inode numbers
func (a *Adapter) FileKey(path string) (string, error) {
	return "", errors.New("file keys are not supported on this platform")
}

func writable(dir string) bool {
	return true
}

func birthTime(path string) (time.Time, bool) {
	return time.Time{}, false
}

func volumeName(path string, _ os.FileInfo) string {
	return filepath.VolumeName(path)
}
