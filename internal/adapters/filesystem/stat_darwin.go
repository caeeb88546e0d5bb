package filesystem

import (
	"os"
	"path/filepath"
	"time"

	"golang.org/x/sys/unix"
)

func birthTime(path string) (time.Time, bool) {
	var st unix.Stat_t
	if err := unix.Stat(path, &st); err != nil {
		return time.Time{}, false
	}
	return time.Unix(st.Birthtimespec.Unix()), true
}

func volumeName(path string, _ os.FileInfo) string {
	var sfs unix.Statfs_t
	if err := unix.Statfs(path, &sfs); err != nil {
		return ""
	}
	mount := unix.ByteSliceToString(sfs.Mntonname[:])
	if mount == "/" {
		return "Macintosh HD"
	}
	return filepath.Base(mount)
}
