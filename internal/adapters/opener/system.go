package opener

import (
	"fmt"
	"os/exec"
	"path/filepath"
	"runtime"

	"marginalia/internal/domain"
	"marginalia/internal/ports"
)

// System opens files with the desktop's default application for their type
type System struct {
	goos string
	run  func(*exec.Cmd) error
}

// Ensure System implements Opener
var _ ports.Opener = (*System)(nil)

// NewSystem creates an opener for the running operating system
func NewSystem() *System {
	return &System{goos: runtime.GOOS, run: (*exec.Cmd).Run}
}

// OpenFile opens path through its file:// URL
func (o *System) OpenFile(path string) error {
	cmd, err := o.Command(path)
	if err != nil {
		return err
	}
	return o.run(cmd)
}

// Command returns the launcher invocation for path
func (o *System) Command(path string) (*exec.Cmd, error) {
	if !filepath.IsAbs(path) {
		return nil, fmt.Errorf("path is not absolute: %s", path)
	}
	uri := domain.FileURL(path)

	switch o.goos {
	case "darwin":
		return exec.Command("open", uri), nil
	case "linux", "freebsd", "openbsd", "netbsd":
		return exec.Command("xdg-open", uri), nil
	case "windows":
		return exec.Command("cmd", "/c", "start", "", uri), nil
	default:
		return nil, fmt.Errorf("unsupported operating system: %s", o.goos)
	}
}
