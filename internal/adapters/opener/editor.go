// Package opener hands indexed files to the user's editor or to the
// desktop's default application.
package opener

import (
	"fmt"
	"os"
	"os/exec"

	"marginalia/internal/ports"
)

// Editor opens files in the user's preferred editor
type Editor struct {
	lookPath func(string) (string, error)
}

// Ensure Editor implements Opener
var _ ports.Opener = (*Editor)(nil)

// NewEditor creates a new editor opener
func NewEditor() *Editor {
	return &Editor{lookPath: exec.LookPath}
}

// OpenFile opens a file in the editor and waits for it to exit
func (o *Editor) OpenFile(path string) error {
	cmd, err := o.Command(path)
	if err != nil {
		return err
	}
	return cmd.Run()
}

// Command returns an exec.Cmd for opening a file in the editor
func (o *Editor) Command(path string) (*exec.Cmd, error) {
	editor := o.findEditor()
	if editor == "" {
		return nil, fmt.Errorf("no editor found: set $EDITOR environment variable")
	}

	cmd := exec.Command(editor, path)
	cmd.Stdin = os.Stdin
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr

	return cmd, nil
}

// findEditor returns the editor to use
func (o *Editor) findEditor() string {
	if editor := os.Getenv("EDITOR"); editor != "" {
		return editor
	}
	if visual := os.Getenv("VISUAL"); visual != "" {
		return visual
	}

	for _, editor := range []string{"nvim", "vim", "vi", "nano", "code"} {
		if path, err := o.lookPath(editor); err == nil {
			return path
		}
	}
	return ""
}
