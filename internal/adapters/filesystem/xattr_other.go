//go:build !linux && !darwin

package filesystem

import (
	"fmt"

	"marginalia/internal/ports"
)

// ReadAttribute always reports unsupported; identities go to the sidecar
func (a *Adapter) ReadAttribute(path, key string) (string, bool, error) {
	return "", false, fmt.Errorf("getxattr %s: %w", path, ports.ErrAttributeUnsupported)
}

// WriteAttribute always reports unsupported
func (a *Adapter) WriteAttribute(path, key, value string) error {
	return fmt.Errorf("setxattr %s: %w", path, ports.ErrAttributeUnsupported)
}
