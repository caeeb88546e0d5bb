package ports

import "marginalia/internal/domain"

// IdentitySidecar stores identifiers keyed by file key for filesystems
// without extended attribute support
type IdentitySidecar interface {
	Lookup(fileKey string) (domain.ContentID, bool, error)
	Store(fileKey string, id domain.ContentID) error
	Close() error
}

// IdentityPeeker reads a path's identity without minting one
type IdentityPeeker interface {
	Peek(path string) (domain.ContentID, bool)
}
