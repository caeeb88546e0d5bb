// Package identity assigns and recovers stable content identifiers.
package identity

import (
	"errors"
	"fmt"
	"io/fs"
	"sync"

	"go.uber.org/zap"

	"marginalia/internal/domain"
	"marginalia/internal/ports"
)

// DefaultAttribute is the extended attribute holding a file's identifier
const DefaultAttribute = "user.marginalia.content-id"

// Resolution is the outcome of resolving one path
type Resolution struct {
	ID domain.ContentID
	// Persisted is false for a transient identifier that could not be
	// stored anywhere and will differ on the next resolve
	Persisted bool
	// Recovered is true when the identifier existed before this call
	Recovered bool
}

// Resolver mints and recovers identifiers. The extended attribute is
// authoritative; the sidecar is consulted only when attributes are
// unsupported or absent.
type Resolver struct {
	files     ports.Filesystem
	sidecar   ports.IdentitySidecar
	attribute string
	logger    *zap.Logger

	// serializes minting so two concurrent resolves of a new file agree
	mintMu sync.Mutex
}

// Ensure Resolver implements IdentityPeeker
var _ ports.IdentityPeeker = (*Resolver)(nil)

// Option configures a Resolver
type Option func(*Resolver)

// WithSidecar enables the file-key fallback index
func WithSidecar(s ports.IdentitySidecar) Option {
	return func(r *Resolver) { r.sidecar = s }
}

// WithAttribute overrides the attribute name
func WithAttribute(name string) Option {
	return func(r *Resolver) {
		if name != "" {
			r.attribute = name
		}
	}
}

// WithLogger sets the logger for identity write warnings
func WithLogger(l *zap.Logger) Option {
	return func(r *Resolver) { r.logger = l }
}

// NewResolver creates a resolver over files
func NewResolver(files ports.Filesystem, opts ...Option) *Resolver {
	r := &Resolver{
		files:     files,
		attribute: DefaultAttribute,
		logger:    zap.NewNop(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Resolve returns the identifier of path, minting one if it has none.
// Failing to store a new identifier is not an error: the caller gets a
// transient identifier and a warning is logged. Only a missing or
// unreadable path is an error.
func (r *Resolver) Resolve(path string) (Resolution, error) {
	exists, err := r.files.Exists(path)
	if err != nil {
		return Resolution{}, fmt.Errorf("resolve %s: %w", path, err)
	}
	if !exists {
		return Resolution{}, fmt.Errorf("resolve %s: %w", path, fs.ErrNotExist)
	}

	if id, ok := r.Peek(path); ok {
		return Resolution{ID: id, Persisted: true, Recovered: true}, nil
	}

	r.mintMu.Lock()
	defer r.mintMu.Unlock()

	// another resolve may have minted while we waited
	if id, ok := r.Peek(path); ok {
		return Resolution{ID: id, Persisted: true, Recovered: true}, nil
	}

	id := domain.NewContentID()
	if r.persist(path, id) {
		return Resolution{ID: id, Persisted: true}, nil
	}
	return Resolution{ID: id}, nil
}

// Peek reads the identifier of path without minting
func (r *Resolver) Peek(path string) (domain.ContentID, bool) {
	raw, ok, err := r.files.ReadAttribute(path, r.attribute)
	switch {
	case err == nil && ok:
		id, perr := domain.ParseContentID(raw)
		if perr == nil {
			return id, true
		}
		r.logger.Warn("ignoring malformed identity attribute",
			zap.String("path", path), zap.String("value", raw))
	case err != nil && !errors.Is(err, ports.ErrAttributeUnsupported):
		r.logger.Debug("identity attribute unreadable", zap.String("path", path), zap.Error(err))
	}

	return r.lookupSidecar(path)
}

func (r *Resolver) lookupSidecar(path string) (domain.ContentID, bool) {
	if r.sidecar == nil {
		return "", false
	}
	key, err := r.files.FileKey(path)
	if err != nil {
		return "", false
	}
	id, ok, err := r.sidecar.Lookup(key)
	if err != nil {
		r.logger.Warn("identity sidecar lookup failed", zap.String("path", path), zap.Error(err))
		return "", false
	}
	return id, ok
}

// persist stores id on the file, falling back to the sidecar when the
// filesystem refuses attributes
func (r *Resolver) persist(path string, id domain.ContentID) bool {
	err := r.files.WriteAttribute(path, r.attribute, id.String())
	if err == nil {
		return true
	}
	if !errors.Is(err, ports.ErrAttributeUnsupported) || r.sidecar == nil {
		r.logger.Warn("could not persist content identity, using transient identifier",
			zap.String("path", path), zap.String("id", id.String()), zap.Error(err))
		return false
	}

	key, kerr := r.files.FileKey(path)
	if kerr == nil {
		kerr = r.sidecar.Store(key, id)
	}
	if kerr != nil {
		r.logger.Warn("could not persist content identity in sidecar, using transient identifier",
			zap.String("path", path), zap.String("id", id.String()), zap.Error(kerr))
		return false
	}
	return true
}
