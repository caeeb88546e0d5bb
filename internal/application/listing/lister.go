package listing

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"marginalia/internal/application/identity"
	"marginalia/internal/domain"
	"marginalia/internal/ports"
)

// Resolver assigns identities to listed paths
type Resolver interface {
	Resolve(path string) (identity.Resolution, error)
}

// EntryIndex is the part of the metadata store the lister consults for
// visibility and known content kinds
type EntryIndex interface {
	EntriesWithin(ctx context.Context, dir string, recursive bool) ([]domain.IndexedEntry, error)
}

// Lister produces directory listings, filling the cache lazily
type Lister struct {
	cache    *Cache
	files    ports.Filesystem
	resolver Resolver
	index    EntryIndex
	logger   *zap.Logger
}

// NewLister creates a lister. index may be nil, in which case nothing is
// treated as hidden and kinds are always detected from content.
func NewLister(cache *Cache, files ports.Filesystem, resolver Resolver, index EntryIndex, logger *zap.Logger) *Lister {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Lister{cache: cache, files: files, resolver: resolver, index: index, logger: logger}
}

// List returns the mapping for key, enumerating the filesystem on a miss.
// A transient identity takes the identifier of the indexed row at its
// path; listings with a transient identity nobody indexed are returned
// but not cached. A listing is only cached if no eviction covering it
// happened while it was being built.
func (l *Lister) List(ctx context.Context, key domain.ListingKey) (domain.Mapping, error) {
	if err := domain.ValidateLocation(key.Directory); err != nil {
		return nil, err
	}
	if m, ok := l.cache.Get(key); ok {
		return m, nil
	}
	gen := l.cache.Generation()

	paths, err := l.files.Enumerate(ctx, key.Directory, key.Mode.Recursive)
	if err != nil {
		return nil, fmt.Errorf("list %s: %w", key.Directory, err)
	}

	known := make(map[domain.ContentID]domain.IndexedEntry)
	byPath := make(map[string]domain.IndexedEntry)
	if l.index != nil {
		entries, err := l.index.EntriesWithin(ctx, key.Directory, key.Mode.Recursive)
		if err != nil {
			return nil, fmt.Errorf("list %s: %w", key.Directory, err)
		}
		for _, e := range entries {
			known[e.ID] = e
			if e.MissingSince.IsZero() {
				byPath[e.Path()] = e
			}
		}
	}

	mapping := make(domain.Mapping, len(paths))
	cacheable := true
	for _, path := range paths {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		res, err := l.resolver.Resolve(path)
		if err != nil {
			// vanished between enumeration and resolution
			l.logger.Debug("skipping unresolvable path", zap.String("path", path), zap.Error(err))
			continue
		}
		id := res.ID
		if !res.Persisted {
			if row, ok := byPath[path]; ok {
				id = row.ID
			} else {
				cacheable = false
			}
		}

		entry, isKnown := known[id]
		if isKnown && !key.Mode.IncludeHidden && entry.Visibility == domain.VisibilityHidden {
			continue
		}

		if key.Filter != domain.KindAny {
			kind := entry.Kind
			if !isKnown || kind == domain.KindAny {
				kind, err = l.files.DetectKind(path)
				if err != nil {
					l.logger.Debug("skipping unclassifiable path", zap.String("path", path), zap.Error(err))
					continue
				}
			}
			if !key.Filter.Matches(kind) {
				continue
			}
		}

		mapping[domain.ContentPointer{ID: id, Path: path}] = domain.FileURL(path)
	}

	if cacheable && !l.cache.PutAt(key, mapping, gen) {
		l.logger.Debug("dropping listing built across an eviction", zap.String("dir", key.Directory))
	}
	return mapping, nil
}

// Evict forwards to the cache
func (l *Lister) Evict(dir string) {
	l.cache.Evict(dir)
}

// EvictTree forwards to the cache
func (l *Lister) EvictTree(dir string) {
	l.cache.EvictTree(dir)
}
