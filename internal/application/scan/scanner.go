// Package scan reconciles the metadata store with what the filesystem
// shows after changes made outside the application.
package scan

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"time"

	"go.uber.org/zap"

	"marginalia/internal/application"
	"marginalia/internal/application/identity"
	"marginalia/internal/domain"
	"marginalia/internal/ports"
)

// Resolver assigns identifiers to scanned paths
type Resolver interface {
	Resolve(path string) (identity.Resolution, error)
}

// Recorder remembers when a root was last scanned
type Recorder interface {
	RecordScan(ctx context.Context, root string, unix int64) error
}

// Scanner walks a directory and brings the indexed entries below it in
// line with the filesystem
type Scanner struct {
	store    ports.MetadataStore
	log      ports.ChangeLog
	files    ports.Filesystem
	resolver Resolver
	evicter  ports.ListingEvicter
	recorder Recorder
	logger   *zap.Logger
	now      func() time.Time
}

// Deps are the collaborators of a Scanner. Evicter and Recorder are optional.
type Deps struct {
	Store    ports.MetadataStore
	Log      ports.ChangeLog
	Files    ports.Filesystem
	Resolver Resolver
	Evicter  ports.ListingEvicter
	Recorder Recorder
	Logger   *zap.Logger
}

// NewScanner creates a scanner
func NewScanner(deps Deps) *Scanner {
	s := &Scanner{
		store:    deps.Store,
		log:      deps.Log,
		files:    deps.Files,
		resolver: deps.Resolver,
		evicter:  deps.Evicter,
		recorder: deps.Recorder,
		logger:   deps.Logger,
		now:      time.Now,
	}
	if s.logger == nil {
		s.logger = zap.NewNop()
	}
	return s
}

// Scan indexes root. New files are inserted, files found at a new path
// are recorded as already-synced moves, changed files are refreshed and
// entries whose file is gone are marked missing. Entries with pending
// changes are left for the reconciliation engine.
func (s *Scanner) Scan(ctx context.Context, root string, recursive bool) (*domain.ScanStats, error) {
	start := s.now()
	if err := domain.ValidateLocation(root); err != nil {
		return nil, &application.ValidationError{Field: "root", Message: err.Error()}
	}
	st, err := s.files.Stat(root)
	if err != nil {
		return nil, fmt.Errorf("scan %s: %w", root, err)
	}
	if !st.IsDir {
		return nil, &application.ValidationError{Field: "root", Message: fmt.Sprintf("%s is not a directory", root)}
	}

	paths, err := s.files.Enumerate(ctx, root, recursive)
	if err != nil {
		return nil, err
	}

	stats := &domain.ScanStats{}
	seen := make(map[domain.ContentID]bool, len(paths))
	dirs := map[string]bool{root: true}

	for _, path := range paths {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		stats.Scanned++
		dirs[filepath.Dir(path)] = true

		id, outcome, err := s.scanPath(ctx, path)
		if id != "" {
			seen[id] = true
		}
		if err != nil {
			s.logger.Warn("skipping path", zap.String("path", path), zap.Error(err))
			stats.Skipped++
			continue
		}
		switch outcome {
		case outcomeAdded:
			stats.Added++
		case outcomeMoved:
			stats.Moved++
		case outcomeUpdated:
			stats.Updated++
		case outcomeSkipped:
			stats.Skipped++
		}
	}

	missing, err := s.markMissing(ctx, root, recursive, seen)
	if err != nil {
		return nil, err
	}
	stats.Missing = missing

	if s.evicter != nil {
		for dir := range dirs {
			s.evicter.Evict(dir)
		}
	}
	if s.recorder != nil {
		if err := s.recorder.RecordScan(ctx, root, s.now().Unix()); err != nil {
			s.logger.Warn("could not record scan time", zap.String("root", root), zap.Error(err))
		}
	}

	stats.Duration = s.now().Sub(start)
	s.logger.Info("scan complete",
		zap.String("root", root),
		zap.Int("scanned", stats.Scanned),
		zap.Int("added", stats.Added),
		zap.Int("moved", stats.Moved),
		zap.Int("updated", stats.Updated),
		zap.Int("missing", stats.Missing),
		zap.Int("skipped", stats.Skipped))
	return stats, nil
}

type outcome int

const (
	outcomeUnchanged outcome = iota
	outcomeAdded
	outcomeMoved
	outcomeUpdated
	outcomeSkipped
)

func (s *Scanner) scanPath(ctx context.Context, path string) (domain.ContentID, outcome, error) {
	st, err := s.files.Stat(path)
	if err != nil {
		return "", outcomeSkipped, err
	}
	res, err := s.resolver.Resolve(path)
	if err != nil {
		return "", outcomeSkipped, err
	}

	location, name := filepath.Dir(path), filepath.Base(path)
	id := res.ID
	if !res.Persisted {
		// a transient identifier changes on every resolve; keep the row
		// already describing this path
		if cur, err := s.store.FindByPath(ctx, location, name); err == nil {
			id = cur.ID
		}
	}

	pending, err := s.log.HasPending(ctx, id)
	if err != nil {
		return id, outcomeSkipped, err
	}
	if pending {
		return id, outcomeSkipped, nil
	}

	kind := domain.KindFolder
	if !st.IsDir {
		if kind, err = s.files.DetectKind(path); err != nil {
			kind = domain.KindOther
		}
	}
	fresh := &domain.IndexedEntry{
		ID:         id,
		Name:       name,
		Location:   location,
		Volume:     st.Volume,
		Kind:       kind,
		Size:       st.Size,
		CreatedAt:  st.CreatedAt,
		ModifiedAt: st.ModifiedAt,
	}

	cur, err := s.store.Get(ctx, id)
	if errors.Is(err, application.ErrNotFound) {
		return id, outcomeAdded, s.insert(ctx, fresh)
	}
	if err != nil {
		return id, outcomeSkipped, err
	}

	result := outcomeUnchanged
	if cur.Location != location || cur.Name != name {
		if _, err := s.store.ObserveMove(ctx, id, location, name); err != nil {
			return id, outcomeSkipped, err
		}
		s.logger.Debug("observed external move",
			zap.String("id", id.Short()), zap.String("from", cur.Path()), zap.String("to", path))
		result = outcomeMoved
	}
	if changed(cur, fresh) {
		if err := s.store.Refresh(ctx, fresh); err != nil {
			return id, outcomeSkipped, err
		}
		if result == outcomeUnchanged {
			result = outcomeUpdated
		}
	}
	return id, result, nil
}

// insert adds a new entry. A present entry still claiming the path has
// lost its file to this one and is marked missing first.
func (s *Scanner) insert(ctx context.Context, e *domain.IndexedEntry) error {
	err := s.store.Insert(ctx, e)
	var conflict *application.ConflictError
	if !errors.As(err, &conflict) {
		return err
	}
	if err := s.store.MarkMissing(ctx, []domain.ContentID{conflict.Holder}, s.now()); err != nil {
		return err
	}
	return s.store.Insert(ctx, e)
}

func changed(cur, fresh *domain.IndexedEntry) bool {
	return !cur.MissingSince.IsZero() ||
		cur.Size != fresh.Size ||
		!cur.ModifiedAt.Equal(fresh.ModifiedAt) ||
		cur.Kind != fresh.Kind ||
		cur.Volume != fresh.Volume
}

// markMissing flags entries under root that were not enumerated and no
// longer exist at their recorded path
func (s *Scanner) markMissing(ctx context.Context, root string, recursive bool, seen map[domain.ContentID]bool) (int, error) {
	entries, err := s.store.EntriesWithin(ctx, root, recursive)
	if err != nil {
		return 0, err
	}
	var gone []domain.ContentID
	for _, e := range entries {
		if seen[e.ID] || !e.MissingSince.IsZero() {
			continue
		}
		exists, err := s.files.Exists(e.Path())
		if err != nil || exists {
			continue
		}
		gone = append(gone, e.ID)
	}
	if err := s.store.MarkMissing(ctx, gone, s.now()); err != nil {
		return 0, err
	}
	return len(gone), nil
}
