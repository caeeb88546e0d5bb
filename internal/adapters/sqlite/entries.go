package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"marginalia/internal/application"
	"marginalia/internal/domain"
)

const entryColumns = `content_id, name, location, volume, kind, size, created_at, modified_at, comment, visibility, written_at, missing_since`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanEntry(r rowScanner, extra ...any) (*domain.IndexedEntry, error) {
	var (
		e                          domain.IndexedEntry
		id, kind                   string
		created, modified, missing int64
		visibility                 int
	)
	dest := []any{&id, &e.Name, &e.Location, &e.Volume, &kind, &e.Size, &created, &modified, &e.Comment, &visibility, &e.WrittenAt, &missing}
	dest = append(dest, extra...)
	if err := r.Scan(dest...); err != nil {
		return nil, err
	}
	e.ID = domain.ContentID(id)
	e.Kind = domain.ContentKind(kind)
	e.CreatedAt = fromNanos(created)
	e.ModifiedAt = fromNanos(modified)
	e.MissingSince = fromNanos(missing)
	e.Visibility = domain.Visibility(visibility)
	return &e, nil
}

func getEntry(ctx context.Context, q querier, id domain.ContentID) (*domain.IndexedEntry, error) {
	e, err := scanEntry(q.QueryRowContext(ctx, `SELECT `+entryColumns+` FROM entries WHERE content_id = ?`, id.String()))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("entry %s: %w", id.Short(), application.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get entry %s: %w", id.Short(), err)
	}
	return e, nil
}

// Get returns the entry for id or ErrNotFound
func (s *Store) Get(ctx context.Context, id domain.ContentID) (*domain.IndexedEntry, error) {
	return getEntry(ctx, s.reader, id)
}

// FindByPath returns the entry last known at location/name
func (s *Store) FindByPath(ctx context.Context, location, name string) (*domain.IndexedEntry, error) {
	e, err := scanEntry(s.reader.QueryRowContext(ctx, `
		SELECT `+entryColumns+` FROM entries
		WHERE location = ? AND name = ?
		ORDER BY missing_since = 0 DESC, written_at DESC
		LIMIT 1
	`, location, name))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%s: %w", joinPath(location, name), application.ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	return e, nil
}

// Locations returns every distinct directory holding at least one entry
func (s *Store) Locations(ctx context.Context) ([]string, error) {
	rows, err := s.reader.QueryContext(ctx, `SELECT DISTINCT location FROM entries ORDER BY location`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var locs []string
	for rows.Next() {
		var loc string
		if err := rows.Scan(&loc); err != nil {
			return nil, err
		}
		locs = append(locs, loc)
	}
	return locs, rows.Err()
}

// Pointers returns a content pointer for every entry
func (s *Store) Pointers(ctx context.Context) ([]domain.ContentPointer, error) {
	rows, err := s.reader.QueryContext(ctx, `SELECT content_id, location, name FROM entries ORDER BY location, name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ptrs []domain.ContentPointer
	for rows.Next() {
		var id, loc, name string
		if err := rows.Scan(&id, &loc, &name); err != nil {
			return nil, err
		}
		ptrs = append(ptrs, domain.ContentPointer{ID: domain.ContentID(id), Path: joinPath(loc, name)})
	}
	return ptrs, rows.Err()
}

// EntriesWithin returns the entries located directly in dir, or anywhere
// below it when recursive is set
func (s *Store) EntriesWithin(ctx context.Context, dir string, recursive bool) ([]domain.IndexedEntry, error) {
	clause, args := locationClause("location", dir, recursive)
	rows, err := s.reader.QueryContext(ctx, `SELECT `+entryColumns+` FROM entries WHERE `+clause+` ORDER BY location, name`, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.IndexedEntry
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *e)
	}
	return out, rows.Err()
}

// Insert adds a newly discovered entry. Discovery is not a rename and
// writes no change log entry.
func (s *Store) Insert(ctx context.Context, e *domain.IndexedEntry) error {
	if err := domain.ValidateFileName(e.Name); err != nil {
		return fmt.Errorf("%w: %v", application.ErrInvalidName, err)
	}
	return s.write(ctx, func(w *writeTx) error {
		if err := w.checkPathFree(ctx, e.ID, e.Location, e.Name); err != nil {
			return err
		}
		kind := e.Kind
		if kind == domain.KindAny {
			kind = domain.KindOther
		}
		_, err := w.tx.ExecContext(ctx, `
			INSERT INTO entries (`+entryColumns+`)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		`, e.ID.String(), e.Name, e.Location, e.Volume, string(kind), e.Size,
			nanos(e.CreatedAt), nanos(e.ModifiedAt), e.Comment, int(e.Visibility), w.stamp, nanos(e.MissingSince))
		if err != nil {
			return fmt.Errorf("insert entry %s: %w", e.ID.Short(), err)
		}
		e.Kind = kind
		e.WrittenAt = w.stamp
		return nil
	})
}

// Refresh updates the filesystem-derived attributes of an entry and clears
// its missing mark. Name and location are left alone.
func (s *Store) Refresh(ctx context.Context, e *domain.IndexedEntry) error {
	return s.write(ctx, func(w *writeTx) error {
		res, err := w.tx.ExecContext(ctx, `
			UPDATE entries
			SET volume = ?, kind = ?, size = ?, created_at = ?, modified_at = ?, missing_since = 0, written_at = ?
			WHERE content_id = ?
		`, e.Volume, string(e.Kind), e.Size, nanos(e.CreatedAt), nanos(e.ModifiedAt), w.stamp, e.ID.String())
		if err != nil {
			return fmt.Errorf("refresh entry %s: %w", e.ID.Short(), err)
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return fmt.Errorf("entry %s: %w", e.ID.Short(), application.ErrNotFound)
		}
		e.WrittenAt = w.stamp
		e.MissingSince = time.Time{}
		return nil
	})
}

// MarkMissing flags entries whose files were not found. Entries already
// marked keep their original timestamp.
func (s *Store) MarkMissing(ctx context.Context, ids []domain.ContentID, since time.Time) error {
	if len(ids) == 0 {
		return nil
	}
	return s.write(ctx, func(w *writeTx) error {
		for _, id := range ids {
			if _, err := w.tx.ExecContext(ctx, `
				UPDATE entries SET missing_since = ?, written_at = ?
				WHERE content_id = ? AND missing_since = 0
			`, nanos(since), w.stamp, id.String()); err != nil {
				return fmt.Errorf("mark %s missing: %w", id.Short(), err)
			}
		}
		return nil
	})
}

// UpdateVisibility sets the visibility flag on every entry in ids
func (s *Store) UpdateVisibility(ctx context.Context, ids []domain.ContentID, v domain.Visibility) error {
	if len(ids) == 0 {
		return application.ErrEmptyBatch
	}
	return s.write(ctx, func(w *writeTx) error {
		for _, id := range ids {
			res, err := w.tx.ExecContext(ctx, `UPDATE entries SET visibility = ?, written_at = ? WHERE content_id = ?`, int(v), w.stamp, id.String())
			if err != nil {
				return fmt.Errorf("set visibility of %s: %w", id.Short(), err)
			}
			if n, _ := res.RowsAffected(); n == 0 {
				return fmt.Errorf("entry %s: %w", id.Short(), application.ErrNotFound)
			}
		}
		return nil
	})
}

// UpdateComment replaces an entry's free-text comment
func (s *Store) UpdateComment(ctx context.Context, id domain.ContentID, comment string) error {
	return s.write(ctx, func(w *writeTx) error {
		res, err := w.tx.ExecContext(ctx, `UPDATE entries SET comment = ?, written_at = ? WHERE content_id = ?`, comment, w.stamp, id.String())
		if err != nil {
			return fmt.Errorf("set comment of %s: %w", id.Short(), err)
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return fmt.Errorf("entry %s: %w", id.Short(), application.ErrNotFound)
		}
		return nil
	})
}

// Forget removes entries together with their tags, queue memberships and
// change history. The files themselves are untouched.
func (s *Store) Forget(ctx context.Context, ids []domain.ContentID) error {
	if len(ids) == 0 {
		return application.ErrEmptyBatch
	}
	return s.write(ctx, func(w *writeTx) error {
		for _, id := range ids {
			res, err := w.tx.ExecContext(ctx, `DELETE FROM entries WHERE content_id = ?`, id.String())
			if err != nil {
				return fmt.Errorf("forget %s: %w", id.Short(), err)
			}
			if n, _ := res.RowsAffected(); n == 0 {
				return fmt.Errorf("entry %s: %w", id.Short(), application.ErrNotFound)
			}
			for _, table := range []string{"tags", "queue_members", "change_log"} {
				if _, err := w.tx.ExecContext(ctx, `DELETE FROM `+table+` WHERE content_id = ?`, id.String()); err != nil {
					return fmt.Errorf("forget %s: %s: %w", id.Short(), table, err)
				}
			}
		}
		return nil
	})
}

// locationClause matches col against dir, optionally including every
// directory below it. The range form keeps the comparison on the index
// and avoids LIKE escaping of path characters.
func locationClause(col, dir string, recursive bool) (string, []any) {
	if !recursive {
		return col + ` = ?`, []any{dir}
	}
	if dir == string(filepath.Separator) {
		return col + ` >= ?`, []any{dir}
	}
	prefix := strings.TrimSuffix(dir, string(filepath.Separator))
	// '0' sorts directly after '/'
	return `(` + col + ` = ? OR (` + col + ` >= ? AND ` + col + ` < ?))`, []any{prefix, prefix + "/", prefix + "0"}
}

func joinPath(location, name string) string {
	return filepath.Join(location, name)
}
