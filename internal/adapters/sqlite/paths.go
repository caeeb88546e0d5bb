package sqlite

import (
	"context"
	"fmt"
	"strings"

	"marginalia/internal/application"
	"marginalia/internal/domain"
)

// UpdateName renames an entry in the index. The change log entry is written
// in the same transaction. Setting the current name is a no-op that returns
// a nil entry and writes nothing.
func (s *Store) UpdateName(ctx context.Context, id domain.ContentID, newName string, origin domain.Origin) (*domain.ChangeLogEntry, error) {
	if err := domain.ValidateFileName(newName); err != nil {
		return nil, fmt.Errorf("%w: %v", application.ErrInvalidName, err)
	}

	var change *domain.ChangeLogEntry
	err := s.write(ctx, func(w *writeTx) error {
		cur, err := getEntry(ctx, w.tx, id)
		if err != nil {
			return err
		}
		if cur.Name == newName {
			return nil
		}
		if err := w.checkPathFree(ctx, id, cur.Location, newName); err != nil {
			return err
		}
		if _, err := w.tx.ExecContext(ctx, `UPDATE entries SET name = ?, written_at = ? WHERE content_id = ?`,
			newName, w.stamp, id.String()); err != nil {
			return fmt.Errorf("rename %s: %w", id.Short(), err)
		}
		c, err := w.appendChange(ctx, id, domain.ColumnName, cur.Name, newName, origin)
		if err != nil {
			return err
		}
		change = &c
		return nil
	})
	if err != nil {
		return nil, err
	}
	return change, nil
}

// UpdateLocation moves every entry in ids to newLocation as one transaction.
// Entries already there are skipped; a conflict on any entry aborts the batch.
func (s *Store) UpdateLocation(ctx context.Context, ids []domain.ContentID, newLocation string, origin domain.Origin) ([]domain.ChangeLogEntry, error) {
	if len(ids) == 0 {
		return nil, application.ErrEmptyBatch
	}
	if err := domain.ValidateLocation(newLocation); err != nil {
		return nil, fmt.Errorf("%w: %v", application.ErrInvalidName, err)
	}

	var changes []domain.ChangeLogEntry
	err := s.write(ctx, func(w *writeTx) error {
		for _, id := range ids {
			cur, err := getEntry(ctx, w.tx, id)
			if err != nil {
				return err
			}
			if cur.Location == newLocation {
				continue
			}
			if cur.IsFolder() && domain.IsWithin(newLocation, cur.Path()) {
				return fmt.Errorf("%w: cannot move folder %s into itself", application.ErrInvalidName, cur.Path())
			}
			if err := w.checkPathFree(ctx, id, newLocation, cur.Name); err != nil {
				return err
			}
			if _, err := w.tx.ExecContext(ctx, `UPDATE entries SET location = ?, written_at = ? WHERE content_id = ?`,
				newLocation, w.stamp, id.String()); err != nil {
				return fmt.Errorf("relocate %s: %w", id.Short(), err)
			}
			c, err := w.appendChange(ctx, id, domain.ColumnLocation, cur.Location, newLocation, origin)
			if err != nil {
				return err
			}
			changes = append(changes, c)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return changes, nil
}

// ObserveMove records that the filesystem shows id at location/name.
// The resulting changes are logged as already synced. Another entry still
// claiming the same path is stale and is marked missing.
func (s *Store) ObserveMove(ctx context.Context, id domain.ContentID, location, name string) ([]domain.ChangeLogEntry, error) {
	var changes []domain.ChangeLogEntry
	err := s.write(ctx, func(w *writeTx) error {
		cur, err := getEntry(ctx, w.tx, id)
		if err != nil {
			return err
		}
		if cur.Location == location && cur.Name == name {
			return nil
		}
		if _, err := w.tx.ExecContext(ctx, `
			UPDATE entries SET missing_since = ?, written_at = ?
			WHERE location = ? AND name = ? AND content_id <> ? AND missing_since = 0
		`, w.stamp, w.stamp, location, name, id.String()); err != nil {
			return fmt.Errorf("displace stale entry at %s: %w", joinPath(location, name), err)
		}
		if _, err := w.tx.ExecContext(ctx, `
			UPDATE entries SET location = ?, name = ?, missing_since = 0, written_at = ?
			WHERE content_id = ?
		`, location, name, w.stamp, id.String()); err != nil {
			return fmt.Errorf("observe move of %s: %w", id.Short(), err)
		}
		if cur.Name != name {
			c, err := w.appendChange(ctx, id, domain.ColumnName, cur.Name, name, domain.OriginScan)
			if err != nil {
				return err
			}
			changes = append(changes, c)
		}
		if cur.Location != location {
			c, err := w.appendChange(ctx, id, domain.ColumnLocation, cur.Location, location, domain.OriginScan)
			if err != nil {
				return err
			}
			changes = append(changes, c)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return changes, nil
}

// RebaseLocation rewrites the location of every entry at or below oldPrefix
// after a folder moved on disk. The children's own files moved with the
// folder, so their changes are logged as synced cascade entries.
func (s *Store) RebaseLocation(ctx context.Context, oldPrefix, newPrefix string) (int, error) {
	if oldPrefix == newPrefix {
		return 0, nil
	}
	var n int
	err := s.write(ctx, func(w *writeTx) error {
		clause, args := locationClause("location", oldPrefix, true)
		rows, err := w.tx.QueryContext(ctx, `SELECT content_id, location FROM entries WHERE `+clause, args...)
		if err != nil {
			return err
		}
		type move struct {
			id       domain.ContentID
			from, to string
		}
		var moves []move
		for rows.Next() {
			var id, loc string
			if err := rows.Scan(&id, &loc); err != nil {
				rows.Close()
				return err
			}
			moves = append(moves, move{
				id:   domain.ContentID(id),
				from: loc,
				to:   newPrefix + strings.TrimPrefix(loc, oldPrefix),
			})
		}
		rows.Close()
		if err := rows.Err(); err != nil {
			return err
		}

		for _, m := range moves {
			if _, err := w.tx.ExecContext(ctx, `UPDATE entries SET location = ?, written_at = ? WHERE content_id = ?`,
				m.to, w.stamp, m.id.String()); err != nil {
				return fmt.Errorf("rebase %s: %w", m.id.Short(), err)
			}
			if _, err := w.appendChange(ctx, m.id, domain.ColumnLocation, m.from, m.to, domain.OriginCascade); err != nil {
				return err
			}
		}
		n = len(moves)
		return nil
	})
	return n, err
}
