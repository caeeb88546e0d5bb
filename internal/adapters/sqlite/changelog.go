package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"marginalia/internal/application"
	"marginalia/internal/domain"
)

const changeColumns = `c.seq, c.content_id, c.column_name, c.old_value, c.new_value, c.changed_at, c.status, c.origin, c.detail`

func scanChange(r rowScanner) (domain.ChangeLogEntry, error) {
	var (
		e                   domain.ChangeLogEntry
		id, col, st, origin string
		changed             int64
	)
	if err := r.Scan(&e.Seq, &id, &col, &e.OldValue, &e.NewValue, &changed, &st, &origin, &e.Detail); err != nil {
		return e, err
	}
	var err error
	if e.Column, err = domain.ParseColumn(col); err != nil {
		return e, err
	}
	if e.Status, err = domain.ParseSyncStatus(st); err != nil {
		return e, err
	}
	e.ContentID = domain.ContentID(id)
	e.Origin = domain.Origin(origin)
	e.ChangedAt = time.Unix(0, changed)
	return e, nil
}

func (s *Store) queryChanges(ctx context.Context, query string, args ...any) ([]domain.ChangeLogEntry, error) {
	rows, err := s.reader.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.ChangeLogEntry
	for rows.Next() {
		e, err := scanChange(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// changesByStatus lists changes in seq order joined to their entry's kind.
// KindAny selects every non-folder entry.
func (s *Store) changesByStatus(ctx context.Context, status domain.SyncStatus, kind domain.ContentKind, f domain.LogFilter) ([]domain.ChangeLogEntry, error) {
	where := []string{"c.status = ?"}
	args := []any{string(status)}

	if kind == domain.KindAny {
		where = append(where, "e.kind <> ?")
		args = append(args, string(domain.KindFolder))
	} else {
		where = append(where, "e.kind = ?")
		args = append(args, string(kind))
	}
	if !f.Since.IsZero() {
		where = append(where, "c.changed_at >= ?")
		args = append(args, f.Since.UnixNano())
	}

	query := `SELECT ` + changeColumns + `
		FROM change_log c JOIN entries e ON e.content_id = c.content_id
		WHERE ` + strings.Join(where, " AND ") + `
		ORDER BY c.seq`
	if f.Limit > 0 {
		query += ` LIMIT ?`
		args = append(args, f.Limit)
	}
	return s.queryChanges(ctx, query, args...)
}

// PendingItems lists pending changes to non-folder entries, oldest first.
// kind narrows the result to one content kind.
func (s *Store) PendingItems(ctx context.Context, kind domain.ContentKind, f domain.LogFilter) ([]domain.ChangeLogEntry, error) {
	return s.changesByStatus(ctx, domain.StatusPending, kind, f)
}

// FailedItems lists failed changes, oldest first
func (s *Store) FailedItems(ctx context.Context, kind domain.ContentKind, f domain.LogFilter) ([]domain.ChangeLogEntry, error) {
	return s.changesByStatus(ctx, domain.StatusFailed, kind, f)
}

// PendingFolders lists pending changes to folder entries, oldest first
func (s *Store) PendingFolders(ctx context.Context, f domain.LogFilter) ([]domain.ChangeLogEntry, error) {
	return s.changesByStatus(ctx, domain.StatusPending, domain.KindFolder, f)
}

// Entry returns one change by sequence number
func (s *Store) Entry(ctx context.Context, seq int64) (*domain.ChangeLogEntry, error) {
	e, err := scanChange(s.reader.QueryRowContext(ctx, `SELECT `+changeColumns+` FROM change_log c WHERE c.seq = ?`, seq))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("change #%d: %w", seq, application.ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	return &e, nil
}

// History returns every change recorded for id, oldest first
func (s *Store) History(ctx context.Context, id domain.ContentID) ([]domain.ChangeLogEntry, error) {
	return s.queryChanges(ctx, `SELECT `+changeColumns+` FROM change_log c WHERE c.content_id = ? ORDER BY c.seq`, id.String())
}

// HasPending reports whether id has any change not yet reconciled
func (s *Store) HasPending(ctx context.Context, id domain.ContentID) (bool, error) {
	var exists bool
	err := s.reader.QueryRowContext(ctx,
		`SELECT EXISTS (SELECT 1 FROM change_log WHERE content_id = ? AND status = ?)`,
		id.String(), string(domain.StatusPending)).Scan(&exists)
	return exists, err
}

// ComponentAsOf returns the value column held for id when change seq was
// written: the old value of the next later change to that column, or the
// entry's current value when there is none.
func (s *Store) ComponentAsOf(ctx context.Context, id domain.ContentID, column domain.Column, seq int64) (string, error) {
	var v string
	err := s.reader.QueryRowContext(ctx, `
		SELECT old_value FROM change_log
		WHERE content_id = ? AND column_name = ? AND seq > ?
		ORDER BY seq
		LIMIT 1
	`, id.String(), string(column), seq).Scan(&v)
	if err == nil {
		return v, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return "", err
	}

	e, err := getEntry(ctx, s.reader, id)
	if err != nil {
		return "", err
	}
	return e.Component(column), nil
}

// MarkSynced moves a pending change to synced
func (s *Store) MarkSynced(ctx context.Context, seq int64) error {
	return s.transition(ctx, seq, domain.StatusSynced, "")
}

// MarkFailed moves a pending change to failed, recording why
func (s *Store) MarkFailed(ctx context.Context, seq int64, detail string) error {
	return s.transition(ctx, seq, domain.StatusFailed, detail)
}

func (s *Store) transition(ctx context.Context, seq int64, to domain.SyncStatus, detail string) error {
	return s.write(ctx, func(w *writeTx) error {
		res, err := w.tx.ExecContext(ctx, `
			UPDATE change_log SET status = ?, detail = ?
			WHERE seq = ? AND status = ?
		`, string(to), detail, seq, string(domain.StatusPending))
		if err != nil {
			return fmt.Errorf("mark change #%d %s: %w", seq, to, err)
		}
		if n, _ := res.RowsAffected(); n > 0 {
			return nil
		}

		var exists bool
		if err := w.tx.QueryRowContext(ctx, `SELECT EXISTS (SELECT 1 FROM change_log WHERE seq = ?)`, seq).Scan(&exists); err != nil {
			return err
		}
		if !exists {
			return fmt.Errorf("change #%d: %w", seq, application.ErrNotFound)
		}
		return fmt.Errorf("change #%d: %w", seq, application.ErrNotPending)
	})
}

// Prune deletes settled changes older than olderThan. Pending changes are
// never pruned.
func (s *Store) Prune(ctx context.Context, olderThan time.Time) (int64, error) {
	var n int64
	err := s.write(ctx, func(w *writeTx) error {
		res, err := w.tx.ExecContext(ctx, `
			DELETE FROM change_log
			WHERE status IN (?, ?) AND changed_at < ?
		`, string(domain.StatusSynced), string(domain.StatusFailed), olderThan.UnixNano())
		if err != nil {
			return fmt.Errorf("prune change log: %w", err)
		}
		n, err = res.RowsAffected()
		return err
	})
	return n, err
}
