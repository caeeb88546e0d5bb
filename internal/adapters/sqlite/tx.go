package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"marginalia/internal/application"
	"marginalia/internal/domain"
)

// querier is satisfied by both *sql.DB and *sql.Tx
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// writeTx is one serialized write transaction. stamp is the monotonic
// write time shared by every row the transaction touches.
type writeTx struct {
	tx    *sql.Tx
	stamp int64
}

// write runs fn in a transaction on the single writer connection.
// Nothing fn did is visible to readers unless it returns nil and the
// commit succeeds.
func (s *Store) write(ctx context.Context, fn func(w *writeTx) error) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	stamp := s.now().UnixNano()
	if stamp <= s.lastStamp {
		stamp = s.lastStamp + 1
	}

	tx, err := s.writer.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin write: %w", err)
	}
	if err := fn(&writeTx{tx: tx, stamp: stamp}); err != nil {
		tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit write: %w", err)
	}
	s.lastStamp = stamp
	return nil
}

// appendChange records one path mutation. It must run in the same
// transaction as the entry update it describes.
func (w *writeTx) appendChange(ctx context.Context, id domain.ContentID, col domain.Column, oldValue, newValue string, origin domain.Origin) (domain.ChangeLogEntry, error) {
	status := origin.InitialStatus()
	res, err := w.tx.ExecContext(ctx, `
		INSERT INTO change_log (content_id, column_name, old_value, new_value, changed_at, status, origin)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, id.String(), string(col), oldValue, newValue, w.stamp, string(status), string(origin))
	if err != nil {
		return domain.ChangeLogEntry{}, fmt.Errorf("record %s change for %s: %w", col, id.Short(), err)
	}
	seq, err := res.LastInsertId()
	if err != nil {
		return domain.ChangeLogEntry{}, fmt.Errorf("record %s change for %s: %w", col, id.Short(), err)
	}
	return domain.ChangeLogEntry{
		Seq:       seq,
		ContentID: id,
		Column:    col,
		OldValue:  oldValue,
		NewValue:  newValue,
		ChangedAt: time.Unix(0, w.stamp),
		Status:    status,
		Origin:    origin,
	}, nil
}

// checkPathFree fails with a ConflictError when another present entry
// already claims location/name. Entries marked missing do not hold a path.
func (w *writeTx) checkPathFree(ctx context.Context, id domain.ContentID, location, name string) error {
	var holder string
	err := w.tx.QueryRowContext(ctx, `
		SELECT content_id FROM entries
		WHERE location = ? AND name = ? AND content_id <> ? AND missing_since = 0
		LIMIT 1
	`, location, name, id.String()).Scan(&holder)
	if errors.Is(err, sql.ErrNoRows) {
		return nil
	}
	if err != nil {
		return err
	}
	return &application.ConflictError{
		Path:     joinPath(location, name),
		Holder:   domain.ContentID(holder),
		Incoming: id,
	}
}

// touch bumps written_at without changing anything else
func (w *writeTx) touch(ctx context.Context, id domain.ContentID) error {
	_, err := w.tx.ExecContext(ctx, `UPDATE entries SET written_at = ? WHERE content_id = ?`, w.stamp, id.String())
	return err
}

func nanos(t time.Time) int64 {
	if t.IsZero() {
		return 0
	}
	return t.UnixNano()
}

func fromNanos(n int64) time.Time {
	if n == 0 {
		return time.Time{}
	}
	return time.Unix(0, n)
}
