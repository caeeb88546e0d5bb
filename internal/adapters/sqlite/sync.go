package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"marginalia/internal/domain"
)

// Stats counts entries, tags and change log backlog in one read
func (s *Store) Stats(ctx context.Context) (*domain.IndexStats, error) {
	stats := &domain.IndexStats{}
	err := s.reader.QueryRowContext(ctx, `
		SELECT
			COUNT(*),
			COALESCE(SUM(kind = ?), 0),
			COALESCE(SUM(missing_since <> 0), 0),
			COALESCE(SUM(visibility = ?), 0),
			COUNT(DISTINCT location),
			(SELECT COUNT(DISTINCT tag) FROM tags),
			(SELECT COUNT(*) FROM change_log WHERE status = ?),
			(SELECT COUNT(*) FROM change_log WHERE status = ?)
		FROM entries
	`, string(domain.KindFolder), int(domain.VisibilityHidden),
		string(domain.StatusPending), string(domain.StatusFailed),
	).Scan(&stats.Entries, &stats.Folders, &stats.Missing, &stats.Hidden,
		&stats.Locations, &stats.Tags, &stats.Pending, &stats.Failed)
	if err != nil {
		return nil, fmt.Errorf("read index stats: %w", err)
	}
	return stats, nil
}

// LastScan returns the unix time of the last completed scan of root, or 0
func (s *Store) LastScan(ctx context.Context, root string) (int64, error) {
	var v int64
	err := s.reader.QueryRowContext(ctx, `
		SELECT CAST(value AS INTEGER) FROM meta WHERE key = ?
	`, "last_scan:"+root).Scan(&v)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, nil
	}
	return v, err
}

// RecordScan stores the completion time of a scan of root
func (s *Store) RecordScan(ctx context.Context, root string, unix int64) error {
	return s.write(ctx, func(w *writeTx) error {
		_, err := w.tx.ExecContext(ctx, `INSERT OR REPLACE INTO meta (key, value) VALUES (?, ?)`,
			"last_scan:"+root, fmt.Sprint(unix))
		return err
	})
}
