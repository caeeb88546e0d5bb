package sqlite

import (
	"context"
	"fmt"

	"marginalia/internal/domain"
)

// AddTags attaches tags to an entry. Tags already present are kept.
func (s *Store) AddTags(ctx context.Context, id domain.ContentID, tags ...string) error {
	return s.write(ctx, func(w *writeTx) error {
		if _, err := getEntry(ctx, w.tx, id); err != nil {
			return err
		}
		for _, tag := range tags {
			if _, err := w.tx.ExecContext(ctx, `INSERT OR IGNORE INTO tags (content_id, tag) VALUES (?, ?)`, id.String(), tag); err != nil {
				return fmt.Errorf("tag %s with %q: %w", id.Short(), tag, err)
			}
		}
		return w.touch(ctx, id)
	})
}

// RemoveTags detaches tags from an entry
func (s *Store) RemoveTags(ctx context.Context, id domain.ContentID, tags ...string) error {
	return s.write(ctx, func(w *writeTx) error {
		if _, err := getEntry(ctx, w.tx, id); err != nil {
			return err
		}
		for _, tag := range tags {
			if _, err := w.tx.ExecContext(ctx, `DELETE FROM tags WHERE content_id = ? AND tag = ?`, id.String(), tag); err != nil {
				return fmt.Errorf("untag %s %q: %w", id.Short(), tag, err)
			}
		}
		return w.touch(ctx, id)
	})
}

// Tags lists an entry's tags alphabetically
func (s *Store) Tags(ctx context.Context, id domain.ContentID) ([]string, error) {
	rows, err := s.reader.QueryContext(ctx, `SELECT tag FROM tags WHERE content_id = ? ORDER BY tag`, id.String())
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var tags []string
	for rows.Next() {
		var t string
		if err := rows.Scan(&t); err != nil {
			return nil, err
		}
		tags = append(tags, t)
	}
	return tags, rows.Err()
}

// Enqueue adds entries to a named queue, keeping existing members in place
func (s *Store) Enqueue(ctx context.Context, queue string, ids []domain.ContentID) error {
	return s.write(ctx, func(w *writeTx) error {
		for _, id := range ids {
			if _, err := getEntry(ctx, w.tx, id); err != nil {
				return err
			}
			// added_at is a per-queue sequence
			if _, err := w.tx.ExecContext(ctx, `
				INSERT OR IGNORE INTO queue_members (queue, content_id, added_at)
				VALUES (?, ?, (SELECT COALESCE(MAX(added_at), 0) + 1 FROM queue_members WHERE queue = ?))
			`, queue, id.String(), queue); err != nil {
				return fmt.Errorf("enqueue %s on %q: %w", id.Short(), queue, err)
			}
		}
		return nil
	})
}

// Dequeue removes entries from a named queue
func (s *Store) Dequeue(ctx context.Context, queue string, ids []domain.ContentID) error {
	return s.write(ctx, func(w *writeTx) error {
		for _, id := range ids {
			if _, err := w.tx.ExecContext(ctx, `DELETE FROM queue_members WHERE queue = ? AND content_id = ?`, queue, id.String()); err != nil {
				return fmt.Errorf("dequeue %s from %q: %w", id.Short(), queue, err)
			}
		}
		return nil
	})
}

// QueueMembers lists a queue in insertion order
func (s *Store) QueueMembers(ctx context.Context, queue string) ([]domain.ContentID, error) {
	rows, err := s.reader.QueryContext(ctx, `SELECT content_id FROM queue_members WHERE queue = ? ORDER BY added_at, content_id`, queue)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []domain.ContentID
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, domain.ContentID(id))
	}
	return ids, rows.Err()
}
