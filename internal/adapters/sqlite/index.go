package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"sync"
	"time"

	"go.uber.org/zap"

	"marginalia/internal/ports"

	_ "modernc.org/sqlite"
)

// Store implements ports.MetadataStore and ports.ChangeLog on one SQLite file.
//
// All mutations go through a single writer connection guarded by writeMu, so
// the entry update and its change log row always commit together and writes
// are strictly ordered. Reads use a separate WAL reader pool and see either
// the state before or after a write, never a torn row.
type Store struct {
	writer *sql.DB
	reader *sql.DB
	path   string
	logger *zap.Logger

	writeMu   sync.Mutex
	lastStamp int64
	now       func() time.Time
}

// Ensure Store implements the store ports
var (
	_ ports.MetadataStore = (*Store)(nil)
	_ ports.ChangeLog     = (*Store)(nil)
)

// Options configures Open
type Options struct {
	Path         string
	ReadPoolSize int
	Logger       *zap.Logger
	Now          func() time.Time
}

const pragmas = "_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)&_pragma=synchronous(NORMAL)&_pragma=foreign_keys(OFF)&_pragma=temp_store(MEMORY)"

// Open opens (creating if needed) the database and applies pending migrations
func Open(ctx context.Context, opts Options) (*Store, error) {
	if opts.Path == "" {
		return nil, errors.New("sqlite: path is required")
	}
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	readPool := opts.ReadPoolSize
	if readPool <= 0 {
		readPool = 4
	}

	if err := os.MkdirAll(filepath.Dir(opts.Path), 0755); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	writer, err := sql.Open("sqlite", opts.Path+"?"+pragmas+"&_txlock=immediate")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	writer.SetMaxOpenConns(1)

	if err := migrate(ctx, writer, logger); err != nil {
		writer.Close()
		return nil, err
	}

	reader, err := sql.Open("sqlite", opts.Path+"?"+pragmas+"&_pragma=query_only(1)")
	if err != nil {
		writer.Close()
		return nil, fmt.Errorf("failed to open reader pool: %w", err)
	}
	reader.SetMaxOpenConns(readPool)

	s := &Store{
		writer: writer,
		reader: reader,
		path:   opts.Path,
		logger: logger,
		now:    now,
	}

	if err := s.loadLastStamp(ctx); err != nil {
		s.Close()
		return nil, err
	}

	logger.Info("metadata store opened", zap.String("path", opts.Path), zap.Int("read_pool", readPool))
	return s, nil
}

// Close closes both connection pools
func (s *Store) Close() error {
	var errs []error
	if s.reader != nil {
		errs = append(errs, s.reader.Close())
	}
	if s.writer != nil {
		errs = append(errs, s.writer.Close())
	}
	return errors.Join(errs...)
}

// Path returns the database file path
func (s *Store) Path() string {
	return s.path
}

// migrations are applied in order; migrations[i] brings the schema to version i+1.
// Each step runs in the same transaction as the version bump, so a step is
// either fully applied or not at all and re-running Open is idempotent.
var migrations = []string{
	`
	CREATE TABLE IF NOT EXISTS entries (
		content_id  TEXT PRIMARY KEY,
		name        TEXT NOT NULL,
		location    TEXT NOT NULL,
		volume      TEXT NOT NULL DEFAULT '',
		kind        TEXT NOT NULL DEFAULT 'other',
		size        INTEGER NOT NULL DEFAULT 0,
		created_at  INTEGER NOT NULL DEFAULT 0,
		modified_at INTEGER NOT NULL DEFAULT 0,
		comment     TEXT NOT NULL DEFAULT '',
		visibility  INTEGER NOT NULL DEFAULT 0,
		written_at  INTEGER NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_entries_path ON entries(location, name);
	CREATE INDEX IF NOT EXISTS idx_entries_kind ON entries(kind);

	CREATE TABLE IF NOT EXISTS change_log (
		seq         INTEGER PRIMARY KEY AUTOINCREMENT,
		content_id  TEXT NOT NULL,
		column_name TEXT NOT NULL CHECK (column_name IN ('name', 'location')),
		old_value   TEXT NOT NULL,
		new_value   TEXT NOT NULL,
		changed_at  INTEGER NOT NULL,
		status      TEXT NOT NULL DEFAULT 'pending' CHECK (status IN ('pending', 'synced', 'failed')),
		origin      TEXT NOT NULL DEFAULT 'user',
		detail      TEXT NOT NULL DEFAULT ''
	);
	CREATE INDEX IF NOT EXISTS idx_change_log_status ON change_log(status, changed_at);
	CREATE INDEX IF NOT EXISTS idx_change_log_content ON change_log(content_id, seq);
	`,
	`
	CREATE TABLE IF NOT EXISTS tags (
		content_id TEXT NOT NULL,
		tag        TEXT NOT NULL,
		PRIMARY KEY (content_id, tag)
	);
	CREATE INDEX IF NOT EXISTS idx_tags_tag ON tags(tag);

	CREATE TABLE IF NOT EXISTS queue_members (
		queue      TEXT NOT NULL,
		content_id TEXT NOT NULL,
		added_at   INTEGER NOT NULL,
		PRIMARY KEY (queue, content_id)
	);
	CREATE INDEX IF NOT EXISTS idx_queue_members_content ON queue_members(content_id);
	`,
	`
	ALTER TABLE entries ADD COLUMN missing_since INTEGER NOT NULL DEFAULT 0;
	`,
}

// SchemaVersion is the version a fully migrated database reports
var SchemaVersion = len(migrations)

func migrate(ctx context.Context, db *sql.DB, logger *zap.Logger) error {
	if _, err := db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS meta (
			key TEXT PRIMARY KEY,
			value TEXT NOT NULL
		)
	`); err != nil {
		return fmt.Errorf("failed to setup database: %w", err)
	}

	current, err := schemaVersion(ctx, db)
	if err != nil {
		return err
	}
	if current > len(migrations) {
		return fmt.Errorf("database schema version %d is newer than supported version %d", current, len(migrations))
	}

	for v := current; v < len(migrations); v++ {
		tx, err := db.BeginTx(ctx, nil)
		if err != nil {
			return fmt.Errorf("migration %d: %w", v+1, err)
		}
		if _, err := tx.ExecContext(ctx, migrations[v]); err != nil {
			tx.Rollback()
			return fmt.Errorf("migration %d: %w", v+1, err)
		}
		if _, err := tx.ExecContext(ctx,
			`INSERT OR REPLACE INTO meta (key, value) VALUES ('schema_version', ?)`,
			strconv.Itoa(v+1)); err != nil {
			tx.Rollback()
			return fmt.Errorf("migration %d: %w", v+1, err)
		}
		if err := tx.Commit(); err != nil {
			return fmt.Errorf("migration %d: %w", v+1, err)
		}
		logger.Info("schema migrated", zap.Int("version", v+1))
	}
	return nil
}

func schemaVersion(ctx context.Context, db *sql.DB) (int, error) {
	var raw string
	err := db.QueryRowContext(ctx, `SELECT value FROM meta WHERE key = 'schema_version'`).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("failed to read schema version: %w", err)
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("corrupt schema version %q: %w", raw, err)
	}
	return v, nil
}

// loadLastStamp seeds the monotonic write clock from persisted rows
func (s *Store) loadLastStamp(ctx context.Context) error {
	var entries, changes sql.NullInt64
	if err := s.writer.QueryRowContext(ctx, `SELECT MAX(written_at) FROM entries`).Scan(&entries); err != nil {
		return fmt.Errorf("failed to read write stamp: %w", err)
	}
	if err := s.writer.QueryRowContext(ctx, `SELECT MAX(changed_at) FROM change_log`).Scan(&changes); err != nil {
		return fmt.Errorf("failed to read write stamp: %w", err)
	}
	s.lastStamp = max(entries.Int64, changes.Int64)
	return nil
}
