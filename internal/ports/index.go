package ports

import (
	"context"
	"time"

	"marginalia/internal/domain"
)

// MetadataStore holds the indexed entries keyed by content identifier.
// Name and location updates write their change log entries in the same
// transaction as the mutation.
type MetadataStore interface {
	// Lifecycle
	Close() error

	// Entry reads
	Get(ctx context.Context, id domain.ContentID) (*domain.IndexedEntry, error)
	FindByPath(ctx context.Context, location, name string) (*domain.IndexedEntry, error)
	Query(ctx context.Context, q domain.EntryQuery) ([]domain.EntryRow, error)
	Locations(ctx context.Context) ([]string, error)
	Pointers(ctx context.Context) ([]domain.ContentPointer, error)
	EntriesWithin(ctx context.Context, dir string, recursive bool) ([]domain.IndexedEntry, error)

	// Discovery and refresh (scanner)
	Insert(ctx context.Context, e *domain.IndexedEntry) error
	Refresh(ctx context.Context, e *domain.IndexedEntry) error
	MarkMissing(ctx context.Context, ids []domain.ContentID, since time.Time) error
	ObserveMove(ctx context.Context, id domain.ContentID, location, name string) ([]domain.ChangeLogEntry, error)

	// Path mutations, captured by the change log
	UpdateName(ctx context.Context, id domain.ContentID, newName string, origin domain.Origin) (*domain.ChangeLogEntry, error)
	UpdateLocation(ctx context.Context, ids []domain.ContentID, newLocation string, origin domain.Origin) ([]domain.ChangeLogEntry, error)
	RebaseLocation(ctx context.Context, oldPrefix, newPrefix string) (int, error)

	// Mutations without filesystem implications
	UpdateVisibility(ctx context.Context, ids []domain.ContentID, v domain.Visibility) error
	UpdateComment(ctx context.Context, id domain.ContentID, comment string) error
	Forget(ctx context.Context, ids []domain.ContentID) error

	// Tags
	AddTags(ctx context.Context, id domain.ContentID, tags ...string) error
	RemoveTags(ctx context.Context, id domain.ContentID, tags ...string) error
	Tags(ctx context.Context, id domain.ContentID) ([]string, error)

	// Queues
	Enqueue(ctx context.Context, queue string, ids []domain.ContentID) error
	Dequeue(ctx context.Context, queue string, ids []domain.ContentID) error
	QueueMembers(ctx context.Context, queue string) ([]domain.ContentID, error)
}

// ChangeLog is the query and status surface of the change log
type ChangeLog interface {
	PendingItems(ctx context.Context, kind domain.ContentKind, f domain.LogFilter) ([]domain.ChangeLogEntry, error)
	FailedItems(ctx context.Context, kind domain.ContentKind, f domain.LogFilter) ([]domain.ChangeLogEntry, error)
	PendingFolders(ctx context.Context, f domain.LogFilter) ([]domain.ChangeLogEntry, error)

	Entry(ctx context.Context, seq int64) (*domain.ChangeLogEntry, error)
	History(ctx context.Context, id domain.ContentID) ([]domain.ChangeLogEntry, error)
	HasPending(ctx context.Context, id domain.ContentID) (bool, error)

	// ComponentAsOf returns the value column had for id when change seq was written
	ComponentAsOf(ctx context.Context, id domain.ContentID, column domain.Column, seq int64) (string, error)

	// Status transitions, only from pending
	MarkSynced(ctx context.Context, seq int64) error
	MarkFailed(ctx context.Context, seq int64, detail string) error

	Prune(ctx context.Context, olderThan time.Time) (int64, error)
}
