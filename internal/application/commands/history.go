package commands

import (
	"context"
	"fmt"
	"time"

	"marginalia/internal/application"
	"marginalia/internal/domain"
	"marginalia/internal/ports"
)

// HistoryResult is an entry with its change log in sequence order
type HistoryResult struct {
	Entry   *domain.IndexedEntry
	Changes []domain.ChangeLogEntry
}

// HistoryCommand shows every recorded name and location change of an entry
type HistoryCommand struct {
	store     ports.MetadataStore
	log       ports.ChangeLog
	ContentID string
}

// NewHistoryCommand creates a new HistoryCommand
func NewHistoryCommand(store ports.MetadataStore, log ports.ChangeLog, id string) *HistoryCommand {
	return &HistoryCommand{store: store, log: log, ContentID: id}
}

// Validate checks if the history request is valid
func (c *HistoryCommand) Validate() error {
	_, err := application.ValidateContentID("contentID", c.ContentID)
	return err
}

// Execute runs the history command
func (c *HistoryCommand) Execute(ctx context.Context) (*HistoryResult, error) {
	if err := c.Validate(); err != nil {
		return nil, err
	}
	id, _ := domain.ParseContentID(c.ContentID)

	entry, err := c.store.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	changes, err := c.log.History(ctx, id)
	if err != nil {
		return nil, err
	}
	return &HistoryResult{Entry: entry, Changes: changes}, nil
}

// StatsSource summarizes the index
type StatsSource interface {
	Stats(ctx context.Context) (*domain.IndexStats, error)
}

// StatusResult is the index summary with the current change backlog
type StatusResult struct {
	Stats   *domain.IndexStats
	Pending []domain.ChangeLogEntry
	Failed  []domain.ChangeLogEntry
}

// StatusCommand reports index counts and the changes still pending or
// recently failed
type StatusCommand struct {
	stats StatsSource
	log   ports.ChangeLog
	// Limit caps the listed pending and failed changes
	Limit int
}

// NewStatusCommand creates a new StatusCommand
func NewStatusCommand(stats StatsSource, log ports.ChangeLog) *StatusCommand {
	return &StatusCommand{stats: stats, log: log, Limit: 20}
}

// Execute runs the status command
func (c *StatusCommand) Execute(ctx context.Context) (*StatusResult, error) {
	stats, err := c.stats.Stats(ctx)
	if err != nil {
		return nil, err
	}
	f := domain.LogFilter{Limit: c.Limit}

	folders, err := c.log.PendingFolders(ctx, f)
	if err != nil {
		return nil, err
	}
	items, err := c.log.PendingItems(ctx, domain.KindAny, f)
	if err != nil {
		return nil, err
	}
	failed, err := c.log.FailedItems(ctx, domain.KindAny, f)
	if err != nil {
		return nil, err
	}
	return &StatusResult{
		Stats:   stats,
		Pending: append(folders, items...),
		Failed:  failed,
	}, nil
}

// PruneResult contains the result of pruning the change log
type PruneResult struct {
	Removed int64
	Message string
}

// PruneCommand deletes settled change log entries older than a cutoff.
// Pending entries are never removed.
type PruneCommand struct {
	log       ports.ChangeLog
	OlderThan time.Duration
	now       func() time.Time
}

// NewPruneCommand creates a new PruneCommand
func NewPruneCommand(log ports.ChangeLog, olderThan time.Duration) *PruneCommand {
	return &PruneCommand{log: log, OlderThan: olderThan, now: time.Now}
}

// Validate checks if the prune operation is valid
func (c *PruneCommand) Validate() error {
	if c.OlderThan <= 0 {
		return &application.ValidationError{Field: "olderThan", Message: "age must be positive"}
	}
	return nil
}

// Execute runs the prune command
func (c *PruneCommand) Execute(ctx context.Context) (*PruneResult, error) {
	if err := c.Validate(); err != nil {
		return nil, err
	}
	n, err := c.log.Prune(ctx, c.now().Add(-c.OlderThan))
	if err != nil {
		return nil, fmt.Errorf("failed to prune: %w", err)
	}
	return &PruneResult{
		Removed: n,
		Message: fmt.Sprintf("Pruned %d settled changes older than %s", n, c.OlderThan),
	}, nil
}
