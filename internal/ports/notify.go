package ports

import (
	"context"

	"marginalia/internal/domain"
)

// RenameHandler observes rename tasks published on the notification bus
type RenameHandler interface {
	HandleRename(ctx context.Context, task domain.RenameTask) error
}

// RenameHandlerFunc adapts a function to RenameHandler
type RenameHandlerFunc func(ctx context.Context, task domain.RenameTask) error

func (f RenameHandlerFunc) HandleRename(ctx context.Context, task domain.RenameTask) error {
	return f(ctx, task)
}

// RenamePublisher decouples the engine from the component that moves files
type RenamePublisher interface {
	Publish(ctx context.Context, task domain.RenameTask) error
}

// FailureReporter surfaces failed reconciliations to the user
type FailureReporter interface {
	ReportFailure(ctx context.Context, f domain.ReconcileFailure)
}

// ListingEvicter drops cached listings touching a directory
type ListingEvicter interface {
	// Evict drops listings of dir and recursive listings of its ancestors
	Evict(dir string)
	// EvictTree additionally drops listings of every directory below dir
	EvictTree(dir string)
}
