// Package notify carries rename tasks from the reconciliation engine to
// the components that act on them.
package notify

import (
	"context"
	"fmt"
	"sync"

	"go.uber.org/multierr"

	"marginalia/internal/domain"
	"marginalia/internal/ports"
)

// Bus is an in-process fan-out of rename tasks. Publish delivers to every
// subscriber in subscription order and returns once all have handled the
// task, so the publisher learns whether the move happened.
type Bus struct {
	mu       sync.RWMutex
	handlers []ports.RenameHandler
}

// Ensure Bus implements RenamePublisher
var _ ports.RenamePublisher = (*Bus)(nil)

// NewBus creates a bus with no subscribers
func NewBus() *Bus {
	return &Bus{}
}

// Subscribe registers h for every subsequent Publish
func (b *Bus) Subscribe(h ports.RenameHandler) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.handlers = append(b.handlers, h)
}

// Publish delivers task to every subscriber. Errors from all subscribers
// are combined; a panicking subscriber is reported as an error.
func (b *Bus) Publish(ctx context.Context, task domain.RenameTask) error {
	b.mu.RLock()
	handlers := append([]ports.RenameHandler(nil), b.handlers...)
	b.mu.RUnlock()

	if len(handlers) == 0 {
		return fmt.Errorf("no subscriber for %s", task)
	}

	var errs error
	for _, h := range handlers {
		if err := ctx.Err(); err != nil {
			return multierr.Append(errs, err)
		}
		errs = multierr.Append(errs, deliver(ctx, h, task))
	}
	return errs
}

func deliver(ctx context.Context, h ports.RenameHandler, task domain.RenameTask) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("subscriber panicked handling %s: %v", task, r)
		}
	}()
	return h.HandleRename(ctx, task)
}
