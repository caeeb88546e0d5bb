package commands

import (
	"context"
	"fmt"

	"marginalia/internal/application"
	"marginalia/internal/domain"
	"marginalia/internal/ports"
)

// VisibilityResult contains the result of a visibility change
type VisibilityResult struct {
	Visibility domain.Visibility
	Count      int
	Message    string
}

// VisibilityCommand hides or shows entries. Listings of their directories
// are evicted so the change is visible immediately.
type VisibilityCommand struct {
	store      ports.MetadataStore
	evicter    ports.ListingEvicter
	ContentIDs []string
	Visibility string
}

// NewVisibilityCommand creates a new VisibilityCommand. evicter may be nil.
func NewVisibilityCommand(store ports.MetadataStore, evicter ports.ListingEvicter, ids []string, visibility string) *VisibilityCommand {
	return &VisibilityCommand{
		store:      store,
		evicter:    evicter,
		ContentIDs: ids,
		Visibility: visibility,
	}
}

// Validate checks if the visibility change is valid
func (c *VisibilityCommand) Validate() error {
	if _, err := application.ValidateContentIDs("contentIDs", c.ContentIDs); err != nil {
		return err
	}
	if _, ok := domain.ParseVisibility(c.Visibility); !ok {
		return &application.ValidationError{
			Field:   "visibility",
			Message: fmt.Sprintf("unknown visibility %q (want normal or hidden)", c.Visibility),
		}
	}
	return nil
}

// Execute runs the visibility command
func (c *VisibilityCommand) Execute(ctx context.Context) (*VisibilityResult, error) {
	if err := c.Validate(); err != nil {
		return nil, err
	}
	ids, _ := application.ValidateContentIDs("contentIDs", c.ContentIDs)
	v, _ := domain.ParseVisibility(c.Visibility)

	dirs, err := locationsOf(ctx, c.store, ids)
	if err != nil {
		return nil, err
	}
	if err := c.store.UpdateVisibility(ctx, ids, v); err != nil {
		return nil, fmt.Errorf("failed to update visibility: %w", err)
	}
	evictAll(c.evicter, dirs)

	return &VisibilityResult{
		Visibility: v,
		Count:      len(ids),
		Message:    fmt.Sprintf("Marked %d entries %s", len(ids), v),
	}, nil
}

// ForgetResult contains the result of a forget operation
type ForgetResult struct {
	Forgotten []domain.ContentPointer
	Message   string
}

// ForgetCommand deletes entries with their tags, queue memberships and
// change history. Files on disk are left alone.
type ForgetCommand struct {
	store      ports.MetadataStore
	evicter    ports.ListingEvicter
	ContentIDs []string
}

// NewForgetCommand creates a new ForgetCommand. evicter may be nil.
func NewForgetCommand(store ports.MetadataStore, evicter ports.ListingEvicter, ids []string) *ForgetCommand {
	return &ForgetCommand{store: store, evicter: evicter, ContentIDs: ids}
}

// Validate checks if the forget operation is valid
func (c *ForgetCommand) Validate() error {
	_, err := application.ValidateContentIDs("contentIDs", c.ContentIDs)
	return err
}

// Execute runs the forget command
func (c *ForgetCommand) Execute(ctx context.Context) (*ForgetResult, error) {
	if err := c.Validate(); err != nil {
		return nil, err
	}
	ids, _ := application.ValidateContentIDs("contentIDs", c.ContentIDs)

	var (
		pointers []domain.ContentPointer
		dirs     []string
	)
	for _, id := range ids {
		e, err := c.store.Get(ctx, id)
		if err != nil {
			return nil, err
		}
		pointers = append(pointers, e.Pointer())
		dirs = append(dirs, e.Location)
	}

	if err := c.store.Forget(ctx, ids); err != nil {
		return nil, fmt.Errorf("failed to forget: %w", err)
	}
	evictAll(c.evicter, dirs)

	return &ForgetResult{
		Forgotten: pointers,
		Message:   fmt.Sprintf("Forgot %d entries", len(pointers)),
	}, nil
}

// CommentResult contains the result of a comment update
type CommentResult struct {
	ContentID domain.ContentID
	Message   string
}

// CommentCommand replaces an entry's free-text comment. An empty comment
// clears it.
type CommentCommand struct {
	store     ports.MetadataStore
	ContentID string
	Comment   string
}

// NewCommentCommand creates a new CommentCommand
func NewCommentCommand(store ports.MetadataStore, id, comment string) *CommentCommand {
	return &CommentCommand{store: store, ContentID: id, Comment: comment}
}

// Validate checks if the comment update is valid
func (c *CommentCommand) Validate() error {
	_, err := application.ValidateContentID("contentID", c.ContentID)
	return err
}

// Execute runs the comment command
func (c *CommentCommand) Execute(ctx context.Context) (*CommentResult, error) {
	if err := c.Validate(); err != nil {
		return nil, err
	}
	id, _ := domain.ParseContentID(c.ContentID)
	if err := c.store.UpdateComment(ctx, id, c.Comment); err != nil {
		return nil, fmt.Errorf("failed to update comment: %w", err)
	}
	msg := fmt.Sprintf("Updated comment on %s", id.Short())
	if c.Comment == "" {
		msg = fmt.Sprintf("Cleared comment on %s", id.Short())
	}
	return &CommentResult{ContentID: id, Message: msg}, nil
}

func locationsOf(ctx context.Context, store ports.MetadataStore, ids []domain.ContentID) ([]string, error) {
	dirs := make([]string, 0, len(ids))
	for _, id := range ids {
		e, err := store.Get(ctx, id)
		if err != nil {
			return nil, err
		}
		dirs = append(dirs, e.Location)
	}
	return dirs, nil
}

func evictAll(evicter ports.ListingEvicter, dirs []string) {
	if evicter == nil {
		return
	}
	seen := make(map[string]bool, len(dirs))
	for _, d := range dirs {
		if !seen[d] {
			seen[d] = true
			evicter.Evict(d)
		}
	}
}
