package commands

import (
	"context"
	"fmt"

	"marginalia/internal/application"
	"marginalia/internal/domain"
	"marginalia/internal/ports"
)

// OpenResult contains the path that was opened
type OpenResult struct {
	Path    string
	Message string
}

// OpenCommand opens an entry's file by identifier, wherever it currently is
type OpenCommand struct {
	store     ports.MetadataStore
	files     ports.Filesystem
	opener    ports.Opener
	ContentID string
}

// NewOpenCommand creates a new OpenCommand
func NewOpenCommand(store ports.MetadataStore, files ports.Filesystem, opener ports.Opener, id string) *OpenCommand {
	return &OpenCommand{store: store, files: files, opener: opener, ContentID: id}
}

// Validate checks if the open request is valid
func (c *OpenCommand) Validate() error {
	_, err := application.ValidateContentID("contentID", c.ContentID)
	return err
}

// Execute runs the open command
func (c *OpenCommand) Execute(ctx context.Context) (*OpenResult, error) {
	if err := c.Validate(); err != nil {
		return nil, err
	}
	id, _ := domain.ParseContentID(c.ContentID)

	entry, err := c.store.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	path := entry.Path()
	exists, err := c.files.Exists(path)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, fmt.Errorf("%s is not at %s: rescan its directory to find it: %w", id.Short(), path, application.ErrNotFound)
	}

	if err := c.opener.OpenFile(path); err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", path, err)
	}
	return &OpenResult{Path: path, Message: fmt.Sprintf("Opened %s", path)}, nil
}
