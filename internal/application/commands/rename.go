package commands

import (
	"context"
	"fmt"
	"strings"

	"marginalia/internal/application"
	"marginalia/internal/domain"
	"marginalia/internal/ports"
)

// RenameResult contains the result of a rename operation
type RenameResult struct {
	ContentID domain.ContentID
	NewName   string
	// Change is nil when the entry already had the name
	Change  *domain.ChangeLogEntry
	Message string
}

// RenameCommand changes an entry's name. The file itself is renamed later
// by the reconciliation engine.
type RenameCommand struct {
	store     ports.MetadataStore
	ContentID string
	NewName   string
}

// NewRenameCommand creates a new RenameCommand
func NewRenameCommand(store ports.MetadataStore, id, newName string) *RenameCommand {
	return &RenameCommand{
		store:     store,
		ContentID: id,
		NewName:   newName,
	}
}

// Validate checks if the rename operation is valid
func (c *RenameCommand) Validate() error {
	if _, err := application.ValidateContentID("contentID", c.ContentID); err != nil {
		return err
	}
	if err := application.ValidateRequired("newName", c.NewName); err != nil {
		return err
	}
	return application.ValidateFileName("newName", strings.TrimSpace(c.NewName))
}

// Execute runs the rename command
func (c *RenameCommand) Execute(ctx context.Context) (*RenameResult, error) {
	if err := c.Validate(); err != nil {
		return nil, err
	}
	id, _ := domain.ParseContentID(c.ContentID)
	name := strings.TrimSpace(c.NewName)

	change, err := c.store.UpdateName(ctx, id, name, domain.OriginUser)
	if err != nil {
		return nil, fmt.Errorf("failed to rename: %w", err)
	}

	result := &RenameResult{ContentID: id, NewName: name, Change: change}
	if change == nil {
		result.Message = fmt.Sprintf("%s is already named %s", id.Short(), name)
	} else {
		result.Message = fmt.Sprintf("Renamed %s to %s", change.OldValue, name)
	}
	return result, nil
}

// RelocateResult contains the result of a relocate operation
type RelocateResult struct {
	Location string
	Changes  []domain.ChangeLogEntry
	Message  string
}

// RelocateCommand moves entries to another directory in one batch. Either
// every entry moves or none does.
type RelocateCommand struct {
	store      ports.MetadataStore
	ContentIDs []string
	Location   string
}

// NewRelocateCommand creates a new RelocateCommand
func NewRelocateCommand(store ports.MetadataStore, ids []string, location string) *RelocateCommand {
	return &RelocateCommand{
		store:      store,
		ContentIDs: ids,
		Location:   location,
	}
}

// Validate checks if the relocate operation is valid
func (c *RelocateCommand) Validate() error {
	if _, err := application.ValidateContentIDs("contentIDs", c.ContentIDs); err != nil {
		return err
	}
	if err := application.ValidateRequired("newLocation", c.Location); err != nil {
		return err
	}
	return application.ValidateLocation("newLocation", c.Location)
}

// Execute runs the relocate command
func (c *RelocateCommand) Execute(ctx context.Context) (*RelocateResult, error) {
	if err := c.Validate(); err != nil {
		return nil, err
	}
	ids, _ := application.ValidateContentIDs("contentIDs", c.ContentIDs)

	changes, err := c.store.UpdateLocation(ctx, ids, c.Location, domain.OriginUser)
	if err != nil {
		return nil, fmt.Errorf("failed to relocate: %w", err)
	}

	return &RelocateResult{
		Location: c.Location,
		Changes:  changes,
		Message:  fmt.Sprintf("Relocated %d of %d entries to %s", len(changes), len(ids), c.Location),
	}, nil
}
