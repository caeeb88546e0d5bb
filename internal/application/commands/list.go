package commands

import (
	"context"
	"fmt"

	"marginalia/internal/application"
	"marginalia/internal/domain"
	"marginalia/internal/ports"
)

// LocationsCommand lists every directory holding indexed entries
type LocationsCommand struct {
	store ports.MetadataStore
}

// NewLocationsCommand creates a new LocationsCommand
func NewLocationsCommand(store ports.MetadataStore) *LocationsCommand {
	return &LocationsCommand{store: store}
}

// Execute runs the locations command
func (c *LocationsCommand) Execute(ctx context.Context) ([]string, error) {
	return c.store.Locations(ctx)
}

// LostResult contains the entries whose last known path is empty
type LostResult struct {
	Checked int
	Lost    []domain.ContentPointer
	Message string
}

// LostCommand finds entries whose file no longer exists where the index
// last saw it
type LostCommand struct {
	store ports.MetadataStore
	files ports.Filesystem
	// Within limits the check to one directory tree when set
	Within string
}

// NewLostCommand creates a new LostCommand
func NewLostCommand(store ports.MetadataStore, files ports.Filesystem) *LostCommand {
	return &LostCommand{store: store, files: files}
}

// Execute runs the lost command
func (c *LostCommand) Execute(ctx context.Context) (*LostResult, error) {
	if c.Within != "" {
		if err := application.ValidateLocation("location", c.Within); err != nil {
			return nil, err
		}
	}
	pointers, err := c.store.Pointers(ctx)
	if err != nil {
		return nil, err
	}

	result := &LostResult{}
	for _, p := range pointers {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if c.Within != "" && !domain.IsWithin(p.Dir(), c.Within) {
			continue
		}
		result.Checked++
		exists, err := c.files.Exists(p.Path)
		if err != nil || exists {
			continue
		}
		result.Lost = append(result.Lost, p)
	}
	result.Message = fmt.Sprintf("%d of %d entries are lost", len(result.Lost), result.Checked)
	return result, nil
}
