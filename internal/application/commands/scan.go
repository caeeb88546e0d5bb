package commands

import (
	"context"
	"fmt"
	"path/filepath"

	"marginalia/internal/application"
	"marginalia/internal/domain"
)

// Scanner indexes a directory tree
type Scanner interface {
	Scan(ctx context.Context, root string, recursive bool) (*domain.ScanStats, error)
}

// ScanResult contains the result of a scan
type ScanResult struct {
	Root    string
	Stats   *domain.ScanStats
	Message string
}

// ScanCommand re-indexes a directory after changes made outside the application
type ScanCommand struct {
	scanner   Scanner
	Root      string
	Recursive bool
}

// NewScanCommand creates a new ScanCommand
func NewScanCommand(scanner Scanner, root string, recursive bool) *ScanCommand {
	return &ScanCommand{scanner: scanner, Root: root, Recursive: recursive}
}

// Validate checks if the scan request is valid
func (c *ScanCommand) Validate() error {
	if err := application.ValidateRequired("root", c.Root); err != nil {
		return err
	}
	return application.ValidateLocation("root", filepath.Clean(c.Root))
}

// Execute runs the scan command
func (c *ScanCommand) Execute(ctx context.Context) (*ScanResult, error) {
	if err := c.Validate(); err != nil {
		return nil, err
	}
	root := filepath.Clean(c.Root)
	stats, err := c.scanner.Scan(ctx, root, c.Recursive)
	if err != nil {
		return nil, fmt.Errorf("failed to scan %s: %w", root, err)
	}
	return &ScanResult{
		Root:  root,
		Stats: stats,
		Message: fmt.Sprintf("Scanned %d paths: %d added, %d moved, %d updated, %d missing, %d skipped",
			stats.Scanned, stats.Added, stats.Moved, stats.Updated, stats.Missing, stats.Skipped),
	}, nil
}
