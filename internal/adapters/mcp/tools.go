// Package mcp exposes marginalia's queries and mutations as MCP tools so an
// assistant can organize files through the index.
package mcp

import (
	"context"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"marginalia/internal/application/commands"
	"marginalia/internal/domain"
	"marginalia/internal/ports"
)

// Lister produces directory listings
type Lister interface {
	List(ctx context.Context, key domain.ListingKey) (domain.Mapping, error)
}

// Syncer settles pending changes
type Syncer interface {
	Sync(ctx context.Context) (domain.PassStats, error)
}

// Deps are what the tools operate on
type Deps struct {
	Store   ports.MetadataStore
	Log     ports.ChangeLog
	Stats   commands.StatsSource
	Files   ports.Filesystem
	Evicter ports.ListingEvicter
	Lister  Lister
	Scanner commands.Scanner
	Syncer  Syncer
}

// RegisterTools adds every read and write tool to the MCP server
func RegisterTools(s *server.MCPServer, d Deps) {
	RegisterReadTools(s, d)
	RegisterWriteTools(s, d)
}

// --- helpers ---

func toolError(err error) (*mcp.CallToolResult, error) {
	return mcp.NewToolResultError(err.Error()), nil
}

func formatEntities[T any](entities []T, format func(T) string) (*mcp.CallToolResult, error) {
	if len(entities) == 0 {
		return mcp.NewToolResultText("No results."), nil
	}
	var sb strings.Builder
	for _, e := range entities {
		sb.WriteString(format(e))
		sb.WriteByte('\n')
	}
	return mcp.NewToolResultText(sb.String()), nil
}

func formatEntry(e domain.IndexedEntry) string {
	line := fmt.Sprintf("%s  %s  %s", e.ID, e.Kind, e.Path())
	if e.Visibility == domain.VisibilityHidden {
		line += "  [hidden]"
	}
	if !e.MissingSince.IsZero() {
		line += "  [missing]"
	}
	if e.Comment != "" {
		line += "  # " + e.Comment
	}
	return line
}

func formatRow(r domain.EntryRow) string {
	return formatEntry(r.IndexedEntry)
}

func formatChange(c domain.ChangeLogEntry) string {
	line := fmt.Sprintf("#%d  %s  %s  %q -> %q  %s  %s", c.Seq, c.ContentID, c.Column, c.OldValue, c.NewValue, c.Status, c.Origin)
	if c.Detail != "" {
		line += "  (" + c.Detail + ")"
	}
	return line
}

func formatPass(stats domain.PassStats) string {
	if stats.Examined == 0 {
		return ""
	}
	var sb strings.Builder
	fmt.Fprintf(&sb, "\nReconciled: %d synced, %d failed (%d reverted), %d skipped",
		stats.Synced, stats.Failed, stats.Compensated, stats.Skipped)
	for _, f := range stats.Failures {
		sb.WriteString("\n  " + f.Message())
	}
	return sb.String()
}
