package mcp

import (
	"context"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"marginalia/internal/application/commands"
	"marginalia/internal/domain"
)

// RegisterWriteTools adds all mutating tools to the MCP server.
func RegisterWriteTools(s *server.MCPServer, d Deps) {
	s.AddTool(renameTool(), renameHandler(d))
	s.AddTool(relocateTool(), relocateHandler(d))
	s.AddTool(visibilityTool(), visibilityHandler(d))
	s.AddTool(tagTool(), tagHandler(d))
	s.AddTool(commentTool(), commentHandler(d))
	s.AddTool(queueTool(), queueHandler(d))
	s.AddTool(scanTool(), scanHandler(d))
	s.AddTool(reconcileTool(), reconcileHandler(d))
}

// settled runs a pass after a path mutation so the answer reports whether
// the file actually moved
func settled(ctx context.Context, d Deps, message string) (*mcp.CallToolResult, error) {
	if d.Syncer == nil {
		return mcp.NewToolResultText(message), nil
	}
	stats, err := d.Syncer.Sync(ctx)
	if err != nil {
		return toolError(fmt.Errorf("%s, but reconciliation failed: %w", message, err))
	}
	return mcp.NewToolResultText(message + formatPass(stats)), nil
}

// --- rename ---

func renameTool() mcp.Tool {
	return mcp.NewTool("rename",
		mcp.WithDescription("Rename an entry. The file is renamed on disk immediately after; if that fails the entry is reverted and the reason returned."),
		mcp.WithString("id",
			mcp.Description("Content ID"),
			mcp.Required(),
		),
		mcp.WithString("name",
			mcp.Description("New file name, without any directory"),
			mcp.Required(),
		),
	)
}

func renameHandler(d Deps) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		result, err := commands.NewRenameCommand(d.Store, req.GetString("id", ""), req.GetString("name", "")).Execute(ctx)
		if err != nil {
			return toolError(err)
		}
		return settled(ctx, d, result.Message)
	}
}

// --- relocate ---

func relocateTool() mcp.Tool {
	return mcp.NewTool("relocate",
		mcp.WithDescription("Move entries to another directory in one transaction. Entries already there are skipped."),
		mcp.WithArray("ids",
			mcp.Description("Content IDs to move"),
			mcp.WithStringItems(),
			mcp.Required(),
		),
		mcp.WithString("location",
			mcp.Description("Absolute destination directory"),
			mcp.Required(),
		),
	)
}

func relocateHandler(d Deps) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		ids := req.GetStringSlice("ids", nil)
		result, err := commands.NewRelocateCommand(d.Store, ids, req.GetString("location", "")).Execute(ctx)
		if err != nil {
			return toolError(err)
		}
		return settled(ctx, d, result.Message)
	}
}

// --- visibility ---

func visibilityTool() mcp.Tool {
	return mcp.NewTool("set_visibility",
		mcp.WithDescription("Hide entries from listings or show them again. Files are not touched."),
		mcp.WithArray("ids",
			mcp.Description("Content IDs"),
			mcp.WithStringItems(),
			mcp.Required(),
		),
		mcp.WithString("visibility",
			mcp.Description("normal or hidden"),
			mcp.Required(),
			mcp.Enum(domain.VisibilityNormal.String(), domain.VisibilityHidden.String()),
		),
	)
}

func visibilityHandler(d Deps) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		c := commands.NewVisibilityCommand(d.Store, d.Evicter, req.GetStringSlice("ids", nil), req.GetString("visibility", ""))
		result, err := c.Execute(ctx)
		if err != nil {
			return toolError(err)
		}
		return mcp.NewToolResultText(result.Message), nil
	}
}

// --- tag ---

func tagTool() mcp.Tool {
	return mcp.NewTool("tag",
		mcp.WithDescription("Add tags to an entry, or remove them when remove is set."),
		mcp.WithString("id",
			mcp.Description("Content ID"),
			mcp.Required(),
		),
		mcp.WithArray("tags",
			mcp.Description("Tags to add or remove"),
			mcp.WithStringItems(),
			mcp.Required(),
		),
		mcp.WithBoolean("remove",
			mcp.Description("Remove the tags instead of adding them"),
		),
	)
}

func tagHandler(d Deps) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		id := req.GetString("id", "")
		tags := req.GetStringSlice("tags", nil)

		c := commands.NewTagCommand(d.Store, id, tags)
		if req.GetBool("remove", false) {
			c = commands.NewUntagCommand(d.Store, id, tags)
		}
		result, err := c.Execute(ctx)
		if err != nil {
			return toolError(err)
		}
		return mcp.NewToolResultText(result.Message), nil
	}
}

// --- comment ---

func commentTool() mcp.Tool {
	return mcp.NewTool("comment",
		mcp.WithDescription("Set an entry's comment. An empty comment clears it."),
		mcp.WithString("id",
			mcp.Description("Content ID"),
			mcp.Required(),
		),
		mcp.WithString("comment",
			mcp.Description("Comment text"),
		),
	)
}

func commentHandler(d Deps) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		result, err := commands.NewCommentCommand(d.Store, req.GetString("id", ""), req.GetString("comment", "")).Execute(ctx)
		if err != nil {
			return toolError(err)
		}
		return mcp.NewToolResultText(result.Message), nil
	}
}

// --- queue ---

func queueTool() mcp.Tool {
	return mcp.NewTool("queue",
		mcp.WithDescription("Manage ordered queues of entries. action add appends, remove drops, show lists in order."),
		mcp.WithString("queue",
			mcp.Description("Queue name"),
			mcp.Required(),
		),
		mcp.WithString("action",
			mcp.Description("add, remove or show"),
			mcp.Required(),
			mcp.Enum("add", "remove", "show"),
		),
		mcp.WithArray("ids",
			mcp.Description("Content IDs for add and remove"),
			mcp.WithStringItems(),
		),
	)
}

func queueHandler(d Deps) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		queue := req.GetString("queue", "")
		ids := req.GetStringSlice("ids", nil)

		var c *commands.QueueCommand
		switch action := req.GetString("action", ""); action {
		case "show":
			entries, err := commands.NewShowQueueCommand(d.Store, queue).Execute(ctx)
			if err != nil {
				return toolError(err)
			}
			return formatEntities(entries, formatEntry)
		case "add":
			c = commands.NewEnqueueCommand(d.Store, queue, ids)
		case "remove":
			c = commands.NewDequeueCommand(d.Store, queue, ids)
		default:
			return toolError(fmt.Errorf("unknown queue action %q", action))
		}

		result, err := c.Execute(ctx)
		if err != nil {
			return toolError(err)
		}
		return mcp.NewToolResultText(result.Message), nil
	}
}

// --- scan ---

func scanTool() mcp.Tool {
	return mcp.NewTool("scan",
		mcp.WithDescription("Index a directory, picking up files added, moved or deleted outside marginalia."),
		mcp.WithString("root",
			mcp.Description("Absolute directory to scan"),
			mcp.Required(),
		),
		mcp.WithBoolean("shallow",
			mcp.Description("Do not descend into subdirectories"),
		),
	)
}

func scanHandler(d Deps) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		c := commands.NewScanCommand(d.Scanner, req.GetString("root", ""), !req.GetBool("shallow", false))
		result, err := c.Execute(ctx)
		if err != nil {
			return toolError(err)
		}
		return mcp.NewToolResultText(result.Message), nil
	}
}

// --- reconcile ---

func reconcileTool() mcp.Tool {
	return mcp.NewTool("reconcile",
		mcp.WithDescription("Apply every pending change to the filesystem and report failures."),
	)
}

func reconcileHandler(d Deps) server.ToolHandlerFunc {
	return func(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		if d.Syncer == nil {
			return toolError(fmt.Errorf("reconciliation is not available"))
		}
		stats, err := d.Syncer.Sync(ctx)
		if err != nil {
			return toolError(err)
		}
		if stats.Examined == 0 {
			return mcp.NewToolResultText("Nothing to reconcile."), nil
		}
		return mcp.NewToolResultText(formatPass(stats)[1:]), nil
	}
}
