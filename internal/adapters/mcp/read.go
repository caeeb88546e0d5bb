package mcp

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"marginalia/internal/application/commands"
	"marginalia/internal/domain"
)

// RegisterReadTools adds all read-only tools to the MCP server.
func RegisterReadTools(s *server.MCPServer, d Deps) {
	s.AddTool(listTool(), listHandler(d))
	s.AddTool(queryTool(), queryHandler(d))
	s.AddTool(searchTool(), searchHandler(d))
	s.AddTool(historyTool(), historyHandler(d))
	s.AddTool(statusTool(), statusHandler(d))
	s.AddTool(lostTool(), lostHandler(d))
	s.AddTool(locationsTool(), locationsHandler(d))
}

// --- list ---

func listTool() mcp.Tool {
	return mcp.NewTool("list",
		mcp.WithDescription("List a directory as content ID and file URL pairs. Hidden entries are omitted unless include_hidden is set."),
		mcp.WithString("directory",
			mcp.Description("Absolute directory path"),
			mcp.Required(),
		),
		mcp.WithBoolean("recursive",
			mcp.Description("Descend into subdirectories"),
		),
		mcp.WithBoolean("include_hidden",
			mcp.Description("Include entries hidden in the index"),
		),
		mcp.WithString("kind",
			mcp.Description("Only list one content kind: folder, image, video, audio, text, document, other"),
		),
	)
}

func listHandler(d Deps) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		kind, ok := domain.ParseContentKind(req.GetString("kind", ""))
		if !ok {
			return toolError(fmt.Errorf("unknown kind %q", req.GetString("kind", "")))
		}
		key := domain.ListingKey{
			Directory: req.GetString("directory", ""),
			Mode: domain.ListingMode{
				Recursive:     req.GetBool("recursive", false),
				IncludeHidden: req.GetBool("include_hidden", false),
			},
			Filter: kind,
		}
		mapping, err := d.Lister.List(ctx, key)
		if err != nil {
			return toolError(err)
		}

		pointers := make([]domain.ContentPointer, 0, len(mapping))
		for p := range mapping {
			pointers = append(pointers, p)
		}
		sort.Slice(pointers, func(i, j int) bool { return pointers[i].Path < pointers[j].Path })
		return formatEntities(pointers, func(p domain.ContentPointer) string {
			return fmt.Sprintf("%s  %s", p.ID, mapping[p])
		})
	}
}

// --- query ---

func queryTool() mcp.Tool {
	return mcp.NewTool("query",
		mcp.WithDescription("Query indexed entries. Filters combine; entries must carry every tag given."),
		mcp.WithArray("tags",
			mcp.Description("Tags every result must carry"),
			mcp.WithStringItems(),
		),
		mcp.WithArray("kinds",
			mcp.Description("Content kinds to include"),
			mcp.WithStringItems(),
		),
		mcp.WithString("location",
			mcp.Description("Absolute directory to query"),
		),
		mcp.WithBoolean("recursive",
			mcp.Description("Include subdirectories of location"),
		),
		mcp.WithString("visibility",
			mcp.Description("normal or hidden; omit for both"),
		),
		mcp.WithString("name",
			mcp.Description("Name substring"),
		),
		mcp.WithString("modified_after",
			mcp.Description("RFC 3339 timestamp"),
		),
		mcp.WithString("modified_before",
			mcp.Description("RFC 3339 timestamp"),
		),
		mcp.WithString("sort",
			mcp.Description("name, modified, size or written"),
		),
		mcp.WithBoolean("descending",
			mcp.Description("Reverse the sort order"),
		),
		mcp.WithNumber("limit",
			mcp.Description("Maximum number of results"),
		),
	)
}

func queryHandler(d Deps) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		qr := commands.QueryRequest{
			Tags:       req.GetStringSlice("tags", nil),
			Kinds:      req.GetStringSlice("kinds", nil),
			Location:   req.GetString("location", ""),
			Recursive:  req.GetBool("recursive", false),
			Visibility: req.GetString("visibility", ""),
			Name:       req.GetString("name", ""),
			Sort:       req.GetString("sort", ""),
			Descending: req.GetBool("descending", false),
			Limit:      req.GetInt("limit", 0),
		}
		var err error
		if qr.ModifiedAfter, err = parseTime(req.GetString("modified_after", "")); err != nil {
			return toolError(err)
		}
		if qr.ModifiedBefore, err = parseTime(req.GetString("modified_before", "")); err != nil {
			return toolError(err)
		}

		rows, err := commands.NewQueryCommand(d.Store, qr).Execute(ctx)
		if err != nil {
			return toolError(err)
		}
		return formatEntities(rows, formatRow)
	}
}

func parseTime(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid timestamp %q: want RFC 3339", s)
	}
	return t, nil
}

// --- search ---

func searchTool() mcp.Tool {
	return mcp.NewTool("search",
		mcp.WithDescription("Fuzzy search entry names and comments. Returns entries ranked by relevance."),
		mcp.WithString("query",
			mcp.Description("Search query"),
			mcp.Required(),
		),
		mcp.WithString("location",
			mcp.Description("Limit the search to this directory tree"),
		),
	)
}

func searchHandler(d Deps) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		query := req.GetString("query", "")
		if query == "" {
			return toolError(fmt.Errorf("query is required"))
		}

		c := commands.NewSearchCommand(d.Store, query)
		c.Location = req.GetString("location", "")
		c.Limit = 50
		results, err := c.Execute(ctx)
		if err != nil {
			return toolError(err)
		}

		if len(results) == 0 {
			return mcp.NewToolResultText("No results found."), nil
		}

		var sb strings.Builder
		for _, r := range results {
			fmt.Fprintf(&sb, "%s\n", formatEntry(r.IndexedEntry))
		}
		return mcp.NewToolResultText(sb.String()), nil
	}
}

// --- history ---

func historyTool() mcp.Tool {
	return mcp.NewTool("history",
		mcp.WithDescription("Show an entry with every recorded name and location change."),
		mcp.WithString("id",
			mcp.Description("Content ID"),
			mcp.Required(),
		),
	)
}

func historyHandler(d Deps) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		result, err := commands.NewHistoryCommand(d.Store, d.Log, req.GetString("id", "")).Execute(ctx)
		if err != nil {
			return toolError(err)
		}
		var sb strings.Builder
		sb.WriteString(formatEntry(*result.Entry))
		sb.WriteByte('\n')
		for _, c := range result.Changes {
			sb.WriteString(formatChange(c))
			sb.WriteByte('\n')
		}
		return mcp.NewToolResultText(sb.String()), nil
	}
}

// --- status ---

func statusTool() mcp.Tool {
	return mcp.NewTool("status",
		mcp.WithDescription("Summarize the index and list pending and recently failed changes."),
	)
}

func statusHandler(d Deps) server.ToolHandlerFunc {
	return func(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		result, err := commands.NewStatusCommand(d.Stats, d.Log).Execute(ctx)
		if err != nil {
			return toolError(err)
		}
		st := result.Stats
		var sb strings.Builder
		fmt.Fprintf(&sb, "entries: %d (%d folders, %d hidden, %d missing)\n", st.Entries, st.Folders, st.Hidden, st.Missing)
		fmt.Fprintf(&sb, "locations: %d, tags: %d\n", st.Locations, st.Tags)
		fmt.Fprintf(&sb, "pending: %d, failed: %d\n", st.Pending, st.Failed)
		for _, c := range result.Pending {
			sb.WriteString(formatChange(c) + "\n")
		}
		for _, c := range result.Failed {
			sb.WriteString(formatChange(c) + "\n")
		}
		return mcp.NewToolResultText(sb.String()), nil
	}
}

// --- lost ---

func lostTool() mcp.Tool {
	return mcp.NewTool("lost",
		mcp.WithDescription("Find entries whose file no longer exists at its last known path."),
		mcp.WithString("location",
			mcp.Description("Only check this directory tree"),
		),
	)
}

func lostHandler(d Deps) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		c := commands.NewLostCommand(d.Store, d.Files)
		c.Within = req.GetString("location", "")
		result, err := c.Execute(ctx)
		if err != nil {
			return toolError(err)
		}
		var sb strings.Builder
		for _, p := range result.Lost {
			fmt.Fprintf(&sb, "%s  %s\n", p.ID, p.Path)
		}
		sb.WriteString(result.Message)
		return mcp.NewToolResultText(sb.String()), nil
	}
}

// --- locations ---

func locationsTool() mcp.Tool {
	return mcp.NewTool("locations",
		mcp.WithDescription("List every directory that holds indexed entries."),
	)
}

func locationsHandler(d Deps) server.ToolHandlerFunc {
	return func(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		dirs, err := commands.NewLocationsCommand(d.Store).Execute(ctx)
		if err != nil {
			return toolError(err)
		}
		return formatEntities(dirs, func(s string) string { return s })
	}
}
