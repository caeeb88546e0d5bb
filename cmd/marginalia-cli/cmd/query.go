package cmd

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"marginalia/internal/application/commands"
)

var (
	queryReq       commands.QueryRequest
	modifiedAfter  string
	modifiedBefore string
	searchLocation string
	searchLimit    int
)

var queryCmd = &cobra.Command{
	Use:   "query",
	Short: "Query indexed entries by tag, kind, location and date",
	Long: `Query the index. Filters combine; entries must carry every given tag.
Dates are YYYY-MM-DD.

Examples:
  marginalia-cli query --tag vacation --kind image --sort modified --desc
  marginalia-cli query --location /photos --recursive --hidden`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		req := queryReq
		var err error
		if req.ModifiedAfter, err = parseDate(modifiedAfter); err != nil {
			return err
		}
		if req.ModifiedBefore, err = parseDate(modifiedBefore); err != nil {
			return err
		}
		if hidden, _ := cmd.Flags().GetBool("hidden"); hidden {
			req.Visibility = "hidden"
		}

		rows, err := commands.NewQueryCommand(GetService().Store, req).Execute(cmd.Context())
		if err != nil {
			return err
		}
		if len(rows) == 0 {
			fmt.Println("No entries found")
			return nil
		}
		printEntries(os.Stdout, rowsToEntries(rows))
		return nil
	},
}

func parseDate(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}
	t, err := time.ParseInLocation("2006-01-02", s, time.Local)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q: want YYYY-MM-DD", s)
	}
	return t, nil
}

var searchCmd = &cobra.Command{
	Use:   "search <query>",
	Short: "Search entry names and comments",
	Long: `Search for entries by name or comment.

Results are ranked by relevance using fuzzy matching.

Examples:
  marginalia-cli search holiday
  marginalia-cli search --location /photos beach`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		c := commands.NewSearchCommand(GetService().Store, args[0])
		c.Location = searchLocation
		c.Limit = searchLimit
		results, err := c.Execute(cmd.Context())
		if err != nil {
			return err
		}

		if len(results) == 0 {
			fmt.Println("No results found")
			return nil
		}
		for _, r := range results {
			e := r.IndexedEntry
			fmt.Printf("[%s] %s %s\n", e.Kind, mutedStyle.Render(e.ID.Short()), e.Path())
		}
		return nil
	},
}

func init() {
	f := queryCmd.Flags()
	f.StringSliceVarP(&queryReq.Tags, "tag", "t", nil, "require a tag (repeatable)")
	f.StringSliceVarP(&queryReq.Kinds, "kind", "k", nil, "content kind: folder, image, video, audio, text, document, other")
	f.StringVarP(&queryReq.Location, "location", "l", "", "directory to query")
	f.BoolVarP(&queryReq.Recursive, "recursive", "r", false, "include subdirectories of --location")
	f.StringVar(&queryReq.Name, "name", "", "name substring")
	f.StringVar(&queryReq.Sort, "sort", "name", "sort by name, modified, size or written")
	f.BoolVar(&queryReq.Descending, "desc", false, "reverse the sort order")
	f.IntVar(&queryReq.Limit, "limit", 0, "maximum number of results")
	f.IntVar(&queryReq.Offset, "offset", 0, "skip this many results")
	f.StringVar(&modifiedAfter, "after", "", "modified on or after this date")
	f.StringVar(&modifiedBefore, "before", "", "modified before this date")
	f.Bool("hidden", false, "only hidden entries")

	searchCmd.Flags().StringVarP(&searchLocation, "location", "l", "", "limit the search to a directory tree")
	searchCmd.Flags().IntVar(&searchLimit, "limit", 20, "maximum number of results")

	rootCmd.AddCommand(queryCmd, searchCmd)
}
