package cmd

import (
	"fmt"
	"os"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"marginalia/internal/application/commands"
	"marginalia/internal/domain"
)

var historyCmd = &cobra.Command{
	Use:   "history <content-id>",
	Short: "Show the name and location changes of an entry",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		s := GetService()
		result, err := commands.NewHistoryCommand(s.Store, s.Store, args[0]).Execute(cmd.Context())
		if err != nil {
			return err
		}
		printEntries(os.Stdout, []domain.IndexedEntry{*result.Entry})
		if result.Entry.Comment != "" {
			fmt.Println(labelStyle.Render("comment"), result.Entry.Comment)
		}
		if tags, err := s.Store.Tags(cmd.Context(), result.Entry.ID); err == nil && len(tags) > 0 {
			fmt.Println(labelStyle.Render("tags"), tags)
		}
		if len(result.Changes) == 0 {
			fmt.Println(mutedStyle.Render("no recorded changes"))
			return nil
		}
		printChanges(os.Stdout, result.Changes)
		return nil
	},
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Summarize the index and the reconciliation backlog",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		s := GetService()
		result, err := commands.NewStatusCommand(s.Store, s.Store).Execute(cmd.Context())
		if err != nil {
			return err
		}
		st := result.Stats
		fmt.Println(titleStyle.Render("marginalia") + " " + mutedStyle.Render(loadedProfile+" "+s.Store.Path()))
		fmt.Println(labelStyle.Render("entries"), humanize.Comma(int64(st.Entries)),
			mutedStyle.Render(fmt.Sprintf("(%d folders, %d hidden, %d missing)", st.Folders, st.Hidden, st.Missing)))
		fmt.Println(labelStyle.Render("locations"), st.Locations)
		fmt.Println(labelStyle.Render("tags"), st.Tags)

		pending := fmt.Sprint(st.Pending)
		if st.Settled() {
			pending = successStyle.Render("0 (settled)")
		} else {
			pending = warningStyle.Render(pending)
		}
		fmt.Println(labelStyle.Render("pending"), pending)
		fmt.Println(labelStyle.Render("failed"), st.Failed)

		if len(result.Pending) > 0 {
			fmt.Println()
			fmt.Println(titleStyle.Render("Pending changes"))
			printChanges(os.Stdout, result.Pending)
		}
		if len(result.Failed) > 0 {
			fmt.Println()
			fmt.Println(titleStyle.Render("Recent failures"))
			printChanges(os.Stdout, result.Failed)
		}
		return nil
	},
}

var pruneOlderThan time.Duration

var pruneCmd = &cobra.Command{
	Use:   "prune",
	Short: "Delete settled change history older than a cutoff",
	Long: `Delete synced and failed change log entries older than --older-than.
Pending changes are never removed.

Examples:
  marginalia-cli prune --older-than 720h`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		result, err := commands.NewPruneCommand(GetService().Store, pruneOlderThan).Execute(cmd.Context())
		if err != nil {
			return err
		}
		fmt.Println(result.Message)
		return nil
	},
}

func init() {
	pruneCmd.Flags().DurationVar(&pruneOlderThan, "older-than", 30*24*time.Hour, "age of the oldest change to keep")
	rootCmd.AddCommand(historyCmd, statusCmd, pruneCmd)
}
