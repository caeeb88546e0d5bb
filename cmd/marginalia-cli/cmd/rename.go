package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"marginalia/internal/application/commands"
)

var noSync bool

var renameCmd = &cobra.Command{
	Use:   "rename <content-id> <new-name>",
	Short: "Rename an entry",
	Long: `Change the name of an indexed entry. The file is renamed on disk by the
next reconciliation pass, which runs immediately unless --no-sync is set.
If the rename cannot happen the entry is reverted and the reason printed.

Examples:
  marginalia-cli rename 6f1c2b8e-3d4a-4c6b-9e2f-1a2b3c4d5e6f holiday.jpg`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		result, err := commands.NewRenameCommand(GetService().Store, args[0], args[1]).Execute(ctx)
		if err != nil {
			return err
		}
		fmt.Println(result.Message)
		return settle(cmd)
	},
}

var relocateCmd = &cobra.Command{
	Use:   "relocate <directory> <content-id>...",
	Short: "Move entries to another directory",
	Long: `Change the location of one or more indexed entries in a single
transaction. Entries already in the directory are skipped.

Examples:
  marginalia-cli relocate /photos/2024 6f1c2b8e-... 0b9d8c7a-...`,
	Args: cobra.MinimumNArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		result, err := commands.NewRelocateCommand(GetService().Store, args[1:], args[0]).Execute(ctx)
		if err != nil {
			return err
		}
		fmt.Println(result.Message)
		return settle(cmd)
	},
}

// settle runs a catch-up pass after a mutation and prints what happened
func settle(cmd *cobra.Command) error {
	if noSync {
		return nil
	}
	stats, err := GetService().Sync(cmd.Context())
	if err != nil {
		return err
	}
	printPass(os.Stdout, stats)
	return nil
}

func init() {
	for _, c := range []*cobra.Command{renameCmd, relocateCmd} {
		c.Flags().BoolVar(&noSync, "no-sync", false, "leave the change pending for the engine")
		rootCmd.AddCommand(c)
	}
}
