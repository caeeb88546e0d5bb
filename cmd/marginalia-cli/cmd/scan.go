package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"marginalia/internal/adapters/filesystem"
	"marginalia/internal/application/commands"
)

var scanShallow bool

var scanCmd = &cobra.Command{
	Use:   "scan [directory]",
	Short: "Index a directory and pick up changes made outside marginalia",
	Long: `Walk a directory, assigning identifiers to new files, recording files
moved by other programs and marking vanished ones as missing. Without an
argument every configured root is scanned.

Examples:
  marginalia-cli scan
  marginalia-cli scan --shallow ~/Downloads`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		s := GetService()
		if len(args) == 0 {
			if len(s.Config.Roots) == 0 {
				return fmt.Errorf("no directory given and no roots configured")
			}
			stats, err := s.ScanRoots(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Printf("Scanned %d roots: %d paths, %d added, %d moved, %d updated, %d missing\n",
				len(s.Config.Roots), stats.Scanned, stats.Added, stats.Moved, stats.Updated, stats.Missing)
			return nil
		}

		root, err := filesystem.ExpandPath(args[0])
		if err != nil {
			return err
		}
		result, err := commands.NewScanCommand(s.Scanner, root, !scanShallow).Execute(cmd.Context())
		if err != nil {
			return err
		}
		fmt.Println(result.Message)
		return nil
	},
}

func init() {
	scanCmd.Flags().BoolVar(&scanShallow, "shallow", false, "do not descend into subdirectories")
	rootCmd.AddCommand(scanCmd)
}
