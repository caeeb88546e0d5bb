package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var watch bool

var reconcileCmd = &cobra.Command{
	Use:   "reconcile",
	Short: "Apply pending changes to the filesystem",
	Long: `Run one catch-up pass over every pending change. With --watch the engine
keeps running on its configured interval until interrupted and, when
metrics are enabled, serves them at the configured address.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		s := GetService()
		if watch {
			return s.Run(cmd.Context())
		}
		stats, err := s.Sync(cmd.Context())
		if err != nil {
			return err
		}
		if stats.Examined == 0 {
			fmt.Println("Nothing to reconcile")
			return nil
		}
		printPass(os.Stdout, stats)
		return nil
	},
}

func init() {
	reconcileCmd.Flags().BoolVarP(&watch, "watch", "w", false, "keep reconciling until interrupted")
	rootCmd.AddCommand(reconcileCmd)
}
