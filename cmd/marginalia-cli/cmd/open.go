package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"marginalia/internal/adapters/opener"
	"marginalia/internal/application/commands"
	"marginalia/internal/ports"
)

var openInEditor bool

var openCmd = &cobra.Command{
	Use:   "open <content-id>",
	Short: "Open an entry's file wherever it is now",
	Long: `Open the file of an indexed entry with the default application, or in
$EDITOR with --editor.

Examples:
  marginalia-cli open 6f1c2b8e-3d4a-4c6b-9e2f-1a2b3c4d5e6f
  marginalia-cli open --editor 6f1c2b8e-3d4a-4c6b-9e2f-1a2b3c4d5e6f`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		var o ports.Opener = opener.NewSystem()
		if openInEditor {
			o = opener.NewEditor()
		}
		s := GetService()
		result, err := commands.NewOpenCommand(s.Store, s.Files, o, args[0]).Execute(cmd.Context())
		if err != nil {
			return err
		}
		if !openInEditor {
			fmt.Println(result.Message)
		}
		return nil
	},
}

func init() {
	openCmd.Flags().BoolVarP(&openInEditor, "editor", "e", false, "open in $EDITOR")
	rootCmd.AddCommand(openCmd)
}
