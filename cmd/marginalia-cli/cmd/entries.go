package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"marginalia/internal/application/commands"
	"marginalia/internal/domain"
)

func visibilityCmd(use, visibility, short string) *cobra.Command {
	return &cobra.Command{
		Use:   use + " <content-id>...",
		Short: short,
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s := GetService()
			result, err := commands.NewVisibilityCommand(s.Store, s.Cache, args, visibility).Execute(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Println(result.Message)
			return nil
		},
	}
}

var forgetCmd = &cobra.Command{
	Use:   "forget <content-id>...",
	Short: "Drop entries and their history from the index",
	Long: `Remove entries from the index together with their tags, queue
memberships and change history. Files on disk are not touched.`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		s := GetService()
		result, err := commands.NewForgetCommand(s.Store, s.Cache, args).Execute(cmd.Context())
		if err != nil {
			return err
		}
		for _, p := range result.Forgotten {
			fmt.Println(mutedStyle.Render(p.ID.Short()), p.Path)
		}
		fmt.Println(result.Message)
		return nil
	},
}

var commentCmd = &cobra.Command{
	Use:   "comment <content-id> [text]",
	Short: "Set or clear an entry's comment",
	Args:  cobra.RangeArgs(1, 2),
	RunE: func(cmd *cobra.Command, args []string) error {
		text := ""
		if len(args) == 2 {
			text = args[1]
		}
		result, err := commands.NewCommentCommand(GetService().Store, args[0], text).Execute(cmd.Context())
		if err != nil {
			return err
		}
		fmt.Println(result.Message)
		return nil
	},
}

var tagCmd = &cobra.Command{
	Use:   "tag <content-id> <tag>...",
	Short: "Add tags to an entry",
	Args:  cobra.MinimumNArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runTag(cmd, commands.NewTagCommand(GetService().Store, args[0], args[1:]))
	},
}

var untagCmd = &cobra.Command{
	Use:   "untag <content-id> <tag>...",
	Short: "Remove tags from an entry",
	Args:  cobra.MinimumNArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runTag(cmd, commands.NewUntagCommand(GetService().Store, args[0], args[1:]))
	},
}

func runTag(cmd *cobra.Command, c *commands.TagCommand) error {
	result, err := c.Execute(cmd.Context())
	if err != nil {
		return err
	}
	fmt.Println(result.Message)
	return nil
}

var queueCmd = &cobra.Command{
	Use:   "queue",
	Short: "Manage ordered queues of entries",
	Long: `Queues are named, ordered lists of entries such as a slideshow or a
reading list.

Examples:
  marginalia-cli queue add slideshow 6f1c2b8e-...
  marginalia-cli queue show slideshow`,
}

var queueAddCmd = &cobra.Command{
	Use:   "add <queue> <content-id>...",
	Short: "Append entries to a queue",
	Args:  cobra.MinimumNArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		result, err := commands.NewEnqueueCommand(GetService().Store, args[0], args[1:]).Execute(cmd.Context())
		if err != nil {
			return err
		}
		fmt.Println(result.Message)
		return nil
	},
}

var queueRemoveCmd = &cobra.Command{
	Use:   "remove <queue> <content-id>...",
	Short: "Remove entries from a queue",
	Args:  cobra.MinimumNArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		result, err := commands.NewDequeueCommand(GetService().Store, args[0], args[1:]).Execute(cmd.Context())
		if err != nil {
			return err
		}
		fmt.Println(result.Message)
		return nil
	},
}

var queueShowCmd = &cobra.Command{
	Use:   "show <queue>",
	Short: "List a queue in order",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		entries, err := commands.NewShowQueueCommand(GetService().Store, args[0]).Execute(cmd.Context())
		if err != nil {
			return err
		}
		if len(entries) == 0 {
			fmt.Println("Queue is empty")
			return nil
		}
		printEntries(os.Stdout, entries)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(
		visibilityCmd("hide", domain.VisibilityHidden.String(), "Hide entries from listings"),
		visibilityCmd("show", domain.VisibilityNormal.String(), "Show hidden entries in listings again"),
		forgetCmd,
		commentCmd,
		tagCmd,
		untagCmd,
		queueCmd,
	)
	queueCmd.AddCommand(queueAddCmd, queueRemoveCmd, queueShowCmd)
}
