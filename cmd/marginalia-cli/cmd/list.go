package cmd

import (
	"fmt"
	"path/filepath"
	"sort"

	"github.com/spf13/cobra"

	"marginalia/internal/application/commands"
	"marginalia/internal/domain"
)

var (
	listRecursive bool
	listHidden    bool
	listKind      string
)

var listCmd = &cobra.Command{
	Use:   "list <directory>",
	Short: "List a directory with content identifiers",
	Long: `List a directory as identifier and file URL pairs. Entries hidden in the
index are left out unless --hidden is set.

Examples:
  marginalia-cli list /photos
  marginalia-cli list --recursive --kind image /photos`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		dir, err := filepath.Abs(args[0])
		if err != nil {
			return err
		}
		kind, ok := domain.ParseContentKind(listKind)
		if !ok {
			return fmt.Errorf("unknown kind %q", listKind)
		}
		key := domain.ListingKey{
			Directory: dir,
			Mode:      domain.ListingMode{Recursive: listRecursive, IncludeHidden: listHidden},
			Filter:    kind,
		}
		mapping, err := GetService().Lister.List(cmd.Context(), key)
		if err != nil {
			return err
		}

		pointers := make([]domain.ContentPointer, 0, len(mapping))
		for p := range mapping {
			pointers = append(pointers, p)
		}
		sort.Slice(pointers, func(i, j int) bool { return pointers[i].Path < pointers[j].Path })
		for _, p := range pointers {
			fmt.Printf("%s  %s\n", mutedStyle.Render(p.ID.String()), mapping[p])
		}
		return nil
	},
}

var locationsCmd = &cobra.Command{
	Use:   "locations",
	Short: "Display every indexed directory as a tree",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		dirs, err := commands.NewLocationsCommand(GetService().Store).Execute(cmd.Context())
		if err != nil {
			return err
		}
		if len(dirs) == 0 {
			fmt.Println("Nothing is indexed yet")
			return nil
		}
		t := newPathTree(dirs)
		for _, d := range dirs {
			t.addDir(d)
		}
		fmt.Print(t.String())
		return nil
	},
}

var lostWithin string

var lostCmd = &cobra.Command{
	Use:   "lost",
	Short: "Find entries whose file is gone from its last known path",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		s := GetService()
		c := commands.NewLostCommand(s.Store, s.Files)
		c.Within = lostWithin
		result, err := c.Execute(cmd.Context())
		if err != nil {
			return err
		}
		if len(result.Lost) > 0 {
			paths := make([]string, len(result.Lost))
			for i, p := range result.Lost {
				paths[i] = p.Dir()
			}
			t := newPathTree(paths)
			for _, p := range result.Lost {
				t.addFile(p.Path, p.Name()+" "+mutedStyle.Render(p.ID.Short()))
			}
			fmt.Print(t.String())
		}
		fmt.Println(result.Message)
		return nil
	},
}

func init() {
	listCmd.Flags().BoolVarP(&listRecursive, "recursive", "r", false, "descend into subdirectories")
	listCmd.Flags().BoolVar(&listHidden, "hidden", false, "include hidden entries")
	listCmd.Flags().StringVarP(&listKind, "kind", "k", "", "only list this content kind")
	lostCmd.Flags().StringVarP(&lostWithin, "location", "l", "", "only check this directory tree")

	rootCmd.AddCommand(listCmd, locationsCmd, lostCmd)
}
