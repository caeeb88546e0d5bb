package cmd

import (
	"fmt"
	"io"
	"path/filepath"
	"sort"
	"strings"

	"github.com/disiqueira/gotree/v3"
	"github.com/dustin/go-humanize"

	"marginalia/internal/domain"
)

func statusStyle(s domain.SyncStatus) string {
	switch s {
	case domain.StatusSynced:
		return successStyle.Render(string(s))
	case domain.StatusFailed:
		return errorStyle.Render(string(s))
	default:
		return warningStyle.Render(string(s))
	}
}

func entryName(e *domain.IndexedEntry) string {
	name := e.Name
	if e.IsFolder() {
		name = folderStyle.Render(name + "/")
	}
	if e.Visibility == domain.VisibilityHidden {
		name = hiddenStyle.Render(e.Name + " (hidden)")
	}
	if !e.MissingSince.IsZero() {
		name += warningStyle.Render(" missing since " + humanize.Time(e.MissingSince))
	}
	return name
}

// printEntries writes one line per entry: short id, size, age and path
func printEntries(w io.Writer, entries []domain.IndexedEntry) {
	for i := range entries {
		e := &entries[i]
		size := "-"
		if !e.IsFolder() {
			size = humanize.Bytes(uint64(e.Size))
		}
		fmt.Fprintf(w, "%s  %8s  %-14s  %s\n",
			mutedStyle.Render(e.ID.Short()),
			size,
			humanize.Time(e.ModifiedAt),
			filepath.Join(e.Location, entryName(e)))
	}
}

func rowsToEntries(rows []domain.EntryRow) []domain.IndexedEntry {
	entries := make([]domain.IndexedEntry, len(rows))
	for i, r := range rows {
		entries[i] = r.IndexedEntry
	}
	return entries
}

// printChanges writes change log entries in sequence order
func printChanges(w io.Writer, changes []domain.ChangeLogEntry) {
	for _, c := range changes {
		line := fmt.Sprintf("#%-5d %s  %-8s %-8s %q -> %q  %s  %s",
			c.Seq,
			mutedStyle.Render(c.ContentID.Short()),
			c.Column,
			c.Origin,
			c.OldValue,
			c.NewValue,
			statusStyle(c.Status),
			mutedStyle.Render(humanize.Time(c.ChangedAt)))
		if c.Detail != "" {
			line += "\n       " + errorStyle.Render(c.Detail)
		}
		fmt.Fprintln(w, line)
	}
}

// pathTree renders absolute paths as a tree rooted at their common ancestor
type pathTree struct {
	tree gotree.Tree
	root string
	dirs map[string]gotree.Tree
}

func newPathTree(paths []string) pathTree {
	root := commonDir(paths)
	return pathTree{tree: gotree.New(root), root: root, dirs: make(map[string]gotree.Tree)}
}

func (t pathTree) dir(path string) gotree.Tree {
	if path == t.root || !strings.HasPrefix(path, t.root) {
		return t.tree
	}
	if d, ok := t.dirs[path]; ok {
		return d
	}
	d := t.dir(filepath.Dir(path)).Add(filepath.Base(path))
	t.dirs[path] = d
	return d
}

// addFile places a leaf under the directory of path
func (t pathTree) addFile(path, label string) {
	t.dir(filepath.Dir(path)).Add(label)
}

// addDir makes sure path appears as a directory node
func (t pathTree) addDir(path string) {
	t.dir(path)
}

func (t pathTree) String() string {
	return t.tree.Print()
}

func commonDir(paths []string) string {
	if len(paths) == 0 {
		return string(filepath.Separator)
	}
	sorted := append([]string(nil), paths...)
	sort.Strings(sorted)
	first, last := sorted[0], sorted[len(sorted)-1]
	i := 0
	for i < len(first) && i < len(last) && first[i] == last[i] {
		i++
	}
	prefix := first[:i]
	if prefix == first && (len(last) == i || last[i] == filepath.Separator) {
		return prefix
	}
	return filepath.Dir(prefix + "x")
}

func printPass(w io.Writer, stats domain.PassStats) {
	if stats.Examined == 0 {
		return
	}
	fmt.Fprintf(w, "%s %d synced, %d failed (%d reverted), %d skipped\n",
		titleStyle.Render("reconciled:"), stats.Synced, stats.Failed, stats.Compensated, stats.Skipped)
	for _, f := range stats.Failures {
		fmt.Fprintln(w, "  "+errorStyle.Render("✗ ")+f.Message())
	}
}
