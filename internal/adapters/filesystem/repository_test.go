package filesystem

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"testing"

	"marginalia/internal/domain"
	"marginalia/internal/ports"
)

// pngHeader is enough of a PNG for content sniffing
var pngHeader = []byte{0x89, 'P', 'N', 'G', '\r', '\n', 0x1a, '\n', 0, 0, 0, 0x0d, 'I', 'H', 'D', 'R'}

func setupTestTree(t *testing.T) string {
	t.Helper()

	root := t.TempDir()
	files := map[string][]byte{
		"photos/beach.png":     pngHeader,
		"photos/2024/sea.png":  pngHeader,
		"notes/todo.txt":       []byte("buy milk\n"),
		"notes/.hidden.txt":    []byte("secret\n"),
		".cache/blob":          []byte("x"),
		"empty/.keep":          nil,
		"photos/2024/clip.bin": {0x00, 0x01, 0x02, 0x03},
	}
	for rel, content := range files {
		p := filepath.Join(root, rel)
		if err := os.MkdirAll(filepath.Dir(p), 0755); err != nil {
			t.Fatalf("failed to create dir: %v", err)
		}
		if err := os.WriteFile(p, content, 0644); err != nil {
			t.Fatalf("failed to write %s: %v", rel, err)
		}
	}
	return root
}

func TestEnumerate(t *testing.T) {
	root := setupTestTree(t)
	a := NewAdapter()

	tests := []struct {
		name      string
		dir       string
		recursive bool
		want      []string
	}{
		{
			name: "flat skips dot entries",
			dir:  root,
			want: []string{"empty", "notes", "photos"},
		},
		{
			name:      "recursive",
			dir:       filepath.Join(root, "photos"),
			recursive: true,
			want:      []string{"photos/2024", "photos/2024/clip.bin", "photos/2024/sea.png", "photos/beach.png"},
		},
		{
			name:      "recursive skips dot files",
			dir:       filepath.Join(root, "notes"),
			recursive: true,
			want:      []string{"notes/todo.txt"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			paths, err := a.Enumerate(context.Background(), tt.dir, tt.recursive)
			if err != nil {
				t.Fatalf("Enumerate failed: %v", err)
			}
			var got []string
			for _, p := range paths {
				rel, _ := filepath.Rel(root, p)
				got = append(got, filepath.ToSlash(rel))
			}
			if len(got) != len(tt.want) {
				t.Fatalf("expected %v, got %v", tt.want, got)
			}
			for i := range got {
				if got[i] != tt.want[i] {
					t.Errorf("entry %d: expected %s, got %s", i, tt.want[i], got[i])
				}
			}
		})
	}
}

func TestEnumerate_MissingDir(t *testing.T) {
	a := NewAdapter()
	if _, err := a.Enumerate(context.Background(), filepath.Join(t.TempDir(), "nope"), true); err == nil {
		t.Error("expected error for missing directory")
	}
}

func TestDetectKind(t *testing.T) {
	root := setupTestTree(t)
	a := NewAdapter()

	tests := []struct {
		path string
		want domain.ContentKind
	}{
		{path: "photos", want: domain.KindFolder},
		{path: "photos/beach.png", want: domain.KindImage},
		{path: "notes/todo.txt", want: domain.KindText},
		{path: "photos/2024/clip.bin", want: domain.KindOther},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			got, err := a.DetectKind(filepath.Join(root, tt.path))
			if err != nil {
				t.Fatalf("DetectKind failed: %v", err)
			}
			if got != tt.want {
				t.Errorf("expected %s, got %s", tt.want, got)
			}
		})
	}
}

func TestMove(t *testing.T) {
	root := setupTestTree(t)
	a := NewAdapter()

	src := filepath.Join(root, "photos/beach.png")
	dst := filepath.Join(root, "notes/beach.png")
	if err := a.Move(src, dst); err != nil {
		t.Fatalf("Move failed: %v", err)
	}

	if ok, _ := a.Exists(src); ok {
		t.Error("source still exists after move")
	}
	if ok, _ := a.Exists(dst); !ok {
		t.Error("destination missing after move")
	}
}

func TestMove_RefusesToReplace(t *testing.T) {
	root := setupTestTree(t)
	a := NewAdapter()

	src := filepath.Join(root, "photos/beach.png")
	dst := filepath.Join(root, "photos/2024/sea.png")
	err := a.Move(src, dst)
	if !errors.Is(err, fs.ErrExist) {
		t.Fatalf("expected ErrExist, got %v", err)
	}
	if ok, _ := a.Exists(src); !ok {
		t.Error("source must be untouched when the move is refused")
	}
}

func TestDirWritable(t *testing.T) {
	root := setupTestTree(t)
	a := NewAdapter()

	tests := []struct {
		name string
		dir  string
		want bool
	}{
		{name: "directory", dir: filepath.Join(root, "photos"), want: true},
		{name: "missing", dir: filepath.Join(root, "nope"), want: false},
		{name: "regular file", dir: filepath.Join(root, "notes/todo.txt"), want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := a.DirWritable(tt.dir)
			if err != nil {
				t.Fatalf("DirWritable failed: %v", err)
			}
			if got != tt.want {
				t.Errorf("expected %v, got %v", tt.want, got)
			}
		})
	}
}

func TestStat(t *testing.T) {
	root := setupTestTree(t)
	a := NewAdapter()

	st, err := a.Stat(filepath.Join(root, "notes/todo.txt"))
	if err != nil {
		t.Fatalf("Stat failed: %v", err)
	}
	if st.Size != int64(len("buy milk\n")) {
		t.Errorf("unexpected size %d", st.Size)
	}
	if st.IsDir {
		t.Error("file reported as directory")
	}
	if st.ModifiedAt.IsZero() || st.CreatedAt.IsZero() {
		t.Error("expected timestamps to be set")
	}
}

func TestAttributeRoundTrip(t *testing.T) {
	root := setupTestTree(t)
	a := NewAdapter()
	path := filepath.Join(root, "notes/todo.txt")
	const key = "user.marginalia.test"

	if _, ok, err := a.ReadAttribute(path, key); err == nil && ok {
		t.Fatal("fresh file must not carry the attribute")
	}

	if err := a.WriteAttribute(path, key, "value-1"); err != nil {
		if errors.Is(err, ports.ErrAttributeUnsupported) {
			t.Skip("extended attributes unsupported on the temp filesystem")
		}
		t.Fatalf("WriteAttribute failed: %v", err)
	}

	got, ok, err := a.ReadAttribute(path, key)
	if err != nil || !ok {
		t.Fatalf("ReadAttribute: ok=%v err=%v", ok, err)
	}
	if got != "value-1" {
		t.Errorf("expected value-1, got %q", got)
	}

	// attributes travel with the file
	moved := filepath.Join(root, "todo-moved.txt")
	if err := a.Move(path, moved); err != nil {
		t.Fatalf("Move failed: %v", err)
	}
	got, ok, err = a.ReadAttribute(moved, key)
	if err != nil || !ok || got != "value-1" {
		t.Errorf("attribute lost on rename: %q ok=%v err=%v", got, ok, err)
	}
}

func TestExpandPath(t *testing.T) {
	home, err := os.UserHomeDir()
	if err != nil {
		t.Skip("no home directory")
	}
	got, err := ExpandPath("~/Pictures")
	if err != nil {
		t.Fatalf("ExpandPath failed: %v", err)
	}
	if got != filepath.Join(home, "Pictures") {
		t.Errorf("expected %s, got %s", filepath.Join(home, "Pictures"), got)
	}
}
