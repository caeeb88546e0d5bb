package identity

import (
	"io/fs"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"marginalia/internal/adapters/badger"
	"marginalia/internal/domain"
	"marginalia/internal/testutil"
)

func newSidecar(t *testing.T) *badger.Sidecar {
	t.Helper()
	s, err := badger.OpenInMemory()
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestResolve_MintThenRecover(t *testing.T) {
	root := t.TempDir()
	testutil.WriteFiles(t, root, "a.jpg")
	r := NewResolver(testutil.NewFS(), WithLogger(zaptest.NewLogger(t)))
	path := filepath.Join(root, "a.jpg")

	first, err := r.Resolve(path)
	require.NoError(t, err)
	assert.True(t, first.Persisted)
	assert.False(t, first.Recovered)

	second, err := r.Resolve(path)
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID)
	assert.True(t, second.Recovered)
}

func TestResolve_SurvivesRename(t *testing.T) {
	tests := []struct {
		name         string
		noAttributes bool
	}{
		{name: "extended attribute"},
		{name: "sidecar fallback", noAttributes: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			root := t.TempDir()
			testutil.WriteFiles(t, root, "a.jpg", "elsewhere/")
			files := testutil.NewFS()
			files.NoAttributes = tt.noAttributes
			r := NewResolver(files, WithSidecar(newSidecar(t)), WithLogger(zaptest.NewLogger(t)))

			before, err := r.Resolve(filepath.Join(root, "a.jpg"))
			require.NoError(t, err)
			require.True(t, before.Persisted)

			moved := filepath.Join(root, "elsewhere", "b.jpg")
			require.NoError(t, os.Rename(filepath.Join(root, "a.jpg"), moved))

			after, err := r.Resolve(moved)
			require.NoError(t, err)
			assert.Equal(t, before.ID, after.ID)
			assert.True(t, after.Recovered)
		})
	}
}

func TestResolve_TransientWhenUnpersistable(t *testing.T) {
	root := t.TempDir()
	testutil.WriteFiles(t, root, "a.jpg")
	files := testutil.NewFS()
	files.NoAttributes = true
	r := NewResolver(files, WithLogger(zaptest.NewLogger(t)))

	first, err := r.Resolve(filepath.Join(root, "a.jpg"))
	require.NoError(t, err, "a storage failure must not block resolution")
	assert.False(t, first.Persisted)

	second, err := r.Resolve(filepath.Join(root, "a.jpg"))
	require.NoError(t, err)
	assert.NotEqual(t, first.ID, second.ID)
}

func TestResolve_MissingPath(t *testing.T) {
	r := NewResolver(testutil.NewFS())
	_, err := r.Resolve(filepath.Join(t.TempDir(), "nope.jpg"))
	assert.ErrorIs(t, err, fs.ErrNotExist)
}

func TestResolve_ReplacesMalformedAttribute(t *testing.T) {
	root := t.TempDir()
	testutil.WriteFiles(t, root, "a.jpg")
	files := testutil.NewFS()
	path := filepath.Join(root, "a.jpg")
	require.NoError(t, files.WriteAttribute(path, DefaultAttribute, "not-an-id"))

	r := NewResolver(files, WithLogger(zaptest.NewLogger(t)))
	res, err := r.Resolve(path)
	require.NoError(t, err)
	assert.False(t, res.Recovered)

	raw, ok, err := files.ReadAttribute(path, DefaultAttribute)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, res.ID.String(), raw)
}

func TestResolve_ConcurrentCallersAgree(t *testing.T) {
	root := t.TempDir()
	testutil.WriteFiles(t, root, "a.jpg")
	r := NewResolver(testutil.NewFS())
	path := filepath.Join(root, "a.jpg")

	var (
		wg  sync.WaitGroup
		mu  sync.Mutex
		ids = make(map[domain.ContentID]bool)
	)
	for range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			res, err := r.Resolve(path)
			if err != nil {
				t.Error(err)
				return
			}
			mu.Lock()
			ids[res.ID] = true
			mu.Unlock()
		}()
	}
	wg.Wait()
	assert.Len(t, ids, 1)
}

func TestPeekDoesNotMint(t *testing.T) {
	root := t.TempDir()
	testutil.WriteFiles(t, root, "a.jpg")
	files := testutil.NewFS()
	r := NewResolver(files)
	path := filepath.Join(root, "a.jpg")

	_, ok := r.Peek(path)
	assert.False(t, ok)
	_, ok, err := files.ReadAttribute(path, DefaultAttribute)
	require.NoError(t, err)
	assert.False(t, ok)

	res, err := r.Resolve(path)
	require.NoError(t, err)
	id, ok := r.Peek(path)
	assert.True(t, ok)
	assert.Equal(t, res.ID, id)
}
