package scan

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"marginalia/internal/adapters/sqlite"
	"marginalia/internal/application"
	"marginalia/internal/application/identity"
	"marginalia/internal/application/listing"
	"marginalia/internal/domain"
	"marginalia/internal/testutil"
)

type fixture struct {
	root     string
	store    *sqlite.Store
	files    *testutil.FS
	resolver *identity.Resolver
	cache    *listing.Cache
	scanner  *Scanner
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	store, err := sqlite.Open(context.Background(), sqlite.Options{
		Path:   filepath.Join(t.TempDir(), "marginalia.db"),
		Logger: zaptest.NewLogger(t),
	})
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	files := testutil.NewFS()
	f := &fixture{
		root:     t.TempDir(),
		store:    store,
		files:    files,
		resolver: identity.NewResolver(files),
		cache:    listing.NewCache(listing.DefaultConfig(), nil),
	}
	f.scanner = NewScanner(Deps{
		Store:    store,
		Log:      store,
		Files:    files,
		Resolver: f.resolver,
		Evicter:  f.cache,
		Recorder: store,
		Logger:   zaptest.NewLogger(t),
	})
	return f
}

func (f *fixture) path(rel string) string {
	return filepath.Join(f.root, rel)
}

func (f *fixture) scan(t *testing.T) *domain.ScanStats {
	t.Helper()
	stats, err := f.scanner.Scan(context.Background(), f.root, true)
	require.NoError(t, err)
	return stats
}

func TestScan_Discovers(t *testing.T) {
	f := newFixture(t)
	testutil.WriteFiles(t, f.root, "a.txt", "photos/b.txt", ".hidden/c.txt")

	stats := f.scan(t)
	assert.Equal(t, 3, stats.Scanned, "two files and one folder")
	assert.Equal(t, 3, stats.Added)

	ctx := context.Background()
	folder, err := f.store.FindByPath(ctx, f.root, "photos")
	require.NoError(t, err)
	assert.Equal(t, domain.KindFolder, folder.Kind)

	_, err = f.store.FindByPath(ctx, f.path(".hidden"), "c.txt")
	assert.ErrorIs(t, err, application.ErrNotFound)

	last, err := f.store.LastScan(ctx, f.root)
	require.NoError(t, err)
	assert.NotZero(t, last)

	again := f.scan(t)
	assert.Zero(t, again.Added)
	assert.Zero(t, again.Updated)
}

func TestScan_RecordsExternalMove(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	testutil.WriteFiles(t, f.root, "a.txt", "sub/")
	f.scan(t)

	before, err := f.store.FindByPath(ctx, f.root, "a.txt")
	require.NoError(t, err)

	require.NoError(t, os.Rename(f.path("a.txt"), f.path("sub/renamed.txt")))
	stats := f.scan(t)
	assert.Equal(t, 1, stats.Moved)
	assert.Zero(t, stats.Added)

	after, err := f.store.Get(ctx, before.ID)
	require.NoError(t, err)
	assert.Equal(t, f.path("sub/renamed.txt"), after.Path())

	changes, err := f.store.History(ctx, before.ID)
	require.NoError(t, err)
	require.Len(t, changes, 2)
	for _, c := range changes {
		assert.Equal(t, domain.OriginScan, c.Origin)
		assert.Equal(t, domain.StatusSynced, c.Status)
	}
}

func TestScan_MarksMissingAndRecovers(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	testutil.WriteFiles(t, f.root, "a.txt")
	f.scan(t)
	e, err := f.store.FindByPath(ctx, f.root, "a.txt")
	require.NoError(t, err)

	// keep the bytes aside so the identity attribute follows the inode
	aside := filepath.Join(t.TempDir(), "a.txt")
	require.NoError(t, os.Rename(f.path("a.txt"), aside))

	stats := f.scan(t)
	assert.Equal(t, 1, stats.Missing)
	got, err := f.store.Get(ctx, e.ID)
	require.NoError(t, err)
	assert.False(t, got.MissingSince.IsZero())

	require.NoError(t, os.Rename(aside, f.path("a.txt")))
	stats = f.scan(t)
	assert.Zero(t, stats.Missing)
	assert.Equal(t, 1, stats.Updated)
	got, err = f.store.Get(ctx, e.ID)
	require.NoError(t, err)
	assert.True(t, got.MissingSince.IsZero())
}

func TestScan_ReplacedFileDisplacesStaleEntry(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	testutil.WriteFiles(t, f.root, "a.txt")
	f.scan(t)
	old, err := f.store.FindByPath(ctx, f.root, "a.txt")
	require.NoError(t, err)

	// a different file now lives at the same path
	replacement := filepath.Join(t.TempDir(), "a.txt")
	require.NoError(t, os.WriteFile(replacement, []byte("new bytes"), 0644))
	require.NoError(t, os.Rename(replacement, f.path("a.txt")))

	stats := f.scan(t)
	assert.Equal(t, 1, stats.Added)

	cur, err := f.store.FindByPath(ctx, f.root, "a.txt")
	require.NoError(t, err)
	assert.NotEqual(t, old.ID, cur.ID)

	stale, err := f.store.Get(ctx, old.ID)
	require.NoError(t, err)
	assert.False(t, stale.MissingSince.IsZero())
}

func TestScan_SkipsPendingEntries(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	testutil.WriteFiles(t, f.root, "a.txt")
	f.scan(t)
	e, err := f.store.FindByPath(ctx, f.root, "a.txt")
	require.NoError(t, err)

	_, err = f.store.UpdateName(ctx, e.ID, "b.txt", domain.OriginUser)
	require.NoError(t, err)

	stats := f.scan(t)
	assert.Equal(t, 1, stats.Skipped)
	assert.Zero(t, stats.Moved)

	got, err := f.store.Get(ctx, e.ID)
	require.NoError(t, err)
	assert.Equal(t, "b.txt", got.Name, "the pending rename is not overwritten")
}

func TestScan_TransientIdentityAdoptsRow(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.files.NoAttributes = true
	testutil.WriteFiles(t, f.root, "a.txt")

	f.scan(t)
	first, err := f.store.FindByPath(ctx, f.root, "a.txt")
	require.NoError(t, err)

	stats := f.scan(t)
	assert.Zero(t, stats.Added)
	second, err := f.store.FindByPath(ctx, f.root, "a.txt")
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID)
}

func TestScan_EvictsScannedDirectories(t *testing.T) {
	f := newFixture(t)
	testutil.WriteFiles(t, f.root, "sub/a.txt")
	f.cache.Put(domain.ListingKey{Directory: f.path("sub")}, domain.Mapping{})
	f.cache.Put(domain.ListingKey{Directory: f.root}, domain.Mapping{})

	f.scan(t)
	assert.Zero(t, f.cache.Len())
}

func TestScan_RejectsBadRoot(t *testing.T) {
	f := newFixture(t)
	testutil.WriteFiles(t, f.root, "a.txt")

	tests := []struct {
		name string
		root string
	}{
		{name: "relative", root: "photos"},
		{name: "file", root: f.path("a.txt")},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.scanner.Scan(context.Background(), tt.root, false)
			var verr *application.ValidationError
			assert.ErrorAs(t, err, &verr)
		})
	}
}
