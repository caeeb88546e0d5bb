package service

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"marginalia/internal/application/commands"
	"marginalia/internal/application/identity"
	"marginalia/internal/config"
	"marginalia/internal/domain"
)

func testConfig(t *testing.T, root string) *config.Config {
	t.Helper()
	dir := t.TempDir()
	return &config.Config{
		Logging:  config.LoggingConfig{Level: "DEBUG", Format: "console", Output: "stderr"},
		Database: config.DatabaseConfig{Profile: "test", Path: filepath.Join(dir, "test.db"), ReadPoolSize: 2},
		Identity: config.IdentityConfig{
			Attribute:      identity.DefaultAttribute,
			SidecarEnabled: true,
			SidecarPath:    filepath.Join(dir, "test.sidecar"),
		},
		Reconcile: config.ReconcileConfig{
			Interval: time.Second,
			Workers:  2,
			Compensate: config.CompensateConfig{
				DestinationExists:     true,
				DestinationDirMissing: true,
				MoveFailed:            true,
			},
		},
		Cache: config.CacheConfig{MaxEntries: 16},
		Roots: []string{root},
	}
}

func newService(t *testing.T, root string) *Service {
	t.Helper()
	s, err := New(context.Background(), testConfig(t, root), zaptest.NewLogger(t))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestEngineConfig(t *testing.T) {
	rc := config.ReconcileConfig{
		Interval:        3 * time.Second,
		Window:          10 * time.Second,
		MaxItemsPerPass: 7,
		Workers:         2,
		Compensate:      config.CompensateConfig{SourceMissing: true},
	}
	got := EngineConfig(rc)

	assert.Equal(t, 3*time.Second, got.Interval)
	assert.Equal(t, 10*time.Second, got.Window)
	assert.Equal(t, 7, got.MaxItemsPerPass)
	assert.True(t, got.Policy.Allows(domain.FailureSourceMissing))
	assert.False(t, got.Policy.Allows(domain.FailureDestinationExists))
}

func TestService_RenameAndCompensate(t *testing.T) {
	ctx := context.Background()
	root := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(root, "a.txt"), []byte("alpha"), 0644))

	s := newService(t, root)

	stats, err := s.ScanRoots(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, stats.Added)

	entry, err := s.Store.FindByPath(ctx, root, "a.txt")
	require.NoError(t, err)

	// rename succeeds on disk after a pass
	_, err = commands.NewRenameCommand(s.Store, entry.ID.String(), "b.txt").Execute(ctx)
	require.NoError(t, err)
	pass, err := s.Sync(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, pass.Synced)
	assert.FileExists(t, filepath.Join(root, "b.txt"))
	assert.NoFileExists(t, filepath.Join(root, "a.txt"))

	// an unindexed file blocks the next rename, which is reverted
	require.NoError(t, os.WriteFile(filepath.Join(root, "c.txt"), []byte("other"), 0644))
	_, err = commands.NewRenameCommand(s.Store, entry.ID.String(), "c.txt").Execute(ctx)
	require.NoError(t, err)

	pass, err = s.Sync(ctx)
	require.NoError(t, err)
	require.Len(t, pass.Failures, 1)
	assert.Equal(t, domain.FailureDestinationExists, pass.Failures[0].Kind)
	assert.True(t, pass.Failures[0].Compensated)
	require.Len(t, s.Failures.Failures(), 1)

	got, err := s.Store.Get(ctx, entry.ID)
	require.NoError(t, err)
	assert.Equal(t, "b.txt", got.Name)

	_, err = s.Sync(ctx)
	require.NoError(t, err)
	pending, err := s.Store.PendingItems(ctx, domain.KindAny, domain.LogFilter{})
	require.NoError(t, err)
	assert.Empty(t, pending)

	data, err := os.ReadFile(filepath.Join(root, "c.txt"))
	require.NoError(t, err)
	assert.Equal(t, "other", string(data))
}

func TestService_ListingSeesRenames(t *testing.T) {
	ctx := context.Background()
	root := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(root, "a.txt"), []byte("alpha"), 0644))

	s := newService(t, root)
	_, err := s.ScanRoots(ctx)
	require.NoError(t, err)
	entry, err := s.Store.FindByPath(ctx, root, "a.txt")
	require.NoError(t, err)

	key := domain.ListingKey{Directory: root}
	before, err := s.Lister.List(ctx, key)
	require.NoError(t, err)
	p, ok := before.Lookup(entry.ID)
	require.True(t, ok)
	assert.Equal(t, filepath.Join(root, "a.txt"), p.Path)

	_, err = commands.NewRenameCommand(s.Store, entry.ID.String(), "b.txt").Execute(ctx)
	require.NoError(t, err)
	_, err = s.Sync(ctx)
	require.NoError(t, err)

	after, err := s.Lister.List(ctx, key)
	require.NoError(t, err)
	p, ok = after.Lookup(entry.ID)
	require.True(t, ok)
	assert.Equal(t, filepath.Join(root, "b.txt"), p.Path)
}

func TestService_RunStopsOnCancel(t *testing.T) {
	s := newService(t, t.TempDir())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Run(ctx) }()
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("Run did not stop")
	}
}
