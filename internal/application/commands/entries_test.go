package commands

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"marginalia/internal/application"
	"marginalia/internal/application/listing"
	"marginalia/internal/domain"
	"marginalia/internal/testutil"
)

func TestVisibilityCommand(t *testing.T) {
	ctx := context.Background()
	s := openStore(t)
	e := seed(t, s, "/photos", "a.jpg")
	cache := listing.NewCache(listing.DefaultConfig(), nil)
	cache.Put(domain.ListingKey{Directory: "/photos"}, domain.Mapping{})
	cache.Put(domain.ListingKey{Directory: "/docs"}, domain.Mapping{})

	res, err := NewVisibilityCommand(s, cache, []string{e.ID.String()}, "hidden").Execute(ctx)
	require.NoError(t, err)
	assert.Equal(t, domain.VisibilityHidden, res.Visibility)
	assert.Equal(t, 1, cache.Len(), "only the entry's directory is evicted")

	got, err := s.Get(ctx, e.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.VisibilityHidden, got.Visibility)

	history, err := s.History(ctx, e.ID)
	require.NoError(t, err)
	assert.Empty(t, history, "visibility has no filesystem implication")

	_, err = NewVisibilityCommand(s, nil, []string{e.ID.String()}, "invisible").Execute(ctx)
	var verr *application.ValidationError
	assert.ErrorAs(t, err, &verr)
}

func TestForgetCommand(t *testing.T) {
	ctx := context.Background()
	s := openStore(t)
	e := seed(t, s, "/photos", "a.jpg")
	require.NoError(t, s.AddTags(ctx, e.ID, "beach"))
	cache := listing.NewCache(listing.DefaultConfig(), nil)
	cache.Put(domain.ListingKey{Directory: "/photos"}, domain.Mapping{})

	res, err := NewForgetCommand(s, cache, []string{e.ID.String()}).Execute(ctx)
	require.NoError(t, err)
	require.Len(t, res.Forgotten, 1)
	assert.Equal(t, "/photos/a.jpg", res.Forgotten[0].Path)
	assert.Zero(t, cache.Len())

	_, err = s.Get(ctx, e.ID)
	assert.ErrorIs(t, err, application.ErrNotFound)

	_, err = NewForgetCommand(s, nil, []string{e.ID.String()}).Execute(ctx)
	assert.ErrorIs(t, err, application.ErrNotFound)
}

func TestCommentCommand(t *testing.T) {
	ctx := context.Background()
	s := openStore(t)
	e := seed(t, s, "/docs", "a.txt")

	res, err := NewCommentCommand(s, e.ID.String(), "signed copy").Execute(ctx)
	require.NoError(t, err)
	assert.Contains(t, res.Message, "Updated")

	got, err := s.Get(ctx, e.ID)
	require.NoError(t, err)
	assert.Equal(t, "signed copy", got.Comment)

	res, err = NewCommentCommand(s, e.ID.String(), "").Execute(ctx)
	require.NoError(t, err)
	assert.Contains(t, res.Message, "Cleared")
}

func TestTagCommand(t *testing.T) {
	ctx := context.Background()
	s := openStore(t)
	e := seed(t, s, "/photos", "a.jpg")

	res, err := NewTagCommand(s, e.ID.String(), []string{" Beach ", "summer"}).Execute(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"beach", "summer"}, res.Tags)

	res, err = NewUntagCommand(s, e.ID.String(), []string{"beach"}).Execute(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"summer"}, res.Tags)

	tests := []struct {
		name   string
		tags   []string
		errMsg string
	}{
		{name: "no tags", tags: nil, errMsg: "at least one tag"},
		{name: "blank tag", tags: []string{"  "}, errMsg: "tag is required"},
		{name: "separator", tags: []string{"a,b"}, errMsg: "separator"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := NewTagCommand(s, e.ID.String(), tt.tags).Validate()
			if err == nil || !contains(err.Error(), tt.errMsg) {
				t.Errorf("expected error containing %q, got %v", tt.errMsg, err)
			}
		})
	}
}

func TestQueueCommand(t *testing.T) {
	ctx := context.Background()
	s := openStore(t)
	a := seed(t, s, "/photos", "a.jpg")
	b := seed(t, s, "/photos", "b.jpg")

	_, err := NewEnqueueCommand(s, "print", []string{b.ID.String()}).Execute(ctx)
	require.NoError(t, err)
	res, err := NewEnqueueCommand(s, "print", []string{a.ID.String(), b.ID.String()}).Execute(ctx)
	require.NoError(t, err)
	assert.Equal(t, []domain.ContentID{b.ID, a.ID}, res.Members, "existing members keep their place")

	entries, err := NewShowQueueCommand(s, "print").Execute(ctx)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, "b.jpg", entries[0].Name)

	res, err = NewDequeueCommand(s, "print", []string{b.ID.String()}).Execute(ctx)
	require.NoError(t, err)
	assert.Equal(t, []domain.ContentID{a.ID}, res.Members)

	err = NewEnqueueCommand(s, " ", []string{a.ID.String()}).Validate()
	assert.Error(t, err)
}

func TestQueryCommand_Validate(t *testing.T) {
	after := time.Unix(1_700_000_000, 0)
	tests := []struct {
		name    string
		req     QueryRequest
		wantErr bool
		errMsg  string
	}{
		{
			name:    "empty query",
			req:     QueryRequest{},
			wantErr: false,
		},
		{
			name:    "full query",
			req:     QueryRequest{Tags: []string{"Beach"}, Kinds: []string{"image"}, Visibility: "hidden", Location: "/photos", Sort: "size", Limit: 10},
			wantErr: false,
		},
		{
			name:    "unknown kind",
			req:     QueryRequest{Kinds: []string{"hologram"}},
			wantErr: true,
			errMsg:  "unknown kind",
		},
		{
			name:    "unknown visibility",
			req:     QueryRequest{Visibility: "ghostly"},
			wantErr: true,
			errMsg:  "unknown visibility",
		},
		{
			name:    "relative location",
			req:     QueryRequest{Location: "photos"},
			wantErr: true,
			errMsg:  "not absolute",
		},
		{
			name:    "unknown sort",
			req:     QueryRequest{Sort: "colour"},
			wantErr: true,
			errMsg:  "cannot sort by",
		},
		{
			name:    "negative limit",
			req:     QueryRequest{Limit: -1},
			wantErr: true,
			errMsg:  "must not be negative",
		},
		{
			name:    "inverted date range",
			req:     QueryRequest{ModifiedAfter: after, ModifiedBefore: after.Add(-time.Hour)},
			wantErr: true,
			errMsg:  "must be before",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := (&QueryCommand{Request: tt.req}).Validate()
			if tt.wantErr {
				if err == nil || !contains(err.Error(), tt.errMsg) {
					t.Errorf("expected error containing %q, got %v", tt.errMsg, err)
				}
			} else if err != nil {
				t.Errorf("unexpected error: %v", err)
			}
		})
	}
}

func TestQueryCommand_Execute(t *testing.T) {
	ctx := context.Background()
	s := openStore(t)
	a := seed(t, s, "/photos", "a.jpg")
	seed(t, s, "/photos/2024", "b.jpg")
	seed(t, s, "/docs", "c.txt")
	require.NoError(t, s.AddTags(ctx, a.ID, "beach"))

	rows, err := NewQueryCommand(s, QueryRequest{Location: "/photos", Recursive: true}).Execute(ctx)
	require.NoError(t, err)
	assert.Len(t, rows, 2)

	rows, err = NewQueryCommand(s, QueryRequest{Tags: []string{"BEACH"}}).Execute(ctx)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, a.ID, rows[0].ID)
	assert.Equal(t, 1, rows[0].TagCount)
}

func TestLostCommand(t *testing.T) {
	ctx := context.Background()
	s := openStore(t)
	root := t.TempDir()
	testutil.WriteFiles(t, root, "here.txt", "sub/also.txt")
	seed(t, s, root, "here.txt")
	seed(t, s, filepath.Join(root, "sub"), "also.txt")
	gone := seed(t, s, root, "gone.txt")
	seed(t, s, "/elsewhere", "other.txt")

	cmd := NewLostCommand(s, testutil.NewFS())
	cmd.Within = root
	res, err := cmd.Execute(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, res.Checked)
	require.Len(t, res.Lost, 1)
	assert.Equal(t, gone.ID, res.Lost[0].ID)
}

func TestHistoryCommand(t *testing.T) {
	ctx := context.Background()
	s := openStore(t)
	e := seed(t, s, "/photos", "a.jpg")
	_, err := s.UpdateName(ctx, e.ID, "b.jpg", domain.OriginUser)
	require.NoError(t, err)
	_, err = s.UpdateLocation(ctx, []domain.ContentID{e.ID}, "/archive", domain.OriginUser)
	require.NoError(t, err)

	res, err := NewHistoryCommand(s, s, e.ID.String()).Execute(ctx)
	require.NoError(t, err)
	assert.Equal(t, "/archive/b.jpg", res.Entry.Path())
	require.Len(t, res.Changes, 2)
	assert.Equal(t, domain.ColumnName, res.Changes[0].Column)
	assert.Equal(t, domain.ColumnLocation, res.Changes[1].Column)
}

func TestStatusAndPrune(t *testing.T) {
	ctx := context.Background()
	s := openStore(t)
	a := seed(t, s, "/photos", "a.jpg")
	b := seed(t, s, "/photos", "b.jpg")
	pending, err := s.UpdateName(ctx, a.ID, "a2.jpg", domain.OriginUser)
	require.NoError(t, err)
	failed, err := s.UpdateName(ctx, b.ID, "b2.jpg", domain.OriginUser)
	require.NoError(t, err)
	require.NoError(t, s.MarkFailed(ctx, failed.Seq, "destination exists"))

	status, err := NewStatusCommand(s, s).Execute(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, status.Stats.Entries)
	assert.Equal(t, 1, status.Stats.Pending)
	require.Len(t, status.Pending, 1)
	assert.Equal(t, pending.Seq, status.Pending[0].Seq)
	require.Len(t, status.Failed, 1)
	assert.Equal(t, failed.Seq, status.Failed[0].Seq)

	prune := NewPruneCommand(s, time.Hour)
	prune.now = func() time.Time { return time.Now().Add(2 * time.Hour) }
	res, err := prune.Execute(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), res.Removed, "only the failed change is settled")

	_, err = NewPruneCommand(s, 0).Execute(ctx)
	var verr *application.ValidationError
	assert.ErrorAs(t, err, &verr)
}

type fakeScanner struct {
	root      string
	recursive bool
}

func (f *fakeScanner) Scan(_ context.Context, root string, recursive bool) (*domain.ScanStats, error) {
	f.root, f.recursive = root, recursive
	if _, err := os.Stat(root); err != nil {
		return nil, err
	}
	return &domain.ScanStats{Scanned: 3, Added: 2, Skipped: 1}, nil
}

func TestScanCommand(t *testing.T) {
	ctx := context.Background()
	root := t.TempDir()
	scanner := &fakeScanner{}

	res, err := NewScanCommand(scanner, root+"/", true).Execute(ctx)
	require.NoError(t, err)
	assert.Equal(t, root, scanner.root, "root is cleaned")
	assert.True(t, scanner.recursive)
	assert.Equal(t, "Scanned 3 paths: 2 added, 0 moved, 0 updated, 0 missing, 1 skipped", res.Message)

	_, err = NewScanCommand(scanner, "relative/dir", false).Execute(ctx)
	var verr *application.ValidationError
	assert.ErrorAs(t, err, &verr)

	_, err = NewScanCommand(scanner, filepath.Join(root, "absent"), false).Execute(ctx)
	assert.ErrorIs(t, err, os.ErrNotExist)
}
