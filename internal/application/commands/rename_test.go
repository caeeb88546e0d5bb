package commands

import (
	"context"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"marginalia/internal/adapters/sqlite"
	"marginalia/internal/application"
	"marginalia/internal/domain"
)

const (
	validID  = "6f1c2b8e-3d4a-4c6b-9e2f-1a2b3c4d5e6f"
	validID2 = "0b9d8c7a-6e5f-4a3b-8c2d-1e0f9a8b7c6d"
)

func contains(s, substr string) bool {
	return strings.Contains(s, substr)
}

func openStore(t *testing.T) *sqlite.Store {
	t.Helper()
	s, err := sqlite.Open(context.Background(), sqlite.Options{Path: filepath.Join(t.TempDir(), "marginalia.db")})
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func seed(t *testing.T, s *sqlite.Store, location, name string) *domain.IndexedEntry {
	t.Helper()
	e := &domain.IndexedEntry{
		ID:         domain.NewContentID(),
		Name:       name,
		Location:   location,
		Kind:       domain.KindText,
		Size:       10,
		ModifiedAt: time.Unix(1_600_000_000, 0),
	}
	require.NoError(t, s.Insert(context.Background(), e))
	return e
}

func TestRenameCommand_Validate(t *testing.T) {
	tests := []struct {
		name    string
		id      string
		newName string
		wantErr bool
		errMsg  string
	}{
		{
			name:    "valid rename",
			id:      validID,
			newName: "holiday.jpg",
			wantErr: false,
		},
		{
			name:    "empty ID",
			id:      "",
			newName: "holiday.jpg",
			wantErr: true,
			errMsg:  "content ID is required",
		},
		{
			name:    "malformed ID",
			id:      "not-a-uuid",
			newName: "holiday.jpg",
			wantErr: true,
			errMsg:  "invalid content ID",
		},
		{
			name:    "empty name",
			id:      validID,
			newName: "",
			wantErr: true,
			errMsg:  "new name is required",
		},
		{
			name:    "whitespace name",
			id:      validID,
			newName: "   ",
			wantErr: true,
			errMsg:  "new name is required",
		},
		{
			name:    "name with separator",
			id:      validID,
			newName: "photos/holiday.jpg",
			wantErr: true,
			errMsg:  "path separator",
		},
		{
			name:    "dot dot",
			id:      validID,
			newName: "..",
			wantErr: true,
			errMsg:  "reserved",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cmd := &RenameCommand{
				ContentID: tt.id,
				NewName:   tt.newName,
			}
			err := cmd.Validate()

			if tt.wantErr {
				if err == nil {
					t.Errorf("expected error containing %q, got nil", tt.errMsg)
					return
				}
				if !contains(err.Error(), tt.errMsg) {
					t.Errorf("expected error containing %q, got %q", tt.errMsg, err.Error())
				}
			} else {
				if err != nil {
					t.Errorf("unexpected error: %v", err)
				}
			}
		})
	}
}

func TestRelocateCommand_Validate(t *testing.T) {
	tests := []struct {
		name     string
		ids      []string
		location string
		wantErr  bool
		errMsg   string
	}{
		{
			name:     "valid batch",
			ids:      []string{validID, validID2},
			location: "/photos/2024",
			wantErr:  false,
		},
		{
			name:     "no IDs",
			ids:      nil,
			location: "/photos",
			wantErr:  true,
			errMsg:   "at least one content ID is required",
		},
		{
			name:     "empty location",
			ids:      []string{validID},
			location: "",
			wantErr:  true,
			errMsg:   "new location is required",
		},
		{
			name:     "relative location",
			ids:      []string{validID},
			location: "photos",
			wantErr:  true,
			errMsg:   "not absolute",
		},
		{
			name:     "unclean location",
			ids:      []string{validID},
			location: "/photos/../docs",
			wantErr:  true,
			errMsg:   "not clean",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cmd := &RelocateCommand{ContentIDs: tt.ids, Location: tt.location}
			err := cmd.Validate()

			if tt.wantErr {
				if err == nil {
					t.Errorf("expected error containing %q, got nil", tt.errMsg)
					return
				}
				if !contains(err.Error(), tt.errMsg) {
					t.Errorf("expected error containing %q, got %q", tt.errMsg, err.Error())
				}
			} else if err != nil {
				t.Errorf("unexpected error: %v", err)
			}
		})
	}
}

func TestRenameCommand_Execute(t *testing.T) {
	ctx := context.Background()
	s := openStore(t)
	e := seed(t, s, "/photos", "a.jpg")

	res, err := NewRenameCommand(s, e.ID.String(), " b.jpg ").Execute(ctx)
	require.NoError(t, err)
	require.NotNil(t, res.Change)
	assert.Equal(t, "a.jpg", res.Change.OldValue)
	assert.Equal(t, domain.StatusPending, res.Change.Status)
	assert.Equal(t, "Renamed a.jpg to b.jpg", res.Message)

	res, err = NewRenameCommand(s, e.ID.String(), "b.jpg").Execute(ctx)
	require.NoError(t, err)
	assert.Nil(t, res.Change, "renaming to the current name logs nothing")
}

func TestRenameCommand_Conflict(t *testing.T) {
	ctx := context.Background()
	s := openStore(t)
	e := seed(t, s, "/photos", "a.jpg")
	seed(t, s, "/photos", "b.jpg")

	_, err := NewRenameCommand(s, e.ID.String(), "b.jpg").Execute(ctx)
	assert.ErrorIs(t, err, application.ErrPathConflict)
}

func TestRelocateCommand_Execute(t *testing.T) {
	ctx := context.Background()
	s := openStore(t)
	a := seed(t, s, "/inbox", "a.txt")
	b := seed(t, s, "/docs", "b.txt")

	res, err := NewRelocateCommand(s, []string{a.ID.String(), b.ID.String()}, "/docs").Execute(ctx)
	require.NoError(t, err)
	assert.Len(t, res.Changes, 1, "entries already there are skipped")
	assert.Equal(t, "Relocated 1 of 2 entries to /docs", res.Message)

	_, err = NewRelocateCommand(s, []string{domain.NewContentID().String()}, "/docs").Execute(ctx)
	assert.ErrorIs(t, err, application.ErrNotFound)
}
