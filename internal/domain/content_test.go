package domain

import (
	"strings"
	"testing"
)

func TestParseContentID(t *testing.T) {
	id := NewContentID()

	got, err := ParseContentID("  " + id.String() + "\n")
	if err != nil {
		t.Fatalf("ParseContentID failed: %v", err)
	}
	if got != id {
		t.Errorf("expected %s, got %s", id, got)
	}

	if _, err := ParseContentID("S01.11.15"); err == nil {
		t.Error("expected an error for a non-UUID identifier")
	}
}

func TestNewContentID_Unique(t *testing.T) {
	seen := make(map[ContentID]bool)
	for i := 0; i < 100; i++ {
		id := NewContentID()
		if seen[id] {
			t.Fatalf("duplicate identifier %s", id)
		}
		seen[id] = true
	}
}

func TestContentID_Short(t *testing.T) {
	id := ContentID("6f1c2b8e-3d4a-4c6b-9e2f-1a2b3c4d5e6f")
	if got := id.Short(); got != "6f1c2b8e" {
		t.Errorf("expected 6f1c2b8e, got %s", got)
	}
	if got := ContentID("abc").Short(); got != "abc" {
		t.Errorf("expected abc, got %s", got)
	}
}

func TestValidateFileName(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantErr string
	}{
		{name: "plain", input: "holiday.jpg"},
		{name: "spaces", input: "summer holiday.jpg"},
		{name: "leading dot", input: ".profile"},
		{name: "empty", input: "", wantErr: "empty"},
		{name: "dot", input: ".", wantErr: "reserved"},
		{name: "dot dot", input: "..", wantErr: "reserved"},
		{name: "separator", input: "a/b.jpg", wantErr: "separator"},
		{name: "nul", input: "a\x00b", wantErr: "NUL"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateFileName(tt.input)
			if tt.wantErr == "" {
				if err != nil {
					t.Errorf("unexpected error: %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("expected error containing %q, got %v", tt.wantErr, err)
			}
		})
	}
}

func TestValidateLocation(t *testing.T) {
	tests := []struct {
		input   string
		wantErr bool
	}{
		{"/", false},
		{"/photos/2024", false},
		{"", true},
		{"photos", true},
		{"/photos/", true},
		{"/photos/../docs", true},
	}

	for _, tt := range tests {
		err := ValidateLocation(tt.input)
		if (err != nil) != tt.wantErr {
			t.Errorf("ValidateLocation(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
		}
	}
}

func TestIsWithin(t *testing.T) {
	tests := []struct {
		path, dir string
		want      bool
	}{
		{"/photos", "/photos", true},
		{"/photos/2024", "/photos", true},
		{"/photos/2024/summer", "/photos", true},
		{"/photos2", "/photos", false},
		{"/docs", "/photos", false},
		{"/anything", "/", true},
	}

	for _, tt := range tests {
		if got := IsWithin(tt.path, tt.dir); got != tt.want {
			t.Errorf("IsWithin(%q, %q) = %v, want %v", tt.path, tt.dir, got, tt.want)
		}
	}
}

func TestContentPointer(t *testing.T) {
	p := ContentPointer{ID: NewContentID(), Path: "/photos/2024/beach.jpg"}
	if p.Dir() != "/photos/2024" {
		t.Errorf("expected /photos/2024, got %s", p.Dir())
	}
	if p.Name() != "beach.jpg" {
		t.Errorf("expected beach.jpg, got %s", p.Name())
	}
}
