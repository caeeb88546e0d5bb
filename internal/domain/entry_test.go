package domain

import "testing"

func TestKindFromMIME(t *testing.T) {
	tests := []struct {
		mime string
		want ContentKind
	}{
		{"image/jpeg", KindImage},
		{"IMAGE/PNG", KindImage},
		{"video/mp4", KindVideo},
		{"audio/mpeg", KindAudio},
		{"text/plain; charset=utf-8", KindText},
		{"application/pdf", KindDocument},
		{"application/vnd.openxmlformats-officedocument.wordprocessingml.document", KindDocument},
		{"application/epub+zip", KindDocument},
		{"application/json", KindText},
		{"image/svg+xml", KindImage},
		{"application/octet-stream", KindOther},
		{"", KindOther},
	}

	for _, tt := range tests {
		if got := KindFromMIME(tt.mime); got != tt.want {
			t.Errorf("KindFromMIME(%q) = %s, want %s", tt.mime, got, tt.want)
		}
	}
}

func TestParseContentKind(t *testing.T) {
	tests := []struct {
		input  string
		want   ContentKind
		wantOK bool
	}{
		{"", KindAny, true},
		{"any", KindAny, true},
		{" Image ", KindImage, true},
		{"folder", KindFolder, true},
		{"spreadsheet", KindAny, false},
	}

	for _, tt := range tests {
		got, ok := ParseContentKind(tt.input)
		if got != tt.want || ok != tt.wantOK {
			t.Errorf("ParseContentKind(%q) = %s, %v; want %s, %v", tt.input, got, ok, tt.want, tt.wantOK)
		}
	}
}

func TestContentKind_Matches(t *testing.T) {
	if !KindAny.Matches(KindVideo) {
		t.Error("KindAny should match every kind")
	}
	if !KindImage.Matches(KindImage) {
		t.Error("a kind should match itself")
	}
	if KindImage.Matches(KindVideo) {
		t.Error("image should not match video")
	}
}

func TestParseVisibility(t *testing.T) {
	tests := []struct {
		input  string
		want   Visibility
		wantOK bool
	}{
		{"normal", VisibilityNormal, true},
		{"Visible", VisibilityNormal, true},
		{"hidden", VisibilityHidden, true},
		{"secret", VisibilityNormal, false},
	}

	for _, tt := range tests {
		got, ok := ParseVisibility(tt.input)
		if got != tt.want || ok != tt.wantOK {
			t.Errorf("ParseVisibility(%q) = %s, %v; want %s, %v", tt.input, got, ok, tt.want, tt.wantOK)
		}
	}
}

func TestParseSortField(t *testing.T) {
	tests := []struct {
		input  string
		want   SortField
		wantOK bool
	}{
		{"", SortByName, true},
		{"Modified", SortByModified, true},
		{"size", SortBySize, true},
		{"written", SortByWritten, true},
		{"colour", SortByName, false},
	}

	for _, tt := range tests {
		got, ok := ParseSortField(tt.input)
		if got != tt.want || ok != tt.wantOK {
			t.Errorf("ParseSortField(%q) = %s, %v; want %s, %v", tt.input, got, ok, tt.want, tt.wantOK)
		}
	}
}

func TestIndexedEntry_Component(t *testing.T) {
	e := &IndexedEntry{Name: "a.jpg", Location: "/photos"}
	if e.Component(ColumnName) != "a.jpg" || e.Component(ColumnLocation) != "/photos" {
		t.Errorf("unexpected components %q %q", e.Component(ColumnName), e.Component(ColumnLocation))
	}
	if e.Path() != "/photos/a.jpg" {
		t.Errorf("expected /photos/a.jpg, got %s", e.Path())
	}
	if ColumnName.Other() != ColumnLocation || ColumnLocation.Other() != ColumnName {
		t.Error("Other should swap the path columns")
	}
}

func TestOrigin_InitialStatus(t *testing.T) {
	tests := []struct {
		origin Origin
		want   SyncStatus
	}{
		{OriginUser, StatusPending},
		{OriginCompensation, StatusPending},
		{OriginScan, StatusSynced},
		{OriginCascade, StatusSynced},
	}
	for _, tt := range tests {
		if got := tt.origin.InitialStatus(); got != tt.want {
			t.Errorf("%s.InitialStatus() = %s, want %s", tt.origin, got, tt.want)
		}
	}
}

func TestMapping_Lookup(t *testing.T) {
	a, b := NewContentID(), NewContentID()
	m := Mapping{
		{ID: a, Path: "/photos/a.jpg"}: FileURL("/photos/a.jpg"),
	}

	p, ok := m.Lookup(a)
	if !ok || p.Path != "/photos/a.jpg" {
		t.Errorf("expected to find a at /photos/a.jpg, got %+v %v", p, ok)
	}
	if m.Contains(b) {
		t.Error("b should not be in the mapping")
	}
	if got := m[p]; got != "file:///photos/a.jpg" {
		t.Errorf("unexpected URL %s", got)
	}
}

func TestFileURL_EscapesSpaces(t *testing.T) {
	if got := FileURL("/photos/summer holiday.jpg"); got != "file:///photos/summer%20holiday.jpg" {
		t.Errorf("unexpected URL %s", got)
	}
}
