package domain

import (
	"path/filepath"
	"strings"
	"time"
)

// Visibility of an entry in listings
type Visibility int

const (
	VisibilityNormal Visibility = iota
	VisibilityHidden
)

func (v Visibility) String() string {
	switch v {
	case VisibilityNormal:
		return "normal"
	case VisibilityHidden:
		return "hidden"
	default:
		return "unknown"
	}
}

// ParseVisibility converts a string to a Visibility
func ParseVisibility(s string) (Visibility, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "normal", "visible", "shown":
		return VisibilityNormal, true
	case "hidden":
		return VisibilityHidden, true
	default:
		return VisibilityNormal, false
	}
}

// ContentKind is the coarse content-type classification of an entry
type ContentKind string

const (
	KindAny      ContentKind = ""
	KindFolder   ContentKind = "folder"
	KindImage    ContentKind = "image"
	KindVideo    ContentKind = "video"
	KindAudio    ContentKind = "audio"
	KindText     ContentKind = "text"
	KindDocument ContentKind = "document"
	KindOther    ContentKind = "other"
)

// AllKinds lists every concrete kind
var AllKinds = []ContentKind{KindFolder, KindImage, KindVideo, KindAudio, KindText, KindDocument, KindOther}

// ParseContentKind converts a string to a ContentKind. "any" and "" map to KindAny.
func ParseContentKind(s string) (ContentKind, bool) {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" || s == "any" {
		return KindAny, true
	}
	for _, k := range AllKinds {
		if string(k) == s {
			return k, true
		}
	}
	return KindAny, false
}

// Matches reports whether kind satisfies the filter k
func (k ContentKind) Matches(kind ContentKind) bool {
	return k == KindAny || k == kind
}

// KindFromMIME maps a MIME type such as "image/jpeg; charset=binary" to a ContentKind
func KindFromMIME(mime string) ContentKind {
	mime = strings.ToLower(mime)
	if i := strings.IndexByte(mime, ';'); i >= 0 {
		mime = mime[:i]
	}
	top, sub, _ := strings.Cut(strings.TrimSpace(mime), "/")
	switch top {
	case "image":
		return KindImage
	case "video":
		return KindVideo
	case "audio":
		return KindAudio
	case "text":
		return KindText
	case "application":
		switch {
		case sub == "pdf", strings.Contains(sub, "document"), strings.Contains(sub, "msword"),
			strings.Contains(sub, "epub"), strings.Contains(sub, "rtf"), strings.Contains(sub, "opendocument"):
			return KindDocument
		case sub == "json", sub == "xml", strings.HasSuffix(sub, "+xml"), strings.HasSuffix(sub, "+json"):
			return KindText
		}
	}
	return KindOther
}

// IndexedEntry is the metadata row describing one tracked filesystem item
type IndexedEntry struct {
	ID           ContentID
	Name         string // bare filename
	Location     string // absolute containing directory
	Volume       string
	Kind         ContentKind
	Size         int64
	CreatedAt    time.Time
	ModifiedAt   time.Time
	Comment      string
	Visibility   Visibility
	WrittenAt    int64     // monotonic write stamp, unix nanoseconds
	MissingSince time.Time // zero while the file was last seen on disk
}

// Path returns the full last-known path
func (e *IndexedEntry) Path() string {
	return filepath.Join(e.Location, e.Name)
}

// Pointer returns the entry's content pointer
func (e *IndexedEntry) Pointer() ContentPointer {
	return ContentPointer{ID: e.ID, Path: e.Path()}
}

// IsFolder reports whether the entry describes a directory
func (e *IndexedEntry) IsFolder() bool {
	return e.Kind == KindFolder
}

// Component returns the value of a path column
func (e *IndexedEntry) Component(c Column) string {
	switch c {
	case ColumnName:
		return e.Name
	case ColumnLocation:
		return e.Location
	default:
		return ""
	}
}

// EntryRow is an indexed entry joined with its tag count
type EntryRow struct {
	IndexedEntry
	TagCount int
}

// FileStat is what the filesystem reports about a path
type FileStat struct {
	Size       int64
	IsDir      bool
	ModifiedAt time.Time
	CreatedAt  time.Time
	Volume     string
}
