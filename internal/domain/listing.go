package domain

import (
	"net/url"
	"path/filepath"
)

// ListingMode selects how a directory is enumerated
type ListingMode struct {
	Recursive     bool
	IncludeHidden bool
}

// ListingKey identifies one cached directory listing
type ListingKey struct {
	Directory string
	Mode      ListingMode
	Filter    ContentKind
}

// Mapping maps each listed pointer to its resolved file URL
type Mapping map[ContentPointer]string

// Contains reports whether id is present in the mapping
func (m Mapping) Contains(id ContentID) bool {
	_, ok := m.Lookup(id)
	return ok
}

// Lookup finds the pointer for id
func (m Mapping) Lookup(id ContentID) (ContentPointer, bool) {
	for p := range m {
		if p.ID == id {
			return p, true
		}
	}
	return ContentPointer{}, false
}

// FileURL returns the file:// URL for an absolute path
func FileURL(path string) string {
	u := url.URL{Scheme: "file", Path: filepath.ToSlash(path)}
	return u.String()
}
