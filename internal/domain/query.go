package domain

import (
	"strings"
	"time"
)

// SortField orders query results
type SortField string

const (
	SortByName     SortField = "name"
	SortByModified SortField = "modified"
	SortBySize     SortField = "size"
	SortByWritten  SortField = "written"
)

// ParseSortField converts a user-supplied sort key
func ParseSortField(s string) (SortField, bool) {
	switch SortField(strings.ToLower(strings.TrimSpace(s))) {
	case "", SortByName:
		return SortByName, true
	case SortByModified:
		return SortByModified, true
	case SortBySize:
		return SortBySize, true
	case SortByWritten:
		return SortByWritten, true
	}
	return SortByName, false
}

// EntryQuery is the parameter object for the query API
type EntryQuery struct {
	Tags           []string // entries must carry all of them
	Kinds          []ContentKind
	Visibility     *Visibility // nil matches any
	Location       string
	Recursive      bool // include subdirectories of Location
	ModifiedAfter  time.Time
	ModifiedBefore time.Time
	NameContains   string
	Sort           SortField
	Descending     bool
	Limit          int
	Offset         int
}

// ScanStats holds statistics from a directory scan
type ScanStats struct {
	Scanned  int
	Added    int
	Updated  int
	Moved    int
	Missing  int
	Skipped  int
	Duration time.Duration
}
