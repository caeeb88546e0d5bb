package domain

import (
	"fmt"
	"time"
)

// Column names a path column of the entries table. Only these two carry
// filesystem implications and are captured by the change log.
type Column string

const (
	ColumnName     Column = "name"
	ColumnLocation Column = "location"
)

// Other returns the complementary path column
func (c Column) Other() Column {
	if c == ColumnName {
		return ColumnLocation
	}
	return ColumnName
}

// ParseColumn converts a stored column name
func ParseColumn(s string) (Column, error) {
	switch Column(s) {
	case ColumnName, ColumnLocation:
		return Column(s), nil
	}
	return "", fmt.Errorf("unknown change log column %q", s)
}

// SyncStatus is the reconciliation state of a change log entry
type SyncStatus string

const (
	StatusPending SyncStatus = "pending"
	StatusSynced  SyncStatus = "synced"
	StatusFailed  SyncStatus = "failed"
)

// Terminal reports whether no further transition is allowed
func (s SyncStatus) Terminal() bool {
	return s == StatusSynced || s == StatusFailed
}

// ParseSyncStatus converts a stored status
func ParseSyncStatus(s string) (SyncStatus, error) {
	switch SyncStatus(s) {
	case StatusPending, StatusSynced, StatusFailed:
		return SyncStatus(s), nil
	}
	return "", fmt.Errorf("unknown sync status %q", s)
}

// Origin records which path produced a change log entry
type Origin string

const (
	OriginUser         Origin = "user"
	OriginCompensation Origin = "compensation"
	OriginScan         Origin = "scan"
	OriginCascade      Origin = "cascade"
)

// InitialStatus is the status an entry of this origin is created with.
// Scan and cascade changes describe moves the filesystem already reflects.
func (o Origin) InitialStatus() SyncStatus {
	switch o {
	case OriginScan, OriginCascade:
		return StatusSynced
	default:
		return StatusPending
	}
}

// ChangeLogEntry is the audit record of one name or location mutation
type ChangeLogEntry struct {
	Seq       int64
	ContentID ContentID
	Column    Column
	OldValue  string
	NewValue  string
	ChangedAt time.Time
	Status    SyncStatus
	Origin    Origin
	Detail    string // failure reason, empty otherwise
}

func (e ChangeLogEntry) String() string {
	return fmt.Sprintf("#%d %s %s: %q -> %q [%s]", e.Seq, e.ContentID.Short(), e.Column, e.OldValue, e.NewValue, e.Status)
}

// LogFilter bounds a change log scan
type LogFilter struct {
	Since time.Time // zero disables the recency window
	Limit int       // zero means unlimited
}
