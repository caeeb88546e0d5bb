package domain

import (
	"fmt"
	"time"
)

// FailureKind classifies why a change could not be reconciled
type FailureKind int

const (
	FailureSourceMissing FailureKind = iota
	FailureDestinationExists
	FailureDestinationDirMissing
	FailureMoveFailed
	FailureEntryMissing
	FailureSourceMismatch
)

func (k FailureKind) String() string {
	switch k {
	case FailureSourceMissing:
		return "source missing"
	case FailureDestinationExists:
		return "destination exists"
	case FailureDestinationDirMissing:
		return "destination directory unavailable"
	case FailureMoveFailed:
		return "move failed"
	case FailureEntryMissing:
		return "entry missing"
	case FailureSourceMismatch:
		return "source holds another file"
	default:
		return "unknown"
	}
}

// ReconcileFailure describes one failed change for user-facing reporting
type ReconcileFailure struct {
	Seq         int64
	ContentID   ContentID
	Task        RenameTask
	Kind        FailureKind
	Reason      string
	Compensated bool
}

func (f ReconcileFailure) Message() string {
	msg := fmt.Sprintf("could not move %s to %s: %s", f.Task.From, f.Task.To, f.Reason)
	if f.Compensated {
		msg += " (change reverted)"
	}
	return msg
}

// PassStats summarizes one reconciliation pass
type PassStats struct {
	Examined    int
	Synced      int
	Failed      int
	Compensated int
	Skipped     int
	Failures    []ReconcileFailure
	Duration    time.Duration
}

// Add merges other into s
func (s *PassStats) Add(other PassStats) {
	s.Examined += other.Examined
	s.Synced += other.Synced
	s.Failed += other.Failed
	s.Compensated += other.Compensated
	s.Skipped += other.Skipped
	s.Failures = append(s.Failures, other.Failures...)
}
