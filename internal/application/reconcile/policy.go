package reconcile

import "marginalia/internal/domain"

// Policy decides which failure kinds get a compensating update that
// restores the index to the file's actual path
type Policy map[domain.FailureKind]bool

// DefaultPolicy compensates whenever the file is known to still be at its
// old path. A missing source or entry has nothing to restore to, and a
// source holding another file says nothing about where this one went.
func DefaultPolicy() Policy {
	return Policy{
		domain.FailureSourceMissing:         false,
		domain.FailureDestinationExists:     true,
		domain.FailureDestinationDirMissing: true,
		domain.FailureMoveFailed:            true,
		domain.FailureEntryMissing:          false,
		domain.FailureSourceMismatch:        false,
	}
}

// Allows reports whether kind should be compensated
func (p Policy) Allows(kind domain.FailureKind) bool {
	return p[kind]
}
