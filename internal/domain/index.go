package domain

// IndexStats summarizes the metadata store
type IndexStats struct {
	Entries   int
	Folders   int
	Missing   int
	Hidden    int
	Locations int
	Tags      int
	Pending   int
	Failed    int
}

// Settled reports whether no change is waiting for reconciliation
func (s IndexStats) Settled() bool {
	return s.Pending == 0
}
