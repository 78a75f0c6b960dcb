package trees

import "time"

// MemberIndex is the contract every index inside the coordinator satisfies,
// letting integrity checks treat members uniformly.
type MemberIndex interface {
	Size() int64
	Clear()
	Validate() []error
}

// EntrySink receives entries for indexing; the ingest scanner feeds one.
type EntrySink interface {
	IndexFile(entry *Entry) error
}

// IndexMetrics holds statistical information about the coordinated indexes
type IndexMetrics struct {
	TotalEntries    int64
	TotalSize       int64
	CompressedCount int64
	StoredCount     int64
	NameTreeHeight  int
	OrderedHeight   int
	LastUpdated     time.Time
	ProcessingTime  time.Duration
	OperationCounts map[string]int64
}
