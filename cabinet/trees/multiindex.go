package trees

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/ZanzyTHEbar/assert-lib"
)

// DefaultOrder is the ordered tree fan-out used when no option overrides it.
const DefaultOrder = 32

// MultiIndexStats tracks performance metrics across all member indexes
type MultiIndexStats struct {
	TotalOperations  int64
	NameQueries      int64
	RangeQueries     int64
	DirectoryQueries int64
	ExtensionQueries int64
	AverageQueryTime time.Duration
	mu               sync.RWMutex
}

// MultiIndex coordinates the member indexes: a red-black tree keyed by name
// for exact-match lookups, a B+ tree keyed by path for ordered iteration and
// range scans, a radix path index for directory queries, and extension
// bitmaps for type filters. Every indexed entry lands in all of them or in
// none: validation happens before the first mutation, so a rejected entry
// leaves no partial registration behind.
type MultiIndex struct {
	nameTree    *RBTree
	orderedTree *BPTree
	pathIndex   *PathIndex
	extBitmaps  *ExtensionBitmaps
	byID        []*Entry          // dense entry ids resolve bitmap hits
	ids         map[string]uint32 // normalized path -> entry id
	order       int
	strict      bool
	logger      *slog.Logger
	assert      *assert.AssertHandler
	stats       *MultiIndexStats
	mu          sync.RWMutex // Coordination lock: single writer, many readers
}

// IndexOption allows for customization of the MultiIndex
type IndexOption func(*MultiIndex)

// WithOrder sets the ordered tree's fan-out, fixed for the index's lifetime.
func WithOrder(order int) IndexOption {
	return func(mi *MultiIndex) {
		mi.order = order
	}
}

// WithLogger sets a custom logger
func WithLogger(logger *slog.Logger) IndexOption {
	return func(mi *MultiIndex) {
		mi.logger = logger
	}
}

// WithStrictInserts makes IndexFile reject keys that are already indexed
// instead of updating them in place.
func WithStrictInserts() IndexOption {
	return func(mi *MultiIndex) {
		mi.strict = true
	}
}

// WithAssertHandler enables cross-index assertions after every mutation.
func WithAssertHandler(handler *assert.AssertHandler) IndexOption {
	return func(mi *MultiIndex) {
		mi.assert = handler
	}
}

// NewMultiIndex creates a new index coordinator. The ordered tree's fan-out
// defaults to DefaultOrder and must be at least MinTreeOrder.
func NewMultiIndex(opts ...IndexOption) (*MultiIndex, error) {
	mi := &MultiIndex{
		nameTree:   NewRBTree(),
		pathIndex:  NewPathIndex(),
		extBitmaps: NewExtensionBitmaps(),
		ids:        make(map[string]uint32),
		order:      DefaultOrder,
		logger:     slog.Default(),
		stats:      &MultiIndexStats{},
	}

	for _, opt := range opts {
		opt(mi)
	}

	ordered, err := NewBPTree(mi.order)
	if err != nil {
		return nil, err
	}
	mi.orderedTree = ordered

	return mi, nil
}

// Order returns the ordered tree's fan-out; the catalog persists it so a
// reload rebuilds the tree with identical shape parameters.
func (mi *MultiIndex) Order() int {
	return mi.order
}

// IndexFile inserts an entry into every member index, or into none. All
// failable checks run before the first mutation; the mutations themselves
// cannot fail on keys that passed validation, which is what makes the
// all-or-nothing contract hold without rollback machinery.
func (mi *MultiIndex) IndexFile(entry *Entry) error {
	if err := entry.Validate(); err != nil {
		return err
	}

	start := time.Now()

	entry.Path = NormalizePath(entry.Path)
	if entry.Extension == "" {
		entry.Extension = strings.ToLower(filepath.Ext(entry.Name))
	}

	mi.mu.Lock()
	defer mi.mu.Unlock()

	if mi.strict {
		if _, err := mi.nameTree.Search(entry.Name); err == nil {
			return fmt.Errorf("name %q: %w", entry.Name, ErrDuplicateKey)
		} else if !errors.Is(err, ErrKeyNotFound) {
			return err
		}
		if _, exists := mi.ids[entry.Path]; exists {
			return fmt.Errorf("path %q: %w", entry.Path, ErrDuplicateKey)
		}
	}

	// Point of no return: everything below must succeed for keys that
	// passed validation. A failure here is an implementation defect, not a
	// caller mistake, so it surfaces as an invariant violation.
	if _, err := mi.nameTree.Insert(entry.Name, entry); err != nil {
		return fmt.Errorf("name index insertion failed: %w", errors.Join(err, ErrInvariantViolation))
	}
	if _, err := mi.orderedTree.Insert(entry.Path, entry); err != nil {
		return fmt.Errorf("ordered index insertion failed: %w", errors.Join(err, ErrInvariantViolation))
	}
	if err := mi.pathIndex.Insert(entry); err != nil {
		return fmt.Errorf("path index insertion failed: %w", errors.Join(err, ErrInvariantViolation))
	}

	id, exists := mi.ids[entry.Path]
	if exists {
		previous := mi.byID[id]
		if previous != nil && previous.Extension != entry.Extension {
			mi.extBitmaps.Remove(previous.Extension, id)
		}
		mi.byID[id] = entry
	} else {
		id = uint32(len(mi.byID))
		mi.ids[entry.Path] = id
		mi.byID = append(mi.byID, entry)
	}
	if entry.Extension != "" {
		mi.extBitmaps.Add(entry.Extension, id)
	}

	mi.assertConsistent()

	mi.stats.mu.Lock()
	mi.stats.TotalOperations++
	duration := time.Since(start)
	mi.stats.AverageQueryTime = ((mi.stats.AverageQueryTime * time.Duration(mi.stats.TotalOperations-1)) + duration) / time.Duration(mi.stats.TotalOperations)
	mi.stats.mu.Unlock()

	mi.logger.Debug("Index insertion completed",
		"name", entry.Name,
		"path", entry.Path,
		"duration", duration)

	return nil
}

// FindByName performs an exact-match lookup in the name tree. A miss
// returns ErrKeyNotFound for callers to branch on.
func (mi *MultiIndex) FindByName(name string) (*Entry, error) {
	start := time.Now()
	defer func() {
		mi.stats.mu.Lock()
		mi.stats.NameQueries++
		mi.stats.TotalOperations++
		mi.stats.mu.Unlock()
	}()

	mi.mu.RLock()
	defer mi.mu.RUnlock()

	entry, err := mi.nameTree.Search(name)

	mi.logger.Debug("Name query completed",
		"name", name,
		"found", err == nil,
		"duration", time.Since(start))

	return entry, err
}

// ListRange collects the entries with low <= path <= high in ascending path
// order. Both bounds are normalized before the scan.
func (mi *MultiIndex) ListRange(low, high string) []*Entry {
	start := time.Now()
	defer func() {
		mi.stats.mu.Lock()
		mi.stats.RangeQueries++
		mi.stats.TotalOperations++
		mi.stats.mu.Unlock()
	}()

	mi.mu.RLock()
	defer mi.mu.RUnlock()

	results := mi.orderedTree.RangeScan(NormalizePath(low), NormalizePath(high)).Collect()

	mi.logger.Debug("Range query completed",
		"low", low,
		"high", high,
		"results_count", len(results),
		"duration", time.Since(start))

	return results
}

// Scan returns the lazy iterator form of ListRange for callers that want to
// stop early or resume later; restart by scanning from the last key seen.
func (mi *MultiIndex) Scan(low, high string) *RangeIterator {
	mi.stats.mu.Lock()
	mi.stats.RangeQueries++
	mi.stats.TotalOperations++
	mi.stats.mu.Unlock()

	return mi.orderedTree.RangeScan(NormalizePath(low), NormalizePath(high))
}

// ListAll collects every entry in ascending path order by walking the full
// leaf chain of the ordered tree.
func (mi *MultiIndex) ListAll() []*Entry {
	start := time.Now()
	defer func() {
		mi.stats.mu.Lock()
		mi.stats.RangeQueries++
		mi.stats.TotalOperations++
		mi.stats.mu.Unlock()
	}()

	mi.mu.RLock()
	defer mi.mu.RUnlock()

	results := mi.orderedTree.ScanAll().Collect()

	mi.logger.Debug("Full listing completed",
		"results_count", len(results),
		"duration", time.Since(start))

	return results
}

// ListDirectory returns the entries directly inside a directory path, in
// lexicographic order.
func (mi *MultiIndex) ListDirectory(path string) []*Entry {
	start := time.Now()
	defer func() {
		mi.stats.mu.Lock()
		mi.stats.DirectoryQueries++
		mi.stats.TotalOperations++
		mi.stats.mu.Unlock()
	}()

	mi.mu.RLock()
	defer mi.mu.RUnlock()

	results := mi.pathIndex.GetChildren(path)

	mi.logger.Debug("Directory query completed",
		"path", path,
		"results_count", len(results),
		"duration", time.Since(start))

	return results
}

// ListByPrefix returns every entry whose path starts with prefix, however
// deeply nested, in lexicographic order.
func (mi *MultiIndex) ListByPrefix(prefix string) []*Entry {
	start := time.Now()
	defer func() {
		mi.stats.mu.Lock()
		mi.stats.DirectoryQueries++
		mi.stats.TotalOperations++
		mi.stats.mu.Unlock()
	}()

	mi.mu.RLock()
	defer mi.mu.RUnlock()

	results := mi.pathIndex.PrefixLookup(prefix)

	mi.logger.Debug("Prefix query completed",
		"prefix", prefix,
		"results_count", len(results),
		"duration", time.Since(start))

	return results
}

// FindByExtension returns the entries carrying any of the given extensions,
// in insertion order.
func (mi *MultiIndex) FindByExtension(exts ...string) []*Entry {
	start := time.Now()
	defer func() {
		mi.stats.mu.Lock()
		mi.stats.ExtensionQueries++
		mi.stats.TotalOperations++
		mi.stats.mu.Unlock()
	}()

	mi.mu.RLock()
	defer mi.mu.RUnlock()

	var results []*Entry
	it := mi.extBitmaps.Union(exts...).Iterator()
	for it.HasNext() {
		id := it.Next()
		if int(id) < len(mi.byID) && mi.byID[id] != nil {
			results = append(results, mi.byID[id])
		}
	}

	mi.logger.Debug("Extension query completed",
		"extensions", exts,
		"results_count", len(results),
		"duration", time.Since(start))

	return results
}

// Size returns the number of indexed paths.
func (mi *MultiIndex) Size() int64 {
	return mi.orderedTree.Size()
}

// Heights returns the current height of the name tree and the ordered tree.
func (mi *MultiIndex) Heights() (nameTree int, orderedTree int) {
	mi.mu.RLock()
	defer mi.mu.RUnlock()
	return mi.nameTree.Height(), mi.orderedTree.Height()
}

// GetStats returns current performance statistics
func (mi *MultiIndex) GetStats() MultiIndexStats {
	mi.stats.mu.RLock()
	defer mi.stats.mu.RUnlock()

	return MultiIndexStats{
		TotalOperations:  mi.stats.TotalOperations,
		NameQueries:      mi.stats.NameQueries,
		RangeQueries:     mi.stats.RangeQueries,
		DirectoryQueries: mi.stats.DirectoryQueries,
		ExtensionQueries: mi.stats.ExtensionQueries,
		AverageQueryTime: mi.stats.AverageQueryTime,
	}
}

// Clear removes all entries from all member indexes. The tree order is
// retained.
func (mi *MultiIndex) Clear() {
	mi.mu.Lock()
	defer mi.mu.Unlock()

	mi.nameTree.Clear()
	mi.orderedTree.Clear()
	mi.pathIndex.Clear()
	mi.extBitmaps.Clear()
	mi.byID = nil
	mi.ids = make(map[string]uint32)

	mi.stats.mu.Lock()
	mi.stats.TotalOperations = 0
	mi.stats.NameQueries = 0
	mi.stats.RangeQueries = 0
	mi.stats.DirectoryQueries = 0
	mi.stats.ExtensionQueries = 0
	mi.stats.AverageQueryTime = 0
	mi.stats.mu.Unlock()

	mi.logger.Info("Index cleared")
}

// Validate performs integrity checking across all member indexes plus the
// cross-index bookkeeping that ties them together.
func (mi *MultiIndex) Validate() []error {
	mi.mu.RLock()
	defer mi.mu.RUnlock()

	var errs []error
	for _, member := range []MemberIndex{mi.nameTree, mi.orderedTree, mi.pathIndex} {
		errs = append(errs, member.Validate()...)
	}

	// Path-keyed members must agree exactly; the name tree can only be
	// smaller, since distinct paths may share a filename.
	orderedSize := mi.orderedTree.Size()
	if pathSize := mi.pathIndex.Size(); pathSize != orderedSize {
		errs = append(errs, fmt.Errorf("ordered tree holds %d paths but path index holds %d: %w",
			orderedSize, pathSize, ErrInvariantViolation))
	}
	if int64(len(mi.byID)) != orderedSize {
		errs = append(errs, fmt.Errorf("ordered tree holds %d paths but id table holds %d: %w",
			orderedSize, len(mi.byID), ErrInvariantViolation))
	}
	if nameSize := mi.nameTree.Size(); nameSize > orderedSize {
		errs = append(errs, fmt.Errorf("name tree holds %d keys, more than %d indexed paths: %w",
			nameSize, orderedSize, ErrInvariantViolation))
	}

	if len(errs) > 0 {
		mi.logger.Warn("Index validation found issues", "error_count", len(errs))
	} else {
		mi.logger.Debug("Index validation passed")
	}

	return errs
}

// assertConsistent checks the cheap cross-index invariants after a mutation.
// Enabled only when an assert handler was injected; called with the write
// lock held.
func (mi *MultiIndex) assertConsistent() {
	if mi.assert == nil {
		return
	}

	ctx := context.Background()
	orderedSize := mi.orderedTree.Size()
	mi.assert.Assert(ctx, mi.pathIndex.Size() == orderedSize,
		"path index and ordered tree must hold the same paths")
	mi.assert.Assert(ctx, int64(len(mi.byID)) == orderedSize,
		"entry id table must cover every indexed path")
	mi.assert.Assert(ctx, mi.nameTree.Size() <= orderedSize,
		"name tree cannot hold more keys than indexed paths")
}
