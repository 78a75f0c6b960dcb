package trees

import (
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/armon/go-radix"
)

// PathIndexStats tracks performance metrics for the path index
type PathIndexStats struct {
	TotalEntries     int64
	PathLookups      int64
	PrefixLookups    int64
	Insertions       int64
	AveragePathDepth float64
	mu               sync.RWMutex
}

// PathIndex provides O(k) directory-style lookups over normalized paths
// using a compressed trie, where k is the length of the path searched, not
// the number of entries held.
type PathIndex struct {
	tree    *radix.Tree
	mu      sync.RWMutex
	stats   *PathIndexStats
	entries map[string]*Entry // direct path -> entry mapping for verification
}

// NewPathIndex creates a new radix-backed path index.
func NewPathIndex() *PathIndex {
	return &PathIndex{
		tree:    radix.New(),
		stats:   &PathIndexStats{},
		entries: make(map[string]*Entry),
	}
}

// Insert adds an entry under its normalized path, replacing any previous
// entry at the same path.
func (idx *PathIndex) Insert(entry *Entry) error {
	if entry == nil {
		return fmt.Errorf("nil entry: %w", ErrMalformedKey)
	}

	path := NormalizePath(entry.Path)

	idx.mu.Lock()
	defer idx.mu.Unlock()

	_, updated := idx.tree.Insert(path, entry)
	idx.entries[path] = entry

	idx.stats.mu.Lock()
	if !updated {
		idx.stats.TotalEntries++
	}
	idx.stats.Insertions++
	idx.updateAverageDepth()
	idx.stats.mu.Unlock()

	slog.Debug("Path index insertion completed",
		"path", path,
		"was_update", updated)

	return nil
}

// Lookup finds an entry by its exact path.
func (idx *PathIndex) Lookup(path string) (*Entry, bool) {
	normalized := NormalizePath(path)

	idx.mu.RLock()
	defer idx.mu.RUnlock()

	value, found := idx.tree.Get(normalized)

	idx.stats.mu.Lock()
	idx.stats.PathLookups++
	idx.stats.mu.Unlock()

	if !found {
		slog.Debug("Path lookup miss", "path", normalized)
		return nil, false
	}

	return value.(*Entry), true
}

// PrefixLookup finds all entries whose paths start with the given prefix,
// in lexicographic path order.
func (idx *PathIndex) PrefixLookup(prefix string) []*Entry {
	normalized := NormalizePath(prefix)

	idx.mu.RLock()
	defer idx.mu.RUnlock()

	var results []*Entry
	idx.tree.WalkPrefix(normalized, func(key string, value interface{}) bool {
		if entry, ok := value.(*Entry); ok {
			results = append(results, entry)
		}
		return false // Continue walking
	})

	idx.stats.mu.Lock()
	idx.stats.PrefixLookups++
	idx.stats.mu.Unlock()

	slog.Debug("Prefix lookup completed",
		"prefix", normalized,
		"results_count", len(results))

	return results
}

// GetChildren returns the entries directly inside a directory path, skipping
// anything nested deeper.
func (idx *PathIndex) GetChildren(parentPath string) []*Entry {
	parent := NormalizePath(parentPath)
	if !strings.HasSuffix(parent, "/") {
		parent += "/"
	}

	idx.mu.RLock()
	defer idx.mu.RUnlock()

	var children []*Entry
	idx.tree.WalkPrefix(parent, func(key string, value interface{}) bool {
		remaining := strings.TrimPrefix(key, parent)
		if remaining != "" && !strings.Contains(remaining, "/") {
			if entry, ok := value.(*Entry); ok {
				children = append(children, entry)
			}
		}
		return false // Continue walking
	})

	slog.Debug("Get children completed",
		"parent_path", parent,
		"children_count", len(children))

	return children
}

// Size returns the total number of entries in the path index.
func (idx *PathIndex) Size() int64 {
	idx.stats.mu.RLock()
	defer idx.stats.mu.RUnlock()
	return idx.stats.TotalEntries
}

// GetStats returns a copy of the current path index statistics.
func (idx *PathIndex) GetStats() PathIndexStats {
	idx.stats.mu.RLock()
	defer idx.stats.mu.RUnlock()

	return PathIndexStats{
		TotalEntries:     idx.stats.TotalEntries,
		PathLookups:      idx.stats.PathLookups,
		PrefixLookups:    idx.stats.PrefixLookups,
		Insertions:       idx.stats.Insertions,
		AveragePathDepth: idx.stats.AveragePathDepth,
	}
}

// Clear removes all entries from the path index.
func (idx *PathIndex) Clear() {
	idx.mu.Lock()
	defer idx.mu.Unlock()

	idx.tree = radix.New()
	idx.entries = make(map[string]*Entry)

	idx.stats.mu.Lock()
	idx.stats.TotalEntries = 0
	idx.stats.AveragePathDepth = 0
	idx.stats.mu.Unlock()

	slog.Info("Path index cleared")
}

// Validate performs integrity checking between the trie and the direct
// mapping.
func (idx *PathIndex) Validate() []error {
	idx.mu.RLock()
	defer idx.mu.RUnlock()

	var errs []error

	treeCount := 0
	idx.tree.Walk(func(key string, value interface{}) bool {
		treeCount++

		if _, exists := idx.entries[key]; !exists {
			errs = append(errs, fmt.Errorf("path %q in trie but missing from direct mapping: %w",
				key, ErrInvariantViolation))
		}
		if _, ok := value.(*Entry); !ok {
			errs = append(errs, fmt.Errorf("path %q holds a foreign value type: %w",
				key, ErrInvariantViolation))
		}

		return false // Continue walking
	})

	if treeCount != len(idx.entries) {
		errs = append(errs, fmt.Errorf("trie holds %d paths but direct mapping holds %d: %w",
			treeCount, len(idx.entries), ErrInvariantViolation))
	}

	idx.stats.mu.RLock()
	total := idx.stats.TotalEntries
	idx.stats.mu.RUnlock()
	if total != int64(treeCount) {
		errs = append(errs, fmt.Errorf("stats_mismatch: trie holds %d paths but stats say %d", treeCount, total))
	}

	if len(errs) > 0 {
		slog.Warn("Path index validation found issues", "error_count", len(errs))
	} else {
		slog.Debug("Path index validation passed", "total_entries", treeCount)
	}

	return errs
}

// updateAverageDepth recalculates the average path depth (called with stats mutex held)
func (idx *PathIndex) updateAverageDepth() {
	if idx.stats.TotalEntries == 0 {
		idx.stats.AveragePathDepth = 0
		return
	}

	totalDepth := 0
	for path := range idx.entries {
		depth := strings.Count(path, "/")
		if path != "/" { // Root has depth 0, everything else adds 1
			depth++
		}
		totalDepth += depth
	}

	idx.stats.AveragePathDepth = float64(totalDepth) / float64(idx.stats.TotalEntries)
}
