package trees

import (
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"sync"
)

// MinTreeOrder is the smallest fan-out that still splits meaningfully.
const MinTreeOrder = 3

// bpNode is one node of the ordered index. Internal nodes route through
// separator keys and carry len(keys)+1 children; leaves carry entries
// parallel to keys plus the sibling link that chains all leaves in key order.
type bpNode struct {
	leaf     bool
	keys     []string
	children []*bpNode
	entries  []*Entry
	next     *bpNode
	parent   *bpNode
}

// BPTreeStats tracks performance metrics for the ordered index
type BPTreeStats struct {
	TotalEntries int64
	Insertions   int64
	Updates      int64
	Lookups      int64
	RangeScans   int64
	Splits       int64
	mu           sync.RWMutex
}

// BPTree is a B+ tree keyed by path, tuned for ordered iteration. The order
// m bounds fan-out: internal nodes hold at most m children and at least
// ⌈m/2⌉ except the root; leaves hold at most m-1 entries. All entries live
// in leaves; separators only route. Between operations every leaf sits at
// the same depth and the sibling chain yields all entries in sorted order.
type BPTree struct {
	root  *bpNode
	order int
	stats *BPTreeStats
	mu    sync.RWMutex
}

// NewBPTree creates an empty ordered index with the given order. The order
// is fixed for the life of the tree; orders below MinTreeOrder are rejected.
func NewBPTree(order int) (*BPTree, error) {
	if order < MinTreeOrder {
		return nil, fmt.Errorf("tree order %d below minimum %d", order, MinTreeOrder)
	}
	return &BPTree{
		root:  &bpNode{leaf: true},
		order: order,
		stats: &BPTreeStats{},
	}, nil
}

// Order returns the fan-out the tree was constructed with.
func (t *BPTree) Order() int {
	return t.order
}

// Insert adds or replaces the entry stored under key, reporting whether an
// existing entry was replaced. A leaf pushed past m-1 entries splits in two,
// the smallest key of the right half is promoted into the parent, and the
// split recurses upward; only a root split grows the tree's height.
func (t *BPTree) Insert(key string, entry *Entry) (bool, error) {
	if strings.TrimSpace(key) == "" {
		return false, fmt.Errorf("empty key: %w", ErrMalformedKey)
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	leaf := t.findLeaf(key)
	pos := sort.SearchStrings(leaf.keys, key)
	if pos < len(leaf.keys) && leaf.keys[pos] == key {
		leaf.entries[pos] = entry

		t.stats.mu.Lock()
		t.stats.Updates++
		t.stats.mu.Unlock()

		slog.Debug("Ordered index update in place", "key", key)
		return true, nil
	}

	leaf.keys = append(leaf.keys, "")
	copy(leaf.keys[pos+1:], leaf.keys[pos:])
	leaf.keys[pos] = key

	leaf.entries = append(leaf.entries, nil)
	copy(leaf.entries[pos+1:], leaf.entries[pos:])
	leaf.entries[pos] = entry

	if len(leaf.keys) > t.order-1 {
		t.splitLeaf(leaf)
	}

	t.stats.mu.Lock()
	t.stats.TotalEntries++
	t.stats.Insertions++
	total := t.stats.TotalEntries
	t.stats.mu.Unlock()

	slog.Debug("Ordered index insertion completed",
		"key", key,
		"total_entries", total)

	return false, nil
}

// Search returns the entry stored under key via a single root-to-leaf
// descent. A miss returns ErrKeyNotFound.
func (t *BPTree) Search(key string) (*Entry, error) {
	t.mu.RLock()
	leaf := t.findLeaf(key)
	pos := sort.SearchStrings(leaf.keys, key)
	found := pos < len(leaf.keys) && leaf.keys[pos] == key
	var entry *Entry
	if found {
		entry = leaf.entries[pos]
	}
	t.mu.RUnlock()

	t.stats.mu.Lock()
	t.stats.Lookups++
	t.stats.mu.Unlock()

	if !found {
		slog.Debug("Ordered lookup miss", "key", key)
		return nil, fmt.Errorf("path %q: %w", key, ErrKeyNotFound)
	}

	slog.Debug("Ordered lookup hit", "key", key)
	return entry, nil
}

// RangeIterator lazily yields entries in ascending key order by walking the
// leaf sibling chain. Iterators do not survive inserts: under the
// single-writer discipline a scan runs to completion or is restarted by
// constructing a new one from the last key received.
type RangeIterator struct {
	tree    *BPTree
	leaf    *bpNode
	pos     int
	high    string
	bounded bool
}

// Next returns the next entry in the scan, or false when the high bound or
// the end of the chain is reached.
func (it *RangeIterator) Next() (*Entry, bool) {
	it.tree.mu.RLock()
	defer it.tree.mu.RUnlock()

	for it.leaf != nil {
		if it.pos < len(it.leaf.keys) {
			if it.bounded && it.leaf.keys[it.pos] > it.high {
				it.leaf = nil
				return nil, false
			}
			entry := it.leaf.entries[it.pos]
			it.pos++
			return entry, true
		}
		it.leaf = it.leaf.next
		it.pos = 0
	}
	return nil, false
}

// Collect drains the iterator into a slice.
func (it *RangeIterator) Collect() []*Entry {
	var results []*Entry
	for {
		entry, ok := it.Next()
		if !ok {
			return results
		}
		results = append(results, entry)
	}
}

// RangeScan returns a lazy iterator over entries with low <= key <= high,
// obtained by descending to the first qualifying leaf and then following
// the sibling chain.
func (t *BPTree) RangeScan(low, high string) *RangeIterator {
	t.mu.RLock()
	leaf := t.findLeaf(low)
	pos := sort.SearchStrings(leaf.keys, low)
	t.mu.RUnlock()

	t.stats.mu.Lock()
	t.stats.RangeScans++
	t.stats.mu.Unlock()

	return &RangeIterator{tree: t, leaf: leaf, pos: pos, high: high, bounded: true}
}

// ScanAll returns a lazy iterator over every entry in key order, starting at
// the leftmost leaf.
func (t *BPTree) ScanAll() *RangeIterator {
	t.mu.RLock()
	node := t.root
	for !node.leaf {
		node = node.children[0]
	}
	t.mu.RUnlock()

	t.stats.mu.Lock()
	t.stats.RangeScans++
	t.stats.mu.Unlock()

	return &RangeIterator{tree: t, leaf: node}
}

// Size returns the number of entries stored in the tree.
func (t *BPTree) Size() int64 {
	t.stats.mu.RLock()
	defer t.stats.mu.RUnlock()
	return t.stats.TotalEntries
}

// Height returns the number of levels, counting a root-only leaf as 1.
func (t *BPTree) Height() int {
	t.mu.RLock()
	defer t.mu.RUnlock()

	height := 1
	for node := t.root; !node.leaf; node = node.children[0] {
		height++
	}
	return height
}

// GetStats returns a copy of the current ordered index statistics.
func (t *BPTree) GetStats() BPTreeStats {
	t.stats.mu.RLock()
	defer t.stats.mu.RUnlock()

	return BPTreeStats{
		TotalEntries: t.stats.TotalEntries,
		Insertions:   t.stats.Insertions,
		Updates:      t.stats.Updates,
		Lookups:      t.stats.Lookups,
		RangeScans:   t.stats.RangeScans,
		Splits:       t.stats.Splits,
	}
}

// Clear removes all entries from the tree. The order is retained.
func (t *BPTree) Clear() {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.root = &bpNode{leaf: true}

	t.stats.mu.Lock()
	t.stats.TotalEntries = 0
	t.stats.mu.Unlock()

	slog.Info("Ordered index cleared")
}

// Validate performs integrity checking of the structural invariants: uniform
// leaf depth, node occupancy bounds, separator routing, in-node ordering,
// parent links, and the sorted sibling chain. Findings wrap
// ErrInvariantViolation.
func (t *BPTree) Validate() []error {
	t.mu.RLock()
	defer t.mu.RUnlock()

	var errs []error

	minLeafKeys := t.order / 2
	minChildren := (t.order + 1) / 2

	leafDepth := -1
	var leafCount int64
	var walk func(n *bpNode, depth int)
	walk = func(n *bpNode, depth int) {
		for i := 1; i < len(n.keys); i++ {
			if n.keys[i-1] >= n.keys[i] {
				errs = append(errs, fmt.Errorf("keys out of order at %q: %w", n.keys[i], ErrInvariantViolation))
			}
		}

		if n.leaf {
			if len(n.entries) != len(n.keys) {
				errs = append(errs, fmt.Errorf("leaf with %d keys but %d entries: %w",
					len(n.keys), len(n.entries), ErrInvariantViolation))
			}
			if n != t.root && len(n.keys) < minLeafKeys {
				errs = append(errs, fmt.Errorf("leaf underfull with %d of %d keys: %w",
					len(n.keys), minLeafKeys, ErrInvariantViolation))
			}
			if len(n.keys) > t.order-1 {
				errs = append(errs, fmt.Errorf("leaf overfull with %d keys: %w", len(n.keys), ErrInvariantViolation))
			}
			if leafDepth == -1 {
				leafDepth = depth
			} else if depth != leafDepth {
				errs = append(errs, fmt.Errorf("leaf at depth %d, expected %d: %w",
					depth, leafDepth, ErrInvariantViolation))
			}
			leafCount++
			return
		}

		if len(n.children) != len(n.keys)+1 {
			errs = append(errs, fmt.Errorf("internal node with %d keys but %d children: %w",
				len(n.keys), len(n.children), ErrInvariantViolation))
			return
		}
		low := minChildren
		if n == t.root {
			low = 2
		}
		if len(n.children) < low || len(n.children) > t.order {
			errs = append(errs, fmt.Errorf("internal fan-out %d outside [%d, %d]: %w",
				len(n.children), low, t.order, ErrInvariantViolation))
		}

		for i, sep := range n.keys {
			if min, ok := subtreeMin(n.children[i+1]); !ok || min != sep {
				errs = append(errs, fmt.Errorf("separator %q is not the smallest key of its right subtree: %w",
					sep, ErrInvariantViolation))
			}
		}

		for _, child := range n.children {
			if child.parent != n {
				errs = append(errs, fmt.Errorf("child parent link broken under separator set %v: %w",
					n.keys, ErrInvariantViolation))
			}
			walk(child, depth+1)
		}
	}
	walk(t.root, 0)

	// The sibling chain must visit every leaf and yield strictly increasing keys
	var chainLeaves, chainEntries int64
	prevKey := ""
	seen := false
	for leaf := t.leftmostLeaf(); leaf != nil; leaf = leaf.next {
		chainLeaves++
		for _, key := range leaf.keys {
			chainEntries++
			if seen && key <= prevKey {
				errs = append(errs, fmt.Errorf("sibling chain out of order at %q: %w", key, ErrInvariantViolation))
			}
			prevKey = key
			seen = true
		}
	}
	if chainLeaves != leafCount {
		errs = append(errs, fmt.Errorf("sibling chain visits %d of %d leaves: %w",
			chainLeaves, leafCount, ErrInvariantViolation))
	}

	t.stats.mu.RLock()
	total := t.stats.TotalEntries
	t.stats.mu.RUnlock()
	if chainEntries != total {
		errs = append(errs, fmt.Errorf("stats_mismatch: chain holds %d entries but stats say %d", chainEntries, total))
	}

	if len(errs) > 0 {
		slog.Warn("Ordered index validation found issues", "error_count", len(errs))
	} else {
		slog.Debug("Ordered index validation passed", "total_entries", chainEntries)
	}

	return errs
}

// findLeaf descends to the leaf whose key range covers key. Keys equal to a
// separator route right, because a separator is the smallest key of its
// right subtree.
func (t *BPTree) findLeaf(key string) *bpNode {
	node := t.root
	for !node.leaf {
		idx := sort.SearchStrings(node.keys, key)
		if idx < len(node.keys) && node.keys[idx] == key {
			idx++
		}
		node = node.children[idx]
	}
	return node
}

func (t *BPTree) leftmostLeaf() *bpNode {
	node := t.root
	for !node.leaf {
		node = node.children[0]
	}
	return node
}

func subtreeMin(n *bpNode) (string, bool) {
	for !n.leaf {
		if len(n.children) == 0 {
			return "", false
		}
		n = n.children[0]
	}
	if len(n.keys) == 0 {
		return "", false
	}
	return n.keys[0], true
}

// splitLeaf divides an overfull leaf, keeps the left half in place, chains
// in the new right half, and promotes the right half's smallest key.
func (t *BPTree) splitLeaf(leaf *bpNode) {
	mid := (t.order + 1) / 2

	right := &bpNode{
		leaf:    true,
		keys:    append([]string(nil), leaf.keys[mid:]...),
		entries: append([]*Entry(nil), leaf.entries[mid:]...),
		next:    leaf.next,
		parent:  leaf.parent,
	}
	leaf.keys = leaf.keys[:mid]
	leaf.entries = leaf.entries[:mid]
	leaf.next = right

	t.stats.mu.Lock()
	t.stats.Splits++
	t.stats.mu.Unlock()

	slog.Debug("Ordered index leaf split",
		"separator", right.keys[0],
		"left_keys", len(leaf.keys),
		"right_keys", len(right.keys))

	t.insertIntoParent(leaf, right.keys[0], right)
}

// splitInternal divides an overfull internal node around its middle key,
// which moves up to the parent rather than staying in either half.
func (t *BPTree) splitInternal(node *bpNode) {
	mid := len(node.keys) / 2
	sep := node.keys[mid]

	right := &bpNode{
		keys:     append([]string(nil), node.keys[mid+1:]...),
		children: append([]*bpNode(nil), node.children[mid+1:]...),
		parent:   node.parent,
	}
	for _, child := range right.children {
		child.parent = right
	}
	node.keys = node.keys[:mid]
	node.children = node.children[:mid+1]

	t.stats.mu.Lock()
	t.stats.Splits++
	t.stats.mu.Unlock()

	slog.Debug("Ordered index internal split",
		"separator", sep,
		"left_children", len(node.children),
		"right_children", len(right.children))

	t.insertIntoParent(node, sep, right)
}

// insertIntoParent hangs right beside left under their parent, creating a
// new root when left was the root. Height grows only here.
func (t *BPTree) insertIntoParent(left *bpNode, sep string, right *bpNode) {
	parent := left.parent
	if parent == nil {
		t.root = &bpNode{
			keys:     []string{sep},
			children: []*bpNode{left, right},
		}
		left.parent = t.root
		right.parent = t.root
		return
	}

	pos := sort.SearchStrings(parent.keys, sep)
	parent.keys = append(parent.keys, "")
	copy(parent.keys[pos+1:], parent.keys[pos:])
	parent.keys[pos] = sep

	parent.children = append(parent.children, nil)
	copy(parent.children[pos+2:], parent.children[pos+1:])
	parent.children[pos+1] = right
	right.parent = parent

	if len(parent.keys) > t.order-1 {
		t.splitInternal(parent)
	}
}
