package trees

import (
	"fmt"
	"log/slog"
	"strings"
	"sync"
)

// rbColor tags tree nodes. The zero value is black so the shared sentinel
// comes out black without initialization.
type rbColor uint8

const (
	black rbColor = iota
	red
)

// rbNode is one node of the name tree. Leaf children of real nodes point at
// the tree's shared black sentinel, never at nil.
type rbNode struct {
	key    string
	entry  *Entry
	color  rbColor
	left   *rbNode
	right  *rbNode
	parent *rbNode
}

// RBTreeStats tracks performance metrics for the name tree
type RBTreeStats struct {
	TotalNodes int64
	Insertions int64
	Updates    int64
	Lookups    int64
	Hits       int64
	Misses     int64
	mu         sync.RWMutex
}

// RBTree is a red-black tree keyed by exact name, tuned for point lookups.
// Between operations it always holds: the root is black, no red node has a
// red child, and every root-to-sentinel path crosses the same number of black
// nodes, which bounds the height to O(log n).
type RBTree struct {
	root     *rbNode
	sentinel *rbNode
	stats    *RBTreeStats
	mu       sync.RWMutex
}

// NewRBTree creates an empty name tree.
func NewRBTree() *RBTree {
	// The sentinel is its own relative so stray walks stay inside the tree
	sentinel := &rbNode{}
	sentinel.left = sentinel
	sentinel.right = sentinel
	sentinel.parent = sentinel
	return &RBTree{
		root:     sentinel,
		sentinel: sentinel,
		stats:    &RBTreeStats{},
	}
}

// Insert adds or replaces the entry stored under key, reporting whether an
// existing entry was replaced. Re-inserting a key never creates a duplicate
// node; the value is swapped in place and no rebalancing happens.
func (t *RBTree) Insert(key string, entry *Entry) (bool, error) {
	if strings.TrimSpace(key) == "" {
		return false, fmt.Errorf("empty key: %w", ErrMalformedKey)
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	parent := t.sentinel
	node := t.root
	for node != t.sentinel {
		parent = node
		switch {
		case key < node.key:
			node = node.left
		case key > node.key:
			node = node.right
		default:
			node.entry = entry

			t.stats.mu.Lock()
			t.stats.Updates++
			t.stats.mu.Unlock()

			slog.Debug("Name index update in place", "key", key)
			return true, nil
		}
	}

	z := &rbNode{
		key:    key,
		entry:  entry,
		color:  red,
		left:   t.sentinel,
		right:  t.sentinel,
		parent: parent,
	}
	switch {
	case parent == t.sentinel:
		t.root = z
	case key < parent.key:
		parent.left = z
	default:
		parent.right = z
	}

	t.fixInsert(z)

	t.stats.mu.Lock()
	t.stats.TotalNodes++
	t.stats.Insertions++
	total := t.stats.TotalNodes
	t.stats.mu.Unlock()

	slog.Debug("Name index insertion completed",
		"key", key,
		"total_nodes", total)

	return false, nil
}

// Search returns the entry stored under key. A miss returns ErrKeyNotFound,
// which callers treat as a normal outcome, not a failure.
func (t *RBTree) Search(key string) (*Entry, error) {
	t.mu.RLock()
	node := t.root
	for node != t.sentinel {
		switch {
		case key < node.key:
			node = node.left
		case key > node.key:
			node = node.right
		default:
			entry := node.entry
			t.mu.RUnlock()

			t.stats.mu.Lock()
			t.stats.Lookups++
			t.stats.Hits++
			t.stats.mu.Unlock()

			slog.Debug("Name lookup hit", "key", key)
			return entry, nil
		}
	}
	t.mu.RUnlock()

	t.stats.mu.Lock()
	t.stats.Lookups++
	t.stats.Misses++
	t.stats.mu.Unlock()

	slog.Debug("Name lookup miss", "key", key)
	return nil, fmt.Errorf("name %q: %w", key, ErrKeyNotFound)
}

// Size returns the number of distinct keys in the tree.
func (t *RBTree) Size() int64 {
	t.stats.mu.RLock()
	defer t.stats.mu.RUnlock()
	return t.stats.TotalNodes
}

// Height returns the longest root-to-leaf node count, 0 for an empty tree.
func (t *RBTree) Height() int {
	t.mu.RLock()
	defer t.mu.RUnlock()

	var depth func(n *rbNode) int
	depth = func(n *rbNode) int {
		if n == t.sentinel {
			return 0
		}
		left := depth(n.left)
		right := depth(n.right)
		if left > right {
			return left + 1
		}
		return right + 1
	}
	return depth(t.root)
}

// GetStats returns a copy of the current name tree statistics.
func (t *RBTree) GetStats() RBTreeStats {
	t.stats.mu.RLock()
	defer t.stats.mu.RUnlock()

	return RBTreeStats{
		TotalNodes: t.stats.TotalNodes,
		Insertions: t.stats.Insertions,
		Updates:    t.stats.Updates,
		Lookups:    t.stats.Lookups,
		Hits:       t.stats.Hits,
		Misses:     t.stats.Misses,
	}
}

// Clear removes all entries from the tree.
func (t *RBTree) Clear() {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.root = t.sentinel

	t.stats.mu.Lock()
	t.stats.TotalNodes = 0
	t.stats.mu.Unlock()

	slog.Info("Name index cleared")
}

// Validate performs integrity checking of the three color invariants, the
// key ordering, and the node count. A clean tree returns no errors; every
// finding wraps ErrInvariantViolation.
func (t *RBTree) Validate() []error {
	t.mu.RLock()
	defer t.mu.RUnlock()

	var errs []error

	if t.root != t.sentinel && t.root.color != black {
		errs = append(errs, fmt.Errorf("root is red: %w", ErrInvariantViolation))
	}

	// Uniform black-height plus the no-red-red rule, checked in one walk.
	// A subtree reporting -1 already produced an error below it.
	var blackHeight func(n *rbNode) int
	blackHeight = func(n *rbNode) int {
		if n == t.sentinel {
			return 1
		}
		left := blackHeight(n.left)
		right := blackHeight(n.right)
		if left == -1 || right == -1 {
			return -1
		}
		if left != right {
			errs = append(errs, fmt.Errorf("black-height mismatch at %q (%d vs %d): %w",
				n.key, left, right, ErrInvariantViolation))
			return -1
		}
		if n.color == red && (n.left.color == red || n.right.color == red) {
			errs = append(errs, fmt.Errorf("red node %q has a red child: %w",
				n.key, ErrInvariantViolation))
		}
		if n.color == black {
			return left + 1
		}
		return left
	}
	blackHeight(t.root)

	// In-order traversal must yield strictly increasing keys
	var count int64
	prevKey := ""
	seen := false
	var inorder func(n *rbNode)
	inorder = func(n *rbNode) {
		if n == t.sentinel {
			return
		}
		inorder(n.left)
		count++
		if seen && n.key <= prevKey {
			errs = append(errs, fmt.Errorf("keys out of order at %q: %w", n.key, ErrInvariantViolation))
		}
		prevKey = n.key
		seen = true
		inorder(n.right)
	}
	inorder(t.root)

	t.stats.mu.RLock()
	total := t.stats.TotalNodes
	t.stats.mu.RUnlock()
	if count != total {
		errs = append(errs, fmt.Errorf("stats_mismatch: tree holds %d nodes but stats say %d", count, total))
	}

	if len(errs) > 0 {
		slog.Warn("Name index validation found issues", "error_count", len(errs))
	} else {
		slog.Debug("Name index validation passed", "total_nodes", count)
	}

	return errs
}

// fixInsert restores the color invariants after hanging the red node z off
// the bottom of the tree. Recoloring moves the violation toward the root;
// at most two rotations finish the job.
func (t *RBTree) fixInsert(z *rbNode) {
	for z.parent.color == red {
		if z.parent == z.parent.parent.left {
			uncle := z.parent.parent.right
			if uncle.color == red {
				z.parent.color = black
				uncle.color = black
				z.parent.parent.color = red
				z = z.parent.parent
			} else {
				if z == z.parent.right {
					z = z.parent
					t.rotateLeft(z)
				}
				z.parent.color = black
				z.parent.parent.color = red
				t.rotateRight(z.parent.parent)
			}
		} else {
			uncle := z.parent.parent.left
			if uncle.color == red {
				z.parent.color = black
				uncle.color = black
				z.parent.parent.color = red
				z = z.parent.parent
			} else {
				if z == z.parent.left {
					z = z.parent
					t.rotateRight(z)
				}
				z.parent.color = black
				z.parent.parent.color = red
				t.rotateLeft(z.parent.parent)
			}
		}
	}
	t.root.color = black
}

func (t *RBTree) rotateLeft(x *rbNode) {
	y := x.right
	x.right = y.left
	if y.left != t.sentinel {
		y.left.parent = x
	}
	y.parent = x.parent
	switch {
	case x.parent == t.sentinel:
		t.root = y
	case x == x.parent.left:
		x.parent.left = y
	default:
		x.parent.right = y
	}
	y.left = x
	x.parent = y
}

func (t *RBTree) rotateRight(x *rbNode) {
	y := x.left
	x.left = y.right
	if y.right != t.sentinel {
		y.right.parent = x
	}
	y.parent = x.parent
	switch {
	case x.parent == t.sentinel:
		t.root = y
	case x == x.parent.right:
		x.parent.right = y
	default:
		x.parent.left = y
	}
	y.right = x
	x.parent = y
}
