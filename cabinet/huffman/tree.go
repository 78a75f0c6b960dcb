package huffman

import (
	"container/heap"
	"fmt"
)

// Node is one node of the prefix-code tree. Internal nodes carry the summed
// weight of their subtree; leaves carry exactly one symbol and its frequency.
type Node struct {
	Symbol byte
	Weight uint64
	Left   *Node
	Right  *Node
	seq    uint32 // creation order, breaks equal-weight ties deterministically
}

// IsLeaf reports whether the node carries a symbol.
func (n *Node) IsLeaf() bool {
	return n.Left == nil && n.Right == nil
}

// nodeHeap implements a min-heap over tree fragments ordered by weight, with
// creation sequence as the tie-break so identical inputs always build
// identical trees.
type nodeHeap []*Node

func (h nodeHeap) Len() int { return len(h) }
func (h nodeHeap) Less(i, j int) bool {
	if h[i].Weight != h[j].Weight {
		return h[i].Weight < h[j].Weight
	}
	return h[i].seq < h[j].seq
}
func (h nodeHeap) Swap(i, j int) { h[i], h[j] = h[j], h[i] }

func (h *nodeHeap) Push(x interface{}) {
	*h = append(*h, x.(*Node))
}

func (h *nodeHeap) Pop() interface{} {
	old := *h
	n := len(old)
	item := old[n-1]
	*h = old[0 : n-1]
	return item
}

// BuildTree merges the two lowest-weight fragments until one root remains.
// Leaves take sequence numbers 0..n-1 in ascending symbol order and each
// merged node takes the next sequence, so equal-weight ties resolve the same
// way on every run. The first fragment popped becomes the left child.
//
// A single-symbol table builds a synthetic root with the lone leaf as its
// left child, giving that symbol the one-bit code 0.
func BuildTree(table Table) (*Node, error) {
	if len(table) == 0 {
		return nil, ErrInvalidFrequencyTable
	}

	h := make(nodeHeap, 0, len(table))
	for _, sym := range table.Symbols() {
		weight := table[sym]
		if weight == 0 {
			return nil, fmt.Errorf("symbol %q has zero count: %w", sym, ErrInvalidFrequencyTable)
		}
		h = append(h, &Node{Symbol: sym, Weight: weight, seq: uint32(len(h))})
	}
	heap.Init(&h)

	seq := uint32(len(h))
	if h.Len() == 1 {
		leaf := heap.Pop(&h).(*Node)
		return &Node{Weight: leaf.Weight, Left: leaf, seq: seq}, nil
	}

	for h.Len() > 1 {
		left := heap.Pop(&h).(*Node)
		right := heap.Pop(&h).(*Node)
		heap.Push(&h, &Node{
			Weight: left.Weight + right.Weight,
			Left:   left,
			Right:  right,
			seq:    seq,
		})
		seq++
	}

	return heap.Pop(&h).(*Node), nil
}

// Code is one symbol's bit string: the low Len bits of Bits, most significant
// bit first.
type Code struct {
	Bits uint64
	Len  uint8
}

// maxCodeLen keeps the encoder's 64-bit accumulator from overflowing between
// byte flushes. Reaching it requires a Fibonacci-shaped frequency table with
// a total count beyond any in-memory input, so only hand-crafted tables ever
// trip this bound.
const maxCodeLen = 56

// CodeTable maps each symbol to its prefix-free code. The prefix property is
// structural: codes are root-to-leaf paths in a full binary tree, so no code
// can be a prefix of another.
type CodeTable map[byte]Code

// DeriveCodeTable walks the tree recording 0 for a left step and 1 for a
// right step, assigning the accumulated bit string to each leaf's symbol.
func DeriveCodeTable(root *Node) (CodeTable, error) {
	if root == nil {
		return nil, ErrInvalidFrequencyTable
	}

	table := make(CodeTable)
	if err := assignCodes(root, 0, 0, table); err != nil {
		return nil, err
	}
	return table, nil
}

func assignCodes(n *Node, bits uint64, depth uint8, table CodeTable) error {
	if n.IsLeaf() {
		table[n.Symbol] = Code{Bits: bits, Len: depth}
		return nil
	}

	if depth >= maxCodeLen {
		return fmt.Errorf("code length exceeds %d bits: %w", maxCodeLen, ErrInvalidFrequencyTable)
	}

	// The single-symbol synthetic root has no right child; every other
	// internal node has exactly two.
	if n.Left != nil {
		if err := assignCodes(n.Left, bits<<1, depth+1, table); err != nil {
			return err
		}
	}
	if n.Right != nil {
		if err := assignCodes(n.Right, bits<<1|1, depth+1, table); err != nil {
			return err
		}
	}
	return nil
}
