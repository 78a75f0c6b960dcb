package huffman

import (
	"fmt"
	"sort"
)

// Table maps each symbol to its occurrence count. Tables come from Estimate
// (counted from input) or NewTable (caller-supplied, validated).
type Table map[byte]uint64

// Estimate counts symbol occurrences in a single pass over data. An empty
// input yields an empty table; BuildTree rejects it.
func Estimate(data []byte) Table {
	table := make(Table)
	for _, b := range data {
		table[b]++
	}
	return table
}

// NewTable validates a caller-supplied frequency mapping and returns a
// defensive copy. The mapping must cover at least two distinct symbols and
// every count must be positive.
func NewTable(counts map[byte]uint64) (Table, error) {
	if len(counts) == 0 {
		return nil, ErrInvalidFrequencyTable
	}

	table := make(Table, len(counts))
	for sym, count := range counts {
		if count == 0 {
			return nil, fmt.Errorf("symbol %q has zero count: %w", sym, ErrInvalidFrequencyTable)
		}
		table[sym] = count
	}

	if len(table) < 2 {
		return nil, ErrDegenerateAlphabet
	}

	return table, nil
}

// Symbols returns the distinct symbols in ascending byte order. The order is
// load-bearing: it fixes the leaf sequence numbers that break weight ties
// during tree construction, and the entry order of the stream header.
func (t Table) Symbols() []byte {
	symbols := make([]byte, 0, len(t))
	for sym := range t {
		symbols = append(symbols, sym)
	}
	sort.Slice(symbols, func(i, j int) bool { return symbols[i] < symbols[j] })
	return symbols
}

// Total returns the summed occurrence count across all symbols.
func (t Table) Total() uint64 {
	var total uint64
	for _, count := range t {
		total += count
	}
	return total
}
