package huffman

import (
	"bytes"
	"encoding/binary"
	"fmt"
)

// Stream container layout, integers little-endian:
//
//	magic    "FCH1"
//	symbols  uint16, count of distinct symbols
//	entries  symbol byte + uvarint frequency, ascending symbol order
//	length   uvarint, original input length in bytes
//	payload  concatenated codes, MSB first, final byte zero-padded
//
// The header alone is enough to decode: BuildTree is deterministic, so the
// decoder re-derives the exact tree the encoder used from the frequencies.

var streamMagic = []byte("FCH1")

// maxSymbols bounds the header symbol count; the alphabet is bytes.
const maxSymbols = 256

// IsEncoded reports whether stream begins with the container magic.
func IsEncoded(stream []byte) bool {
	return len(stream) >= len(streamMagic) && bytes.Equal(stream[:len(streamMagic)], streamMagic)
}

// Encode compresses data into a self-describing container using codes derived
// from table. The table must cover every symbol of the input; it may cover
// more (user-supplied tables are often supersets). Input is read-only.
func Encode(data []byte, table Table) ([]byte, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("empty input has no symbol frequencies: %w", ErrInvalidFrequencyTable)
	}

	root, err := BuildTree(table)
	if err != nil {
		return nil, err
	}
	codes, err := DeriveCodeTable(root)
	if err != nil {
		return nil, err
	}

	symbols := table.Symbols()
	var scratch [binary.MaxVarintLen64]byte

	buf := make([]byte, 0, len(data)/2+4*len(symbols)+16)
	buf = append(buf, streamMagic...)
	binary.LittleEndian.PutUint16(scratch[:2], uint16(len(symbols)))
	buf = append(buf, scratch[:2]...)
	for _, sym := range symbols {
		buf = append(buf, sym)
		n := binary.PutUvarint(scratch[:], table[sym])
		buf = append(buf, scratch[:n]...)
	}
	n := binary.PutUvarint(scratch[:], uint64(len(data)))
	buf = append(buf, scratch[:n]...)

	// MSB-first bit packing through a 64-bit accumulator. Whole bytes are
	// flushed as they fill, so at most 7 bits stay pending between symbols.
	var acc uint64
	var pending uint
	for i, b := range data {
		code, ok := codes[b]
		if !ok {
			return nil, fmt.Errorf("symbol %q at offset %d not covered by frequency table: %w", b, i, ErrInvalidFrequencyTable)
		}
		acc = acc<<code.Len | code.Bits
		pending += uint(code.Len)
		for pending >= 8 {
			pending -= 8
			buf = append(buf, byte(acc>>pending))
		}
	}
	if pending > 0 {
		buf = append(buf, byte(acc<<(8-pending)))
	}

	return buf, nil
}

// Decode reconstructs the original bytes from an Encode container. It fails
// with ErrCorruptStream when the header is malformed, the bit stream ends
// before the recorded length is reached, or a code walk steps off the tree.
func Decode(stream []byte) ([]byte, error) {
	payload, table, origLen, err := parseHeader(stream)
	if err != nil {
		return nil, err
	}

	root, err := BuildTree(table)
	if err != nil {
		return nil, fmt.Errorf("header frequencies rejected (%v): %w", err, ErrCorruptStream)
	}

	out := make([]byte, 0, origLen)
	node := root
	bitsRead := 0
	for i := 0; i < len(payload) && uint64(len(out)) < origLen; i++ {
		b := payload[i]
		for bit := 7; bit >= 0 && uint64(len(out)) < origLen; bit-- {
			if (b>>uint(bit))&1 == 1 {
				node = node.Right
			} else {
				node = node.Left
			}
			bitsRead++
			if node == nil {
				return nil, fmt.Errorf("code walk left the tree at bit %d: %w", bitsRead, ErrCorruptStream)
			}
			if node.IsLeaf() {
				out = append(out, node.Symbol)
				node = root
			}
		}
	}

	if uint64(len(out)) < origLen {
		return nil, fmt.Errorf("bit stream exhausted after %d of %d symbols: %w", len(out), origLen, ErrCorruptStream)
	}
	// Anything beyond final-byte padding means the stream was spliced.
	if slack := len(payload)*8 - bitsRead; slack >= 8 {
		return nil, fmt.Errorf("%d trailing bits after final symbol: %w", slack, ErrCorruptStream)
	}

	return out, nil
}

// Compress encodes data with a frequency table estimated from the input
// itself. The result round-trips through Decompress byte-exactly.
func Compress(data []byte) ([]byte, error) {
	return Encode(data, Estimate(data))
}

// Decompress is the inverse of Compress.
func Decompress(stream []byte) ([]byte, error) {
	return Decode(stream)
}

func parseHeader(stream []byte) ([]byte, Table, uint64, error) {
	if len(stream) < len(streamMagic)+2 {
		return nil, nil, 0, fmt.Errorf("stream shorter than header: %w", ErrCorruptStream)
	}
	if !bytes.Equal(stream[:len(streamMagic)], streamMagic) {
		return nil, nil, 0, fmt.Errorf("bad magic %q: %w", stream[:len(streamMagic)], ErrCorruptStream)
	}
	rest := stream[len(streamMagic):]

	symbolCount := int(binary.LittleEndian.Uint16(rest[:2]))
	rest = rest[2:]
	if symbolCount == 0 || symbolCount > maxSymbols {
		return nil, nil, 0, fmt.Errorf("implausible symbol count %d: %w", symbolCount, ErrCorruptStream)
	}

	table := make(Table, symbolCount)
	prev := -1
	for i := 0; i < symbolCount; i++ {
		if len(rest) == 0 {
			return nil, nil, 0, fmt.Errorf("truncated symbol entry %d of %d: %w", i, symbolCount, ErrCorruptStream)
		}
		sym := rest[0]
		rest = rest[1:]
		if int(sym) <= prev {
			return nil, nil, 0, fmt.Errorf("symbol entries out of order at %q: %w", sym, ErrCorruptStream)
		}
		prev = int(sym)

		count, n := binary.Uvarint(rest)
		if n <= 0 || count == 0 {
			return nil, nil, 0, fmt.Errorf("bad frequency for symbol %q: %w", sym, ErrCorruptStream)
		}
		rest = rest[n:]
		table[sym] = count
	}

	origLen, n := binary.Uvarint(rest)
	if n <= 0 || origLen == 0 {
		return nil, nil, 0, fmt.Errorf("bad original length: %w", ErrCorruptStream)
	}
	rest = rest[n:]

	return rest, table, origLen, nil
}
