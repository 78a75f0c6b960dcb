package storage

import (
	"github.com/ZanzyTHEbar/file-cabinet/cabinet/huffman"
)

// Codec transforms file bytes into their stored form and back. Sniff reports
// whether a stored byte slice looks like this codec's output, so the vault
// can pick the right decoder on read regardless of which codec wrote it.
type Codec interface {
	Name() string
	Encode(data []byte) ([]byte, error)
	Decode(data []byte) ([]byte, error)
	Sniff(data []byte) bool
}

// HuffmanCodec stores files as self-describing bit streams built from their
// own byte frequencies. It is the default vault codec.
type HuffmanCodec struct{}

// NewHuffmanCodec creates the default vault codec.
func NewHuffmanCodec() *HuffmanCodec {
	return &HuffmanCodec{}
}

// Name implements Codec.Name
func (HuffmanCodec) Name() string { return "huffman" }

// Encode implements Codec.Encode
func (HuffmanCodec) Encode(data []byte) ([]byte, error) {
	return huffman.Compress(data)
}

// Decode implements Codec.Decode
func (HuffmanCodec) Decode(data []byte) ([]byte, error) {
	return huffman.Decompress(data)
}

// Sniff implements Codec.Sniff
func (HuffmanCodec) Sniff(data []byte) bool {
	return huffman.IsEncoded(data)
}
