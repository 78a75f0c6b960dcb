package storage

import (
	"bytes"

	"github.com/klauspost/compress/zstd"
)

// zstdPrefixLength is the length of the frame marker in compressed data.
const zstdPrefixLength = 4

// zstdFrameMagic contains the first 4 bytes of any zstd frame.
var zstdFrameMagic = []byte{0x28, 0xb5, 0x2f, 0xfd}

// ZstdCodec is the alternative vault codec for workloads where the
// frequency-based default is too slow or too weak.
type ZstdCodec struct {
	encoder *zstd.Encoder
	decoder *zstd.Decoder
}

// NewZstdCodec creates a zstd codec at the given compression level.
// Non-positive levels select the default level.
func NewZstdCodec(level int) (*ZstdCodec, error) {
	if level <= 0 {
		level = 3
	}

	encoder, err := zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.EncoderLevelFromZstd(level)))
	if err != nil {
		return nil, err
	}
	decoder, err := zstd.NewReader(nil)
	if err != nil {
		encoder.Close()
		return nil, err
	}

	return &ZstdCodec{encoder: encoder, decoder: decoder}, nil
}

// Name implements Codec.Name
func (c *ZstdCodec) Name() string { return "zstd" }

// Encode implements Codec.Encode
func (c *ZstdCodec) Encode(data []byte) ([]byte, error) {
	maxSize := c.encoder.MaxEncodedSize(len(data))
	return c.encoder.EncodeAll(data, make([]byte, 0, maxSize)), nil
}

// Decode implements Codec.Decode
func (c *ZstdCodec) Decode(data []byte) ([]byte, error) {
	return c.decoder.DecodeAll(data, nil)
}

// Sniff implements Codec.Sniff
func (c *ZstdCodec) Sniff(data []byte) bool {
	return len(data) >= zstdPrefixLength && bytes.Equal(data[:zstdPrefixLength], zstdFrameMagic)
}

// Close closes encoder and decoder, returns any error occurred.
func (c *ZstdCodec) Close() error {
	var err error
	if c.encoder != nil {
		err = c.encoder.Close()
	}
	if c.decoder != nil {
		c.decoder.Close()
	}
	return err
}
