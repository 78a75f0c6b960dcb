package storage

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

// Vault is the content store. Each object lives under a two-character shard
// directory, named by a random id; the returned reference is what the index
// records in Entry.StoredAt. Writes go through the configured codec when
// compression pays for itself; reads sniff the stored form, so a vault
// written with one codec can be reopened with another.
type Vault struct {
	root     string
	codec    Codec
	sniffers []Codec
	minBytes int64
	cache    *Cache
	stats    *StatsRecorder
	logger   *slog.Logger
}

// VaultOption allows for customization of the Vault
type VaultOption func(*Vault)

// WithVaultCodec sets the write codec. Reads are unaffected.
func WithVaultCodec(codec Codec) VaultOption {
	return func(v *Vault) {
		v.codec = codec
	}
}

// WithVaultCache attaches a read-through cache for decoded objects.
func WithVaultCache(cache *Cache) VaultOption {
	return func(v *Vault) {
		v.cache = cache
	}
}

// WithMinCompressBytes sets the size below which objects are stored raw.
func WithMinCompressBytes(n int64) VaultOption {
	return func(v *Vault) {
		v.minBytes = n
	}
}

// WithVaultLogger sets a custom logger
func WithVaultLogger(logger *slog.Logger) VaultOption {
	return func(v *Vault) {
		v.logger = logger
	}
}

// NewVault opens or initializes the content store rooted at the given
// directory.
func NewVault(root string, opts ...VaultOption) (*Vault, error) {
	if strings.TrimSpace(root) == "" {
		return nil, fmt.Errorf("vault root must not be empty")
	}
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("could not create vault directory: %w", err)
	}

	v := &Vault{
		root:     root,
		codec:    NewHuffmanCodec(),
		minBytes: 64,
		stats:    NewStatsRecorder(),
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(v)
	}

	// Readers must recognize every stored form, not just the write codec's
	v.sniffers = []Codec{v.codec}
	if v.codec.Name() != "huffman" {
		v.sniffers = append(v.sniffers, NewHuffmanCodec())
	}
	if v.codec.Name() != "zstd" {
		zcodec, err := NewZstdCodec(0)
		if err != nil {
			return nil, err
		}
		v.sniffers = append(v.sniffers, zcodec)
	}

	return v, nil
}

// Put stores data and returns the reference to fetch it back, plus whether
// the stored form is compressed.
func (v *Vault) Put(data []byte) (string, bool, error) {
	stored := data
	compressed := false

	if int64(len(data)) >= v.minBytes {
		if encoded, err := v.codec.Encode(data); err == nil && len(encoded) < len(data) {
			stored = encoded
			compressed = true
		}
	}
	if !compressed && v.wouldMisread(stored) {
		// A raw object that happens to look codec-framed must be stored
		// encoded, or a later read would try to decode it
		if encoded, err := v.codec.Encode(data); err == nil {
			stored = encoded
			compressed = true
		}
	}

	id := uuid.New().String()
	ref := id[:2] + "/" + id
	if err := os.MkdirAll(filepath.Join(v.root, id[:2]), 0o755); err != nil {
		return "", false, fmt.Errorf("could not create shard directory: %w", err)
	}
	if err := os.WriteFile(filepath.Join(v.root, filepath.FromSlash(ref)), stored, 0o644); err != nil {
		return "", false, fmt.Errorf("could not write vault object: %w", err)
	}

	v.stats.Record(len(data), len(stored), compressed)
	if v.cache != nil {
		v.cache.Set(ref, data)
	}

	v.logger.Debug("Vault object stored",
		"ref", ref,
		"codec", v.codec.Name(),
		"original_bytes", len(data),
		"stored_bytes", len(stored),
		"compressed", compressed)

	return ref, compressed, nil
}

// Get fetches a stored object and returns its original bytes.
func (v *Vault) Get(ref string) ([]byte, error) {
	if !validRef(ref) {
		return nil, fmt.Errorf("ref %q: %w", ref, ErrInvalidObjectRef)
	}

	if v.cache != nil {
		if data, ok := v.cache.Get(ref); ok {
			v.logger.Debug("Vault cache hit", "ref", ref)
			return data, nil
		}
	}

	stored, err := os.ReadFile(filepath.Join(v.root, filepath.FromSlash(ref)))
	if os.IsNotExist(err) {
		return nil, fmt.Errorf("ref %q: %w", ref, ErrObjectNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("could not read vault object: %w", err)
	}

	data := stored
	for _, codec := range v.sniffers {
		if codec.Sniff(stored) {
			if data, err = codec.Decode(stored); err != nil {
				return nil, fmt.Errorf("vault object %q failed %s decode: %w", ref, codec.Name(), err)
			}
			break
		}
	}

	if v.cache != nil {
		v.cache.Set(ref, data)
	}
	return data, nil
}

// Root returns the vault's base directory.
func (v *Vault) Root() string {
	return v.root
}

// Stats returns aggregate compression outcomes for this vault's writes.
func (v *Vault) Stats() StatsSummary {
	return v.stats.Summary()
}

// Close releases codec and cache resources.
func (v *Vault) Close() error {
	var err error
	for _, codec := range v.sniffers {
		if closer, ok := codec.(interface{ Close() error }); ok {
			if cerr := closer.Close(); cerr != nil {
				err = cerr
			}
		}
	}
	if v.cache != nil {
		v.cache.Close()
	}
	return err
}

// wouldMisread reports whether raw data would be mistaken for a codec's
// output on read.
func (v *Vault) wouldMisread(data []byte) bool {
	for _, codec := range v.sniffers {
		if codec.Sniff(data) {
			return true
		}
	}
	return false
}

// validRef accepts only the shard/id shape Put generates.
func validRef(ref string) bool {
	shard, id, ok := strings.Cut(ref, "/")
	if !ok || len(shard) != 2 || id == "" || strings.Contains(id, "/") {
		return false
	}
	return filepath.IsLocal(filepath.FromSlash(ref))
}
