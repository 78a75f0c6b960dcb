package storage

import (
	"fmt"

	"github.com/dgraph-io/ristretto/v2"
)

// Cache holds decoded vault objects so repeated reads skip the disk and the
// decoder. Cost is the decoded byte length, which lets memory pressure evict
// large objects first.
type Cache struct {
	cache *ristretto.Cache[string, []byte]
}

// NewCache builds a cache bounded by maxBytes of decoded content.
// Non-positive arguments select the defaults.
func NewCache(maxBytes, numCounters int64) (*Cache, error) {
	if maxBytes <= 0 {
		maxBytes = 64 << 20
	}
	if numCounters <= 0 {
		numCounters = 1_000_000
	}

	inner, err := ristretto.NewCache(&ristretto.Config[string, []byte]{
		NumCounters: numCounters,
		MaxCost:     maxBytes,
		BufferItems: 64,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to build vault cache: %w", err)
	}

	return &Cache{cache: inner}, nil
}

// Get returns the cached bytes for a vault reference. Callers must treat the
// returned slice as read-only.
func (c *Cache) Get(key string) ([]byte, bool) {
	return c.cache.Get(key)
}

// Set stores decoded bytes under a vault reference. Admission is best-effort;
// a rejected set is not an error.
func (c *Cache) Set(key string, data []byte) {
	c.cache.Set(key, data, int64(len(data)))
}

// Wait blocks until pending sets are applied. Mostly useful in tests.
func (c *Cache) Wait() {
	c.cache.Wait()
}

// Close releases the cache's internal resources.
func (c *Cache) Close() {
	c.cache.Close()
}
