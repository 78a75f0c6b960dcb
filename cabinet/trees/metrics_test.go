package trees

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetricsCollectorSnapshot(t *testing.T) {
	index, err := NewMultiIndex()
	require.NoError(t, err)

	entries := []*Entry{
		{Name: "a.txt", Path: "/data/a.txt", Size: 100},
		{Name: "b.bin", Path: "/data/b.bin", Size: 300, Compressed: true, StoredAt: "ab/ref-1"},
		{Name: "c.bin", Path: "/data/c.bin", Size: 500, StoredAt: "cd/ref-2"},
	}
	for _, e := range entries {
		require.NoError(t, index.IndexFile(e))
	}

	collector := NewMetricsCollector()
	require.NoError(t, collector.UpdateMetrics(context.Background(), index))

	m := collector.Snapshot()
	assert.Equal(t, int64(3), m.TotalEntries)
	assert.Equal(t, int64(900), m.TotalSize)
	assert.Equal(t, int64(1), m.CompressedCount)
	assert.Equal(t, int64(2), m.StoredCount)
	assert.Greater(t, m.NameTreeHeight, 0)
	assert.Greater(t, m.OrderedHeight, 0)
	assert.False(t, m.LastUpdated.IsZero())
}

func TestMetricsCollectorHonorsContext(t *testing.T) {
	index, err := NewMultiIndex()
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	collector := NewMetricsCollector()
	assert.ErrorIs(t, collector.UpdateMetrics(ctx, index), context.Canceled)
}

func TestMetricsCollectorOperationCounts(t *testing.T) {
	collector := NewMetricsCollector()
	collector.IncrementOperation("index")
	collector.IncrementOperation("index")
	collector.IncrementOperation("lookup")

	m := collector.Snapshot()
	assert.Equal(t, int64(2), m.OperationCounts["index"])
	assert.Equal(t, int64(1), m.OperationCounts["lookup"])

	// Recomputing from an index resets the counters.
	index, err := NewMultiIndex()
	require.NoError(t, err)
	require.NoError(t, collector.UpdateMetrics(context.Background(), index))
	assert.Empty(t, collector.Snapshot().OperationCounts)
	assert.GreaterOrEqual(t, collector.Snapshot().ProcessingTime, time.Duration(0))
}
