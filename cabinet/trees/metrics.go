package trees

import (
	"context"
	"sync"
	"sync/atomic"
	"time"
)

// MetricsCollector provides metrics collection functionality for the
// coordinated indexes. Added mu for locking during OperationCounts updates.
type MetricsCollector struct {
	mu      sync.Mutex
	metrics atomic.Value // stores *IndexMetrics
	started time.Time
}

// NewMetricsCollector creates a new metrics collector
func NewMetricsCollector() *MetricsCollector {
	mc := &MetricsCollector{
		started: time.Now(),
	}
	mc.metrics.Store(&IndexMetrics{
		OperationCounts: make(map[string]int64),
	})
	return mc
}

// IncrementOperation safely increments operation count using mutex locking
func (mc *MetricsCollector) IncrementOperation(op string) {
	mc.mu.Lock()
	defer mc.mu.Unlock()
	metrics := mc.metrics.Load().(*IndexMetrics)
	metrics.OperationCounts[op]++
	mc.metrics.Store(metrics)
}

// UpdateMetrics recomputes metrics from the coordinator's current state by
// draining the ordered tree's leaf chain.
func (mc *MetricsCollector) UpdateMetrics(ctx context.Context, mi *MultiIndex) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}

	newMetrics := &IndexMetrics{
		OperationCounts: make(map[string]int64),
		LastUpdated:     time.Now(),
	}

	for _, entry := range mi.ListAll() {
		newMetrics.TotalEntries++
		newMetrics.TotalSize += entry.Size
		if entry.Compressed {
			newMetrics.CompressedCount++
		}
		if entry.StoredAt != "" {
			newMetrics.StoredCount++
		}
	}
	newMetrics.NameTreeHeight, newMetrics.OrderedHeight = mi.Heights()
	newMetrics.ProcessingTime = time.Since(mc.started)

	mc.metrics.Store(newMetrics)

	return nil
}

// Snapshot returns the most recently computed metrics.
func (mc *MetricsCollector) Snapshot() *IndexMetrics {
	return mc.metrics.Load().(*IndexMetrics)
}
