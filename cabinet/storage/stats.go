package storage

import (
	"sync"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// StatsSummary reports aggregate compression outcomes for a vault. Ratios
// are stored/original, so smaller is better and 1.0 means no gain.
type StatsSummary struct {
	Objects       int64
	RawObjects    int64
	OriginalBytes int64
	StoredBytes   int64
	MeanRatio     float64
	StdDevRatio   float64
	BestRatio     float64
	WorstRatio    float64
}

// StatsRecorder accumulates per-object compression outcomes.
type StatsRecorder struct {
	mu       sync.Mutex
	ratios   []float64
	original int64
	stored   int64
	raw      int64
}

// NewStatsRecorder creates an empty recorder.
func NewStatsRecorder() *StatsRecorder {
	return &StatsRecorder{}
}

// Record tracks one stored object. Objects stored raw count toward the byte
// totals but not toward the ratio distribution.
func (r *StatsRecorder) Record(originalBytes, storedBytes int, compressed bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.original += int64(originalBytes)
	r.stored += int64(storedBytes)
	if !compressed {
		r.raw++
		return
	}
	if originalBytes > 0 {
		r.ratios = append(r.ratios, float64(storedBytes)/float64(originalBytes))
	}
}

// Summary reduces the recorded outcomes to distribution statistics.
func (r *StatsRecorder) Summary() StatsSummary {
	r.mu.Lock()
	defer r.mu.Unlock()

	summary := StatsSummary{
		Objects:       int64(len(r.ratios)) + r.raw,
		RawObjects:    r.raw,
		OriginalBytes: r.original,
		StoredBytes:   r.stored,
	}
	if len(r.ratios) == 0 {
		return summary
	}

	summary.MeanRatio = stat.Mean(r.ratios, nil)
	if len(r.ratios) > 1 {
		summary.StdDevRatio = stat.StdDev(r.ratios, nil)
	}
	summary.BestRatio = floats.Min(r.ratios)
	summary.WorstRatio = floats.Max(r.ratios)
	return summary
}
