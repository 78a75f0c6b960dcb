package ingest

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"sync"
	"sync/atomic"
	"time"

	internal "github.com/ZanzyTHEbar/file-cabinet/cabinet"
	"github.com/ZanzyTHEbar/file-cabinet/cabinet/trees"

	"github.com/sourcegraph/conc/pool"
)

// ScanStats tracks counters for a single traversal.
type ScanStats struct {
	DirsProcessed int64
	FilesIndexed  int64
	FilesIgnored  int64
	ErrorsFound   int64
	Duration      time.Duration
}

// Scanner walks a directory tree breadth-first and feeds every accepted
// file into an entry sink, typically the index coordinator.
type Scanner struct {
	maxWorkers  int
	maxDepth    int
	extractExif bool
	ignoreFile  string
	logger      *slog.Logger
}

// ScannerOption configures a Scanner.
type ScannerOption func(*Scanner)

// WithWorkers bounds the number of concurrent directory readers.
func WithWorkers(n int) ScannerOption {
	return func(s *Scanner) {
		if n > 0 {
			s.maxWorkers = n
		}
	}
}

// WithMaxDepth limits traversal depth; non-positive means unlimited.
func WithMaxDepth(n int) ScannerOption {
	return func(s *Scanner) {
		if n > 0 {
			s.maxDepth = n
		} else {
			s.maxDepth = -1
		}
	}
}

// WithExifExtraction toggles capture-time extraction for image files.
func WithExifExtraction(enabled bool) ScannerOption {
	return func(s *Scanner) {
		s.extractExif = enabled
	}
}

// WithIgnoreFileName overrides the per-directory ignore file name.
func WithIgnoreFileName(name string) ScannerOption {
	return func(s *Scanner) {
		if name != "" {
			s.ignoreFile = name
		}
	}
}

// WithScannerLogger sets the logger used during traversal.
func WithScannerLogger(logger *slog.Logger) ScannerOption {
	return func(s *Scanner) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// NewScanner creates a scanner with bounded concurrency. The default worker
// count scales with the host CPUs but stays within a sane window.
func NewScanner(opts ...ScannerOption) *Scanner {
	maxWorkers := runtime.NumCPU() * 2
	if maxWorkers < 4 {
		maxWorkers = 4
	}
	if maxWorkers > 32 {
		maxWorkers = 32
	}

	s := &Scanner{
		maxWorkers:  maxWorkers,
		maxDepth:    -1,
		extractExif: true,
		ignoreFile:  internal.DefaultIgnoreFile,
		logger:      slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Scan traverses rootPath level by level, one worker pool per level, and
// indexes every accepted file into sink. Ignore files are honored per
// directory. Cancelling the context stops the traversal between levels.
func (s *Scanner) Scan(ctx context.Context, rootPath string, sink trees.EntrySink) (*ScanStats, error) {
	info, err := os.Stat(rootPath)
	if err != nil {
		return nil, fmt.Errorf("failed to stat scan root %s: %w", rootPath, err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("scan root %s is not a directory", rootPath)
	}

	stats := &ScanStats{}
	start := time.Now()

	currentLevel := []string{rootPath}
	for depth := 0; len(currentLevel) > 0; depth++ {
		if s.maxDepth >= 0 && depth > s.maxDepth {
			break
		}

		nextLevel := make([]string, 0, len(currentLevel)*2)
		var nextLevelMu sync.Mutex

		// A fresh pool per level keeps the traversal breadth-first while
		// bounding the number of in-flight directory reads.
		levelPool := pool.New().WithMaxGoroutines(s.maxWorkers).WithContext(ctx)

		for _, dir := range currentLevel {
			levelPool.Go(func(ctx context.Context) error {
				children, err := s.processDirectory(ctx, dir, sink, stats)
				if err != nil {
					if ctx.Err() != nil {
						return ctx.Err()
					}
					atomic.AddInt64(&stats.ErrorsFound, 1)
					s.logger.Error("Error processing directory", "path", dir, "error", err)
					return nil
				}
				atomic.AddInt64(&stats.DirsProcessed, 1)

				nextLevelMu.Lock()
				nextLevel = append(nextLevel, children...)
				nextLevelMu.Unlock()
				return nil
			})
		}

		if err := levelPool.Wait(); err != nil {
			stats.Duration = time.Since(start)
			return stats, err
		}
		currentLevel = nextLevel
	}

	stats.Duration = time.Since(start)
	s.logger.Info("Scan completed",
		"root", rootPath,
		"dirs", stats.DirsProcessed,
		"files", stats.FilesIndexed,
		"ignored", stats.FilesIgnored,
		"errors", stats.ErrorsFound,
		"duration", stats.Duration)
	return stats, nil
}

func (s *Scanner) processDirectory(ctx context.Context, dir string, sink trees.EntrySink, stats *ScanStats) ([]string, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	default:
	}

	dirEntries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read directory %s: %w", dir, err)
	}

	ignored, err := LoadIgnoreFileNamed(dir, s.ignoreFile)
	if err != nil {
		s.logger.Warn("Failed to load ignore patterns", "path", dir, "error", err)
	}

	children := make([]string, 0, 4)
	for _, dirEntry := range dirEntries {
		childPath := filepath.Join(dir, dirEntry.Name())

		if ignored != nil && ignored.MatchesPath(childPath) {
			atomic.AddInt64(&stats.FilesIgnored, 1)
			s.logger.Debug("Ignoring path", "path", childPath)
			continue
		}

		if dirEntry.IsDir() {
			children = append(children, childPath)
			continue
		}

		info, err := dirEntry.Info()
		if err != nil {
			atomic.AddInt64(&stats.ErrorsFound, 1)
			s.logger.Warn("Error getting file info", "path", childPath, "error", err)
			continue
		}

		entry := trees.NewEntry(childPath, info.Size())
		entry.ModifiedAt = info.ModTime()
		if s.extractExif && IsImageExtension(entry.Extension) {
			entry.CapturedAt = CaptureTime(childPath)
		}

		if err := sink.IndexFile(entry); err != nil {
			atomic.AddInt64(&stats.ErrorsFound, 1)
			s.logger.Warn("Sink rejected file", "path", childPath, "error", err)
			continue
		}
		atomic.AddInt64(&stats.FilesIndexed, 1)
	}

	return children, nil
}
