package ingest

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/ZanzyTHEbar/file-cabinet/cabinet/trees"

	"github.com/fsnotify/fsnotify"
)

const (
	defaultDebounceDelay = 200 * time.Millisecond
	defaultMaxDelay      = 2 * time.Second
	indexedQueueCapacity = 64
)

// Watcher keeps an index current by re-indexing files as they change on
// disk. Write bursts are debounced per path so each file indexes once per
// burst. Removals and renames leave stale entries behind until the next
// full scan rebuilds the index, since the index trees do not delete.
type Watcher struct {
	fsw      *fsnotify.Watcher
	sink     trees.EntrySink
	debounce time.Duration
	maxDelay time.Duration
	logger   *slog.Logger

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu      sync.Mutex
	pending map[string]*pendingIndex

	indexed chan string
}

type pendingIndex struct {
	timer *time.Timer
	first time.Time
}

// WatcherOption configures a Watcher.
type WatcherOption func(*Watcher)

// WithDebounce sets the quiet period before a changed file is re-indexed.
func WithDebounce(delay time.Duration) WatcherOption {
	return func(w *Watcher) {
		if delay > 0 {
			w.debounce = delay
		}
	}
}

// WithWatchLogger sets the logger used by the watch loop.
func WithWatchLogger(logger *slog.Logger) WatcherOption {
	return func(w *Watcher) {
		if logger != nil {
			w.logger = logger
		}
	}
}

// NewWatcher creates a watcher that feeds changed files into sink.
func NewWatcher(sink trees.EntrySink, opts ...WatcherOption) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create fsnotify watcher: %w", err)
	}

	ctx, cancel := context.WithCancel(context.Background())

	w := &Watcher{
		fsw:      fsw,
		sink:     sink,
		debounce: defaultDebounceDelay,
		maxDelay: defaultMaxDelay,
		logger:   slog.Default(),
		ctx:      ctx,
		cancel:   cancel,
		pending:  make(map[string]*pendingIndex),
		indexed:  make(chan string, indexedQueueCapacity),
	}
	for _, opt := range opts {
		opt(w)
	}
	return w, nil
}

// Start watches the given paths and all their subdirectories. The loop
// stops when ctx is cancelled or the watcher is closed.
func (w *Watcher) Start(ctx context.Context, paths ...string) error {
	for _, path := range paths {
		if err := w.addRecursive(path); err != nil {
			return fmt.Errorf("failed to watch %s: %w", path, err)
		}
	}

	w.wg.Add(1)
	go w.watchLoop(ctx)

	w.logger.Info("Watcher started", "paths", len(paths))
	return nil
}

// Add extends the watch set with additional paths.
func (w *Watcher) Add(paths ...string) error {
	for _, path := range paths {
		if err := w.addRecursive(path); err != nil {
			return fmt.Errorf("failed to watch %s: %w", path, err)
		}
	}
	return nil
}

// Indexed reports the normalized paths of files re-indexed by the watcher.
// Notifications are dropped when the reader falls behind. The channel is
// never closed; readers should select on their own context.
func (w *Watcher) Indexed() <-chan string {
	return w.indexed
}

// Close stops the watch loop and releases the underlying watcher.
func (w *Watcher) Close() error {
	w.cancel()

	w.mu.Lock()
	for _, p := range w.pending {
		p.timer.Stop()
	}
	w.pending = make(map[string]*pendingIndex)
	w.mu.Unlock()

	err := w.fsw.Close()
	w.wg.Wait()

	w.logger.Info("Watcher closed")
	return err
}

func (w *Watcher) addRecursive(rootPath string) error {
	return filepath.Walk(rootPath, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.IsDir() {
			if err := w.fsw.Add(path); err != nil {
				w.logger.Warn("Failed to add directory to watcher", "path", path, "error", err)
			}
		}
		return nil
	})
}

func (w *Watcher) watchLoop(ctx context.Context) {
	defer w.wg.Done()

	for {
		select {
		case <-ctx.Done():
			return
		case <-w.ctx.Done():
			return

		case event, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			w.handleEvent(event)

		case err, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
			w.logger.Warn("Watcher error", "error", err)
		}
	}
}

func (w *Watcher) handleEvent(event fsnotify.Event) {
	if !event.Has(fsnotify.Create) && !event.Has(fsnotify.Write) {
		// Removals and renames take effect on the next full scan.
		return
	}

	info, err := os.Stat(event.Name)
	if err != nil {
		// The path raced with a removal.
		return
	}

	if info.IsDir() {
		if event.Has(fsnotify.Create) {
			if err := w.addRecursive(event.Name); err != nil {
				w.logger.Warn("Failed to watch new directory", "path", event.Name, "error", err)
			}
		}
		return
	}

	w.scheduleIndex(event.Name)
}

// scheduleIndex resets the per-path quiet timer. A burst that keeps
// resetting past maxDelay indexes immediately so writes cannot starve it.
func (w *Watcher) scheduleIndex(path string) {
	w.mu.Lock()
	defer w.mu.Unlock()

	p, ok := w.pending[path]
	if !ok {
		p = &pendingIndex{first: time.Now()}
		w.pending[path] = p
	} else {
		p.timer.Stop()
		if time.Since(p.first) >= w.maxDelay {
			go w.indexPath(path)
			return
		}
	}

	p.timer = time.AfterFunc(w.debounce, func() {
		w.indexPath(path)
	})
}

func (w *Watcher) indexPath(path string) {
	w.mu.Lock()
	delete(w.pending, path)
	w.mu.Unlock()

	select {
	case <-w.ctx.Done():
		return
	default:
	}

	info, err := os.Stat(path)
	if err != nil || info.IsDir() {
		return
	}

	entry := trees.NewEntry(path, info.Size())
	entry.ModifiedAt = info.ModTime()
	if IsImageExtension(entry.Extension) {
		entry.CapturedAt = CaptureTime(path)
	}

	if err := w.sink.IndexFile(entry); err != nil {
		w.logger.Warn("Failed to index changed file", "path", path, "error", err)
		return
	}
	w.logger.Debug("Reindexed changed file", "path", path)

	select {
	case w.indexed <- entry.Path:
	default:
		w.logger.Warn("Indexed channel full, dropping notification", "path", entry.Path)
	}
}
