package catalog

import (
	"context"
	"os"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"trainrx/internal/logging"
)

// Watcher reloads a Repository when catalog files in a directory change.
// A reload that fails validation leaves the previous catalog in service.
type Watcher struct {
	mu          sync.RWMutex
	watcher     *fsnotify.Watcher
	repo        *Repository
	dir         string
	pending     map[string]time.Time
	debounceDur time.Duration
	stopCh      chan struct{}
	doneCh      chan struct{}
	running     bool
	closeOnce   sync.Once

	stats WatcherStats
}

// WatcherStats tracks watcher activity.
type WatcherStats struct {
	FilesCreated   int
	FilesModified  int
	FilesDeleted   int
	Reloads        int
	ReloadFailures int
	Errors         int
	LastEventTime  time.Time
	LastEventPath  string
	LastEventType  string
	LastError      string
}

// NewWatcher creates a Watcher for dir feeding repo. debounce is how long a
// file must stay quiet before the catalog is reloaded.
func NewWatcher(dir string, repo *Repository, debounce time.Duration) (*Watcher, error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if debounce <= 0 {
		debounce = 500 * time.Millisecond
	}

	return &Watcher{
		watcher:     watcher,
		repo:        repo,
		dir:         dir,
		pending:     make(map[string]time.Time),
		debounceDur: debounce,
		stopCh:      make(chan struct{}),
		doneCh:      make(chan struct{}),
	}, nil
}

// Start begins watching the catalog directory.
// This method is non-blocking; it starts the watcher in a goroutine.
func (w *Watcher) Start(ctx context.Context) error {
	w.mu.Lock()
	if w.running {
		w.mu.Unlock()
		return nil // Already running
	}
	w.running = true
	w.mu.Unlock()

	if err := os.MkdirAll(w.dir, 0755); err != nil {
		logging.CatalogWarn("watcher: failed to create catalog dir %s: %v", w.dir, err)
	}
	if err := w.watcher.Add(w.dir); err != nil {
		w.mu.Lock()
		w.running = false
		w.mu.Unlock()
		return err
	}
	logging.Catalog("watcher: watching directory: %s", w.dir)

	go w.run(ctx)
	return nil
}

// Stop stops the watcher, waits for cleanup and releases the underlying
// fsnotify watcher. It is safe to call without Start and more than once.
func (w *Watcher) Stop() {
	w.mu.Lock()
	wasRunning := w.running
	w.running = false
	w.mu.Unlock()

	if wasRunning {
		close(w.stopCh)
		<-w.doneCh
	}

	w.closeOnce.Do(w.closeWatcher)
}

func (w *Watcher) closeWatcher() {
	if err := w.watcher.Close(); err != nil {
		logging.Get(logging.CategoryCatalog).Error("watcher: error closing: %v", err)
	}
	logging.Catalog("watcher: stopped")
}

func (w *Watcher) run(ctx context.Context) {
	defer close(w.doneCh)

	ticker := time.NewTicker(debounceTick(w.debounceDur))
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return

		case <-w.stopCh:
			return

		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			w.handleEvent(event)

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			logging.Get(logging.CategoryCatalog).Error("watcher error: %v", err)
			w.mu.Lock()
			w.stats.Errors++
			w.mu.Unlock()

		case <-ticker.C:
			w.processSettled()
		}
	}
}

func debounceTick(d time.Duration) time.Duration {
	tick := d / 5
	if tick < 10*time.Millisecond {
		tick = 10 * time.Millisecond
	}
	if tick > 100*time.Millisecond {
		tick = 100 * time.Millisecond
	}
	return tick
}

func (w *Watcher) handleEvent(event fsnotify.Event) {
	if !IsCatalogFile(event.Name) {
		return
	}

	var eventType string
	switch {
	case event.Op&fsnotify.Create != 0:
		eventType = "create"
	case event.Op&fsnotify.Write != 0:
		eventType = "modify"
	case event.Op&fsnotify.Remove != 0:
		eventType = "delete"
	case event.Op&fsnotify.Rename != 0:
		eventType = "rename"
	default:
		return // Ignore chmod
	}

	logging.Get(logging.CategoryCatalog).Debug("watcher: %s event for %s", eventType, event.Name)

	w.mu.Lock()
	defer w.mu.Unlock()
	w.stats.LastEventTime = time.Now()
	w.stats.LastEventPath = event.Name
	w.stats.LastEventType = eventType
	switch eventType {
	case "create":
		w.stats.FilesCreated++
	case "modify":
		w.stats.FilesModified++
	case "delete", "rename":
		w.stats.FilesDeleted++
	}
	w.pending[event.Name] = time.Now()
}

// processSettled reloads once every pending file has been quiet for the
// debounce window.
func (w *Watcher) processSettled() {
	w.mu.Lock()
	if len(w.pending) == 0 {
		w.mu.Unlock()
		return
	}
	now := time.Now()
	for _, at := range w.pending {
		if now.Sub(at) < w.debounceDur {
			w.mu.Unlock()
			return
		}
	}
	w.pending = make(map[string]time.Time)
	w.mu.Unlock()

	_ = w.Reload()
}

// Reload loads the directory and swaps the repository's catalog if the
// result is valid.
func (w *Watcher) Reload() error {
	c, err := Load(w.dir)
	w.mu.Lock()
	defer w.mu.Unlock()
	if err != nil {
		w.stats.ReloadFailures++
		w.stats.LastError = err.Error()
		logging.CatalogWarn("watcher: reload rejected, keeping previous catalog: %v", err)
		return err
	}
	w.repo.Swap(c)
	w.stats.Reloads++
	w.stats.LastError = ""
	logging.Catalog("watcher: catalog reloaded: %d tenants, %d rules", len(c.Tenants()), c.RuleCount())
	return nil
}

// GetStats returns the current watcher statistics.
func (w *Watcher) GetStats() WatcherStats {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.stats
}

// IsWatching returns true if the watcher is currently running.
func (w *Watcher) IsWatching() bool {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.running
}
