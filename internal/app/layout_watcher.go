package app

import (
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

const (
	defaultDebounceMs   = 200
	defaultPollInterval = 10 * time.Second
)

// LayoutWatcher watches the config file and calls reload when it changes,
// so edits to the layout take effect without reconnecting. If fsnotify is
// unavailable it falls back to polling the file's modification time.
type LayoutWatcher struct {
	path         string
	reload       func() error
	logger       *log.Logger
	debounceMs   int
	pollInterval time.Duration

	mu            sync.Mutex
	lastRev       string
	debounceTimer *time.Timer
	watcher       *fsnotify.Watcher
	stopCh        chan struct{}
	doneCh        chan struct{}
	reloadMu      sync.Mutex // serializes reloads from the debounce timer and the poll loop
}

// LayoutWatcherOption configures the watcher.
type LayoutWatcherOption func(*LayoutWatcher)

// WithLayoutPollInterval sets the fallback poll interval (default 10s).
func WithLayoutPollInterval(d time.Duration) LayoutWatcherOption {
	return func(w *LayoutWatcher) { w.pollInterval = d }
}

// WithLayoutDebounce sets how long to wait for writes to settle.
func WithLayoutDebounce(ms int) LayoutWatcherOption {
	return func(w *LayoutWatcher) { w.debounceMs = ms }
}

// NewLayoutWatcher creates a watcher for path. The current file revision
// is taken as already loaded.
func NewLayoutWatcher(path string, reload func() error, logger *log.Logger, opts ...LayoutWatcherOption) *LayoutWatcher {
	w := &LayoutWatcher{
		path:         path,
		reload:       reload,
		logger:       logger,
		debounceMs:   defaultDebounceMs,
		pollInterval: defaultPollInterval,
		stopCh:       make(chan struct{}),
		doneCh:       make(chan struct{}),
	}
	for _, o := range opts {
		o(w)
	}
	w.lastRev = w.revision()
	return w
}

// Start watches until ctx is cancelled or Stop is called.
func (w *LayoutWatcher) Start(ctx context.Context) {
	defer close(w.doneCh)

	watchDir := filepath.Dir(w.path)
	name := filepath.Base(w.path)

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		w.logger.Printf("LayoutWatcher: fsnotify init failed (%v), using poll-only", err)
	} else if err := watcher.Add(watchDir); err != nil {
		w.logger.Printf("LayoutWatcher: fsnotify add %s failed (%v), using poll-only", watchDir, err)
		_ = watcher.Close()
	} else {
		w.watcher = watcher
		defer w.watcher.Close()
		go w.watchLoop(ctx, name)
	}

	w.pollLoop(ctx)

	w.mu.Lock()
	if w.debounceTimer != nil {
		w.debounceTimer.Stop()
	}
	w.mu.Unlock()
}

// Stop signals the watcher to stop and waits for it.
func (w *LayoutWatcher) Stop() {
	close(w.stopCh)
	<-w.doneCh
}

// CheckOnce reloads if the file changed since the last reload (for testing
// or manual trigger).
func (w *LayoutWatcher) CheckOnce() {
	w.checkAndReload()
}

func (w *LayoutWatcher) watchLoop(ctx context.Context, name string) {
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
			if filepath.Base(event.Name) != name {
				continue
			}
			// Editors often replace the file with a rename, so Create counts too.
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}
			w.triggerDebounced()
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.logger.Printf("LayoutWatcher: %v", err)
		}
	}
}

func (w *LayoutWatcher) triggerDebounced() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.debounceTimer != nil {
		w.debounceTimer.Stop()
	}
	w.debounceTimer = time.AfterFunc(time.Duration(w.debounceMs)*time.Millisecond, w.checkAndReload)
}

func (w *LayoutWatcher) pollLoop(ctx context.Context) {
	ticker := time.NewTicker(w.pollInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-w.stopCh:
			return
		case <-ticker.C:
			w.checkAndReload()
		}
	}
}

func (w *LayoutWatcher) checkAndReload() {
	w.reloadMu.Lock()
	defer w.reloadMu.Unlock()

	rev := w.revision()
	if rev == "" {
		return
	}
	w.mu.Lock()
	if rev == w.lastRev {
		w.mu.Unlock()
		return
	}
	w.mu.Unlock()

	// A broken revision is recorded too: it is retried only once rewritten.
	w.mu.Lock()
	w.lastRev = rev
	w.mu.Unlock()

	if err := w.reload(); err != nil {
		w.logger.Printf("LayoutWatcher: reload %s: %v", w.path, err)
		return
	}
	w.logger.Printf("LayoutWatcher: reloaded %s", w.path)
}

// revision identifies the file's current contents by size and mtime.
func (w *LayoutWatcher) revision() string {
	info, err := os.Stat(w.path)
	if err != nil {
		return ""
	}
	return fmt.Sprintf("%d:%d", info.Size(), info.ModTime().UnixNano())
}
