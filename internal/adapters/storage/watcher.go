package storage

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

const defaultDebounce = 200 * time.Millisecond

// Watcher reports edits that another process makes to one key of a FileStore.
// Events are debounced, and changes that match this process's last write are ignored.
type Watcher struct {
	store    *FileStore
	key      string
	onChange func(ctx context.Context) error
	debounce time.Duration
	logger   *slog.Logger

	mu      sync.Mutex
	watcher *fsnotify.Watcher
	running bool
	stopCh  chan struct{}
	doneCh  chan struct{}
}

// WatcherConfig holds Watcher settings. Debounce defaults to 200ms.
type WatcherConfig struct {
	Store    *FileStore
	Key      string
	OnChange func(ctx context.Context) error
	Debounce time.Duration
	Logger   *slog.Logger
}

// NewWatcher creates a stopped Watcher.
func NewWatcher(cfg WatcherConfig) *Watcher {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	debounce := cfg.Debounce
	if debounce <= 0 {
		debounce = defaultDebounce
	}

	return &Watcher{
		store:    cfg.Store,
		key:      cfg.Key,
		onChange: cfg.OnChange,
		debounce: debounce,
		logger:   logger.With(slog.String("component", "storage_watcher")),
	}
}

// Start watches the storage directory. The directory is watched rather than
// the file because atomic renames replace the file's inode.
func (w *Watcher) Start(ctx context.Context) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.running {
		return nil
	}

	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("creating watcher: %w", err)
	}

	if err := fw.Add(w.store.Dir()); err != nil {
		_ = fw.Close()
		return fmt.Errorf("watching %s: %w", w.store.Dir(), err)
	}

	w.watcher = fw
	w.stopCh = make(chan struct{})
	w.doneCh = make(chan struct{})
	w.running = true

	go w.run(ctx, fw, w.stopCh, w.doneCh)

	w.logger.InfoContext(ctx, "watching storage", slog.String("path", w.store.Path(w.key)))

	return nil
}

// Stop ends the watch and waits for the event loop to exit. Safe to call twice.
func (w *Watcher) Stop() {
	w.mu.Lock()
	defer w.mu.Unlock()

	if !w.running {
		return
	}

	close(w.stopCh)
	<-w.doneCh

	if err := w.watcher.Close(); err != nil {
		w.logger.Warn("closing watcher", slog.Any("error", err))
	}

	w.running = false
}

func (w *Watcher) run(ctx context.Context, fw *fsnotify.Watcher, stopCh <-chan struct{}, doneCh chan<- struct{}) {
	defer close(doneCh)

	target := filepath.Base(w.store.Path(w.key))

	timer := time.NewTimer(w.debounce)
	timer.Stop()

	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-stopCh:
			return
		case event, ok := <-fw.Events:
			if !ok {
				return
			}

			if filepath.Base(event.Name) != target {
				continue
			}

			if !event.Has(fsnotify.Create) && !event.Has(fsnotify.Write) &&
				!event.Has(fsnotify.Remove) && !event.Has(fsnotify.Rename) {
				continue
			}

			timer.Reset(w.debounce)
		case err, ok := <-fw.Errors:
			if !ok {
				return
			}

			w.logger.WarnContext(ctx, "watcher error", slog.Any("error", err))
		case <-timer.C:
			w.fire(ctx)
		}
	}
}

func (w *Watcher) fire(ctx context.Context) {
	if w.store.WroteLast(w.key) {
		return
	}

	w.logger.InfoContext(ctx, "storage changed outside this process", slog.String("key", w.key))

	if err := w.onChange(ctx); err != nil {
		w.logger.WarnContext(ctx, "reloading after external change", slog.Any("error", err))
	}
}
