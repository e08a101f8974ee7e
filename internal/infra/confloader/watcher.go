package confloader

import (
	"log/slog"
	"path/filepath"
	"sync"

	"github.com/fsnotify/fsnotify"
)

// Watcher reloads configuration when the watched file changes. It
// watches the containing directory rather than the file itself so
// editor-style atomic renames are still seen.
type Watcher struct {
	fsw       *fsnotify.Watcher
	mu        sync.RWMutex
	callbacks []func(path string)
	done      chan struct{}
	log       *slog.Logger
}

// WatcherOption configures a Watcher.
type WatcherOption func(*Watcher)

// WithWatcherLogger sets the watcher's logger.
func WithWatcherLogger(log *slog.Logger) WatcherOption {
	return func(w *Watcher) { w.log = log }
}

// NewWatcher creates a stopped watcher.
func NewWatcher(opts ...WatcherOption) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	w := &Watcher{
		fsw:  fsw,
		done: make(chan struct{}),
		log:  slog.Default(),
	}
	for _, opt := range opts {
		opt(w)
	}
	return w, nil
}

// Watch registers a file path.
func (w *Watcher) Watch(path string) error {
	dir := filepath.Dir(path)
	if err := w.fsw.Add(dir); err != nil {
		w.log.Error("cannot watch config directory", "path", dir, "error", err)
		return err
	}
	w.log.Debug("watching config directory", "path", dir, "file", filepath.Base(path))
	return nil
}

// OnChange registers a callback invoked with the changed file's path.
func (w *Watcher) OnChange(fn func(path string)) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.callbacks = append(w.callbacks, fn)
}

// Start blocks, dispatching change events until Stop is called.
func (w *Watcher) Start() {
	w.log.Info("configuration watcher started")
	for {
		select {
		case event, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			if event.Has(fsnotify.Write) || event.Has(fsnotify.Create) {
				w.log.Debug("config file changed", "file", event.Name, "op", event.Op.String())
				w.dispatch(event.Name)
			}
		case err, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
			w.log.Error("configuration watcher error", "error", err)
		case <-w.done:
			return
		}
	}
}

// StartAsync runs Start in its own goroutine.
func (w *Watcher) StartAsync() {
	go w.Start()
}

// Stop ends watching and releases the fsnotify handle.
func (w *Watcher) Stop() error {
	close(w.done)
	if err := w.fsw.Close(); err != nil {
		w.log.Error("cannot close watcher", "error", err)
		return err
	}
	w.log.Info("configuration watcher stopped")
	return nil
}

func (w *Watcher) dispatch(path string) {
	w.mu.RLock()
	defer w.mu.RUnlock()
	for _, fn := range w.callbacks {
		fn(path)
	}
}
