// Package watch reports changes to a set of files, debounced.
package watch

import (
	"context"
	"log/slog"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// DefaultDebounce is how long to wait for more writes before reporting.
const DefaultDebounce = 200 * time.Millisecond

// Watcher watches files by watching their directories, which keeps working
// when editors replace a file instead of writing it in place.
type Watcher struct {
	fsw      *fsnotify.Watcher
	files    map[string]bool
	debounce time.Duration
	logger   *slog.Logger

	pendingMu sync.Mutex
	pending   map[string]bool

	events chan string
}

// New watches files. Paths are made absolute.
func New(files []string, debounce time.Duration, logger *slog.Logger) (*Watcher, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if debounce <= 0 {
		debounce = DefaultDebounce
	}
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	w := &Watcher{
		fsw:      fsw,
		files:    map[string]bool{},
		debounce: debounce,
		logger:   logger,
		pending:  map[string]bool{},
		events:   make(chan string, 64),
	}
	dirs := map[string]bool{}
	for _, f := range files {
		abs, err := filepath.Abs(f)
		if err != nil {
			fsw.Close()
			return nil, err
		}
		w.files[abs] = true
		dirs[filepath.Dir(abs)] = true
	}
	for d := range dirs {
		if err := fsw.Add(d); err != nil {
			fsw.Close()
			return nil, err
		}
		logger.Debug("watching directory", "path", d)
	}
	return w, nil
}

// Events returns the changed file paths. It is closed when Run returns.
func (w *Watcher) Events() <-chan string { return w.events }

// Run delivers events until ctx is canceled or the watcher fails.
func (w *Watcher) Run(ctx context.Context) error {
	defer close(w.events)
	defer w.fsw.Close()
	ticker := time.NewTicker(w.debounce)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-w.fsw.Events:
			if !ok {
				return nil
			}
			w.handle(ev)
		case err, ok := <-w.fsw.Errors:
			if !ok {
				return nil
			}
			w.logger.Error("watcher error", "error", err)
		case <-ticker.C:
			w.flush(ctx)
		}
	}
}

func (w *Watcher) handle(ev fsnotify.Event) {
	name, err := filepath.Abs(ev.Name)
	if err != nil || !w.files[name] {
		return
	}
	if !ev.Has(fsnotify.Write) && !ev.Has(fsnotify.Create) && !ev.Has(fsnotify.Rename) {
		return
	}
	w.pendingMu.Lock()
	w.pending[name] = true
	w.pendingMu.Unlock()
	w.logger.Debug("change detected", "path", name, "op", ev.Op.String())
}

func (w *Watcher) flush(ctx context.Context) {
	w.pendingMu.Lock()
	if len(w.pending) == 0 {
		w.pendingMu.Unlock()
		return
	}
	batch := w.pending
	w.pending = map[string]bool{}
	w.pendingMu.Unlock()

	for name := range batch {
		select {
		case w.events <- name:
		case <-ctx.Done():
			return
		}
	}
}
