// Package watcher watches a corpus directory with fsnotify and reports debounced changes.
package watcher

import (
	"context"
	"errors"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"

	"github.com/hyperjump/kotae/internal/corpus"
	"github.com/hyperjump/kotae/pkg/utils"
)

const defaultDebounce = 400 * time.Millisecond

// Watcher watches one directory and calls onChange once per burst of relevant events.
// Only files directly inside the root count, matching what the corpus loader reads.
type Watcher struct {
	root       string
	extensions []string
	onChange   func(paths []string)
	debounce   time.Duration
	watcher    *fsnotify.Watcher
	mu         sync.Mutex
	timer      *time.Timer
	pending    map[string]struct{}
	done       chan struct{}
	started    bool
	stopOnce   sync.Once
	logger     *zap.Logger
}

// WatcherOption configures a Watcher.
type WatcherOption func(*Watcher)

// WithLogger sets a logger for debug output.
func WithLogger(l *zap.Logger) WatcherOption {
	return func(w *Watcher) { w.logger = utils.OrNop(l) }
}

// WithDebounce sets the quiet period after the last event before onChange fires.
func WithDebounce(d time.Duration) WatcherOption {
	return func(w *Watcher) {
		if d > 0 {
			w.debounce = d
		}
	}
}

// NewWatcher creates a watcher for root. extensions filter which files count (empty = all).
// onChange receives the sorted set of paths that changed since the last call.
func NewWatcher(root string, extensions []string, onChange func(paths []string), opts ...WatcherOption) *Watcher {
	w := &Watcher{
		root:       filepath.Clean(root),
		extensions: extensions,
		onChange:   onChange,
		debounce:   defaultDebounce,
		pending:    make(map[string]struct{}),
		done:       make(chan struct{}),
		logger:     zap.NewNop(),
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Start starts the watcher. It runs until ctx is cancelled or Stop is called.
func (w *Watcher) Start(ctx context.Context) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.started {
		return nil
	}
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	if err := watcher.Add(w.root); err != nil {
		_ = watcher.Close()
		return err
	}
	w.watcher = watcher
	w.started = true
	w.logger.Debug("watcher starting", zap.String("root", w.root), zap.Strings("extensions", w.extensions))
	go w.run(ctx, watcher)
	return nil
}

func (w *Watcher) run(ctx context.Context, watcher *fsnotify.Watcher) {
	for {
		select {
		case <-ctx.Done():
			w.Stop()
			return
		case <-w.done:
			return
		case ev, ok := <-watcher.Events:
			if !ok {
				return
			}
			w.handleEvent(ev)
		case err, ok := <-watcher.Errors:
			if !ok {
				return
			}
			if errors.Is(err, fsnotify.ErrEventOverflow) {
				// Events were dropped; rescan the whole corpus.
				w.schedule(w.root)
				continue
			}
			if err != nil {
				w.logger.Debug("watcher error", zap.Error(err))
			}
		}
	}
}

func (w *Watcher) handleEvent(ev fsnotify.Event) {
	if !w.relevant(ev.Name) {
		return
	}
	if !ev.Has(fsnotify.Create) && !ev.Has(fsnotify.Write) && !ev.Has(fsnotify.Remove) && !ev.Has(fsnotify.Rename) {
		return
	}
	w.logger.Debug("watcher event", zap.String("op", ev.Op.String()), zap.String("path", ev.Name))
	w.schedule(ev.Name)
}

func (w *Watcher) relevant(path string) bool {
	if filepath.Dir(filepath.Clean(path)) != w.root {
		return false
	}
	name := filepath.Base(path)
	if strings.HasPrefix(name, ".") {
		return false
	}
	return corpus.ExtensionAllowed(name, w.extensions)
}

func (w *Watcher) schedule(path string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if !w.started {
		return
	}
	w.pending[path] = struct{}{}
	if w.timer != nil {
		w.timer.Stop()
	}
	w.timer = time.AfterFunc(w.debounce, w.fire)
}

func (w *Watcher) fire() {
	w.mu.Lock()
	if !w.started || len(w.pending) == 0 {
		w.mu.Unlock()
		return
	}
	paths := make([]string, 0, len(w.pending))
	for p := range w.pending {
		paths = append(paths, p)
	}
	w.pending = make(map[string]struct{})
	w.timer = nil
	w.mu.Unlock()

	sort.Strings(paths)
	w.logger.Debug("watcher change (debounced)", zap.Strings("paths", paths))
	if w.onChange != nil {
		w.onChange(paths)
	}
}

// Root returns the watched directory.
func (w *Watcher) Root() string {
	return w.root
}

// Stop stops the watcher and releases resources. Pending changes are discarded.
func (w *Watcher) Stop() {
	w.mu.Lock()
	if !w.started || w.watcher == nil {
		w.mu.Unlock()
		return
	}
	if w.timer != nil {
		w.timer.Stop()
		w.timer = nil
	}
	w.pending = make(map[string]struct{})
	_ = w.watcher.Close()
	w.watcher = nil
	w.started = false
	w.mu.Unlock()
	w.stopOnce.Do(func() { close(w.done) })
}
