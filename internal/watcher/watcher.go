// Package watcher turns noisy OS file notifications into a small, reliable
// stream of FileChange events. The pipeline filters by extension and ignore
// glob, debounces per path, throttles deliveries globally, and sweeps any
// still-pending paths on a recurring batch ticker so worst-case delivery
// latency stays bounded even under continuous churn.
package watcher

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/fsnotify/fsnotify"
	"golang.org/x/sync/errgroup"

	stderrors "github.com/menoncello/coding-standard-sub000/internal/errors"
	"github.com/menoncello/coding-standard-sub000/internal/interfaces"
	"github.com/menoncello/coding-standard-sub000/internal/logging"
	"github.com/menoncello/coding-standard-sub000/internal/types"
)

// pendingChange is one debounced path waiting for its quiet window to elapse.
type pendingChange struct {
	change types.FileChange
	timer  *time.Timer
}

// FileWatcher watches directory trees and emits debounced FileChange events.
type FileWatcher struct {
	mu        sync.Mutex
	config    Config
	fsw       *fsnotify.Watcher
	handlers  map[int]interfaces.ChangeHandler
	nextID    int
	pending   map[string]*pendingChange
	lastSent  time.Time
	running   bool
	destroyed bool
	cancel    context.CancelFunc
	wg        sync.WaitGroup
	logger    logging.Logger

	eventsSeen     atomic.Uint64
	eventsFiltered atomic.Uint64
	deliveries     atomic.Uint64
	batchSweeps    atomic.Uint64
	handlerErrors  atomic.Uint64
}

// Stats is a point-in-time snapshot of watcher activity.
type Stats struct {
	Running        bool
	WatchedPaths   int
	PendingPaths   int
	Handlers       int
	EventsSeen     uint64
	EventsFiltered uint64
	Deliveries     uint64
	BatchSweeps    uint64
	HandlerErrors  uint64
	LastDelivery   time.Time
}

// New creates a file watcher. Watches are not established until Start.
func New(config Config, logger logging.Logger) (*FileWatcher, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = logging.NewNopLogger()
	}

	return &FileWatcher{
		config:   config.clone(),
		handlers: make(map[int]interfaces.ChangeHandler),
		pending:  make(map[string]*pendingChange),
		logger:   logger.WithComponent("watcher"),
	}, nil
}

// OnChange registers a handler and returns a token for RemoveHandler.
// Handler failures are logged and isolated; they never abort sibling
// handlers or the pipeline.
func (w *FileWatcher) OnChange(handler interfaces.ChangeHandler) int {
	w.mu.Lock()
	defer w.mu.Unlock()

	w.nextID++
	w.handlers[w.nextID] = handler
	return w.nextID
}

// RemoveHandler unregisters the handler identified by token.
func (w *FileWatcher) RemoveHandler(token int) {
	w.mu.Lock()
	defer w.mu.Unlock()
	delete(w.handlers, token)
}

// Start establishes OS watches on the configured roots and begins the
// pipeline. It fails when the watcher is already running or was stopped.
func (w *FileWatcher) Start(ctx context.Context) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.destroyed {
		return stderrors.NewConfigError(stderrors.ErrCodeWatcherState, "watcher has been stopped and cannot be restarted")
	}
	if w.running {
		return stderrors.NewConfigError(stderrors.ErrCodeWatcherState, "watcher is already running")
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}

	for _, root := range w.config.Roots {
		if err := w.addRecursive(fsw, root); err != nil {
			fsw.Close()
			return err
		}
	}

	runCtx, cancel := context.WithCancel(ctx)
	w.fsw = fsw
	w.cancel = cancel
	w.running = true

	w.wg.Add(2)
	go w.eventLoop(runCtx, fsw)
	go w.sweepLoop(runCtx)

	w.logger.Info(runCtx, "watcher started", "roots", w.config.Roots)
	return nil
}

// Stop cancels all timers and closes the underlying OS watches. It is
// idempotent; once stopped a watcher cannot be restarted.
func (w *FileWatcher) Stop() error {
	w.mu.Lock()
	if w.destroyed {
		w.mu.Unlock()
		return nil
	}
	w.destroyed = true

	wasRunning := w.running
	w.running = false

	for path, entry := range w.pending {
		entry.timer.Stop()
		delete(w.pending, path)
	}

	cancel := w.cancel
	fsw := w.fsw
	w.mu.Unlock()

	if cancel != nil {
		cancel()
	}

	var err error
	if fsw != nil {
		err = fsw.Close()
	}
	if wasRunning {
		w.wg.Wait()
	}
	return err
}

// UpdateConfig replaces the watcher configuration. When the watched roots
// change while running, the underlying watches are torn down and rebuilt.
func (w *FileWatcher) UpdateConfig(config Config) error {
	if err := config.Validate(); err != nil {
		return err
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	rootsChanged := !sameRoots(w.config.Roots, config.Roots)
	w.config = config.clone()

	if !w.running || !rootsChanged {
		return nil
	}

	for _, watched := range w.fsw.WatchList() {
		_ = w.fsw.Remove(watched)
	}
	for _, root := range w.config.Roots {
		if err := w.addRecursive(w.fsw, root); err != nil {
			return err
		}
	}
	return nil
}

// Stats returns a snapshot of the watcher's counters.
func (w *FileWatcher) Stats() Stats {
	w.mu.Lock()
	defer w.mu.Unlock()

	watched := 0
	if w.fsw != nil {
		watched = len(w.fsw.WatchList())
	}

	return Stats{
		Running:        w.running,
		WatchedPaths:   watched,
		PendingPaths:   len(w.pending),
		Handlers:       len(w.handlers),
		EventsSeen:     w.eventsSeen.Load(),
		EventsFiltered: w.eventsFiltered.Load(),
		Deliveries:     w.deliveries.Load(),
		BatchSweeps:    w.batchSweeps.Load(),
		HandlerErrors:  w.handlerErrors.Load(),
		LastDelivery:   w.lastSent,
	}
}

// addRecursive watches root and every non-ignored subdirectory.
func (w *FileWatcher) addRecursive(fsw *fsnotify.Watcher, root string) error {
	return filepath.WalkDir(root, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			return nil
		}
		if path != root && w.ignored(path) {
			return filepath.SkipDir
		}
		return fsw.Add(path)
	})
}

func (w *FileWatcher) eventLoop(ctx context.Context, fsw *fsnotify.Watcher) {
	defer w.wg.Done()

	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-fsw.Events:
			if !ok {
				return
			}
			w.handleEvent(ctx, event)
		case err, ok := <-fsw.Errors:
			if !ok {
				return
			}
			w.logger.Warn(ctx, err, "watch error")
		}
	}
}

func (w *FileWatcher) handleEvent(ctx context.Context, event fsnotify.Event) {
	w.eventsSeen.Add(1)

	// New directories must be watched before their contents change.
	if event.Has(fsnotify.Create) {
		if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
			if !w.ignored(event.Name) {
				w.mu.Lock()
				fsw := w.fsw
				w.mu.Unlock()
				if fsw != nil {
					if err := w.addRecursive(fsw, event.Name); err != nil {
						w.logger.Warn(ctx, err, "watching new directory", "path", event.Name)
					}
				}
			}
			return
		}
	}

	if !w.allowed(event.Name) {
		w.eventsFiltered.Add(1)
		return
	}

	change, ok := w.classify(event)
	if !ok {
		w.eventsFiltered.Add(1)
		return
	}
	w.schedule(change)
}

// classify maps an fsnotify op onto a ChangeType. Rename is ambiguous
// between create and delete, so the path is probed: if it still exists the
// event is a create, otherwise a delete.
func (w *FileWatcher) classify(event fsnotify.Event) (types.FileChange, bool) {
	change := types.FileChange{
		Path:      event.Name,
		Timestamp: time.Now(),
	}

	switch {
	case event.Has(fsnotify.Create):
		change.Type = types.ChangeCreate
	case event.Has(fsnotify.Write):
		change.Type = types.ChangeUpdate
	case event.Has(fsnotify.Remove):
		change.Type = types.ChangeDelete
	case event.Has(fsnotify.Rename):
		if _, err := os.Stat(event.Name); err == nil {
			change.Type = types.ChangeCreate
		} else {
			change.Type = types.ChangeDelete
		}
	default:
		return types.FileChange{}, false
	}

	if change.Type != types.ChangeDelete {
		if info, err := os.Stat(event.Name); err == nil {
			change.Size = info.Size()
		}
	}
	return change, true
}

// allowed applies the extension and ignore-pattern filters.
func (w *FileWatcher) allowed(path string) bool {
	w.mu.Lock()
	extensions := w.config.Extensions
	w.mu.Unlock()

	ext := strings.ToLower(filepath.Ext(path))
	matched := false
	for _, allowed := range extensions {
		if ext == strings.ToLower(allowed) {
			matched = true
			break
		}
	}
	if !matched {
		return false
	}
	return !w.ignored(path)
}

func (w *FileWatcher) ignored(path string) bool {
	w.mu.Lock()
	patterns := w.config.IgnorePatterns
	w.mu.Unlock()

	slashed := filepath.ToSlash(path)
	for _, pattern := range patterns {
		if match, _ := doublestar.Match(pattern, slashed); match {
			return true
		}
	}
	return false
}

// schedule arms or resets the per-path debounce timer. Only the event present
// when the timer fires is delivered: last write wins per path.
func (w *FileWatcher) schedule(change types.FileChange) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if !w.running {
		return
	}

	if entry, ok := w.pending[change.Path]; ok {
		entry.timer.Stop()
		entry.change = change
		entry.timer = time.AfterFunc(w.config.Debounce, func() {
			w.deliver(change.Path)
		})
		return
	}

	w.pending[change.Path] = &pendingChange{
		change: change,
		timer: time.AfterFunc(w.config.Debounce, func() {
			w.deliver(change.Path)
		}),
	}
}

// deliver fires when a path's debounce window elapses. If the global throttle
// window has not passed, delivery is rescheduled for the remaining wait
// rather than dropped.
func (w *FileWatcher) deliver(path string) {
	w.mu.Lock()

	entry, ok := w.pending[path]
	if !ok || !w.running {
		w.mu.Unlock()
		return
	}

	if wait := w.config.Throttle - time.Since(w.lastSent); wait > 0 {
		entry.timer = time.AfterFunc(wait, func() {
			w.deliver(path)
		})
		w.mu.Unlock()
		return
	}

	delete(w.pending, path)
	w.lastSent = time.Now()
	change := entry.change
	handlers := w.snapshotHandlersLocked()
	w.mu.Unlock()

	w.deliveries.Add(1)
	w.invoke(handlers, []types.FileChange{change})
}

// sweepLoop drains all pending paths every MaxBatchWait, independent of the
// per-path timers, guaranteeing a worst-case delivery latency.
func (w *FileWatcher) sweepLoop(ctx context.Context) {
	defer w.wg.Done()

	w.mu.Lock()
	interval := w.config.MaxBatchWait
	w.mu.Unlock()

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			w.sweep(ctx)
		}
	}
}

// sweep drains the pending map (already deduplicated by path, latest wins)
// and dispatches the drained set with bounded concurrency.
func (w *FileWatcher) sweep(ctx context.Context) {
	w.mu.Lock()
	if !w.running || len(w.pending) == 0 {
		w.mu.Unlock()
		return
	}

	batch := make([]types.FileChange, 0, len(w.pending))
	for path, entry := range w.pending {
		entry.timer.Stop()
		batch = append(batch, entry.change)
		delete(w.pending, path)
	}
	w.lastSent = time.Now()
	handlers := w.snapshotHandlersLocked()
	limit := w.config.MaxConcurrency
	w.mu.Unlock()

	w.batchSweeps.Add(1)

	var g errgroup.Group
	g.SetLimit(limit)
	for _, change := range batch {
		change := change
		g.Go(func() error {
			w.deliveries.Add(1)
			w.invoke(handlers, []types.FileChange{change})
			return nil
		})
	}
	_ = g.Wait()

	w.logger.Debug(ctx, "batch sweep dispatched", "count", len(batch))
}

func (w *FileWatcher) snapshotHandlersLocked() []interfaces.ChangeHandler {
	handlers := make([]interfaces.ChangeHandler, 0, len(w.handlers))
	for _, h := range w.handlers {
		handlers = append(handlers, h)
	}
	return handlers
}

// invoke runs every handler over the changes. A failing or panicking handler
// is logged and never aborts its siblings.
func (w *FileWatcher) invoke(handlers []interfaces.ChangeHandler, changes []types.FileChange) {
	for _, handler := range handlers {
		w.invokeOne(handler, changes)
	}
}

func (w *FileWatcher) invokeOne(handler interfaces.ChangeHandler, changes []types.FileChange) {
	defer func() {
		if r := recover(); r != nil {
			w.handlerErrors.Add(1)
			w.logger.Error(context.Background(), nil, "change handler panicked", "panic", r)
		}
	}()

	if err := handler(changes); err != nil {
		w.handlerErrors.Add(1)
		w.logger.Warn(context.Background(), err, "change handler failed")
	}
}
