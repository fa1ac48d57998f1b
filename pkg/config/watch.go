package config

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/getmockd/netmonkey/pkg/logging"
	"github.com/getmockd/netmonkey/pkg/monkey"
)

// DefaultDebounce is how long the watcher waits for writes to settle.
const DefaultDebounce = 200 * time.Millisecond

// Watcher watches a fault file and registers faults added to it.
//
// The engine's rule set is append-only: edits to or removals of faults that
// were already applied are ignored until restart.
type Watcher struct {
	path     string
	engine   *monkey.Engine
	log      *slog.Logger
	debounce time.Duration
	onReload func(added int, err error)

	mu   sync.Mutex
	seen map[string]bool
}

// WatcherOption configures a Watcher.
type WatcherOption func(*Watcher)

// WithWatchLogger sets the watcher's logger.
func WithWatchLogger(log *slog.Logger) WatcherOption {
	return func(w *Watcher) {
		if log != nil {
			w.log = log
		}
	}
}

// WithDebounce overrides DefaultDebounce.
func WithDebounce(d time.Duration) WatcherOption {
	return func(w *Watcher) { w.debounce = d }
}

// WithReloadHook is called after every reload attempt.
func WithReloadHook(fn func(added int, err error)) WatcherOption {
	return func(w *Watcher) { w.onReload = fn }
}

// NewWatcher creates a watcher for path feeding engine.
func NewWatcher(path string, engine *monkey.Engine, opts ...WatcherOption) *Watcher {
	w := &Watcher{
		path:     path,
		engine:   engine,
		log:      logging.Nop(),
		debounce: DefaultDebounce,
		seen:     make(map[string]bool),
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// MarkApplied records faults that are already registered on the engine,
// typically from the initial load.
func (w *Watcher) MarkApplied(f *File) {
	w.mu.Lock()
	defer w.mu.Unlock()
	for _, key := range occurrenceKeys(f) {
		w.seen[key] = true
	}
}

// occurrenceKeys returns one key per fault. Identical faults are told apart by
// their position among equals, so a file listing the same fault twice yields
// two rules on reload just as it does on the initial Apply.
func occurrenceKeys(f *File) []string {
	counts := make(map[string]int, len(f.Faults))
	keys := make([]string, len(f.Faults))
	for i := range f.Faults {
		key := f.Faults[i].Key()
		keys[i] = fmt.Sprintf("%s#%d", key, counts[key])
		counts[key]++
	}
	return keys
}

// Reload reads the file and registers faults not applied before.
// It returns the number of rules added.
func (w *Watcher) Reload() (int, error) {
	f, err := LoadFile(w.path)
	if err != nil {
		return 0, err
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	added := 0
	keys := occurrenceKeys(f)
	for i := range f.Faults {
		fault := &f.Faults[i]
		key := keys[i]
		if w.seen[key] {
			continue
		}
		rule, err := fault.Rule(f.CompleteDelays)
		if err != nil {
			return added, fmt.Errorf("faults[%d]: %w", i, err)
		}
		if err := w.engine.Register(rule); err != nil {
			return added, fmt.Errorf("faults[%d]: %w", i, err)
		}
		w.seen[key] = true
		added++
		w.log.Info("added fault from file", "rule", rule.Description(), "id", rule.ID())
	}
	return added, nil
}

// Run watches until ctx is done. The parent directory is watched so that
// editors that replace the file via rename are handled.
func (w *Watcher) Run(ctx context.Context) error {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create file watcher: %w", err)
	}
	defer func() { _ = fsw.Close() }()

	dir := filepath.Dir(w.path)
	if err := fsw.Add(dir); err != nil {
		return fmt.Errorf("failed to watch %s: %w", dir, err)
	}
	w.log.Info("watching fault file", "path", w.path)

	target := filepath.Clean(w.path)
	timer := time.NewTimer(w.debounce)
	timer.Stop()
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-fsw.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != target {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}
			w.log.Debug("fault file changed", "op", event.Op.String())
			timer.Reset(w.debounce)

		case err, ok := <-fsw.Errors:
			if !ok {
				return nil
			}
			w.log.Warn("file watcher error", "error", err)

		case <-timer.C:
			added, err := w.Reload()
			if err != nil {
				w.log.Error("failed to reload fault file", "path", w.path, "error", err)
			} else if added > 0 {
				w.log.Info("reloaded fault file", "path", w.path, "added", added)
			}
			if w.onReload != nil {
				w.onReload(added, err)
			}
		}
	}
}
