package recordings

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/fsnotify/fsnotify"
)

// ChangeOp is the kind of catalog change.
type ChangeOp string

const (
	Added   ChangeOp = "added"
	Removed ChangeOp = "removed"
)

// Change reports a recording appearing in or disappearing from a source.
type Change struct {
	Op     ChangeOp
	Name   string
	Source string
}

// ChangeFunc receives catalog changes. It is called from the watching
// goroutine and must not block for long.
type ChangeFunc func(context.Context, Change)

// Watcher reports recordings added to or removed from a DirSource using
// filesystem notifications.
type Watcher struct {
	src     *DirSource
	fsw     *fsnotify.Watcher
	logger  *slog.Logger
	onEvent ChangeFunc
}

// NewWatcher starts watching the source directory. The directory must exist.
func NewWatcher(src *DirSource, onEvent ChangeFunc, logger *slog.Logger) (*Watcher, error) {
	if logger == nil {
		logger = slog.Default()
	}
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create watcher: %w", err)
	}
	if err := fsw.Add(src.Root()); err != nil {
		fsw.Close()
		return nil, fmt.Errorf("watch %s: %w", src.Root(), err)
	}
	return &Watcher{src: src, fsw: fsw, logger: logger, onEvent: onEvent}, nil
}

// Run delivers changes until ctx is cancelled or the watcher fails, then
// releases the underlying watcher.
func (w *Watcher) Run(ctx context.Context) error {
	defer w.fsw.Close()
	w.logger.Info("recordings: watching", "dir", w.src.Root(), "pattern", w.src.Pattern())

	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-w.fsw.Events:
			if !ok {
				return nil
			}
			if c, ok := w.translate(ev); ok {
				w.onEvent(ctx, c)
			}
		case err, ok := <-w.fsw.Errors:
			if !ok {
				return nil
			}
			w.logger.Warn("recordings: watcher error", "error", err)
		}
	}
}

func (w *Watcher) translate(ev fsnotify.Event) (Change, bool) {
	name := filepath.Base(ev.Name)
	if filepath.Dir(ev.Name) != filepath.Clean(w.src.Root()) || !matchPattern(w.src.Pattern(), name) {
		return Change{}, false
	}
	switch {
	case ev.Has(fsnotify.Create):
		if info, err := os.Stat(ev.Name); err != nil || info.IsDir() {
			return Change{}, false
		}
		return Change{Op: Added, Name: name, Source: w.src.Name()}, true
	case ev.Has(fsnotify.Remove), ev.Has(fsnotify.Rename):
		return Change{Op: Removed, Name: name, Source: w.src.Name()}, true
	}
	return Change{}, false
}
