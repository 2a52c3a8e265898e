package file

import (
	"context"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/lernkern/lernkern/internal/logger"
)

// debounceWindow coalesces the burst of events an editor save produces into
// one reload.
const debounceWindow = 500 * time.Millisecond

// Watcher observes the content directory and triggers a reload when a
// catalog file changes.
type Watcher struct {
	dir      string
	onChange func(ctx context.Context) error
}

// NewWatcher creates a watcher over the content directory. onChange runs
// after each debounced change burst.
func NewWatcher(dir string, onChange func(ctx context.Context) error) *Watcher {
	return &Watcher{dir: dir, onChange: onChange}
}

// Run watches until the context is cancelled. Reload failures are logged and
// watching continues; the core keeps serving the previous catalog.
func (w *Watcher) Run(ctx context.Context) error {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer fw.Close()

	if err := fw.Add(w.dir); err != nil {
		return err
	}

	logger.Debug("watching %s for catalog changes", w.dir)

	var timer *time.Timer
	var timerCh <-chan time.Time

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case event, ok := <-fw.Events:
			if !ok {
				return nil
			}
			if !isCatalogFile(event.Name) {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename|fsnotify.Remove) == 0 {
				continue
			}
			if timer == nil {
				timer = time.NewTimer(debounceWindow)
				timerCh = timer.C
			} else {
				timer.Reset(debounceWindow)
			}

		case <-timerCh:
			timer = nil
			timerCh = nil
			if err := w.onChange(ctx); err != nil {
				logger.Warn("catalog reload failed, keeping previous catalog: %v", err)
			}

		case err, ok := <-fw.Errors:
			if !ok {
				return nil
			}
			logger.Warn("catalog watcher: %v", err)
		}
	}
}

// isCatalogFile reports whether the path names one of the catalog files.
func isCatalogFile(path string) bool {
	switch filepath.Base(path) {
	case modulesFile, quizzesFile:
		return true
	default:
		return false
	}
}
