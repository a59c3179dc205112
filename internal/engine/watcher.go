package engine

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/sirupsen/logrus"
)

// Watcher reloads the engine when the catalog file changes on disk
type Watcher struct {
	engine   *Engine
	path     string
	debounce time.Duration
	watcher  *fsnotify.Watcher
	logger   *logrus.Entry
}

// NewWatcher subscribes to the directory holding path so that editors that
// replace the file by rename are seen too.
func NewWatcher(e *Engine, path string, debounce time.Duration) (*Watcher, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve catalog path: %w", err)
	}

	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create file watcher: %w", err)
	}
	if err := fw.Add(filepath.Dir(abs)); err != nil {
		fw.Close()
		return nil, fmt.Errorf("failed to watch %s: %w", filepath.Dir(abs), err)
	}

	return &Watcher{
		engine:   e,
		path:     abs,
		debounce: debounce,
		watcher:  fw,
		logger:   e.Logger.WithFields(logrus.Fields{"component": "catalog_watcher", "path": abs}),
	}, nil
}

// Run processes file events until ctx is cancelled, then closes the watcher
func (w *Watcher) Run(ctx context.Context) {
	defer w.watcher.Close()

	w.logger.Info("Watching catalog for changes")

	var timer *time.Timer
	var fire <-chan time.Time
	defer func() {
		if timer != nil {
			timer.Stop()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			w.logger.Info("Catalog watcher stopping")
			return

		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if !w.relevant(event) {
				continue
			}
			w.logger.WithField("op", event.Op.String()).Debug("Catalog changed")
			if timer == nil {
				timer = time.NewTimer(w.debounce)
			} else {
				timer.Reset(w.debounce)
			}
			fire = timer.C

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.logger.WithError(err).Warn("File watcher error")

		case <-fire:
			fire = nil
			// failures are logged by the engine and keep the old snapshot
			_, _ = w.engine.Reload(ctx)
		}
	}
}

func (w *Watcher) relevant(event fsnotify.Event) bool {
	if filepath.Clean(event.Name) != w.path {
		return false
	}
	return event.Has(fsnotify.Write) || event.Has(fsnotify.Create) || event.Has(fsnotify.Rename)
}
