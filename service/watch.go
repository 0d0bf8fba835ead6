package service

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
)

// CatalogWatcher reloads a MockCatalog when its file changes on disk
type CatalogWatcher struct {
	catalog  *MockCatalog
	watcher  *fsnotify.Watcher
	debounce time.Duration
	onReload func(error)
}

// NewCatalogWatcher watches the directory holding the catalog file, so
// editors that replace the file by rename are seen too.
func NewCatalogWatcher(catalog *MockCatalog, debounce time.Duration) (*CatalogWatcher, error) {
	if catalog.Path() == "" {
		return nil, fmt.Errorf("catalog has no file to watch")
	}
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create fsnotify watcher: %w", err)
	}
	if err := w.Add(filepath.Dir(catalog.Path())); err != nil {
		w.Close()
		return nil, fmt.Errorf("watch %s: %w", catalog.Path(), err)
	}
	if debounce == 0 {
		debounce = 200 * time.Millisecond
	}
	return &CatalogWatcher{
		catalog:  catalog,
		watcher:  w,
		debounce: debounce,
	}, nil
}

// OnReload registers fn to be called after every reload attempt
func (w *CatalogWatcher) OnReload(fn func(error)) {
	w.onReload = fn
}

// Run starts the event loop. It blocks until the context is cancelled.
func (w *CatalogWatcher) Run(ctx context.Context) error {
	defer w.watcher.Close()

	target := filepath.Clean(w.catalog.Path())
	var timer *time.Timer
	reload := make(chan struct{}, 1)
	defer func() {
		if timer != nil {
			timer.Stop()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case event, ok := <-w.watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != target {
				continue
			}
			if !event.Op.Has(fsnotify.Write) && !event.Op.Has(fsnotify.Create) && !event.Op.Has(fsnotify.Rename) {
				continue
			}
			if timer != nil {
				timer.Stop()
			}
			timer = time.AfterFunc(w.debounce, func() {
				select {
				case reload <- struct{}{}:
				default:
				}
			})

		case <-reload:
			err := w.catalog.Reload()
			if err != nil {
				slog.Warn("catalog reload failed, keeping previous contents", "path", target, "error", err)
			}
			if w.onReload != nil {
				w.onReload(err)
			}

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return nil
			}
			return fmt.Errorf("watcher error: %w", err)
		}
	}
}
