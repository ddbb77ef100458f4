package view

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"

	"github.com/fsnotify/fsnotify"
)

// Watch reloads the views whenever a file below dir changes. dir must be the
// on-disk directory backing the renderer's fs.FS. Watch returns once the
// watcher is running; it stops when ctx is cancelled.
func (r *Renderer) Watch(ctx context.Context, dir string) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}

	for _, d := range []string{dir, filepath.Join(dir, "pages")} {
		if err := watcher.Add(d); err != nil {
			watcher.Close()
			return fmt.Errorf("watch %s: %w", d, err)
		}
	}

	r.logger.Info("watching views for changes", slog.String("dir", dir))

	go func() {
		defer watcher.Close()

		for {
			select {
			case <-ctx.Done():
				r.logger.Debug("view watch stopped")
				return

			case event, ok := <-watcher.Events:
				if !ok {
					return
				}
				if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) &&
					!event.Has(fsnotify.Remove) && !event.Has(fsnotify.Rename) {
					continue
				}

				if err := r.Reload(); err != nil {
					r.logger.Error("failed to reload views",
						slog.String("error", err.Error()),
						slog.String("file", event.Name))
					continue
				}
				r.logger.Info("views reloaded", slog.String("file", event.Name))

			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				r.logger.Error("view watch error", slog.String("error", err.Error()))
			}
		}
	}()

	return nil
}
