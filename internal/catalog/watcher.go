package catalog

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
)

// reloadDelay lets editors finish writing before the files are re-read
const reloadDelay = 300 * time.Millisecond

// Watch monitors the catalog directory and reloads when artists.json or
// albums.json change. It blocks until ctx is cancelled.
func (h *Holder) Watch(ctx context.Context) error {
	if h.dir == "" {
		return fmt.Errorf("catalog holder has no directory to watch")
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create catalog watcher: %w", err)
	}
	defer watcher.Close()

	if err := watcher.Add(h.dir); err != nil {
		return fmt.Errorf("failed to watch catalog directory: %w", err)
	}
	h.logger.WithField("catalog_dir", h.dir).Info("Catalog watcher started")

	var pending <-chan time.Time
	for {
		select {
		case <-ctx.Done():
			h.logger.Info("Catalog watcher stopped")
			return nil

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if !isCatalogFile(event.Name) {
				continue
			}
			if event.Has(fsnotify.Write) || event.Has(fsnotify.Create) || event.Has(fsnotify.Rename) {
				pending = time.After(reloadDelay)
			}

		case <-pending:
			pending = nil
			if err := h.Reload(); err != nil {
				h.logger.WithError(err).Error("Catalog reload failed, keeping previous snapshot")
			}

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			h.logger.WithError(err).Error("Catalog watcher error")
		}
	}
}

func isCatalogFile(path string) bool {
	name := filepath.Base(path)
	return name == ArtistsFile || name == AlbumsFile
}
