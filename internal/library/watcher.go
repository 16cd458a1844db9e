package library

import (
	"context"
	"fmt"
	"log"
	"strings"

	"github.com/fsnotify/fsnotify"
)

// Watch invalidates the cached listing whenever files are created, removed,
// or renamed in the data directory, so changes made outside the service
// (manual cleanup, files copied in) show up without a restart. Blocks until
// the context is cancelled.
func (l *Library) Watch(ctx context.Context) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create watcher: %w", err)
	}
	defer watcher.Close()

	if err := watcher.Add(l.dataDir); err != nil {
		return fmt.Errorf("failed to watch %s: %w", l.dataDir, err)
	}
	log.Printf("[Library] Watching %s for changes", l.dataDir)

	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			// Thumbnails are derived files; regenerating the listing for
			// them would loop on our own writes.
			if strings.HasSuffix(event.Name, ".thumb.png") {
				continue
			}
			if event.Op&(fsnotify.Create|fsnotify.Remove|fsnotify.Rename|fsnotify.Write) != 0 {
				l.Invalidate()
			}
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			log.Printf("[Library] Watcher error: %v", err)
		}
	}
}
