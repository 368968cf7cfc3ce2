package events

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/fsnotify/fsnotify"
	"github.com/sirupsen/logrus"
)

// Watcher turns filesystem changes under the file store's data directory
// into storage.changed notifications, so a cart written by a sibling
// gateway process sharing the profile invalidates this instance's count.
// Writes made by this process fire too; the extra recompute is harmless.
type Watcher struct {
	fsw *fsnotify.Watcher
	bus *Bus
	log *logrus.Entry
}

func NewWatcher(dir string, bus *Bus) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create storage watcher: %w", err)
	}
	if err := fsw.Add(dir); err != nil {
		fsw.Close()
		return nil, fmt.Errorf("failed to watch data dir %s: %w", dir, err)
	}
	return &Watcher{
		fsw: fsw,
		bus: bus,
		log: logrus.WithField("component", "storage-watcher"),
	}, nil
}

// Run pumps filesystem events onto the bus until the context is cancelled.
func (w *Watcher) Run(ctx context.Context) {
	defer w.fsw.Close()

	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			// The file store stages writes in *.tmp files; only the final
			// rename onto the key's file matters.
			if strings.HasSuffix(event.Name, ".tmp") {
				continue
			}
			if event.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Rename|fsnotify.Remove) == 0 {
				continue
			}
			w.log.WithField("file", filepath.Base(event.Name)).Debug("persisted storage changed")
			w.bus.Publish(TopicStorageChanged)
		case err, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
			w.log.WithError(err).Warn("storage watcher error")
		}
	}
}
