package watcher

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/CRISUM/MeetingTool/internal/logger"
)

// settlePollInterval is how often an arriving file's size is polled
// until it stops growing. Recordings are often copied into the inbox,
// so the create event fires long before the bytes are all there.
const settlePollInterval = 500 * time.Millisecond

type implWatcher struct {
	inputDir string
	handler  EventHandler
	logger   logger.Logger
	watcher  *fsnotify.Watcher
}

// Start monitors the inbox until the context is canceled. Submission
// is fast (the pipeline queues the work), so events are handled
// inline.
func (w *implWatcher) Start(ctx context.Context) error {
	w.logger.Info(ctx, "Inbox watcher started. Monitoring: %s", w.inputDir)
	w.logger.Info(ctx, "Supported formats: %s", strings.Join(audioExtensions, ", "))

	for {
		select {
		case <-ctx.Done():
			w.logger.Info(ctx, "Inbox watcher stopped")
			return ctx.Err()

		case event, ok := <-w.watcher.Events:
			if !ok {
				return fmt.Errorf("watcher events channel closed")
			}

			if event.Op&fsnotify.Create != fsnotify.Create {
				continue
			}
			if !isAudioFile(event.Name) {
				w.logger.Debug(ctx, "Ignoring non-audio file: %s", event.Name)
				continue
			}

			w.logger.Info(ctx, "New recording detected: %s", event.Name)
			if err := w.waitSettled(ctx, event.Name); err != nil {
				w.logger.Error(ctx, "Recording %s never settled: %v", event.Name, err)
				continue
			}

			if err := w.handler(ctx, event.Name); err != nil {
				w.logger.Error(ctx, "Failed to submit %s: %v", event.Name, err)
			}

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return fmt.Errorf("watcher errors channel closed")
			}
			w.logger.Error(ctx, "Watcher error: %v", err)
		}
	}
}

// Stop closes the file watcher.
func (w *implWatcher) Stop() error {
	return w.watcher.Close()
}

// waitSettled blocks until the file size is stable across two polls.
func (w *implWatcher) waitSettled(ctx context.Context, path string) error {
	var lastSize int64 = -1
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(settlePollInterval):
		}

		info, err := os.Stat(path)
		if err != nil {
			return err
		}
		if info.Size() == lastSize {
			return nil
		}
		lastSize = info.Size()
	}
}

var audioExtensions = []string{".wav", ".mp3", ".m4a", ".flac", ".ogg", ".aac"}

func isAudioFile(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	for _, supported := range audioExtensions {
		if ext == supported {
			return true
		}
	}
	return false
}
