package watcher

import "context"

// Watcher monitors the inbox directory and hands new recordings to
// the pipeline.
type Watcher interface {
	Start(ctx context.Context) error
	Stop() error
}

// EventHandler receives the path of a newly arrived recording.
type EventHandler func(ctx context.Context, filePath string) error
