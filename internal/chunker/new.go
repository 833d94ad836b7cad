package chunker

import (
	"github.com/CRISUM/MeetingTool/internal/logger"
	"github.com/CRISUM/MeetingTool/pkg/executor"
)

type implChunker struct {
	executor executor.Executor
	logger   logger.Logger
}

// New creates a Chunker backed by ffmpeg/ffprobe.
func New(exec executor.Executor, log logger.Logger) Chunker {
	return &implChunker{
		executor: exec,
		logger:   log,
	}
}
