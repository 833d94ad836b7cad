package chunker

import (
	"context"
	"time"

	"github.com/CRISUM/MeetingTool/internal/task"
)

// Chunker splits a recording into time-bounded, slightly-overlapping
// slices for independent transcription.
type Chunker interface {
	// Probe returns the recording's duration, failing with an
	// input-kind error when the file cannot be decoded.
	Probe(ctx context.Context, audioPath string) (time.Duration, error)

	// Cut extracts one planned span into a 16 kHz mono WAV under
	// destDir and returns its path.
	Cut(ctx context.Context, audioPath, destDir string, span Span) (string, error)
}

// Span is one planned chunk: source-recording offsets including the
// leading overlap for spans after the first.
type Span struct {
	Index int
	Start time.Duration
	End   time.Duration
}

// Chunk converts a span into the task's durable chunk record.
func (s Span) Chunk(taskID string) task.Chunk {
	return task.Chunk{
		TaskID: taskID,
		Index:  s.Index,
		Start:  s.Start,
		End:    s.End,
	}
}
