package transcriber

import (
	"context"

	"github.com/CRISUM/MeetingTool/internal/task"
)

// Transcriber converts one audio chunk into timestamped text segments
// with chunk-local offsets.
type Transcriber interface {
	Transcribe(ctx context.Context, chunkPath string) ([]task.Segment, error)
}
