package diarizer

import (
	"context"

	"github.com/CRISUM/MeetingTool/internal/task"
)

// Diarizer converts one audio chunk into time-ranged speaker-cluster
// spans with chunk-local offsets.
type Diarizer interface {
	// Available reports whether diarization can run, with an
	// actionable reason when it cannot.
	Available() (bool, string)

	Diarize(ctx context.Context, chunkPath string) ([]task.SpeakerSpan, error)
}
