package output

import (
	"encoding/json"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"time"

	"github.com/CRISUM/MeetingTool/internal/task"
)

// Chunk cache files live in the task's temp directory next to the cut
// audio. The merge stage reads every chunk back from this cache, so a
// resumed task and an uninterrupted one see byte-identical inputs.

// ChunkTranscriptPath names the cached transcription for one chunk.
func ChunkTranscriptPath(dir string, index int) string {
	return filepath.Join(dir, fmt.Sprintf("chunk_%04d.json", index))
}

// ChunkSpeakersPath names the cached diarization for one chunk.
func ChunkSpeakersPath(dir string, index int) string {
	return filepath.Join(dir, fmt.Sprintf("chunk_%04d.speakers.json", index))
}

// WriteChunkTranscript caches one chunk's segments, offsets still
// chunk-local.
func WriteChunkTranscript(dir string, index int, segments []task.Segment) (string, error) {
	path := ChunkTranscriptPath(dir, index)
	if err := writeSegmentsJSON(path, segments); err != nil {
		return "", err
	}
	return path, nil
}

// ReadChunkTranscript loads one chunk's cached segments.
func ReadChunkTranscript(dir string, index int) ([]task.Segment, error) {
	return readSegmentsJSON(ChunkTranscriptPath(dir, index))
}

// WriteChunkSpeakers caches one chunk's diarization spans.
func WriteChunkSpeakers(dir string, index int, spans []task.SpeakerSpan) (string, error) {
	path := ChunkSpeakersPath(dir, index)

	wire := make([]spanJSON, len(spans))
	for i, s := range spans {
		wire[i] = spanJSON{Start: seconds(s.Start), End: seconds(s.End), Speaker: s.Speaker}
	}
	if err := writeJSONFile(path, wire); err != nil {
		return "", err
	}
	return path, nil
}

// ReadChunkSpeakers loads one chunk's cached diarization spans.
func ReadChunkSpeakers(dir string, index int) ([]task.SpeakerSpan, error) {
	data, err := os.ReadFile(ChunkSpeakersPath(dir, index))
	if err != nil {
		return nil, err
	}

	var wire []spanJSON
	if err := json.Unmarshal(data, &wire); err != nil {
		return nil, fmt.Errorf("parse speaker cache: %w", err)
	}

	spans := make([]task.SpeakerSpan, len(wire))
	for i, w := range wire {
		spans[i] = task.SpeakerSpan{Start: duration(w.Start), End: duration(w.End), Speaker: w.Speaker}
	}
	return spans, nil
}

// segmentJSON is the on-disk segment form. Offsets are float seconds,
// matching the adapter tool outputs and staying editable by hand.
type segmentJSON struct {
	Start   float64 `json:"start"`
	End     float64 `json:"end"`
	Text    string  `json:"text"`
	Speaker string  `json:"speaker,omitempty"`
}

type spanJSON struct {
	Start   float64 `json:"start"`
	End     float64 `json:"end"`
	Speaker string  `json:"speaker"`
}

func writeSegmentsJSON(path string, segments []task.Segment) error {
	wire := make([]segmentJSON, len(segments))
	for i, s := range segments {
		wire[i] = segmentJSON{
			Start:   seconds(s.Start),
			End:     seconds(s.End),
			Text:    s.Text,
			Speaker: s.Speaker,
		}
	}
	return writeJSONFile(path, wire)
}

func readSegmentsJSON(path string) ([]task.Segment, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var wire []segmentJSON
	if err := json.Unmarshal(data, &wire); err != nil {
		return nil, fmt.Errorf("parse %s: %w", filepath.Base(path), err)
	}

	segments := make([]task.Segment, len(wire))
	for i, w := range wire {
		segments[i] = task.Segment{
			Start:   duration(w.Start),
			End:     duration(w.End),
			Text:    w.Text,
			Speaker: w.Speaker,
		}
	}
	return segments, nil
}

func writeJSONFile(path string, v any) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("create cache dir: %w", err)
	}

	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, append(data, '\n'), 0644); err != nil {
		return fmt.Errorf("write %s: %w", filepath.Base(path), err)
	}
	return nil
}

func seconds(d time.Duration) float64 {
	return float64(d.Milliseconds()) / 1000
}

func duration(sec float64) time.Duration {
	return time.Duration(math.Round(sec*1000)) * time.Millisecond
}
