// Package chunker plans and cuts time-bounded slices of a recording.
// Slicing goes through ffmpeg so every chunk reaches the transcription
// adapter as 16 kHz mono PCM WAV, the format whisper expects.
package chunker

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/CRISUM/MeetingTool/internal/task"
)

// Probe reads the recording duration via ffprobe. A file ffprobe
// cannot decode is an input error: the task fails with no chunks
// created.
func (c *implChunker) Probe(ctx context.Context, audioPath string) (time.Duration, error) {
	args := []string{
		"-v", "error",
		"-show_entries", "format=duration",
		"-of", "default=noprint_wrappers=1:nokey=1",
		audioPath,
	}

	out, err := c.executor.Execute(ctx, "ffprobe", args...)
	if err != nil {
		return 0, task.NewError(task.ErrorInput, task.StageSegmenting,
			fmt.Sprintf("cannot decode audio file %s", filepath.Base(audioPath)), err)
	}

	seconds, err := strconv.ParseFloat(strings.TrimSpace(out), 64)
	if err != nil || seconds <= 0 {
		return 0, task.NewError(task.ErrorInput, task.StageSegmenting,
			fmt.Sprintf("no usable duration for %s", filepath.Base(audioPath)), err)
	}

	return time.Duration(seconds * float64(time.Second)), nil
}

// Cut extracts one span as chunk_NNNN.wav under destDir.
func (c *implChunker) Cut(ctx context.Context, audioPath, destDir string, span Span) (string, error) {
	if err := os.MkdirAll(destDir, 0755); err != nil {
		return "", fmt.Errorf("create chunk dir: %w", err)
	}

	chunkName := fmt.Sprintf("chunk_%04d.wav", span.Index)

	c.logger.Debug(ctx, "Cutting chunk %d [%s - %s] from %s",
		span.Index, span.Start, span.End, filepath.Base(audioPath))

	// ffmpeg runs inside destDir and writes the chunk by its bare
	// name, so the source path has to stay resolvable from there.
	absAudio, err := filepath.Abs(audioPath)
	if err != nil {
		return "", fmt.Errorf("resolve audio path: %w", err)
	}

	// -ss before -i seeks on the demuxer, which is fast enough for
	// multi-hour recordings. 16kHz mono PCM is what whisper wants.
	args := []string{
		"-y",
		"-ss", formatSeconds(span.Start),
		"-t", formatSeconds(span.End - span.Start),
		"-i", absAudio,
		"-vn",
		"-ac", "1",
		"-ar", "16000",
		"-c:a", "pcm_s16le",
		chunkName,
	}

	if _, err := c.executor.ExecuteInDir(ctx, destDir, "ffmpeg", args...); err != nil {
		return "", task.NewError(task.ErrorInput, task.StageSegmenting,
			fmt.Sprintf("ffmpeg failed to cut chunk %d", span.Index), err)
	}

	return filepath.Join(destDir, chunkName), nil
}

func formatSeconds(d time.Duration) string {
	return strconv.FormatFloat(d.Seconds(), 'f', 3, 64)
}
