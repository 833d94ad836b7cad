// Package transcriber adapts whisper.cpp into the pipeline: one chunk
// WAV in, ordered chunk-local segments out. The raw model output is
// validated at this boundary so schema drift in whisper's JSON never
// leaks past the adapter.
package transcriber

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/CRISUM/MeetingTool/internal/task"
)

// whisperOutput mirrors the whisper.cpp -oj JSON file.
type whisperOutput struct {
	Transcription []struct {
		Offsets struct {
			From int64 `json:"from"`
			To   int64 `json:"to"`
		} `json:"offsets"`
		Text string `json:"text"`
	} `json:"transcription"`
}

// Transcribe runs whisper.cpp on one chunk and parses its JSON output.
// Failures are model-kind errors; the orchestrator retries them per
// chunk before failing the task.
func (t *implTranscriber) Transcribe(ctx context.Context, chunkPath string) ([]task.Segment, error) {
	outputBase := strings.TrimSuffix(chunkPath, filepath.Ext(chunkPath))

	args := []string{
		"-m", t.cfg.Whisper.ModelPath,
		"-f", chunkPath,
		"-of", outputBase,
		"-oj",
		"-t", strconv.Itoa(t.cfg.Whisper.Threads),
	}
	if lang := normalizeLanguage(t.cfg.Whisper.Language); lang != "" {
		args = append(args, "-l", lang)
	}
	if t.cfg.Whisper.Prompt != "" {
		args = append(args, "--prompt", t.cfg.Whisper.Prompt)
	}

	t.logger.Debug(ctx, "Transcribing %s with %d threads", filepath.Base(chunkPath), t.cfg.Whisper.Threads)

	if _, err := t.executor.Execute(ctx, t.cfg.Whisper.BinaryPath, args...); err != nil {
		return nil, task.NewError(task.ErrorModel, task.StageTranscribing,
			fmt.Sprintf("whisper failed on %s", filepath.Base(chunkPath)), err)
	}

	jsonPath := outputBase + ".json"
	data, err := os.ReadFile(jsonPath)
	if err != nil {
		return nil, task.NewError(task.ErrorModel, task.StageTranscribing,
			"whisper completed but JSON output is missing", err)
	}

	segments, err := parseWhisperJSON(data)
	if err != nil {
		return nil, task.NewError(task.ErrorModel, task.StageTranscribing,
			fmt.Sprintf("unusable whisper output for %s", filepath.Base(chunkPath)), err)
	}

	return segments, nil
}

// parseWhisperJSON validates and converts raw whisper output into
// ordered segments. Empty-text entries are dropped; out-of-order or
// negative offsets are rejected.
func parseWhisperJSON(data []byte) ([]task.Segment, error) {
	var out whisperOutput
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, fmt.Errorf("parse whisper json: %w", err)
	}

	segments := make([]task.Segment, 0, len(out.Transcription))
	var prevStart time.Duration = -1
	for i, seg := range out.Transcription {
		text := strings.TrimSpace(seg.Text)
		if text == "" {
			continue
		}
		if seg.Offsets.From < 0 || seg.Offsets.To < seg.Offsets.From {
			return nil, fmt.Errorf("segment %d has invalid offsets [%d, %d]", i, seg.Offsets.From, seg.Offsets.To)
		}

		start := time.Duration(seg.Offsets.From) * time.Millisecond
		if start < prevStart {
			return nil, fmt.Errorf("segment %d starts before its predecessor", i)
		}
		prevStart = start

		segments = append(segments, task.Segment{
			Start: start,
			End:   time.Duration(seg.Offsets.To) * time.Millisecond,
			Text:  text,
		})
	}

	return segments, nil
}

// normalizeLanguage maps "auto" and empty language to no CLI override.
func normalizeLanguage(raw string) string {
	lang := strings.TrimSpace(raw)
	if lang == "" || strings.EqualFold(lang, "auto") {
		return ""
	}
	return lang
}
