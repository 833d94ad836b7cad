// Package diarizer adapts an external pyannote helper into the
// pipeline: one chunk WAV in, speaker-cluster spans out. Speaker
// labels are per-recording cluster ids; they carry no identity and are
// not stable across recordings.
package diarizer

import (
	"context"
	"encoding/json"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/CRISUM/MeetingTool/internal/task"
)

// helperSpan mirrors one entry of the helper's JSON output.
type helperSpan struct {
	Start   float64 `json:"start"`
	End     float64 `json:"end"`
	Speaker string  `json:"speaker"`
}

// Available reports whether diarization is usable: a missing token or
// helper is surfaced to the user before any task opts in.
func (d *implDiarizer) Available() (bool, string) {
	if d.helperPath == "" {
		return false, "diarization.helper_path is not configured"
	}
	if d.hfToken == "" {
		return false, "no HuggingFace token (set diarization.hf_token or HF_TOKEN)"
	}
	return true, ""
}

// Diarize runs the helper on one chunk. A missing or rejected token is
// an auth-kind error (fatal, not retried); anything else from the
// helper is a model-kind error.
func (d *implDiarizer) Diarize(ctx context.Context, chunkPath string) ([]task.SpeakerSpan, error) {
	if d.hfToken == "" {
		return nil, task.NewError(task.ErrorAuth, task.StageDiarizing,
			"no HuggingFace token (set diarization.hf_token or HF_TOKEN)", nil)
	}

	d.logger.Debug(ctx, "Diarizing %s", filepath.Base(chunkPath))

	out, err := d.executor.Execute(ctx, d.helperPath,
		"--audio", chunkPath,
		"--token", d.hfToken,
	)
	if err != nil {
		if isAuthFailure(err) {
			return nil, task.NewError(task.ErrorAuth, task.StageDiarizing,
				"HuggingFace rejected the token; check diarization.hf_token", err)
		}
		return nil, task.NewError(task.ErrorModel, task.StageDiarizing,
			fmt.Sprintf("diarization helper failed on %s", filepath.Base(chunkPath)), err)
	}

	spans, err := parseHelperOutput([]byte(out))
	if err != nil {
		return nil, task.NewError(task.ErrorModel, task.StageDiarizing,
			"unusable diarization helper output", err)
	}

	return spans, nil
}

func parseHelperOutput(data []byte) ([]task.SpeakerSpan, error) {
	var raw []helperSpan
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("parse helper json: %w", err)
	}

	spans := make([]task.SpeakerSpan, 0, len(raw))
	for i, s := range raw {
		if s.Start < 0 || s.End < s.Start {
			return nil, fmt.Errorf("span %d has invalid range [%f, %f]", i, s.Start, s.End)
		}
		if s.Speaker == "" {
			return nil, fmt.Errorf("span %d has no speaker label", i)
		}
		spans = append(spans, task.SpeakerSpan{
			Start:   time.Duration(s.Start * float64(time.Second)),
			End:     time.Duration(s.End * float64(time.Second)),
			Speaker: s.Speaker,
		})
	}
	return spans, nil
}

// isAuthFailure sniffs the helper's stderr for credential problems so
// they surface as actionable auth errors instead of retried model
// errors.
func isAuthFailure(err error) bool {
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "401") ||
		strings.Contains(msg, "unauthorized") ||
		strings.Contains(msg, "invalid token") ||
		strings.Contains(msg, "gated")
}
