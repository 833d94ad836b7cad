// Package output writes a task's durable artifacts: plain and
// speaker-grouped transcripts, the structured segment file, the
// markdown summary, and styled docx renditions of both.
package output

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/CRISUM/MeetingTool/internal/task"
)

// Artifact file names inside a task's output directory.
const (
	TranscriptFile        = "transcript.txt"
	SpeakerTranscriptFile = "transcript_speakers.txt"
	EditedTranscriptFile  = "transcript_edited.txt"
	SegmentsFile          = "segments.json"
	SummaryFile           = "summary.md"
	TranscriptDocxFile    = "transcript.docx"
	SummaryDocxFile       = "summary.docx"
)

// WriteTranscript renders the merged segments as a timestamped plain
// transcript.
func WriteTranscript(dir string, segments []task.Segment) (string, error) {
	var b strings.Builder
	for _, s := range segments {
		fmt.Fprintf(&b, "[%s - %s] %s\n", formatTimestamp(s.Start), formatTimestamp(s.End), s.Text)
	}

	path := filepath.Join(dir, TranscriptFile)
	if err := writeFile(path, b.String()); err != nil {
		return "", err
	}
	return path, nil
}

// WriteSpeakerTranscript renders segments grouped into speaker turns:
// consecutive segments by the same speaker collapse into one block.
func WriteSpeakerTranscript(dir string, segments []task.Segment) (string, error) {
	var b strings.Builder
	var turn []task.Segment

	flush := func() {
		if len(turn) == 0 {
			return
		}
		fmt.Fprintf(&b, "%s [%s - %s]:\n", speakerLabel(turn[0].Speaker),
			formatTimestamp(turn[0].Start), formatTimestamp(turn[len(turn)-1].End))
		for _, s := range turn {
			fmt.Fprintf(&b, "  %s\n", s.Text)
		}
		b.WriteByte('\n')
		turn = turn[:0]
	}

	for _, s := range segments {
		if len(turn) > 0 && turn[0].Speaker != s.Speaker {
			flush()
		}
		turn = append(turn, s)
	}
	flush()

	path := filepath.Join(dir, SpeakerTranscriptFile)
	if err := writeFile(path, b.String()); err != nil {
		return "", err
	}
	return path, nil
}

// WriteSegments persists the merged segments as JSON for programmatic
// consumers and for resummarization after manual edits.
func WriteSegments(dir string, segments []task.Segment) (string, error) {
	path := filepath.Join(dir, SegmentsFile)
	if err := writeSegmentsJSON(path, segments); err != nil {
		return "", err
	}
	return path, nil
}

// ReadSegments loads a previously written segment file.
func ReadSegments(dir string) ([]task.Segment, error) {
	return readSegmentsJSON(filepath.Join(dir, SegmentsFile))
}

// WriteSummary persists the markdown minutes.
func WriteSummary(dir, markdown string) (string, error) {
	path := filepath.Join(dir, SummaryFile)
	md := strings.TrimSpace(markdown) + "\n"
	if err := writeFile(path, md); err != nil {
		return "", err
	}
	return path, nil
}

// WriteEditedTranscript persists a manually corrected transcript.
// Summarization prefers it over the generated segments from then on;
// the generated artifacts are left untouched.
func WriteEditedTranscript(dir, text string) (string, error) {
	path := filepath.Join(dir, EditedTranscriptFile)
	if err := writeFile(path, strings.TrimSpace(text)+"\n"); err != nil {
		return "", err
	}
	return path, nil
}

// ReadSummarySource returns the transcript text to summarize: the
// manually edited transcript when one exists, otherwise the segment
// file rendered as dialogue lines.
func ReadSummarySource(dir string) (string, error) {
	data, err := os.ReadFile(filepath.Join(dir, EditedTranscriptFile))
	if err == nil {
		return string(data), nil
	}
	if !os.IsNotExist(err) {
		return "", err
	}
	return ReadTranscriptText(dir)
}

// ReadTranscriptText returns the transcript as plain dialogue text,
// one utterance per line, for the summarization prompt. Speaker
// labels are kept when present so minutes can attribute statements.
func ReadTranscriptText(dir string) (string, error) {
	segments, err := ReadSegments(dir)
	if err != nil {
		return "", err
	}
	return TranscriptText(segments), nil
}

// TranscriptText renders segments as prompt-ready dialogue lines.
func TranscriptText(segments []task.Segment) string {
	var b strings.Builder
	for _, s := range segments {
		if s.Speaker != "" {
			fmt.Fprintf(&b, "%s: %s\n", speakerLabel(s.Speaker), s.Text)
		} else {
			b.WriteString(s.Text)
			b.WriteByte('\n')
		}
	}
	return b.String()
}

func speakerLabel(speaker string) string {
	if speaker == "" {
		return task.UnknownSpeaker
	}
	return speaker
}

func formatTimestamp(d time.Duration) string {
	d = d.Round(time.Second)
	h := d / time.Hour
	m := (d % time.Hour) / time.Minute
	s := (d % time.Minute) / time.Second
	return fmt.Sprintf("%02d:%02d:%02d", h, m, s)
}

func writeFile(path, content string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("create output dir: %w", err)
	}
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		return fmt.Errorf("write %s: %w", filepath.Base(path), err)
	}
	return nil
}
