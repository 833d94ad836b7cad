// Package task defines the domain types shared by the pipeline:
// tasks, chunks, transcript segments, speaker spans, and summaries.
package task

import "time"

// Kind distinguishes the two units of user-submitted work.
type Kind string

const (
	KindTranscribe   Kind = "transcribe"
	KindMergeSummary Kind = "merge-summary"
)

// Status tracks the task lifecycle. Transitions are monotonic except
// explicit retry: completed and failed are terminal until a retry
// resets the task to queued.
type Status string

const (
	StatusQueued      Status = "queued"
	StatusRunning     Status = "running"
	StatusInterrupted Status = "interrupted"
	StatusCompleted   Status = "completed"
	StatusFailed      Status = "failed"
)

// Stage is the pipeline position of a task. Stage transitions are
// persisted before the next stage begins, so a restart resumes from
// durable state rather than from memory.
type Stage string

const (
	StageQueued       Stage = "queued"
	StageSegmenting   Stage = "segmenting"
	StageTranscribing Stage = "transcribing"
	StageDiarizing    Stage = "diarizing"
	StageMerging      Stage = "merging"
	StageSummarizing  Stage = "summarizing"
	StageCompleted    Stage = "completed"
)

// Options is the per-task config snapshot taken at submission time.
type Options struct {
	Diarize   bool   `json:"diarize"`
	Summarize bool   `json:"summarize"`
	Model     string `json:"model,omitempty"`
	Language  string `json:"language,omitempty"`
}

// Task is one user-submitted unit of work: a single recording to
// transcribe, or a merge-summary request over prior completed tasks.
type Task struct {
	ID        string    `json:"id"`
	Kind      Kind      `json:"kind"`
	Inputs    []string  `json:"inputs"`
	Stage     Stage     `json:"stage"`
	Status    Status    `json:"status"`
	Options   Options   `json:"options"`
	OutputDir string    `json:"output_dir,omitempty"`
	Error     string    `json:"error,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// IsTerminal reports whether the task has reached a final state.
func (t *Task) IsTerminal() bool {
	return t.Status == StatusCompleted || t.Status == StatusFailed
}

// Chunk is one time-bounded slice of a task's input recording.
// Start/End are source-recording offsets and include the leading
// overlap region for chunks after the first.
type Chunk struct {
	TaskID          string        `json:"task_id"`
	Index           int           `json:"index"`
	Start           time.Duration `json:"start"`
	End             time.Duration `json:"end"`
	Done            bool          `json:"done"`
	TranscriptPath  string        `json:"transcript_path,omitempty"`
	DiarizationPath string        `json:"diarization_path,omitempty"`
}

// Segment is one timestamped utterance. Offsets are chunk-local when
// produced by the transcription adapter and file-global after merge.
type Segment struct {
	Start   time.Duration `json:"start"`
	End     time.Duration `json:"end"`
	Text    string        `json:"text"`
	Speaker string        `json:"speaker,omitempty"`
}

// UnknownSpeaker labels segments no diarization span covers.
const UnknownSpeaker = "unknown"

// SpeakerSpan is one time-ranged speaker cluster from diarization.
// Speaker labels are per-recording cluster ids, not stable across
// recordings.
type SpeakerSpan struct {
	Start   time.Duration `json:"start"`
	End     time.Duration `json:"end"`
	Speaker string        `json:"speaker"`
}

// Summary is one AI-generated structured summary. Regenerating from
// edited transcript text creates a new Summary value; the owning task
// always points at the latest.
type Summary struct {
	ID         int64     `json:"id"`
	TaskIDs    []string  `json:"task_ids"`
	SourceHash string    `json:"source_hash"`
	Path       string    `json:"path"`
	CreatedAt  time.Time `json:"created_at"`
}
