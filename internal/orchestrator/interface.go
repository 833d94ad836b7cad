package orchestrator

import (
	"context"

	"github.com/CRISUM/MeetingTool/internal/task"
)

// Orchestrator owns the task lifecycle: submission, the serial task
// queue, stage-by-stage execution with durable checkpoints, and the
// resume/retry/cancel controls. Tasks run one at a time; chunks within
// a task run on a bounded worker pool.
type Orchestrator interface {
	// Start recovers persisted state and launches the task worker.
	// Tasks that were running when the process died come back as
	// interrupted and are re-enqueued to resume from their last
	// persisted stage.
	Start(ctx context.Context) error

	// Stop drains the worker. The running task is checkpointed at its
	// last completed stage and resumes on the next Start.
	Stop()

	// Submit registers one recording as a new transcription task. A
	// path already owned by a non-terminal task returns that task
	// instead of creating a duplicate.
	Submit(ctx context.Context, audioPath string, opts task.Options) (*task.Task, error)

	// SubmitMerge registers a merged-minutes task over previously
	// completed transcription tasks.
	SubmitMerge(ctx context.Context, taskIDs []string) (*task.Task, error)

	// Retry re-enqueues a failed task. It resumes from the stage that
	// failed; completed chunks are not redone.
	Retry(ctx context.Context, id string) error

	// Cancel stops a queued or running task. An in-flight chunk is
	// allowed to finish so its cache entry stays whole; the task lands
	// in interrupted and can be retried later.
	Cancel(ctx context.Context, id string) error

	// Resummarize regenerates the summary. A non-empty editedTranscript
	// is persisted as the task's corrected transcript and becomes the
	// summary source; otherwise the current segment file is used. The
	// generated transcript artifacts are left untouched either way.
	Resummarize(ctx context.Context, id string, editedTranscript string) error
}
