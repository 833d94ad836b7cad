// Package orchestrator drives recordings through the pipeline stages,
// persisting every transition so an interrupted run resumes from its
// last checkpoint instead of starting over.
package orchestrator

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/CRISUM/MeetingTool/internal/output"
	"github.com/CRISUM/MeetingTool/internal/task"
)

func (o *implOrchestrator) Start(ctx context.Context) error {
	o.mu.Lock()
	if o.started {
		o.mu.Unlock()
		return fmt.Errorf("orchestrator already started")
	}
	o.started = true
	o.mu.Unlock()

	if err := o.recover(ctx); err != nil {
		return err
	}

	o.wg.Add(1)
	go o.runWorker(ctx)
	return nil
}

func (o *implOrchestrator) Stop() {
	close(o.stop)
	o.wg.Wait()
}

// recover marks tasks that died mid-run as interrupted and re-enqueues
// everything unfinished, oldest first.
func (o *implOrchestrator) recover(ctx context.Context) error {
	tasks, err := o.store.ListTasks()
	if err != nil {
		return fmt.Errorf("recover tasks: %w", err)
	}

	for i := len(tasks) - 1; i >= 0; i-- {
		t := tasks[i]
		switch t.Status {
		case task.StatusRunning:
			t.Status = task.StatusInterrupted
			t.UpdatedAt = time.Now().UTC()
			if err := o.store.UpsertTask(t); err != nil {
				return fmt.Errorf("mark interrupted: %w", err)
			}
			o.logger.Info(ctx, "Task %s interrupted at stage %s, will resume", t.ID, t.Stage)
			o.enqueue(t.ID)
		case task.StatusQueued, task.StatusInterrupted:
			o.enqueue(t.ID)
		}
	}
	return nil
}

func (o *implOrchestrator) runWorker(ctx context.Context) {
	defer o.wg.Done()

	for {
		select {
		case <-o.stop:
			return
		case <-ctx.Done():
			return
		case id := <-o.queue:
			o.runOne(ctx, id)
		}
	}
}

func (o *implOrchestrator) runOne(ctx context.Context, id string) {
	t, err := o.store.GetTask(id)
	if err != nil {
		o.logger.Error(ctx, "Dequeued unknown task %s: %v", id, err)
		return
	}
	if t.IsTerminal() {
		return
	}
	if o.consumeCancel(id) {
		o.finish(ctx, t, task.StatusInterrupted, nil)
		return
	}

	t.Status = task.StatusRunning
	t.Error = ""
	t.UpdatedAt = time.Now().UTC()
	if err := o.store.UpsertTask(*t); err != nil {
		o.logger.Error(ctx, "Persist task %s: %v", id, err)
		return
	}

	o.logger.Info(ctx, "Task %s starting at stage %s", t.ID, t.Stage)

	var runErr error
	switch t.Kind {
	case task.KindTranscribe:
		runErr = o.runTranscribe(ctx, t)
	case task.KindMergeSummary:
		runErr = o.runMergeSummary(ctx, t)
	default:
		runErr = task.NewError(task.ErrorInput, t.Stage, fmt.Sprintf("unknown task kind %q", t.Kind), nil)
	}

	switch {
	case runErr == nil:
		o.finish(ctx, t, task.StatusCompleted, nil)
	case runErr == errCanceled:
		o.finish(ctx, t, task.StatusInterrupted, nil)
	default:
		o.finish(ctx, t, task.StatusFailed, runErr)
	}

	// Clear any cancel flag raised during the run so a later retry
	// starts clean.
	o.consumeCancel(id)
}

func (o *implOrchestrator) finish(ctx context.Context, t *task.Task, status task.Status, err error) {
	t.Status = status
	t.UpdatedAt = time.Now().UTC()
	if status == task.StatusCompleted {
		t.Stage = task.StageCompleted
	}
	if err != nil {
		t.Error = err.Error()
		o.logger.Error(ctx, "Task %s failed at stage %s: %v", t.ID, t.Stage, err)
	} else {
		o.logger.Info(ctx, "Task %s -> %s", t.ID, status)
	}
	if uerr := o.store.UpsertTask(*t); uerr != nil {
		o.logger.Error(ctx, "Persist task %s: %v", t.ID, uerr)
	}
}

func (o *implOrchestrator) Submit(ctx context.Context, audioPath string, opts task.Options) (*task.Task, error) {
	abs, err := filepath.Abs(audioPath)
	if err != nil {
		return nil, task.NewError(task.ErrorInput, task.StageQueued, "resolve input path", err)
	}
	if _, err := os.Stat(abs); err != nil {
		return nil, task.NewError(task.ErrorInput, task.StageQueued, "input file not accessible", err)
	}

	if existing, err := o.findActive(abs); err != nil {
		return nil, err
	} else if existing != nil {
		o.logger.Debug(ctx, "Path %s already owned by task %s", abs, existing.ID)
		return existing, nil
	}

	now := time.Now().UTC()
	t := task.Task{
		ID:        uuid.NewString(),
		Kind:      task.KindTranscribe,
		Inputs:    []string{abs},
		Stage:     task.StageQueued,
		Status:    task.StatusQueued,
		Options:   opts,
		CreatedAt: now,
		UpdatedAt: now,
	}
	t.OutputDir = filepath.Join(o.cfg.Paths.Output, outputDirName(abs, t.ID))

	if err := o.store.UpsertTask(t); err != nil {
		return nil, fmt.Errorf("persist task: %w", err)
	}
	o.enqueue(t.ID)
	o.logger.Info(ctx, "Submitted task %s for %s", t.ID, filepath.Base(abs))
	return &t, nil
}

func (o *implOrchestrator) SubmitMerge(ctx context.Context, taskIDs []string) (*task.Task, error) {
	if len(taskIDs) < 2 {
		return nil, task.NewError(task.ErrorInput, task.StageQueued, "merge needs at least two tasks", nil)
	}

	for _, id := range taskIDs {
		src, err := o.store.GetTask(id)
		if err != nil {
			return nil, task.NewError(task.ErrorInput, task.StageQueued, fmt.Sprintf("source task %s", id), err)
		}
		if src.Kind != task.KindTranscribe {
			return nil, task.NewError(task.ErrorInput, task.StageQueued,
				fmt.Sprintf("source task %s is not a transcription", id), nil)
		}
		if src.Status != task.StatusCompleted {
			return nil, task.NewError(task.ErrorInput, task.StageQueued,
				fmt.Sprintf("source task %s is not completed", id), nil)
		}
	}

	now := time.Now().UTC()
	t := task.Task{
		ID:        uuid.NewString(),
		Kind:      task.KindMergeSummary,
		Inputs:    taskIDs,
		Stage:     task.StageQueued,
		Status:    task.StatusQueued,
		Options:   task.Options{Summarize: true},
		CreatedAt: now,
		UpdatedAt: now,
	}
	t.OutputDir = filepath.Join(o.cfg.Paths.Output, "merged_"+shortID(t.ID))

	if err := o.store.UpsertTask(t); err != nil {
		return nil, fmt.Errorf("persist task: %w", err)
	}
	o.enqueue(t.ID)
	o.logger.Info(ctx, "Submitted merge task %s over %d tasks", t.ID, len(taskIDs))
	return &t, nil
}

func (o *implOrchestrator) Retry(ctx context.Context, id string) error {
	t, err := o.store.GetTask(id)
	if err != nil {
		return err
	}
	if t.Status != task.StatusFailed && t.Status != task.StatusInterrupted {
		return task.NewError(task.ErrorInput, t.Stage,
			fmt.Sprintf("task is %s, only failed or interrupted tasks can be retried", t.Status), nil)
	}

	t.Status = task.StatusQueued
	t.Error = ""
	t.UpdatedAt = time.Now().UTC()
	if err := o.store.UpsertTask(*t); err != nil {
		return err
	}
	o.enqueue(t.ID)
	o.logger.Info(ctx, "Task %s re-enqueued at stage %s", t.ID, t.Stage)
	return nil
}

func (o *implOrchestrator) Cancel(ctx context.Context, id string) error {
	t, err := o.store.GetTask(id)
	if err != nil {
		return err
	}
	if t.IsTerminal() {
		return task.NewError(task.ErrorInput, t.Stage, fmt.Sprintf("task is already %s", t.Status), nil)
	}

	o.mu.Lock()
	o.canceled[id] = true
	o.mu.Unlock()
	o.logger.Info(ctx, "Task %s cancel requested", id)
	return nil
}

func (o *implOrchestrator) Resummarize(ctx context.Context, id string, editedTranscript string) error {
	t, err := o.store.GetTask(id)
	if err != nil {
		return err
	}
	if t.Kind != task.KindTranscribe {
		return task.NewError(task.ErrorInput, t.Stage, "only transcription tasks can be resummarized", nil)
	}
	if stageRank(t.Stage) < stageRank(task.StageSummarizing) || !t.IsTerminal() {
		return task.NewError(task.ErrorInput, t.Stage, "task has no finished transcript yet", nil)
	}

	if strings.TrimSpace(editedTranscript) != "" {
		if _, err := output.WriteEditedTranscript(t.OutputDir, editedTranscript); err != nil {
			return fmt.Errorf("persist edited transcript: %w", err)
		}
		o.logger.Info(ctx, "Task %s: edited transcript saved", t.ID)
	}

	t.Stage = task.StageSummarizing
	t.Status = task.StatusQueued
	t.Options.Summarize = true
	t.Error = ""
	t.UpdatedAt = time.Now().UTC()
	if err := o.store.UpsertTask(*t); err != nil {
		return err
	}
	o.enqueue(t.ID)
	o.logger.Info(ctx, "Task %s queued for resummarization", t.ID)
	return nil
}

func (o *implOrchestrator) enqueue(id string) {
	select {
	case o.queue <- id:
	default:
		// Queue full: the task stays persisted as queued and is picked
		// up on the next restart.
	}
}

// consumeCancel reports and clears a pending cancel request.
func (o *implOrchestrator) consumeCancel(id string) bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.canceled[id] {
		delete(o.canceled, id)
		return true
	}
	return false
}

func (o *implOrchestrator) isCanceled(id string) bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.canceled[id]
}

func (o *implOrchestrator) findActive(inputPath string) (*task.Task, error) {
	tasks, err := o.store.ListTasks()
	if err != nil {
		return nil, err
	}
	for i := range tasks {
		t := &tasks[i]
		if t.Kind != task.KindTranscribe || t.IsTerminal() {
			continue
		}
		for _, in := range t.Inputs {
			if in == inputPath {
				return t, nil
			}
		}
	}
	return nil, nil
}

func (o *implOrchestrator) tempDir(t *task.Task) string {
	return filepath.Join(o.cfg.Paths.Temp, t.ID)
}

func outputDirName(inputPath, id string) string {
	stem := strings.TrimSuffix(filepath.Base(inputPath), filepath.Ext(inputPath))
	return stem + "_" + shortID(id)
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
