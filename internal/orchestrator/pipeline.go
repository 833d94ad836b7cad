package orchestrator

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/CRISUM/MeetingTool/internal/chunker"
	"github.com/CRISUM/MeetingTool/internal/merger"
	"github.com/CRISUM/MeetingTool/internal/output"
	"github.com/CRISUM/MeetingTool/internal/summarizer"
	"github.com/CRISUM/MeetingTool/internal/task"
)

// errCanceled aborts a task run after a cancel request. It is a
// control signal, not a failure: the task lands in interrupted.
var errCanceled = errors.New("task canceled")

var stageOrder = map[task.Stage]int{
	task.StageQueued:       0,
	task.StageSegmenting:   1,
	task.StageTranscribing: 2,
	task.StageDiarizing:    3,
	task.StageMerging:      4,
	task.StageSummarizing:  5,
	task.StageCompleted:    6,
}

func stageRank(s task.Stage) int {
	return stageOrder[s]
}

// advance persists the stage transition before any work of the new
// stage runs, so a crash resumes at the stage that was executing.
func (o *implOrchestrator) advance(t *task.Task, next task.Stage) error {
	t.Stage = next
	t.UpdatedAt = time.Now().UTC()
	if err := o.store.UpsertTask(*t); err != nil {
		return fmt.Errorf("persist stage %s: %w", next, err)
	}
	return nil
}

// runTranscribe executes the transcription pipeline from the task's
// persisted stage. Stages already completed in a previous run are not
// repeated.
func (o *implOrchestrator) runTranscribe(ctx context.Context, t *task.Task) error {
	if stageRank(t.Stage) <= stageRank(task.StageSegmenting) {
		if o.isCanceled(t.ID) {
			return errCanceled
		}
		if err := o.advance(t, task.StageSegmenting); err != nil {
			return err
		}
		if err := o.segment(ctx, t); err != nil {
			return err
		}
	}

	if stageRank(t.Stage) <= stageRank(task.StageTranscribing) {
		if o.isCanceled(t.ID) {
			return errCanceled
		}
		if err := o.advance(t, task.StageTranscribing); err != nil {
			return err
		}
		if err := o.transcribeChunks(ctx, t); err != nil {
			return err
		}
	}

	if t.Options.Diarize && stageRank(t.Stage) <= stageRank(task.StageDiarizing) {
		if o.isCanceled(t.ID) {
			return errCanceled
		}
		if err := o.advance(t, task.StageDiarizing); err != nil {
			return err
		}
		if err := o.diarizeChunks(ctx, t); err != nil {
			return err
		}
	}

	if stageRank(t.Stage) <= stageRank(task.StageMerging) {
		if o.isCanceled(t.ID) {
			return errCanceled
		}
		if err := o.advance(t, task.StageMerging); err != nil {
			return err
		}
		if err := o.merge(ctx, t); err != nil {
			return err
		}
	}

	if t.Options.Summarize && stageRank(t.Stage) <= stageRank(task.StageSummarizing) {
		if o.isCanceled(t.ID) {
			return errCanceled
		}
		if err := o.advance(t, task.StageSummarizing); err != nil {
			return err
		}
		if err := o.summarize(ctx, t); err != nil {
			return err
		}
	}

	o.cleanupTemp(ctx, t)
	return nil
}

// segment probes the recording and persists the chunk plan. Re-saving
// an existing plan preserves completion markers from a previous run.
func (o *implOrchestrator) segment(ctx context.Context, t *task.Task) error {
	total, err := o.chunker.Probe(ctx, t.Inputs[0])
	if err != nil {
		return err
	}

	spans := chunker.Plan(total, o.cfg.ChunkDuration(), o.cfg.OverlapDuration())
	chunks := make([]task.Chunk, len(spans))
	for i, span := range spans {
		chunks[i] = span.Chunk(t.ID)
	}

	if err := o.store.SaveChunks(chunks); err != nil {
		return fmt.Errorf("persist chunk plan: %w", err)
	}
	o.logger.Info(ctx, "Task %s: %s of audio in %d chunks", t.ID, total.Round(time.Second), len(chunks))
	return nil
}

// transcribeChunks runs whisper over every incomplete chunk on the
// shared worker pool. Chunks marked complete with an intact cache are
// skipped, which is what makes resume cheap.
func (o *implOrchestrator) transcribeChunks(ctx context.Context, t *task.Task) error {
	chunks, err := o.store.ListChunks(t.ID)
	if err != nil {
		return fmt.Errorf("list chunks: %w", err)
	}
	if len(chunks) == 0 {
		return task.NewError(task.ErrorInput, task.StageTranscribing, "no chunks planned", nil)
	}

	tempDir := o.tempDir(t)

	return o.forEachChunk(ctx, t, chunks, func(ctx context.Context, c task.Chunk) error {
		cache := output.ChunkTranscriptPath(tempDir, c.Index)
		if c.Done && fileExists(cache) {
			return nil
		}

		wav, err := o.ensureChunkAudio(ctx, t, c)
		if err != nil {
			return err
		}

		segments, err := withChunkRetry(ctx, o, t.ID, c.Index, "transcribe", func() ([]task.Segment, error) {
			return o.transcriber.Transcribe(ctx, wav)
		})
		if err != nil {
			return err
		}

		path, err := output.WriteChunkTranscript(tempDir, c.Index, segments)
		if err != nil {
			return err
		}
		return o.store.MarkChunkComplete(t.ID, c.Index, path, c.DiarizationPath)
	})
}

// diarizeChunks runs speaker diarization over chunks that still lack a
// speaker cache. A missing helper or token fails the task with an
// actionable auth error rather than producing a silent transcript.
func (o *implOrchestrator) diarizeChunks(ctx context.Context, t *task.Task) error {
	if ok, reason := o.diarizer.Available(); !ok {
		return task.NewError(task.ErrorAuth, task.StageDiarizing, reason, nil)
	}

	chunks, err := o.store.ListChunks(t.ID)
	if err != nil {
		return fmt.Errorf("list chunks: %w", err)
	}

	tempDir := o.tempDir(t)

	return o.forEachChunk(ctx, t, chunks, func(ctx context.Context, c task.Chunk) error {
		cache := output.ChunkSpeakersPath(tempDir, c.Index)
		if c.DiarizationPath != "" && fileExists(cache) {
			return nil
		}

		wav, err := o.ensureChunkAudio(ctx, t, c)
		if err != nil {
			return err
		}

		spans, err := withChunkRetry(ctx, o, t.ID, c.Index, "diarize", func() ([]task.SpeakerSpan, error) {
			return o.diarizer.Diarize(ctx, wav)
		})
		if err != nil {
			return err
		}

		path, err := output.WriteChunkSpeakers(tempDir, c.Index, spans)
		if err != nil {
			return err
		}
		return o.store.MarkChunkComplete(t.ID, c.Index, c.TranscriptPath, path)
	})
}

// forEachChunk fans the chunk jobs out over the bounded worker pool
// and returns the first error. A pending cancel stops new chunks from
// starting; in-flight chunks run to completion so their cache entries
// stay whole.
func (o *implOrchestrator) forEachChunk(ctx context.Context, t *task.Task, chunks []task.Chunk, job func(context.Context, task.Chunk) error) error {
	var wg sync.WaitGroup
	var mu sync.Mutex
	var firstErr error

	for _, c := range chunks {
		mu.Lock()
		aborted := firstErr != nil
		mu.Unlock()
		if aborted {
			break
		}
		if o.isCanceled(t.ID) {
			break
		}

		o.sem <- struct{}{}
		wg.Add(1)
		go func(c task.Chunk) {
			defer wg.Done()
			defer func() { <-o.sem }()

			if err := job(ctx, c); err != nil {
				mu.Lock()
				if firstErr == nil {
					firstErr = err
				}
				mu.Unlock()
			}
		}(c)
	}

	wg.Wait()
	if firstErr != nil {
		return firstErr
	}
	if o.isCanceled(t.ID) {
		return errCanceled
	}
	return nil
}

// withChunkRetry retries model-kind failures with exponential backoff.
// Input and auth failures are never retried.
func withChunkRetry[T any](ctx context.Context, o *implOrchestrator, taskID string, index int, op string, fn func() (T, error)) (T, error) {
	var zero T
	var lastErr error

	backoff := time.Second
	for attempt := 1; attempt <= o.cfg.Pipeline.MaxChunkRetries; attempt++ {
		out, err := fn()
		if err == nil {
			return out, nil
		}
		lastErr = err

		if !errors.Is(err, task.ErrModel) && !errors.Is(err, task.ErrAPI) {
			return zero, err
		}
		if attempt == o.cfg.Pipeline.MaxChunkRetries {
			break
		}

		o.logger.Warn(ctx, "Task %s chunk %d %s attempt %d failed, retrying in %s: %v",
			taskID, index, op, attempt, backoff, err)
		select {
		case <-ctx.Done():
			return zero, lastErr
		case <-time.After(backoff):
		}
		backoff *= 2
	}

	return zero, lastErr
}

// ensureChunkAudio cuts the chunk WAV if a previous run's temp file is
// gone.
func (o *implOrchestrator) ensureChunkAudio(ctx context.Context, t *task.Task, c task.Chunk) (string, error) {
	tempDir := o.tempDir(t)
	wav := filepath.Join(tempDir, fmt.Sprintf("chunk_%04d.wav", c.Index))
	if fileExists(wav) {
		return wav, nil
	}

	if err := os.MkdirAll(tempDir, 0755); err != nil {
		return "", fmt.Errorf("create temp dir: %w", err)
	}
	span := chunker.Span{Index: c.Index, Start: c.Start, End: c.End}
	return o.chunker.Cut(ctx, t.Inputs[0], tempDir, span)
}

// merge reads every chunk's cache back from disk and writes the
// file-global transcript artifacts. Reading from the cache rather than
// memory keeps a resumed run and an uninterrupted one identical.
func (o *implOrchestrator) merge(ctx context.Context, t *task.Task) error {
	chunks, err := o.store.ListChunks(t.ID)
	if err != nil {
		return fmt.Errorf("list chunks: %w", err)
	}

	tempDir := o.tempDir(t)
	results := make([]merger.ChunkResult, len(chunks))
	for i, c := range chunks {
		segments, err := output.ReadChunkTranscript(tempDir, c.Index)
		if err != nil {
			return task.NewError(task.ErrorModel, task.StageMerging,
				fmt.Sprintf("chunk %d transcript cache unreadable", c.Index), err)
		}
		results[i] = merger.ChunkResult{Chunk: c, Segments: segments}

		if t.Options.Diarize {
			spans, err := output.ReadChunkSpeakers(tempDir, c.Index)
			if err != nil {
				return task.NewError(task.ErrorModel, task.StageMerging,
					fmt.Sprintf("chunk %d speaker cache unreadable", c.Index), err)
			}
			results[i].Speakers = spans
		}
	}

	merged, err := merger.Merge(results)
	if err != nil {
		return task.NewError(task.ErrorModel, task.StageMerging, "merge chunk results", err)
	}

	if _, err := output.WriteSegments(t.OutputDir, merged); err != nil {
		return err
	}
	if _, err := output.WriteTranscript(t.OutputDir, merged); err != nil {
		return err
	}
	title := strings.TrimSuffix(filepath.Base(t.Inputs[0]), filepath.Ext(t.Inputs[0]))
	if _, err := output.WriteTranscriptDocx(t.OutputDir, title, merged); err != nil {
		return err
	}
	if t.Options.Diarize {
		if _, err := output.WriteSpeakerTranscript(t.OutputDir, merged); err != nil {
			return err
		}
	}

	o.logger.Info(ctx, "Task %s: merged %d segments", t.ID, len(merged))
	return nil
}

// summarize generates minutes from the transcript on disk, so a
// corrected transcript submitted before a resummarize is honored.
func (o *implOrchestrator) summarize(ctx context.Context, t *task.Task) error {
	text, err := output.ReadSummarySource(t.OutputDir)
	if err != nil {
		return task.NewError(task.ErrorInput, task.StageSummarizing, "read transcript", err)
	}

	md, err := o.summarizer.Summarize(ctx, text)
	if err != nil {
		return err
	}

	return o.writeSummaryArtifacts(ctx, t, []string{t.ID}, text, md)
}

// runMergeSummary produces one set of minutes across several finished
// transcription tasks.
func (o *implOrchestrator) runMergeSummary(ctx context.Context, t *task.Task) error {
	if err := o.advance(t, task.StageSummarizing); err != nil {
		return err
	}

	var transcripts []summarizer.NamedTranscript
	var hashInput strings.Builder
	for _, id := range t.Inputs {
		src, err := o.store.GetTask(id)
		if err != nil {
			return task.NewError(task.ErrorInput, task.StageSummarizing, fmt.Sprintf("source task %s", id), err)
		}
		text, err := output.ReadSummarySource(src.OutputDir)
		if err != nil {
			return task.NewError(task.ErrorInput, task.StageSummarizing,
				fmt.Sprintf("source task %s transcript", id), err)
		}
		name := filepath.Base(src.Inputs[0])
		transcripts = append(transcripts, summarizer.NamedTranscript{Name: name, Text: text})
		hashInput.WriteString(text)
	}

	md, err := o.summarizer.SummarizeMerged(ctx, transcripts)
	if err != nil {
		return err
	}

	return o.writeSummaryArtifacts(ctx, t, t.Inputs, hashInput.String(), md)
}

func (o *implOrchestrator) writeSummaryArtifacts(ctx context.Context, t *task.Task, taskIDs []string, sourceText, markdown string) error {
	path, err := output.WriteSummary(t.OutputDir, markdown)
	if err != nil {
		return err
	}
	if _, err := output.WriteSummaryDocx(t.OutputDir, filepath.Base(t.OutputDir), markdown); err != nil {
		return err
	}

	sum := task.Summary{
		TaskIDs:    taskIDs,
		SourceHash: hashText(sourceText),
		Path:       path,
		CreatedAt:  time.Now().UTC(),
	}
	if _, err := o.store.UpsertSummary(sum); err != nil {
		return fmt.Errorf("persist summary: %w", err)
	}

	o.logger.Info(ctx, "Task %s: summary written to %s", t.ID, path)
	return nil
}

// cleanupTemp removes the chunk cache once the task has produced all
// its durable artifacts.
func (o *implOrchestrator) cleanupTemp(ctx context.Context, t *task.Task) {
	if t.Kind != task.KindTranscribe {
		return
	}
	dir := o.tempDir(t)
	if err := os.RemoveAll(dir); err != nil {
		o.logger.Warn(ctx, "Task %s: remove temp dir %s: %v", t.ID, dir, err)
	}
}

func hashText(s string) string {
	sum := sha256.Sum256([]byte(s))
	return hex.EncodeToString(sum[:])
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
