package store

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/CRISUM/MeetingTool/internal/task"
)

// The WAL journal and busy timeout are what let a second process (a
// CLI query against a running service) read the database instead of
// failing with SQLITE_BUSY. Assert the pragmas actually took effect:
// unknown DSN parameters are silently ignored by the driver.
func TestOpenAppliesPragmas(t *testing.T) {
	s := openTestStore(t)
	db := s.(*implStore).db

	var mode string
	if err := db.QueryRow("PRAGMA journal_mode").Scan(&mode); err != nil {
		t.Fatalf("query journal_mode: %v", err)
	}
	if !strings.EqualFold(mode, "wal") {
		t.Errorf("journal_mode = %q, want wal", mode)
	}

	var busy int
	if err := db.QueryRow("PRAGMA busy_timeout").Scan(&busy); err != nil {
		t.Fatalf("query busy_timeout: %v", err)
	}
	if busy != 5000 {
		t.Errorf("busy_timeout = %d, want 5000", busy)
	}

	var fk int
	if err := db.QueryRow("PRAGMA foreign_keys").Scan(&fk); err != nil {
		t.Fatalf("query foreign_keys: %v", err)
	}
	if fk != 1 {
		t.Errorf("foreign_keys = %d, want 1", fk)
	}
}

func openTestStore(t *testing.T) Store {
	t.Helper()
	s, err := Open(t.TempDir())
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func sampleTask(id string) task.Task {
	return task.Task{
		ID:        id,
		Kind:      task.KindTranscribe,
		Inputs:    []string{"meeting.wav"},
		Stage:     task.StageQueued,
		Status:    task.StatusQueued,
		Options:   task.Options{Summarize: true},
		CreatedAt: time.Now(),
		UpdatedAt: time.Now(),
	}
}

func TestUpsertGetTask(t *testing.T) {
	s := openTestStore(t)

	want := sampleTask("t1")
	if err := s.UpsertTask(want); err != nil {
		t.Fatalf("UpsertTask() error = %v", err)
	}

	got, err := s.GetTask("t1")
	if err != nil {
		t.Fatalf("GetTask() error = %v", err)
	}
	if got.Kind != task.KindTranscribe || got.Status != task.StatusQueued {
		t.Errorf("GetTask() = %+v", got)
	}
	if len(got.Inputs) != 1 || got.Inputs[0] != "meeting.wav" {
		t.Errorf("Inputs = %v", got.Inputs)
	}

	// Upsert with new status replaces the record.
	want.Status = task.StatusRunning
	want.Stage = task.StageTranscribing
	if err := s.UpsertTask(want); err != nil {
		t.Fatalf("UpsertTask() update error = %v", err)
	}
	got, err = s.GetTask("t1")
	if err != nil {
		t.Fatalf("GetTask() error = %v", err)
	}
	if got.Status != task.StatusRunning || got.Stage != task.StageTranscribing {
		t.Errorf("after update: status=%s stage=%s", got.Status, got.Stage)
	}
}

func TestGetTaskNotFound(t *testing.T) {
	s := openTestStore(t)
	_, err := s.GetTask("missing")
	if !errors.Is(err, ErrTaskNotFound) {
		t.Errorf("GetTask() error = %v, want ErrTaskNotFound", err)
	}
}

func TestListTasks(t *testing.T) {
	s := openTestStore(t)

	for _, id := range []string{"a", "b", "c"} {
		if err := s.UpsertTask(sampleTask(id)); err != nil {
			t.Fatalf("UpsertTask(%s) error = %v", id, err)
		}
	}

	tasks, err := s.ListTasks()
	if err != nil {
		t.Fatalf("ListTasks() error = %v", err)
	}
	if len(tasks) != 3 {
		t.Errorf("ListTasks() returned %d tasks, want 3", len(tasks))
	}
}

func TestChunkMarkers(t *testing.T) {
	s := openTestStore(t)

	chunks := []task.Chunk{
		{TaskID: "t1", Index: 0, Start: 0, End: 30 * time.Minute},
		{TaskID: "t1", Index: 1, Start: 29 * time.Minute, End: 60 * time.Minute},
	}
	if err := s.SaveChunks(chunks); err != nil {
		t.Fatalf("SaveChunks() error = %v", err)
	}

	// Absent row reads as not complete.
	done, err := s.IsChunkComplete("t1", 5)
	if err != nil {
		t.Fatalf("IsChunkComplete() error = %v", err)
	}
	if done {
		t.Error("absent chunk reported complete")
	}

	done, err = s.IsChunkComplete("t1", 0)
	if err != nil {
		t.Fatalf("IsChunkComplete() error = %v", err)
	}
	if done {
		t.Error("fresh chunk reported complete")
	}

	if err := s.MarkChunkComplete("t1", 0, "chunk_0000.json", ""); err != nil {
		t.Fatalf("MarkChunkComplete() error = %v", err)
	}
	done, err = s.IsChunkComplete("t1", 0)
	if err != nil {
		t.Fatalf("IsChunkComplete() error = %v", err)
	}
	if !done {
		t.Error("marked chunk not reported complete")
	}

	// Re-saving the plan must not clear the marker.
	if err := s.SaveChunks(chunks); err != nil {
		t.Fatalf("SaveChunks() re-save error = %v", err)
	}
	done, err = s.IsChunkComplete("t1", 0)
	if err != nil {
		t.Fatalf("IsChunkComplete() error = %v", err)
	}
	if !done {
		t.Error("re-saving chunk plan cleared completion marker")
	}

	list, err := s.ListChunks("t1")
	if err != nil {
		t.Fatalf("ListChunks() error = %v", err)
	}
	if len(list) != 2 {
		t.Fatalf("ListChunks() returned %d chunks, want 2", len(list))
	}
	if list[0].TranscriptPath != "chunk_0000.json" {
		t.Errorf("TranscriptPath = %q", list[0].TranscriptPath)
	}
	if list[1].Start != 29*time.Minute {
		t.Errorf("chunk 1 start = %v, want 29m", list[1].Start)
	}
}

func TestSurvivesReopen(t *testing.T) {
	dir := t.TempDir()
	s, err := Open(dir)
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	if err := s.UpsertTask(sampleTask("t1")); err != nil {
		t.Fatalf("UpsertTask() error = %v", err)
	}
	if err := s.SaveChunks([]task.Chunk{{TaskID: "t1", Index: 0, End: time.Minute}}); err != nil {
		t.Fatalf("SaveChunks() error = %v", err)
	}
	if err := s.MarkChunkComplete("t1", 0, "p", ""); err != nil {
		t.Fatalf("MarkChunkComplete() error = %v", err)
	}
	if err := s.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}

	s, err = Open(dir)
	if err != nil {
		t.Fatalf("reopen error = %v", err)
	}
	defer s.Close()

	if _, err := s.GetTask("t1"); err != nil {
		t.Errorf("GetTask() after reopen error = %v", err)
	}
	done, err := s.IsChunkComplete("t1", 0)
	if err != nil {
		t.Fatalf("IsChunkComplete() error = %v", err)
	}
	if !done {
		t.Error("chunk marker lost across reopen")
	}
}

func TestSummaries(t *testing.T) {
	s := openTestStore(t)

	first, err := s.UpsertSummary(task.Summary{
		TaskIDs:    []string{"a", "b"},
		SourceHash: "h1",
		Path:       "merged.md",
	})
	if err != nil {
		t.Fatalf("UpsertSummary() error = %v", err)
	}
	if first == 0 {
		t.Error("UpsertSummary() returned zero id")
	}

	second, err := s.UpsertSummary(task.Summary{
		TaskIDs:    []string{"a"},
		SourceHash: "h2",
		Path:       "regen.md",
		CreatedAt:  time.Now().Add(time.Minute),
	})
	if err != nil {
		t.Fatalf("UpsertSummary() error = %v", err)
	}

	latest, err := s.LatestSummary("a")
	if err != nil {
		t.Fatalf("LatestSummary() error = %v", err)
	}
	if latest == nil || latest.ID != second {
		t.Errorf("LatestSummary(a) = %+v, want id %d", latest, second)
	}

	latestB, err := s.LatestSummary("b")
	if err != nil {
		t.Fatalf("LatestSummary() error = %v", err)
	}
	if latestB == nil || latestB.ID != first {
		t.Errorf("LatestSummary(b) = %+v, want id %d", latestB, first)
	}

	none, err := s.LatestSummary("zzz")
	if err != nil {
		t.Fatalf("LatestSummary() error = %v", err)
	}
	if none != nil {
		t.Errorf("LatestSummary(zzz) = %+v, want nil", none)
	}
}

func TestDeleteTask(t *testing.T) {
	s := openTestStore(t)

	if err := s.UpsertTask(sampleTask("t1")); err != nil {
		t.Fatalf("UpsertTask() error = %v", err)
	}
	if err := s.SaveChunks([]task.Chunk{{TaskID: "t1", Index: 0, End: time.Minute}}); err != nil {
		t.Fatalf("SaveChunks() error = %v", err)
	}

	if err := s.DeleteTask("t1"); err != nil {
		t.Fatalf("DeleteTask() error = %v", err)
	}
	if _, err := s.GetTask("t1"); !errors.Is(err, ErrTaskNotFound) {
		t.Errorf("GetTask() after delete error = %v", err)
	}
	chunks, err := s.ListChunks("t1")
	if err != nil {
		t.Fatalf("ListChunks() error = %v", err)
	}
	if len(chunks) != 0 {
		t.Errorf("chunks remain after DeleteTask: %d", len(chunks))
	}

	if err := s.DeleteTask("t1"); !errors.Is(err, ErrTaskNotFound) {
		t.Errorf("DeleteTask() twice error = %v, want ErrTaskNotFound", err)
	}
}
