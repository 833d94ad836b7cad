package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/CRISUM/MeetingTool/internal/logger"
	"github.com/CRISUM/MeetingTool/internal/store"
	"github.com/CRISUM/MeetingTool/internal/task"
)

// fakeOrchestrator records control calls and returns canned results.
type fakeOrchestrator struct {
	submitted         []string
	merged            [][]string
	retried           []string
	canceled          []string
	resummarized      []string
	editedTranscripts []string
	submitErr         error
	controlResult     error
}

func (f *fakeOrchestrator) Start(ctx context.Context) error { return nil }
func (f *fakeOrchestrator) Stop()                           {}

func (f *fakeOrchestrator) Submit(ctx context.Context, path string, opts task.Options) (*task.Task, error) {
	if f.submitErr != nil {
		return nil, f.submitErr
	}
	f.submitted = append(f.submitted, path)
	return &task.Task{ID: "new-task", Kind: task.KindTranscribe, Inputs: []string{path}, Options: opts}, nil
}

func (f *fakeOrchestrator) SubmitMerge(ctx context.Context, taskIDs []string) (*task.Task, error) {
	if f.submitErr != nil {
		return nil, f.submitErr
	}
	f.merged = append(f.merged, taskIDs)
	return &task.Task{ID: "merge-task", Kind: task.KindMergeSummary, Inputs: taskIDs}, nil
}

func (f *fakeOrchestrator) Retry(ctx context.Context, id string) error {
	f.retried = append(f.retried, id)
	return f.controlResult
}

func (f *fakeOrchestrator) Cancel(ctx context.Context, id string) error {
	f.canceled = append(f.canceled, id)
	return f.controlResult
}

func (f *fakeOrchestrator) Resummarize(ctx context.Context, id string, editedTranscript string) error {
	f.resummarized = append(f.resummarized, id)
	f.editedTranscripts = append(f.editedTranscripts, editedTranscript)
	return f.controlResult
}

func newTestServer(t *testing.T) (*Server, *fakeOrchestrator, store.Store) {
	t.Helper()
	st, err := store.Open(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { st.Close() })

	orch := &fakeOrchestrator{}
	return NewServer(orch, st, logger.New("error")), orch, st
}

func seedTask(t *testing.T, st store.Store, id string, status task.Status) task.Task {
	t.Helper()
	now := time.Now().UTC()
	tk := task.Task{
		ID:        id,
		Kind:      task.KindTranscribe,
		Inputs:    []string{"/audio/" + id + ".wav"},
		Stage:     task.StageCompleted,
		Status:    status,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := st.UpsertTask(tk); err != nil {
		t.Fatal(err)
	}
	return tk
}

func doJSON(t *testing.T, h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestHealth(t *testing.T) {
	srv, _, _ := newTestServer(t)
	rec := doJSON(t, srv.Handler(), http.MethodGet, "/health", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
}

func TestListTasks(t *testing.T) {
	srv, _, st := newTestServer(t)
	seedTask(t, st, "t1", task.StatusCompleted)
	seedTask(t, st, "t2", task.StatusFailed)

	rec := doJSON(t, srv.Handler(), http.MethodGet, "/api/tasks", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}

	var resp struct {
		Tasks []task.Task `json:"tasks"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if len(resp.Tasks) != 2 {
		t.Errorf("got %d tasks, want 2", len(resp.Tasks))
	}
}

func TestGetTaskNotFound(t *testing.T) {
	srv, _, _ := newTestServer(t)
	rec := doJSON(t, srv.Handler(), http.MethodGet, "/api/tasks/nope", "")
	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", rec.Code)
	}
}

func TestSubmitTask(t *testing.T) {
	srv, orch, _ := newTestServer(t)

	rec := doJSON(t, srv.Handler(), http.MethodPost, "/api/tasks",
		`{"path":"/audio/standup.wav","diarize":true,"summarize":true}`)
	if rec.Code != http.StatusAccepted {
		t.Fatalf("status = %d, want 202: %s", rec.Code, rec.Body.String())
	}
	if len(orch.submitted) != 1 || orch.submitted[0] != "/audio/standup.wav" {
		t.Errorf("submitted %v", orch.submitted)
	}
}

func TestSubmitTaskValidation(t *testing.T) {
	srv, _, _ := newTestServer(t)

	rec := doJSON(t, srv.Handler(), http.MethodPost, "/api/tasks", `{}`)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("empty path: status = %d, want 400", rec.Code)
	}

	rec = doJSON(t, srv.Handler(), http.MethodPost, "/api/tasks", `not json`)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("bad body: status = %d, want 400", rec.Code)
	}
}

func TestSubmitTaskErrorMapping(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"input", task.NewError(task.ErrorInput, task.StageQueued, "no such file", nil), http.StatusBadRequest},
		{"auth", task.NewError(task.ErrorAuth, task.StageQueued, "bad token", nil), http.StatusUnauthorized},
		{"api", task.NewError(task.ErrorAPI, task.StageQueued, "upstream down", nil), http.StatusBadGateway},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv, orch, _ := newTestServer(t)
			orch.submitErr = tt.err

			rec := doJSON(t, srv.Handler(), http.MethodPost, "/api/tasks", `{"path":"/a.wav"}`)
			if rec.Code != tt.want {
				t.Errorf("status = %d, want %d", rec.Code, tt.want)
			}
		})
	}
}

func TestTaskControls(t *testing.T) {
	srv, orch, st := newTestServer(t)
	seedTask(t, st, "t1", task.StatusFailed)
	h := srv.Handler()

	if rec := doJSON(t, h, http.MethodPost, "/api/tasks/t1/retry", ""); rec.Code != http.StatusAccepted {
		t.Errorf("retry status = %d, want 202", rec.Code)
	}
	if rec := doJSON(t, h, http.MethodPost, "/api/tasks/t1/cancel", ""); rec.Code != http.StatusAccepted {
		t.Errorf("cancel status = %d, want 202", rec.Code)
	}
	if rec := doJSON(t, h, http.MethodPost, "/api/tasks/t1/resummarize", ""); rec.Code != http.StatusAccepted {
		t.Errorf("resummarize status = %d, want 202", rec.Code)
	}

	if len(orch.retried) != 1 || len(orch.canceled) != 1 || len(orch.resummarized) != 1 {
		t.Errorf("controls not forwarded: %+v", orch)
	}

	if rec := doJSON(t, h, http.MethodPost, "/api/tasks/nope/retry", ""); rec.Code != http.StatusNotFound {
		t.Errorf("retry unknown: status = %d, want 404", rec.Code)
	}
}

func TestResummarizeWithEditedTranscript(t *testing.T) {
	srv, orch, st := newTestServer(t)
	seedTask(t, st, "t1", task.StatusCompleted)
	h := srv.Handler()

	// Without a body the summary source on disk is reused.
	if rec := doJSON(t, h, http.MethodPost, "/api/tasks/t1/resummarize", ""); rec.Code != http.StatusAccepted {
		t.Fatalf("no body: status = %d, want 202", rec.Code)
	}

	// A corrected transcript in the body is forwarded to the pipeline.
	rec := doJSON(t, h, http.MethodPost, "/api/tasks/t1/resummarize",
		`{"transcript":"alice: the budget is fine after all"}`)
	if rec.Code != http.StatusAccepted {
		t.Fatalf("with body: status = %d, want 202", rec.Code)
	}

	if len(orch.editedTranscripts) != 2 {
		t.Fatalf("resummarize forwarded %d times, want 2", len(orch.editedTranscripts))
	}
	if orch.editedTranscripts[0] != "" {
		t.Errorf("empty body forwarded transcript %q", orch.editedTranscripts[0])
	}
	if orch.editedTranscripts[1] != "alice: the budget is fine after all" {
		t.Errorf("body transcript = %q", orch.editedTranscripts[1])
	}

	if rec := doJSON(t, h, http.MethodPost, "/api/tasks/t1/resummarize", `not json`); rec.Code != http.StatusBadRequest {
		t.Errorf("malformed body: status = %d, want 400", rec.Code)
	}
}

func TestSubmitMerge(t *testing.T) {
	srv, orch, _ := newTestServer(t)

	rec := doJSON(t, srv.Handler(), http.MethodPost, "/api/merge", `{"task_ids":["t1","t2"]}`)
	if rec.Code != http.StatusAccepted {
		t.Fatalf("status = %d, want 202: %s", rec.Code, rec.Body.String())
	}
	if len(orch.merged) != 1 || len(orch.merged[0]) != 2 {
		t.Errorf("merged %v", orch.merged)
	}
}

func TestDeleteTask(t *testing.T) {
	srv, _, st := newTestServer(t)
	seedTask(t, st, "finished", task.StatusCompleted)
	seedTask(t, st, "active", task.StatusRunning)
	h := srv.Handler()

	if rec := doJSON(t, h, http.MethodDelete, "/api/tasks/finished", ""); rec.Code != http.StatusOK {
		t.Errorf("delete finished: status = %d, want 200", rec.Code)
	}
	if _, err := st.GetTask("finished"); err == nil {
		t.Error("task still present after delete")
	}

	if rec := doJSON(t, h, http.MethodDelete, "/api/tasks/active", ""); rec.Code != http.StatusConflict {
		t.Errorf("delete active: status = %d, want 409", rec.Code)
	}
}
