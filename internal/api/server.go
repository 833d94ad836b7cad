// Package api exposes the task registry and pipeline controls over
// HTTP.
package api

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/CRISUM/MeetingTool/internal/logger"
	"github.com/CRISUM/MeetingTool/internal/orchestrator"
	"github.com/CRISUM/MeetingTool/internal/store"
	"github.com/CRISUM/MeetingTool/internal/task"
)

// Server is the HTTP API over the task pipeline.
type Server struct {
	orch   orchestrator.Orchestrator
	store  store.Store
	logger logger.Logger
}

// NewServer creates the API server.
func NewServer(orch orchestrator.Orchestrator, st store.Store, log logger.Logger) *Server {
	return &Server{orch: orch, store: st, logger: log}
}

// Handler returns the chi router with all routes mounted.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(time.Minute))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Route("/api", func(r chi.Router) {
		r.Get("/tasks", s.handleListTasks)
		r.Post("/tasks", s.handleSubmitTask)
		r.Get("/tasks/{id}", s.handleGetTask)
		r.Delete("/tasks/{id}", s.handleDeleteTask)
		r.Post("/tasks/{id}/retry", s.handleRetryTask)
		r.Post("/tasks/{id}/cancel", s.handleCancelTask)
		r.Post("/tasks/{id}/resummarize", s.handleResummarizeTask)
		r.Post("/merge", s.handleSubmitMerge)
	})

	return r
}

func (s *Server) handleListTasks(w http.ResponseWriter, r *http.Request) {
	tasks, err := s.store.ListTasks()
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"tasks": tasks})
}

func (s *Server) handleGetTask(w http.ResponseWriter, r *http.Request) {
	t, ok := s.lookup(w, r)
	if !ok {
		return
	}

	resp := map[string]any{"task": t}
	if sum, err := s.store.LatestSummary(t.ID); err == nil && sum != nil {
		resp["summary"] = sum
	}
	if chunks, err := s.store.ListChunks(t.ID); err == nil && len(chunks) > 0 {
		done := 0
		for _, c := range chunks {
			if c.Done {
				done++
			}
		}
		resp["chunks_total"] = len(chunks)
		resp["chunks_done"] = done
	}
	writeJSON(w, http.StatusOK, resp)
}

type submitRequest struct {
	Path      string `json:"path"`
	Diarize   bool   `json:"diarize"`
	Summarize bool   `json:"summarize"`
	Language  string `json:"language,omitempty"`
}

func (s *Server) handleSubmitTask(w http.ResponseWriter, r *http.Request) {
	var req submitRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}
	if req.Path == "" {
		writeError(w, http.StatusBadRequest, "path is required")
		return
	}

	t, err := s.orch.Submit(r.Context(), req.Path, task.Options{
		Diarize:   req.Diarize,
		Summarize: req.Summarize,
		Language:  req.Language,
	})
	if err != nil {
		writeTaskError(w, err)
		return
	}
	writeJSON(w, http.StatusAccepted, map[string]any{"task": t})
}

type mergeRequest struct {
	TaskIDs []string `json:"task_ids"`
}

func (s *Server) handleSubmitMerge(w http.ResponseWriter, r *http.Request) {
	var req mergeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}

	t, err := s.orch.SubmitMerge(r.Context(), req.TaskIDs)
	if err != nil {
		writeTaskError(w, err)
		return
	}
	writeJSON(w, http.StatusAccepted, map[string]any{"task": t})
}

func (s *Server) handleRetryTask(w http.ResponseWriter, r *http.Request) {
	t, ok := s.lookup(w, r)
	if !ok {
		return
	}
	if err := s.orch.Retry(r.Context(), t.ID); err != nil {
		writeTaskError(w, err)
		return
	}
	writeJSON(w, http.StatusAccepted, map[string]string{"status": "queued"})
}

func (s *Server) handleCancelTask(w http.ResponseWriter, r *http.Request) {
	t, ok := s.lookup(w, r)
	if !ok {
		return
	}
	if err := s.orch.Cancel(r.Context(), t.ID); err != nil {
		writeTaskError(w, err)
		return
	}
	writeJSON(w, http.StatusAccepted, map[string]string{"status": "canceling"})
}

type resummarizeRequest struct {
	// Transcript optionally carries a corrected transcript to
	// summarize instead of the generated one.
	Transcript string `json:"transcript"`
}

func (s *Server) handleResummarizeTask(w http.ResponseWriter, r *http.Request) {
	t, ok := s.lookup(w, r)
	if !ok {
		return
	}

	// The body is optional: no body means "summarize what is on disk".
	var req resummarizeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}

	if err := s.orch.Resummarize(r.Context(), t.ID, req.Transcript); err != nil {
		writeTaskError(w, err)
		return
	}
	writeJSON(w, http.StatusAccepted, map[string]string{"status": "queued"})
}

func (s *Server) handleDeleteTask(w http.ResponseWriter, r *http.Request) {
	t, ok := s.lookup(w, r)
	if !ok {
		return
	}
	if !t.IsTerminal() && t.Status != task.StatusInterrupted {
		writeError(w, http.StatusConflict, "task is active, cancel it first")
		return
	}
	if err := s.store.DeleteTask(t.ID); err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

// lookup resolves the {id} route param, writing the error response
// itself when the task does not exist.
func (s *Server) lookup(w http.ResponseWriter, r *http.Request) (*task.Task, bool) {
	id := chi.URLParam(r, "id")
	t, err := s.store.GetTask(id)
	if err != nil {
		if errors.Is(err, store.ErrTaskNotFound) {
			writeError(w, http.StatusNotFound, "task not found")
		} else {
			writeError(w, http.StatusInternalServerError, err.Error())
		}
		return nil, false
	}
	return t, true
}

// writeTaskError maps pipeline error kinds onto HTTP statuses.
func writeTaskError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch task.KindOf(err) {
	case task.ErrorInput:
		status = http.StatusBadRequest
	case task.ErrorAuth:
		status = http.StatusUnauthorized
	case task.ErrorAPI, task.ErrorModel:
		status = http.StatusBadGateway
	}
	if errors.Is(err, store.ErrTaskNotFound) {
		status = http.StatusNotFound
	}
	writeError(w, status, err.Error())
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]any{
		"error": map[string]any{"message": msg},
	})
}
