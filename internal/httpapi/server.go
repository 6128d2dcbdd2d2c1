// Package httpapi exposes the task engine over HTTP: task submission, status
// and result polling, and a liveness probe.
package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/harrison/autopr/internal/logger"
	"github.com/harrison/autopr/internal/manager"
)

// startTaskRequest is the POST /start-task payload.
type startTaskRequest struct {
	Prompt        string `json:"prompt"`
	GitHubRepoURL string `json:"github_repo_url"`
	GitHubBranch  string `json:"github_branch,omitempty"`
	TestCommand   string `json:"test_command,omitempty"`
}

// Server routes HTTP requests to the task manager.
type Server struct {
	manager *manager.Manager
	log     logger.Logger
	mux     *http.ServeMux
}

// NewServer creates a Server for the given manager.
func NewServer(m *manager.Manager, log logger.Logger) *Server {
	s := &Server{
		manager: m,
		log:     log,
		mux:     http.NewServeMux(),
	}
	s.routes()
	return s
}

func (s *Server) routes() {
	s.mux.HandleFunc("POST /start-task", s.handleStartTask)
	s.mux.HandleFunc("GET /task-status/{task_id}", s.handleTaskStatus)
	s.mux.HandleFunc("GET /task-result/{task_id}", s.handleTaskResult)
	s.mux.HandleFunc("GET /{$}", s.handleHealth)
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}

// ListenAndServe serves until ctx is canceled, then shuts down gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}

func (s *Server) handleStartTask(w http.ResponseWriter, r *http.Request) {
	var req startTaskRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]any{"error": "invalid json"})
		return
	}

	id, err := s.manager.Submit(r.Context(), manager.SubmitRequest{
		Prompt:      req.Prompt,
		RepoURL:     req.GitHubRepoURL,
		Branch:      req.GitHubBranch,
		TestCommand: req.TestCommand,
	})
	if err != nil {
		if errors.Is(err, manager.ErrValidation) {
			writeJSON(w, http.StatusBadRequest, map[string]any{"error": err.Error()})
			return
		}
		s.log.Errorf("start-task: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]any{"error": "failed to create task"})
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"task_id": id})
}

func (s *Server) handleTaskStatus(w http.ResponseWriter, r *http.Request) {
	status, err := s.manager.GetStatus(r.Context(), r.PathValue("task_id"))
	if err != nil {
		s.writeLookupError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"status": status})
}

func (s *Server) handleTaskResult(w http.ResponseWriter, r *http.Request) {
	rec, err := s.manager.GetResult(r.Context(), r.PathValue("task_id"))
	if err != nil {
		s.writeLookupError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"status": rec.Status,
		"result": rec.Result,
	})
}

// handleHealth reports liveness independent of the task engine.
func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"status": "ok"})
}

func (s *Server) writeLookupError(w http.ResponseWriter, err error) {
	if errors.Is(err, manager.ErrNotFound) {
		writeJSON(w, http.StatusNotFound, map[string]any{"error": "task not found"})
		return
	}
	s.log.Errorf("lookup: %v", err)
	writeJSON(w, http.StatusInternalServerError, map[string]any{"error": "lookup failed"})
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	data, _ := json.Marshal(payload)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(data)
}
