package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/hochfrequenz/fiztarefa/internal/domain"
	"github.com/hochfrequenz/fiztarefa/internal/pomodoro"
	"github.com/hochfrequenz/fiztarefa/internal/taskstore"
)

// PhaseRequest selects a phase
type PhaseRequest struct {
	Phase string `json:"phase"`
}

// FocusRequest focuses a task; an empty id clears the focus
type FocusRequest struct {
	TaskID string `json:"task_id"`
}

// CreateTaskRequest creates a task
type CreateTaskRequest struct {
	Title  string `json:"title"`
	ListID string `json:"list_id,omitempty"`
}

// CompleteRequest marks a task done or open. Completed defaults to true.
type CompleteRequest struct {
	Completed *bool `json:"completed,omitempty"`
}

// CreateListRequest creates a list
type CreateListRequest struct {
	Name  string `json:"name"`
	Color string `json:"color,omitempty"`
}

func (s *Server) statusHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			writeError(w, http.StatusMethodNotAllowed, "method not allowed")
			return
		}
		s.writeStatus(w, r.Context())
	}
}

func (s *Server) writeStatus(w http.ResponseWriter, ctx context.Context) {
	status, err := s.timer.Status(ctx)
	if err != nil {
		writeError(w, errorStatus(err), err.Error())
		return
	}
	writeJSON(w, status)
}

func (s *Server) timerCommandHandler(cmd func(context.Context) error) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			writeError(w, http.StatusMethodNotAllowed, "method not allowed")
			return
		}
		if err := cmd(r.Context()); err != nil {
			writeError(w, errorStatus(err), err.Error())
			return
		}
		s.writeStatus(w, r.Context())
	}
}

func (s *Server) selectPhaseHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			writeError(w, http.StatusMethodNotAllowed, "method not allowed")
			return
		}

		var req PhaseRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}
		phase, err := pomodoro.ParsePhase(req.Phase)
		if err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}

		if err := s.timer.SelectPhase(r.Context(), phase); err != nil {
			writeError(w, errorStatus(err), err.Error())
			return
		}
		s.writeStatus(w, r.Context())
	}
}

func (s *Server) focusTaskHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			writeError(w, http.StatusMethodNotAllowed, "method not allowed")
			return
		}

		var req FocusRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}

		if _, err := s.timer.FocusTask(r.Context(), strings.TrimSpace(req.TaskID)); err != nil {
			writeError(w, errorStatus(err), err.Error())
			return
		}
		s.writeStatus(w, r.Context())
	}
}

func (s *Server) tasksHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet:
			q := r.URL.Query()
			tasks, err := s.store.ListTasks(taskstore.ListOptions{
				ListID:           q.Get("list_id"),
				IncludeCompleted: q.Get("all") == "1" || q.Get("all") == "true",
			})
			if err != nil {
				writeError(w, http.StatusInternalServerError, err.Error())
				return
			}
			if tasks == nil {
				tasks = []*domain.Task{}
			}
			writeJSON(w, tasks)

		case http.MethodPost:
			var req CreateTaskRequest
			if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
				writeError(w, http.StatusBadRequest, "invalid request body")
				return
			}
			task, err := s.store.CreateTask(req.Title, req.ListID)
			if err != nil {
				writeError(w, errorStatus(err), err.Error())
				return
			}
			writeJSONStatus(w, http.StatusCreated, task)

		default:
			writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		}
	}
}

// taskHandler serves /api/tasks/{id} and /api/tasks/{id}/complete
func (s *Server) taskHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		path := strings.Trim(strings.TrimPrefix(r.URL.Path, "/api/tasks/"), "/")
		id, action, _ := strings.Cut(path, "/")
		if id == "" {
			writeError(w, http.StatusBadRequest, "task ID required")
			return
		}

		switch {
		case action == "" && r.Method == http.MethodGet:
			task, err := s.store.GetTask(id)
			if err != nil {
				writeError(w, errorStatus(err), err.Error())
				return
			}
			writeJSON(w, task)

		case action == "" && r.Method == http.MethodDelete:
			if err := s.store.DeleteTask(id); err != nil {
				writeError(w, errorStatus(err), fmt.Sprintf("task %s: %v", id, err))
				return
			}
			w.WriteHeader(http.StatusNoContent)

		case action == "complete" && r.Method == http.MethodPost:
			var req CompleteRequest
			if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
				writeError(w, http.StatusBadRequest, "invalid request body")
				return
			}
			completed := req.Completed == nil || *req.Completed
			if err := s.store.SetCompleted(id, completed); err != nil {
				writeError(w, errorStatus(err), fmt.Sprintf("task %s: %v", id, err))
				return
			}
			task, err := s.store.GetTask(id)
			if err != nil {
				writeError(w, errorStatus(err), err.Error())
				return
			}
			writeJSON(w, task)

		case action == "" || action == "complete":
			writeError(w, http.StatusMethodNotAllowed, "method not allowed")

		default:
			writeError(w, http.StatusNotFound, "not found")
		}
	}
}

func (s *Server) listsHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet:
			lists, err := s.store.ListLists()
			if err != nil {
				writeError(w, http.StatusInternalServerError, err.Error())
				return
			}
			if lists == nil {
				lists = []*domain.List{}
			}
			writeJSON(w, lists)

		case http.MethodPost:
			var req CreateListRequest
			if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
				writeError(w, http.StatusBadRequest, "invalid request body")
				return
			}
			if req.Color != "" && !domain.ValidColor(req.Color) {
				writeError(w, http.StatusBadRequest, "color must be #rrggbb")
				return
			}
			list, err := s.store.CreateList(req.Name, req.Color)
			if err != nil {
				writeError(w, errorStatus(err), err.Error())
				return
			}
			writeJSONStatus(w, http.StatusCreated, list)

		default:
			writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		}
	}
}
