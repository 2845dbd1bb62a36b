package devserver

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/dohr-michael/taskpilot/internal/tasks"
)

// Service-level failures are reported as 200 with an "error" member, the way
// the production service does. Only undecodable requests get a 4xx.

type createRequest struct {
	Title       string  `json:"title"`
	Description string  `json:"description"`
	Priority    string  `json:"priority"`
	DueDate     *string `json:"due_date"`
}

type updateRequest struct {
	TaskID      tasks.ID `json:"task_id"`
	Title       *string  `json:"title"`
	Description *string  `json:"description"`
	Priority    *string  `json:"priority"`
	DueDate     *string  `json:"due_date"`
	Status      *string  `json:"status"`
}

type deleteRequest struct {
	TaskID tasks.ID `json:"task_id"`
}

type filterRequest struct {
	Status   string `json:"status"`
	Priority string `json:"priority"`
	DueDate  string `json:"due_date"`
}

func (s *Server) handleList(w http.ResponseWriter, r *http.Request) {
	q, err := pageQuery(r)
	if err != nil {
		unprocessable(w, err)
		return
	}
	list, err := s.store.List(r.Context(), q)
	if err != nil {
		s.internalError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, list)
}

func (s *Server) handleFilter(w http.ResponseWriter, r *http.Request) {
	q, err := pageQuery(r)
	if err != nil {
		unprocessable(w, err)
		return
	}
	var req filterRequest
	if !decode(w, r, &req) {
		return
	}

	if req.Status != "" {
		status, err := tasks.ParseStatus(req.Status)
		if err != nil {
			serviceError(w, err)
			return
		}
		q.Filter.Status = status
	}
	q.Filter.Priority = req.Priority
	if req.DueDate != "" {
		d, err := parseDueDate(req.DueDate)
		if err != nil {
			serviceError(w, err)
			return
		}
		q.Filter.DueDate = &d
	}

	list, err := s.store.List(r.Context(), q)
	if err != nil {
		s.internalError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, list)
}

func (s *Server) handleCreate(w http.ResponseWriter, r *http.Request) {
	var req createRequest
	if !decode(w, r, &req) {
		return
	}
	if req.Title == "" {
		unprocessable(w, errors.New("title is required"))
		return
	}

	nt := tasks.NewTask{Title: req.Title, Description: req.Description, Priority: req.Priority}
	if req.DueDate != nil && *req.DueDate != "" {
		d, err := parseDueDate(*req.DueDate)
		if err != nil {
			serviceError(w, err)
			return
		}
		nt.DueDate = &d
	}

	t, err := s.store.Create(r.Context(), nt)
	if err != nil {
		s.internalError(w, err)
		return
	}
	s.log.Info("task created", "id", t.ID, "title", t.Title)
	writeJSON(w, http.StatusOK, map[string]any{
		"message": fmt.Sprintf("Task '%s' created successfully.", t.Title),
		"task_id": t.ID,
	})
}

func (s *Server) handleUpdate(w http.ResponseWriter, r *http.Request) {
	var req updateRequest
	if !decode(w, r, &req) {
		return
	}

	p := Patch{Title: req.Title, Description: req.Description, Priority: req.Priority}
	if req.Status != nil {
		status, err := tasks.ParseStatus(*req.Status)
		if err != nil {
			serviceError(w, err)
			return
		}
		p.Status = &status
	}
	if req.DueDate != nil && *req.DueDate != "" {
		d, err := parseDueDate(*req.DueDate)
		if err != nil {
			serviceError(w, err)
			return
		}
		p.DueDate = &d
	}

	t, err := s.store.Update(r.Context(), req.TaskID, p)
	if errors.Is(err, ErrTaskNotFound) {
		serviceError(w, errors.New("Task not found."))
		return
	}
	if err != nil {
		s.internalError(w, err)
		return
	}
	s.log.Info("task updated", "id", t.ID, "status", t.Status)
	writeJSON(w, http.StatusOK, map[string]string{
		"message": fmt.Sprintf("Task '%s' updated successfully.", t.Title),
	})
}

func (s *Server) handleDelete(w http.ResponseWriter, r *http.Request) {
	var req deleteRequest
	if !decode(w, r, &req) {
		return
	}

	t, err := s.store.Delete(r.Context(), req.TaskID)
	if errors.Is(err, ErrTaskNotFound) {
		serviceError(w, errors.New("Task not found."))
		return
	}
	if err != nil {
		s.internalError(w, err)
		return
	}
	s.log.Info("task deleted", "id", t.ID)
	writeJSON(w, http.StatusOK, map[string]string{
		"message": fmt.Sprintf("Task '%s' deleted successfully.", t.Title),
	})
}

func pageQuery(r *http.Request) (Query, error) {
	q := Query{Page: 1, PageSize: 100}
	if v := r.URL.Query().Get("page"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			return q, fmt.Errorf("invalid page %q", v)
		}
		q.Page = n
	}
	if v := r.URL.Query().Get("page_size"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			return q, fmt.Errorf("invalid page_size %q", v)
		}
		q.PageSize = n
	}
	return q, nil
}

func parseDueDate(s string) (tasks.Date, error) {
	if len(s) != len("2006-01-02") {
		return tasks.Date{}, fmt.Errorf("Invalid date format '%s'. Use YYYY-MM-DD.", s)
	}
	d, err := tasks.ParseDate(s)
	if err != nil {
		return tasks.Date{}, fmt.Errorf("Invalid date format '%s'. Use YYYY-MM-DD.", s)
	}
	return d, nil
}

func decode(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		unprocessable(w, fmt.Errorf("invalid request body: %w", err))
		return false
	}
	return true
}

func serviceError(w http.ResponseWriter, err error) {
	writeJSON(w, http.StatusOK, map[string]string{"error": err.Error()})
}

func unprocessable(w http.ResponseWriter, err error) {
	writeJSON(w, http.StatusUnprocessableEntity, map[string]string{"detail": err.Error()})
}

func (s *Server) internalError(w http.ResponseWriter, err error) {
	s.log.Error("task store failure", "error", err)
	writeJSON(w, http.StatusInternalServerError, map[string]string{"detail": err.Error()})
}
