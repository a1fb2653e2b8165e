package tasks

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
)

type fieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

type errResponse struct {
	Error   string       `json:"error"`
	Details []fieldError `json:"details,omitempty"`
}

type handler struct {
	svc    *Service
	tasks  TaskMapper
	lists  TaskListMapper
	logger *slog.Logger
}

// RegisterRoutes mounts the task list API under /api/task-lists and the task
// API under /task-lists/{id}/tasks.
func RegisterRoutes(r chi.Router, svc *Service, logger *slog.Logger) {
	tm := NewTaskMapper()
	h := &handler{
		svc:    svc,
		tasks:  tm,
		lists:  NewTaskListMapper(tm),
		logger: logger,
	}

	r.Route("/api/task-lists", func(r chi.Router) {
		r.Get("/", h.listTaskLists)
		r.Post("/", h.createTaskList)
		r.Get("/{id}", h.getTaskList)
		r.Put("/{id}", h.updateTaskList)
		r.Delete("/{id}", h.deleteTaskList)
	})

	r.Route("/task-lists/{id}/tasks", func(r chi.Router) {
		r.Get("/", h.listTasks)
		r.Post("/", h.createTask)
		r.Get("/{taskID}", h.getTask)
		r.Put("/{taskID}", h.updateTask)
		r.Delete("/{taskID}", h.deleteTask)
	})
}

func (h *handler) listTaskLists(w http.ResponseWriter, r *http.Request) {
	lists, err := h.svc.ListTaskLists(r.Context())
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	out := make([]TaskListDto, len(lists))
	for i, l := range lists {
		out[i] = h.lists.ToDto(l)
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *handler) createTaskList(w http.ResponseWriter, r *http.Request) {
	var req TaskListDto
	if !decode(w, r, &req) {
		return
	}
	list, err := h.svc.CreateTaskList(r.Context(), h.lists.FromDto(req))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, h.lists.ToDto(list))
}

func (h *handler) getTaskList(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	list, err := h.svc.GetTaskList(r.Context(), id)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, h.lists.ToDto(list))
}

func (h *handler) updateTaskList(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	var req TaskListDto
	if !decode(w, r, &req) {
		return
	}
	list, err := h.svc.UpdateTaskList(r.Context(), id, h.lists.FromDto(req))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, h.lists.ToDto(list))
}

func (h *handler) deleteTaskList(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	if err := h.svc.DeleteTaskList(r.Context(), id); err != nil {
		h.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *handler) listTasks(w http.ResponseWriter, r *http.Request) {
	listID, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	items, err := h.svc.ListTasks(r.Context(), listID)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	out := make([]TaskDto, len(items))
	for i, t := range items {
		out[i] = h.tasks.ToDto(t)
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *handler) createTask(w http.ResponseWriter, r *http.Request) {
	listID, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	var req TaskDto
	if !decode(w, r, &req) {
		return
	}
	task, err := h.svc.CreateTask(r.Context(), listID, h.tasks.FromDto(req))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, h.tasks.ToDto(task))
}

func (h *handler) getTask(w http.ResponseWriter, r *http.Request) {
	listID, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	taskID, ok := pathID(w, r, "taskID")
	if !ok {
		return
	}
	task, err := h.svc.GetTask(r.Context(), listID, taskID)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, h.tasks.ToDto(task))
}

func (h *handler) updateTask(w http.ResponseWriter, r *http.Request) {
	listID, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	taskID, ok := pathID(w, r, "taskID")
	if !ok {
		return
	}
	var req TaskDto
	if !decode(w, r, &req) {
		return
	}
	task, err := h.svc.UpdateTask(r.Context(), listID, taskID, h.tasks.FromDto(req))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, h.tasks.ToDto(task))
}

func (h *handler) deleteTask(w http.ResponseWriter, r *http.Request) {
	listID, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	taskID, ok := pathID(w, r, "taskID")
	if !ok {
		return
	}
	if err := h.svc.DeleteTask(r.Context(), listID, taskID); err != nil {
		h.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *handler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, ErrNotFound):
		writeJSON(w, http.StatusNotFound, errResponse{Error: "not_found"})
	case errors.Is(err, ErrTitleRequired):
		writeValidation(w, fieldError{Field: "title", Message: "title is required"})
	case errors.Is(err, ErrTitleTooLong):
		writeValidation(w, fieldError{
			Field:   "title",
			Message: fmt.Sprintf("title must be at most %d characters", maxTitleLen),
		})
	case errors.Is(err, ErrInvalidPriority):
		writeValidation(w, fieldError{Field: "priority", Message: "priority must be one of HIGH, MEDIUM, LOW"})
	case errors.Is(err, ErrInvalidStatus):
		writeValidation(w, fieldError{Field: "status", Message: "status must be one of OPEN, CLOSED"})
	case errors.Is(err, ErrIDPresent), errors.Is(err, ErrIDRequired), errors.Is(err, ErrIDMismatch):
		writeJSON(w, http.StatusBadRequest, errResponse{Error: err.Error()})
	default:
		h.logger.Error("request_failed",
			slog.String("method", r.Method),
			slog.String("path", r.URL.Path),
			slog.String("req_id", chimw.GetReqID(r.Context())),
			slog.String("error", err.Error()),
		)
		writeJSON(w, http.StatusInternalServerError, errResponse{Error: "unexpected_error"})
	}
}

func writeValidation(w http.ResponseWriter, details ...fieldError) {
	writeJSON(w, http.StatusUnprocessableEntity, errResponse{
		Error:   "validation_error",
		Details: details,
	})
}

func pathID(w http.ResponseWriter, r *http.Request, param string) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, param))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errResponse{Error: "invalid id"})
		return uuid.Nil, false
	}
	return id, true
}

// maxBodyBytes caps request bodies; larger bodies get 413.
const maxBodyBytes = 1 << 20

func decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	body := http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(body).Decode(dst); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeJSON(w, http.StatusRequestEntityTooLarge, errResponse{Error: "payload_too_large"})
			return false
		}
		writeJSON(w, http.StatusBadRequest, errResponse{Error: "invalid_json"})
		return false
	}
	return true
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
