// Package api exposes the task collection over HTTP.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/danmermels/momentum-spark-app/internal/model"
	"github.com/danmermels/momentum-spark-app/internal/progress"
	"github.com/danmermels/momentum-spark-app/internal/repository"
	"github.com/danmermels/momentum-spark-app/internal/service"
)

const maxBodyBytes = 1 << 20

// statusClientClosedRequest is recorded when the caller disconnects first.
const statusClientClosedRequest = 499

// TaskService is the business layer behind the handlers.
type TaskService interface {
	List(ctx context.Context) ([]model.Task, error)
	Get(ctx context.Context, id uint) (*model.Task, error)
	Create(ctx context.Context, req service.CreateTaskRequest) (*model.Task, error)
	Update(ctx context.Context, id uint, req service.UpdateTaskRequest) (*model.Task, error)
	Delete(ctx context.Context, id uint) error
	Progress(ctx context.Context) (progress.Report, error)
}

// ErrorResponse is the body of every non-2xx reply.
type ErrorResponse struct {
	Message string               `json:"message"`
	Errors  []service.FieldError `json:"errors,omitempty"`
}

// MessageResponse confirms an operation without returning a resource.
type MessageResponse struct {
	Message string `json:"message"`
}

// Handler is the HTTP layer: routes, JSON parsing, status codes.
type Handler struct {
	svc     TaskService
	timeout time.Duration
	ping    func(ctx context.Context) error
}

func NewHandler(svc TaskService, timeout time.Duration) *Handler {
	return &Handler{svc: svc, timeout: timeout}
}

// WithHealthCheck makes /healthz report the result of ping.
func (h *Handler) WithHealthCheck(ping func(ctx context.Context) error) *Handler {
	h.ping = ping
	return h
}

// Router builds the full HTTP handler including common middleware.
func (h *Handler) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(chiMiddleware.RequestID)
	r.Use(chiMiddleware.Logger)
	r.Use(chiMiddleware.Recoverer)

	r.Group(func(r chi.Router) {
		r.Use(JSONHeaderMiddleware)
		r.Use(RequestTimeoutMiddleware(h.timeout))

		r.Get("/healthz", h.health)
		r.Get("/progress", h.getProgress)

		r.Route("/tasks", func(r chi.Router) {
			r.Get("/", h.listTasks)
			r.Post("/", h.createTask)
			r.Get("/{id}", h.getTask)
			r.Put("/{id}", h.updateTask)
			r.Patch("/{id}", h.updateTask)
			r.Delete("/{id}", h.deleteTask)
		})
	})
	return r
}

func (h *Handler) listTasks(w http.ResponseWriter, r *http.Request) {
	tasks, err := h.svc.List(r.Context())
	if err != nil {
		h.handleError(w, err, "fetch tasks")
		return
	}
	if tasks == nil {
		tasks = []model.Task{}
	}
	writeJSON(w, http.StatusOK, tasks)
}

func (h *Handler) createTask(w http.ResponseWriter, r *http.Request) {
	var req service.CreateTaskRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	task, err := h.svc.Create(r.Context(), req)
	if err != nil {
		h.handleError(w, err, "create task")
		return
	}
	writeJSON(w, http.StatusCreated, task)
}

func (h *Handler) getTask(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r)
	if !ok {
		return
	}
	task, err := h.svc.Get(r.Context(), id)
	if err != nil {
		h.handleError(w, err, "fetch task")
		return
	}
	writeJSON(w, http.StatusOK, task)
}

func (h *Handler) updateTask(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r)
	if !ok {
		return
	}
	var req service.UpdateTaskRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	task, err := h.svc.Update(r.Context(), id, req)
	if err != nil {
		h.handleError(w, err, "update task")
		return
	}
	writeJSON(w, http.StatusOK, task)
}

func (h *Handler) deleteTask(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r)
	if !ok {
		return
	}
	if err := h.svc.Delete(r.Context(), id); err != nil {
		h.handleError(w, err, "delete task")
		return
	}
	writeJSON(w, http.StatusOK, MessageResponse{Message: "Task deleted successfully"})
}

func (h *Handler) getProgress(w http.ResponseWriter, r *http.Request) {
	report, err := h.svc.Progress(r.Context())
	if err != nil {
		h.handleError(w, err, "compute progress")
		return
	}
	writeJSON(w, http.StatusOK, report)
}

func (h *Handler) health(w http.ResponseWriter, r *http.Request) {
	if h.ping != nil {
		if err := h.ping(r.Context()); err != nil {
			log.Printf("[error] health check: %v", err)
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// handleError maps service errors to status codes. Storage failures are
// logged in full and answered with a generic message.
func (h *Handler) handleError(w http.ResponseWriter, err error, action string) {
	var verr *service.ValidationError
	switch {
	case errors.Is(err, context.Canceled):
		log.Printf("[warn] %s: client closed request", action)
		writeJSON(w, statusClientClosedRequest, ErrorResponse{Message: "Request canceled"})
	case errors.Is(err, context.DeadlineExceeded):
		writeJSON(w, http.StatusRequestTimeout, ErrorResponse{Message: "Request timeout"})
	case errors.As(err, &verr):
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Message: "Invalid task data", Errors: verr.Fields})
	case errors.Is(err, repository.ErrNotFound):
		writeJSON(w, http.StatusNotFound, ErrorResponse{Message: "Task not found"})
	case errors.Is(err, repository.ErrVersionConflict):
		writeJSON(w, http.StatusConflict, ErrorResponse{Message: "Task was modified by another request"})
	default:
		log.Printf("[error] %s: %v", action, err)
		writeJSON(w, http.StatusInternalServerError, ErrorResponse{Message: "Failed to " + action})
	}
}

func parseID(w http.ResponseWriter, r *http.Request) (uint, bool) {
	id, err := strconv.ParseUint(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id == 0 {
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Message: "Invalid ID"})
		return 0, false
	}
	return uint(id), true
}

// decodeJSON reads exactly one JSON object into dst and rejects unknown
// fields. On failure the 400 reply has already been written.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()

	err := dec.Decode(dst)
	if err == nil {
		if dec.More() {
			err = errors.New("unexpected data after JSON object")
		} else if _, extra := dec.Token(); extra != io.EOF {
			err = errors.New("unexpected data after JSON object")
		}
	}
	if err == nil {
		return true
	}

	resp := ErrorResponse{Message: "Invalid JSON"}
	var typeErr *json.UnmarshalTypeError
	switch {
	case errors.As(err, &typeErr) && typeErr.Field != "":
		resp.Errors = []service.FieldError{{Field: typeErr.Field, Message: fmt.Sprintf("Expected %s.", typeErr.Type.Kind())}}
	case strings.HasPrefix(err.Error(), "json: unknown field "):
		field := strings.Trim(strings.TrimPrefix(err.Error(), "json: unknown field "), `"`)
		resp.Errors = []service.FieldError{{Field: field, Message: "Unknown field."}}
	}
	writeJSON(w, http.StatusBadRequest, resp)
	return false
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("[warn] encode response: %v", err)
	}
}
