package service

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/danmermels/momentum-spark-app/internal/model"
	"github.com/danmermels/momentum-spark-app/internal/progress"
	"github.com/danmermels/momentum-spark-app/internal/repository"
)

// CreateTaskRequest is the body accepted when creating a task. Server-managed
// fields are accepted and ignored.
type CreateTaskRequest struct {
	Title       string            `json:"title" validate:"required,max=100"`
	Description *string           `json:"description" validate:"omitnil,max=500"`
	Weight      *int              `json:"weight" validate:"required,min=1,max=10"`
	DueDate     string            `json:"dueDate" validate:"required,isodate"`
	IsCompleted bool              `json:"isCompleted"`
	IsRecurring bool              `json:"isRecurring"`
	MessageType model.MessageType `json:"messageType" validate:"omitempty,oneof=text audio"`

	ID          json.RawMessage `json:"id,omitempty" validate:"-"`
	CreatedAt   json.RawMessage `json:"createdAt,omitempty" validate:"-"`
	UpdatedAt   json.RawMessage `json:"updatedAt,omitempty" validate:"-"`
	CompletedAt json.RawMessage `json:"completedAt,omitempty" validate:"-"`
	Version     json.RawMessage `json:"version,omitempty" validate:"-"`
}

// UpdateTaskRequest carries a partial update. Nil fields are left unchanged.
// Version, when set, must match the stored row.
type UpdateTaskRequest struct {
	Title       *string            `json:"title,omitempty" validate:"omitnil,min=1,max=100"`
	Description *string            `json:"description,omitempty" validate:"omitnil,max=500"`
	Weight      *int               `json:"weight,omitempty" validate:"omitnil,min=1,max=10"`
	DueDate     *string            `json:"dueDate,omitempty" validate:"omitnil,isodate"`
	IsCompleted *bool              `json:"isCompleted,omitempty"`
	IsRecurring *bool              `json:"isRecurring,omitempty"`
	MessageType *model.MessageType `json:"messageType,omitempty" validate:"omitnil,oneof=text audio"`
	Version     *int               `json:"version,omitempty" validate:"omitnil,min=1"`

	ID          json.RawMessage `json:"id,omitempty" validate:"-"`
	CreatedAt   json.RawMessage `json:"createdAt,omitempty" validate:"-"`
	UpdatedAt   json.RawMessage `json:"updatedAt,omitempty" validate:"-"`
	CompletedAt json.RawMessage `json:"completedAt,omitempty" validate:"-"`
}

// CompletionListener is told when a one-time task becomes completed.
type CompletionListener interface {
	TaskCompleted(ctx context.Context, task model.Task)
}

// TaskService wraps task-related business logic.
type TaskService struct {
	taskRepo *repository.TaskRepository
	listener CompletionListener
	loc      *time.Location
	now      func() time.Time
}

func NewTaskService(taskRepo *repository.TaskRepository, listener CompletionListener, loc *time.Location) *TaskService {
	if loc == nil {
		loc = time.Local
	}
	return &TaskService{taskRepo: taskRepo, listener: listener, loc: loc, now: time.Now}
}

// WithClock replaces the time source used for completion stamps and progress.
func (s *TaskService) WithClock(now func() time.Time) *TaskService {
	s.now = now
	return s
}

// List returns every task. Recurring tasks completed on an earlier day come
// back pending.
func (s *TaskService) List(ctx context.Context) ([]model.Task, error) {
	return s.taskRepo.List(ctx)
}

func (s *TaskService) Get(ctx context.Context, id uint) (*model.Task, error) {
	return s.taskRepo.Get(ctx, id)
}

func (s *TaskService) Create(ctx context.Context, req CreateTaskRequest) (*model.Task, error) {
	req.Title = strings.TrimSpace(req.Title)
	if err := validateStruct(req); err != nil {
		return nil, err
	}
	due, err := model.NormalizeDueDate(req.DueDate, s.loc)
	if err != nil {
		return nil, &ValidationError{Fields: []FieldError{{Field: "dueDate", Message: "Invalid due date."}}}
	}

	task := model.Task{
		Title:       req.Title,
		Description: req.Description,
		Weight:      *req.Weight,
		DueDate:     due,
		IsCompleted: model.Flag(req.IsCompleted),
		IsRecurring: model.Flag(req.IsRecurring),
		MessageType: req.MessageType,
	}
	if task.MessageType == "" {
		task.MessageType = model.MessageText
	}
	if req.IsCompleted {
		done := s.now().UTC()
		task.CompletedAt = &done
	}

	created, err := s.taskRepo.Create(ctx, &task)
	if err != nil {
		return nil, err
	}
	log.Printf("[info] task %d created", created.ID)
	return created, nil
}

// Update applies a partial update. Completing a pending task stamps
// completedAt; reopening clears it.
func (s *TaskService) Update(ctx context.Context, id uint, req UpdateTaskRequest) (*model.Task, error) {
	if req.Title != nil {
		title := strings.TrimSpace(*req.Title)
		req.Title = &title
	}
	if err := validateStruct(req); err != nil {
		return nil, err
	}
	existing, err := s.taskRepo.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	changes, err := s.changes(req, existing)
	if err != nil {
		return nil, err
	}
	updated, err := s.taskRepo.Update(ctx, id, changes, req.Version)
	if err != nil {
		return nil, err
	}

	completedNow := req.IsCompleted != nil && *req.IsCompleted && !bool(existing.IsCompleted)
	if completedNow && !bool(updated.IsRecurring) && s.listener != nil {
		s.listener.TaskCompleted(ctx, *updated)
	}
	return updated, nil
}

// SetCompleted is the toggle shortcut used by the bot.
func (s *TaskService) SetCompleted(ctx context.Context, id uint, completed bool) (*model.Task, error) {
	return s.Update(ctx, id, UpdateTaskRequest{IsCompleted: &completed})
}

func (s *TaskService) Delete(ctx context.Context, id uint) error {
	if err := s.taskRepo.Delete(ctx, id); err != nil {
		return err
	}
	log.Printf("[info] task %d deleted", id)
	return nil
}

// ResetRecurring clears yesterday's completions of recurring tasks.
func (s *TaskService) ResetRecurring(ctx context.Context) (int, error) {
	return s.taskRepo.ResetRecurring(ctx)
}

// Progress summarizes the current collection for the dashboard.
func (s *TaskService) Progress(ctx context.Context) (progress.Report, error) {
	tasks, err := s.taskRepo.List(ctx)
	if err != nil {
		return progress.Report{}, err
	}
	return progress.Summarize(tasks, s.now().In(s.loc)), nil
}

func (s *TaskService) changes(req UpdateTaskRequest, existing *model.Task) (map[string]any, error) {
	changes := make(map[string]any)
	if req.Title != nil {
		changes["title"] = *req.Title
	}
	if req.Description != nil {
		changes["description"] = *req.Description
	}
	if req.Weight != nil {
		changes["weight"] = *req.Weight
	}
	if req.DueDate != nil {
		due, err := model.NormalizeDueDate(*req.DueDate, s.loc)
		if err != nil {
			return nil, &ValidationError{Fields: []FieldError{{Field: "dueDate", Message: "Invalid due date."}}}
		}
		changes["dueDate"] = due
	}
	if req.IsCompleted != nil {
		completed := *req.IsCompleted
		changes["isCompleted"] = model.Flag(completed)
		switch {
		case completed && !bool(existing.IsCompleted):
			changes["completedAt"] = s.now().UTC()
		case !completed:
			changes["completedAt"] = nil
		}
	}
	if req.IsRecurring != nil {
		changes["isRecurring"] = model.Flag(*req.IsRecurring)
	}
	if req.MessageType != nil {
		changes["messageType"] = string(*req.MessageType)
	}
	return changes, nil
}

// describe is used in log lines and notifications.
func describe(task model.Task) string {
	return fmt.Sprintf("#%d %s", task.ID, task.Title)
}
