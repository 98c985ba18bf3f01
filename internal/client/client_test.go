package client

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/danmermels/momentum-spark-app/internal/api"
	"github.com/danmermels/momentum-spark-app/internal/repository"
	"github.com/danmermels/momentum-spark-app/internal/service"
)

func newServer(t *testing.T) *Client {
	t.Helper()
	db, err := repository.NewDB(filepath.Join(t.TempDir(), "client.sqlite"))
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	t.Cleanup(func() { _ = repository.Close(db) })

	svc := service.NewTaskService(repository.NewTaskRepository(db), nil, time.UTC)
	srv := httptest.NewServer(api.NewHandler(svc, 5*time.Second).Router())
	t.Cleanup(srv.Close)
	return New(srv.URL+"/", srv.Client())
}

func TestClientRoundTrip(t *testing.T) {
	c := newServer(t)
	ctx := context.Background()

	tasks, err := c.ListTasks(ctx)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(tasks) != 5 {
		t.Fatalf("expected seeded tasks, got %d", len(tasks))
	}

	weight := 7
	created, err := c.CreateTask(ctx, service.CreateTaskRequest{
		Title:   "Write report",
		Weight:  &weight,
		DueDate: time.Now().AddDate(0, 0, 3).Format(time.DateOnly),
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if created.ID == 0 || created.Weight != 7 || created.Version != 1 {
		t.Fatalf("unexpected created task %#v", created)
	}

	done := true
	version := created.Version
	updated, err := c.UpdateTask(ctx, created.ID, service.UpdateTaskRequest{IsCompleted: &done, Version: &version})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if !updated.IsCompleted || updated.CompletedAt == nil {
		t.Fatalf("task not completed: %#v", updated)
	}

	_, err = c.UpdateTask(ctx, created.ID, service.UpdateTaskRequest{IsCompleted: &done, Version: &version})
	var apiErr *APIError
	if !errors.As(err, &apiErr) || apiErr.Status != http.StatusConflict {
		t.Fatalf("expected 409 for stale version, got %v", err)
	}

	report, err := c.Progress(ctx)
	if err != nil {
		t.Fatalf("progress: %v", err)
	}
	if report.CompletedThisMonth < 1 {
		t.Fatalf("completed task missing from report: %#v", report)
	}

	if err := c.DeleteTask(ctx, created.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := c.GetTask(ctx, created.ID); !IsNotFound(err) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestClientValidationError(t *testing.T) {
	c := newServer(t)
	weight := 11
	_, err := c.CreateTask(context.Background(), service.CreateTaskRequest{Title: "x", Weight: &weight, DueDate: "soon"})

	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("expected APIError, got %v", err)
	}
	if apiErr.Status != http.StatusBadRequest || apiErr.Message != "Invalid task data" {
		t.Fatalf("unexpected error %#v", apiErr)
	}
	if len(apiErr.Fields) != 2 {
		t.Fatalf("expected weight and dueDate errors, got %#v", apiErr.Fields)
	}
}

func TestStoreAgainstServer(t *testing.T) {
	c := newServer(t)
	store := NewStore(c, nil)
	ctx := context.Background()

	if err := store.Load(ctx); err != nil {
		t.Fatalf("load: %v", err)
	}
	tasks := store.Tasks()
	if len(tasks) == 0 {
		t.Fatalf("store is empty")
	}
	id := tasks[0].ID
	before := tasks[0].IsCompleted

	toggled, err := store.Toggle(ctx, id)
	if err != nil {
		t.Fatalf("toggle: %v", err)
	}
	if toggled.IsCompleted == before {
		t.Fatalf("toggle did not flip the task")
	}
	remote, err := c.GetTask(ctx, id)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if remote.IsCompleted != toggled.IsCompleted || remote.Version != toggled.Version {
		t.Fatalf("server and store disagree: %#v vs %#v", remote, toggled)
	}
}
