package client

import (
	"context"
	"errors"
	"fmt"
	"log"
	"slices"
	"sync"
	"time"

	"github.com/danmermels/momentum-spark-app/internal/model"
	"github.com/danmermels/momentum-spark-app/internal/service"
)

// ErrUnknownTask is returned for ids the store has not loaded.
var ErrUnknownTask = errors.New("task not in local collection")

// API is the remote side of the store.
type API interface {
	ListTasks(ctx context.Context) ([]model.Task, error)
	CreateTask(ctx context.Context, req service.CreateTaskRequest) (*model.Task, error)
	UpdateTask(ctx context.Context, id uint, req service.UpdateTaskRequest) (*model.Task, error)
	DeleteTask(ctx context.Context, id uint) error
}

// Reporter shows a short-lived message to the user.
type Reporter interface {
	Report(title, message string)
}

// ReporterFunc adapts a function to Reporter.
type ReporterFunc func(title, message string)

func (f ReporterFunc) Report(title, message string) { f(title, message) }

// Store owns the in-memory task collection of one session. Reads return
// copies; writes go through the API.
type Store struct {
	api      API
	reporter Reporter
	now      func() time.Time

	mu    sync.RWMutex
	tasks []model.Task

	locksMu sync.Mutex
	locks   map[uint]*sync.Mutex
}

func NewStore(api API, reporter Reporter) *Store {
	if reporter == nil {
		reporter = ReporterFunc(func(title, message string) {
			log.Printf("[warn] %s: %s", title, message)
		})
	}
	return &Store{api: api, reporter: reporter, now: time.Now, locks: make(map[uint]*sync.Mutex)}
}

// WithClock replaces the time source that decides what "today" is.
func (s *Store) WithClock(now func() time.Time) *Store {
	s.now = now
	return s
}

// Tasks returns a copy of the collection.
func (s *Store) Tasks() []model.Task {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.tasks)
}

// Get returns the task with id from the local collection.
func (s *Store) Get(id uint) (model.Task, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	i := indexOf(s.tasks, id)
	if i < 0 {
		return model.Task{}, false
	}
	return s.tasks[i], true
}

// Load fetches the collection. Recurring tasks completed on an earlier day
// are reset concurrently; failed resets are reported and skipped. If any
// reset went through the list is fetched once more.
func (s *Store) Load(ctx context.Context) error {
	tasks, err := s.api.ListTasks(ctx)
	if err != nil {
		s.reporter.Report("Error", fmt.Sprintf("Could not fetch tasks: %v", err))
		return err
	}

	now := s.now()
	var stale []model.Task
	for _, t := range tasks {
		if t.NeedsDailyReset(now) {
			stale = append(stale, t)
		}
	}

	if len(stale) > 0 {
		var (
			wg    sync.WaitGroup
			mu    sync.Mutex
			reset int
		)
		pending := false
		for _, t := range stale {
			wg.Add(1)
			go func(t model.Task) {
				defer wg.Done()
				version := t.Version
				_, err := s.api.UpdateTask(ctx, t.ID, service.UpdateTaskRequest{IsCompleted: &pending, Version: &version})
				if err != nil {
					log.Printf("[warn] reset recurring task %d: %v", t.ID, err)
					return
				}
				mu.Lock()
				reset++
				mu.Unlock()
			}(t)
		}
		wg.Wait()

		if reset > 0 {
			refreshed, err := s.api.ListTasks(ctx)
			if err != nil {
				s.reporter.Report("Error", fmt.Sprintf("Could not refresh tasks: %v", err))
				return err
			}
			tasks = refreshed
		}
	}

	s.mu.Lock()
	s.tasks = tasks
	s.mu.Unlock()
	return nil
}

// Toggle flips the completion flag locally right away and then asks the
// server. If the server refuses, the whole collection goes back to how it
// was before the toggle. Toggles of one task run one at a time.
func (s *Store) Toggle(ctx context.Context, id uint) (*model.Task, error) {
	lock := s.taskLock(id)
	lock.Lock()
	defer lock.Unlock()

	s.mu.Lock()
	i := indexOf(s.tasks, id)
	if i < 0 {
		s.mu.Unlock()
		return nil, ErrUnknownTask
	}
	snapshot := slices.Clone(s.tasks)
	current := s.tasks[i]
	completed := !bool(current.IsCompleted)
	now := s.now().UTC()

	optimistic := current
	optimistic.IsCompleted = model.Flag(completed)
	optimistic.UpdatedAt = now
	if completed {
		optimistic.CompletedAt = &now
	} else {
		optimistic.CompletedAt = nil
	}
	s.tasks[i] = optimistic
	s.mu.Unlock()

	version := current.Version
	updated, err := s.api.UpdateTask(ctx, id, service.UpdateTaskRequest{IsCompleted: &completed, Version: &version})
	if err != nil {
		s.mu.Lock()
		s.tasks = snapshot
		s.mu.Unlock()
		s.reporter.Report("Error", fmt.Sprintf("Could not update task: %v", err))
		return nil, err
	}

	s.replace(*updated)
	return updated, nil
}

// Create adds a task once the server has stored it.
func (s *Store) Create(ctx context.Context, req service.CreateTaskRequest) (*model.Task, error) {
	created, err := s.api.CreateTask(ctx, req)
	if err != nil {
		s.reporter.Report("Error", fmt.Sprintf("Could not create task: %v", err))
		return nil, err
	}
	s.mu.Lock()
	s.tasks = append(s.tasks, *created)
	s.mu.Unlock()
	return created, nil
}

// Update replaces a task once the server has accepted the change.
func (s *Store) Update(ctx context.Context, id uint, req service.UpdateTaskRequest) (*model.Task, error) {
	updated, err := s.api.UpdateTask(ctx, id, req)
	if err != nil {
		s.reporter.Report("Error", fmt.Sprintf("Could not update task: %v", err))
		return nil, err
	}
	s.replace(*updated)
	return updated, nil
}

// Delete removes a task once the server has deleted it.
func (s *Store) Delete(ctx context.Context, id uint) error {
	if err := s.api.DeleteTask(ctx, id); err != nil {
		s.reporter.Report("Error", fmt.Sprintf("Could not delete task: %v", err))
		return err
	}
	s.mu.Lock()
	s.tasks = slices.DeleteFunc(s.tasks, func(t model.Task) bool { return t.ID == id })
	s.mu.Unlock()

	s.locksMu.Lock()
	delete(s.locks, id)
	s.locksMu.Unlock()
	return nil
}

func (s *Store) replace(task model.Task) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if i := indexOf(s.tasks, task.ID); i >= 0 {
		s.tasks[i] = task
		return
	}
	s.tasks = append(s.tasks, task)
}

func (s *Store) taskLock(id uint) *sync.Mutex {
	s.locksMu.Lock()
	defer s.locksMu.Unlock()
	lock, ok := s.locks[id]
	if !ok {
		lock = &sync.Mutex{}
		s.locks[id] = lock
	}
	return lock
}

func indexOf(tasks []model.Task, id uint) int {
	return slices.IndexFunc(tasks, func(t model.Task) bool { return t.ID == id })
}
