package client

import (
	"context"
	"errors"
	"slices"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/danmermels/momentum-spark-app/internal/model"
	"github.com/danmermels/momentum-spark-app/internal/progress"
	"github.com/danmermels/momentum-spark-app/internal/service"
)

var today = time.Date(2026, 10, 16, 10, 0, 0, 0, time.UTC)

// fakeAPI keeps tasks in memory. failUpdate, when set, decides per call
// whether an update is refused.
type fakeAPI struct {
	mu         sync.Mutex
	tasks      []model.Task
	lists      int
	updates    map[uint]int
	failUpdate func(id uint) error
	failCreate error
	failDelete error
	onUpdate   func(id uint)
	inFlight   atomic.Int32
	maxFlight  atomic.Int32
}

func newFakeAPI(tasks ...model.Task) *fakeAPI {
	return &fakeAPI{tasks: tasks, updates: make(map[uint]int)}
}

func (f *fakeAPI) ListTasks(context.Context) ([]model.Task, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.lists++
	return slices.Clone(f.tasks), nil
}

func (f *fakeAPI) CreateTask(_ context.Context, req service.CreateTaskRequest) (*model.Task, error) {
	if f.failCreate != nil {
		return nil, f.failCreate
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	task := model.Task{ID: uint(len(f.tasks) + 100), Title: req.Title, Weight: *req.Weight, DueDate: req.DueDate, Version: 1}
	f.tasks = append(f.tasks, task)
	return &task, nil
}

func (f *fakeAPI) UpdateTask(_ context.Context, id uint, req service.UpdateTaskRequest) (*model.Task, error) {
	n := f.inFlight.Add(1)
	defer f.inFlight.Add(-1)
	for {
		peak := f.maxFlight.Load()
		if n <= peak || f.maxFlight.CompareAndSwap(peak, n) {
			break
		}
	}
	if f.onUpdate != nil {
		f.onUpdate(id)
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	f.updates[id]++
	if f.failUpdate != nil {
		if err := f.failUpdate(id); err != nil {
			return nil, err
		}
	}
	i := indexOf(f.tasks, id)
	if i < 0 {
		return nil, &APIError{Status: 404, Message: "Task not found"}
	}
	task := f.tasks[i]
	if req.Version != nil && *req.Version != task.Version {
		return nil, &APIError{Status: 409, Message: "Task was modified by another request"}
	}
	if req.IsCompleted != nil {
		task.IsCompleted = model.Flag(*req.IsCompleted)
		if *req.IsCompleted {
			done := today
			task.CompletedAt = &done
		} else {
			task.CompletedAt = nil
		}
	}
	if req.Title != nil {
		task.Title = *req.Title
	}
	task.Version++
	f.tasks[i] = task
	return &task, nil
}

func (f *fakeAPI) DeleteTask(_ context.Context, id uint) error {
	if f.failDelete != nil {
		return f.failDelete
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.tasks = slices.DeleteFunc(f.tasks, func(t model.Task) bool { return t.ID == id })
	return nil
}

type reports struct {
	mu   sync.Mutex
	msgs []string
}

func (r *reports) Report(title, message string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.msgs = append(r.msgs, title+": "+message)
}

func (r *reports) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.msgs)
}

func completedOn(id uint, day time.Time, recurring bool, weight int) model.Task {
	done := day
	return model.Task{
		ID:          id,
		Title:       "task",
		Weight:      weight,
		DueDate:     model.FormatDueDate(day),
		IsCompleted: true,
		IsRecurring: model.Flag(recurring),
		CompletedAt: &done,
		UpdatedAt:   day,
		Version:     1,
	}
}

func pendingTask(id uint, weight int) model.Task {
	return model.Task{ID: id, Title: "task", Weight: weight, DueDate: model.FormatDueDate(today), Version: 1}
}

func TestLoadResetsYesterdaysRecurringOnce(t *testing.T) {
	yesterday := today.AddDate(0, 0, -1)
	api := newFakeAPI(
		completedOn(1, yesterday, true, 3),
		completedOn(2, today, true, 2),
		completedOn(3, yesterday, false, 5),
	)
	store := NewStore(api, &reports{}).WithClock(func() time.Time { return today })

	if err := store.Load(context.Background()); err != nil {
		t.Fatalf("load: %v", err)
	}
	if api.updates[1] != 1 {
		t.Fatalf("expected exactly one reset for task 1, got %d", api.updates[1])
	}
	if api.updates[2] != 0 || api.updates[3] != 0 {
		t.Fatalf("only stale recurring tasks may be reset: %v", api.updates)
	}
	if api.lists != 2 {
		t.Fatalf("expected one refetch after reset, got %d lists", api.lists)
	}
	task, _ := store.Get(1)
	if task.IsCompleted {
		t.Fatalf("task 1 should be pending after load")
	}
	if other, _ := store.Get(3); !other.IsCompleted {
		t.Fatalf("one-time task must stay completed")
	}
}

func TestLoadToleratesPartialResetFailure(t *testing.T) {
	yesterday := today.AddDate(0, 0, -1)
	api := newFakeAPI(completedOn(1, yesterday, true, 3), completedOn(2, yesterday, true, 2))
	api.failUpdate = func(id uint) error {
		if id == 2 {
			return errors.New("connection reset")
		}
		return nil
	}
	rep := &reports{}
	store := NewStore(api, rep).WithClock(func() time.Time { return today })

	if err := store.Load(context.Background()); err != nil {
		t.Fatalf("load must tolerate a failed reset: %v", err)
	}
	if api.lists != 2 {
		t.Fatalf("expected a refetch, got %d lists", api.lists)
	}
	first, _ := store.Get(1)
	second, _ := store.Get(2)
	if first.IsCompleted || !second.IsCompleted {
		t.Fatalf("unexpected state after partial reset: %v %v", first.IsCompleted, second.IsCompleted)
	}
	if rep.count() != 0 {
		t.Fatalf("reset failures are logged, not reported")
	}
}

func TestLoadSkipsRefetchWhenNoResetSucceeded(t *testing.T) {
	api := newFakeAPI(completedOn(1, today.AddDate(0, 0, -2), true, 3))
	api.failUpdate = func(uint) error { return errors.New("offline") }
	store := NewStore(api, nil).WithClock(func() time.Time { return today })

	if err := store.Load(context.Background()); err != nil {
		t.Fatalf("load: %v", err)
	}
	if api.lists != 1 {
		t.Fatalf("no refetch expected, got %d lists", api.lists)
	}
}

func TestToggleOptimisticThenConfirmed(t *testing.T) {
	api := newFakeAPI(pendingTask(1, 4), pendingTask(2, 6))
	store := NewStore(api, nil).WithClock(func() time.Time { return today })
	if err := store.Load(context.Background()); err != nil {
		t.Fatalf("load: %v", err)
	}

	api.onUpdate = func(id uint) {
		if task, _ := store.Get(id); !task.IsCompleted {
			t.Errorf("optimistic flip not visible while the request runs")
		}
	}
	updated, err := store.Toggle(context.Background(), 1)
	if err != nil {
		t.Fatalf("toggle: %v", err)
	}
	if !updated.IsCompleted || updated.Version != 2 {
		t.Fatalf("unexpected server task %#v", updated)
	}
	if local, _ := store.Get(1); local.Version != 2 {
		t.Fatalf("local copy must take the server version, got %d", local.Version)
	}
}

func TestToggleFailureRollsBackCollection(t *testing.T) {
	api := newFakeAPI(pendingTask(1, 4), completedOn(2, today, false, 6))
	rep := &reports{}
	store := NewStore(api, rep).WithClock(func() time.Time { return today })
	if err := store.Load(context.Background()); err != nil {
		t.Fatalf("load: %v", err)
	}
	before := store.Tasks()

	api.failUpdate = func(uint) error { return errors.New("boom") }
	if _, err := store.Toggle(context.Background(), 1); err == nil {
		t.Fatalf("expected toggle error")
	}
	after := store.Tasks()
	if len(after) != len(before) {
		t.Fatalf("collection size changed")
	}
	for i := range before {
		if after[i].ID != before[i].ID || after[i].IsCompleted != before[i].IsCompleted || after[i].Version != before[i].Version {
			t.Fatalf("rollback incomplete at %d: %#v vs %#v", i, after[i], before[i])
		}
	}
	if rep.count() != 1 {
		t.Fatalf("expected one report, got %d", rep.count())
	}

	if _, err := store.Toggle(context.Background(), 99); !errors.Is(err, ErrUnknownTask) {
		t.Fatalf("expected ErrUnknownTask, got %v", err)
	}
}

func TestToggleRoundTripKeepsAggregates(t *testing.T) {
	api := newFakeAPI(pendingTask(1, 4), completedOn(2, today, false, 6), pendingTask(3, 1))
	store := NewStore(api, nil).WithClock(func() time.Time { return today })
	if err := store.Load(context.Background()); err != nil {
		t.Fatalf("load: %v", err)
	}
	start := progress.WeightedCompletion(store.Tasks())

	if _, err := store.Toggle(context.Background(), 1); err != nil {
		t.Fatalf("toggle on: %v", err)
	}
	if got := progress.WeightedCompletion(store.Tasks()); got == start {
		t.Fatalf("completion should change after toggle")
	}
	if _, err := store.Toggle(context.Background(), 1); err != nil {
		t.Fatalf("toggle off: %v", err)
	}
	if got := progress.WeightedCompletion(store.Tasks()); got != start {
		t.Fatalf("round trip changed aggregate: %v != %v", got, start)
	}
}

func TestTogglesOfOneTaskAreSerialized(t *testing.T) {
	api := newFakeAPI(pendingTask(1, 4))
	api.onUpdate = func(uint) { time.Sleep(5 * time.Millisecond) }
	store := NewStore(api, nil).WithClock(func() time.Time { return today })
	if err := store.Load(context.Background()); err != nil {
		t.Fatalf("load: %v", err)
	}

	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := store.Toggle(context.Background(), 1); err != nil {
				t.Errorf("toggle: %v", err)
			}
		}()
	}
	wg.Wait()

	if api.maxFlight.Load() != 1 {
		t.Fatalf("toggles overlapped: %d in flight", api.maxFlight.Load())
	}
	task, _ := store.Get(1)
	if task.IsCompleted || task.Version != 5 {
		t.Fatalf("four toggles should end pending at version 5, got %#v", task)
	}
}

func TestCreateUpdateDeleteAreNotOptimistic(t *testing.T) {
	api := newFakeAPI(pendingTask(1, 4))
	rep := &reports{}
	store := NewStore(api, rep).WithClock(func() time.Time { return today })
	ctx := context.Background()
	if err := store.Load(ctx); err != nil {
		t.Fatalf("load: %v", err)
	}

	weight := 2
	api.failCreate = errors.New("rejected")
	if _, err := store.Create(ctx, service.CreateTaskRequest{Title: "new", Weight: &weight, DueDate: "2026-10-20"}); err == nil {
		t.Fatalf("expected create error")
	}
	if len(store.Tasks()) != 1 {
		t.Fatalf("failed create must not change the collection")
	}
	api.failCreate = nil
	created, err := store.Create(ctx, service.CreateTaskRequest{Title: "new", Weight: &weight, DueDate: "2026-10-20"})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if len(store.Tasks()) != 2 {
		t.Fatalf("created task must be appended")
	}

	title := "renamed"
	if _, err := store.Update(ctx, created.ID, service.UpdateTaskRequest{Title: &title}); err != nil {
		t.Fatalf("update: %v", err)
	}
	if got, _ := store.Get(created.ID); got.Title != "renamed" {
		t.Fatalf("update not merged: %#v", got)
	}

	api.failDelete = errors.New("locked")
	if err := store.Delete(ctx, created.ID); err == nil {
		t.Fatalf("expected delete error")
	}
	if _, ok := store.Get(created.ID); !ok {
		t.Fatalf("failed delete must keep the task")
	}
	api.failDelete = nil
	if err := store.Delete(ctx, created.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, ok := store.Get(created.ID); ok {
		t.Fatalf("deleted task still present")
	}
	if rep.count() != 2 {
		t.Fatalf("expected two reports, got %d", rep.count())
	}
}
