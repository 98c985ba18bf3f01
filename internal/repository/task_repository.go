package repository

import (
	"context"
	"errors"
	"fmt"
	"log"
	"maps"
	"time"

	"gorm.io/gorm"

	"github.com/danmermels/momentum-spark-app/internal/model"
)

var (
	// ErrNotFound is returned when no task has the requested id.
	ErrNotFound = errors.New("task not found")
	// ErrVersionConflict is returned when a write carries a stale version.
	ErrVersionConflict = errors.New("task version conflict")
	// ErrInconsistent is returned when a row written a moment ago cannot be read back.
	ErrInconsistent = errors.New("task missing after write")
)

// TaskRepository handles CRUD for tasks.
type TaskRepository struct {
	db  *gorm.DB
	now func() time.Time
}

func NewTaskRepository(db *gorm.DB) *TaskRepository {
	return &TaskRepository{db: db, now: time.Now}
}

// WithClock replaces the time source used for timestamps.
func (r *TaskRepository) WithClock(now func() time.Time) *TaskRepository {
	r.now = now
	return r
}

// List returns every task ordered by due date. An empty table is seeded with
// the example tasks first, and recurring tasks completed on an earlier day are
// reset, all inside one transaction.
func (r *TaskRepository) List(ctx context.Context) ([]model.Task, error) {
	now := r.now()
	var tasks []model.Task
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var count int64
		if err := tx.Model(&model.Task{}).Count(&count).Error; err != nil {
			return fmt.Errorf("count tasks: %w", err)
		}
		if count == 0 {
			seeds := seedTasks(now)
			for i := range seeds {
				if err := tx.Create(&seeds[i]).Error; err != nil {
					return fmt.Errorf("seed tasks: %w", err)
				}
			}
			log.Printf("[info] seeded %d default tasks", len(seeds))
		}

		reset, err := resetRecurring(tx, now)
		if err != nil {
			return err
		}
		if reset > 0 {
			log.Printf("[info] reset %d recurring tasks on list", reset)
		}

		return ordered(tx).Find(&tasks).Error
	})
	if err != nil {
		return nil, fmt.Errorf("list tasks: %w", err)
	}
	return tasks, nil
}

// Find returns every task ordered by due date without side effects.
func (r *TaskRepository) Find(ctx context.Context) ([]model.Task, error) {
	var tasks []model.Task
	if err := ordered(r.db.WithContext(ctx)).Find(&tasks).Error; err != nil {
		return nil, fmt.Errorf("find tasks: %w", err)
	}
	return tasks, nil
}

func (r *TaskRepository) Get(ctx context.Context, id uint) (*model.Task, error) {
	var task model.Task
	err := r.db.WithContext(ctx).First(&task, id).Error
	switch {
	case err == nil:
		return &task, nil
	case errors.Is(err, gorm.ErrRecordNotFound):
		return nil, ErrNotFound
	default:
		return nil, fmt.Errorf("get task: %w", err)
	}
}

// Create inserts task and returns the stored row.
func (r *TaskRepository) Create(ctx context.Context, task *model.Task) (*model.Task, error) {
	if err := r.db.WithContext(ctx).Create(task).Error; err != nil {
		return nil, fmt.Errorf("create task: %w", err)
	}
	return r.reread(ctx, task.ID)
}

// Update writes the given columns. An empty change set returns the current
// row without touching storage. When expectedVersion is set the write only
// applies to that version.
func (r *TaskRepository) Update(ctx context.Context, id uint, changes map[string]any, expectedVersion *int) (*model.Task, error) {
	existing, err := r.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if expectedVersion != nil && *expectedVersion != existing.Version {
		return nil, ErrVersionConflict
	}
	if len(changes) == 0 {
		return existing, nil
	}

	cols := maps.Clone(changes)
	cols["updatedAt"] = r.now().UTC()
	cols["version"] = gorm.Expr("version + 1")

	q := r.db.WithContext(ctx).Model(&model.Task{}).Where("id = ?", id)
	if expectedVersion != nil {
		q = q.Where("version = ?", *expectedVersion)
	}
	res := q.Updates(cols)
	if res.Error != nil {
		return nil, fmt.Errorf("update task: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		if expectedVersion != nil {
			return nil, ErrVersionConflict
		}
		return nil, ErrNotFound
	}
	return r.reread(ctx, id)
}

func (r *TaskRepository) Delete(ctx context.Context, id uint) error {
	res := r.db.WithContext(ctx).Delete(&model.Task{}, id)
	if res.Error != nil {
		return fmt.Errorf("delete task: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// ResetRecurring marks pending every recurring task completed before today.
func (r *TaskRepository) ResetRecurring(ctx context.Context) (int, error) {
	var reset int
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		reset, err = resetRecurring(tx, r.now())
		return err
	})
	return reset, err
}

func (r *TaskRepository) Count(ctx context.Context) (int64, error) {
	var count int64
	if err := r.db.WithContext(ctx).Model(&model.Task{}).Count(&count).Error; err != nil {
		return 0, fmt.Errorf("count tasks: %w", err)
	}
	return count, nil
}

func (r *TaskRepository) reread(ctx context.Context, id uint) (*model.Task, error) {
	task, err := r.Get(ctx, id)
	if errors.Is(err, ErrNotFound) {
		return nil, fmt.Errorf("%w: id %d", ErrInconsistent, id)
	}
	return task, err
}

func ordered(db *gorm.DB) *gorm.DB {
	return db.Order("dueDate ASC").Order("id ASC")
}

func resetRecurring(tx *gorm.DB, now time.Time) (int, error) {
	var done []model.Task
	if err := tx.Where("isRecurring = ? AND isCompleted = ?", model.Flag(true), model.Flag(true)).Find(&done).Error; err != nil {
		return 0, fmt.Errorf("find recurring tasks: %w", err)
	}

	var ids []uint
	for _, task := range done {
		if task.NeedsDailyReset(now) {
			ids = append(ids, task.ID)
		}
	}
	if len(ids) == 0 {
		return 0, nil
	}

	res := tx.Model(&model.Task{}).Where("id IN ?", ids).Updates(map[string]any{
		"isCompleted": model.Flag(false),
		"completedAt": nil,
		"updatedAt":   now.UTC(),
		"version":     gorm.Expr("version + 1"),
	})
	if res.Error != nil {
		return 0, fmt.Errorf("reset recurring tasks: %w", res.Error)
	}
	return int(res.RowsAffected), nil
}
