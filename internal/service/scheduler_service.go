package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strconv"
	"strings"
	"time"

	"github.com/robfig/cron/v3"
)

// SchedulerService wraps cron-based jobs.
type SchedulerService struct {
	cron *cron.Cron
}

func NewSchedulerService(loc *time.Location) *SchedulerService {
	return &SchedulerService{
		cron: cron.New(cron.WithLocation(loc), cron.WithSeconds()),
	}
}

// ScheduleSpec registers a job for a six-field cron spec or a descriptor
// such as @midnight.
func (s *SchedulerService) ScheduleSpec(spec string, job func()) (cron.EntryID, error) {
	id, err := s.cron.AddFunc(spec, job)
	if err != nil {
		return 0, fmt.Errorf("schedule %q: %w", spec, err)
	}
	return id, nil
}

// ScheduleDaily registers a daily job at the given HH:MM time string.
func (s *SchedulerService) ScheduleDaily(timeStr string, job func()) (cron.EntryID, error) {
	spec, err := buildDailySpec(timeStr)
	if err != nil {
		return 0, err
	}
	return s.ScheduleSpec(spec, job)
}

// ScheduleInterval registers a periodic job every given duration.
func (s *SchedulerService) ScheduleInterval(interval time.Duration, job func()) (cron.EntryID, error) {
	if interval <= 0 {
		return 0, fmt.Errorf("interval must be positive")
	}
	seconds := int(interval.Seconds())
	if seconds <= 0 {
		seconds = 1
	}
	return s.ScheduleSpec(fmt.Sprintf("@every %ds", seconds), job)
}

// Entries reports how many jobs are registered.
func (s *SchedulerService) Entries() int {
	return len(s.cron.Entries())
}

func (s *SchedulerService) Start() {
	s.cron.Start()
}

// Stop halts the scheduler and waits for running jobs.
func (s *SchedulerService) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
}

// Schedule describes when the periodic jobs run. Empty or zero values leave
// a job out.
type Schedule struct {
	ResetSpec        string
	ReminderInterval time.Duration
	SummaryTime      string
	JobTimeout       time.Duration
}

// RegisterJobs wires the recurring reset, the due-soon sweep and the daily
// summary into s.
func (s *SchedulerService) RegisterJobs(sched Schedule, tasks *TaskService, reminders *ReminderService) error {
	timeout := sched.JobTimeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	run := func(name string, job func(ctx context.Context) error) func() {
		return func() {
			ctx, cancel := context.WithTimeout(context.Background(), timeout)
			defer cancel()
			if err := job(ctx); err != nil && !errors.Is(err, context.Canceled) {
				log.Printf("[error] job %s: %v", name, err)
			}
		}
	}

	if sched.ResetSpec != "" {
		if _, err := s.ScheduleSpec(sched.ResetSpec, run("reset", func(ctx context.Context) error {
			n, err := tasks.ResetRecurring(ctx)
			if err == nil && n > 0 {
				log.Printf("[info] daily reset cleared %d recurring tasks", n)
			}
			return err
		})); err != nil {
			return err
		}
	}
	if sched.ReminderInterval > 0 {
		if _, err := s.ScheduleInterval(sched.ReminderInterval, run("due-soon", func(ctx context.Context) error {
			_, err := reminders.DueSoon(ctx, time.Now())
			return err
		})); err != nil {
			return err
		}
	}
	if sched.SummaryTime != "" {
		if _, err := s.ScheduleDaily(sched.SummaryTime, run("summary", func(ctx context.Context) error {
			return reminders.SendDailySummary(ctx, time.Now())
		})); err != nil {
			return err
		}
	}
	return nil
}

func buildDailySpec(timeStr string) (string, error) {
	parts := strings.Split(timeStr, ":")
	if len(parts) != 2 {
		return "", fmt.Errorf("invalid time %q, expected HH:MM", timeStr)
	}
	hour, err := strconv.Atoi(parts[0])
	if err != nil || hour < 0 || hour > 23 {
		return "", fmt.Errorf("invalid hour in %q", timeStr)
	}
	minute, err := strconv.Atoi(parts[1])
	if err != nil || minute < 0 || minute > 59 {
		return "", fmt.Errorf("invalid minute in %q", timeStr)
	}
	// second minute hour dom month dow
	return fmt.Sprintf("0 %d %d * * *", minute, hour), nil
}
