package service

import (
	"context"
	"fmt"
	"html"
	"log"
	"strings"
	"sync"
	"time"

	"github.com/danmermels/momentum-spark-app/internal/model"
	"github.com/danmermels/momentum-spark-app/internal/motivation"
	"github.com/danmermels/momentum-spark-app/internal/progress"
	"github.com/danmermels/momentum-spark-app/internal/repository"
)

// Notification is a message ready for delivery. HTML marks a Message that
// is already escaped markup.
type Notification struct {
	Title       string
	Message     string
	MessageType model.MessageType
	HTML        bool
}

// Notifier delivers notifications to the user.
type Notifier interface {
	Notify(ctx context.Context, n Notification) error
}

// LogNotifier writes notifications to the process log.
type LogNotifier struct{}

func (LogNotifier) Notify(_ context.Context, n Notification) error {
	log.Printf("[info] notification %q: %s", n.Title, n.Message)
	return nil
}

const defaultNotifyTimeout = 10 * time.Second

// ReminderService builds motivational messages and summaries and hands them
// to a Notifier when notifications are enabled.
type ReminderService struct {
	taskRepo     *repository.TaskRepository
	settingsRepo *repository.SettingsRepository
	generator    motivation.Generator
	notifier     Notifier
	loc          *time.Location
	timeout      time.Duration
	now          func() time.Time

	mu       sync.Mutex
	notified map[uint]string
	wg       sync.WaitGroup
}

func NewReminderService(taskRepo *repository.TaskRepository, settingsRepo *repository.SettingsRepository, generator motivation.Generator, notifier Notifier, loc *time.Location) *ReminderService {
	if loc == nil {
		loc = time.Local
	}
	return &ReminderService{
		taskRepo:     taskRepo,
		settingsRepo: settingsRepo,
		generator:    generator,
		notifier:     notifier,
		loc:          loc,
		timeout:      defaultNotifyTimeout,
		now:          time.Now,
		notified:     make(map[uint]string),
	}
}

// WithClock replaces the time source used for completion messages.
func (s *ReminderService) WithClock(now func() time.Time) *ReminderService {
	s.now = now
	return s
}

// SetNotifier swaps the delivery channel, e.g. once the bot is connected.
func (s *ReminderService) SetNotifier(n Notifier) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.notifier = n
}

func (s *ReminderService) currentNotifier() Notifier {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.notifier
}

// CompletionMessage builds the message shown when task is completed.
func (s *ReminderService) CompletionMessage(ctx context.Context, task model.Task, now time.Time) (string, error) {
	settings, err := s.settingsRepo.Get(ctx)
	if err != nil {
		return "", err
	}
	out, err := s.generator.Generate(ctx, motivation.Input{
		TaskName:             task.Title,
		UserName:             settings.UserName,
		TaskCompletionStatus: true,
		DaysUntilDueDate:     progress.DaysUntilDue(task.DueDate, now.In(s.loc)),
	})
	if err != nil {
		return "", fmt.Errorf("completion message for %s: %w", describe(task), err)
	}
	return out.Message, nil
}

// TaskCompleted sends the completion message in the background. The request
// that triggered it does not wait for delivery; failures are only logged.
func (s *ReminderService) TaskCompleted(_ context.Context, task model.Task) {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
		defer cancel()

		if !s.enabled(ctx) {
			return
		}
		msg, err := s.CompletionMessage(ctx, task, s.now())
		if err != nil {
			log.Printf("[warn] %v", err)
			return
		}
		n := Notification{Title: "Task Completed!", Message: msg, MessageType: task.MessageType}
		if err := s.currentNotifier().Notify(ctx, n); err != nil {
			log.Printf("[warn] notify completion of %s: %v", describe(task), err)
		}
	}()
}

// Wait blocks until background notifications have finished.
func (s *ReminderService) Wait() {
	s.wg.Wait()
}

// DueSoon notifies about pending one-time tasks due today or tomorrow. Each
// task is announced at most once per day. It returns how many were sent.
func (s *ReminderService) DueSoon(ctx context.Context, now time.Time) (int, error) {
	if !s.enabled(ctx) {
		return 0, nil
	}
	settings, err := s.settingsRepo.Get(ctx)
	if err != nil {
		return 0, err
	}
	tasks, err := s.taskRepo.Find(ctx)
	if err != nil {
		return 0, err
	}

	now = now.In(s.loc)
	day := now.Format(time.DateOnly)
	sent := 0
	for _, task := range tasks {
		if bool(task.IsCompleted) || bool(task.IsRecurring) || progress.IsOverdue(task.DueDate, now) {
			continue
		}
		days := progress.DaysUntilDue(task.DueDate, now)
		if days > 1 || s.alreadyNotified(task.ID, day) {
			continue
		}

		out, err := s.generator.Generate(ctx, motivation.Input{
			TaskName:         task.Title,
			UserName:         settings.UserName,
			DaysUntilDueDate: days,
		})
		if err != nil {
			log.Printf("[warn] due soon message for %s: %v", describe(task), err)
			continue
		}
		n := Notification{Title: "Upcoming Task", Message: out.Message, MessageType: task.MessageType}
		if err := s.currentNotifier().Notify(ctx, n); err != nil {
			log.Printf("[warn] notify due soon %s: %v", describe(task), err)
			continue
		}
		s.markNotified(task.ID, day)
		sent++
	}
	return sent, nil
}

// SendDailySummary delivers DailySummary when notifications are enabled.
func (s *ReminderService) SendDailySummary(ctx context.Context, now time.Time) error {
	if !s.enabled(ctx) {
		return nil
	}
	text, err := s.DailySummary(ctx, now)
	if err != nil {
		return err
	}
	return s.currentNotifier().Notify(ctx, Notification{Title: "Daily Summary", Message: text, MessageType: model.MessageText, HTML: true})
}

// DailySummary renders today's progress and the open tasks as HTML.
func (s *ReminderService) DailySummary(ctx context.Context, now time.Time) (string, error) {
	tasks, err := s.taskRepo.Find(ctx)
	if err != nil {
		return "", err
	}
	now = now.In(s.loc)
	report := progress.Summarize(tasks, now)

	var pending, goals []model.Task
	for _, task := range tasks {
		switch {
		case bool(task.IsRecurring):
			goals = append(goals, task)
		case !bool(task.IsCompleted):
			pending = append(pending, task)
		}
	}

	var builder strings.Builder
	builder.WriteString("📋 <b>Daily summary</b>\n")
	builder.WriteString(fmt.Sprintf("🗓 %s\n", now.Format("Mon, Jan 2 2006")))
	builder.WriteString(fmt.Sprintf("📈 Today %.0f%% · This month %.0f%% · Milestones %d\n\n", report.Daily, report.Monthly, report.CompletedThisMonth))

	builder.WriteString("🔥 <b>Open tasks</b>\n")
	if len(pending) == 0 {
		builder.WriteString("· nothing open\n")
	} else {
		for _, task := range pending {
			builder.WriteString(FormatTask(task, now))
		}
	}

	builder.WriteString("\n♻️ <b>Daily goals</b>\n")
	if len(goals) == 0 {
		builder.WriteString("· no daily goals\n")
	} else {
		for _, task := range goals {
			builder.WriteString(FormatTask(task, now))
		}
	}

	return strings.TrimSpace(builder.String()), nil
}

// FormatTask renders one task line with its attention badge.
func FormatTask(task model.Task, now time.Time) string {
	var sb strings.Builder

	icon := "🟢"
	switch {
	case bool(task.IsCompleted):
		icon = "✅"
	case bool(task.IsRecurring):
		icon = "♻️"
	default:
		switch progress.BadgeFor(task, now) {
		case progress.BadgeOverdue:
			icon = "⚠️"
		case progress.BadgeDueSoon:
			icon = "⏳"
		}
	}

	title := html.EscapeString(strings.TrimSpace(task.Title))
	sb.WriteString(fmt.Sprintf("%s <code>%d</code> %s <i>(w%d)</i>", icon, task.ID, title, task.Weight))

	if !task.IsRecurring {
		if due, ok := model.ParseDueDate(task.DueDate, now.Location()); ok {
			due = due.In(now.Location())
			switch {
			case bool(task.IsCompleted):
			case progress.IsOverdue(task.DueDate, now):
				sb.WriteString(fmt.Sprintf("\n   ⏰ due %s · <b>overdue</b>", due.Format(time.DateOnly)))
			default:
				sb.WriteString(fmt.Sprintf("\n   ⏰ due %s · %d days left", due.Format(time.DateOnly), progress.DaysUntilDue(task.DueDate, now)))
			}
		}
	}

	if task.Description != nil && strings.TrimSpace(*task.Description) != "" {
		sb.WriteString(fmt.Sprintf("\n   📝 %s", html.EscapeString(strings.TrimSpace(*task.Description))))
	}

	sb.WriteByte('\n')
	return sb.String()
}

func (s *ReminderService) enabled(ctx context.Context) bool {
	settings, err := s.settingsRepo.Get(ctx)
	if err != nil {
		log.Printf("[warn] read settings: %v", err)
		return false
	}
	return settings.EnableNotifications
}

func (s *ReminderService) alreadyNotified(id uint, day string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.notified[id] == day
}

func (s *ReminderService) markNotified(id uint, day string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.notified[id] = day
}
