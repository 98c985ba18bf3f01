// Package progress computes weighted completion figures over an in-memory
// task collection. Every function is pure; the current time is passed in and
// its location defines calendar days.
package progress

import (
	"math"
	"time"

	"github.com/danmermels/momentum-spark-app/internal/model"
)

// Unbounded is returned by DaysUntilDue when the due date cannot be parsed.
// Callers treat it as "never due soon".
const Unbounded = math.MaxInt

// WeightedCompletion returns the completed share of total weight, in percent.
func WeightedCompletion(tasks []model.Task) float64 {
	if len(tasks) == 0 {
		return 0
	}
	var total, completed int
	for _, t := range tasks {
		total += t.Weight
		if t.IsCompleted {
			completed += t.Weight
		}
	}
	if total <= 0 {
		return 0
	}
	return float64(completed) / float64(total) * 100
}

// DailyScope selects recurring tasks and tasks due today.
func DailyScope(tasks []model.Task, now time.Time) []model.Task {
	return filter(tasks, func(t model.Task) bool {
		return bool(t.IsRecurring) || IsDueToday(t.DueDate, now)
	})
}

// MonthlyScope selects recurring tasks and one-time tasks due this month.
func MonthlyScope(tasks []model.Task, now time.Time) []model.Task {
	return filter(tasks, func(t model.Task) bool {
		return bool(t.IsRecurring) || IsDueThisMonth(t.DueDate, now)
	})
}

func Daily(tasks []model.Task, now time.Time) float64 {
	return WeightedCompletion(DailyScope(tasks, now))
}

func Monthly(tasks []model.Task, now time.Time) float64 {
	return WeightedCompletion(MonthlyScope(tasks, now))
}

// TrendPoint is one day of the monthly trend. A nil Progress marks a day that
// has not happened yet, which is different from zero progress.
type TrendPoint struct {
	Day      int  `json:"day"`
	Progress *int `json:"progress"`
}

// MonthlyTrend returns the cumulative weighted completion for every day of
// now's month. A task counts as completed by day D when it is completed and
// its completion time falls on or before the end of D.
func MonthlyTrend(tasks []model.Task, now time.Time) []TrendPoint {
	loc := now.Location()
	year, month, today := now.Date()
	days := model.DaysInMonth(now)

	relevant := MonthlyScope(tasks, now)
	var total int
	for _, t := range relevant {
		total += t.Weight
	}

	points := make([]TrendPoint, 0, days)
	for day := 1; day <= days; day++ {
		if day > today {
			points = append(points, TrendPoint{Day: day})
			continue
		}

		endOfDay := time.Date(year, month, day, 23, 59, 59, int(time.Second-time.Nanosecond), loc)
		var completed int
		for _, t := range relevant {
			done, ok := t.CompletionTime()
			if ok && !done.After(endOfDay) {
				completed += t.Weight
			}
		}

		pct := 0
		if total > 0 {
			pct = int(math.Round(float64(completed) / float64(total) * 100))
		}
		points = append(points, TrendPoint{Day: day, Progress: &pct})
	}
	return points
}

// DaysUntilDue returns the number of calendar days from today to the due
// date, floored at zero, or Unbounded when the date does not parse.
func DaysUntilDue(dueDate string, now time.Time) int {
	due, ok := model.ParseDueDate(dueDate, now.Location())
	if !ok {
		return Unbounded
	}
	days := calendarDays(now, due.In(now.Location()))
	if days < 0 {
		return 0
	}
	return days
}

// IsOverdue reports whether the due date is before today.
func IsOverdue(dueDate string, now time.Time) bool {
	due, ok := model.ParseDueDate(dueDate, now.Location())
	if !ok {
		return false
	}
	return calendarDays(now, due.In(now.Location())) < 0
}

func IsDueToday(dueDate string, now time.Time) bool {
	due, ok := model.ParseDueDate(dueDate, now.Location())
	return ok && model.SameDay(due, now)
}

func IsDueThisMonth(dueDate string, now time.Time) bool {
	due, ok := model.ParseDueDate(dueDate, now.Location())
	if !ok {
		return false
	}
	due = due.In(now.Location())
	return due.Year() == now.Year() && due.Month() == now.Month()
}

// CompletedThisMonth returns the one-time tasks completed during now's month.
func CompletedThisMonth(tasks []model.Task, now time.Time) []model.Task {
	return filter(tasks, func(t model.Task) bool {
		if t.IsRecurring {
			return false
		}
		done, ok := t.CompletionTime()
		if !ok {
			return false
		}
		done = done.In(now.Location())
		return done.Year() == now.Year() && done.Month() == now.Month()
	})
}

// Badge flags a pending task that needs attention.
type Badge string

const (
	BadgeNone    Badge = ""
	BadgeOverdue Badge = "overdue"
	BadgeDueSoon Badge = "due-soon"
)

// BadgeFor returns the attention badge of a task: overdue when the due day
// has passed, due-soon when it is at most two days away.
func BadgeFor(t model.Task, now time.Time) Badge {
	if t.IsCompleted {
		return BadgeNone
	}
	if IsOverdue(t.DueDate, now) {
		return BadgeOverdue
	}
	if d := DaysUntilDue(t.DueDate, now); d <= 2 {
		return BadgeDueSoon
	}
	return BadgeNone
}

// Report bundles the figures shown on the dashboard.
type Report struct {
	Daily              float64      `json:"daily"`
	Monthly            float64      `json:"monthly"`
	DailyTasks         int          `json:"dailyTasks"`
	MonthlyTasks       int          `json:"monthlyTasks"`
	CompletedThisMonth int          `json:"completedThisMonth"`
	Trend              []TrendPoint `json:"trend"`
}

func Summarize(tasks []model.Task, now time.Time) Report {
	daily := DailyScope(tasks, now)
	monthly := MonthlyScope(tasks, now)
	return Report{
		Daily:              WeightedCompletion(daily),
		Monthly:            WeightedCompletion(monthly),
		DailyTasks:         len(daily),
		MonthlyTasks:       len(monthly),
		CompletedThisMonth: len(CompletedThisMonth(tasks, now)),
		Trend:              MonthlyTrend(tasks, now),
	}
}

// calendarDays counts whole days between the calendar dates of a and b.
func calendarDays(a, b time.Time) int {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	from := time.Date(ay, am, ad, 0, 0, 0, 0, time.UTC)
	to := time.Date(by, bm, bd, 0, 0, 0, 0, time.UTC)
	return int(to.Sub(from).Hours() / 24)
}

func filter(tasks []model.Task, keep func(model.Task) bool) []model.Task {
	var out []model.Task
	for _, t := range tasks {
		if keep(t) {
			out = append(out, t)
		}
	}
	return out
}
