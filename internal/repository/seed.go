package repository

import (
	"time"

	"github.com/danmermels/momentum-spark-app/internal/model"
)

// seedTasks returns the example tasks inserted into an empty table.
func seedTasks(now time.Time) []model.Task {
	day := 24 * time.Hour
	text := func(s string) *string { return &s }
	completedAt := now.UTC()

	return []model.Task{
		{
			Title:       "Morning Review",
			Description: text("Plan your day."),
			Weight:      3,
			DueDate:     model.FormatDueDate(now),
			IsRecurring: true,
			MessageType: model.MessageText,
		},
		{
			Title:       "Evening Wind-Down",
			Description: text("Reflect on the day and prepare for tomorrow."),
			Weight:      2,
			DueDate:     model.FormatDueDate(now),
			IsRecurring: true,
			MessageType: model.MessageText,
		},
		{
			Title:       "Review Project Proposal",
			Description: text("Go over the new proposal and provide feedback."),
			Weight:      8,
			DueDate:     model.FormatDueDate(now.Add(3 * day)),
			MessageType: model.MessageText,
		},
		{
			Title:       "Schedule Team Meeting",
			Description: text("Coordinate with team members to find a suitable time."),
			Weight:      5,
			DueDate:     model.FormatDueDate(now.Add(7 * day)),
			MessageType: model.MessageText,
		},
		{
			Title:       "Submit Monthly Report",
			Description: text("Compile and submit the report for last month's activities."),
			Weight:      10,
			DueDate:     model.FormatDueDate(now.Add(1 * day)),
			IsCompleted: true,
			CompletedAt: &completedAt,
			MessageType: model.MessageText,
		},
	}
}
