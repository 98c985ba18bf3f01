package model

import "time"

// MessageType selects how a motivational message is presented.
type MessageType string

const (
	MessageText  MessageType = "text"
	MessageAudio MessageType = "audio"
)

// Task is the only durable entity: a titled, weighted, dated unit of work.
type Task struct {
	ID          uint        `gorm:"column:id;primaryKey;autoIncrement" json:"id"`
	Title       string      `gorm:"column:title;type:text;not null" json:"title"`
	Description *string     `gorm:"column:description;type:text" json:"description"`
	Weight      int         `gorm:"column:weight;type:integer;not null;default:5" json:"weight"`
	DueDate     string      `gorm:"column:dueDate;type:text;not null;index" json:"dueDate"`
	IsCompleted Flag        `gorm:"column:isCompleted;type:integer;not null;default:0" json:"isCompleted"`
	IsRecurring Flag        `gorm:"column:isRecurring;type:integer;not null;default:0" json:"isRecurring"`
	MessageType MessageType `gorm:"column:messageType;type:text;not null;default:'text'" json:"messageType"`
	CompletedAt *time.Time  `gorm:"column:completedAt" json:"completedAt"`
	Version     int         `gorm:"column:version;type:integer;not null;default:1" json:"version"`
	CreatedAt   time.Time   `gorm:"column:createdAt" json:"createdAt"`
	UpdatedAt   time.Time   `gorm:"column:updatedAt" json:"updatedAt"`
}

func (Task) TableName() string { return "tasks" }

// CompletionTime reports when the task was completed. Rows written before
// completedAt existed fall back to updatedAt.
func (t Task) CompletionTime() (time.Time, bool) {
	if !t.IsCompleted {
		return time.Time{}, false
	}
	if t.CompletedAt != nil {
		return *t.CompletedAt, true
	}
	if t.UpdatedAt.IsZero() {
		return time.Time{}, false
	}
	return t.UpdatedAt, true
}

// NeedsDailyReset is true for a recurring task completed on a calendar day
// other than now's.
func (t Task) NeedsDailyReset(now time.Time) bool {
	if !t.IsRecurring || !t.IsCompleted {
		return false
	}
	done, ok := t.CompletionTime()
	if !ok {
		return false
	}
	return !SameDay(done, now)
}
