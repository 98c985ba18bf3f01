// Package motivation turns task state into a short personalized message.
package motivation

import (
	"context"
	"fmt"
	"math"
	"strings"
	"text/template"
)

// Input describes the task the message is about.
type Input struct {
	TaskName             string `json:"taskName"`
	UserName             string `json:"userName"`
	TaskCompletionStatus bool   `json:"taskCompletionStatus"`
	DaysUntilDueDate     int    `json:"daysUntilDueDate"`
}

// Output is the generated message.
type Output struct {
	Message string `json:"message"`
}

// Generator produces a message for an input. Implementations may call out to
// a remote provider; callers do not retry.
type Generator interface {
	Generate(ctx context.Context, in Input) (Output, error)
}

// Kind names one of the fixed phrasings.
type Kind string

const (
	KindCompletion        Kind = "completion"
	KindApproachingDue    Kind = "approaching-due"
	KindCompletionUrgency Kind = "completion-urgency"
	KindEncouragement     Kind = "encouragement"
)

// approachingWindow is how many days ahead a pending task counts as approaching.
const approachingWindow = 3

var templates = map[Kind]*template.Template{
	KindCompletion:        mustParse(KindCompletion, "Great job, {{.UserName}}! You've completed {{.TaskName}}. Keep up the momentum!"),
	KindApproachingDue:    mustParse(KindApproachingDue, "Hey {{.UserName}}, {{.TaskName}} is due in {{.DaysUntilDueDate}} {{if eq .DaysUntilDueDate 1}}day{{else}}days{{end}}. You've got this!"),
	KindCompletionUrgency: mustParse(KindCompletionUrgency, "Excellent! Finishing {{.TaskName}} brings you closer to your goals. What's next, {{.UserName}}?"),
	KindEncouragement:     mustParse(KindEncouragement, "Just a reminder, {{.UserName}}, {{.TaskName}} is on your list. A little progress each day adds up to big results!"),
}

func mustParse(kind Kind, text string) *template.Template {
	return template.Must(template.New(string(kind)).Option("missingkey=error").Parse(text))
}

// Select picks the phrasing for in. Completed tasks that were due within a
// day get the plain completion message, tasks finished ahead of schedule the
// forward-looking one. Pending tasks close to their due date get the
// approaching message, everything else encouragement.
func Select(in Input) Kind {
	switch {
	case in.TaskCompletionStatus && in.DaysUntilDueDate <= 1:
		return KindCompletion
	case in.TaskCompletionStatus:
		return KindCompletionUrgency
	case in.DaysUntilDueDate >= 0 && in.DaysUntilDueDate <= approachingWindow && in.DaysUntilDueDate != math.MaxInt:
		return KindApproachingDue
	default:
		return KindEncouragement
	}
}

// TemplateGenerator fills the selected template locally.
type TemplateGenerator struct{}

func NewTemplateGenerator() *TemplateGenerator {
	return &TemplateGenerator{}
}

// Generate implements Generator.
func (g *TemplateGenerator) Generate(ctx context.Context, in Input) (Output, error) {
	if err := ctx.Err(); err != nil {
		return Output{}, err
	}
	in.TaskName = strings.TrimSpace(in.TaskName)
	in.UserName = strings.TrimSpace(in.UserName)
	if in.TaskName == "" {
		return Output{}, fmt.Errorf("generate message: task name is required")
	}
	if in.UserName == "" {
		in.UserName = "friend"
	}

	kind := Select(in)
	var sb strings.Builder
	if err := templates[kind].Execute(&sb, in); err != nil {
		return Output{}, fmt.Errorf("generate message: %w", err)
	}
	return Output{Message: sb.String()}, nil
}
