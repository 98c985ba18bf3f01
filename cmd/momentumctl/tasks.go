package main

import (
	"fmt"
	"strconv"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/danmermels/momentum-spark-app/internal/client"
	"github.com/danmermels/momentum-spark-app/internal/model"
	"github.com/danmermels/momentum-spark-app/internal/motivation"
	"github.com/danmermels/momentum-spark-app/internal/progress"
	"github.com/danmermels/momentum-spark-app/internal/service"
)

func listCmd(a *app) *cobra.Command {
	var pendingOnly bool
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List tasks and daily goals",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.store.Load(commandContext(cmd)); err != nil {
				return err
			}
			tasks := a.store.Tasks()
			if pendingOnly {
				tasks = pending(tasks)
			}
			return a.printTasks(tasks)
		},
	}
	cmd.Flags().BoolVarP(&pendingOnly, "pending", "p", false, "Only show tasks that are not completed")
	return cmd
}

func addCmd(a *app) *cobra.Command {
	var (
		weight      int
		due         string
		description string
		recurring   bool
		audio       bool
	)
	cmd := &cobra.Command{
		Use:   "add [title]",
		Short: "Create a task",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			req := service.CreateTaskRequest{
				Title:       strings.Join(args, " "),
				Weight:      &weight,
				DueDate:     due,
				IsRecurring: recurring,
				MessageType: model.MessageText,
			}
			if due == "" {
				req.DueDate = a.now().Format(time.DateOnly)
			}
			if description != "" {
				req.Description = &description
			}
			if audio {
				req.MessageType = model.MessageAudio
			}
			created, err := a.store.Create(commandContext(cmd), req)
			if err != nil {
				return err
			}
			fmt.Fprintf(a.out, "Created #%d %s\n", created.ID, created.Title)
			return nil
		},
	}
	cmd.Flags().IntVarP(&weight, "weight", "w", 5, "Importance from 1 to 10")
	cmd.Flags().StringVarP(&due, "due", "d", "", "Due date (YYYY-MM-DD), defaults to today")
	cmd.Flags().StringVar(&description, "description", "", "Optional notes")
	cmd.Flags().BoolVarP(&recurring, "daily", "r", false, "Repeat every day")
	cmd.Flags().BoolVar(&audio, "audio", false, "Read the motivational message aloud")
	return cmd
}

func toggleCmd(a *app, name, short string, completed bool) *cobra.Command {
	return &cobra.Command{
		Use:   name + " [id]",
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			ctx := commandContext(cmd)
			if err := a.store.Load(ctx); err != nil {
				return err
			}
			current, ok := a.store.Get(id)
			if !ok {
				return fmt.Errorf("task %d not found", id)
			}
			if bool(current.IsCompleted) == completed {
				fmt.Fprintf(a.out, "#%d %s is already %s\n", id, current.Title, state(completed))
				return nil
			}

			updated, err := a.store.Toggle(ctx, id)
			if err != nil {
				return err
			}
			fmt.Fprintf(a.out, "#%d %s is %s\n", id, updated.Title, state(bool(updated.IsCompleted)))
			if updated.IsCompleted && !updated.IsRecurring {
				a.celebrate(cmd, *updated)
			}
			return nil
		},
	}
}

func editCmd(a *app) *cobra.Command {
	var (
		title       string
		description string
		weight      int
		due         string
		recurring   bool
	)
	cmd := &cobra.Command{
		Use:   "edit [id]",
		Short: "Change fields of a task",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			var req service.UpdateTaskRequest
			flags := cmd.Flags()
			if flags.Changed("title") {
				req.Title = &title
			}
			if flags.Changed("description") {
				req.Description = &description
			}
			if flags.Changed("weight") {
				req.Weight = &weight
			}
			if flags.Changed("due") {
				req.DueDate = &due
			}
			if flags.Changed("daily") {
				req.IsRecurring = &recurring
			}
			updated, err := a.store.Update(commandContext(cmd), id, req)
			if err != nil {
				return err
			}
			fmt.Fprintf(a.out, "Updated #%d %s\n", updated.ID, updated.Title)
			return nil
		},
	}
	cmd.Flags().StringVarP(&title, "title", "t", "", "New title")
	cmd.Flags().StringVar(&description, "description", "", "New notes")
	cmd.Flags().IntVarP(&weight, "weight", "w", 5, "New importance from 1 to 10")
	cmd.Flags().StringVarP(&due, "due", "d", "", "New due date (YYYY-MM-DD)")
	cmd.Flags().BoolVarP(&recurring, "daily", "r", false, "Repeat every day")
	return cmd
}

func showCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "show [id]",
		Short: "Show one task in detail",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			task, err := a.api.GetTask(commandContext(cmd), id)
			if client.IsNotFound(err) {
				return fmt.Errorf("task %d not found", id)
			}
			if err != nil {
				return err
			}
			now := a.now()
			fmt.Fprintf(a.out, "#%d %s\n", task.ID, task.Title)
			fmt.Fprintf(a.out, "Status:  %s\n", status(*task, now))
			fmt.Fprintf(a.out, "Weight:  %d\n", task.Weight)
			fmt.Fprintf(a.out, "Due:     %s\n", dueLabel(*task, now))
			if task.Description != nil && strings.TrimSpace(*task.Description) != "" {
				fmt.Fprintf(a.out, "Notes:   %s\n", strings.TrimSpace(*task.Description))
			}
			if done, ok := task.CompletionTime(); ok {
				fmt.Fprintf(a.out, "Done at: %s\n", done.In(now.Location()).Format(time.DateTime))
			}
			return nil
		},
	}
}

func removeCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:     "rm [id]",
		Aliases: []string{"delete"},
		Short:   "Delete a task",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			if err := a.store.Delete(commandContext(cmd), id); err != nil {
				return err
			}
			fmt.Fprintf(a.out, "Deleted #%d\n", id)
			return nil
		},
	}
}

func progressCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "progress",
		Short: "Show daily and monthly completion",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			report, err := a.api.Progress(commandContext(cmd))
			if err != nil {
				return err
			}
			printReport(a, report)
			return nil
		},
	}
}

// celebrate prints the completion message when the user has not muted them.
func (a *app) celebrate(cmd *cobra.Command, task model.Task) {
	settings, err := a.settings.Load()
	if err != nil {
		fmt.Fprintf(cmd.ErrOrStderr(), "settings: %v\n", err)
	}
	if !settings.EnableNotifications {
		return
	}
	out, err := a.generator.Generate(commandContext(cmd), motivation.Input{
		TaskName:             task.Title,
		UserName:             settings.UserName,
		TaskCompletionStatus: true,
		DaysUntilDueDate:     progress.DaysUntilDue(task.DueDate, a.now()),
	})
	if err != nil {
		fmt.Fprintf(cmd.ErrOrStderr(), "motivation: %v\n", err)
		return
	}
	fmt.Fprintf(a.out, "🎉 %s\n", out.Message)
}

func (a *app) printTasks(tasks []model.Task) error {
	if len(tasks) == 0 {
		fmt.Fprintln(a.out, "No tasks yet. Add one with: momentumctl add \"Title\"")
		return nil
	}
	now := a.now()
	w := tabwriter.NewWriter(a.out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tSTATUS\tWEIGHT\tDUE\tTITLE")
	for _, t := range tasks {
		fmt.Fprintf(w, "%d\t%s\t%d\t%s\t%s\n", t.ID, status(t, now), t.Weight, dueLabel(t, now), t.Title)
	}
	return w.Flush()
}

func printReport(a *app, report progress.Report) {
	fmt.Fprintf(a.out, "Today:       %3.0f%% (%d tasks)\n", report.Daily, report.DailyTasks)
	fmt.Fprintf(a.out, "This month:  %3.0f%% (%d tasks)\n", report.Monthly, report.MonthlyTasks)
	fmt.Fprintf(a.out, "Milestones:  %d completed this month\n", report.CompletedThisMonth)
}

func status(t model.Task, now time.Time) string {
	switch {
	case bool(t.IsCompleted):
		return "done"
	case bool(t.IsRecurring):
		return "daily"
	}
	switch progress.BadgeFor(t, now) {
	case progress.BadgeOverdue:
		return "overdue"
	case progress.BadgeDueSoon:
		return "due soon"
	}
	return "pending"
}

func dueLabel(t model.Task, now time.Time) string {
	if t.IsRecurring {
		return "every day"
	}
	due, ok := model.ParseDueDate(t.DueDate, now.Location())
	if !ok {
		return t.DueDate
	}
	return due.In(now.Location()).Format(time.DateOnly)
}

func pending(tasks []model.Task) []model.Task {
	out := tasks[:0:0]
	for _, t := range tasks {
		if !t.IsCompleted {
			out = append(out, t)
		}
	}
	return out
}

func state(completed bool) string {
	if completed {
		return "completed"
	}
	return "pending"
}

func parseID(raw string) (uint, error) {
	id, err := strconv.ParseUint(strings.TrimPrefix(strings.TrimSpace(raw), "#"), 10, 64)
	if err != nil || id == 0 {
		return 0, fmt.Errorf("invalid task id %q", raw)
	}
	return uint(id), nil
}
