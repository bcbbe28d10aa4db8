package cli

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/sun1tar/todo-reminders/internal/models"
	"github.com/sun1tar/todo-reminders/internal/session"
)

var (
	dueDateFlag string
	dueTimeFlag string
	plannedFlag float64
	unitFlag    string
	textFlag    string
)

func init() {
	addCmd.Flags().StringVar(&dueDateFlag, "due", "", "Due date (YYYY-MM-DD)")
	addCmd.Flags().StringVar(&dueTimeFlag, "at", "", "Due time, 12-hour clock (e.g. \"7:30 pm\")")
	addCmd.Flags().Float64Var(&plannedFlag, "planned", 0, "Planned effort")
	addCmd.Flags().StringVar(&unitFlag, "unit", "hours", "Effort unit (hours|minutes)")

	editCmd.Flags().StringVar(&textFlag, "text", "", "New task text")
	editCmd.Flags().StringVar(&dueDateFlag, "due", "", "New due date (YYYY-MM-DD)")
	editCmd.Flags().StringVar(&dueTimeFlag, "at", "", "New due time")
	editCmd.Flags().Float64Var(&plannedFlag, "planned", 0, "New planned effort")
	editCmd.Flags().StringVar(&unitFlag, "unit", "", "New effort unit (hours|minutes)")
}

func parseTaskID(arg string) (int64, error) {
	id, err := strconv.ParseInt(arg, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid task id %q", arg)
	}
	return id, nil
}

func findTask(ctx context.Context, store session.TaskStore, id int64) (models.Task, error) {
	tasks, err := store.List(ctx)
	if err != nil {
		return models.Task{}, err
	}
	for _, t := range tasks {
		if t.ID == id {
			return t, nil
		}
	}
	return models.Task{}, fmt.Errorf("task %d not found", id)
}

var addCmd = &cobra.Command{
	Use:   "add [text]",
	Short: "Add a task",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		sess, err := openSession(ctx)
		if err != nil {
			return err
		}
		defer sess.Close()

		task := models.Task{
			Text:       strings.Join(args, " "),
			DueDate:    dueDateFlag,
			DueTime:    dueTimeFlag,
			EffortUnit: unitFlag,
		}
		if cmd.Flags().Changed("planned") {
			task.PlannedEffort = &plannedFlag
		}

		created, err := sess.Store().Create(ctx, task)
		if err != nil {
			return err
		}
		fmt.Printf("Added task %d: %s\n", created.ID, created.Text)
		return nil
	},
}

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List tasks, newest first",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		sess, err := openSession(ctx)
		if err != nil {
			return err
		}
		defer sess.Close()

		tasks, err := sess.Store().List(ctx)
		if err != nil {
			return err
		}
		if len(tasks) == 0 {
			fmt.Println("No tasks.")
			return nil
		}

		mode := "local"
		if sess.UseBackend() {
			mode = "backend"
		}
		fmt.Printf("%d task(s), %s mode\n", len(tasks), mode)

		now := time.Now()
		for _, t := range tasks {
			mark := " "
			if t.Completed {
				mark = "x"
			}
			due := "no date"
			if t.DueInstant != nil {
				due = t.DueInstant.Format("Jan 2, 2006 3:04 PM")
				if !t.Completed && t.DueInstant.Before(now) {
					due += " (overdue)"
				}
			}
			planned := ""
			if t.PlannedEffort != nil {
				unit := "hrs"
				if t.EffortUnit == models.UnitMinutes {
					unit = "min"
				}
				planned = fmt.Sprintf(", planned %g %s", *t.PlannedEffort, unit)
			}
			fmt.Printf("%4d [%s] %s (due: %s%s)\n", t.ID, mark, t.Text, due, planned)
		}
		return nil
	},
}

func toggleCompleted(cmd *cobra.Command, arg string, completed bool) error {
	ctx := cmd.Context()
	id, err := parseTaskID(arg)
	if err != nil {
		return err
	}

	sess, err := openSession(ctx)
	if err != nil {
		return err
	}
	defer sess.Close()

	task, err := findTask(ctx, sess.Store(), id)
	if err != nil {
		return err
	}
	task.Completed = completed
	if _, err := sess.Store().Update(ctx, task); err != nil {
		return err
	}
	if completed {
		fmt.Printf("Completed task %d\n", id)
	} else {
		fmt.Printf("Reopened task %d\n", id)
	}
	return nil
}

var completeCmd = &cobra.Command{
	Use:   "complete [id]",
	Short: "Mark a task completed",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return toggleCompleted(cmd, args[0], true)
	},
}

var uncompleteCmd = &cobra.Command{
	Use:   "uncomplete [id]",
	Short: "Reopen a completed task",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return toggleCompleted(cmd, args[0], false)
	},
}

var editCmd = &cobra.Command{
	Use:   "edit [id]",
	Short: "Edit task text, due date/time or planned effort",
	Long: `Edit a task. Changing the due date or time re-arms the reminder:
the task becomes eligible for a fresh notification cycle.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		id, err := parseTaskID(args[0])
		if err != nil {
			return err
		}

		sess, err := openSession(ctx)
		if err != nil {
			return err
		}
		defer sess.Close()

		task, err := findTask(ctx, sess.Store(), id)
		if err != nil {
			return err
		}

		if cmd.Flags().Changed("text") {
			task.Text = textFlag
		}
		if cmd.Flags().Changed("due") {
			task.DueDate = dueDateFlag
		}
		if cmd.Flags().Changed("at") {
			task.DueTime = dueTimeFlag
		}
		if cmd.Flags().Changed("planned") {
			task.PlannedEffort = &plannedFlag
		}
		if cmd.Flags().Changed("unit") {
			task.EffortUnit = unitFlag
		}

		updated, err := sess.Store().Update(ctx, task)
		if err != nil {
			return err
		}
		fmt.Printf("Updated task %d: %s\n", updated.ID, updated.Text)
		return nil
	},
}

var deleteCmd = &cobra.Command{
	Use:   "delete [id]",
	Short: "Delete a task",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		id, err := parseTaskID(args[0])
		if err != nil {
			return err
		}

		sess, err := openSession(ctx)
		if err != nil {
			return err
		}
		defer sess.Close()

		if err := sess.Store().Delete(ctx, id); err != nil {
			return err
		}
		fmt.Printf("Deleted task %d\n", id)
		return nil
	},
}
