package main

import (
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/spf13/cobra"

	"github.com/nhle/taskchat/internal/chat"
	"github.com/nhle/taskchat/internal/model"
	"github.com/nhle/taskchat/internal/tasks"
	"github.com/nhle/taskchat/internal/theme"
)

func (c *cli) taskCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "task",
		Short: "Manage tasks directly",
	}
	cmd.AddCommand(c.taskAddCmd(), c.taskListCmd(), c.taskDoneCmd(), c.taskRemoveCmd(), c.taskStatsCmd())
	return cmd
}

func (c *cli) taskAddCmd() *cobra.Command {
	var desc, due, priority string
	cmd := &cobra.Command{
		Use:   "add <title>",
		Short: "Create a task",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			in := model.TaskInput{
				Title:       strings.Join(args, " "),
				Description: desc,
			}
			if due != "" {
				d, ok := chat.ParseDueDate(due)
				if !ok {
					return fmt.Errorf("invalid due date %q: use YYYY-MM-DD or YYYY-MM-DDTHH:MM", due)
				}
				in.DueDate = &d
			}
			if priority != "" {
				p, ok := model.ParsePriority(priority)
				if !ok {
					return fmt.Errorf("invalid priority %q: use high, medium or low", priority)
				}
				in.Priority = p
			}

			e, err := c.openEnv(cmd.Context(), false)
			if err != nil {
				return err
			}
			defer e.Close()

			task, err := e.tasks.Create(cmd.Context(), in)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Created %s %q\n", task.ID, task.Title)
			return nil
		},
	}
	cmd.Flags().StringVarP(&desc, "desc", "d", "", "description")
	cmd.Flags().StringVar(&due, "due", "", "due date (YYYY-MM-DD or YYYY-MM-DDTHH:MM)")
	cmd.Flags().StringVarP(&priority, "priority", "p", "", "priority (high, medium, low)")
	return cmd
}

func (c *cli) taskListCmd() *cobra.Command {
	var all bool
	cmd := &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "List tasks grouped by due date",
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := c.openEnv(cmd.Context(), false)
			if err != nil {
				return err
			}
			defer e.Close()

			list := e.tasks.List()
			if !all {
				open := list[:0:0]
				for _, t := range list {
					if !t.IsCompleted {
						open = append(open, t)
					}
				}
				list = open
			}
			printTaskTable(cmd.OutOrStdout(), list, time.Now())
			return nil
		},
	}
	cmd.Flags().BoolVarP(&all, "all", "a", false, "include completed tasks")
	return cmd
}

func printTaskTable(out io.Writer, list []model.Task, now time.Time) {
	if len(list) == 0 {
		fmt.Fprintln(out, "No tasks.")
		return
	}
	for _, sec := range tasks.Group(list, now) {
		fmt.Fprintln(out, theme.SectionStyle(sec.Title).Render(sec.Title))
		t := table.New().
			Border(lipgloss.HiddenBorder()).
			Headers("ID", "TITLE", "DUE", "PRIORITY", "DONE")
		for _, task := range sec.Tasks {
			due := ""
			if task.DueDate != nil {
				due = task.DueDate.Local().Format("2006-01-02 15:04")
			}
			done := ""
			if task.IsCompleted {
				done = "✓"
			}
			t.Row(shortID(task.ID), task.Title, due, string(task.Priority), done)
		}
		fmt.Fprintln(out, t.Render())
	}
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

// resolveTask finds a task by full id or unique id prefix.
func resolveTask(store *tasks.Store, ref string) (model.Task, error) {
	if t, ok := store.Get(ref); ok {
		return t, nil
	}
	var found []model.Task
	for _, t := range store.List() {
		if strings.HasPrefix(t.ID, ref) {
			found = append(found, t)
		}
	}
	switch len(found) {
	case 0:
		return model.Task{}, fmt.Errorf("no task matches %q", ref)
	case 1:
		return found[0], nil
	default:
		return model.Task{}, errors.New("ambiguous task id " + ref)
	}
}

func (c *cli) taskDoneCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "done <id>",
		Short: "Mark a task completed",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := c.openEnv(cmd.Context(), false)
			if err != nil {
				return err
			}
			defer e.Close()

			task, err := resolveTask(e.tasks, args[0])
			if err != nil {
				return err
			}
			done := true
			e.tasks.Update(cmd.Context(), task.ID, model.TaskPatch{IsCompleted: &done})
			fmt.Fprintf(cmd.OutOrStdout(), "Completed %q\n", task.Title)
			return nil
		},
	}
}

func (c *cli) taskRemoveCmd() *cobra.Command {
	return &cobra.Command{
		Use:     "rm <id>",
		Aliases: []string{"delete"},
		Short:   "Delete a task",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := c.openEnv(cmd.Context(), false)
			if err != nil {
				return err
			}
			defer e.Close()

			task, err := resolveTask(e.tasks, args[0])
			if err != nil {
				return err
			}
			e.tasks.Delete(cmd.Context(), task.ID)
			fmt.Fprintf(cmd.OutOrStdout(), "Deleted %q\n", task.Title)
			return nil
		},
	}
}

func (c *cli) taskStatsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Show task counts and what is coming up",
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := c.openEnv(cmd.Context(), false)
			if err != nil {
				return err
			}
			defer e.Close()

			out := cmd.OutOrStdout()
			st := e.tasks.Stats(time.Now())
			fmt.Fprintf(out, "Total:     %d\n", st.Total)
			fmt.Fprintf(out, "Completed: %d\n", st.Completed)
			fmt.Fprintf(out, "Pending:   %d\n", st.Pending)
			fmt.Fprintf(out, "Overdue:   %d\n", st.Overdue)
			if len(st.Upcoming) > 0 {
				fmt.Fprintln(out, "Upcoming:")
				for _, t := range st.Upcoming {
					fmt.Fprintf(out, "  %s  %s\n", t.DueDate.Local().Format("Mon Jan 02 15:04"), t.Title)
				}
			}
			return nil
		},
	}
}
