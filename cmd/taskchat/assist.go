package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/nhle/taskchat/internal/model"
)

func (c *cli) refineCmd() *cobra.Command {
	var apply bool
	cmd := &cobra.Command{
		Use:   "refine <id>",
		Short: "Let the assistant clean up a task's title and description",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := c.openEnv(cmd.Context(), true)
			if err != nil {
				return err
			}
			defer e.Close()

			task, err := resolveTask(e.tasks, args[0])
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			title, desc, ok := e.gateway.Refine(cmd.Context(), task.Title, task.Description)
			if !ok {
				fmt.Fprintln(out, "Could not refine the task right now; it is unchanged.")
				return nil
			}
			fmt.Fprintf(out, "Title:       %s\n", title)
			fmt.Fprintf(out, "Description: %s\n", desc)

			if apply {
				e.tasks.Update(cmd.Context(), task.ID, model.TaskPatch{Title: &title, Description: &desc})
				fmt.Fprintln(out, "Saved.")
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&apply, "apply", false, "save the refined text to the task")
	return cmd
}

func (c *cli) subtasksCmd() *cobra.Command {
	var apply bool
	cmd := &cobra.Command{
		Use:   "subtasks <id>",
		Short: "Suggest actionable subtasks for a task",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := c.openEnv(cmd.Context(), true)
			if err != nil {
				return err
			}
			defer e.Close()

			task, err := resolveTask(e.tasks, args[0])
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			steps, ok := e.gateway.SuggestSubtasks(cmd.Context(), task.Title, task.Description)
			if !ok || len(steps) == 0 {
				fmt.Fprintln(out, "No subtask suggestions right now.")
				return nil
			}
			for i, s := range steps {
				fmt.Fprintf(out, "%d. %s\n", i+1, s)
			}

			if apply {
				added := 0
				for _, s := range steps {
					if strings.TrimSpace(s) == "" {
						continue
					}
					if _, ok := e.tasks.AddSubtask(cmd.Context(), task.ID, s); ok {
						added++
					}
				}
				fmt.Fprintf(out, "Added %d subtasks.\n", added)
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&apply, "apply", false, "add the suggestions as subtasks")
	return cmd
}
