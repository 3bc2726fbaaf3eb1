package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func (c *cli) sessionsCmd() *cobra.Command {
	var switchTo string
	cmd := &cobra.Command{
		Use:   "sessions",
		Short: "List chat sessions, most recent first",
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := c.openEnv(cmd.Context(), false)
			if err != nil {
				return err
			}
			defer e.Close()

			out := cmd.OutOrStdout()
			if switchTo != "" {
				for _, s := range e.sessions.Sessions() {
					if s.ID == switchTo || shortID(s.ID) == switchTo {
						e.sessions.SwitchSession(cmd.Context(), s.ID)
						fmt.Fprintf(out, "Switched to %q\n", s.Title)
						return nil
					}
				}
				return fmt.Errorf("no session matches %q", switchTo)
			}

			list := e.sessions.Sessions()
			if len(list) == 0 {
				fmt.Fprintln(out, "No chat sessions found.")
				fmt.Fprintln(out, "Start one with: taskchat ask \"hello\"")
				return nil
			}
			current := e.sessions.CurrentID()
			for _, s := range list {
				marker := " "
				if s.ID == current {
					marker = "*"
				}
				fmt.Fprintf(out, "%s %s  %-32s  %3d msgs  %s\n",
					marker, shortID(s.ID), s.Title, len(s.Messages), s.UpdatedAt.Local().Format("2006-01-02 15:04"))
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&switchTo, "switch", "", "make the session with this id current")
	return cmd
}
