package main

import (
	"fmt"
	"io"
	"os"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/nhle/taskchat/internal/ai"
	"github.com/nhle/taskchat/internal/app"
	"github.com/nhle/taskchat/internal/model"
)

// cli carries flags and test seams shared by every command.
type cli struct {
	cfgPath string

	// completer replaces the configured provider when set.
	completer ai.Completer

	// keys replaces the environment and keyring lookup when non-nil.
	keys []string

	// in is read by commands that accept piped input.
	in io.Reader
}

func newRootCmd() *cobra.Command {
	return (&cli{in: os.Stdin}).rootCmd()
}

func (c *cli) configPath() string {
	if c.cfgPath != "" {
		return c.cfgPath
	}
	return model.DefaultConfigPath()
}

func (c *cli) rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "taskchat",
		Short: "A task manager you can talk to",
		Long: `taskchat keeps a personal task list and an AI assistant that can
create, update, complete and delete tasks from plain-language requests.

Run without arguments to open the chat interface.`,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := c.openEnv(cmd.Context(), true)
			if err != nil {
				return err
			}
			defer e.Close()

			if e.sessions.CurrentID() == "" {
				e.sessions.StartNewSession(cmd.Context())
			}
			m := app.New(e.service, e.tasks, app.Options{NoCredentials: e.keyCount == 0})
			if _, err := tea.NewProgram(m, tea.WithAltScreen()).Run(); err != nil {
				return fmt.Errorf("running interface: %w", err)
			}
			return nil
		},
	}
	root.PersistentFlags().StringVar(&c.cfgPath, "config", "", "config file (default ~/.config/taskchat/config.yaml)")

	root.AddCommand(
		c.askCmd(),
		c.taskCmd(),
		c.sessionsCmd(),
		c.refineCmd(),
		c.subtasksCmd(),
		c.profileCmd(),
		c.keyCmd(),
	)
	return root
}
