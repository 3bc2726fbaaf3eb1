package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/nhle/taskchat/internal/chat"
	"github.com/nhle/taskchat/internal/model"
)

func (c *cli) askCmd() *cobra.Command {
	var newSession bool
	cmd := &cobra.Command{
		Use:   "ask <message>",
		Short: "Send one message to the assistant",
		Long: `Send one message on the current chat session and print the reply as it
streams. Reads the message from stdin when no argument is given.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			text := strings.Join(args, " ")
			if strings.TrimSpace(text) == "" && c.in != nil {
				data, err := io.ReadAll(c.in)
				if err != nil {
					return fmt.Errorf("reading stdin: %w", err)
				}
				text = string(data)
			}

			e, err := c.openEnv(cmd.Context(), true)
			if err != nil {
				return err
			}
			defer e.Close()

			if newSession {
				e.sessions.StartNewSession(cmd.Context())
			}

			out := cmd.OutOrStdout()
			reply, err := e.service.SendMessage(cmd.Context(), text, func(ev chat.Event) {
				if ev.Kind == chat.EventChunk {
					fmt.Fprint(out, ev.Chunk)
				}
			})
			if err != nil {
				return err
			}
			fmt.Fprintln(out)
			printReplyDetails(out, e, reply)
			return nil
		},
	}
	cmd.Flags().BoolVarP(&newSession, "new", "n", false, "start a new chat session first")
	return cmd
}

// printReplyDetails prints what streaming does not show: the applied
// action, a pending draft, and suggestions.
func printReplyDetails(out io.Writer, e *env, reply chat.Reply) {
	// A reply for a session that is not current streams no chunks.
	if msg, ok := e.sessions.Message(reply.SessionID, reply.MessageID); ok && e.sessions.CurrentID() != reply.SessionID {
		fmt.Fprintln(out, msg.Text)
	}

	o := reply.Outcome
	switch {
	case o.Applied && o.Task != nil:
		fmt.Fprintf(out, "  → %s %s (%s)\n", strings.ToLower(string(o.Type)), o.Task.Title, o.Task.ID)
	case o.Applied:
		fmt.Fprintf(out, "  → %s %s\n", strings.ToLower(string(o.Type)), o.TaskID)
	case o.Type != "" && o.Type != model.ActionNone && !o.Duplicate:
		fmt.Fprintf(out, "  → %s skipped: %s\n", strings.ToLower(string(o.Type)), o.Reason)
	}

	if p := reply.Result.PendingTask; p != nil {
		fmt.Fprintf(out, "  draft: %s", p.Title)
		if p.DueDate != "" {
			fmt.Fprintf(out, " (due %s)", p.DueDate)
		}
		fmt.Fprintln(out)
	}
	for _, s := range reply.Result.Suggestions {
		fmt.Fprintf(out, "  • %s\n", s)
	}
}
