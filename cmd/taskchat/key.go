package main

import (
	"errors"
	"fmt"
	"strings"

	"github.com/charmbracelet/huh"
	"github.com/spf13/cobra"

	"github.com/nhle/taskchat/internal/credential"
)

func (c *cli) keyCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "key",
		Short: "Manage provider API keys in the system keyring",
	}
	cmd.AddCommand(c.keySetCmd(), c.keyDeleteCmd())
	return cmd
}

func (c *cli) keySetCmd() *cobra.Command {
	var value string
	cmd := &cobra.Command{
		Use:   "set <name>",
		Short: "Store an API key, e.g. gemini-api-key",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			name := args[0]
			out := cmd.OutOrStdout()
			if value == "" {
				err := huh.NewForm(
					huh.NewGroup(
						huh.NewInput().
							Title(name).
							Description("Stored in the system keyring; " + credential.EnvName(name) + " overrides it").
							EchoMode(huh.EchoModePassword).
							Value(&value).
							Validate(validateRequired("Key")),
					),
				).WithInput(c.in).WithOutput(out).Run()
				if errors.Is(err, huh.ErrUserAborted) {
					fmt.Fprintln(out, "Cancelled.")
					return nil
				}
				if err != nil {
					return err
				}
			}
			value = strings.TrimSpace(value)
			if value == "" {
				return errors.New("key is empty")
			}
			if err := credential.Set(name, value); err != nil {
				return fmt.Errorf("storing %s: %w", name, err)
			}
			fmt.Fprintf(out, "Stored %s.\n", name)
			return nil
		},
	}
	cmd.Flags().StringVar(&value, "value", "", "key value (prompted when omitted)")
	return cmd
}

func (c *cli) keyDeleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:     "delete <name>",
		Aliases: []string{"rm"},
		Short:   "Remove an API key from the keyring",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			err := credential.Delete(args[0])
			if errors.Is(err, credential.ErrNotFound) {
				return fmt.Errorf("%s is not stored", args[0])
			}
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Deleted %s.\n", args[0])
			return nil
		},
	}
}
