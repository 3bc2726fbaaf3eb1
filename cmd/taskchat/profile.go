package main

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/charmbracelet/huh"
	"github.com/spf13/cobra"

	"github.com/nhle/taskchat/internal/chat"
	"github.com/nhle/taskchat/internal/model"
)

func (c *cli) profileCmd() *cobra.Command {
	var p model.UserProfile
	var show bool
	cmd := &cobra.Command{
		Use:   "profile",
		Short: "Edit the profile the assistant uses to personalize replies",
		Long: "Without flags, opens an interactive form. Pass --name (and optionally the\n" +
			"other fields) to set the profile non-interactively.",
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := c.openEnv(cmd.Context(), false)
			if err != nil {
				return err
			}
			defer e.Close()

			out := cmd.OutOrStdout()
			current, err := chat.LoadProfile(cmd.Context(), e.db)
			if err != nil {
				return err
			}
			if show {
				if current == nil {
					fmt.Fprintln(out, "No profile set.")
					return nil
				}
				printProfile(cmd, *current)
				return nil
			}

			if p.Name == "" {
				if current != nil {
					p = *current
				}
				if err := profileForm(&p).WithInput(c.in).WithOutput(out).Run(); err != nil {
					if errors.Is(err, huh.ErrUserAborted) {
						fmt.Fprintln(out, "Cancelled.")
						return nil
					}
					return err
				}
			}
			p.Name = strings.TrimSpace(p.Name)
			if p.Name == "" {
				return errors.New("name is required")
			}
			if err := chat.SaveProfile(cmd.Context(), e.db, p); err != nil {
				return err
			}
			fmt.Fprintf(out, "Saved profile for %s.\n", p.Name)
			return nil
		},
	}
	f := cmd.Flags()
	f.BoolVar(&show, "show", false, "print the saved profile")
	f.StringVar(&p.Name, "name", "", "your name")
	f.IntVar(&p.Age, "age", 0, "your age")
	f.StringVar(&p.Gender, "gender", "", "male, female, other or prefer_not_to_say")
	f.StringVar(&p.Career, "career", "", "your occupation")
	f.StringVar(&p.Nationality, "nationality", "", "your nationality")
	return cmd
}

func profileForm(p *model.UserProfile) *huh.Form {
	age := ""
	if p.Age > 0 {
		age = strconv.Itoa(p.Age)
	}
	careers := make([]huh.Option[string], 0, len(model.CareerOptions)+1)
	careers = append(careers, huh.NewOption("(skip)", ""))
	for _, c := range model.CareerOptions {
		careers = append(careers, huh.NewOption(c, c))
	}

	return huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("Name").
				Description("How the assistant should address you").
				Value(&p.Name).
				Validate(validateRequired("Name")),
			huh.NewInput().
				Title("Age").
				Placeholder("optional").
				Value(&age).
				Validate(func(s string) error {
					s = strings.TrimSpace(s)
					if s == "" {
						p.Age = 0
						return nil
					}
					n, err := strconv.Atoi(s)
					if err != nil || n <= 0 || n > 150 {
						return errors.New("age must be a number between 1 and 150")
					}
					p.Age = n
					return nil
				}),
			huh.NewSelect[string]().
				Title("Gender").
				Options(
					huh.NewOption("(skip)", ""),
					huh.NewOption("Male", model.GenderMale),
					huh.NewOption("Female", model.GenderFemale),
					huh.NewOption("Other", model.GenderOther),
					huh.NewOption("Prefer not to say", model.GenderPreferNotToSay),
				).
				Value(&p.Gender),
			huh.NewSelect[string]().
				Title("Career").
				Options(careers...).
				Value(&p.Career),
			huh.NewInput().
				Title("Nationality").
				Placeholder("optional").
				Value(&p.Nationality),
		),
	)
}

func validateRequired(field string) func(string) error {
	return func(s string) error {
		if strings.TrimSpace(s) == "" {
			return fmt.Errorf("%s is required", field)
		}
		return nil
	}
}

func printProfile(cmd *cobra.Command, p model.UserProfile) {
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Name:        %s\n", p.Name)
	if p.Age > 0 {
		fmt.Fprintf(out, "Age:         %d\n", p.Age)
	}
	if p.Gender != "" {
		fmt.Fprintf(out, "Gender:      %s\n", p.Gender)
	}
	if p.Career != "" {
		fmt.Fprintf(out, "Career:      %s\n", p.Career)
	}
	if p.Nationality != "" {
		fmt.Fprintf(out, "Nationality: %s\n", p.Nationality)
	}
}
