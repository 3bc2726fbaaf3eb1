package tasklist

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/nhle/taskchat/internal/model"
	"github.com/nhle/taskchat/internal/theme"
)

// renderTask draws one task line plus a subtask progress suffix.
func renderTask(t model.Task, now time.Time, width int) string {
	prefix := "○"
	if t.IsCompleted {
		prefix = "✓"
	}

	title := t.Title
	if t.IsCompleted {
		title = theme.DimmedStyle.Render(title)
	}

	parts := []string{prefix, title}
	if t.Priority != "" {
		parts = append(parts, theme.PriorityStyle(t.Priority).Render(priorityLabel(t.Priority)))
	}
	if t.DueDate != nil {
		due := DueLabel(*t.DueDate, now)
		if t.IsOverdue(now) {
			due = lipgloss.NewStyle().Foreground(theme.ColorRed).Render(due)
		} else {
			due = theme.HelpStyle.Render(due)
		}
		parts = append(parts, due)
	}
	if n := len(t.Subtasks); n > 0 {
		done := 0
		for _, s := range t.Subtasks {
			if s.IsCompleted {
				done++
			}
		}
		parts = append(parts, theme.HelpStyle.Render(fmt.Sprintf("[%d/%d]", done, n)))
	}

	line := strings.Join(parts, " ")
	if width > 0 {
		line = lipgloss.NewStyle().MaxWidth(width).Render(line)
	}
	return line
}

func priorityLabel(p model.Priority) string {
	switch p {
	case model.PriorityHigh:
		return "!!!"
	case model.PriorityMedium:
		return "!!"
	case model.PriorityLow:
		return "!"
	default:
		return ""
	}
}

// DueLabel formats a due date relative to now: a clock time for today and
// tomorrow, a weekday within the week, a date otherwise.
func DueLabel(due, now time.Time) string {
	due = due.In(now.Location())
	y, m, d := now.Date()
	today := time.Date(y, m, d, 0, 0, 0, 0, now.Location())
	days := int(due.Sub(today).Hours() / 24)
	if due.Before(today) {
		days = -1
	}

	clock := ""
	if due.Hour() != 0 || due.Minute() != 0 {
		clock = " " + due.Format("15:04")
	}

	switch {
	case days == 0:
		return "today" + clock
	case days == 1:
		return "tomorrow" + clock
	case days > 1 && days < 7:
		return due.Format("Mon") + clock
	default:
		return due.Format("Jan 02") + clock
	}
}
