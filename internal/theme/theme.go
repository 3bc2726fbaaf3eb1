package theme

import (
	"github.com/charmbracelet/lipgloss"

	"github.com/nhle/taskchat/internal/model"
)

// Adaptive color pairs (dark terminal value, light terminal value).
var (
	ColorBlue    = lipgloss.AdaptiveColor{Dark: "#5B9BD5", Light: "#2B6CB0"}
	ColorGreen   = lipgloss.AdaptiveColor{Dark: "#6BCB77", Light: "#2F855A"}
	ColorYellow  = lipgloss.AdaptiveColor{Dark: "#FFD93D", Light: "#B7791F"}
	ColorRed     = lipgloss.AdaptiveColor{Dark: "#FF6B6B", Light: "#C53030"}
	ColorOrange  = lipgloss.AdaptiveColor{Dark: "#FFA94D", Light: "#C05621"}
	ColorMagenta = lipgloss.AdaptiveColor{Dark: "#CC5DE8", Light: "#805AD5"}
	ColorGray    = lipgloss.AdaptiveColor{Dark: "#868E96", Light: "#718096"}
	ColorWhite   = lipgloss.AdaptiveColor{Dark: "#F8F9FA", Light: "#1A202C"}
	ColorSubtle  = lipgloss.AdaptiveColor{Dark: "#495057", Light: "#CBD5E0"}
	ColorBorder  = lipgloss.AdaptiveColor{Dark: "#495057", Light: "#E2E8F0"}
)

// HeaderStyle is used for the top bar and the application title.
var HeaderStyle = lipgloss.NewStyle().
	Bold(true).
	Foreground(ColorWhite).
	Background(ColorBlue).
	Padding(0, 1)

// StatusBarStyle is used for the bottom status bar.
var StatusBarStyle = lipgloss.NewStyle().
	Foreground(ColorWhite).
	Background(ColorSubtle).
	Padding(0, 1)

// PanelStyle wraps the chat and task panes.
var PanelStyle = lipgloss.NewStyle().
	Padding(0, 1).
	Border(lipgloss.RoundedBorder()).
	BorderForeground(ColorBorder)

// HelpStyle is used for keyboard shortcut hints and help text.
var HelpStyle = lipgloss.NewStyle().
	Foreground(ColorGray).
	Italic(true)

// DimmedStyle renders completed tasks and secondary text.
var DimmedStyle = lipgloss.NewStyle().
	Foreground(ColorGray).
	Strikethrough(true)

// SuggestionStyle renders suggested follow-up prompts.
var SuggestionStyle = lipgloss.NewStyle().
	Foreground(ColorMagenta).
	Border(lipgloss.RoundedBorder()).
	BorderForeground(ColorSubtle).
	Padding(0, 1)

// TaskCardStyle frames task snapshots attached to replies.
var TaskCardStyle = lipgloss.NewStyle().
	Border(lipgloss.NormalBorder(), false, false, false, true).
	BorderForeground(ColorGreen).
	PaddingLeft(1)

// ErrorStyle renders status bar errors.
var ErrorStyle = lipgloss.NewStyle().
	Foreground(ColorRed).
	Bold(true)

// TabStyle and ActiveTabStyle render the session strip.
var (
	TabStyle = lipgloss.NewStyle().
			Foreground(ColorGray).
			Padding(0, 1)
	ActiveTabStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(ColorWhite).
			Background(ColorSubtle).
			Padding(0, 1)
)

// RoleStyle returns the label style for a message author.
func RoleStyle(role model.Role) lipgloss.Style {
	base := lipgloss.NewStyle().Bold(true)
	if role == model.RoleUser {
		return base.Foreground(ColorBlue)
	}
	return base.Foreground(ColorGreen)
}

// PriorityStyle returns a color-coded style for a task priority.
func PriorityStyle(p model.Priority) lipgloss.Style {
	base := lipgloss.NewStyle().Bold(true)

	switch p {
	case model.PriorityHigh:
		return base.Foreground(ColorRed)
	case model.PriorityMedium:
		return base.Foreground(ColorOrange)
	case model.PriorityLow:
		return base.Foreground(ColorBlue)
	default:
		return base.Foreground(ColorGray)
	}
}

// SectionStyle returns the heading style for a task group.
func SectionStyle(title string) lipgloss.Style {
	base := lipgloss.NewStyle().Bold(true).Underline(true)

	switch title {
	case "Overdue":
		return base.Foreground(ColorRed)
	case "Today":
		return base.Foreground(ColorYellow)
	case "Tomorrow":
		return base.Foreground(ColorOrange)
	case "Upcoming":
		return base.Foreground(ColorBlue)
	default:
		return base.Foreground(ColorGray)
	}
}
