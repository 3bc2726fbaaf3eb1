package help

import (
	"strings"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/lipgloss"

	"github.com/nhle/taskchat/internal/keys"
	"github.com/nhle/taskchat/internal/theme"
)

// commands lists the CLI entry points shown under the key bindings.
var commands = [][2]string{
	{"taskchat ask <text>", "send one message without the TUI"},
	{"taskchat task add|list|done|rm|stats", "manage tasks directly"},
	{"taskchat sessions", "list chat sessions"},
	{"taskchat refine <id>", "let the assistant polish a task"},
	{"taskchat subtasks <id>", "suggest subtasks for a task"},
	{"taskchat profile", "edit the profile used in prompts"},
	{"taskchat key set|delete <name>", "manage API keys in the keyring"},
}

// Model is the help overlay view.
type Model struct {
	keys   *keys.KeyMap
	help   help.Model
	width  int
	height int
}

// New creates a new help view model.
func New(keys *keys.KeyMap, width, height int) Model {
	h := help.New()
	h.Width = width
	return Model{
		keys:   keys,
		help:   h,
		width:  width,
		height: height,
	}
}

// ShortView renders the one-line key hints for the status bar.
func (m Model) ShortView() string {
	m.help.ShowAll = false
	return m.help.View(m.keys)
}

// View renders the help overlay.
func (m Model) View() string {
	titleStyle := lipgloss.NewStyle().
		Bold(true).
		Foreground(theme.ColorWhite).
		MarginBottom(1)

	m.help.Width = m.width - 4
	m.help.ShowAll = true
	helpText := m.help.View(m.keys)

	cmdStyle := lipgloss.NewStyle().Foreground(theme.ColorBlue).Width(38)
	var lines []string
	for _, c := range commands {
		lines = append(lines, cmdStyle.Render(c[0])+theme.HelpStyle.Render(c[1]))
	}

	content := lipgloss.JoinVertical(
		lipgloss.Left,
		titleStyle.Render("Keyboard Shortcuts"),
		helpText,
		"",
		titleStyle.Render("Commands"),
		strings.Join(lines, "\n"),
	)

	return theme.PanelStyle.
		Width(m.width - 2).
		Height(m.height - 2).
		Render(content)
}

// SetSize updates the help view dimensions.
func (m *Model) SetSize(width, height int) {
	m.width = width
	m.height = height
	m.help.Width = width - 4
}
