package tasklist

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/nhle/taskchat/internal/model"
	"github.com/nhle/taskchat/internal/tasks"
	"github.com/nhle/taskchat/internal/theme"
)

// TasksChangedMsg carries a fresh task snapshot from the task store.
type TasksChangedMsg struct {
	Tasks []model.Task
}

// Model is the read-only task pane shown beside the chat. Tasks are grouped
// into Overdue, Today, Tomorrow, Upcoming and No Date sections.
type Model struct {
	viewport viewport.Model
	tasks    []model.Task
	now      func() time.Time
	width    int
	height   int
}

// New creates a task pane.
func New(width, height int) Model {
	vp := viewport.New(width, height)
	return Model{
		viewport: vp,
		now:      time.Now,
		width:    width,
		height:   height,
	}
}

// Init returns the initial command.
func (m Model) Init() tea.Cmd {
	return nil
}

// Update handles messages for the task pane.
func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	switch msg := msg.(type) {
	case TasksChangedMsg:
		m.SetTasks(msg.Tasks)
		return m, nil
	}

	var cmd tea.Cmd
	m.viewport, cmd = m.viewport.Update(msg)
	return m, cmd
}

// SetTasks replaces the displayed tasks.
func (m *Model) SetTasks(list []model.Task) {
	m.tasks = list
	m.viewport.SetContent(m.render())
}

// SetSize updates the pane dimensions.
func (m *Model) SetSize(width, height int) {
	m.width = width
	m.height = height
	m.viewport.Width = width
	m.viewport.Height = height
	m.viewport.SetContent(m.render())
}

// View renders the task pane.
func (m Model) View() string {
	return m.viewport.View()
}

func (m Model) render() string {
	if len(m.tasks) == 0 {
		return theme.HelpStyle.Render("No tasks yet. Ask the assistant to create one.")
	}

	now := m.now()
	var b strings.Builder
	for i, sec := range tasks.Group(m.tasks, now) {
		if i > 0 {
			b.WriteString("\n")
		}
		header := fmt.Sprintf("%s (%d)", sec.Title, len(sec.Tasks))
		b.WriteString(theme.SectionStyle(sec.Title).Render(header))
		b.WriteString("\n")
		for _, t := range sec.Tasks {
			b.WriteString(renderTask(t, now, m.width))
			b.WriteString("\n")
		}
	}
	return lipgloss.NewStyle().Width(m.width).Render(strings.TrimRight(b.String(), "\n"))
}
