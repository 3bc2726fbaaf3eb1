package app

import (
	"fmt"
	"time"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/nhle/taskchat/internal/chat"
	"github.com/nhle/taskchat/internal/keys"
	"github.com/nhle/taskchat/internal/tasks"
	"github.com/nhle/taskchat/internal/theme"
	"github.com/nhle/taskchat/internal/ui"
	chatview "github.com/nhle/taskchat/internal/ui/chat"
	helpview "github.com/nhle/taskchat/internal/ui/help"
	"github.com/nhle/taskchat/internal/ui/tasklist"
)

// ViewState represents the current active view in the application.
type ViewState int

const (
	ViewChat ViewState = iota
	ViewHelp
)

// Model is the root Bubble Tea model: a header with the session title and
// task stats, the chat panel beside the task pane, and a status bar.
type Model struct {
	currentView ViewState
	layout      ui.Layout
	service     *chat.Service
	tasks       *tasks.Store
	keys        *keys.KeyMap
	chatView    chatview.Model
	taskPane    tasklist.Model
	helpView    helpview.Model
	showTasks   bool
	now         func() time.Time
	ready       bool
}

// Options configures the root model.
type Options struct {
	// NoCredentials shows the key setup notice instead of the input box.
	NoCredentials bool
}

// New creates the root application model.
func New(service *chat.Service, taskStore *tasks.Store, opts Options) Model {
	k := keys.DefaultKeyMap()
	m := Model{
		currentView: ViewChat,
		service:     service,
		tasks:       taskStore,
		keys:        k,
		chatView:    chatview.New(service, k, opts.NoCredentials, 80, 24),
		taskPane:    tasklist.New(30, 20),
		helpView:    helpview.New(k, 80, 24),
		showTasks:   true,
		now:         time.Now,
	}
	m.taskPane.SetTasks(taskStore.List())
	return m
}

// clockTickMsg re-renders due labels and overdue counts as time passes.
type clockTickMsg time.Time

const clockInterval = time.Minute

func clockTick() tea.Cmd {
	return tea.Tick(clockInterval, func(t time.Time) tea.Msg {
		return clockTickMsg(t)
	})
}

// Init returns the initial commands.
func (m Model) Init() tea.Cmd {
	return tea.Batch(m.chatView.Init(), clockTick())
}

// Update handles messages and dispatches to the active view.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.layout = ui.NewLayout(msg.Width, msg.Height)
		m.ready = true
		m.resize()
		return m, nil

	case clockTickMsg:
		m.taskPane.SetTasks(m.tasks.List())
		return m, clockTick()

	case chatview.StreamEventMsg, chatview.ReplyDoneMsg, chatview.TaskConfirmedMsg:
		// Actions and confirmations may have changed the task list.
		m.taskPane.SetTasks(m.tasks.List())
		var cmd tea.Cmd
		m.chatView, cmd = m.chatView.Update(msg)
		return m, cmd

	case tea.KeyMsg:
		switch {
		case key.Matches(msg, m.keys.Quit):
			if m.currentView == ViewHelp {
				m.currentView = ViewChat
				return m, nil
			}
			return m, tea.Quit

		case key.Matches(msg, m.keys.Help):
			if m.currentView == ViewHelp {
				m.currentView = ViewChat
			} else {
				m.currentView = ViewHelp
			}
			return m, nil

		case key.Matches(msg, m.keys.ToggleTasks):
			m.showTasks = !m.showTasks
			m.resize()
			return m, nil
		}

		if m.currentView == ViewHelp {
			return m, nil
		}
	}

	var cmd tea.Cmd
	m.chatView, cmd = m.chatView.Update(msg)
	return m, cmd
}

func (m *Model) resize() {
	height := m.layout.ContentHeight()
	chatWidth, taskWidth := m.layout.SplitWidth()
	if !m.showTasks {
		chatWidth, taskWidth = m.layout.ContentWidth(), 0
	}
	m.chatView.SetSize(chatWidth, height)
	if taskWidth > 0 {
		m.taskPane.SetSize(taskWidth-4, height-2)
	}
	m.helpView.SetSize(m.layout.ContentWidth(), height)
}

// View renders the full application view.
func (m Model) View() string {
	if !m.ready {
		return "Loading..."
	}

	header := m.layout.RenderHeader(m.title(), m.statsLine())

	var content string
	if m.currentView == ViewHelp {
		content = m.helpView.View()
	} else {
		content = m.chatView.View()
		if _, taskWidth := m.layout.SplitWidth(); m.showTasks && taskWidth > 0 {
			pane := theme.PanelStyle.
				Width(taskWidth - 2).
				Height(m.layout.ContentHeight() - 2).
				Render(m.taskPane.View())
			content = lipgloss.JoinHorizontal(lipgloss.Top, content, pane)
		}
	}

	return m.layout.RenderWithFrame(header, content, m.layout.RenderStatusBar(m.statusLine()))
}

func (m Model) title() string {
	s, ok := m.service.Sessions().Current()
	if !ok {
		return "TaskChat"
	}
	return "TaskChat · " + s.Title
}

func (m Model) statsLine() string {
	st := m.tasks.Stats(m.now())
	line := fmt.Sprintf("%d tasks · %d done · %d pending", st.Total, st.Completed, st.Pending)
	if st.Overdue > 0 {
		line += fmt.Sprintf(" · %d overdue", st.Overdue)
	}
	return line
}

func (m Model) statusLine() string {
	status, err := m.chatView.Status()
	switch {
	case err != nil:
		return theme.ErrorStyle.Render(err.Error())
	case m.chatView.Busy():
		return "Assistant is typing..."
	case status != "":
		return status
	default:
		return m.helpView.ShortView()
	}
}
