package chat

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textarea"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/nhle/taskchat/internal/chat"
	"github.com/nhle/taskchat/internal/keys"
	"github.com/nhle/taskchat/internal/model"
	"github.com/nhle/taskchat/internal/theme"
)

// StreamEventMsg carries one progress event of an in-flight reply.
type StreamEventMsg struct {
	Event chat.Event
	ch    <-chan tea.Msg
}

// ReplyDoneMsg is sent when a SendMessage call returns.
type ReplyDoneMsg struct {
	Reply chat.Reply
	Err   error
}

// TaskConfirmedMsg is sent after a pending task draft was created.
type TaskConfirmedMsg struct {
	Task model.Task
	Err  error
}

// Model is the chat panel: the current session's conversation, a session
// strip, and the input box.
type Model struct {
	service       *chat.Service
	input         textarea.Model
	viewport      viewport.Model
	keys          *keys.KeyMap
	width         int
	height        int
	noCredentials bool
	sending       bool
	suggestion    int
	status        string
	err           error
}

// New creates a chat panel over service. noCredentials shows a setup notice
// instead of sending requests that can only fail.
func New(service *chat.Service, k *keys.KeyMap, noCredentials bool, width, height int) Model {
	ta := textarea.New()
	ta.Placeholder = "Ask me to create, update, or plan your tasks..."
	ta.Prompt = "> "
	ta.ShowLineNumbers = false
	ta.SetWidth(width - 4)
	ta.SetHeight(3)
	ta.CharLimit = 2000
	ta.KeyMap.InsertNewline = k.Newline
	ta.Focus()

	vp := viewport.New(width-4, viewportHeight(height))
	vp.Style = lipgloss.NewStyle()

	m := Model{
		service:       service,
		input:         ta,
		viewport:      vp,
		keys:          k,
		width:         width,
		height:        height,
		noCredentials: noCredentials,
	}
	m.Refresh()
	return m
}

func viewportHeight(height int) int {
	// Session strip, separator, input and borders.
	h := height - 9
	if h < 4 {
		h = 4
	}
	return h
}

// Init returns the initial command for the chat panel.
func (m Model) Init() tea.Cmd {
	return textarea.Blink
}

// Update handles messages for the chat panel.
func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	switch msg := msg.(type) {
	case StreamEventMsg:
		m.Refresh()
		return m, waitForEvent(msg.ch)

	case ReplyDoneMsg:
		m.sending = false
		if msg.Err != nil {
			m.err = msg.Err
		} else {
			m.err = nil
			m.status = outcomeStatus(msg.Reply.Outcome)
		}
		m.suggestion = 0
		m.Refresh()
		return m, nil

	case TaskConfirmedMsg:
		if msg.Err != nil {
			m.err = msg.Err
		} else {
			m.err = nil
			m.status = fmt.Sprintf("Created task %q", msg.Task.Title)
		}
		m.Refresh()
		return m, nil

	case tea.KeyMsg:
		return m.handleKeyMsg(msg)
	}

	var cmds []tea.Cmd

	var taCmd tea.Cmd
	m.input, taCmd = m.input.Update(msg)
	if taCmd != nil {
		cmds = append(cmds, taCmd)
	}

	var vpCmd tea.Cmd
	m.viewport, vpCmd = m.viewport.Update(msg)
	if vpCmd != nil {
		cmds = append(cmds, vpCmd)
	}

	return m, tea.Batch(cmds...)
}

// handleKeyMsg processes keyboard input for the chat panel.
func (m Model) handleKeyMsg(msg tea.KeyMsg) (Model, tea.Cmd) {
	ctx := context.Background()
	sessions := m.service.Sessions()

	switch {
	case key.Matches(msg, m.keys.Send):
		if m.noCredentials {
			return m, nil
		}
		if m.Busy() {
			m.status = "Wait for the assistant to finish replying."
			return m, nil
		}
		text := strings.TrimSpace(m.input.Value())
		if text == "" {
			return m, nil
		}
		m.sending = true
		m.input.Reset()
		m.err = nil
		m.status = ""
		if sessions.CurrentID() == "" {
			sessions.StartNewSession(ctx)
		}
		return m, m.sendMessage(text)

	case key.Matches(msg, m.keys.NewSession):
		sessions.StartNewSession(ctx)
		m.status = ""
		m.suggestion = 0
		m.Refresh()
		return m, nil

	case key.Matches(msg, m.keys.NextSession):
		m.cycleSession(1)
		return m, nil

	case key.Matches(msg, m.keys.PrevSession):
		m.cycleSession(-1)
		return m, nil

	case key.Matches(msg, m.keys.DeleteSession):
		m.deleteCurrent()
		return m, nil

	case key.Matches(msg, m.keys.ConfirmTask):
		sid, mid, ok := m.pendingDraft()
		if !ok {
			m.status = "No task draft to create"
			return m, nil
		}
		return m, m.confirmTask(sid, mid)

	case key.Matches(msg, m.keys.Suggestion):
		if s := m.suggestions(); len(s) > 0 {
			m.input.SetValue(s[m.suggestion%len(s)])
			m.input.CursorEnd()
			m.suggestion++
		}
		return m, nil

	case key.Matches(msg, m.keys.ScrollUp), key.Matches(msg, m.keys.ScrollDown):
		var cmd tea.Cmd
		m.viewport, cmd = m.viewport.Update(msg)
		return m, cmd
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

// sendMessage runs SendMessage in the background and feeds its events back
// through a channel, one message per wait.
func (m Model) sendMessage(text string) tea.Cmd {
	svc := m.service
	ch := make(chan tea.Msg, 64)
	go func() {
		defer close(ch)
		reply, err := svc.SendMessage(context.Background(), text, func(ev chat.Event) {
			ch <- StreamEventMsg{Event: ev, ch: ch}
		})
		ch <- ReplyDoneMsg{Reply: reply, Err: err}
	}()
	return waitForEvent(ch)
}

// waitForEvent returns a command that waits for the next event from a
// streaming reply.
func waitForEvent(ch <-chan tea.Msg) tea.Cmd {
	return func() tea.Msg {
		msg, ok := <-ch
		if !ok {
			return nil
		}
		return msg
	}
}

func (m Model) confirmTask(sessionID, messageID string) tea.Cmd {
	svc := m.service
	return func() tea.Msg {
		task, err := svc.ConfirmPendingTask(context.Background(), sessionID, messageID)
		return TaskConfirmedMsg{Task: task, Err: err}
	}
}

// cycleSession switches to the neighbouring session in most-recent-first
// order, wrapping around.
func (m *Model) cycleSession(step int) {
	sessions := m.service.Sessions()
	list := sessions.Sessions()
	if len(list) == 0 {
		return
	}
	idx := 0
	for i, s := range list {
		if s.ID == sessions.CurrentID() {
			idx = i
			break
		}
	}
	next := ((idx+step)%len(list) + len(list)) % len(list)
	sessions.SwitchSession(context.Background(), list[next].ID)
	m.status = ""
	m.suggestion = 0
	m.Refresh()
}

// deleteCurrent removes the current session and moves to the most recent
// remaining one, or a fresh session when none is left.
func (m *Model) deleteCurrent() {
	ctx := context.Background()
	sessions := m.service.Sessions()
	id := sessions.CurrentID()
	if id == "" || !sessions.RemoveSession(ctx, id) {
		return
	}
	if list := sessions.Sessions(); len(list) > 0 {
		sessions.SwitchSession(ctx, list[0].ID)
	} else {
		sessions.StartNewSession(ctx)
	}
	m.status = "Chat deleted"
	m.Refresh()
}

// pendingDraft finds the latest uncreated task draft in the current session.
func (m Model) pendingDraft() (sessionID, messageID string, ok bool) {
	s, found := m.service.Sessions().Current()
	if !found {
		return "", "", false
	}
	for i := len(s.Messages) - 1; i >= 0; i-- {
		p := s.Messages[i].PendingTask
		if p != nil && !p.IsCreated {
			return s.ID, s.Messages[i].ID, true
		}
	}
	return "", "", false
}

// suggestions returns the suggestions of the last model message.
func (m Model) suggestions() []string {
	s, ok := m.service.Sessions().Current()
	if !ok || len(s.Messages) == 0 {
		return nil
	}
	last := s.Messages[len(s.Messages)-1]
	if last.Role != model.RoleModel {
		return nil
	}
	return last.Suggestions
}

func outcomeStatus(o chat.Outcome) string {
	if o.Duplicate || o.Type == "" || o.Type == model.ActionNone {
		return ""
	}
	if !o.Applied {
		return fmt.Sprintf("%s skipped: %s", strings.ToLower(string(o.Type)), o.Reason)
	}
	title := ""
	if o.Task != nil {
		title = " " + fmt.Sprintf("%q", o.Task.Title)
	}
	switch o.Type {
	case model.ActionCreate:
		return "Created task" + title
	case model.ActionUpdate:
		return "Updated task" + title
	case model.ActionComplete:
		return "Completed task" + title
	case model.ActionDelete:
		return "Deleted task"
	}
	return ""
}

// Status returns the latest status line and error for the status bar.
func (m Model) Status() (string, error) {
	return m.status, m.err
}

// Refresh re-renders the conversation from the session manager and scrolls
// to the bottom.
func (m *Model) Refresh() {
	m.viewport.SetContent(m.renderConversation())
	m.viewport.GotoBottom()
}

// renderConversation builds the conversation display string.
func (m Model) renderConversation() string {
	s, ok := m.service.Sessions().Current()
	if !ok {
		return theme.HelpStyle.Render("Press ctrl+n to start a chat.")
	}

	width := m.width - 6
	contentStyle := lipgloss.NewStyle().Foreground(theme.ColorWhite).Width(width)

	var sections []string
	for i, msg := range s.Messages {
		label := "Assistant:"
		if msg.Role == model.RoleUser {
			label = "You:"
		}
		sections = append(sections, theme.RoleStyle(msg.Role).Render(label))

		if msg.Role == model.RoleModel && msg.Text == "" {
			sections = append(sections, theme.HelpStyle.Render("..."))
		} else {
			sections = append(sections, contentStyle.Render(msg.Text))
		}

		if card := renderAttachments(msg); card != "" {
			sections = append(sections, card)
		}
		if i == len(s.Messages)-1 && msg.Role == model.RoleModel && len(msg.Suggestions) > 0 {
			sections = append(sections, renderSuggestions(msg.Suggestions, width))
		}
		sections = append(sections, "")
	}
	return strings.Join(sections, "\n")
}

func renderAttachments(msg model.ChatMessage) string {
	var lines []string
	if len(msg.RelatedTask) > 0 {
		if t, err := msg.RelatedTask.Task(); err == nil && t.Title != "" {
			lines = append(lines, taskLine(t))
		}
	}
	for _, snap := range msg.RelatedTasks {
		if t, err := snap.Task(); err == nil && t.Title != "" {
			lines = append(lines, taskLine(t))
		}
	}
	if p := msg.PendingTask; p != nil {
		line := "Draft: " + p.Title
		if p.DueDate != "" {
			line += " · due " + p.DueDate
		}
		if p.Priority != "" {
			line += " · " + string(p.Priority)
		}
		switch {
		case p.IsCreated:
			line += "  (created)"
		case p.IsComplete:
			line += "  [ctrl+y to create]"
		}
		lines = append(lines, line)
	}
	if len(lines) == 0 {
		return ""
	}
	return theme.TaskCardStyle.Render(strings.Join(lines, "\n"))
}

func taskLine(t model.Task) string {
	mark := "○"
	if t.IsCompleted {
		mark = "✓"
	}
	line := mark + " " + t.Title
	if t.DueDate != nil {
		line += " · " + t.DueDate.Local().Format("Jan 02 15:04")
	}
	if t.Priority != "" {
		line += " · " + theme.PriorityStyle(t.Priority).Render(string(t.Priority))
	}
	return line
}

func renderSuggestions(suggestions []string, width int) string {
	chips := make([]string, 0, len(suggestions))
	used := 0
	for _, s := range suggestions {
		chip := theme.SuggestionStyle.Render(s)
		if used+lipgloss.Width(chip) > width && len(chips) > 0 {
			break
		}
		used += lipgloss.Width(chip)
		chips = append(chips, chip)
	}
	return lipgloss.JoinHorizontal(lipgloss.Top, chips...)
}

// renderSessionStrip lists sessions most recent first, highlighting the
// current one.
func (m Model) renderSessionStrip() string {
	sessions := m.service.Sessions()
	current := sessions.CurrentID()

	var tabs []string
	used := 0
	for _, s := range sessions.Sessions() {
		title := s.Title
		if r := []rune(title); len(r) > 18 {
			title = string(r[:17]) + "…"
		}
		style := theme.TabStyle
		if s.ID == current {
			style = theme.ActiveTabStyle
		}
		tab := style.Render(title)
		if used+lipgloss.Width(tab) > m.width-6 {
			break
		}
		used += lipgloss.Width(tab)
		tabs = append(tabs, tab)
	}
	return lipgloss.JoinHorizontal(lipgloss.Top, tabs...)
}

// View renders the chat panel.
func (m Model) View() string {
	if m.noCredentials {
		return m.renderNoCredentials()
	}

	sepStyle := lipgloss.NewStyle().Foreground(theme.ColorSubtle)
	separator := sepStyle.Render(strings.Repeat("─", max(m.width-6, 0)))

	content := lipgloss.JoinVertical(
		lipgloss.Left,
		m.renderSessionStrip(),
		m.viewport.View(),
		separator,
		m.input.View(),
	)

	return theme.PanelStyle.
		Width(m.width - 2).
		Render(content)
}

// renderNoCredentials shows a message when no API key is configured.
func (m Model) renderNoCredentials() string {
	style := lipgloss.NewStyle().
		Width(m.width - 6).
		Align(lipgloss.Center, lipgloss.Center).
		Foreground(theme.ColorGray)

	msg := "The assistant needs an API key.\n\n" +
		"Store one in the system keyring:\n" +
		"  taskchat key set gemini-api-key\n\n" +
		"Or set the GEMINI_API_KEY environment variable.\n\n" +
		"Press Esc to quit."

	return theme.PanelStyle.
		Width(m.width - 2).
		Height(m.height - 2).
		Render(style.Render(msg))
}

// SetSize updates the chat panel dimensions.
func (m *Model) SetSize(width, height int) {
	m.width = width
	m.height = height
	m.input.SetWidth(width - 6)
	m.viewport.Width = width - 6
	m.viewport.Height = viewportHeight(height)
	m.Refresh()
}

// Focus gives keyboard focus to the text input.
func (m *Model) Focus() tea.Cmd {
	return m.input.Focus()
}

// Busy reports whether a reply is still being produced.
func (m Model) Busy() bool {
	return m.sending || m.service.Busy()
}
