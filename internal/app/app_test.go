package app

import (
	"context"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nhle/taskchat/internal/ai"
	"github.com/nhle/taskchat/internal/chat"
	"github.com/nhle/taskchat/internal/logging"
	"github.com/nhle/taskchat/internal/model"
	"github.com/nhle/taskchat/internal/tasks"
	"github.com/nhle/taskchat/tests/testutil"
)

func newTestModel(t *testing.T) (Model, *chat.Manager, *tasks.Store) {
	t.Helper()
	mem := testutil.NewMemoryStore()
	ts := tasks.New(mem, logging.Discard())
	sm := chat.NewManager(mem, logging.Discard())
	gw := ai.NewGateway(testutil.Reply(`{"text":"ok"}`), ai.GatewayConfig{Keys: []string{"k"}}, logging.Discard())
	svc := chat.NewService(sm, ts, gw, chat.ServiceConfig{}, logging.Discard())
	return New(svc, ts, Options{}), sm, ts
}

func resize(t *testing.T, m Model, w, h int) Model {
	t.Helper()
	next, _ := m.Update(tea.WindowSizeMsg{Width: w, Height: h})
	out, ok := next.(Model)
	require.True(t, ok)
	return out
}

func TestView_ShowsSessionAndStats(t *testing.T) {
	m, sm, ts := newTestModel(t)
	ctx := context.Background()
	sm.StartNewSession(ctx)
	_, err := ts.Create(ctx, model.TaskInput{Title: "Buy milk"})
	require.NoError(t, err)

	m = resize(t, m, 120, 40)
	view := m.View()
	assert.Contains(t, view, "New Chat")
	assert.Contains(t, view, "1 tasks")
	assert.Contains(t, view, model.DefaultGreeting)
}

func TestView_LoadingBeforeSize(t *testing.T) {
	m, _, _ := newTestModel(t)
	assert.Equal(t, "Loading...", m.View())
}

func TestQuitKey(t *testing.T) {
	m, _, _ := newTestModel(t)
	m = resize(t, m, 100, 30)

	_, cmd := m.Update(tea.KeyMsg{Type: tea.KeyEsc})
	require.NotNil(t, cmd)
	assert.Equal(t, tea.Quit(), cmd())
}

func TestHelpToggle(t *testing.T) {
	m, _, _ := newTestModel(t)
	m = resize(t, m, 100, 30)

	next, _ := m.Update(tea.KeyMsg{Type: tea.KeyF1})
	m = next.(Model)
	assert.Equal(t, ViewHelp, m.currentView)
	assert.Contains(t, m.View(), "Keyboard Shortcuts")

	// Esc leaves help before it quits.
	next, cmd := m.Update(tea.KeyMsg{Type: tea.KeyEsc})
	assert.Nil(t, cmd)
	assert.Equal(t, ViewChat, next.(Model).currentView)
}

func TestNewSessionKey(t *testing.T) {
	m, sm, _ := newTestModel(t)
	m = resize(t, m, 100, 30)

	_, _ = m.Update(tea.KeyMsg{Type: tea.KeyCtrlN})
	assert.NotEmpty(t, sm.CurrentID())
	assert.Equal(t, 1, sm.Len())
}

func TestClockTick_RefreshesTaskPane(t *testing.T) {
	m, _, ts := newTestModel(t)
	m = resize(t, m, 120, 40)

	_, err := ts.Create(context.Background(), model.TaskInput{Title: "Water plants"})
	require.NoError(t, err)
	assert.NotContains(t, m.View(), "Water plants")

	next, cmd := m.Update(clockTickMsg(time.Now()))
	m = next.(Model)
	assert.NotNil(t, cmd)
	assert.Contains(t, m.View(), "Water plants")
}
