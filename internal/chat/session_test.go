package chat_test

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nhle/taskchat/internal/chat"
	"github.com/nhle/taskchat/internal/logging"
	"github.com/nhle/taskchat/internal/model"
	"github.com/nhle/taskchat/tests/testutil"
)

type fakeClock struct{ t time.Time }

func (c *fakeClock) Now() time.Time {
	c.t = c.t.Add(time.Second)
	return c.t
}

func ids(prefix string) func() string {
	n := 0
	return func() string {
		n++
		return fmt.Sprintf("%s%d", prefix, n)
	}
}

func newManager(t *testing.T, opts ...chat.ManagerOption) (*chat.Manager, *testutil.MemoryStore) {
	t.Helper()
	mem := testutil.NewMemoryStore()
	clock := &fakeClock{t: time.Date(2024, 1, 15, 9, 0, 0, 0, time.UTC)}
	base := []chat.ManagerOption{chat.WithManagerClock(clock.Now), chat.WithManagerIDs(ids("id-"))}
	return chat.NewManager(mem, logging.Discard(), append(base, opts...)...), mem
}

func TestStartNewSession_SeedsGreeting(t *testing.T) {
	ctx := context.Background()
	m, _ := newManager(t)

	id := m.StartNewSession(ctx)
	assert.Equal(t, id, m.CurrentID())

	s, ok := m.Current()
	require.True(t, ok)
	assert.Equal(t, model.DefaultSessionTitle, s.Title)
	require.Len(t, s.Messages, 1)
	assert.Equal(t, model.RoleModel, s.Messages[0].Role)
	assert.Equal(t, model.DefaultGreeting, s.Messages[0].Text)
}

func TestStartNewSession_ReusesEmptySession(t *testing.T) {
	ctx := context.Background()
	m, _ := newManager(t)

	first := m.StartNewSession(ctx)
	second := m.StartNewSession(ctx)
	assert.Equal(t, first, second)
	assert.Equal(t, 1, m.Len())

	// Once the session has a user message a new one is created.
	_, ok := m.AppendMessage(ctx, first, model.ChatMessage{Role: model.RoleUser, Text: "hi"})
	require.True(t, ok)
	third := m.StartNewSession(ctx)
	assert.NotEqual(t, first, third)
	assert.Equal(t, 2, m.Len())

	// Switching back and asking again returns to the empty one.
	require.True(t, m.SwitchSession(ctx, first))
	assert.Equal(t, third, m.StartNewSession(ctx))
	assert.Equal(t, 2, m.Len())
}

func TestStartNewSession_WithoutGreeting(t *testing.T) {
	m, _ := newManager(t, chat.WithGreeting(""))

	m.StartNewSession(context.Background())
	s, _ := m.Current()
	assert.Empty(t, s.Messages)
}

func TestSwitchSession_UnknownIsNoop(t *testing.T) {
	ctx := context.Background()
	m, _ := newManager(t)
	id := m.StartNewSession(ctx)

	assert.False(t, m.SwitchSession(ctx, "nope"))
	assert.Equal(t, id, m.CurrentID())
}

func TestRemoveSession_ClearsCurrent(t *testing.T) {
	ctx := context.Background()
	m, mem := newManager(t)
	id := m.StartNewSession(ctx)

	require.True(t, m.RemoveSession(ctx, id))
	assert.Equal(t, "", m.CurrentID())
	_, ok := m.Current()
	assert.False(t, ok)
	assert.False(t, m.RemoveSession(ctx, id))
	_, ok = mem.Session(id)
	assert.False(t, ok)
}

func TestAppendMessage_DerivesTitle(t *testing.T) {
	tests := []struct {
		name string
		text string
		want string
	}{
		{"short", "Buy milk", "Buy milk"},
		{"exactly thirty", strings.Repeat("a", 30), strings.Repeat("a", 30)},
		{"long", "Create a task to buy milk tomorrow at 5pm", "Create a task to buy milk tomo..."},
		{"multibyte", strings.Repeat("é", 31), strings.Repeat("é", 30) + "..."},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := context.Background()
			m, _ := newManager(t)
			id := m.StartNewSession(ctx)

			_, ok := m.AppendMessage(ctx, id, model.ChatMessage{Role: model.RoleUser, Text: tt.text})
			require.True(t, ok)
			_, _ = m.AppendMessage(ctx, id, model.ChatMessage{Role: model.RoleUser, Text: "second message"})

			s, _ := m.Session(id)
			assert.Equal(t, tt.want, s.Title)
		})
	}
}

func TestAppendMessage_ModelMessageKeepsDefaultTitle(t *testing.T) {
	ctx := context.Background()
	m, _ := newManager(t)
	id := m.StartNewSession(ctx)

	_, _ = m.AppendMessage(ctx, id, model.ChatMessage{Role: model.RoleModel, Text: "anything"})
	s, _ := m.Session(id)
	assert.Equal(t, model.DefaultSessionTitle, s.Title)
}

func TestAppendMessage_OrderAndTimestamps(t *testing.T) {
	ctx := context.Background()
	m, mem := newManager(t)
	id := m.StartNewSession(ctx)
	before, _ := m.Session(id)

	a, ok := m.AppendMessage(ctx, id, model.ChatMessage{Role: model.RoleUser, Text: "a"})
	require.True(t, ok)
	b, ok := m.AppendMessage(ctx, id, model.ChatMessage{Role: model.RoleModel})
	require.True(t, ok)

	after, _ := m.Session(id)
	require.Len(t, after.Messages, 3)
	assert.Equal(t, a, after.Messages[1].ID)
	assert.Equal(t, b, after.Messages[2].ID)
	assert.True(t, after.UpdatedAt.After(before.UpdatedAt))
	assert.True(t, after.CreatedAt.Equal(before.CreatedAt))

	stored, ok := mem.Session(id)
	require.True(t, ok)
	require.Len(t, stored.Messages, 3)
	assert.Equal(t, b, stored.Messages[2].ID)

	_, ok = m.AppendMessage(ctx, "missing", model.ChatMessage{Role: model.RoleUser, Text: "x"})
	assert.False(t, ok)
}

func TestMutateMessage(t *testing.T) {
	ctx := context.Background()
	m, mem := newManager(t)
	id := m.StartNewSession(ctx)
	msgID, _ := m.AppendMessage(ctx, id, model.ChatMessage{Role: model.RoleModel, Suggestions: []string{"keep"}})
	before, _ := m.Session(id)

	text := "final"
	require.True(t, m.MutateMessage(ctx, id, msgID, model.MessagePatch{Text: &text}))

	msg, ok := m.Message(id, msgID)
	require.True(t, ok)
	assert.Equal(t, "final", msg.Text)
	assert.Equal(t, []string{"keep"}, msg.Suggestions)
	assert.Equal(t, msgID, msg.ID)

	after, _ := m.Session(id)
	assert.True(t, after.UpdatedAt.After(before.UpdatedAt))

	stored, _ := mem.Session(id)
	assert.Equal(t, "final", stored.Messages[1].Text)

	assert.False(t, m.MutateMessage(ctx, id, "missing", model.MessagePatch{Text: &text}))
	assert.False(t, m.MutateMessage(ctx, "missing", msgID, model.MessagePatch{Text: &text}))
}

func TestSetStreamingText_IsMemoryOnly(t *testing.T) {
	ctx := context.Background()
	m, mem := newManager(t)
	id := m.StartNewSession(ctx)
	msgID, _ := m.AppendMessage(ctx, id, model.ChatMessage{Role: model.RoleModel})
	writes := mem.Writes()

	require.True(t, m.SetStreamingText(id, msgID, "partial"))
	msg, _ := m.Message(id, msgID)
	assert.Equal(t, "partial", msg.Text)
	assert.Equal(t, writes, mem.Writes())
}

func TestSessions_SortedByUpdatedAtDesc(t *testing.T) {
	ctx := context.Background()
	m, _ := newManager(t)

	a := m.StartNewSession(ctx)
	_, _ = m.AppendMessage(ctx, a, model.ChatMessage{Role: model.RoleUser, Text: "a"})
	b := m.StartNewSession(ctx)
	_, _ = m.AppendMessage(ctx, b, model.ChatMessage{Role: model.RoleUser, Text: "b"})
	_, _ = m.AppendMessage(ctx, a, model.ChatMessage{Role: model.RoleUser, Text: "a again"})

	list := m.Sessions()
	require.Len(t, list, 2)
	assert.Equal(t, a, list[0].ID)
	assert.Equal(t, b, list[1].ID)
}

func TestLoad_RestoresSessionsAndCurrent(t *testing.T) {
	ctx := context.Background()
	db := testutil.NewTestStore(t)

	writer := chat.NewManager(db, logging.Discard())
	a := writer.StartNewSession(ctx)
	_, _ = writer.AppendMessage(ctx, a, model.ChatMessage{Role: model.RoleUser, Text: "Plan the week"})
	b := writer.StartNewSession(ctx)
	require.True(t, writer.SwitchSession(ctx, a))

	reader := chat.NewManager(db, logging.Discard())
	require.NoError(t, reader.Load(ctx))
	assert.Equal(t, 2, reader.Len())
	assert.Equal(t, a, reader.CurrentID())

	s, ok := reader.Session(a)
	require.True(t, ok)
	assert.Equal(t, "Plan the week", s.Title)
	require.Len(t, s.Messages, 2)
	assert.Equal(t, model.RoleModel, s.Messages[0].Role)
	assert.Equal(t, "Plan the week", s.Messages[1].Text)

	// The stored empty session is still reused.
	assert.Equal(t, b, reader.StartNewSession(ctx))
}

func TestRenameSession(t *testing.T) {
	ctx := context.Background()
	m, _ := newManager(t)
	id := m.StartNewSession(ctx)

	assert.False(t, m.RenameSession(ctx, id, "  "))
	require.True(t, m.RenameSession(ctx, id, "Groceries"))
	s, _ := m.Session(id)
	assert.Equal(t, "Groceries", s.Title)
}

func TestOnChange(t *testing.T) {
	ctx := context.Background()
	m, _ := newManager(t)
	calls := 0
	m.OnChange(func() { calls++ })

	id := m.StartNewSession(ctx)
	m.SwitchSession(ctx, id)
	assert.Equal(t, 2, calls)
}

func TestOnChange_ListenerAddedDuringNotify(t *testing.T) {
	ctx := context.Background()
	m, _ := newManager(t)
	early, late := 0, 0
	m.OnChange(func() {
		early++
		if early == 1 {
			m.OnChange(func() { late++ })
		}
	})

	id := m.StartNewSession(ctx)
	assert.Equal(t, 0, late)
	m.RenameSession(ctx, id, "Groceries")
	assert.Equal(t, 2, early)
	assert.Equal(t, 1, late)
}
