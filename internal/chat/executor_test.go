package chat_test

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nhle/taskchat/internal/chat"
	"github.com/nhle/taskchat/internal/logging"
	"github.com/nhle/taskchat/internal/model"
	"github.com/nhle/taskchat/internal/tasks"
	"github.com/nhle/taskchat/tests/testutil"
)

func strp(s string) *string { return &s }

func newExecutor(t *testing.T) (*chat.Executor, *tasks.Store) {
	t.Helper()
	ts := tasks.New(testutil.NewMemoryStore(), logging.Discard(), tasks.WithIDGenerator(ids("task-")))
	return chat.NewExecutor(ts, logging.Discard()), ts
}

func TestExecute_Create(t *testing.T) {
	ctx := context.Background()
	ex, ts := newExecutor(t)

	out := ex.Execute(ctx, "r1", &model.Action{
		Type: model.ActionCreate,
		Task: &model.TaskDraft{
			Title:    strp("Buy milk"),
			DueDate:  strp("2024-01-16T17:00:00Z"),
			Priority: strp("HIGH"),
		},
	})
	require.True(t, out.Applied)
	require.NotNil(t, out.Task)

	got, ok := ts.Get(out.TaskID)
	require.True(t, ok)
	assert.Equal(t, "Buy milk", got.Title)
	assert.Equal(t, model.PriorityHigh, got.Priority)
	assert.False(t, got.IsCompleted)
	require.NotNil(t, got.DueDate)
	assert.True(t, got.DueDate.Equal(time.Date(2024, 1, 16, 17, 0, 0, 0, time.UTC)))
}

func TestExecute_CreateIgnoresInvalidOptionalFields(t *testing.T) {
	ex, ts := newExecutor(t)

	out := ex.Execute(context.Background(), "r1", &model.Action{
		Type: model.ActionCreate,
		Task: &model.TaskDraft{Title: strp("Call mom"), DueDate: strp("next week"), Priority: strp("urgent")},
	})
	require.True(t, out.Applied)
	got, _ := ts.Get(out.TaskID)
	assert.Nil(t, got.DueDate)
	assert.Empty(t, got.Priority)
}

func TestExecute_CreateWithoutTitleIsDropped(t *testing.T) {
	ex, ts := newExecutor(t)

	for _, draft := range []*model.TaskDraft{nil, {}, {Title: strp("  ")}} {
		out := ex.Execute(context.Background(), "", &model.Action{Type: model.ActionCreate, Task: draft})
		assert.False(t, out.Applied)
		assert.NotEmpty(t, out.Reason)
	}
	assert.Equal(t, 0, ts.Len())
}

func TestExecute_UnknownIDIsNoop(t *testing.T) {
	ctx := context.Background()
	ex, ts := newExecutor(t)
	existing, err := ts.Create(ctx, model.TaskInput{Title: "keep"})
	require.NoError(t, err)

	for i, a := range []model.Action{
		{Type: model.ActionDelete, ID: "missing"},
		{Type: model.ActionComplete, ID: "missing"},
		{Type: model.ActionUpdate, ID: "missing", Updates: &model.TaskDraft{Title: strp("x")}},
		{Type: model.ActionDelete},
	} {
		a := a
		out := ex.Execute(ctx, string(rune('a'+i)), &a)
		assert.False(t, out.Applied, "%s", a.Type)
	}

	list := ts.List()
	require.Len(t, list, 1)
	assert.Equal(t, existing, list[0])
}

func TestExecute_CompleteSetsDone(t *testing.T) {
	ctx := context.Background()
	ex, ts := newExecutor(t)
	task, _ := ts.Create(ctx, model.TaskInput{Title: "report"})

	out := ex.Execute(ctx, "r1", &model.Action{Type: model.ActionComplete, ID: task.ID})
	require.True(t, out.Applied)
	out = ex.Execute(ctx, "r2", &model.Action{Type: model.ActionComplete, ID: task.ID})
	require.True(t, out.Applied)

	got, _ := ts.Get(task.ID)
	assert.True(t, got.IsCompleted)
}

func TestExecute_Delete(t *testing.T) {
	ctx := context.Background()
	ex, ts := newExecutor(t)
	task, _ := ts.Create(ctx, model.TaskInput{Title: "old"})

	out := ex.Execute(ctx, "r1", &model.Action{Type: model.ActionDelete, ID: task.ID})
	assert.True(t, out.Applied)
	assert.Equal(t, 0, ts.Len())
}

func TestExecute_Update(t *testing.T) {
	ctx := context.Background()
	ex, ts := newExecutor(t)
	due := time.Date(2024, 1, 16, 17, 0, 0, 0, time.UTC)
	task, _ := ts.Create(ctx, model.TaskInput{Title: "draft", DueDate: &due, Priority: model.PriorityLow})

	out := ex.Execute(ctx, "r1", &model.Action{
		Type: model.ActionUpdate,
		ID:   task.ID,
		Updates: &model.TaskDraft{
			Title:    strp("final"),
			Priority: strp("medium"),
			DueDate:  strp(""),
		},
	})
	require.True(t, out.Applied)

	got, _ := ts.Get(task.ID)
	assert.Equal(t, "final", got.Title)
	assert.Equal(t, model.PriorityMedium, got.Priority)
	assert.Nil(t, got.DueDate)
	assert.Equal(t, task.ID, got.ID)
	assert.True(t, got.CreatedAt.Equal(task.CreatedAt))
}

func TestExecute_UpdateWithNothingValidIsDropped(t *testing.T) {
	ctx := context.Background()
	ex, ts := newExecutor(t)
	task, _ := ts.Create(ctx, model.TaskInput{Title: "draft"})

	out := ex.Execute(ctx, "r1", &model.Action{
		Type:    model.ActionUpdate,
		ID:      task.ID,
		Updates: &model.TaskDraft{Title: strp(""), Priority: strp("urgent")},
	})
	assert.False(t, out.Applied)
	got, _ := ts.Get(task.ID)
	assert.Equal(t, task, got)
}

func TestExecute_NoneAndNil(t *testing.T) {
	ex, ts := newExecutor(t)

	assert.False(t, ex.Execute(context.Background(), "r1", nil).Applied)
	assert.False(t, ex.Execute(context.Background(), "r2", &model.Action{Type: "ARCHIVE"}).Applied)
	assert.Equal(t, 0, ts.Len())
}

func TestExecute_OncePerReply(t *testing.T) {
	ctx := context.Background()
	ex, ts := newExecutor(t)
	action := &model.Action{Type: model.ActionCreate, Task: &model.TaskDraft{Title: strp("once")}}

	first := ex.Execute(ctx, "reply-1", action)
	second := ex.Execute(ctx, "reply-1", action)

	assert.True(t, first.Applied)
	assert.False(t, first.Duplicate)
	assert.True(t, second.Duplicate)
	assert.Equal(t, first.TaskID, second.TaskID)
	assert.Equal(t, 1, ts.Len())

	ex.Execute(ctx, "reply-2", action)
	assert.Equal(t, 2, ts.Len())
}

func TestParseDueDate(t *testing.T) {
	tests := []struct {
		in   string
		want time.Time
		ok   bool
	}{
		{"2024-01-16T17:00:00Z", time.Date(2024, 1, 16, 17, 0, 0, 0, time.UTC), true},
		{"2024-01-16T17:00:00.500+02:00", time.Date(2024, 1, 16, 15, 0, 0, 500000000, time.UTC), true},
		{"2024-01-16T17:00:00", time.Date(2024, 1, 16, 17, 0, 0, 0, time.Local), true},
		{"2024-01-16T17:00", time.Date(2024, 1, 16, 17, 0, 0, 0, time.Local), true},
		{"2024-01-16 17:00", time.Date(2024, 1, 16, 17, 0, 0, 0, time.Local), true},
		{" 2024-01-16 ", time.Date(2024, 1, 16, 0, 0, 0, 0, time.Local), true},
		{"tomorrow", time.Time{}, false},
		{"", time.Time{}, false},
	}
	for _, tt := range tests {
		got, ok := chat.ParseDueDate(tt.in)
		assert.Equal(t, tt.ok, ok, tt.in)
		if tt.ok {
			assert.True(t, tt.want.Equal(got), "%s: got %s", tt.in, got)
		}
	}
}

func TestExecute_RemembersOnlyRecentReplies(t *testing.T) {
	ctx := context.Background()
	ts := tasks.New(testutil.NewMemoryStore(), logging.Discard(), tasks.WithIDGenerator(ids("task-")))
	ex := chat.NewExecutor(ts, logging.Discard(), chat.WithAppliedLimit(2))
	action := &model.Action{Type: model.ActionCreate, Task: &model.TaskDraft{Title: strp("bounded")}}

	ex.Execute(ctx, "reply-1", action)
	ex.Execute(ctx, "reply-2", action)
	assert.True(t, ex.Execute(ctx, "reply-2", action).Duplicate)
	assert.Equal(t, 2, ts.Len())

	// reply-3 pushes reply-1 out of the window.
	ex.Execute(ctx, "reply-3", action)
	assert.True(t, ex.Execute(ctx, "reply-3", action).Duplicate)
	assert.True(t, ex.Execute(ctx, "reply-2", action).Duplicate)
	assert.False(t, ex.Execute(ctx, "reply-1", action).Duplicate)
	assert.Equal(t, 4, ts.Len())
}

func TestExecute_DateOnlyDueDateIsLogged(t *testing.T) {
	ctx := context.Background()
	var logs bytes.Buffer
	ts := tasks.New(testutil.NewMemoryStore(), logging.Discard(), tasks.WithIDGenerator(ids("task-")))
	ex := chat.NewExecutor(ts, logging.New(&logs, "debug"))

	out := ex.Execute(ctx, "r1", &model.Action{
		Type: model.ActionCreate,
		Task: &model.TaskDraft{Title: strp("Pay rent"), DueDate: strp("2024-03-01")},
	})
	require.True(t, out.Applied)
	require.NotNil(t, out.Task.DueDate)
	assert.True(t, time.Date(2024, 3, 1, 0, 0, 0, 0, time.Local).Equal(*out.Task.DueDate))
	assert.Contains(t, logs.String(), "due date has no time of day")

	logs.Reset()
	ex.Execute(ctx, "r2", &model.Action{
		Type: model.ActionCreate,
		Task: &model.TaskDraft{Title: strp("Call bank"), DueDate: strp("2024-03-01T09:00:00Z")},
	})
	assert.NotContains(t, logs.String(), "due date has no time of day")
}

func TestIsDateOnly(t *testing.T) {
	assert.True(t, chat.IsDateOnly("2024-03-01"))
	assert.True(t, chat.IsDateOnly(" 2024-03-01 "))
	assert.False(t, chat.IsDateOnly("2024-03-01T09:00"))
	assert.False(t, chat.IsDateOnly("tomorrow"))
}
