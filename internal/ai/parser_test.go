package ai_test

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nhle/taskchat/internal/ai"
	"github.com/nhle/taskchat/internal/model"
)

func TestParse_FullReply(t *testing.T) {
	raw := `{
		"text": "Here you go",
		"suggestions": ["Tomorrow", "Next week"],
		"action": {"type": "CREATE", "task": {"title": "Buy milk", "dueDate": "2024-01-16T17:00:00.000Z", "priority": "high"}},
		"pendingTask": {"title": "Buy milk", "priority": "HIGH", "isComplete": true, "isCreated": true},
		"relatedTask": {"id": "t1", "title": "Old", "extra": [1, 2]},
		"relatedTasks": [{"id": "t2"}, 5, {"id": "t3"}],
		"unknown": "ignored"
	}`

	res := ai.Parse(raw)
	assert.Equal(t, ai.KindParsed, res.Kind)
	assert.Equal(t, "Here you go", res.Text)
	assert.Equal(t, []string{"Tomorrow", "Next week"}, res.Suggestions)

	require.NotNil(t, res.Action)
	assert.Equal(t, model.ActionCreate, res.Action.Kind())
	require.NotNil(t, res.Action.Task)
	require.NotNil(t, res.Action.Task.Title)
	assert.Equal(t, "Buy milk", *res.Action.Task.Title)

	require.NotNil(t, res.PendingTask)
	assert.Equal(t, model.PriorityHigh, res.PendingTask.Priority)
	assert.True(t, res.PendingTask.IsComplete)
	assert.False(t, res.PendingTask.IsCreated)

	assert.JSONEq(t, `{"id": "t1", "title": "Old", "extra": [1, 2]}`, string(res.RelatedTask))
	require.Len(t, res.RelatedTasks, 2)
	assert.JSONEq(t, `{"id":"t3"}`, string(res.RelatedTasks[1]))
}

func TestParse_AbsentFieldsStayEmpty(t *testing.T) {
	res := ai.Parse(`{"text":"just text"}`)
	assert.Equal(t, ai.KindParsed, res.Kind)
	assert.Equal(t, "just text", res.Text)
	assert.Nil(t, res.Suggestions)
	assert.Nil(t, res.Action)
	assert.Nil(t, res.PendingTask)
	assert.Nil(t, res.RelatedTask)
	assert.Nil(t, res.RelatedTasks)
}

func TestParse_MissingTextUsesAcknowledgement(t *testing.T) {
	for _, raw := range []string{`{}`, `{"text":""}`, `{"text":42}`, `{"action":{"type":"NONE"}}`} {
		res := ai.Parse(raw)
		assert.Equal(t, ai.KindParsed, res.Kind, raw)
		assert.Equal(t, ai.DefaultReplyText, res.Text, raw)
	}
}

func TestParse_WrongShapedFieldsAreDropped(t *testing.T) {
	res := ai.Parse(`{"text":"ok","suggestions":"nope","pendingTask":[1],"relatedTask":"x","relatedTasks":{"id":"t"},"action":{"type":"DELETE","id":{"bad":true}}}`)
	assert.Equal(t, ai.KindParsed, res.Kind)
	assert.Equal(t, "ok", res.Text)
	assert.Nil(t, res.Suggestions)
	assert.Nil(t, res.PendingTask)
	assert.Nil(t, res.RelatedTask)
	assert.Nil(t, res.RelatedTasks)
	require.NotNil(t, res.Action)
	assert.Equal(t, model.ActionNone, res.Action.Kind())
}

func TestParse_NumericActionID(t *testing.T) {
	res := ai.Parse(`{"text":"done","action":{"type":"COMPLETE","id":1705312345678}}`)
	require.NotNil(t, res.Action)
	assert.Equal(t, model.ActionComplete, res.Action.Kind())
	assert.Equal(t, "1705312345678", res.Action.ID)
}

func TestParse_CodeFences(t *testing.T) {
	res := ai.Parse("```json\n{\"text\":\"fenced\"}\n```")
	assert.Equal(t, ai.KindParsed, res.Kind)
	assert.Equal(t, "fenced", res.Text)

	res = ai.Parse("```\n{\"text\":\"bare fence\"}\n```")
	assert.Equal(t, "bare fence", res.Text)
}

func TestParse_MalformedFallsBackToRawText(t *testing.T) {
	inputs := []string{
		`{"text": "trunc`,
		`Sure! I added it to your list.`,
		"```json\n{\"text\": \"broken\",}\n```",
		`["an", "array"]`,
		`"just a string"`,
		`null`,
		`{"text":"ok"} trailing`,
	}
	for _, raw := range inputs {
		res := ai.Parse(raw)
		assert.Equal(t, ai.KindRawText, res.Kind, raw)
		assert.Equal(t, raw, res.Text, raw)
		assert.Nil(t, res.Action, raw)
		assert.Nil(t, res.Suggestions, raw)
	}
}

func TestParse_EmptyOutputIsNeverEmptyText(t *testing.T) {
	for _, raw := range []string{"", "   ", "```json\n```"} {
		res := ai.Parse(raw)
		assert.NotEmpty(t, res.Text, "%q", raw)
	}
}

func TestParse_RoundTripPreservesPresentFields(t *testing.T) {
	title := "Call mom"
	due := "2024-02-01T09:00:00.000Z"
	reply := map[string]any{
		"text":        "Created",
		"suggestions": []string{"one", "two"},
		"action": model.Action{
			Type: model.ActionCreate,
			Task: &model.TaskDraft{Title: &title, DueDate: &due},
		},
		"relatedTasks": []json.RawMessage{json.RawMessage(`{"id":"a","title":"A"}`)},
	}
	data, err := json.Marshal(reply)
	require.NoError(t, err)

	res := ai.Parse(string(data))
	assert.Equal(t, "Created", res.Text)
	assert.Equal(t, []string{"one", "two"}, res.Suggestions)
	require.NotNil(t, res.Action)
	assert.Equal(t, model.ActionCreate, res.Action.Type)
	assert.Equal(t, title, *res.Action.Task.Title)
	assert.Equal(t, due, *res.Action.Task.DueDate)
	require.Len(t, res.RelatedTasks, 1)
	assert.JSONEq(t, `{"id":"a","title":"A"}`, string(res.RelatedTasks[0]))
	assert.Nil(t, res.PendingTask)
	assert.Nil(t, res.RelatedTask)
}
