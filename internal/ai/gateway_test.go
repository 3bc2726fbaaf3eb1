package ai_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nhle/taskchat/internal/ai"
	"github.com/nhle/taskchat/internal/logging"
	"github.com/nhle/taskchat/tests/testutil"
)

var errQuota = &ai.StatusError{Code: 429, Message: "Resource has been exhausted (e.g. check quota)."}

func newGateway(c ai.Completer, keys ...string) *ai.Gateway {
	return ai.NewGateway(c, ai.GatewayConfig{
		Keys:   keys,
		Models: []string{"gemini-2.5-flash", "gemini-2.5-flash-lite", "gemini-2.5-flash"},
	}, logging.Discard())
}

func TestRotate_AdvancesCircularly(t *testing.T) {
	g := newGateway(testutil.Reply("{}"), "k0", "k1", "k2")

	for _, want := range []int{1, 2, 0, 1} {
		prev := g.Index()
		got, err := g.Rotate()
		require.NoError(t, err)
		assert.Equal(t, want, got)
		assert.Equal(t, (prev+1)%3, got)
	}
}

func TestRotate_NoCredentials(t *testing.T) {
	g := newGateway(testutil.Reply("{}"))

	_, err := g.Rotate()
	assert.ErrorIs(t, err, ai.ErrNoCredentials)
}

func TestModelFollowsKeyIndex(t *testing.T) {
	g := newGateway(testutil.Reply("{}"), "k0", "k1", "k2")

	assert.Equal(t, "gemini-2.5-flash", g.Model())
	_, _ = g.Rotate()
	assert.Equal(t, "gemini-2.5-flash-lite", g.Model())
}

func TestComplete_Success(t *testing.T) {
	c := testutil.Reply(`{"text":"hi"}`)
	g := newGateway(c, "k0", "k1")

	got := g.Complete(context.Background(), "prompt")
	assert.Equal(t, ai.StatusOK, got.Status)
	assert.Equal(t, `{"text":"hi"}`, got.Text)
	assert.Equal(t, 1, got.Attempts)

	reqs := c.Requests()
	require.Len(t, reqs, 1)
	assert.Equal(t, "k0", reqs[0].APIKey)
	assert.Equal(t, "gemini-2.5-flash", reqs[0].Model)
	assert.Equal(t, "prompt", reqs[0].Prompt)
}

func TestComplete_SustainedRateLimitMakesNPlusOneAttempts(t *testing.T) {
	for _, n := range []int{1, 2, 3} {
		keys := make([]string, n)
		for i := range keys {
			keys[i] = string(rune('a' + i))
		}
		c := testutil.Failing(errQuota)
		g := newGateway(c, keys...)
		start := g.Index()

		got := g.Complete(context.Background(), "prompt")
		assert.Equal(t, ai.StatusRateLimited, got.Status)
		assert.Equal(t, ai.HighTrafficText, got.Text)
		assert.Equal(t, n+1, c.Calls())
		assert.Equal(t, start, g.Index(), "n=%d rotations over n keys returns to start", n)
	}
}

func TestComplete_RotatesToNextKeyAndRecovers(t *testing.T) {
	c := testutil.NewScriptedCompleter(
		testutil.Step{Err: errQuota},
		testutil.Step{Text: "ok"},
	)
	g := newGateway(c, "k0", "k1", "k2")

	got := g.Complete(context.Background(), "prompt")
	assert.Equal(t, ai.StatusOK, got.Status)
	assert.Equal(t, 2, got.Attempts)
	assert.Equal(t, 1, g.Index())

	reqs := c.Requests()
	require.Len(t, reqs, 2)
	assert.Equal(t, "k0", reqs[0].APIKey)
	assert.Equal(t, "k1", reqs[1].APIKey)
	assert.Equal(t, "gemini-2.5-flash-lite", reqs[1].Model)
}

func TestComplete_OtherErrorDoesNotRetry(t *testing.T) {
	c := testutil.Failing(errors.New("401 invalid api key"))
	g := newGateway(c, "k0", "k1")

	got := g.Complete(context.Background(), "prompt")
	assert.Equal(t, ai.StatusProviderError, got.Status)
	assert.Equal(t, ai.ProviderErrorText, got.Text)
	assert.Equal(t, 1, c.Calls())
	assert.Equal(t, 0, g.Index())
}

func TestComplete_NoCredentials(t *testing.T) {
	c := testutil.Reply("never")
	g := newGateway(c)

	got := g.Complete(context.Background(), "prompt")
	assert.Equal(t, ai.StatusProviderError, got.Status)
	assert.Equal(t, 0, c.Calls())
}

func TestComplete_AttemptTimeout(t *testing.T) {
	slow := ai.CompleterFunc(func(ctx context.Context, _ ai.Request) (string, error) {
		<-ctx.Done()
		return "", ctx.Err()
	})
	g := ai.NewGateway(slow, ai.GatewayConfig{Keys: []string{"k"}, Timeout: 10 * time.Millisecond}, logging.Discard())

	got := g.Complete(context.Background(), "prompt")
	assert.Equal(t, ai.StatusProviderError, got.Status)
}

func TestGatewaysDoNotShareCursor(t *testing.T) {
	a := newGateway(testutil.Reply("{}"), "k0", "k1")
	b := newGateway(testutil.Reply("{}"), "k0", "k1")

	_, _ = a.Rotate()
	assert.Equal(t, 1, a.Index())
	assert.Equal(t, 0, b.Index())
}

func TestChat_MapsFailuresToResultKinds(t *testing.T) {
	g := newGateway(testutil.Failing(errQuota), "k0", "k1")
	res := g.Chat(context.Background(), ai.ChatPrompt{Message: "hi"})
	assert.Equal(t, ai.KindRateLimited, res.Kind)
	assert.Equal(t, ai.HighTrafficText, res.Text)
	assert.True(t, res.Failed())

	g = newGateway(testutil.Failing(errors.New("boom")), "k0")
	res = g.Chat(context.Background(), ai.ChatPrompt{Message: "hi"})
	assert.Equal(t, ai.KindProviderError, res.Kind)
	assert.Equal(t, ai.ProviderErrorText, res.Text)
}

func TestChat_ParsesReply(t *testing.T) {
	g := newGateway(testutil.Reply("```json\n{\"text\":\"Got it!\",\"suggestions\":[\"a\"]}\n```"), "k0")

	res := g.Chat(context.Background(), ai.ChatPrompt{Message: "hi"})
	assert.Equal(t, ai.KindParsed, res.Kind)
	assert.Equal(t, "Got it!", res.Text)
	assert.Equal(t, []string{"a"}, res.Suggestions)
}

func TestRefine(t *testing.T) {
	g := newGateway(testutil.Reply(`{"title":"Buy milk","description":"Get 2L of whole milk from the store."}`), "k0")
	title, desc, ok := g.Refine(context.Background(), "by milk", "milk")
	assert.True(t, ok)
	assert.Equal(t, "Buy milk", title)
	assert.Equal(t, "Get 2L of whole milk from the store.", desc)

	g = newGateway(testutil.Failing(errQuota), "k0")
	title, desc, ok = g.Refine(context.Background(), "by milk", "milk")
	assert.False(t, ok)
	assert.Equal(t, "by milk", title)
	assert.Equal(t, "milk", desc)

	g = newGateway(testutil.Reply(`{"title":""}`), "k0")
	title, desc, ok = g.Refine(context.Background(), "keep", "both")
	assert.True(t, ok)
	assert.Equal(t, "keep", title)
	assert.Equal(t, "both", desc)
}

func TestSuggestSubtasks(t *testing.T) {
	g := newGateway(testutil.Reply(`{"subtasks":["a"," ","b","c","d","e","f"]}`), "k0")
	steps, ok := g.SuggestSubtasks(context.Background(), "Plan trip", "")
	assert.True(t, ok)
	assert.Equal(t, []string{"a", "b", "c", "d", "e"}, steps)

	g = newGateway(testutil.Reply(`["x","y","z"]`), "k0")
	steps, ok = g.SuggestSubtasks(context.Background(), "Plan trip", "")
	assert.True(t, ok)
	assert.Equal(t, []string{"x", "y", "z"}, steps)

	g = newGateway(testutil.Reply(`not json`), "k0")
	steps, ok = g.SuggestSubtasks(context.Background(), "Plan trip", "")
	assert.False(t, ok)
	assert.Nil(t, steps)
}
