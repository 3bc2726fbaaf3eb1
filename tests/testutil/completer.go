package testutil

import (
	"context"
	"sync"

	"github.com/nhle/taskchat/internal/ai"
)

// Step is one scripted completer response.
type Step struct {
	Text string
	Err  error
}

// ScriptedCompleter is an ai.Completer that replays Steps in order and
// records every request. Once the script runs out, the last step repeats.
type ScriptedCompleter struct {
	mu       sync.Mutex
	steps    []Step
	requests []ai.Request
}

var _ ai.Completer = (*ScriptedCompleter)(nil)

// NewScriptedCompleter returns a completer replaying steps.
func NewScriptedCompleter(steps ...Step) *ScriptedCompleter {
	return &ScriptedCompleter{steps: steps}
}

// Reply is shorthand for a completer that always answers text.
func Reply(text string) *ScriptedCompleter {
	return NewScriptedCompleter(Step{Text: text})
}

// Failing is shorthand for a completer that always returns err.
func Failing(err error) *ScriptedCompleter {
	return NewScriptedCompleter(Step{Err: err})
}

// Complete implements ai.Completer.
func (c *ScriptedCompleter) Complete(ctx context.Context, req ai.Request) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.requests = append(c.requests, req)
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if len(c.steps) == 0 {
		return "", nil
	}
	i := len(c.requests) - 1
	if i >= len(c.steps) {
		i = len(c.steps) - 1
	}
	return c.steps[i].Text, c.steps[i].Err
}

// Calls returns how many times Complete was called.
func (c *ScriptedCompleter) Calls() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.requests)
}

// Requests returns a copy of the recorded requests.
func (c *ScriptedCompleter) Requests() []ai.Request {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]ai.Request(nil), c.requests...)
}

// LastPrompt returns the prompt of the most recent request.
func (c *ScriptedCompleter) LastPrompt() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.requests) == 0 {
		return ""
	}
	return c.requests[len(c.requests)-1].Prompt
}
