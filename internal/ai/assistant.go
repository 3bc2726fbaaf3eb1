package ai

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/nhle/taskchat/internal/logging"
)

// Chat completes a chat prompt and decodes the reply. Provider failures
// come back as a KindRateLimited or KindProviderError Result carrying the
// fallback text.
func (g *Gateway) Chat(ctx context.Context, p ChatPrompt) Result {
	c := g.Complete(ctx, p.Build())
	switch c.Status {
	case StatusRateLimited:
		return Result{Kind: KindRateLimited, Text: c.Text}
	case StatusProviderError:
		return Result{Kind: KindProviderError, Text: c.Text}
	}

	res := Parse(c.Text)
	if res.Kind == KindRawText {
		logging.FromContext(ctx, g.logger).Warn("reply was not JSON, showing raw text", "attempts", c.Attempts)
	}
	return res
}

// Refine returns a cleaned-up title and description. On any failure the
// originals are returned with ok false.
func (g *Gateway) Refine(ctx context.Context, title, description string) (string, string, bool) {
	c := g.Complete(ctx, RefinePrompt(title, description))
	if c.Status != StatusOK {
		return title, description, false
	}

	var parsed struct {
		Title       string `json:"title"`
		Description string `json:"description"`
	}
	if err := json.Unmarshal([]byte(StripFences(c.Text)), &parsed); err != nil {
		g.logger.Warn("refine reply was not JSON", "error", err)
		return title, description, false
	}

	if strings.TrimSpace(parsed.Title) == "" {
		parsed.Title = title
	}
	if strings.TrimSpace(parsed.Description) == "" {
		parsed.Description = description
	}
	return parsed.Title, parsed.Description, true
}

// MaxSuggestedSubtasks caps SuggestSubtasks.
const MaxSuggestedSubtasks = 5

// SuggestSubtasks decomposes a task into actionable steps. It returns nil
// and false on any failure.
func (g *Gateway) SuggestSubtasks(ctx context.Context, title, description string) ([]string, bool) {
	c := g.Complete(ctx, SubtaskPrompt(title, description))
	if c.Status != StatusOK {
		return nil, false
	}

	body := []byte(StripFences(c.Text))
	var parsed struct {
		Subtasks []string `json:"subtasks"`
	}
	if err := json.Unmarshal(body, &parsed); err != nil {
		// Some models answer with a bare array.
		if err := json.Unmarshal(body, &parsed.Subtasks); err != nil {
			g.logger.Warn("subtask reply was not JSON", "error", err)
			return nil, false
		}
	}

	steps := make([]string, 0, len(parsed.Subtasks))
	for _, s := range parsed.Subtasks {
		if s = strings.TrimSpace(s); s != "" {
			steps = append(steps, s)
		}
		if len(steps) == MaxSuggestedSubtasks {
			break
		}
	}
	if len(steps) == 0 {
		return nil, false
	}
	return steps, true
}
