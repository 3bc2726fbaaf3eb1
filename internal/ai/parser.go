package ai

import (
	"bytes"
	"encoding/json"
	"strings"

	"github.com/nhle/taskchat/internal/model"
)

// DefaultReplyText is used when a structured reply has no text.
const DefaultReplyText = "I processed your request."

// Kind tags how a Result was produced.
type Kind int

const (
	// KindParsed: the model returned a JSON object.
	KindParsed Kind = iota
	// KindRawText: the output was not JSON; Text is the raw output.
	KindRawText
	// KindRateLimited: every credential was rate limited.
	KindRateLimited
	// KindProviderError: the provider failed for another reason.
	KindProviderError
)

func (k Kind) String() string {
	switch k {
	case KindParsed:
		return "parsed"
	case KindRawText:
		return "raw_text"
	case KindRateLimited:
		return "rate_limited"
	default:
		return "provider_error"
	}
}

// Result is a decoded model reply. Text is never empty. Optional fields are
// nil when absent or of the wrong shape.
type Result struct {
	Kind         Kind
	Text         string
	Suggestions  []string
	Action       *model.Action
	PendingTask  *model.PendingTask
	RelatedTask  model.TaskSnapshot
	RelatedTasks []model.TaskSnapshot
}

// Failed reports whether the result is a provider fallback.
func (r Result) Failed() bool {
	return r.Kind == KindRateLimited || r.Kind == KindProviderError
}

// Parse decodes raw model output. Code fences are stripped before a strict
// JSON parse; anything that is not a JSON object degrades to KindRawText
// with the raw output as Text. Parse never panics and has no side effects.
func Parse(raw string) Result {
	fields, ok := decodeObject(StripFences(raw))
	if !ok {
		text := raw
		if strings.TrimSpace(text) == "" {
			text = DefaultReplyText
		}
		return Result{Kind: KindRawText, Text: text}
	}

	res := Result{Kind: KindParsed, Text: DefaultReplyText}

	if v, ok := fields["text"]; ok {
		var text string
		if json.Unmarshal(v, &text) == nil && text != "" {
			res.Text = text
		}
	}

	if v, ok := fields["suggestions"]; ok && !isNull(v) {
		var suggestions []string
		if json.Unmarshal(v, &suggestions) == nil {
			res.Suggestions = suggestions
		}
	}

	if v, ok := fields["action"]; ok && !isNull(v) {
		var action model.Action
		if json.Unmarshal(v, &action) == nil {
			res.Action = &action
		}
	}

	if v, ok := fields["pendingTask"]; ok && isObject(v) {
		var pending model.PendingTask
		if json.Unmarshal(v, &pending) == nil {
			if p, ok := model.ParsePriority(string(pending.Priority)); ok {
				pending.Priority = p
			} else {
				pending.Priority = ""
			}
			// Only set locally once the draft is turned into a task.
			pending.IsCreated = false
			res.PendingTask = &pending
		}
	}

	if v, ok := fields["relatedTask"]; ok && isObject(v) {
		res.RelatedTask = model.TaskSnapshot(append([]byte(nil), v...))
	}

	if v, ok := fields["relatedTasks"]; ok && !isNull(v) {
		var items []json.RawMessage
		if json.Unmarshal(v, &items) == nil {
			for _, item := range items {
				if isObject(item) {
					res.RelatedTasks = append(res.RelatedTasks, model.TaskSnapshot(append([]byte(nil), item...)))
				}
			}
		}
	}

	return res
}

// StripFences removes markdown code fence markers and surrounding
// whitespace.
func StripFences(s string) string {
	s = strings.ReplaceAll(s, "```json", "")
	s = strings.ReplaceAll(s, "```JSON", "")
	s = strings.ReplaceAll(s, "```", "")
	return strings.TrimSpace(s)
}

func decodeObject(s string) (map[string]json.RawMessage, bool) {
	if !strings.HasPrefix(s, "{") {
		return nil, false
	}
	var fields map[string]json.RawMessage
	if err := json.Unmarshal([]byte(s), &fields); err != nil || fields == nil {
		return nil, false
	}
	return fields, true
}

func isNull(v json.RawMessage) bool {
	return bytes.Equal(bytes.TrimSpace(v), []byte("null"))
}

func isObject(v json.RawMessage) bool {
	v = bytes.TrimSpace(v)
	return len(v) > 0 && v[0] == '{'
}
