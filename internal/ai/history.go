package ai

import "github.com/nhle/taskchat/internal/model"

// DefaultHistoryWindow is the number of prior messages sent with a prompt.
const DefaultHistoryWindow = 20

// WindowHistory bounds the history sent to the model. When msgs exceeds
// max, the first message is kept as initial context and the oldest of the
// rest are dropped. Messages with empty text are skipped first.
func WindowHistory(msgs []model.ChatMessage, max int) []model.ChatMessage {
	if max <= 0 {
		max = DefaultHistoryWindow
	}

	kept := make([]model.ChatMessage, 0, len(msgs))
	for _, m := range msgs {
		if m.Text == "" {
			continue
		}
		kept = append(kept, m)
	}

	if len(kept) <= max {
		return kept
	}

	// Keep the first message (initial context) and trim from the middle.
	trimmed := make([]model.ChatMessage, 0, max)
	trimmed = append(trimmed, kept[0])
	excess := len(kept) - max
	trimmed = append(trimmed, kept[1+excess:]...)
	return trimmed
}
