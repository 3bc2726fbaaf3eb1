package chat

import (
	"context"
	"strings"
	"time"
)

// DefaultStreamDelay is the pause after each streamed word.
const DefaultStreamDelay = 5 * time.Millisecond

// Tokenize splits text on single spaces. Every token but the last keeps
// its trailing space, so concatenating the tokens reproduces text exactly.
func Tokenize(text string) []string {
	if text == "" {
		return nil
	}
	words := strings.Split(text, " ")
	tokens := make([]string, len(words))
	for i, w := range words {
		if i < len(words)-1 {
			w += " "
		}
		tokens[i] = w
	}
	return tokens
}

// Streamer replays an already complete reply word by word so it looks
// generated in real time. The provider call is not streaming; this is a
// presentation shim on top of it.
type Streamer struct {
	Delay time.Duration
}

// NewStreamer returns a Streamer pausing delay after each token. A negative
// delay means no pause.
func NewStreamer(delay time.Duration) *Streamer {
	if delay < 0 {
		delay = 0
	}
	return &Streamer{Delay: delay}
}

// Stream delivers the tokens of text to onChunk in order, pausing after
// each. It stops early, returning nil, when onChunk returns false, and
// returns ctx.Err() when ctx is cancelled.
func (s *Streamer) Stream(ctx context.Context, text string, onChunk func(chunk string) bool) error {
	var timer *time.Timer
	defer func() {
		if timer != nil {
			timer.Stop()
		}
	}()

	for _, tok := range Tokenize(text) {
		if err := ctx.Err(); err != nil {
			return err
		}
		if !onChunk(tok) {
			return nil
		}
		if s.Delay <= 0 {
			continue
		}
		if timer == nil {
			timer = time.NewTimer(s.Delay)
		} else {
			timer.Reset(s.Delay)
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-timer.C:
		}
	}
	return nil
}
