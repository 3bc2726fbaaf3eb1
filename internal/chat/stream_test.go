package chat_test

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nhle/taskchat/internal/chat"
)

func TestTokenize_ReconstructsText(t *testing.T) {
	inputs := []string{
		"Got it!",
		"one",
		" leading space",
		"trailing space ",
		"double  space",
		"line one\nline two",
		"",
	}
	for _, in := range inputs {
		assert.Equal(t, in, strings.Join(chat.Tokenize(in), ""), "%q", in)
	}
}

func TestTokenize_TrailingSpacePerToken(t *testing.T) {
	assert.Equal(t, []string{"I ", "added ", "it"}, chat.Tokenize("I added it"))
	assert.Nil(t, chat.Tokenize(""))
}

func TestStream_DeliversInOrder(t *testing.T) {
	s := chat.NewStreamer(0)

	var got []string
	err := s.Stream(context.Background(), "a b c", func(chunk string) bool {
		got = append(got, chunk)
		return true
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"a ", "b ", "c"}, got)
}

func TestStream_StopsWhenConsumerDeclines(t *testing.T) {
	s := chat.NewStreamer(0)

	var got []string
	err := s.Stream(context.Background(), "a b c d", func(chunk string) bool {
		got = append(got, chunk)
		return len(got) < 2
	})
	require.NoError(t, err)
	assert.Len(t, got, 2)
}

func TestStream_Cancellation(t *testing.T) {
	s := chat.NewStreamer(time.Hour)
	ctx, cancel := context.WithCancel(context.Background())

	var got []string
	done := make(chan error, 1)
	go func() {
		done <- s.Stream(ctx, "a b c", func(chunk string) bool {
			got = append(got, chunk)
			return true
		})
	}()

	time.Sleep(10 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
		assert.Equal(t, []string{"a "}, got)
	case <-time.After(time.Second):
		t.Fatal("stream did not stop after cancel")
	}
}

func TestStream_AppliesDelay(t *testing.T) {
	s := chat.NewStreamer(5 * time.Millisecond)
	start := time.Now()
	require.NoError(t, s.Stream(context.Background(), "a b c d", func(string) bool { return true }))
	assert.GreaterOrEqual(t, time.Since(start), 20*time.Millisecond)
}
