package ai

import (
	"context"
	"fmt"
	"sync"

	"github.com/sashabaranov/go-openai"
)

// OpenAICompleter calls an OpenAI-compatible chat completion endpoint.
// The whole prompt is sent as a single user message.
type OpenAICompleter struct {
	baseURL string

	mu      sync.Mutex
	clients map[string]*openai.Client
}

// NewOpenAICompleter returns an OpenAICompleter. baseURL may be empty to
// use the default OpenAI endpoint.
func NewOpenAICompleter(baseURL string) *OpenAICompleter {
	return &OpenAICompleter{
		baseURL: baseURL,
		clients: make(map[string]*openai.Client),
	}
}

// Complete implements Completer.
func (o *OpenAICompleter) Complete(ctx context.Context, req Request) (string, error) {
	resp, err := o.client(req.APIKey).CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: req.Model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleUser, Content: req.Prompt},
		},
	})
	if err != nil {
		return "", fmt.Errorf("OpenAI API error: %w", err)
	}

	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("no response from OpenAI")
	}

	return resp.Choices[0].Message.Content, nil
}

func (o *OpenAICompleter) client(apiKey string) *openai.Client {
	o.mu.Lock()
	defer o.mu.Unlock()

	if c, ok := o.clients[apiKey]; ok {
		return c
	}

	client := openai.NewClient(apiKey)

	// Set custom base URL if provided
	if o.baseURL != "" {
		clientConfig := openai.DefaultConfig(apiKey)
		clientConfig.BaseURL = o.baseURL
		client = openai.NewClientWithConfig(clientConfig)
	}

	o.clients[apiKey] = client
	return client
}
