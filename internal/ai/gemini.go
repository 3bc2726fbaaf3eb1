package ai

import (
	"context"
	"fmt"
	"sync"

	"google.golang.org/genai"
)

// GeminiCompleter calls the Gemini API through the genai SDK. Clients are
// created lazily and cached per API key.
type GeminiCompleter struct {
	mu      sync.Mutex
	clients map[string]*genai.Client
}

// NewGeminiCompleter returns a GeminiCompleter.
func NewGeminiCompleter() *GeminiCompleter {
	return &GeminiCompleter{clients: make(map[string]*genai.Client)}
}

// Complete implements Completer.
func (g *GeminiCompleter) Complete(ctx context.Context, req Request) (string, error) {
	client, err := g.client(ctx, req.APIKey)
	if err != nil {
		return "", err
	}

	resp, err := client.Models.GenerateContent(ctx, req.Model, genai.Text(req.Prompt), nil)
	if err != nil {
		return "", fmt.Errorf("gemini generate content: %w", err)
	}

	return resp.Text(), nil
}

func (g *GeminiCompleter) client(ctx context.Context, apiKey string) (*genai.Client, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if c, ok := g.clients[apiKey]; ok {
		return c, nil
	}

	c, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("creating gemini client: %w", err)
	}
	g.clients[apiKey] = c
	return c, nil
}
