package ai

import "context"

// Request is one completion call: a prompt sent to a model with a key.
type Request struct {
	Prompt string
	Model  string
	APIKey string
}

// Completer is the LLM capability. Implementations return the full
// completion text or an error that IsRateLimited can classify.
type Completer interface {
	Complete(ctx context.Context, req Request) (string, error)
}

// CompleterFunc adapts a function to the Completer interface.
type CompleterFunc func(ctx context.Context, req Request) (string, error)

// Complete calls f.
func (f CompleterFunc) Complete(ctx context.Context, req Request) (string, error) {
	return f(ctx, req)
}
