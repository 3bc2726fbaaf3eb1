package ai

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/nhle/taskchat/internal/logging"
)

// User-facing replies used when the provider cannot answer.
const (
	HighTrafficText   = "Sorry, I am currently experiencing high traffic. Please try again later."
	ProviderErrorText = "Sorry, I encountered an error processing your request."
)

const (
	defaultModel   = "gemini-2.5-flash"
	defaultTimeout = 30 * time.Second
)

// Status classifies how a completion ended.
type Status int

const (
	StatusOK Status = iota
	StatusRateLimited
	StatusProviderError
)

func (s Status) String() string {
	switch s {
	case StatusOK:
		return "ok"
	case StatusRateLimited:
		return "rate_limited"
	default:
		return "provider_error"
	}
}

// Completion is the outcome of Gateway.Complete. On failure Text holds the
// fallback reply for the user.
type Completion struct {
	Text     string
	Status   Status
	Attempts int
}

// GatewayConfig configures a Gateway.
type GatewayConfig struct {
	// Keys are tried in order; rotation wraps around.
	Keys []string

	// Models is indexed by the key cursor modulo its length.
	Models []string

	// Timeout bounds each attempt. Zero means 30s.
	Timeout time.Duration
}

// Gateway produces completions with credential rotation on rate limits.
// Each Gateway owns its own cursor, so separate instances never interfere.
type Gateway struct {
	mu        sync.Mutex
	keys      []string
	models    []string
	index     int
	completer Completer
	timeout   time.Duration
	logger    *slog.Logger
	now       func() time.Time
}

// NewGateway returns a Gateway starting at key index 0.
func NewGateway(c Completer, cfg GatewayConfig, logger *slog.Logger) *Gateway {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &Gateway{
		keys:      append([]string(nil), cfg.Keys...),
		models:    append([]string(nil), cfg.Models...),
		completer: c,
		timeout:   timeout,
		logger:    logging.OrDefault(logger),
		now:       time.Now,
	}
}

// Index returns the active credential index.
func (g *Gateway) Index() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.index
}

// KeyCount returns the number of configured credentials.
func (g *Gateway) KeyCount() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.keys)
}

// Model returns the model paired with the active credential.
func (g *Gateway) Model() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.modelLocked()
}

// Rotate advances the cursor to (index + 1) mod len(keys) and returns the
// new index.
func (g *Gateway) Rotate() (int, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if len(g.keys) == 0 {
		return 0, ErrNoCredentials
	}
	g.index = (g.index + 1) % len(g.keys)
	g.logger.Info("rotated api key", "index", g.index, "model", g.modelLocked())
	return g.index, nil
}

// Complete sends prompt to the active credential/model pair. Rate-limited
// attempts rotate and retry, up to len(keys)+1 attempts in total, with one
// rotation between consecutive attempts. Any other error ends immediately.
// Failures never surface as errors; the returned Text is a fallback reply.
func (g *Gateway) Complete(ctx context.Context, prompt string) Completion {
	log := logging.FromContext(ctx, g.logger)

	g.mu.Lock()
	maxAttempts := len(g.keys) + 1
	noKeys := len(g.keys) == 0
	g.mu.Unlock()

	if noKeys {
		log.Error("completion skipped", "error", ErrNoCredentials)
		return Completion{Text: ProviderErrorText, Status: StatusProviderError}
	}

	for attempt := 1; attempt <= maxAttempts; attempt++ {
		key, model := g.current()

		attemptCtx, cancel := context.WithTimeout(ctx, g.timeout)
		start := g.now()
		text, err := g.completer.Complete(attemptCtx, Request{Prompt: prompt, Model: model, APIKey: key})
		cancel()

		if err == nil {
			log.Debug("completion succeeded",
				"model", model, "attempt", attempt, "elapsed", g.now().Sub(start))
			return Completion{Text: text, Status: StatusOK, Attempts: attempt}
		}

		if ctx.Err() != nil || !IsRateLimited(err) {
			log.Error("provider error", "model", model, "attempt", attempt, "error", err)
			return Completion{Text: ProviderErrorText, Status: StatusProviderError, Attempts: attempt}
		}

		log.Warn("rate limited", "model", model, "attempt", attempt, "max_attempts", maxAttempts)
		if attempt == maxAttempts {
			break
		}
		if _, err := g.Rotate(); err != nil {
			log.Error("rotation failed", "error", err)
			return Completion{Text: ProviderErrorText, Status: StatusProviderError, Attempts: attempt}
		}
	}

	return Completion{Text: HighTrafficText, Status: StatusRateLimited, Attempts: maxAttempts}
}

func (g *Gateway) current() (key, model string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if len(g.keys) == 0 {
		return "", g.modelLocked()
	}
	return g.keys[g.index%len(g.keys)], g.modelLocked()
}

func (g *Gateway) modelLocked() string {
	if len(g.models) == 0 {
		return defaultModel
	}
	if m := g.models[g.index%len(g.models)]; m != "" {
		return m
	}
	return defaultModel
}
