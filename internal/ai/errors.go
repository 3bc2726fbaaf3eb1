package ai

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/sashabaranov/go-openai"
	"google.golang.org/genai"
)

// ErrNoCredentials is returned by Rotate when no API keys are configured.
var ErrNoCredentials = errors.New("no API credentials configured")

// StatusError is a provider failure carrying an HTTP-like status code.
type StatusError struct {
	Code    int
	Message string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("provider error (%d): %s", e.Code, e.Message)
}

// rateLimitMarkers are substrings providers use for quota exhaustion.
var rateLimitMarkers = []string{
	"429",
	"RESOURCE_EXHAUSTED",
	"Resource has been exhausted",
	"quota",
}

// IsRateLimited reports whether err signals HTTP 429 or quota exhaustion.
// It checks typed status codes first and falls back to message substrings.
func IsRateLimited(err error) bool {
	if err == nil {
		return false
	}

	var statusErr *StatusError
	if errors.As(err, &statusErr) && statusErr.Code == http.StatusTooManyRequests {
		return true
	}

	var geminiErr genai.APIError
	if errors.As(err, &geminiErr) {
		if geminiErr.Code == http.StatusTooManyRequests || geminiErr.Status == "RESOURCE_EXHAUSTED" {
			return true
		}
	}
	var geminiErrPtr *genai.APIError
	if errors.As(err, &geminiErrPtr) && geminiErrPtr != nil {
		if geminiErrPtr.Code == http.StatusTooManyRequests || geminiErrPtr.Status == "RESOURCE_EXHAUSTED" {
			return true
		}
	}

	var openaiErr *openai.APIError
	if errors.As(err, &openaiErr) && openaiErr.HTTPStatusCode == http.StatusTooManyRequests {
		return true
	}
	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) && reqErr.HTTPStatusCode == http.StatusTooManyRequests {
		return true
	}

	msg := err.Error()
	for _, marker := range rateLimitMarkers {
		if strings.Contains(msg, marker) {
			return true
		}
	}
	return false
}
