// Package llm wraps the text-generation providers used by the model classifier.
package llm

import (
	"context"
	"fmt"
	"net/http"
	"regexp"
	"strings"
	"time"
)

// Request is a single non-streaming completion request.
type Request struct {
	System string
	Prompt string
}

// Provider returns the raw text of one completion.
type Provider interface {
	Complete(ctx context.Context, req Request) (string, error)
}

// Option configures a provider client.
type Option func(*clientOptions)

type clientOptions struct {
	model      string
	baseURL    string
	httpClient *http.Client
}

// WithModel sets the model identifier.
func WithModel(model string) Option {
	return func(o *clientOptions) {
		if model != "" {
			o.model = model
		}
	}
}

// WithBaseURL sets a custom base URL (for testing or compatible gateways).
func WithBaseURL(url string) Option {
	return func(o *clientOptions) {
		if url != "" {
			o.baseURL = strings.TrimRight(url, "/")
		}
	}
}

// WithTimeout sets the HTTP client timeout.
func WithTimeout(d time.Duration) Option {
	return func(o *clientOptions) {
		o.httpClient.Timeout = d
	}
}

func buildOptions(model, baseURL string, opts []Option) clientOptions {
	o := clientOptions{
		model:      model,
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: 60 * time.Second},
	}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// New returns the provider client for name ("openai" or "gemini").
func New(name, apiKey string, opts ...Option) (Provider, error) {
	switch name {
	case "openai":
		return NewOpenAI(apiKey, opts...), nil
	case "gemini":
		return NewGemini(apiKey, opts...), nil
	default:
		return nil, fmt.Errorf("unknown llm provider %q", name)
	}
}

var codeBlockRegex = regexp.MustCompile("(?s)^\\s*```(?:json)?\\s*(.+?)\\s*```\\s*$")

// StripCodeFence removes an optional markdown code fence around s.
func StripCodeFence(s string) string {
	s = strings.TrimSpace(s)
	if matches := codeBlockRegex.FindStringSubmatch(s); len(matches) > 1 {
		return strings.TrimSpace(matches[1])
	}
	return s
}
