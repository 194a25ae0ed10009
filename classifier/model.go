package classifier

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"hire-scout/feed"
	"hire-scout/llm"
)

const (
	defaultPromoMobile   = "vastcom.us"
	defaultPromoSoftware = "nofeelance.com"
)

const systemInstruction = "You are a confident freelance developer who knows their craft inside out. " +
	"Be creative, funny and direct. Grab attention with personality while showing you are the expert they need. " +
	"Sound like a boss, not a corporate drone."

// Model asks a text-generation provider to classify the post and draft the message.
type Model struct {
	provider      llm.Provider
	promoMobile   string
	promoSoftware string
}

// ModelOption configures a Model classifier.
type ModelOption func(*Model)

// WithPromoTokens sets the promotional tokens for mobile and other software work.
// Empty values keep the defaults.
func WithPromoTokens(mobile, software string) ModelOption {
	return func(m *Model) {
		if mobile != "" {
			m.promoMobile = mobile
		}
		if software != "" {
			m.promoSoftware = software
		}
	}
}

// NewModel creates a model-backed classifier.
func NewModel(provider llm.Provider, opts ...ModelOption) *Model {
	m := &Model{
		provider:      provider,
		promoMobile:   defaultPromoMobile,
		promoSoftware: defaultPromoSoftware,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

type modelVerdict struct {
	IsHiringPost bool   `json:"is_hiring_post"`
	Message      string `json:"message"`
}

// Classify makes exactly one provider call. Any failure yields a not-relevant result.
func (m *Model) Classify(ctx context.Context, post feed.Post) Result {
	text, err := m.provider.Complete(ctx, llm.Request{
		System: systemInstruction,
		Prompt: m.buildPrompt(post.Text()),
	})
	if err != nil {
		slog.Warn("model classification failed", "author", post.Author, "error", err)
		return Result{}
	}
	slog.Debug("raw model response", "author", post.Author, "response", text)

	result, err := parseVerdict(text)
	if err != nil {
		slog.Warn("unparseable model response", "author", post.Author, "error", err)
		return Result{}
	}
	return result
}

func parseVerdict(text string) (Result, error) {
	var v modelVerdict
	if err := json.Unmarshal([]byte(llm.StripCodeFence(text)), &v); err != nil {
		return Result{}, fmt.Errorf("parse verdict JSON: %w", err)
	}
	if !v.IsHiringPost {
		return Result{}, nil
	}
	return Result{IsRelevant: true, SuggestedMessage: strings.TrimSpace(v.Message)}, nil
}

func (m *Model) buildPrompt(postText string) string {
	return fmt.Sprintf(`Is this post someone HIRING a SOFTWARE DEVELOPER/PROGRAMMER for coding work?

Post: %q

Only answer yes if they need someone to write code, build software, create apps, or do programming work.
Answer no for:
- Video editors, graphic designers, content creators
- People offering services or selling products
- General tech discussions or non-coding jobs
- Any non-programming work

If this is a hiring post for coding work, the message MUST:
- Be 2-3 sentences max
- Sound casual, creative and original
- Show you understood what they are looking for (briefly mention the project or tech)
- Be written in first person as a confident freelance developer
- Mention "%s" if it is mobile app development
- Mention "%s" for any other software development

If it is not hiring for programming, return an empty message.

Respond with JSON only, in this exact format:
{"is_hiring_post": true, "message": "your message or empty string"}`, postText, m.promoMobile, m.promoSoftware)
}
