package dispatch

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const defaultRedditAPI = "https://oauth.reddit.com"

// RedditOpener reaches authors through Reddit private messages.
type RedditOpener struct {
	httpClient  *http.Client
	baseURL     string
	accessToken string
	userAgent   string
	subject     string
}

// RedditOption configures a RedditOpener.
type RedditOption func(*RedditOpener)

// WithRedditBaseURL sets a custom API base URL (for testing).
func WithRedditBaseURL(u string) RedditOption {
	return func(r *RedditOpener) {
		r.baseURL = strings.TrimRight(u, "/")
	}
}

// WithSubject sets the private message subject.
func WithSubject(subject string) RedditOption {
	return func(r *RedditOpener) {
		if subject != "" {
			r.subject = subject
		}
	}
}

// WithUserAgent sets the User-Agent header.
func WithUserAgent(ua string) RedditOption {
	return func(r *RedditOpener) {
		if ua != "" {
			r.userAgent = ua
		}
	}
}

// WithHTTPTimeout sets the HTTP client timeout.
func WithHTTPTimeout(d time.Duration) RedditOption {
	return func(r *RedditOpener) {
		r.httpClient.Timeout = d
	}
}

// NewRedditOpener creates an opener using a pre-obtained OAuth access token.
func NewRedditOpener(accessToken string, opts ...RedditOption) *RedditOpener {
	r := &RedditOpener{
		httpClient:  &http.Client{Timeout: 30 * time.Second},
		baseURL:     defaultRedditAPI,
		accessToken: accessToken,
		userAgent:   "hire-scout/1.0",
		subject:     "Saw your post",
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

type userAbout struct {
	Data struct {
		Name        string `json:"name"`
		IsSuspended bool   `json:"is_suspended"`
		AcceptPMs   *bool  `json:"accept_pms"`
	} `json:"data"`
}

// OpenChannel looks up the author's profile; missing, suspended or
// PM-disabled accounts have no channel.
func (r *RedditOpener) OpenChannel(ctx context.Context, author string) (Channel, error) {
	endpoint := fmt.Sprintf("%s/user/%s/about", r.baseURL, url.PathEscape(author))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	r.authorize(req)

	resp, err := r.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch profile: %w", err)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
	case http.StatusNotFound, http.StatusForbidden:
		return nil, nil
	default:
		return nil, fmt.Errorf("unexpected status: %d", resp.StatusCode)
	}

	var about userAbout
	if err := json.NewDecoder(resp.Body).Decode(&about); err != nil {
		return nil, fmt.Errorf("decode profile: %w", err)
	}
	if about.Data.IsSuspended || (about.Data.AcceptPMs != nil && !*about.Data.AcceptPMs) {
		return nil, nil
	}

	return &redditChannel{opener: r, author: author}, nil
}

func (r *RedditOpener) authorize(req *http.Request) {
	req.Header.Set("Authorization", "bearer "+r.accessToken)
	req.Header.Set("User-Agent", r.userAgent)
}

type redditChannel struct {
	opener *RedditOpener
	author string
}

type composeResponse struct {
	JSON struct {
		Errors [][]interface{} `json:"errors"`
	} `json:"json"`
}

func (c *redditChannel) Send(ctx context.Context, text string) error {
	form := url.Values{
		"api_type": {"json"},
		"to":       {c.author},
		"subject":  {c.opener.subject},
		"text":     {text},
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.opener.baseURL+"/api/compose",
		strings.NewReader(form.Encode()))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	c.opener.authorize(req)

	resp, err := c.opener.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("send message: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unexpected status: %d", resp.StatusCode)
	}

	var out composeResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	if len(out.JSON.Errors) > 0 {
		return fmt.Errorf("compose rejected: %v", out.JSON.Errors[0])
	}
	return nil
}
