package feed

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"
)

const (
	defaultBaseURL   = "https://old.reddit.com"
	defaultLimit     = 25
	defaultUserAgent = "hire-scout/1.0"
	permalinkHost    = "https://www.reddit.com"
)

// RedditSource reads listings from Reddit's public JSON endpoints.
type RedditSource struct {
	httpClient *http.Client
	baseURL    string
	limit      int
	userAgent  string
}

// Option configures a RedditSource or HTMLSource.
type Option func(*sourceOptions)

type sourceOptions struct {
	timeout   time.Duration
	baseURL   string
	limit     int
	userAgent string
}

// WithBaseURL sets a custom base URL (for testing).
func WithBaseURL(url string) Option {
	return func(o *sourceOptions) {
		if url != "" {
			o.baseURL = strings.TrimRight(url, "/")
		}
	}
}

// WithTimeout sets the HTTP client timeout.
func WithTimeout(d time.Duration) Option {
	return func(o *sourceOptions) {
		o.timeout = d
	}
}

// WithLimit sets the maximum number of posts per listing.
func WithLimit(n int) Option {
	return func(o *sourceOptions) {
		if n > 0 {
			o.limit = n
		}
	}
}

// WithUserAgent sets the User-Agent header sent to Reddit.
func WithUserAgent(ua string) Option {
	return func(o *sourceOptions) {
		if ua != "" {
			o.userAgent = ua
		}
	}
}

func buildOptions(opts []Option) sourceOptions {
	o := sourceOptions{
		timeout:   30 * time.Second,
		baseURL:   defaultBaseURL,
		limit:     defaultLimit,
		userAgent: defaultUserAgent,
	}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// NewRedditSource creates a JSON listing source.
func NewRedditSource(opts ...Option) *RedditSource {
	o := buildOptions(opts)
	return &RedditSource{
		httpClient: &http.Client{Timeout: o.timeout},
		baseURL:    o.baseURL,
		limit:      o.limit,
		userAgent:  o.userAgent,
	}
}

type listing struct {
	Data struct {
		Children []struct {
			Kind string      `json:"kind"`
			Data listingPost `json:"data"`
		} `json:"children"`
	} `json:"data"`
}

type listingPost struct {
	Author    string `json:"author"`
	Title     string `json:"title"`
	Selftext  string `json:"selftext"`
	Permalink string `json:"permalink"`
	URL       string `json:"url"`
	IsSelf    bool   `json:"is_self"`
}

// ListPosts fetches the feed listing, newest first as Reddit orders it.
func (s *RedditSource) ListPosts(ctx context.Context, feedRef string) ([]Entry, error) {
	url := fmt.Sprintf("%s%s.json?limit=%d&raw_json=1", s.baseURL, listingPath(feedRef), s.limit)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("User-Agent", s.userAgent)

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch listing: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status: %d", resp.StatusCode)
	}

	var l listing
	if err := json.NewDecoder(resp.Body).Decode(&l); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}

	entries := make([]Entry, 0, len(l.Data.Children))
	for _, child := range l.Data.Children {
		if child.Kind != "t3" {
			continue
		}
		p := child.Data
		post := Post{
			Author: strings.TrimSpace(p.Author),
			Title:  strings.TrimSpace(p.Title),
			Body:   strings.TrimSpace(p.Selftext),
			URL:    p.URL,
		}
		if p.Permalink != "" {
			post.URL = permalinkHost + p.Permalink
		}
		if !p.IsSelf {
			post.LinkURL = p.URL
		}
		entries = append(entries, post)
	}
	return entries, nil
}

// listingPath normalizes a feed ref such as "/r/forhire/new/" to "/r/forhire/new".
func listingPath(feedRef string) string {
	path := "/" + strings.Trim(feedRef, "/")
	return strings.TrimSuffix(path, ".json")
}
