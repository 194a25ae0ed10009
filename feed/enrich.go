package feed

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/go-shiori/go-readability"
)

const defaultMaxContentLen = 4000

// Enricher fills the empty body of link posts with the readable text of the
// linked page. It runs per post, after the caller has decided the post is
// worth the fetch.
type Enricher struct {
	httpClient    *http.Client
	maxContentLen int
	userAgent     string
}

// EnrichOption configures an Enricher.
type EnrichOption func(*Enricher)

// WithEnrichTimeout sets the HTTP client timeout for linked pages.
func WithEnrichTimeout(d time.Duration) EnrichOption {
	return func(e *Enricher) {
		e.httpClient.Timeout = d
	}
}

// WithMaxContentLength sets the maximum body length in bytes taken from a linked page.
func WithMaxContentLength(n int) EnrichOption {
	return func(e *Enricher) {
		e.maxContentLen = n
	}
}

// WithEnrichUserAgent sets the User-Agent header for linked pages.
func WithEnrichUserAgent(ua string) EnrichOption {
	return func(e *Enricher) {
		if ua != "" {
			e.userAgent = ua
		}
	}
}

// NewEnricher creates a link-post enricher.
func NewEnricher(opts ...EnrichOption) *Enricher {
	e := &Enricher{
		httpClient:    &http.Client{Timeout: 10 * time.Second},
		maxContentLen: defaultMaxContentLen,
		userAgent:     defaultUserAgent,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Enrich returns post with Body filled from its external link. Posts that
// already have a body or link inside reddit are returned unchanged, as are
// posts whose page cannot be read.
func (e *Enricher) Enrich(ctx context.Context, post Post) Post {
	if post.Body != "" || !isExternalLink(post.LinkURL) {
		return post
	}

	body, err := e.scrape(ctx, post.LinkURL)
	if err != nil {
		slog.Warn("link enrichment failed, classifying on title", "url", post.LinkURL, "error", err)
		return post
	}
	post.Body = body
	return post
}

func (e *Enricher) scrape(ctx context.Context, rawURL string) (string, error) {
	parsedURL, err := url.Parse(rawURL)
	if err != nil || parsedURL.Scheme == "" || parsedURL.Host == "" {
		return "", fmt.Errorf("invalid URL: %s", rawURL)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("User-Agent", e.userAgent)

	resp, err := e.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("fetch URL: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("unexpected status: %d", resp.StatusCode)
	}

	article, err := readability.FromReader(resp.Body, parsedURL)
	if err != nil {
		return "", fmt.Errorf("parse content: %w", err)
	}

	return truncate(strings.TrimSpace(article.TextContent), e.maxContentLen), nil
}

// truncate cuts s to at most n bytes without splitting a rune.
func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n]
}

// isExternalLink reports whether u points outside reddit.
func isExternalLink(u string) bool {
	parsed, err := url.Parse(u)
	if err != nil || parsed.Host == "" {
		return false
	}
	host := strings.ToLower(parsed.Hostname())
	return host != "reddit.com" && !strings.HasSuffix(host, ".reddit.com") && host != "redd.it"
}
