package feed

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

var (
	// ErrNoTitle is returned when a listing entry has no title element.
	ErrNoTitle = errors.New("entry has no title")
	// ErrNoAuthor is returned when a listing entry has no author element.
	ErrNoAuthor = errors.New("entry has no author")
)

// HTMLSource scrapes old.reddit listing pages.
type HTMLSource struct {
	httpClient *http.Client
	baseURL    string
	limit      int
	userAgent  string
}

// NewHTMLSource creates an HTML listing source.
func NewHTMLSource(opts ...Option) *HTMLSource {
	o := buildOptions(opts)
	return &HTMLSource{
		httpClient: &http.Client{Timeout: o.timeout},
		baseURL:    o.baseURL,
		limit:      o.limit,
		userAgent:  o.userAgent,
	}
}

// ListPosts fetches the listing page and returns one lazy entry per post element.
func (s *HTMLSource) ListPosts(ctx context.Context, feedRef string) ([]Entry, error) {
	url := fmt.Sprintf("%s%s/?limit=%d", s.baseURL, listingPath(feedRef), s.limit)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("User-Agent", s.userAgent)

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch listing page: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status: %d", resp.StatusCode)
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("parse listing page: %w", err)
	}

	return ParseListing(doc), nil
}

// ParseListing returns an entry for every div.thing in the document.
func ParseListing(doc *goquery.Document) []Entry {
	var entries []Entry
	doc.Find("div.thing").Each(func(i int, sel *goquery.Selection) {
		entries = append(entries, &htmlEntry{sel: sel})
	})
	return entries
}

type htmlEntry struct {
	sel *goquery.Selection
}

func (e *htmlEntry) Extract(ctx context.Context) (Post, error) {
	titleSel := e.sel.Find("a.title").First()
	if titleSel.Length() == 0 {
		return Post{}, ErrNoTitle
	}
	authorSel := e.sel.Find("a.author").First()
	if authorSel.Length() == 0 {
		return Post{}, ErrNoAuthor
	}

	post := Post{
		Title:  strings.TrimSpace(titleSel.Text()),
		Author: strings.TrimSpace(authorSel.Text()),
		Body:   strings.TrimSpace(e.sel.Find(".usertext-body").First().Text()),
	}

	if permalink, ok := e.sel.Attr("data-permalink"); ok && permalink != "" {
		post.URL = permalinkHost + permalink
	} else if href, ok := titleSel.Attr("href"); ok {
		post.URL = href
	}
	if link, ok := e.sel.Attr("data-url"); ok && !strings.HasPrefix(link, "/") {
		post.LinkURL = link
	}

	return post, nil
}
