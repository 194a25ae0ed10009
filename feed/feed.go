package feed

import (
	"context"
	"strings"
)

// Post is a single marketplace post. Body may be empty.
type Post struct {
	Author  string
	Title   string
	Body    string
	URL     string
	// LinkURL is the external target of a link post, empty for self posts.
	LinkURL string
}

// Text returns the title and body joined by a space, trimmed.
func (p Post) Text() string {
	return strings.TrimSpace(p.Title + " " + p.Body)
}

// Extract lets a Post stand in for an already extracted Entry.
func (p Post) Extract(ctx context.Context) (Post, error) {
	return p, nil
}

// Entry is a feed item whose fields are extracted on demand.
type Entry interface {
	Extract(ctx context.Context) (Post, error)
}

// Source lists the current posts of a feed.
type Source interface {
	ListPosts(ctx context.Context, feedRef string) ([]Entry, error)
}
