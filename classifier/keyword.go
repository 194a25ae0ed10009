package classifier

import (
	"context"
	"strings"

	"hire-scout/feed"
)

// DefaultKeywords trigger the keyword rule.
var DefaultKeywords = []string{"hiring", "task"}

// Keyword marks a post relevant when its lowercased text contains any keyword.
type Keyword struct {
	keywords []string
}

// NewKeyword creates a keyword classifier. With no keywords it uses DefaultKeywords.
func NewKeyword(keywords ...string) *Keyword {
	if len(keywords) == 0 {
		keywords = DefaultKeywords
	}
	lowered := make([]string, 0, len(keywords))
	for _, k := range keywords {
		if k = strings.ToLower(strings.TrimSpace(k)); k != "" {
			lowered = append(lowered, k)
		}
	}
	return &Keyword{keywords: lowered}
}

// Classify is a plain substring test; the message is left to the composer.
func (k *Keyword) Classify(ctx context.Context, post feed.Post) Result {
	text := strings.ToLower(post.Text())
	for _, kw := range k.keywords {
		if strings.Contains(text, kw) {
			return Result{IsRelevant: true}
		}
	}
	return Result{}
}
