// Package classifier decides whether a post is a hiring opportunity for coding work.
package classifier

import (
	"context"
	"fmt"

	"hire-scout/feed"
	"hire-scout/llm"
)

// Result is the per-post decision. SuggestedMessage may be empty.
type Result struct {
	IsRelevant       bool
	SuggestedMessage string
}

// Classifier never fails: errors are logged and treated as not relevant.
type Classifier interface {
	Classify(ctx context.Context, post feed.Post) Result
}

// Strategy names accepted by New.
const (
	StrategyKeyword = "keyword"
	StrategyModel   = "model"
)

// Options carries the settings either strategy may need.
type Options struct {
	Keywords      []string
	Provider      llm.Provider
	PromoMobile   string
	PromoSoftware string
}

// New builds the classifier for strategy.
func New(strategy string, opts Options) (Classifier, error) {
	switch strategy {
	case StrategyKeyword:
		return NewKeyword(opts.Keywords...), nil
	case StrategyModel:
		if opts.Provider == nil {
			return nil, fmt.Errorf("model classifier requires an llm provider")
		}
		return NewModel(opts.Provider, WithPromoTokens(opts.PromoMobile, opts.PromoSoftware)), nil
	default:
		return nil, fmt.Errorf("unknown classifier strategy %q", strategy)
	}
}
