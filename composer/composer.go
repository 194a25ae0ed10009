// Package composer turns a relevant post into the outreach message text.
package composer

import (
	"fmt"
	"math/rand/v2"

	"hire-scout/classifier"
	"hire-scout/feed"
)

// Composition is the chosen message and the rule that produced it.
type Composition struct {
	Message string
	Rule    string
}

// Composer produces the message for a post already judged relevant.
type Composer interface {
	Compose(post feed.Post, result classifier.Result) Composition
}

// Strategy names accepted by New.
const (
	StrategyRules   = "rules"
	StrategyGeneric = "generic"
)

// Picker returns a uniform index in [0, n).
type Picker func(n int) int

// Option configures a composer.
type Option func(*options)

type options struct {
	pick      Picker
	portfolio string
}

// WithPicker overrides the random opener selection.
func WithPicker(p Picker) Option {
	return func(o *options) {
		o.pick = p
	}
}

// WithPortfolio sets the portfolio reference in the developer message.
func WithPortfolio(ref string) Option {
	return func(o *options) {
		if ref != "" {
			o.portfolio = ref
		}
	}
}

func buildOptions(opts []Option) options {
	o := options{
		pick:      rand.IntN,
		portfolio: defaultPortfolio,
	}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// New builds the composer for strategy.
func New(strategy string, opts ...Option) (Composer, error) {
	switch strategy {
	case StrategyRules:
		return NewRules(opts...), nil
	case StrategyGeneric:
		return NewGeneric(opts...), nil
	default:
		return nil, fmt.Errorf("unknown composer strategy %q", strategy)
	}
}

// Generic always answers with a random opener.
type Generic struct {
	pick Picker
}

// NewGeneric creates a generic-opener composer.
func NewGeneric(opts ...Option) *Generic {
	o := buildOptions(opts)
	return &Generic{pick: o.pick}
}

// Compose ignores the post content.
func (g *Generic) Compose(post feed.Post, result classifier.Result) Composition {
	return Composition{Message: randomOpener(g.pick), Rule: "generic"}
}

func randomOpener(pick Picker) string {
	return Openers[pick(len(Openers))]
}
