package composer

import (
	"fmt"
	"strings"

	"hire-scout/classifier"
	"hire-scout/feed"
)

// Rule names reported in Composition.Rule.
const (
	RuleExclusion = "exclusion"
	RuleDesign    = "design"
	RuleCombined  = "design_combined"
	RuleDeveloper = "developer"
	RuleBareWord  = "bare_word"
	RuleFallback  = "fallback"
)

// ExclusionMarkers short-circuit straight to a generic opener.
var ExclusionMarkers = []string{"anyone", "anything"}

// DeveloperKeywords select the developer message.
var DeveloperKeywords = []string{
	"python", "javascript", "typescript", "react", "node", "golang", "java", "c#", "php",
	"flutter", "swift", "kotlin", "android", "ios", "django", "flask", "api", "sql",
	"bot", "automation", "scraper", "script", "website", "web app", "developer",
	"programmer", "coding", "software", "discord", "chrome extension",
}

// designCategory is one design capability and its canned message.
type designCategory struct {
	keyword string
	message string
}

var designCategories = []designCategory{
	{keyword: "logo design", message: logoDesignMessage},
	{keyword: "video editing", message: videoEditingMessage},
}

// bareWord is the whole-text phrase handled by its own rule.
const bareWord = "hiring"

// Rules evaluates the priority table top to bottom; the first match wins.
type Rules struct {
	pick      Picker
	portfolio string
}

// NewRules creates the rule-based composer.
func NewRules(opts ...Option) *Rules {
	o := buildOptions(opts)
	return &Rules{pick: o.pick, portfolio: o.portfolio}
}

// Compose picks the message for post.
func (r *Rules) Compose(post feed.Post, result classifier.Result) Composition {
	text := strings.ToLower(post.Text())

	if containsAny(text, ExclusionMarkers) {
		return Composition{Message: randomOpener(r.pick), Rule: RuleExclusion}
	}

	var matched []designCategory
	for _, c := range designCategories {
		if strings.Contains(text, c.keyword) {
			matched = append(matched, c)
		}
	}
	switch {
	case len(matched) > 1:
		return Composition{Message: combinedDesignMessage, Rule: RuleCombined}
	case len(matched) == 1:
		return Composition{Message: matched[0].message, Rule: RuleDesign}
	}

	if containsAny(text, DeveloperKeywords) {
		return Composition{Message: fmt.Sprintf(developerMessageFormat, r.portfolio), Rule: RuleDeveloper}
	}

	if strings.Join(strings.Fields(text), " ") == bareWord {
		return Composition{Message: randomOpener(r.pick), Rule: RuleBareWord}
	}

	return Composition{Message: randomOpener(r.pick), Rule: RuleFallback}
}

func containsAny(text string, needles []string) bool {
	for _, n := range needles {
		if strings.Contains(text, n) {
			return true
		}
	}
	return false
}
