// Package categorizer picks existing categories for a post, either from the
// post's tags or from its text.
package categorizer

import "context"

// Strategy selects how categories are matched.
type Strategy string

const (
	StrategyTagMatch     Strategy = "tag-match"
	StrategyContentMatch Strategy = "content-match"
)

// ParseStrategy maps a stored setting to a Strategy. Unknown values mean
// tag-match.
func ParseStrategy(s string) Strategy {
	if Strategy(s) == StrategyContentMatch {
		return StrategyContentMatch
	}
	return StrategyTagMatch
}

// Other returns the fallback strategy.
func (s Strategy) Other() Strategy {
	if s == StrategyContentMatch {
		return StrategyTagMatch
	}
	return StrategyContentMatch
}

// Term is a category that already exists on the site.
type Term struct {
	ID   int64
	Name string
	Slug string
}

// TermSource lists the site's categories.
type TermSource interface {
	ListCategories(ctx context.Context) ([]Term, error)
}

// Request holds the post data and limits for one match.
type Request struct {
	Title string
	// Body is plain text. Markup should be stripped by the caller.
	Body     string
	Tags     []string
	Strategy Strategy
	Limit    int
	// Fallback is used when nothing matches. Zero means none.
	Fallback int64
}
