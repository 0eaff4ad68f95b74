// Package tagger ranks candidate tags for a post by weighted word frequency.
//
// Words are scored from three sources: the title, the full body and the lead
// (the first LeadTokens words of the body). Each occurrence adds the weight of
// its source, so a word in the opening paragraph counts for both the body and
// the lead.
package tagger

import (
	"sort"
	"strings"
)

// Source weights.
const (
	BodyWeight  = 1.0
	TitleWeight = 3.0
	LeadWeight  = 1.5
)

// LeadTokens is the number of body tokens treated as the lead paragraph.
const LeadTokens = 120

// Tag count bounds.
const (
	DefaultMaxTags = 10
	MaxTagsLimit   = 50
)

// Candidate is a normalized word with its accumulated score.
type Candidate struct {
	Word  string
	Score float64
}

// ExclusionSet holds lowercase words that never become tags.
type ExclusionSet map[string]struct{}

// NewExclusionSet returns the built-in stop words plus the given custom words.
func NewExclusionSet(custom ...string) ExclusionSet {
	set := make(ExclusionSet, len(stopWords)+len(custom))
	for _, w := range stopWords {
		set[w] = struct{}{}
	}
	for _, w := range custom {
		w = strings.ToLower(strings.TrimSpace(w))
		if w != "" {
			set[w] = struct{}{}
		}
	}
	return set
}

// Contains reports whether word is excluded, ignoring case.
func (s ExclusionSet) Contains(word string) bool {
	_, ok := s[strings.ToLower(word)]
	return ok
}

// Options controls a single extraction.
type Options struct {
	MaxTags int
	// Exclude is the active exclusion set. Nil means the built-in stop words.
	Exclude ExclusionSet
}

// Score tokenizes title and body and returns every non-excluded word with its
// weighted score, highest first. Words with equal scores keep the order in
// which they first appear, reading the title before the body.
func Score(title, body string, exclude ExclusionSet) []Candidate {
	if exclude == nil {
		exclude = NewExclusionSet()
	}

	titleTokens := Tokenize(title)
	bodyTokens := Tokenize(body)
	leadTokens := bodyTokens
	if len(leadTokens) > LeadTokens {
		leadTokens = leadTokens[:LeadTokens]
	}

	scores := make(map[string]float64)
	var order []string
	accumulate := func(tokens []string, weight float64) {
		counts := make(map[string]int)
		var seen []string
		for _, tok := range tokens {
			if _, skip := exclude[tok]; skip {
				continue
			}
			if counts[tok] == 0 {
				seen = append(seen, tok)
			}
			counts[tok]++
		}
		for _, w := range seen {
			if _, ok := scores[w]; !ok {
				order = append(order, w)
			}
			scores[w] += float64(counts[w]) * weight
		}
	}

	accumulate(titleTokens, TitleWeight)
	accumulate(bodyTokens, BodyWeight)
	accumulate(leadTokens, LeadWeight)

	candidates := make([]Candidate, 0, len(order))
	for _, w := range order {
		candidates = append(candidates, Candidate{Word: w, Score: scores[w]})
	}
	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].Score > candidates[j].Score
	})
	return candidates
}

// Extract returns up to opts.MaxTags capitalized tags for the post, highest
// scored first. An empty result means nothing usable was found.
func Extract(title, body string, opts Options) []string {
	limit := opts.MaxTags
	if limit < 1 {
		limit = DefaultMaxTags
	} else if limit > MaxTagsLimit {
		limit = MaxTagsLimit
	}

	candidates := Score(title, body, opts.Exclude)
	if len(candidates) == 0 {
		return nil
	}
	if len(candidates) > limit {
		candidates = candidates[:limit]
	}

	tags := make([]string, len(candidates))
	for i, c := range candidates {
		tags[i] = Capitalize(c.Word)
	}
	return tags
}
