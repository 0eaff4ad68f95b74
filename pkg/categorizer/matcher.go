package categorizer

import (
	"context"
	"fmt"
	"strings"
)

// Matcher resolves categories for posts. It loads the category list from its
// source on first use and keeps it for its own lifetime, so one Matcher
// should serve one categorization pass.
type Matcher struct {
	src    TermSource
	terms  []Term
	lookup map[string]int64
	loaded bool
}

// NewMatcher returns a Matcher with an empty cache.
func NewMatcher(src TermSource) *Matcher {
	return &Matcher{src: src}
}

// Match returns the category ids for the request, deduplicated and capped at
// req.Limit. The requested strategy runs first and the other one is tried
// when it finds nothing. An empty result with a nil error means no category
// applies.
func (m *Matcher) Match(ctx context.Context, req Request) ([]int64, error) {
	if req.Limit < 1 {
		req.Limit = 1
	}
	if err := m.load(ctx); err != nil {
		return nil, err
	}

	ids := m.run(req.Strategy, req)
	if len(ids) == 0 {
		ids = m.run(req.Strategy.Other(), req)
	}
	if len(ids) == 0 && req.Fallback > 0 {
		ids = []int64{req.Fallback}
	}
	return capUnique(ids, req.Limit), nil
}

// Terms returns the cached categories, loading them if needed.
func (m *Matcher) Terms(ctx context.Context) ([]Term, error) {
	if err := m.load(ctx); err != nil {
		return nil, err
	}
	return m.terms, nil
}

func (m *Matcher) run(s Strategy, req Request) []int64 {
	if s == StrategyContentMatch {
		return m.matchContent(req.Title, req.Body, req.Limit)
	}
	return m.matchTags(req.Tags, req.Limit)
}

func (m *Matcher) load(ctx context.Context) error {
	if m.loaded {
		return nil
	}
	terms, err := m.src.ListCategories(ctx)
	if err != nil {
		return fmt.Errorf("failed to list categories: %w", err)
	}

	// A key shared by several categories maps to the last one listed.
	lookup := make(map[string]int64, len(terms)*2)
	for _, t := range terms {
		for _, key := range []string{t.Name, t.Slug} {
			key = strings.ToLower(strings.TrimSpace(key))
			if key == "" {
				continue
			}
			lookup[key] = t.ID
		}
	}
	m.terms = terms
	m.lookup = lookup
	m.loaded = true
	return nil
}

// matchTags maps tag names onto categories with the same name or slug, in
// tag order.
func (m *Matcher) matchTags(tags []string, limit int) []int64 {
	var ids []int64
	seen := make(map[int64]bool)
	for _, tag := range tags {
		id, ok := m.lookup[strings.ToLower(strings.TrimSpace(tag))]
		if !ok || seen[id] {
			continue
		}
		seen[id] = true
		ids = append(ids, id)
		if len(ids) >= limit {
			break
		}
	}
	return ids
}

// matchContent returns categories whose name, or slug read as words, occurs
// in the title or body. Categories are checked in listing order.
func (m *Matcher) matchContent(title, body string, limit int) []int64 {
	haystack := strings.ToLower(title + " " + body)
	if strings.TrimSpace(haystack) == "" {
		return nil
	}

	var ids []int64
	for _, t := range m.terms {
		name := strings.ToLower(strings.TrimSpace(t.Name))
		slug := strings.ReplaceAll(strings.ToLower(strings.TrimSpace(t.Slug)), "-", " ")
		if (name != "" && strings.Contains(haystack, name)) ||
			(slug != "" && strings.Contains(haystack, slug)) {
			ids = append(ids, t.ID)
			if len(ids) >= limit {
				break
			}
		}
	}
	return ids
}

func capUnique(ids []int64, limit int) []int64 {
	out := make([]int64, 0, len(ids))
	seen := make(map[int64]bool, len(ids))
	for _, id := range ids {
		if id <= 0 || seen[id] {
			continue
		}
		seen[id] = true
		out = append(out, id)
		if len(out) >= limit {
			break
		}
	}
	if len(out) == 0 {
		return nil
	}
	return out
}
