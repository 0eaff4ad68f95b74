package services

import (
	"context"
	"fmt"
	"math"
	"time"

	"autotag/internal/models"
	"autotag/internal/store"
)

// Bounds for the dashboard statistics.
const (
	DefaultTopTags = 8
	MaxTopTags     = 20
	DefaultMonths  = 12
	MaxMonths      = 24
)

// StatsService computes the tagging dashboard figures.
type StatsService struct {
	stats store.StatsStore
	loc   *time.Location
	now   func() time.Time
}

// NewStatsService creates a StatsService. Months are bucketed in loc.
func NewStatsService(stats store.StatsStore, loc *time.Location) *StatsService {
	if loc == nil {
		loc = time.UTC
	}
	return &StatsService{stats: stats, loc: loc, now: time.Now}
}

// TaggedPostCount returns the number of published posts with at least one tag.
func (s *StatsService) TaggedPostCount(ctx context.Context) (int, error) {
	n, err := s.stats.CountTaggedPosts(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to count tagged posts: %w", err)
	}
	return n, nil
}

// TagUsage returns the most used tags (limit bounded to 1..20) and totals.
// A zero limit means DefaultTopTags.
func (s *StatsService) TagUsage(ctx context.Context, limit int) (*models.TagUsageStats, error) {
	if limit == 0 {
		limit = DefaultTopTags
	}
	limit = clamp(limit, 1, MaxTopTags)

	top, err := s.stats.TopTags(ctx, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list top tags: %w", err)
	}
	assignments, unused, tagged, err := s.stats.TagTotals(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to compute tag totals: %w", err)
	}

	avg := 0.0
	if tagged > 0 && assignments > 0 {
		avg = math.Round(float64(assignments)/float64(tagged)*10) / 10
	}
	if top == nil {
		top = []models.TagCount{}
	}
	return &models.TagUsageStats{
		TopTags:                  top,
		TotalAssignments:         assignments,
		UnusedTags:               unused,
		AverageTagsPerTaggedPost: avg,
	}, nil
}

// MonthlyPosts returns one bucket per month for the last months months
// (bounded to 1..24, zero meaning DefaultMonths), oldest first, including
// empty months.
func (s *StatsService) MonthlyPosts(ctx context.Context, months int) ([]models.MonthlyPostStats, error) {
	if months == 0 {
		months = DefaultMonths
	}
	months = clamp(months, 1, MaxMonths)

	now := s.now().In(s.loc)
	firstOfMonth := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, s.loc)
	start := firstOfMonth.AddDate(0, -(months - 1), 0)

	totals, tagged, err := s.stats.MonthlyPublished(ctx, start)
	if err != nil {
		return nil, fmt.Errorf("failed to load monthly post counts: %w", err)
	}
	totalMap := toMap(totals)
	taggedMap := toMap(tagged)

	series := make([]models.MonthlyPostStats, 0, months)
	for i := months - 1; i >= 0; i-- {
		ts := firstOfMonth.AddDate(0, -i, 0)
		key := ts.Format("2006-01")
		total := totalMap[key]
		taggedCount := min(total, taggedMap[key])
		series = append(series, models.MonthlyPostStats{
			Key:      key,
			Label:    ts.Format("Jan"),
			Year:     ts.Year(),
			Total:    total,
			Tagged:   taggedCount,
			Untagged: max(0, total-taggedCount),
		})
	}
	return series, nil
}

func toMap(counts []models.MonthCount) map[string]int {
	m := make(map[string]int, len(counts))
	for _, c := range counts {
		m[c.Key] += c.Count
	}
	return m
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
