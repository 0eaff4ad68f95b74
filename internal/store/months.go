package store

import (
	"sort"
	"time"

	"autotag/internal/models"
)

// MonthTally buckets published posts by calendar month in a time zone.
type MonthTally struct {
	loc    *time.Location
	totals map[string]int
	tagged map[string]int
}

func NewMonthTally(loc *time.Location) *MonthTally {
	if loc == nil {
		loc = time.UTC
	}
	return &MonthTally{loc: loc, totals: make(map[string]int), tagged: make(map[string]int)}
}

// Add counts one post published at ts.
func (m *MonthTally) Add(ts time.Time, hasTags bool) {
	key := ts.In(m.loc).Format("2006-01")
	m.totals[key]++
	if hasTags {
		m.tagged[key]++
	}
}

// Counts returns the totals and tagged counts ordered by month.
func (m *MonthTally) Counts() (total, tagged []models.MonthCount) {
	return sortedMonths(m.totals), sortedMonths(m.tagged)
}

func sortedMonths(counts map[string]int) []models.MonthCount {
	out := make([]models.MonthCount, 0, len(counts))
	for k, v := range counts {
		out = append(out, models.MonthCount{Key: k, Count: v})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	return out
}
