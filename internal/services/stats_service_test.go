package services

import (
	"context"
	"testing"
	"time"

	"autotag/internal/models"
	"autotag/internal/testsupport"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func statsSite(t *testing.T) *testsupport.MemStore {
	t.Helper()
	ms := testsupport.NewMemStore()
	rust := ms.AddTerm("Rust", "", models.TaxonomyTag)
	golang := ms.AddTerm("Go", "", models.TaxonomyTag)
	ms.AddTerm("Unused", "", models.TaxonomyTag)

	ms.AddPost(models.Post{ID: 1, PublishedAt: time.Date(2024, 6, 2, 0, 0, 0, 0, time.UTC)})
	ms.AddPost(models.Post{ID: 2, PublishedAt: time.Date(2024, 6, 9, 0, 0, 0, 0, time.UTC)})
	ms.AddPost(models.Post{ID: 3, PublishedAt: time.Date(2024, 4, 20, 0, 0, 0, 0, time.UTC)})
	ms.AddPost(models.Post{ID: 4, PublishedAt: time.Date(2023, 1, 5, 0, 0, 0, 0, time.UTC)})
	ms.AddPost(models.Post{ID: 5, Status: models.PostStatusDraft, PublishedAt: time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)})

	ms.Attach(1, rust.ID, golang.ID)
	ms.Attach(3, rust.ID)
	ms.Attach(4, rust.ID)
	return ms
}

func newStatsService(ms *testsupport.MemStore) *StatsService {
	svc := NewStatsService(ms, time.UTC)
	svc.now = func() time.Time { return baseTime }
	return svc
}

func TestStats_TaggedPostCount(t *testing.T) {
	n, err := newStatsService(statsSite(t)).TaggedPostCount(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 3, n)
}

func TestStats_TagUsage(t *testing.T) {
	svc := newStatsService(statsSite(t))

	usage, err := svc.TagUsage(context.Background(), 0)
	require.NoError(t, err)
	assert.Equal(t, []models.TagCount{{Name: "Rust", Count: 3}, {Name: "Go", Count: 1}}, usage.TopTags)
	assert.Equal(t, 4, usage.TotalAssignments)
	assert.Equal(t, 1, usage.UnusedTags)
	assert.Equal(t, 1.3, usage.AverageTagsPerTaggedPost)

	usage, err = svc.TagUsage(context.Background(), 1)
	require.NoError(t, err)
	assert.Len(t, usage.TopTags, 1)
}

func TestStats_TagUsageEmptySite(t *testing.T) {
	usage, err := newStatsService(testsupport.NewMemStore()).TagUsage(context.Background(), 100)
	require.NoError(t, err)
	assert.NotNil(t, usage.TopTags)
	assert.Empty(t, usage.TopTags)
	assert.Zero(t, usage.AverageTagsPerTaggedPost)
}

func TestStats_MonthlyPosts(t *testing.T) {
	svc := newStatsService(statsSite(t))

	series, err := svc.MonthlyPosts(context.Background(), 3)
	require.NoError(t, err)
	assert.Equal(t, []models.MonthlyPostStats{
		{Key: "2024-04", Label: "Apr", Year: 2024, Total: 1, Tagged: 1, Untagged: 0},
		{Key: "2024-05", Label: "May", Year: 2024, Total: 0, Tagged: 0, Untagged: 0},
		{Key: "2024-06", Label: "Jun", Year: 2024, Total: 2, Tagged: 1, Untagged: 1},
	}, series)
}

func TestStats_MonthlyPostsBounds(t *testing.T) {
	svc := newStatsService(statsSite(t))

	series, err := svc.MonthlyPosts(context.Background(), 0)
	require.NoError(t, err)
	require.Len(t, series, DefaultMonths)
	assert.Equal(t, "2023-07", series[0].Key)
	assert.Equal(t, "2024-06", series[len(series)-1].Key)

	series, err = svc.MonthlyPosts(context.Background(), 100)
	require.NoError(t, err)
	require.Len(t, series, MaxMonths)
	assert.Equal(t, "2022-07", series[0].Key)
	assert.Equal(t, 1, series[6].Total, "January 2023 post is counted")
}

func TestCostService(t *testing.T) {
	ms := testsupport.NewMemStore()
	require.NoError(t, ms.RecordUsage(context.Background(), &models.AIUsageLog{ProviderName: "openai", InputTokens: 100, OutputTokens: 20, Cost: 0.5}))
	require.NoError(t, ms.RecordUsage(context.Background(), &models.AIUsageLog{ProviderName: "google", InputTokens: 10, OutputTokens: 5, Cost: 0.25}))

	svc := NewCostService(ms)
	logs, err := svc.ListUsage(context.Background(), 10, 0)
	require.NoError(t, err)
	require.Len(t, logs, 2)
	assert.Equal(t, "google", logs[0].ProviderName, "newest first")

	sum, err := svc.GetSummary(context.Background())
	require.NoError(t, err)
	assert.Equal(t, UsageSummary{TotalCost: 0.75, TotalInputTokens: 110, TotalOutputTokens: 25}, sum)
}
