package primary

import (
	"context"
	"os"
	"testing"
	"time"

	"autotag/internal/models"
	"autotag/internal/store"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// openTestStore connects to AUTOTAG_TEST_POSTGRES_DSN and resets the schema.
// The test is skipped when the variable is unset.
func openTestStore(t *testing.T) *StoreImpl {
	t.Helper()
	dsn := os.Getenv("AUTOTAG_TEST_POSTGRES_DSN")
	if dsn == "" {
		t.Skip("AUTOTAG_TEST_POSTGRES_DSN not set")
	}
	ctx := context.Background()
	s, err := NewPrimaryStore(ctx, dsn, PoolOptions{MaxConns: 2})
	require.NoError(t, err)
	t.Cleanup(s.Close)

	_, err = s.db.Exec(ctx, `DROP TABLE IF EXISTS post_terms, terms, posts, options, ai_usage_logs`)
	require.NoError(t, err)
	require.NoError(t, s.Migrate(ctx))
	return s
}

func insertPost(t *testing.T, s *StoreImpl, title, status string, at time.Time) int64 {
	t.Helper()
	var id int64
	err := s.db.QueryRow(context.Background(),
		`INSERT INTO posts (title, body, status, type, published_at) VALUES ($1, '', $2, 'post', $3) RETURNING id`,
		title, status, at).Scan(&id)
	require.NoError(t, err)
	return id
}

func insertCategory(t *testing.T, s *StoreImpl, name, slug string) int64 {
	t.Helper()
	var id int64
	err := s.db.QueryRow(context.Background(),
		`INSERT INTO terms (name, slug, taxonomy) VALUES ($1, $2, 'category') RETURNING id`, name, slug).Scan(&id)
	require.NoError(t, err)
	return id
}

func TestPrimaryStore_TagsAndCounts(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	base := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)

	p1 := insertPost(t, s, "First", models.PostStatusPublish, base)
	p2 := insertPost(t, s, "Second", models.PostStatusPublish, base.Add(time.Hour))
	insertPost(t, s, "Draft", models.PostStatusDraft, base.Add(2*time.Hour))

	require.NoError(t, s.SetPostTags(ctx, p1, []string{"Rust", "Go"}, true))
	require.NoError(t, s.SetPostTags(ctx, p2, []string{"rust"}, true))

	tags, err := s.GetPostTerms(ctx, p2, models.TaxonomyTag)
	require.NoError(t, err)
	require.Len(t, tags, 1)
	assert.Equal(t, "Rust", tags[0].Name, "existing tag is reused case-insensitively")

	top, err := s.TopTags(ctx, 10)
	require.NoError(t, err)
	assert.Equal(t, []models.TagCount{{Name: "Rust", Count: 2}, {Name: "Go", Count: 1}}, top)

	require.NoError(t, s.SetPostTags(ctx, p1, []string{"Zig"}, true))
	assignments, unused, tagged, err := s.TagTotals(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, assignments)
	assert.Equal(t, 1, unused, "Go lost its only post")
	assert.Equal(t, 2, tagged)

	recent, err := s.ListRecentPublished(ctx, 10)
	require.NoError(t, err)
	require.Len(t, recent, 2)
	assert.Equal(t, p2, recent[0].ID)

	total, taggedMonths, err := s.MonthlyPublished(ctx, time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	assert.Equal(t, []models.MonthCount{{Key: "2024-06", Count: 2}}, total)
	assert.Equal(t, []models.MonthCount{{Key: "2024-06", Count: 2}}, taggedMonths)
}

func TestPrimaryStore_Categories(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	post := insertPost(t, s, "Trip", models.PostStatusPublish, time.Now())
	hiking := insertCategory(t, s, "Hiking", "hiking")
	travel := insertCategory(t, s, "Travel", "travel")

	require.NoError(t, s.SetPostCategories(ctx, post, []int64{travel}, true))
	require.NoError(t, s.SetPostCategories(ctx, post, []int64{hiking}, true))

	cats, err := s.GetPostTerms(ctx, post, models.TaxonomyCategory)
	require.NoError(t, err)
	require.Len(t, cats, 1)
	assert.Equal(t, "Hiking", cats[0].Name)

	err = s.SetPostCategories(ctx, post, []int64{hiking, 999999}, true)
	assert.ErrorIs(t, err, store.ErrUnknownTerm)

	err = s.SetPostCategories(ctx, 424242, []int64{hiking}, true)
	assert.ErrorIs(t, err, store.ErrNotFound)

	list, err := s.ListCategories(ctx)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "Hiking", list[0].Name)
	assert.Equal(t, 1, list[0].Count)
}

func TestPrimaryStore_OptionsAndUsage(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	_, err := s.GetOption(ctx, "missing")
	assert.ErrorIs(t, err, store.ErrNotFound)

	require.NoError(t, s.SetOption(ctx, "k", []byte("v1")))
	require.NoError(t, s.SetOption(ctx, "k", []byte("v2")))
	v, err := s.GetOption(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, "v2", string(v))
	require.NoError(t, s.DeleteOption(ctx, "k"))
	_, err = s.GetOption(ctx, "k")
	assert.ErrorIs(t, err, store.ErrNotFound)

	postID := int64(7)
	require.NoError(t, s.RecordUsage(ctx, &models.AIUsageLog{ProviderName: "openai", ServiceType: models.ServiceTypeTagOptimization, ModelName: "m", InputTokens: 10, OutputTokens: 2, Cost: 0.5, PostID: &postID}))
	logs, err := s.ListUsage(ctx, 10, 0)
	require.NoError(t, err)
	require.Len(t, logs, 1)
	require.NotNil(t, logs[0].PostID)
	assert.Equal(t, postID, *logs[0].PostID)

	cost, in, out, err := s.GetUsageSummary(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0.5, cost)
	assert.Equal(t, int64(10), in)
	assert.Equal(t, int64(2), out)
}
