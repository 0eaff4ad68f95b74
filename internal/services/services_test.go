package services

import (
	"context"
	"testing"
	"time"

	"autotag/internal/models"
	"autotag/internal/optimizer"
	"autotag/internal/settings"
	"autotag/internal/testsupport"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var baseTime = time.Date(2024, 6, 15, 10, 0, 0, 0, time.UTC)

func tagSettings() settings.Settings {
	st := settings.Defaults()
	st.AutoTagEnabled = true
	st.MaxTagsPerPost = 3
	return st
}

type upperOptimizer struct {
	calls int
	out   []string
}

func (u *upperOptimizer) Optimize(ctx context.Context, st settings.Settings, in optimizer.Input) []string {
	u.calls++
	if u.out == nil {
		return in.Tags
	}
	return u.out
}

func TestTagPost_WeatherScenario(t *testing.T) {
	ms := testsupport.NewMemStore()
	ms.AddPost(models.Post{ID: 1, Title: "Weather Weather Weather", Body: "<p>Weather is <b>great</b></p>", PublishedAt: baseTime})
	old := ms.AddTerm("Old", "", models.TaxonomyTag)
	ms.Attach(1, old.ID)

	svc := NewTaggingService(ms, nil)
	tags, err := svc.GenerateTags(context.Background(), tagSettings(), 1)
	require.NoError(t, err)
	assert.Equal(t, []string{"Weather", "Great"}, tags)
	assert.Equal(t, []string{"Weather", "Great"}, ms.TermNames(1, models.TaxonomyTag), "existing tags are replaced")
}

func TestTagPost_NothingExtracted(t *testing.T) {
	ms := testsupport.NewMemStore()
	ms.AddPost(models.Post{ID: 1, Title: "The", Body: "<script>var weather = 1;</script> a an"})
	keep := ms.AddTerm("Keep", "", models.TaxonomyTag)
	ms.Attach(1, keep.ID)

	ok, err := NewTaggingService(ms, nil).TagPost(context.Background(), tagSettings(), 1)
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Equal(t, []string{"Keep"}, ms.TermNames(1, models.TaxonomyTag))
	assert.Zero(t, ms.Calls("SetPostTags"))
}

func TestTagPost_RejectsPagesAndMissingPosts(t *testing.T) {
	ms := testsupport.NewMemStore()
	ms.AddPost(models.Post{ID: 2, Title: "About hiking", Type: "page"})
	svc := NewTaggingService(ms, nil)

	_, err := svc.TagPost(context.Background(), tagSettings(), 2)
	assert.ErrorIs(t, err, models.ErrNotAPost)

	_, err = svc.TagPost(context.Background(), tagSettings(), 404)
	assert.Error(t, err)
}

func TestTagPost_UsesOptimizer(t *testing.T) {
	ms := testsupport.NewMemStore()
	ms.AddPost(models.Post{ID: 1, Title: "Hiking boots", Body: "Boots for hiking trails."})
	opt := &upperOptimizer{out: []string{"Hiking Boots", "Trail Gear"}}

	tags, err := NewTaggingService(ms, opt).GenerateTags(context.Background(), tagSettings(), 1)
	require.NoError(t, err)
	assert.Equal(t, 1, opt.calls)
	assert.Equal(t, []string{"Hiking Boots", "Trail Gear"}, tags)
	assert.Equal(t, tags, ms.TermNames(1, models.TaxonomyTag))
}

func TestTagPost_RespectsExclusionsAndLimit(t *testing.T) {
	ms := testsupport.NewMemStore()
	ms.AddPost(models.Post{ID: 1, Title: "Alpha beta gamma delta", Body: "alpha beta gamma delta epsilon"})
	st := tagSettings()
	st.MaxTagsPerPost = 2
	st.TagExclusionList = "alpha\n"

	tags, err := NewTaggingService(ms, nil).GenerateTags(context.Background(), st, 1)
	require.NoError(t, err)
	assert.Len(t, tags, 2)
	assert.NotContains(t, tags, "Alpha")
}

func TestTagPosts_CountsAndSkipsFailures(t *testing.T) {
	ms := testsupport.NewMemStore()
	ms.AddPost(models.Post{ID: 1, Title: "Rust tips", Body: "rust"})
	ms.AddPost(models.Post{ID: 2, Title: "", Body: ""})
	ms.AddPost(models.Post{ID: 3, Title: "Go tips", Body: "golang"})

	n, err := NewTaggingService(ms, nil).TagPosts(context.Background(), tagSettings(), []int64{1, 2, 99, 3})
	require.NoError(t, err)
	assert.Equal(t, 2, n)
}

func categorySite(t *testing.T) (*testsupport.MemStore, map[string]*models.Term) {
	t.Helper()
	ms := testsupport.NewMemStore()
	cats := map[string]*models.Term{
		"uncategorized": ms.AddTerm("Uncategorized", "uncategorized", models.TaxonomyCategory),
		"hiking":        ms.AddTerm("Hiking", "hiking", models.TaxonomyCategory),
		"travel":        ms.AddTerm("Travel", "travel", models.TaxonomyCategory),
		"news":          ms.AddTerm("News", "news", models.TaxonomyCategory),
	}
	return ms, cats
}

func catSettings() settings.Settings {
	st := settings.Defaults()
	st.AutoCategoryEnabled = true
	return st
}

func TestCategorizePost_HikingScenario(t *testing.T) {
	ms, cats := categorySite(t)
	ms.AddPost(models.Post{ID: 1, Title: "Travel diary", Body: "A travel day."})
	tag := ms.AddTerm("Hiking", "hiking", models.TaxonomyTag)
	ms.Attach(1, tag.ID, cats["uncategorized"].ID)

	ids, err := NewCategorizationService(ms, ms).NewPass().GenerateCategories(context.Background(), catSettings(), 1)
	require.NoError(t, err)
	assert.Equal(t, []int64{cats["hiking"].ID}, ids)
	assert.Equal(t, []string{"Hiking"}, ms.TermNames(1, models.TaxonomyCategory), "category set is replaced")
}

func TestCategorizePost_FallbackAndNoMatch(t *testing.T) {
	ms, cats := categorySite(t)
	ms.AddPost(models.Post{ID: 1, Title: "Cooking", Body: "Soup recipe"})
	svc := NewCategorizationService(ms, ms)

	ok, err := svc.NewPass().CategorizePost(context.Background(), catSettings(), 1)
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Empty(t, ms.TermNames(1, models.TaxonomyCategory))

	st := catSettings()
	st.AutoCategoryFallback = cats["news"].ID
	ok, err = svc.NewPass().CategorizePost(context.Background(), st, 1)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, []string{"News"}, ms.TermNames(1, models.TaxonomyCategory))
}

func TestCategorizePosts_OnePassOneCategoryLoad(t *testing.T) {
	ms, _ := categorySite(t)
	for i := int64(1); i <= 3; i++ {
		ms.AddPost(models.Post{ID: i, Title: "Hiking trip", Body: "travel"})
	}
	st := catSettings()
	st.AutoCategoryStrategy = settings.StrategyContentMatch

	n, err := NewCategorizationService(ms, ms).CategorizePosts(context.Background(), st, []int64{1, 2, 3})
	require.NoError(t, err)
	assert.Equal(t, 3, n)
	assert.Equal(t, 1, ms.Calls("ListCategories"))
	assert.ElementsMatch(t, []string{"Hiking", "Travel"}, ms.TermNames(2, models.TaxonomyCategory))
}

func TestSyncOnSave(t *testing.T) {
	ms, _ := categorySite(t)
	ms.AddPost(models.Post{ID: 1, Title: "Hiking", Body: ""})
	svc := NewCategorizationService(ms, ms)
	st := catSettings()
	st.AutoCategoryStrategy = settings.StrategyContentMatch

	ok, err := svc.SyncOnSave(context.Background(), st, 1)
	require.NoError(t, err)
	assert.False(t, ok, "sync on save is off")

	st.AutoCategorySyncOnSave = true
	ok, err = svc.SyncOnSave(context.Background(), st, 1)
	require.NoError(t, err)
	assert.True(t, ok)

	st.AutoCategoryEnabled = false
	ok, err = svc.SyncOnSave(context.Background(), st, 1)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestHasMeaningfulCategory(t *testing.T) {
	ms, cats := categorySite(t)
	ms.AddPost(models.Post{ID: 1})
	ms.AddPost(models.Post{ID: 2})
	ms.AddPost(models.Post{ID: 3})
	ms.Attach(2, cats["uncategorized"].ID)
	ms.Attach(3, cats["uncategorized"].ID, cats["news"].ID)
	svc := NewCategorizationService(ms, ms)

	for id, want := range map[int64]bool{1: false, 2: false, 3: true} {
		got, err := svc.HasMeaningfulCategory(context.Background(), id)
		require.NoError(t, err)
		assert.Equal(t, want, got, "post %d", id)
	}
}
