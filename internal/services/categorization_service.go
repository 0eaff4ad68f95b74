package services

import (
	"context"
	"errors"
	"fmt"

	"autotag/internal/models"
	"autotag/internal/settings"
	"autotag/internal/store"
	"autotag/internal/util"
	"autotag/pkg/categorizer"

	log "github.com/sirupsen/logrus"
)

// CategorizationService assigns existing categories to posts.
type CategorizationService struct {
	posts    store.PostStore
	taxonomy store.TaxonomyStore
}

func NewCategorizationService(posts store.PostStore, taxonomy store.TaxonomyStore) *CategorizationService {
	return &CategorizationService{posts: posts, taxonomy: taxonomy}
}

// termSource adapts the taxonomy store to the matcher.
type termSource struct {
	taxonomy store.TaxonomyStore
}

func (t termSource) ListCategories(ctx context.Context) ([]categorizer.Term, error) {
	terms, err := t.taxonomy.ListCategories(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]categorizer.Term, 0, len(terms))
	for _, term := range terms {
		out = append(out, categorizer.Term{ID: term.ID, Name: term.Name, Slug: term.Slug})
	}
	return out, nil
}

// CategorizationPass categorizes posts against one snapshot of the category
// list. Create a new pass for every request or scheduled run.
type CategorizationPass struct {
	svc     *CategorizationService
	matcher *categorizer.Matcher
}

// NewPass starts a pass with an empty category cache.
func (s *CategorizationService) NewPass() *CategorizationPass {
	return &CategorizationPass{svc: s, matcher: categorizer.NewMatcher(termSource{taxonomy: s.taxonomy})}
}

// GenerateCategories matches categories for the post and replaces the
// post's categories with them. It returns the applied ids, or none when
// nothing matched; the post is left untouched then.
func (p *CategorizationPass) GenerateCategories(ctx context.Context, st settings.Settings, postID int64) ([]int64, error) {
	post, err := p.svc.posts.GetPost(ctx, postID)
	if err != nil {
		return nil, fmt.Errorf("failed to load post %d: %w", postID, err)
	}
	if post.Type != models.PostTypePost {
		return nil, fmt.Errorf("post %d has type %q: %w", postID, post.Type, models.ErrNotAPost)
	}

	tagTerms, err := p.svc.posts.GetPostTerms(ctx, postID, models.TaxonomyTag)
	if err != nil {
		return nil, fmt.Errorf("failed to load tags for post %d: %w", postID, err)
	}
	tags := make([]string, 0, len(tagTerms))
	for _, t := range tagTerms {
		tags = append(tags, t.Name)
	}

	ids, err := p.matcher.Match(ctx, categorizer.Request{
		Title:    util.HTMLToText(post.Title),
		Body:     util.HTMLToText(post.Body),
		Tags:     tags,
		Strategy: categorizer.ParseStrategy(st.AutoCategoryStrategy),
		Limit:    st.AutoCategoryMaxCategories,
		Fallback: st.AutoCategoryFallback,
	})
	if err != nil {
		return nil, err
	}
	if len(ids) == 0 {
		return nil, nil
	}

	if err := p.svc.posts.SetPostCategories(ctx, postID, ids, true); err != nil {
		return nil, fmt.Errorf("failed to set categories for post %d: %w", postID, err)
	}
	if st.DebugMode {
		log.Debugf("Categorized post %d with %v", postID, ids)
	}
	return ids, nil
}

// CategorizePost reports whether categories were applied to the post.
func (p *CategorizationPass) CategorizePost(ctx context.Context, st settings.Settings, postID int64) (bool, error) {
	ids, err := p.GenerateCategories(ctx, st, postID)
	if err != nil {
		return false, err
	}
	return len(ids) > 0, nil
}

// CategorizePosts categorizes each post in one pass and returns how many
// were updated. Failing posts are logged and skipped.
func (s *CategorizationService) CategorizePosts(ctx context.Context, st settings.Settings, postIDs []int64) (int, error) {
	pass := s.NewPass()
	processed := 0
	for _, id := range postIDs {
		if err := ctx.Err(); err != nil {
			return processed, err
		}
		ok, err := pass.CategorizePost(ctx, st, id)
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return processed, err
			}
			log.Warnf("Skipping post %d during bulk categorization: %v", id, err)
			continue
		}
		if ok {
			processed++
		}
	}
	return processed, nil
}

// SyncOnSave runs categorization for a freshly saved post when both
// auto_category_enabled and auto_category_sync_on_save are on.
func (s *CategorizationService) SyncOnSave(ctx context.Context, st settings.Settings, postID int64) (bool, error) {
	if !st.AutoCategoryEnabled || !st.AutoCategorySyncOnSave {
		return false, nil
	}
	return s.NewPass().CategorizePost(ctx, st, postID)
}

// HasMeaningfulCategory reports whether the post has a category other than
// the lone default bucket.
func (s *CategorizationService) HasMeaningfulCategory(ctx context.Context, postID int64) (bool, error) {
	cats, err := s.posts.GetPostTerms(ctx, postID, models.TaxonomyCategory)
	if err != nil {
		return false, fmt.Errorf("failed to load categories for post %d: %w", postID, err)
	}
	if len(cats) == 0 {
		return false, nil
	}
	if len(cats) == 1 && cats[0].Slug == models.UncategorizedSlug {
		return false, nil
	}
	return true, nil
}
