package services

import (
	"context"
	"fmt"

	"autotag/internal/models"
	"autotag/internal/store"
)

// TagService reads the terms currently attached to posts.
type TagService struct {
	store store.PostStore
}

func NewTagService(ps store.PostStore) *TagService {
	return &TagService{store: ps}
}

// PostTerms is a post's tags and categories in attach order.
type PostTerms struct {
	PostID     int64          `json:"post_id"`
	Tags       []*models.Term `json:"tags"`
	Categories []*models.Term `json:"categories"`
}

// GetPostTags retrieves the tags attached to a post.
func (ts *TagService) GetPostTags(ctx context.Context, postID int64) ([]*models.Term, error) {
	return ts.terms(ctx, postID, models.TaxonomyTag)
}

// GetPostCategories retrieves the categories attached to a post.
func (ts *TagService) GetPostCategories(ctx context.Context, postID int64) ([]*models.Term, error) {
	return ts.terms(ctx, postID, models.TaxonomyCategory)
}

// GetPostTerms retrieves both taxonomies for an existing post.
func (ts *TagService) GetPostTerms(ctx context.Context, postID int64) (*PostTerms, error) {
	if _, err := ts.store.GetPost(ctx, postID); err != nil {
		return nil, fmt.Errorf("failed to load post %d: %w", postID, err)
	}
	tags, err := ts.GetPostTags(ctx, postID)
	if err != nil {
		return nil, err
	}
	cats, err := ts.GetPostCategories(ctx, postID)
	if err != nil {
		return nil, err
	}
	return &PostTerms{PostID: postID, Tags: tags, Categories: cats}, nil
}

func (ts *TagService) terms(ctx context.Context, postID int64, taxonomy string) ([]*models.Term, error) {
	terms, err := ts.store.GetPostTerms(ctx, postID, taxonomy)
	if err != nil {
		return nil, fmt.Errorf("failed to get %s terms for post %d from store: %w", taxonomy, postID, err)
	}
	// Empty slice, not nil, so JSON renders [].
	if terms == nil {
		return []*models.Term{}, nil
	}
	return terms, nil
}
