package services

import (
	"context"
	"errors"
	"fmt"

	"autotag/internal/models"
	"autotag/internal/optimizer"
	"autotag/internal/settings"
	"autotag/internal/store"
	"autotag/internal/util"
	"autotag/pkg/tagger"

	log "github.com/sirupsen/logrus"
)

// TagOptimizer refines extracted tags. It returns its input on failure.
type TagOptimizer interface {
	Optimize(ctx context.Context, st settings.Settings, in optimizer.Input) []string
}

// TaggingService extracts tags from posts and writes them back.
type TaggingService struct {
	posts     store.PostStore
	optimizer TagOptimizer
}

// NewTaggingService creates a TaggingService. opt may be nil.
func NewTaggingService(posts store.PostStore, opt TagOptimizer) *TaggingService {
	return &TaggingService{posts: posts, optimizer: opt}
}

// GenerateTags extracts tags for the post, optionally refines them, and
// replaces the post's tags with the result. It returns the applied tags, or
// none when nothing usable was found; the post is left untouched then.
func (s *TaggingService) GenerateTags(ctx context.Context, st settings.Settings, postID int64) ([]string, error) {
	post, err := s.posts.GetPost(ctx, postID)
	if err != nil {
		return nil, fmt.Errorf("failed to load post %d: %w", postID, err)
	}
	if post.Type != models.PostTypePost {
		return nil, fmt.Errorf("post %d has type %q: %w", postID, post.Type, models.ErrNotAPost)
	}

	title := util.HTMLToText(post.Title)
	body := util.HTMLToText(post.Body)
	exclude := tagger.NewExclusionSet(tagger.ParseExclusionList(st.TagExclusionList)...)

	tags := tagger.Extract(title, body, tagger.Options{MaxTags: st.MaxTagsPerPost, Exclude: exclude})
	if len(tags) == 0 {
		return nil, nil
	}

	if s.optimizer != nil {
		tags = s.optimizer.Optimize(ctx, st, optimizer.Input{
			PostID:  postID,
			Title:   title,
			Content: body,
			Tags:    tags,
		})
	}

	if err := s.posts.SetPostTags(ctx, postID, tags, true); err != nil {
		return nil, fmt.Errorf("failed to set tags for post %d: %w", postID, err)
	}
	if st.DebugMode {
		log.Debugf("Tagged post %d with %v", postID, tags)
	}
	return tags, nil
}

// TagPost reports whether tags were applied to the post.
func (s *TaggingService) TagPost(ctx context.Context, st settings.Settings, postID int64) (bool, error) {
	tags, err := s.GenerateTags(ctx, st, postID)
	if err != nil {
		return false, err
	}
	return len(tags) > 0, nil
}

// TagPosts tags each post in turn and returns how many were tagged. A post
// that fails is logged and skipped; only a cancelled context stops the loop.
func (s *TaggingService) TagPosts(ctx context.Context, st settings.Settings, postIDs []int64) (int, error) {
	processed := 0
	for _, id := range postIDs {
		if err := ctx.Err(); err != nil {
			return processed, err
		}
		ok, err := s.TagPost(ctx, st, id)
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return processed, err
			}
			log.Warnf("Skipping post %d during bulk tagging: %v", id, err)
			continue
		}
		if ok {
			processed++
		}
	}
	return processed, nil
}
