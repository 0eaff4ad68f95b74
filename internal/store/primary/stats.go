package primary

import (
	"context"
	"fmt"
	"time"

	"autotag/internal/models"
	"autotag/internal/store"
)

const taggedPostsQuery = `
	SELECT COUNT(DISTINCT p.id)
	FROM posts p
	JOIN post_terms pt ON pt.post_id = p.id
	JOIN terms t ON t.id = pt.term_id AND t.taxonomy = $1
	WHERE p.type = $2 AND p.status = $3`

func (s *StoreImpl) CountTaggedPosts(ctx context.Context) (int, error) {
	var n int
	err := s.db.QueryRow(ctx, taggedPostsQuery, models.TaxonomyTag, models.PostTypePost, models.PostStatusPublish).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("failed to count tagged posts: %w", err)
	}
	return n, nil
}

func (s *StoreImpl) TopTags(ctx context.Context, limit int) ([]models.TagCount, error) {
	rows, err := s.db.Query(ctx, `
		SELECT name, count FROM terms
		WHERE taxonomy = $1 AND count > 0
		ORDER BY count DESC, name ASC
		LIMIT $2`, models.TaxonomyTag, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list top tags: %w", err)
	}
	defer rows.Close()

	var out []models.TagCount
	for rows.Next() {
		var tc models.TagCount
		if err := rows.Scan(&tc.Name, &tc.Count); err != nil {
			return nil, fmt.Errorf("failed to scan tag count: %w", err)
		}
		out = append(out, tc)
	}
	return out, rows.Err()
}

func (s *StoreImpl) TagTotals(ctx context.Context) (assignments, unused, taggedPosts int, err error) {
	err = s.db.QueryRow(ctx, `
		SELECT COALESCE(SUM(count), 0), COUNT(*) FILTER (WHERE count = 0)
		FROM terms WHERE taxonomy = $1`, models.TaxonomyTag).Scan(&assignments, &unused)
	if err != nil {
		return 0, 0, 0, fmt.Errorf("failed to total tag usage: %w", err)
	}
	taggedPosts, err = s.CountTaggedPosts(ctx)
	if err != nil {
		return 0, 0, 0, err
	}
	return assignments, unused, taggedPosts, nil
}

// MonthlyPublished counts published posts since the given time, bucketed
// by month in since's location.
func (s *StoreImpl) MonthlyPublished(ctx context.Context, since time.Time) (total, tagged []models.MonthCount, err error) {
	rows, err := s.db.Query(ctx, `
		SELECT p.published_at, EXISTS (
			SELECT 1 FROM post_terms pt
			JOIN terms t ON t.id = pt.term_id AND t.taxonomy = $1
			WHERE pt.post_id = p.id
		)
		FROM posts p
		WHERE p.type = $2 AND p.status = $3 AND p.published_at >= $4`,
		models.TaxonomyTag, models.PostTypePost, models.PostStatusPublish, since)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to query monthly posts: %w", err)
	}
	defer rows.Close()

	tally := store.NewMonthTally(since.Location())
	for rows.Next() {
		var ts time.Time
		var hasTags bool
		if err := rows.Scan(&ts, &hasTags); err != nil {
			return nil, nil, fmt.Errorf("failed to scan monthly post row: %w", err)
		}
		tally.Add(ts, hasTags)
	}
	if err := rows.Err(); err != nil {
		return nil, nil, fmt.Errorf("error iterating monthly post rows: %w", err)
	}
	total, tagged = tally.Counts()
	return total, tagged, nil
}
