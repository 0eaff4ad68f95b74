package wordpress

import (
	"context"
	"fmt"
	"time"

	"autotag/internal/models"
	"autotag/internal/store"
)

func (s *Store) CountTaggedPosts(ctx context.Context) (int, error) {
	query := fmt.Sprintf(`
		SELECT COUNT(DISTINCT p.ID)
		FROM %s p
		JOIN %s tr ON tr.object_id = p.ID
		JOIN %s tt ON tt.term_taxonomy_id = tr.term_taxonomy_id AND tt.taxonomy = ?
		WHERE p.post_type = ? AND p.post_status = ?`, s.t.posts, s.t.termRelationships, s.t.termTaxonomy)
	var n int
	if err := s.db.QueryRowContext(ctx, query, models.TaxonomyTag, models.PostTypePost, models.PostStatusPublish).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count tagged posts: %w", err)
	}
	return n, nil
}

func (s *Store) TopTags(ctx context.Context, limit int) ([]models.TagCount, error) {
	query := fmt.Sprintf(`
		SELECT t.name, tt.count
		FROM %s t JOIN %s tt ON tt.term_id = t.term_id
		WHERE tt.taxonomy = ? AND tt.count > 0
		ORDER BY tt.count DESC, t.name ASC
		LIMIT ?`, s.t.terms, s.t.termTaxonomy)
	rows, err := s.db.QueryContext(ctx, query, models.TaxonomyTag, limit)
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

func (s *Store) TagTotals(ctx context.Context) (assignments, unused, taggedPosts int, err error) {
	query := fmt.Sprintf(`
		SELECT COALESCE(SUM(count), 0), COALESCE(SUM(count = 0), 0)
		FROM %s WHERE taxonomy = ?`, s.t.termTaxonomy)
	if err = s.db.QueryRowContext(ctx, query, models.TaxonomyTag).Scan(&assignments, &unused); err != nil {
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
func (s *Store) MonthlyPublished(ctx context.Context, since time.Time) (total, tagged []models.MonthCount, err error) {
	query := fmt.Sprintf(`
		SELECT p.post_date_gmt, EXISTS (
			SELECT 1 FROM %s tr
			JOIN %s tt ON tt.term_taxonomy_id = tr.term_taxonomy_id AND tt.taxonomy = ?
			WHERE tr.object_id = p.ID
		)
		FROM %s p
		WHERE p.post_type = ? AND p.post_status = ? AND p.post_date_gmt >= ?`,
		s.t.termRelationships, s.t.termTaxonomy, s.t.posts)
	rows, err := s.db.QueryContext(ctx, query, models.TaxonomyTag, models.PostTypePost, models.PostStatusPublish, since.UTC())
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
