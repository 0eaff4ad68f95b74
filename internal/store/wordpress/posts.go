package wordpress

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"autotag/internal/models"
	"autotag/internal/store"
	"autotag/internal/util"
)

func (s *Store) GetPost(ctx context.Context, id int64) (*models.Post, error) {
	query := fmt.Sprintf(`SELECT ID, post_title, post_content, post_status, post_type, post_date_gmt FROM %s WHERE ID = ?`, s.t.posts)
	p := &models.Post{}
	err := s.db.QueryRowContext(ctx, query, id).Scan(&p.ID, &p.Title, &p.Body, &p.Status, &p.Type, &p.PublishedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get post %d: %w", id, err)
	}
	return p, nil
}

// ListRecentPublished returns published posts ordered by post date, newest
// first.
func (s *Store) ListRecentPublished(ctx context.Context, limit int) ([]*models.Post, error) {
	if limit <= 0 {
		limit = 50
	}
	query := fmt.Sprintf(`
		SELECT ID, post_title, post_content, post_status, post_type, post_date_gmt
		FROM %s
		WHERE post_type = ? AND post_status = ?
		ORDER BY post_date DESC, ID DESC
		LIMIT ?`, s.t.posts)
	rows, err := s.db.QueryContext(ctx, query, models.PostTypePost, models.PostStatusPublish, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list recent posts: %w", err)
	}
	defer rows.Close()

	var posts []*models.Post
	for rows.Next() {
		p := &models.Post{}
		if err := rows.Scan(&p.ID, &p.Title, &p.Body, &p.Status, &p.Type, &p.PublishedAt); err != nil {
			return nil, fmt.Errorf("failed to scan post row: %w", err)
		}
		posts = append(posts, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating post rows: %w", err)
	}
	return posts, nil
}

func (s *Store) GetPostTerms(ctx context.Context, postID int64, taxonomy string) ([]*models.Term, error) {
	query := fmt.Sprintf(`
		SELECT t.term_id, t.name, t.slug, tt.taxonomy, tt.count
		FROM %s t
		JOIN %s tt ON tt.term_id = t.term_id
		JOIN %s tr ON tr.term_taxonomy_id = tt.term_taxonomy_id
		WHERE tr.object_id = ? AND tt.taxonomy = ?
		ORDER BY tr.term_order, t.name`, s.t.terms, s.t.termTaxonomy, s.t.termRelationships)
	rows, err := s.db.QueryContext(ctx, query, postID, taxonomy)
	if err != nil {
		return nil, fmt.Errorf("failed to get %s terms for post %d: %w", taxonomy, postID, err)
	}
	defer rows.Close()
	return scanTerms(rows)
}

// SetPostTags attaches tags by name, creating missing ones. With replace
// the post's other tags are detached first.
func (s *Store) SetPostTags(ctx context.Context, postID int64, names []string, replace bool) error {
	return s.withTx(ctx, func(tx *sql.Tx) error {
		if err := s.postExists(ctx, tx, postID); err != nil {
			return err
		}
		touched, err := s.detach(ctx, tx, postID, models.TaxonomyTag, replace)
		if err != nil {
			return err
		}
		order, err := s.nextTermOrder(ctx, tx, postID)
		if err != nil {
			return err
		}
		for _, name := range names {
			name = strings.TrimSpace(name)
			if name == "" {
				continue
			}
			ttID, err := s.ensureTag(ctx, tx, name)
			if err != nil {
				return err
			}
			if err := s.attach(ctx, tx, postID, ttID, order); err != nil {
				return err
			}
			order++
			touched = append(touched, ttID)
		}
		return s.recount(ctx, tx, touched)
	})
}

// SetPostCategories attaches existing categories by term id. Ids that are
// not categories fail the whole call with store.ErrUnknownTerm.
func (s *Store) SetPostCategories(ctx context.Context, postID int64, termIDs []int64, replace bool) error {
	return s.withTx(ctx, func(tx *sql.Tx) error {
		if err := s.postExists(ctx, tx, postID); err != nil {
			return err
		}
		ttIDs, err := s.categoryTaxonomyIDs(ctx, tx, termIDs)
		if err != nil {
			return err
		}
		touched, err := s.detach(ctx, tx, postID, models.TaxonomyCategory, replace)
		if err != nil {
			return err
		}
		order, err := s.nextTermOrder(ctx, tx, postID)
		if err != nil {
			return err
		}
		for _, ttID := range ttIDs {
			if err := s.attach(ctx, tx, postID, ttID, order); err != nil {
				return err
			}
			order++
			touched = append(touched, ttID)
		}
		return s.recount(ctx, tx, touched)
	})
}

func (s *Store) postExists(ctx context.Context, tx *sql.Tx, postID int64) error {
	var one int
	err := tx.QueryRowContext(ctx, fmt.Sprintf(`SELECT 1 FROM %s WHERE ID = ?`, s.t.posts), postID).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return store.ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("failed to look up post %d: %w", postID, err)
	}
	return nil
}

// categoryTaxonomyIDs maps category term ids to term_taxonomy ids, keeping
// the caller's order.
func (s *Store) categoryTaxonomyIDs(ctx context.Context, tx *sql.Tx, termIDs []int64) ([]int64, error) {
	ids := uniqueIDs(termIDs)
	if len(ids) == 0 {
		return nil, nil
	}
	query := fmt.Sprintf(`SELECT term_id, term_taxonomy_id FROM %s WHERE taxonomy = ? AND term_id IN (%s)`,
		s.t.termTaxonomy, placeholders(len(ids)))
	args := append([]any{models.TaxonomyCategory}, int64Args(ids)...)
	rows, err := tx.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to look up categories: %w", err)
	}
	defer rows.Close()

	byTerm := make(map[int64]int64, len(ids))
	for rows.Next() {
		var termID, ttID int64
		if err := rows.Scan(&termID, &ttID); err != nil {
			return nil, fmt.Errorf("failed to scan category row: %w", err)
		}
		byTerm[termID] = ttID
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating category rows: %w", err)
	}

	out := make([]int64, 0, len(ids))
	for _, id := range ids {
		ttID, ok := byTerm[id]
		if !ok {
			return nil, fmt.Errorf("category %d: %w", id, store.ErrUnknownTerm)
		}
		out = append(out, ttID)
	}
	return out, nil
}

// detach removes the post's relationships in taxonomy when replace is set
// and returns the affected term_taxonomy ids.
func (s *Store) detach(ctx context.Context, tx *sql.Tx, postID int64, taxonomy string, replace bool) ([]int64, error) {
	if !replace {
		return nil, nil
	}
	query := fmt.Sprintf(`
		SELECT tr.term_taxonomy_id FROM %s tr
		JOIN %s tt ON tt.term_taxonomy_id = tr.term_taxonomy_id
		WHERE tr.object_id = ? AND tt.taxonomy = ?`, s.t.termRelationships, s.t.termTaxonomy)
	rows, err := tx.QueryContext(ctx, query, postID, taxonomy)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s terms of post %d: %w", taxonomy, postID, err)
	}
	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			rows.Close()
			return nil, fmt.Errorf("failed to scan relationship row: %w", err)
		}
		ids = append(ids, id)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating relationship rows: %w", err)
	}
	if len(ids) == 0 {
		return nil, nil
	}

	del := fmt.Sprintf(`DELETE FROM %s WHERE object_id = ? AND term_taxonomy_id IN (%s)`,
		s.t.termRelationships, placeholders(len(ids)))
	if _, err := tx.ExecContext(ctx, del, append([]any{postID}, int64Args(ids)...)...); err != nil {
		return nil, fmt.Errorf("failed to detach %s terms from post %d: %w", taxonomy, postID, err)
	}
	return ids, nil
}

func (s *Store) nextTermOrder(ctx context.Context, tx *sql.Tx, postID int64) (int, error) {
	var order int
	query := fmt.Sprintf(`SELECT COALESCE(MAX(term_order) + 1, 0) FROM %s WHERE object_id = ?`, s.t.termRelationships)
	if err := tx.QueryRowContext(ctx, query, postID).Scan(&order); err != nil {
		return 0, fmt.Errorf("failed to read term order for post %d: %w", postID, err)
	}
	return order, nil
}

func (s *Store) attach(ctx context.Context, tx *sql.Tx, postID, ttID int64, order int) error {
	query := fmt.Sprintf(`INSERT IGNORE INTO %s (object_id, term_taxonomy_id, term_order) VALUES (?, ?, ?)`, s.t.termRelationships)
	if _, err := tx.ExecContext(ctx, query, postID, ttID, order); err != nil {
		return fmt.Errorf("failed to attach term %d to post %d: %w", ttID, postID, err)
	}
	return nil
}

// ensureTag returns the term_taxonomy id of the tag named name, creating
// the term when no tag matches by name or slug.
func (s *Store) ensureTag(ctx context.Context, tx *sql.Tx, name string) (int64, error) {
	slug := util.Slugify(name)
	query := fmt.Sprintf(`
		SELECT tt.term_taxonomy_id FROM %s t
		JOIN %s tt ON tt.term_id = t.term_id
		WHERE tt.taxonomy = ? AND (LOWER(t.name) = LOWER(?) OR t.slug = ?)
		ORDER BY t.term_id LIMIT 1`, s.t.terms, s.t.termTaxonomy)
	var ttID int64
	err := tx.QueryRowContext(ctx, query, models.TaxonomyTag, name, slug).Scan(&ttID)
	if err == nil {
		return ttID, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return 0, fmt.Errorf("failed to look up tag '%s': %w", name, err)
	}

	res, err := tx.ExecContext(ctx, fmt.Sprintf(`INSERT INTO %s (name, slug, term_group) VALUES (?, ?, 0)`, s.t.terms), name, slug)
	if err != nil {
		return 0, fmt.Errorf("failed to create tag '%s': %w", name, err)
	}
	termID, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("failed to read new term id: %w", err)
	}
	res, err = tx.ExecContext(ctx,
		fmt.Sprintf(`INSERT INTO %s (term_id, taxonomy, description, parent, count) VALUES (?, ?, '', 0, 0)`, s.t.termTaxonomy),
		termID, models.TaxonomyTag)
	if err != nil {
		return 0, fmt.Errorf("failed to register tag '%s': %w", name, err)
	}
	return res.LastInsertId()
}

// recount refreshes the published-post counts of the given term_taxonomy
// rows.
func (s *Store) recount(ctx context.Context, tx *sql.Tx, ttIDs []int64) error {
	ids := uniqueIDs(ttIDs)
	if len(ids) == 0 {
		return nil
	}
	query := fmt.Sprintf(`
		UPDATE %s tt SET count = (
			SELECT COUNT(*) FROM %s tr
			JOIN %s p ON p.ID = tr.object_id
			WHERE tr.term_taxonomy_id = tt.term_taxonomy_id AND p.post_status = ? AND p.post_type = ?
		)
		WHERE tt.term_taxonomy_id IN (%s)`, s.t.termTaxonomy, s.t.termRelationships, s.t.posts, placeholders(len(ids)))
	args := append([]any{models.PostStatusPublish, models.PostTypePost}, int64Args(ids)...)
	if _, err := tx.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("failed to update term counts: %w", err)
	}
	return nil
}
