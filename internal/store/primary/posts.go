package primary

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"autotag/internal/models"
	"autotag/internal/store"
	"autotag/internal/util"

	"github.com/jackc/pgx/v5"
)

func (s *StoreImpl) GetPost(ctx context.Context, id int64) (*models.Post, error) {
	query := `SELECT id, title, body, status, type, published_at FROM posts WHERE id = $1`
	p := &models.Post{}
	err := s.db.QueryRow(ctx, query, id).Scan(&p.ID, &p.Title, &p.Body, &p.Status, &p.Type, &p.PublishedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get post %d: %w", id, err)
	}
	return p, nil
}

// ListRecentPublished returns published posts, newest first.
func (s *StoreImpl) ListRecentPublished(ctx context.Context, limit int) ([]*models.Post, error) {
	if limit <= 0 {
		limit = 50
	}
	query := `
		SELECT id, title, body, status, type, published_at
		FROM posts
		WHERE type = $1 AND status = $2
		ORDER BY published_at DESC, id DESC
		LIMIT $3`
	rows, err := s.db.Query(ctx, query, models.PostTypePost, models.PostStatusPublish, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list recent posts: %w", err)
	}
	defer rows.Close()

	posts, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (*models.Post, error) {
		p := &models.Post{}
		if err := row.Scan(&p.ID, &p.Title, &p.Body, &p.Status, &p.Type, &p.PublishedAt); err != nil {
			return nil, fmt.Errorf("failed to scan post row: %w", err)
		}
		return p, nil
	})
	if err != nil {
		return nil, err
	}
	return posts, nil
}

func (s *StoreImpl) GetPostTerms(ctx context.Context, postID int64, taxonomy string) ([]*models.Term, error) {
	query := `
		SELECT t.id, t.name, t.slug, t.taxonomy, t.count
		FROM terms t
		JOIN post_terms pt ON pt.term_id = t.id
		WHERE pt.post_id = $1 AND t.taxonomy = $2
		ORDER BY pt.term_order, t.id`
	rows, err := s.db.Query(ctx, query, postID, taxonomy)
	if err != nil {
		return nil, fmt.Errorf("failed to get %s terms for post %d: %w", taxonomy, postID, err)
	}
	defer rows.Close()
	return collectTerms(rows)
}

// SetPostTags attaches tags by name, creating missing ones. With replace
// the post's other tags are detached first.
func (s *StoreImpl) SetPostTags(ctx context.Context, postID int64, names []string, replace bool) error {
	return pgx.BeginFunc(ctx, s.db, func(tx pgx.Tx) error {
		if err := postExists(ctx, tx, postID); err != nil {
			return err
		}
		touched, err := detach(ctx, tx, postID, models.TaxonomyTag, replace)
		if err != nil {
			return err
		}

		order, err := nextTermOrder(ctx, tx, postID)
		if err != nil {
			return err
		}
		for _, name := range names {
			name = strings.TrimSpace(name)
			if name == "" {
				continue
			}
			id, err := ensureTag(ctx, tx, name)
			if err != nil {
				return err
			}
			if err := attach(ctx, tx, postID, id, order); err != nil {
				return err
			}
			order++
			touched = append(touched, id)
		}
		return recount(ctx, tx, touched)
	})
}

// SetPostCategories attaches existing categories. Ids that are not
// categories fail the whole call with store.ErrUnknownTerm.
func (s *StoreImpl) SetPostCategories(ctx context.Context, postID int64, termIDs []int64, replace bool) error {
	return pgx.BeginFunc(ctx, s.db, func(tx pgx.Tx) error {
		if err := postExists(ctx, tx, postID); err != nil {
			return err
		}

		var known int
		err := tx.QueryRow(ctx,
			`SELECT COUNT(*) FROM terms WHERE id = ANY($1) AND taxonomy = $2`,
			uniqueIDs(termIDs), models.TaxonomyCategory,
		).Scan(&known)
		if err != nil {
			return fmt.Errorf("failed to check categories: %w", err)
		}
		if known != len(uniqueIDs(termIDs)) {
			return store.ErrUnknownTerm
		}

		touched, err := detach(ctx, tx, postID, models.TaxonomyCategory, replace)
		if err != nil {
			return err
		}
		order, err := nextTermOrder(ctx, tx, postID)
		if err != nil {
			return err
		}
		for _, id := range termIDs {
			if err := attach(ctx, tx, postID, id, order); err != nil {
				return err
			}
			order++
			touched = append(touched, id)
		}
		return recount(ctx, tx, touched)
	})
}

func postExists(ctx context.Context, tx pgx.Tx, postID int64) error {
	var one int
	err := tx.QueryRow(ctx, `SELECT 1 FROM posts WHERE id = $1`, postID).Scan(&one)
	if errors.Is(err, pgx.ErrNoRows) {
		return store.ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("failed to look up post %d: %w", postID, err)
	}
	return nil
}

// detach removes the post's terms in taxonomy when replace is set and
// returns the ids that were removed.
func detach(ctx context.Context, tx pgx.Tx, postID int64, taxonomy string, replace bool) ([]int64, error) {
	if !replace {
		return nil, nil
	}
	rows, err := tx.Query(ctx, `
		DELETE FROM post_terms pt
		USING terms t
		WHERE pt.term_id = t.id AND pt.post_id = $1 AND t.taxonomy = $2
		RETURNING pt.term_id`, postID, taxonomy)
	if err != nil {
		return nil, fmt.Errorf("failed to detach %s terms from post %d: %w", taxonomy, postID, err)
	}
	ids, err := pgx.CollectRows(rows, pgx.RowTo[int64])
	if err != nil {
		return nil, fmt.Errorf("failed to read detached terms: %w", err)
	}
	return ids, nil
}

func nextTermOrder(ctx context.Context, tx pgx.Tx, postID int64) (int, error) {
	var order int
	err := tx.QueryRow(ctx, `SELECT COALESCE(MAX(term_order) + 1, 0) FROM post_terms WHERE post_id = $1`, postID).Scan(&order)
	if err != nil {
		return 0, fmt.Errorf("failed to read term order for post %d: %w", postID, err)
	}
	return order, nil
}

func attach(ctx context.Context, tx pgx.Tx, postID, termID int64, order int) error {
	_, err := tx.Exec(ctx, `
		INSERT INTO post_terms (post_id, term_id, term_order) VALUES ($1, $2, $3)
		ON CONFLICT (post_id, term_id) DO NOTHING`, postID, termID, order)
	if err != nil {
		return fmt.Errorf("failed to attach term %d to post %d: %w", termID, postID, err)
	}
	return nil
}

// ensureTag finds a tag by name (case-insensitive) or slug and creates it
// when missing.
func ensureTag(ctx context.Context, tx pgx.Tx, name string) (int64, error) {
	slug := util.Slugify(name)
	var id int64
	err := tx.QueryRow(ctx, `
		SELECT id FROM terms
		WHERE taxonomy = $1 AND (LOWER(name) = LOWER($2) OR slug = $3)
		ORDER BY id LIMIT 1`, models.TaxonomyTag, name, slug).Scan(&id)
	if err == nil {
		return id, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return 0, fmt.Errorf("failed to look up tag '%s': %w", name, err)
	}

	err = tx.QueryRow(ctx, `
		INSERT INTO terms (name, slug, taxonomy) VALUES ($1, $2, $3)
		ON CONFLICT (taxonomy, slug) DO UPDATE SET name = terms.name
		RETURNING id`, name, slug, models.TaxonomyTag).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("failed to create tag '%s': %w", name, err)
	}
	return id, nil
}

// recount refreshes the published-post counts of the given terms.
func recount(ctx context.Context, tx pgx.Tx, termIDs []int64) error {
	if len(termIDs) == 0 {
		return nil
	}
	_, err := tx.Exec(ctx, `
		UPDATE terms t SET count = (
			SELECT COUNT(*) FROM post_terms pt
			JOIN posts p ON p.id = pt.post_id
			WHERE pt.term_id = t.id AND p.status = $2 AND p.type = $3
		)
		WHERE t.id = ANY($1)`, uniqueIDs(termIDs), models.PostStatusPublish, models.PostTypePost)
	if err != nil {
		return fmt.Errorf("failed to update term counts: %w", err)
	}
	return nil
}

func uniqueIDs(ids []int64) []int64 {
	seen := make(map[int64]struct{}, len(ids))
	out := make([]int64, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
