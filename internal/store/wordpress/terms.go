package wordpress

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"autotag/internal/models"
	"autotag/internal/store"
)

// ListCategories returns every category, empty ones included, by name.
func (s *Store) ListCategories(ctx context.Context) ([]*models.Term, error) {
	query := fmt.Sprintf(`
		SELECT t.term_id, t.name, t.slug, tt.taxonomy, tt.count
		FROM %s t JOIN %s tt ON tt.term_id = t.term_id
		WHERE tt.taxonomy = ?
		ORDER BY t.name ASC, t.term_id ASC`, s.t.terms, s.t.termTaxonomy)
	rows, err := s.db.QueryContext(ctx, query, models.TaxonomyCategory)
	if err != nil {
		return nil, fmt.Errorf("failed to list categories: %w", err)
	}
	defer rows.Close()
	return scanTerms(rows)
}

func (s *Store) GetTerm(ctx context.Context, id int64) (*models.Term, error) {
	query := fmt.Sprintf(`
		SELECT t.term_id, t.name, t.slug, tt.taxonomy, tt.count
		FROM %s t JOIN %s tt ON tt.term_id = t.term_id
		WHERE t.term_id = ?
		LIMIT 1`, s.t.terms, s.t.termTaxonomy)
	term := &models.Term{}
	err := s.db.QueryRowContext(ctx, query, id).Scan(&term.ID, &term.Name, &term.Slug, &term.Taxonomy, &term.Count)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get term by id %d: %w", id, err)
	}
	return term, nil
}

func scanTerms(rows *sql.Rows) ([]*models.Term, error) {
	var terms []*models.Term
	for rows.Next() {
		t := &models.Term{}
		if err := rows.Scan(&t.ID, &t.Name, &t.Slug, &t.Taxonomy, &t.Count); err != nil {
			return nil, fmt.Errorf("failed to scan term row: %w", err)
		}
		terms = append(terms, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating term rows: %w", err)
	}
	return terms, nil
}

// placeholders returns n comma-separated "?" markers.
func placeholders(n int) string {
	if n <= 0 {
		return ""
	}
	return strings.TrimSuffix(strings.Repeat("?,", n), ",")
}

func int64Args(ids []int64) []any {
	out := make([]any, len(ids))
	for i, id := range ids {
		out[i] = id
	}
	return out
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
