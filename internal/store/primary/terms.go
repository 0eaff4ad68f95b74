package primary

import (
	"context"
	"errors"
	"fmt"

	"autotag/internal/models"
	"autotag/internal/store"

	"github.com/jackc/pgx/v5"
)

// ListCategories returns every category ordered by name.
func (s *StoreImpl) ListCategories(ctx context.Context) ([]*models.Term, error) {
	query := `SELECT id, name, slug, taxonomy, count FROM terms WHERE taxonomy = $1 ORDER BY name ASC, id ASC`
	rows, err := s.db.Query(ctx, query, models.TaxonomyCategory)
	if err != nil {
		return nil, fmt.Errorf("failed to list categories: %w", err)
	}
	defer rows.Close()
	return collectTerms(rows)
}

func (s *StoreImpl) GetTerm(ctx context.Context, id int64) (*models.Term, error) {
	query := `SELECT id, name, slug, taxonomy, count FROM terms WHERE id = $1`
	t := &models.Term{}
	err := s.db.QueryRow(ctx, query, id).Scan(&t.ID, &t.Name, &t.Slug, &t.Taxonomy, &t.Count)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get term by id %d: %w", id, err)
	}
	return t, nil
}

func collectTerms(rows pgx.Rows) ([]*models.Term, error) {
	terms, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (*models.Term, error) {
		t := &models.Term{}
		if err := row.Scan(&t.ID, &t.Name, &t.Slug, &t.Taxonomy, &t.Count); err != nil {
			return nil, fmt.Errorf("failed to scan term row: %w", err)
		}
		return t, nil
	})
	if err != nil {
		return nil, err
	}
	return terms, nil
}
