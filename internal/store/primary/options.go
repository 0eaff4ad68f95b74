package primary

import (
	"context"
	"errors"
	"fmt"

	"autotag/internal/store"

	"github.com/jackc/pgx/v5"
)

func (s *StoreImpl) GetOption(ctx context.Context, name string) ([]byte, error) {
	var value []byte
	err := s.db.QueryRow(ctx, `SELECT value FROM options WHERE name = $1`, name).Scan(&value)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get option '%s': %w", name, err)
	}
	return value, nil
}

func (s *StoreImpl) SetOption(ctx context.Context, name string, value []byte) error {
	_, err := s.db.Exec(ctx, `
		INSERT INTO options (name, value) VALUES ($1, $2)
		ON CONFLICT (name) DO UPDATE SET value = EXCLUDED.value`, name, value)
	if err != nil {
		return fmt.Errorf("failed to set option '%s': %w", name, err)
	}
	return nil
}

func (s *StoreImpl) DeleteOption(ctx context.Context, name string) error {
	if _, err := s.db.Exec(ctx, `DELETE FROM options WHERE name = $1`, name); err != nil {
		return fmt.Errorf("failed to delete option '%s': %w", name, err)
	}
	return nil
}
