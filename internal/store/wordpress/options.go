package wordpress

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"autotag/internal/store"
)

func (s *Store) GetOption(ctx context.Context, name string) ([]byte, error) {
	var value []byte
	query := fmt.Sprintf(`SELECT option_value FROM %s WHERE option_name = ?`, s.t.options)
	if err := s.db.QueryRowContext(ctx, query, name).Scan(&value); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get option '%s': %w", name, err)
	}
	return value, nil
}

// SetOption upserts an autoloaded option.
func (s *Store) SetOption(ctx context.Context, name string, value []byte) error {
	query := fmt.Sprintf(`
		INSERT INTO %s (option_name, option_value, autoload) VALUES (?, ?, 'yes')
		ON DUPLICATE KEY UPDATE option_value = VALUES(option_value)`, s.t.options)
	if _, err := s.db.ExecContext(ctx, query, name, value); err != nil {
		return fmt.Errorf("failed to set option '%s': %w", name, err)
	}
	return nil
}

func (s *Store) DeleteOption(ctx context.Context, name string) error {
	query := fmt.Sprintf(`DELETE FROM %s WHERE option_name = ?`, s.t.options)
	if _, err := s.db.ExecContext(ctx, query, name); err != nil {
		return fmt.Errorf("failed to delete option '%s': %w", name, err)
	}
	return nil
}
