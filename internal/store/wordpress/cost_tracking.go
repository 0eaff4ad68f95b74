package wordpress

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"autotag/internal/models"
)

// RecordUsage inserts a new AI usage log entry.
func (s *Store) RecordUsage(ctx context.Context, log *models.AIUsageLog) error {
	if log.Timestamp.IsZero() {
		log.Timestamp = time.Now()
	}
	query := fmt.Sprintf(`
		INSERT INTO %s (created_at, provider_name, service_type, model_name, input_tokens, output_tokens, cost, post_id)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`, s.t.usage)
	res, err := s.db.ExecContext(ctx, query,
		log.Timestamp.UTC(), log.ProviderName, log.ServiceType, log.ModelName,
		log.InputTokens, log.OutputTokens, log.Cost, log.PostID,
	)
	if err != nil {
		return fmt.Errorf("failed to insert ai usage log: %w", err)
	}
	if log.ID, err = res.LastInsertId(); err != nil {
		return fmt.Errorf("failed to read ai usage log id: %w", err)
	}
	return nil
}

// ListUsage returns a page of AI usage logs, newest first.
func (s *Store) ListUsage(ctx context.Context, limit, offset int) ([]*models.AIUsageLog, error) {
	query := fmt.Sprintf(`
		SELECT id, created_at, provider_name, service_type, model_name, input_tokens, output_tokens, cost, post_id
		FROM %s
		ORDER BY created_at DESC, id DESC
		LIMIT ? OFFSET ?`, s.t.usage)
	rows, err := s.db.QueryContext(ctx, query, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to query ai usage logs: %w", err)
	}
	defer rows.Close()

	var logs []*models.AIUsageLog
	for rows.Next() {
		var l models.AIUsageLog
		var postID sql.NullInt64
		err := rows.Scan(&l.ID, &l.Timestamp, &l.ProviderName, &l.ServiceType, &l.ModelName,
			&l.InputTokens, &l.OutputTokens, &l.Cost, &postID)
		if err != nil {
			return nil, fmt.Errorf("failed to scan ai usage log: %w", err)
		}
		if postID.Valid {
			id := postID.Int64
			l.PostID = &id
		}
		logs = append(logs, &l)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating ai usage logs: %w", err)
	}
	return logs, nil
}

// GetUsageSummary returns the total cost and token usage.
func (s *Store) GetUsageSummary(ctx context.Context) (totalCost float64, totalInputTokens, totalOutputTokens int64, err error) {
	query := fmt.Sprintf(`
		SELECT COALESCE(SUM(cost), 0), COALESCE(SUM(input_tokens), 0), COALESCE(SUM(output_tokens), 0)
		FROM %s`, s.t.usage)
	err = s.db.QueryRowContext(ctx, query).Scan(&totalCost, &totalInputTokens, &totalOutputTokens)
	if err != nil {
		return 0, 0, 0, fmt.Errorf("failed to summarize ai usage logs: %w", err)
	}
	return totalCost, totalInputTokens, totalOutputTokens, nil
}
