package store

import (
	"context"
	"fmt"
)

// ActivityMetrics holds aggregated ingest statistics.
type ActivityMetrics struct {
	TotalEvents     int `json:"total_events"`
	EventsLastHour  int `json:"events_last_hour"`
	ActiveUsers     int `json:"active_users"`
	RegisteredUsers int `json:"registered_users"`
}

// GetActivityMetrics returns aggregated ingest statistics from the database.
func (s *PostgresStore) GetActivityMetrics(ctx context.Context) (*ActivityMetrics, error) {
	var m ActivityMetrics

	err := s.pool.QueryRow(ctx, `
		SELECT
			COUNT(*) AS total,
			COUNT(*) FILTER (WHERE received_at > NOW() - INTERVAL '1 hour') AS last_hour,
			COUNT(DISTINCT user_id) FILTER (WHERE user_id <> '') AS active_users
		FROM activity_events
	`).Scan(&m.TotalEvents, &m.EventsLastHour, &m.ActiveUsers)
	if err != nil {
		return nil, fmt.Errorf("querying activity metrics: %w", err)
	}

	err = s.pool.QueryRow(ctx, `SELECT COUNT(*) FROM users`).Scan(&m.RegisteredUsers)
	if err != nil {
		return nil, fmt.Errorf("querying registered users: %w", err)
	}

	return &m, nil
}
