package store

import (
	"context"
	"fmt"
	"time"

	"github.com/Priya8975/activity-logger/internal/domain"
	"github.com/jackc/pgx/v5"
)

// EventFilter narrows ListEvents. Zero values match everything.
type EventFilter struct {
	UserID string
	Action string
	Limit  int
}

// InsertEvents writes events in a single batch. Ids already present are
// skipped; the number of rows actually inserted is returned.
func (s *PostgresStore) InsertEvents(ctx context.Context, events []domain.Event, receivedAt time.Time) (int64, error) {
	if len(events) == 0 {
		return 0, nil
	}

	batch := &pgx.Batch{}
	for _, e := range events {
		details := e.Details
		if details == nil {
			details = map[string]any{}
		}
		batch.Queue(`
			INSERT INTO activity_events (id, user_id, topic, action, details, occurred_at, received_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7)
			ON CONFLICT (id) DO NOTHING
		`, e.ID, e.UserID, e.Topic, e.Action, details, e.Timestamp, receivedAt)
	}

	br := s.pool.SendBatch(ctx, batch)
	defer br.Close()

	var inserted int64
	for range events {
		tag, err := br.Exec()
		if err != nil {
			return inserted, fmt.Errorf("inserting activity event: %w", err)
		}
		inserted += tag.RowsAffected()
	}

	return inserted, nil
}

func (s *PostgresStore) ListEvents(ctx context.Context, filter EventFilter) ([]domain.StoredEvent, error) {
	query := `SELECT id, user_id, topic, action, details, occurred_at, received_at FROM activity_events WHERE 1=1`
	args := []interface{}{}
	argIdx := 1

	if filter.UserID != "" {
		query += fmt.Sprintf(" AND user_id = $%d", argIdx)
		args = append(args, filter.UserID)
		argIdx++
	}
	if filter.Action != "" {
		query += fmt.Sprintf(" AND action = $%d", argIdx)
		args = append(args, filter.Action)
		argIdx++
	}

	query += " ORDER BY received_at DESC, occurred_at DESC"

	if filter.Limit > 0 {
		query += fmt.Sprintf(" LIMIT $%d", argIdx)
		args = append(args, filter.Limit)
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying activity events: %w", err)
	}
	defer rows.Close()

	var events []domain.StoredEvent
	for rows.Next() {
		var e domain.StoredEvent
		err := rows.Scan(&e.ID, &e.UserID, &e.Topic, &e.Action, &e.Details, &e.Timestamp, &e.ReceivedAt)
		if err != nil {
			return nil, fmt.Errorf("scanning activity event: %w", err)
		}
		events = append(events, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating activity events: %w", err)
	}

	if events == nil {
		events = []domain.StoredEvent{}
	}

	return events, nil
}
