package engine

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/Priya8975/activity-logger/internal/domain"
	"github.com/redis/go-redis/v9"
)

// DefaultDedupTTL bounds how long an event id is remembered.
const DefaultDedupTTL = 24 * time.Hour

// Deduplicator drops events whose id was already accepted. Agents deliver
// at least once, so the same batch may arrive again after a lost 202.
type Deduplicator struct {
	redisClient *redis.Client
	ttl         time.Duration
	logger      *slog.Logger
}

func NewDeduplicator(redisClient *redis.Client, ttl time.Duration, logger *slog.Logger) *Deduplicator {
	if ttl <= 0 {
		ttl = DefaultDedupTTL
	}
	return &Deduplicator{
		redisClient: redisClient,
		ttl:         ttl,
		logger:      logger,
	}
}

func seenKey(eventID string) string {
	return fmt.Sprintf("seen:event:%s", eventID)
}

// FilterNew claims every id in events and returns only the events whose
// claim succeeded, preserving order. A repeated id within the same batch is
// kept once.
func (d *Deduplicator) FilterNew(ctx context.Context, events []domain.Event) ([]domain.Event, error) {
	if len(events) == 0 {
		return nil, nil
	}

	pipe := d.redisClient.Pipeline()
	cmds := make([]*redis.BoolCmd, len(events))
	for i, e := range events {
		cmds[i] = pipe.SetNX(ctx, seenKey(e.ID), 1, d.ttl)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return nil, fmt.Errorf("claiming event ids: %w", err)
	}

	fresh := make([]domain.Event, 0, len(events))
	for i, cmd := range cmds {
		if cmd.Val() {
			fresh = append(fresh, events[i])
		}
	}

	if dropped := len(events) - len(fresh); dropped > 0 {
		d.logger.Info("dropped duplicate events", "duplicate_count", dropped, "event_count", len(events))
	}

	return fresh, nil
}

// Forget releases claimed ids so a later redelivery is accepted again.
func (d *Deduplicator) Forget(ctx context.Context, events []domain.Event) error {
	if len(events) == 0 {
		return nil
	}

	keys := make([]string, 0, len(events))
	for _, e := range events {
		keys = append(keys, seenKey(e.ID))
	}
	if err := d.redisClient.Del(ctx, keys...).Err(); err != nil {
		return fmt.Errorf("releasing event ids: %w", err)
	}
	return nil
}
