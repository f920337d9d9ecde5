package engine

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/Priya8975/activity-logger/internal/domain"
	"github.com/Priya8975/activity-logger/internal/worker"
)

// EventWriter persists accepted events.
type EventWriter interface {
	InsertEvents(ctx context.Context, events []domain.Event, receivedAt time.Time) (int64, error)
}

// Broadcaster pushes newly stored events to live viewers.
type Broadcaster interface {
	BroadcastEvents(events []domain.Event, receivedAt time.Time)
}

// Ingestor is the collector's batch processor: dedup, persist, then
// broadcast.
type Ingestor struct {
	events EventWriter
	dedup  *Deduplicator
	feed   Broadcaster
	logger *slog.Logger
}

// NewIngestor wires the pipeline. dedup and feed may be nil.
func NewIngestor(events EventWriter, dedup *Deduplicator, feed Broadcaster, logger *slog.Logger) *Ingestor {
	return &Ingestor{
		events: events,
		dedup:  dedup,
		feed:   feed,
		logger: logger,
	}
}

// Process implements worker.BatchProcessor.
func (i *Ingestor) Process(ctx context.Context, batch worker.Batch) error {
	fresh := batch.Events
	if i.dedup != nil {
		var err error
		fresh, err = i.dedup.FilterNew(ctx, batch.Events)
		if err != nil {
			// Without the seen-set the primary key still rejects repeats.
			i.logger.Warn("dedup unavailable, relying on primary key", "error", err)
			fresh = batch.Events
		}
	}
	if len(fresh) == 0 {
		return nil
	}

	inserted, err := i.events.InsertEvents(ctx, fresh, batch.ReceivedAt)
	if err != nil {
		if i.dedup != nil {
			if ferr := i.dedup.Forget(ctx, fresh); ferr != nil {
				i.logger.Error("failed to release event ids", "error", ferr)
			}
		}
		return fmt.Errorf("persisting batch: %w", err)
	}

	if i.feed != nil {
		i.feed.BroadcastEvents(fresh, batch.ReceivedAt)
	}

	i.logger.Info("batch ingested",
		"event_count", len(batch.Events),
		"inserted_count", inserted,
	)
	return nil
}
