// Package lifecycle tears down the activity pipeline.
package lifecycle

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/Priya8975/activity-logger/internal/worker"
)

// Unsubscriber revokes every activity subscription at once.
type Unsubscriber interface {
	Close()
}

// Stopper cancels a recurring timer.
type Stopper interface {
	Stop()
}

// Controller owns shutdown of the pipeline: subscriptions are revoked, the
// flush timer is cancelled and one last flush is started.
type Controller struct {
	subscriptions Unsubscriber
	scheduler     Stopper
	flusher       worker.Flusher
	finalTimeout  time.Duration
	logger        *slog.Logger

	once sync.Once
	done chan struct{}
}

func NewController(subs Unsubscriber, scheduler Stopper, flusher worker.Flusher, logger *slog.Logger) *Controller {
	return &Controller{
		subscriptions: subs,
		scheduler:     scheduler,
		flusher:       flusher,
		finalTimeout:  10 * time.Second,
		logger:        logger,
		done:          make(chan struct{}),
	}
}

// Close stops the pipeline and starts a final flush in the background. The
// returned channel is closed when that flush has finished; callers are free
// not to wait for it. Close is idempotent.
func (c *Controller) Close() <-chan struct{} {
	c.once.Do(func() {
		c.subscriptions.Close()
		c.scheduler.Stop()

		go func() {
			defer close(c.done)

			ctx, cancel := context.WithTimeout(context.Background(), c.finalTimeout)
			defer cancel()

			result := c.flusher.Flush(ctx)
			c.logger.Info("final flush finished",
				"status", result.Status,
				"event_count", result.EventCount,
			)
		}()
	})
	return c.done
}
