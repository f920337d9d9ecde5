package worker

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/Priya8975/activity-logger/internal/domain"
)

// Batch is one accepted POST body waiting to be persisted by the collector.
type Batch struct {
	Events     []domain.Event
	ReceivedAt time.Time
}

// ErrPoolFull is returned by Do when every worker is busy and the queue has
// no room.
var ErrPoolFull = errors.New("worker pool queue full")

type job struct {
	batch Batch
	done  chan error
}

// BatchProcessor persists a batch.
type BatchProcessor interface {
	Process(ctx context.Context, batch Batch) error
}

// Pool manages a fixed number of worker goroutines that persist accepted
// batches.
type Pool struct {
	numWorkers int
	jobs       chan job
	processor  BatchProcessor
	logger     *slog.Logger
	wg         sync.WaitGroup
}

// NewPool creates a worker pool with the given number of workers.
func NewPool(numWorkers int, processor BatchProcessor, logger *slog.Logger) *Pool {
	if numWorkers < 1 {
		numWorkers = 1
	}
	return &Pool{
		numWorkers: numWorkers,
		jobs:       make(chan job, numWorkers*2),
		processor:  processor,
		logger:     logger,
	}
}

// Start launches all worker goroutines. They read from the jobs channel
// until it is closed.
func (p *Pool) Start(ctx context.Context) {
	for i := 0; i < p.numWorkers; i++ {
		p.wg.Add(1)
		go p.worker(ctx, i)
	}
	p.logger.Info("worker pool started", "num_workers", p.numWorkers)
}

// TrySubmit queues a batch without blocking and without waiting for the
// result. It returns false when the queue is full.
func (p *Pool) TrySubmit(batch Batch) bool {
	select {
	case p.jobs <- job{batch: batch}:
		return true
	default:
		return false
	}
}

// Do queues a batch without blocking and waits until a worker has processed
// it, returning the processor's error. A full queue fails fast with
// ErrPoolFull. If ctx ends first the batch is still processed but its result
// is discarded.
func (p *Pool) Do(ctx context.Context, batch Batch) error {
	j := job{batch: batch, done: make(chan error, 1)}
	select {
	case p.jobs <- j:
	default:
		return ErrPoolFull
	}

	select {
	case err := <-j.done:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Stop closes the jobs channel and waits for queued batches to be processed.
func (p *Pool) Stop() {
	close(p.jobs)
	p.wg.Wait()
	p.logger.Info("worker pool stopped")
}

// worker is a single goroutine that processes batches from the channel.
func (p *Pool) worker(ctx context.Context, id int) {
	defer p.wg.Done()

	for j := range p.jobs {
		err := p.processor.Process(ctx, j.batch)
		if err != nil {
			p.logger.Error("failed to process batch",
				"error", err,
				"worker_id", id,
				"event_count", len(j.batch.Events),
			)
		}
		if j.done != nil {
			j.done <- err
		}
	}
}
