package worker

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
)

// DefaultFlushInterval is how often the scheduler flushes when not
// configured otherwise.
const DefaultFlushInterval = 100 * time.Second

// Flusher is one delivery attempt of the pending queue.
type Flusher interface {
	Flush(ctx context.Context) Result
}

// Scheduler runs a flush on a fixed interval. A tick that fires while the
// previous flush is still running is skipped.
type Scheduler struct {
	flusher  Flusher
	interval time.Duration
	timeout  time.Duration
	logger   *slog.Logger

	mu      sync.Mutex
	cron    *cron.Cron
	running bool
}

// NewScheduler creates a scheduler; call Start to begin ticking.
func NewScheduler(flusher Flusher, interval time.Duration, logger *slog.Logger) *Scheduler {
	if interval <= 0 {
		interval = DefaultFlushInterval
	}
	return &Scheduler{
		flusher:  flusher,
		interval: interval,
		timeout:  30 * time.Second,
		logger:   logger,
	}
}

// Interval returns the flush period.
func (s *Scheduler) Interval() time.Duration {
	return s.interval
}

// Start begins the ticking. Calling Start on a running scheduler does
// nothing.
func (s *Scheduler) Start() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running {
		return
	}

	logger := cronLogger{s.logger}
	c := cron.New(cron.WithChain(
		cron.Recover(logger),
		cron.SkipIfStillRunning(logger),
	))
	c.Schedule(every(s.interval), cron.FuncJob(s.tick))
	c.Start()

	s.cron = c
	s.running = true
	s.logger.Info("flush scheduler started", "interval", s.interval.String())
}

// Stop cancels future ticks and returns immediately. A flush already in
// progress runs to completion on its own.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.running {
		return
	}

	s.cron.Stop()
	s.running = false
	s.logger.Info("flush scheduler stopped")
}

func (s *Scheduler) tick() {
	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()

	result := s.flusher.Flush(ctx)
	s.logger.Debug("scheduled flush finished",
		"status", result.Status,
		"event_count", result.EventCount,
	)
}

// every is a constant-delay schedule without cron.Every's rounding to whole
// seconds.
type every time.Duration

func (e every) Next(t time.Time) time.Time {
	return t.Add(time.Duration(e))
}

// cronLogger routes cron's own messages through slog.
type cronLogger struct {
	logger *slog.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.logger.Debug("cron: "+msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.logger.Error("cron: "+msg, append([]interface{}{"error", err}, keysAndValues...)...)
}
