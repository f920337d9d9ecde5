package worker

import (
	"context"
	"sync/atomic"
	"testing"
	"time"
)

type countingFlusher struct {
	calls   atomic.Int32
	running atomic.Int32
	overlap atomic.Bool
	delay   time.Duration
}

func (f *countingFlusher) Flush(ctx context.Context) Result {
	if f.running.Add(1) > 1 {
		f.overlap.Store(true)
	}
	defer f.running.Add(-1)

	f.calls.Add(1)
	time.Sleep(f.delay)
	return Result{Status: StatusEmpty}
}

func TestScheduler_TicksAtInterval(t *testing.T) {
	f := &countingFlusher{}
	s := NewScheduler(f, 20*time.Millisecond, testLogger())

	s.Start()
	time.Sleep(150 * time.Millisecond)
	s.Stop()

	if n := f.calls.Load(); n < 3 {
		t.Errorf("expected at least 3 flushes in 150ms at 20ms interval, got %d", n)
	}
}

func TestScheduler_StopCancelsTicks(t *testing.T) {
	f := &countingFlusher{}
	s := NewScheduler(f, 20*time.Millisecond, testLogger())

	s.Start()
	time.Sleep(70 * time.Millisecond)
	s.Stop()
	s.Stop()

	time.Sleep(10 * time.Millisecond)
	after := f.calls.Load()
	time.Sleep(100 * time.Millisecond)

	if f.calls.Load() != after {
		t.Errorf("flushes continued after Stop: %d -> %d", after, f.calls.Load())
	}
}

func TestScheduler_NoOverlappingFlushes(t *testing.T) {
	f := &countingFlusher{delay: 60 * time.Millisecond}
	s := NewScheduler(f, 10*time.Millisecond, testLogger())

	s.Start()
	time.Sleep(200 * time.Millisecond)
	s.Stop()
	time.Sleep(80 * time.Millisecond)

	if f.overlap.Load() {
		t.Error("scheduler ran overlapping flushes")
	}
	if f.calls.Load() == 0 {
		t.Error("expected at least one flush")
	}
}

func TestScheduler_DefaultInterval(t *testing.T) {
	s := NewScheduler(&countingFlusher{}, 0, testLogger())

	if s.Interval() != DefaultFlushInterval {
		t.Errorf("Interval() = %v, want %v", s.Interval(), DefaultFlushInterval)
	}
	if DefaultFlushInterval != 100*time.Second {
		t.Errorf("DefaultFlushInterval = %v, want 100s", DefaultFlushInterval)
	}
}

func TestScheduler_StartTwiceIsNoOp(t *testing.T) {
	f := &countingFlusher{}
	s := NewScheduler(f, time.Hour, testLogger())

	s.Start()
	s.Start()
	s.Stop()

	if f.calls.Load() != 0 {
		t.Errorf("no tick expected within an hour interval, got %d", f.calls.Load())
	}
}
