package worker

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/Priya8975/activity-logger/internal/domain"
	"github.com/Priya8975/activity-logger/internal/queue"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
}

func setupQueue(t *testing.T, n int) *queue.FileStore {
	t.Helper()
	s, err := queue.Open(t.TempDir(), testLogger())
	if err != nil {
		t.Fatalf("failed to open queue: %v", err)
	}
	for i := 0; i < n; i++ {
		s.Append(testEvent(fmt.Sprintf("evt-%d", i)))
	}
	return s
}

func testEvent(id string) domain.Event {
	return domain.Event{
		ID:        id,
		Timestamp: domain.FormatTimestamp(time.Now()),
		Action:    "openDocument",
		Details:   map[string]any{"fileName": "/ws/csc111/" + id + ".py"},
		Topic:     "base",
		UserID:    "u1",
	}
}

func statusServer(t *testing.T, status int, count *atomic.Int32) *httptest.Server {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		count.Add(1)
		w.WriteHeader(status)
	}))
	t.Cleanup(server.Close)
	return server
}

func newDeliverer(t *testing.T, store Snapshotter, endpoint string, opts Options) *Deliverer {
	t.Helper()
	opts.Endpoint = endpoint
	d, err := NewDeliverer(store, opts, testLogger())
	if err != nil {
		t.Fatalf("NewDeliverer: %v", err)
	}
	return d
}

func TestFlush_EmptyQueueIsNoOp(t *testing.T) {
	var requests atomic.Int32
	server := statusServer(t, http.StatusAccepted, &requests)
	store := setupQueue(t, 0)

	result := newDeliverer(t, store, server.URL, Options{}).Flush(context.Background())

	if result.Status != StatusEmpty {
		t.Errorf("Status = %q, want %q", result.Status, StatusEmpty)
	}
	if requests.Load() != 0 {
		t.Errorf("expected no request for empty queue, got %d", requests.Load())
	}
	if store.Len() != 0 {
		t.Error("queue should stay empty")
	}
}

func TestFlush_SuccessClears(t *testing.T) {
	var (
		received []domain.Event
		headers  http.Header
		length   int64
	)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("method = %s, want POST", r.Method)
		}
		headers = r.Header.Clone()
		length = r.ContentLength
		body, _ := io.ReadAll(r.Body)
		if int64(len(body)) != length {
			t.Errorf("Content-Length %d does not match body length %d", length, len(body))
		}
		json.Unmarshal(body, &received)
		w.WriteHeader(http.StatusAccepted)
	}))
	defer server.Close()

	store := setupQueue(t, 3)
	result := newDeliverer(t, store, server.URL+"/log", Options{}).Flush(context.Background())

	if result.Status != StatusDelivered || result.EventCount != 3 {
		t.Errorf("result = %+v", result)
	}
	if store.Len() != 0 {
		t.Errorf("queue should be empty after 202, has %d", store.Len())
	}
	if len(received) != 3 || received[0].ID != "evt-0" || received[2].ID != "evt-2" {
		t.Errorf("server received %+v", received)
	}
	if headers.Get("Content-Type") != "application/json" {
		t.Errorf("Content-Type = %q", headers.Get("Content-Type"))
	}
	if length <= 0 {
		t.Errorf("Content-Length = %d, want positive", length)
	}
}

func TestFlush_FailurePreserves(t *testing.T) {
	tests := []struct {
		name   string
		status int
	}{
		{"server error", http.StatusInternalServerError},
		{"ok is not accepted", http.StatusOK},
		{"rate limited", http.StatusTooManyRequests},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var requests atomic.Int32
			server := statusServer(t, tt.status, &requests)
			store := setupQueue(t, 4)
			before := store.Load()

			result := newDeliverer(t, store, server.URL, Options{}).Flush(context.Background())

			if result.Status != StatusFailed {
				t.Errorf("Status = %q, want failed", result.Status)
			}
			if result.StatusCode == nil || *result.StatusCode != tt.status {
				t.Errorf("StatusCode = %v, want %d", result.StatusCode, tt.status)
			}
			after := store.Load()
			if len(after) != len(before) {
				t.Fatalf("queue length %d, want %d", len(after), len(before))
			}
			for i := range before {
				if after[i].ID != before[i].ID {
					t.Errorf("event %d changed: %s -> %s", i, before[i].ID, after[i].ID)
				}
			}
		})
	}
}

func TestFlush_ConnectionErrorPreserves(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := server.URL
	server.Close()

	store := setupQueue(t, 2)
	d := newDeliverer(t, store, url, Options{})

	result := d.Flush(context.Background())

	if result.Status != StatusFailed || result.Error == "" || result.StatusCode != nil {
		t.Errorf("result = %+v", result)
	}
	if store.Len() != 2 {
		t.Errorf("queue should keep 2 events, has %d", store.Len())
	}
	if d.ConsecutiveFailures() != 1 {
		t.Errorf("ConsecutiveFailures = %d, want 1", d.ConsecutiveFailures())
	}
}

func TestFlush_KeepsEventsRecordedDuringRequest(t *testing.T) {
	store := setupQueue(t, 2)

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		store.Append(testEvent("late"))
		w.WriteHeader(http.StatusAccepted)
	}))
	defer server.Close()

	result := newDeliverer(t, store, server.URL, Options{}).Flush(context.Background())

	if result.Status != StatusDelivered || result.EventCount != 2 {
		t.Errorf("result = %+v", result)
	}
	events := store.Load()
	if len(events) != 1 || events[0].ID != "late" {
		t.Errorf("expected only the late event to remain, got %+v", events)
	}
}

func TestFlush_RetriesSameBatchAfterFailure(t *testing.T) {
	var status atomic.Int32
	status.Store(http.StatusInternalServerError)
	var bodies [][]domain.Event
	var mu sync.Mutex

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var batch []domain.Event
		json.NewDecoder(r.Body).Decode(&batch)
		mu.Lock()
		bodies = append(bodies, batch)
		mu.Unlock()
		w.WriteHeader(int(status.Load()))
	}))
	defer server.Close()

	store := setupQueue(t, 2)
	d := newDeliverer(t, store, server.URL, Options{})

	d.Flush(context.Background())
	store.Append(testEvent("evt-2"))
	status.Store(http.StatusAccepted)
	d.Flush(context.Background())

	if len(bodies) != 2 {
		t.Fatalf("expected 2 requests, got %d", len(bodies))
	}
	if len(bodies[0]) != 2 || len(bodies[1]) != 3 {
		t.Errorf("batch sizes = %d, %d; want 2, 3", len(bodies[0]), len(bodies[1]))
	}
	if d.ConsecutiveFailures() != 0 {
		t.Errorf("success should reset failures, got %d", d.ConsecutiveFailures())
	}
	if store.Len() != 0 {
		t.Errorf("queue should be empty, has %d", store.Len())
	}
}

func TestFlush_DeadLettersAfterMaxFailures(t *testing.T) {
	var requests atomic.Int32
	server := statusServer(t, http.StatusInternalServerError, &requests)

	dir := t.TempDir()
	store, _ := queue.Open(dir, testLogger())
	store.Append(testEvent("a"))
	store.Append(testEvent("b"))
	dlq := queue.NewDeadLetterLog(dir)

	d := newDeliverer(t, store, server.URL, Options{MaxFailures: 3, DeadLetters: dlq})

	for i := 1; i <= 2; i++ {
		if r := d.Flush(context.Background()); r.Status != StatusFailed {
			t.Fatalf("flush %d status = %q, want failed", i, r.Status)
		}
	}
	if r := d.Flush(context.Background()); r.Status != StatusDeadLettered {
		t.Fatalf("third flush status = %q, want dead_lettered", r.Status)
	}

	if store.Len() != 0 {
		t.Errorf("dead-lettered events should leave the queue, %d remain", store.Len())
	}
	letters, err := dlq.List()
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(letters) != 2 || letters[0].Event.ID != "a" || letters[0].Attempts != 3 {
		t.Errorf("dead letters = %+v", letters)
	}
	if letters[0].LastHTTPStatus == nil || *letters[0].LastHTTPStatus != 500 {
		t.Errorf("LastHTTPStatus = %v", letters[0].LastHTTPStatus)
	}
	if d.ConsecutiveFailures() != 0 {
		t.Errorf("failures should reset after dead-lettering, got %d", d.ConsecutiveFailures())
	}
}

func TestFlush_RejectedBatchDeadLettersImmediately(t *testing.T) {
	var rejecting atomic.Bool
	rejecting.Store(true)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if rejecting.Load() {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		w.WriteHeader(http.StatusAccepted)
	}))
	defer server.Close()

	dir := t.TempDir()
	store, _ := queue.Open(dir, testLogger())
	store.Append(testEvent("bad"))
	dlq := queue.NewDeadLetterLog(dir)

	d := newDeliverer(t, store, server.URL, Options{DeadLetters: dlq})

	r := d.Flush(context.Background())
	if r.Status != StatusDeadLettered {
		t.Fatalf("Status = %q, want dead_lettered", r.Status)
	}
	if store.Len() != 0 {
		t.Errorf("rejected batch should leave the queue, %d remain", store.Len())
	}
	letters, _ := dlq.List()
	if len(letters) != 1 || letters[0].Event.ID != "bad" || letters[0].Attempts != 1 {
		t.Errorf("dead letters = %+v", letters)
	}

	// Events recorded afterwards are no longer stuck behind the rejected one.
	rejecting.Store(false)
	store.Append(testEvent("good"))
	if r := d.Flush(context.Background()); r.Status != StatusDelivered || r.EventCount != 1 {
		t.Errorf("second flush = %+v", r)
	}
	if store.Len() != 0 {
		t.Errorf("queue should be empty, has %d", store.Len())
	}
}

func TestFlush_ServerErrorNotDeadLetteredWithoutLimit(t *testing.T) {
	var requests atomic.Int32
	server := statusServer(t, http.StatusServiceUnavailable, &requests)

	dir := t.TempDir()
	store, _ := queue.Open(dir, testLogger())
	store.Append(testEvent("a"))
	dlq := queue.NewDeadLetterLog(dir)

	d := newDeliverer(t, store, server.URL, Options{DeadLetters: dlq})
	for i := 0; i < 5; i++ {
		if r := d.Flush(context.Background()); r.Status != StatusFailed {
			t.Fatalf("flush %d status = %q, want failed", i, r.Status)
		}
	}
	if store.Len() != 1 {
		t.Errorf("retryable failures should keep the batch, %d queued", store.Len())
	}
	if letters, _ := dlq.List(); len(letters) != 0 {
		t.Errorf("dead letters = %+v, want none", letters)
	}
}

func TestNewDeliverer_MaxFailuresNeedsDeadLetters(t *testing.T) {
	_, err := NewDeliverer(setupQueue(t, 0), Options{Endpoint: "http://localhost:1/log", MaxFailures: 2}, testLogger())
	if err == nil {
		t.Error("expected error when MaxFailures is set without DeadLetters")
	}
}

func TestFlush_ConcurrentCallsShareOneRequest(t *testing.T) {
	var requests atomic.Int32
	started := make(chan struct{}, 1)
	release := make(chan struct{})

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests.Add(1)
		started <- struct{}{}
		<-release
		w.WriteHeader(http.StatusAccepted)
	}))
	defer server.Close()

	store := setupQueue(t, 1)
	d := newDeliverer(t, store, server.URL, Options{})

	results := make(chan Result, 2)
	go func() { results <- d.Flush(context.Background()) }()
	<-started
	go func() { results <- d.Flush(context.Background()) }()
	time.Sleep(50 * time.Millisecond)
	close(release)

	for i := 0; i < 2; i++ {
		if r := <-results; r.Status != StatusDelivered {
			t.Errorf("result %d status = %q", i, r.Status)
		}
	}
	if requests.Load() != 1 {
		t.Errorf("expected 1 request for overlapping flushes, got %d", requests.Load())
	}
}

func TestResolveEndpoint(t *testing.T) {
	tests := []struct {
		raw     string
		want    string
		wantErr bool
	}{
		{raw: "http://collector.example.com:8080/log", want: "http://collector.example.com:8080/log"},
		{raw: "http://collector.example.com/log", want: "http://collector.example.com:" + DefaultPort + "/log"},
		{raw: "http:127.0.0.1/log", want: "http://127.0.0.1:" + DefaultPort + "/log"},
		{raw: "127.0.0.1:9000/log", want: "http://127.0.0.1:9000/log"},
		{raw: "https://collector.example.com:443", want: "https://collector.example.com:443/"},
		{raw: "", wantErr: true},
		{raw: "ftp://collector.example.com/log", wantErr: true},
		{raw: "http:///log", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			got, err := ResolveEndpoint(tt.raw)
			if tt.wantErr {
				if err == nil {
					t.Errorf("expected error, got %q", got)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.want {
				t.Errorf("ResolveEndpoint(%q) = %q, want %q", tt.raw, got, tt.want)
			}
		})
	}
}

func TestResult_JSON(t *testing.T) {
	code := 202
	data, _ := json.Marshal(Result{Status: StatusDelivered, EventCount: 2, StatusCode: &code})

	var decoded map[string]any
	json.Unmarshal(data, &decoded)
	if decoded["status"] != "delivered" || decoded["status_code"] != float64(202) {
		t.Errorf("unexpected JSON %s", data)
	}
	if _, ok := decoded["error"]; ok {
		t.Errorf("empty error should be omitted: %s", data)
	}
}
