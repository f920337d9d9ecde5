package worker

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/Priya8975/activity-logger/internal/domain"
	"golang.org/x/sync/singleflight"
)

// DefaultPort is used when the endpoint URL names no port.
const DefaultPort = "5000"

// Snapshotter is the queue as seen by the deliverer.
type Snapshotter interface {
	Load() []domain.Event
	Remove(ids []string) (int, error)
}

// DeadLetterWriter persists batches the deliverer gives up on.
type DeadLetterWriter interface {
	Append(letters []domain.DeadLetter) error
}

// Status is the outcome of one flush.
type Status string

const (
	StatusEmpty        Status = "empty"
	StatusDelivered    Status = "delivered"
	StatusFailed       Status = "failed"
	StatusDeadLettered Status = "dead_lettered"
)

// Result describes one flush.
type Result struct {
	Status         Status `json:"status"`
	EventCount     int    `json:"event_count"`
	StatusCode     *int   `json:"status_code,omitempty"`
	Error          string `json:"error,omitempty"`
	ResponseTimeMs int64  `json:"response_time_ms"`
}

// Options configures a Deliverer.
type Options struct {
	Endpoint string
	// MaxFailures bounds consecutive failed flushes before the pending batch
	// is moved to DeadLetters. Zero retries forever.
	MaxFailures int
	// DeadLetters also receives batches the collector rejects outright (400
	// or 422). Without it those batches stay queued.
	DeadLetters DeadLetterWriter
	Timeout     time.Duration
}

// Deliverer posts the pending queue to the collector and removes what the
// collector accepted.
type Deliverer struct {
	httpClient  *http.Client
	store       Snapshotter
	endpoint    string
	maxFailures int
	deadLetters DeadLetterWriter
	logger      *slog.Logger
	flights     singleflight.Group

	mu       sync.Mutex
	failures int
}

// NewDeliverer creates a deliverer with a configured HTTP client.
func NewDeliverer(store Snapshotter, opts Options, logger *slog.Logger) (*Deliverer, error) {
	endpoint, err := ResolveEndpoint(opts.Endpoint)
	if err != nil {
		return nil, err
	}
	if opts.MaxFailures > 0 && opts.DeadLetters == nil {
		return nil, fmt.Errorf("max failures set without a dead letter writer")
	}

	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	return &Deliverer{
		httpClient: &http.Client{
			Timeout: timeout,
		},
		store:       store,
		endpoint:    endpoint,
		maxFailures: opts.MaxFailures,
		deadLetters: opts.DeadLetters,
		logger:      logger,
	}, nil
}

// ResolveEndpoint normalises a collector URL: the scheme defaults to http
// and the port to DefaultPort. "http:host/path" is accepted as well.
func ResolveEndpoint(raw string) (string, error) {
	if raw == "" {
		return "", fmt.Errorf("endpoint URL is required")
	}

	s := raw
	switch {
	case strings.Contains(s, "://"):
	case strings.HasPrefix(s, "http:"), strings.HasPrefix(s, "https:"):
		i := strings.Index(s, ":")
		s = s[:i] + "://" + strings.TrimLeft(s[i+1:], "/")
	default:
		s = "http://" + s
	}

	u, err := url.Parse(s)
	if err != nil {
		return "", fmt.Errorf("parsing endpoint URL: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return "", fmt.Errorf("unsupported endpoint scheme %q", u.Scheme)
	}
	if u.Hostname() == "" {
		return "", fmt.Errorf("endpoint URL %q has no host", raw)
	}
	if u.Port() == "" {
		u.Host = net.JoinHostPort(u.Hostname(), DefaultPort)
	}
	if u.Path == "" {
		u.Path = "/"
	}
	return u.String(), nil
}

// Endpoint returns the resolved collector URL.
func (d *Deliverer) Endpoint() string {
	return d.endpoint
}

// Flush sends every pending event in one request. Concurrent callers share
// the result of the flush already running.
func (d *Deliverer) Flush(ctx context.Context) Result {
	v, _, _ := d.flights.Do("flush", func() (interface{}, error) {
		return d.flush(ctx), nil
	})
	return v.(Result)
}

func (d *Deliverer) flush(ctx context.Context) Result {
	snapshot := d.store.Load()
	if len(snapshot) == 0 {
		return Result{Status: StatusEmpty}
	}

	start := time.Now()
	statusCode, err := d.post(ctx, snapshot)
	elapsed := time.Since(start).Milliseconds()

	result := Result{
		EventCount:     len(snapshot),
		StatusCode:     statusCode,
		ResponseTimeMs: elapsed,
	}

	if err == nil && *statusCode == http.StatusAccepted {
		removed, rmErr := d.store.Remove(domain.IDs(snapshot))
		if rmErr != nil {
			d.logger.Error("delivered events could not be removed from queue",
				"error", rmErr,
				"event_count", len(snapshot),
			)
		}
		d.resetFailures()

		d.logger.Info("events delivered",
			"event_count", len(snapshot),
			"removed", removed,
			"status_code", *statusCode,
			"response_time_ms", elapsed,
		)
		result.Status = StatusDelivered
		return result
	}

	errMsg := ""
	if err != nil {
		errMsg = err.Error()
	} else {
		errMsg = fmt.Sprintf("unexpected status code %d", *statusCode)
	}
	result.Status = StatusFailed
	result.Error = errMsg

	failures := d.recordFailure()
	d.logger.Warn("delivery failed",
		"event_count", len(snapshot),
		"error", errMsg,
		"status_code", statusCode,
		"consecutive_failures", failures,
		"response_time_ms", elapsed,
	)

	// A rejected payload fails the same way on every retry and would block
	// everything queued behind it.
	if statusCode != nil && isPermanentRejection(*statusCode) && d.deadLetters != nil {
		if d.deadLetter(snapshot, failures, errMsg, statusCode) {
			result.Status = StatusDeadLettered
		}
		return result
	}

	if d.maxFailures > 0 && failures >= d.maxFailures {
		if d.deadLetter(snapshot, failures, errMsg, statusCode) {
			result.Status = StatusDeadLettered
		}
	}
	return result
}

func isPermanentRejection(code int) bool {
	return code == http.StatusBadRequest || code == http.StatusUnprocessableEntity
}

// post returns the response status code, or an error when no response was
// received.
func (d *Deliverer) post(ctx context.Context, events []domain.Event) (*int, error) {
	body, err := json.Marshal(events)
	if err != nil {
		return nil, fmt.Errorf("encoding events: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, d.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.ContentLength = int64(len(body))
	req.Header.Set("Content-Type", "application/json")

	resp, err := d.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	// Read at most 1KB of the response body
	respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
	if resp.StatusCode != http.StatusAccepted {
		d.logger.Debug("collector response", "status_code", resp.StatusCode, "body", string(respBody))
	}

	code := resp.StatusCode
	return &code, nil
}

func (d *Deliverer) deadLetter(snapshot []domain.Event, attempts int, errMsg string, statusCode *int) bool {
	now := time.Now()
	letters := make([]domain.DeadLetter, 0, len(snapshot))
	for _, e := range snapshot {
		letters = append(letters, domain.DeadLetter{
			Event:          e,
			Attempts:       attempts,
			LastError:      errMsg,
			LastHTTPStatus: statusCode,
			CreatedAt:      now,
		})
	}

	if err := d.deadLetters.Append(letters); err != nil {
		d.logger.Error("failed to write dead letters, keeping batch queued", "error", err)
		return false
	}
	if _, err := d.store.Remove(domain.IDs(snapshot)); err != nil {
		d.logger.Error("failed to remove dead-lettered events from queue", "error", err)
	}
	d.resetFailures()

	d.logger.Warn("batch moved to dead letters",
		"event_count", len(snapshot),
		"attempts", attempts,
	)
	return true
}

func (d *Deliverer) recordFailure() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.failures++
	return d.failures
}

func (d *Deliverer) resetFailures() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.failures = 0
}

// ConsecutiveFailures returns the number of failed flushes since the last
// success or dead-lettering.
func (d *Deliverer) ConsecutiveFailures() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.failures
}
