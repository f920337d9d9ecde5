package recorder

import (
	"log/slog"
	"sync"
	"time"

	"github.com/Priya8975/activity-logger/internal/domain"
	"github.com/google/uuid"
)

// Appender is the write side of the event queue.
type Appender interface {
	Append(event domain.Event) error
}

// Recorder stamps actions with time, topic and user and appends them to the
// queue. It is the only path live events take into the queue.
type Recorder struct {
	store  Appender
	topic  string
	logger *slog.Logger
	now    func() time.Time

	mu     sync.RWMutex
	userID string
}

// New creates a recorder for topic, attributing events to userID until
// UpdateUserID is called.
func New(store Appender, topic, userID string, logger *slog.Logger) *Recorder {
	return &Recorder{
		store:  store,
		topic:  topic,
		userID: userID,
		logger: logger,
		now:    time.Now,
	}
}

// Record appends an event for action. Storage failures are logged and
// swallowed; recording never fails the caller.
func (r *Recorder) Record(action string, details map[string]any) {
	if details == nil {
		details = map[string]any{}
	}

	event := domain.Event{
		ID:        uuid.NewString(),
		Timestamp: domain.FormatTimestamp(r.now()),
		Action:    action,
		Details:   details,
		Topic:     r.topic,
		UserID:    r.UserID(),
	}

	if err := r.store.Append(event); err != nil {
		r.logger.Error("failed to record action",
			"error", err,
			"action", action,
		)
		return
	}

	r.logger.Debug("action recorded", "action", action, "event_id", event.ID)
}

// UpdateUserID changes the identity attached to events recorded from now on.
// Events already queued keep the identity they were recorded with.
func (r *Recorder) UpdateUserID(userID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.userID = userID
}

// UserID returns the identity new events are attributed to.
func (r *Recorder) UserID() string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.userID
}

// Topic returns the static grouping label.
func (r *Recorder) Topic() string {
	return r.topic
}
