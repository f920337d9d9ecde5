package domain

import (
	"strconv"
	"time"
)

// Event is one observed editor activity as it is queued locally and posted
// to the collector.
type Event struct {
	ID        string         `json:"id"`
	Timestamp string         `json:"timestamp"`
	Action    string         `json:"action"`
	Details   map[string]any `json:"details"`
	Topic     string         `json:"topic"`
	UserID    string         `json:"userId"`
}

// FormatTimestamp renders t as a millisecond epoch string.
func FormatTimestamp(t time.Time) string {
	return strconv.FormatInt(t.UnixMilli(), 10)
}

// ParseTimestamp is the inverse of FormatTimestamp.
func ParseTimestamp(s string) (time.Time, error) {
	ms, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return time.Time{}, err
	}
	return time.UnixMilli(ms), nil
}

// IDs returns the identifiers of events in order.
func IDs(events []Event) []string {
	ids := make([]string, 0, len(events))
	for _, e := range events {
		ids = append(ids, e.ID)
	}
	return ids
}
