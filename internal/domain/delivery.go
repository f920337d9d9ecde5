package domain

import (
	"time"
)

// DeadLetter is an event that was given up on after repeated delivery
// failures. It is written to a local file, never discarded.
type DeadLetter struct {
	Event          Event     `json:"event"`
	Attempts       int       `json:"attempts"`
	LastError      string    `json:"last_error,omitempty"`
	LastHTTPStatus *int      `json:"last_http_status,omitempty"`
	CreatedAt      time.Time `json:"created_at"`
}

// StoredEvent is an event as persisted by the collector.
type StoredEvent struct {
	Event
	ReceivedAt time.Time `json:"received_at"`
}
