package models

import "time"

// Lifecycle event types emitted by the gateway.
const (
	EventRequestStarted   = "request_started"
	EventRequestCompleted = "request_completed"
	EventRequestFailed    = "request_failed"
)

// Event is the envelope published on the event bus for each lifecycle
// notification.
type Event struct {
	ID        string                 `json:"id"`
	Type      string                 `json:"type"`
	Source    string                 `json:"source"`
	Data      map[string]interface{} `json:"data"`
	Timestamp time.Time              `json:"timestamp"`
	Metadata  map[string]string      `json:"metadata,omitempty"`
}
