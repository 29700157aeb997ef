package domain

import (
	"context"
	"encoding/json"
	"time"
)

// EventType identifies the kind of event published on the bus. The desktop
// shell subscribes to these to drive the live activity log and file tree.
type EventType string

const (
	EventStreamStarted   EventType = "stream.started"
	EventStreamDelta     EventType = "stream.delta"
	EventStreamReasoning EventType = "stream.reasoning"
	EventStreamFile      EventType = "stream.file"
	EventStreamCompleted EventType = "stream.completed"
	EventStreamError     EventType = "stream.error"
	EventVersionSaved    EventType = "artifact.version.saved"
)

// Event is the envelope published on the event bus.
type Event struct {
	Type      EventType       `json:"type"`
	Timestamp time.Time       `json:"timestamp"`
	SessionID string          `json:"session_id,omitempty"`
	Payload   json.RawMessage `json:"payload,omitempty"`
}

// EventHandler is a callback invoked when an event is received.
type EventHandler func(ctx context.Context, event Event)

// EventBus provides a publish/subscribe mechanism for stream progress events.
type EventBus interface {
	// Publish sends an event to all matching subscribers.
	Publish(ctx context.Context, event Event)
	// Subscribe registers a handler for a specific event type.
	// Returns an unsubscribe function.
	Subscribe(eventType EventType, handler EventHandler) func()
	// SubscribeAll registers a handler that receives every event.
	// Returns an unsubscribe function.
	SubscribeAll(handler EventHandler) func()
	// Close drains in-flight handlers and prevents new publishes.
	Close()
}

// StreamDeltaPayload is the payload for EventStreamDelta events: the full
// cleaned transcript so far, not just the new token.
type StreamDeltaPayload struct {
	Content string `json:"content"`
}

// StreamFilePayload is the payload for EventStreamFile events.
type StreamFilePayload struct {
	Path    string `json:"path"`
	Content string `json:"content,omitempty"`
}

// StreamCompletedPayload is the payload for EventStreamCompleted events.
type StreamCompletedPayload struct {
	Content string   `json:"content"`
	Files   []string `json:"files,omitempty"`
}

// VersionSavedPayload is the payload for EventVersionSaved events.
type VersionSavedPayload struct {
	MessageID string `json:"message_id,omitempty"`
	Version   int    `json:"version"`
	Files     int    `json:"files"`
}

// StreamErrorPayload is the payload for EventStreamError events. Code is the
// machine-parseable category from ErrorCodeOf when the error is a domain
// error; agent-reported stream errors carry no code.
type StreamErrorPayload struct {
	Error string `json:"error"`
	Code  string `json:"code,omitempty"`
}
