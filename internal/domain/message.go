package domain

import (
	"context"
	"time"
)

// Role constants for chat messages.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// ChatMessage is one persisted message in a vibe-coding chat session.
// Streaming is true while the assistant response is still being produced.
type ChatMessage struct {
	ID        string    `json:"id"`
	SessionID string    `json:"session_id"`
	Role      string    `json:"role"`
	Content   string    `json:"content"`
	Streaming bool      `json:"streaming"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// ArtifactVersion is one append-only snapshot of the files generated for a
// session. Every save carries the full file map, not a diff.
type ArtifactVersion struct {
	SessionID   string            `json:"session_id"`
	MessageID   string            `json:"message_id,omitempty"`
	Version     int               `json:"version"`
	Name        string            `json:"name"`
	Description string            `json:"description"`
	Files       map[string]string `json:"files"`
	Metadata    map[string]string `json:"metadata,omitempty"`
	CreatedAt   time.Time         `json:"created_at"`
}

// MessageStore persists chat messages for the streaming pipeline.
type MessageStore interface {
	// CreateStreamingMessage inserts an empty assistant message in the
	// streaming state and returns its identifier.
	CreateStreamingMessage(ctx context.Context, sessionID string) (string, error)
	// UpdateMessage replaces a message's content; complete clears the
	// streaming flag.
	UpdateMessage(ctx context.Context, id, content string, complete bool) error
	// AppendMessage inserts an already-complete message.
	AppendMessage(ctx context.Context, sessionID, role, content string) error
	// GetMessage fetches a message by identifier.
	GetMessage(ctx context.Context, id string) (*ChatMessage, error)
}

// ArtifactStore persists versioned file snapshots for a session.
type ArtifactStore interface {
	// LatestFiles returns the most recent version's file map, or an empty
	// map when no version exists yet.
	LatestFiles(ctx context.Context, sessionID string) (map[string]string, error)
	// SaveVersion writes a new version record and returns its number.
	// The Version field of v is assigned by the store.
	SaveVersion(ctx context.Context, v *ArtifactVersion) (int, error)
}
