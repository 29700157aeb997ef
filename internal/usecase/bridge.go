package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"vibedesk/internal/adapter/agent"
	"vibedesk/internal/domain"
)

// CancelledMarker is what the persisted message shows when the user aborts
// a stream, instead of a generic error string.
const CancelledMarker = "[cancelled]"

const defaultDebounce = 300 * time.Millisecond

// Bridge translates the stream session's live callbacks into durable writes
// against the message and artifact stores without saturating them: interim
// saves are debounced (a new save within the window replaces the pending
// one), while the completion save is immediate and unconditional so no
// message is ever left in the streaming state.
type Bridge struct {
	messages  domain.MessageStore
	artifacts domain.ArtifactStore
	bus       domain.EventBus // may be nil
	logger    *slog.Logger
	sessionID string
	messageID string // empty when no placeholder could be allocated
	debounce  time.Duration

	mu           sync.Mutex
	timer        *time.Timer
	lastSaved    string
	finalized    bool
	reasoning    string
	activity     string
	transcript   string
	files        []string
	fileContents map[string]string
}

// NewBridge creates a bridge for one stream session. messageID may be empty;
// in that case Finalize falls back to appending a plain message. bus may be
// nil when no one listens for version events.
func NewBridge(messages domain.MessageStore, artifacts domain.ArtifactStore, bus domain.EventBus, sessionID, messageID string, debounce time.Duration, logger *slog.Logger) *Bridge {
	if debounce <= 0 {
		debounce = defaultDebounce
	}
	return &Bridge{
		messages:     messages,
		artifacts:    artifacts,
		bus:          bus,
		logger:       logger,
		sessionID:    sessionID,
		messageID:    messageID,
		debounce:     debounce,
		fileContents: make(map[string]string),
	}
}

// HandleText records the full cleaned transcript and schedules a save.
func (b *Bridge) HandleText(content string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.transcript = content
	b.scheduleSaveLocked()
}

// HandleReasoning records the accumulated reasoning trace and schedules a save.
func (b *Bridge) HandleReasoning(reasoning string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.reasoning = reasoning
	b.scheduleSaveLocked()
}

// HandleToolCall records the current activity line; an empty name clears it.
func (b *Bridge) HandleToolCall(toolName string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.activity = toolName
	b.scheduleSaveLocked()
}

// HandleToolArgs is invoked on tool argument progress; the args themselves
// are not rendered but progress still refreshes the pending save.
func (b *Bridge) HandleToolArgs(map[string]string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.scheduleSaveLocked()
}

// HandleFileCreated records the ordered created-files list.
func (b *Bridge) HandleFileCreated(paths []string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.files = paths
	b.scheduleSaveLocked()
}

// HandleFileContent tracks the latest content per path so the completion
// merge works even when the controller returns no result (cancellation).
func (b *Bridge) HandleFileContent(path, content string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.fileContents[path] = content
}

// composite renders the rich interim display string: reasoning block with a
// thinking marker, current activity line, the transcript, and a trailing
// bulleted file list.
func (b *Bridge) composite() string {
	var sb strings.Builder
	if b.reasoning != "" {
		sb.WriteString("> Thinking:\n")
		sb.WriteString(b.reasoning)
		sb.WriteString("\n\n")
	}
	if b.activity != "" {
		sb.WriteString("Running ")
		sb.WriteString(b.activity)
		sb.WriteString("...\n\n")
	}
	sb.WriteString(b.transcript)
	if len(b.files) > 0 {
		sb.WriteString("\n\nFiles:\n")
		for _, f := range b.files {
			sb.WriteString("- ")
			sb.WriteString(f)
			sb.WriteString("\n")
		}
	}
	return sb.String()
}

// scheduleSaveLocked replaces any pending debounced save. Callers hold b.mu.
func (b *Bridge) scheduleSaveLocked() {
	if b.messageID == "" || b.finalized {
		return
	}
	if b.composite() == b.lastSaved {
		return
	}
	if b.timer != nil {
		b.timer.Stop()
	}
	b.timer = time.AfterFunc(b.debounce, b.flushDebounced)
}

func (b *Bridge) flushDebounced() {
	b.mu.Lock()
	if b.finalized {
		b.mu.Unlock()
		return
	}
	content := b.composite()
	if content == b.lastSaved {
		b.mu.Unlock()
		return
	}
	b.lastSaved = content
	id := b.messageID
	b.mu.Unlock()

	if err := b.messages.UpdateMessage(context.Background(), id, content, false); err != nil {
		b.logger.Warn("debounced message save failed", "message_id", id, "error", err)
	}
}

// Finalize performs the one non-debounced completion save. It runs for
// success, error and cancellation alike, and is idempotent. When at least
// one file was produced, the new files are merged over the latest prior
// artifact version and written as a brand-new version.
func (b *Bridge) Finalize(ctx context.Context, result *agent.Result, runErr error) error {
	b.mu.Lock()
	if b.finalized {
		b.mu.Unlock()
		return nil
	}
	b.finalized = true
	if b.timer != nil {
		b.timer.Stop()
		b.timer = nil
	}
	if result != nil && result.AssistantContent != "" {
		b.transcript = result.AssistantContent
	}
	// The activity line is transient; it never belongs in the final message.
	b.activity = ""

	var content string
	switch {
	case domain.IsCancelled(runErr) || errors.Is(runErr, context.Canceled):
		content = appendMarker(b.transcript, CancelledMarker)
	case runErr != nil:
		content = appendMarker(b.transcript, "Error: "+runErr.Error())
	default:
		content = b.composite()
	}
	b.lastSaved = content
	id := b.messageID
	files := make(map[string]string, len(b.fileContents))
	for k, v := range b.fileContents {
		files[k] = v
	}
	b.mu.Unlock()

	if result != nil {
		for k, v := range result.Files {
			files[k] = v
		}
	}

	if id == "" {
		// No placeholder was ever allocated; fall back to a plain message
		// when there is something to show.
		if content == "" {
			return nil
		}
		return b.messages.AppendMessage(ctx, b.sessionID, domain.RoleAssistant, content)
	}

	if err := b.messages.UpdateMessage(ctx, id, content, true); err != nil {
		return err
	}
	if len(files) == 0 {
		return nil
	}
	return b.saveVersion(ctx, id, files)
}

func (b *Bridge) saveVersion(ctx context.Context, messageID string, files map[string]string) error {
	prior, err := b.artifacts.LatestFiles(ctx, b.sessionID)
	if err != nil {
		b.logger.Warn("loading prior artifact version failed", "session_id", b.sessionID, "error", err)
		prior = map[string]string{}
	}
	merged := make(map[string]string, len(prior)+len(files))
	for k, v := range prior {
		merged[k] = v
	}
	// New content wins on path collision.
	for k, v := range files {
		merged[k] = v
	}

	version, err := b.artifacts.SaveVersion(ctx, &domain.ArtifactVersion{
		SessionID:   b.sessionID,
		MessageID:   messageID,
		Name:        "Generated files",
		Description: fmt.Sprintf("%d file(s) from vibe coding session", len(files)),
		Files:       merged,
		Metadata:    map[string]string{"source": "vibe-coding"},
	})
	if err != nil {
		return err
	}
	b.logger.Info("artifact version saved",
		"session_id", b.sessionID,
		"version", version,
		"files", len(merged),
	)
	b.publishVersionSaved(ctx, messageID, version, len(merged))
	return nil
}

func (b *Bridge) publishVersionSaved(ctx context.Context, messageID string, version, files int) {
	if b.bus == nil {
		return
	}
	payload, err := json.Marshal(domain.VersionSavedPayload{
		MessageID: messageID,
		Version:   version,
		Files:     files,
	})
	if err != nil {
		return
	}
	b.bus.Publish(ctx, domain.Event{
		Type:      domain.EventVersionSaved,
		Timestamp: time.Now(),
		SessionID: b.sessionID,
		Payload:   payload,
	})
}

func appendMarker(transcript, marker string) string {
	if transcript == "" {
		return marker
	}
	return transcript + "\n\n" + marker
}
