package domain

import "encoding/json"

// StreamEventType identifies the kind of wire event sent by the coding agent.
type StreamEventType string

const (
	StreamSessionStart   StreamEventType = "session-start"
	StreamTextDelta      StreamEventType = "text-delta"
	StreamReasoningDelta StreamEventType = "reasoning-delta"
	StreamToolCall       StreamEventType = "tool-call"
	StreamToolCallDelta  StreamEventType = "tool-call-delta"
	StreamToolResult     StreamEventType = "tool-result"
	// StreamToolResults is the batch variant. The snake_case tag is what the
	// producer actually sends; it is a distinct event, not a typo of tool-result.
	StreamToolResults StreamEventType = "tool_results"
	StreamFileStart   StreamEventType = "file-start"
	StreamFileChunk   StreamEventType = "file-chunk"
	StreamFileEnd     StreamEventType = "file-end"
	StreamFileURL     StreamEventType = "file-url"
	StreamFileError   StreamEventType = "file-error"
	StreamError       StreamEventType = "error"
	StreamDone        StreamEventType = "done"

	// Inert lifecycle markers. Recognized so they don't show up as unknown
	// events in diagnostics; they carry no state change.
	StreamFinish     StreamEventType = "finish"
	StreamStepFinish StreamEventType = "step-finish"
	StreamTextEnd    StreamEventType = "text-end"
)

// StreamEvent is one decoded frame of the agent protocol. The producer mixes
// several payload shapes under the same envelope, so most fields are optional
// and narrowing happens per event type in the processor.
type StreamEvent struct {
	Type      StreamEventType `json:"type"`
	SessionID string          `json:"sessionId,omitempty"`

	// File streaming fields (top level on the wire).
	FileID     string `json:"fileId,omitempty"`
	Path       string `json:"path,omitempty"`
	FileName   string `json:"fileName,omitempty"`
	Chunk      string `json:"chunk,omitempty"`
	ChunkIndex int    `json:"chunkIndex,omitempty"`
	Content    string `json:"content,omitempty"`
	URL        string `json:"url,omitempty"`
	ExpiresAt  string `json:"expiresAt,omitempty"`

	// Error carries the bare transport-level error shape. The agent-level
	// error shape lives at Payload.Error; the two are disambiguated
	// structurally, never merged.
	Error string `json:"error,omitempty"`

	// Result is the legacy top-level location for tool results; newer
	// producers nest it under payload.result.
	Result json.RawMessage `json:"result,omitempty"`

	Payload *StreamPayload `json:"payload,omitempty"`
}

// StreamPayload is the nested payload used by text, reasoning, tool and
// agent-error events.
type StreamPayload struct {
	Text             string                      `json:"text,omitempty"`
	ToolName         string                      `json:"toolName,omitempty"`
	ToolCallID       string                      `json:"toolCallId,omitempty"`
	ArgsTextDelta    string                      `json:"argsTextDelta,omitempty"`
	Error            string                      `json:"error,omitempty"`
	Result           json.RawMessage             `json:"result,omitempty"`
	Results          []json.RawMessage           `json:"results,omitempty"`
	ProviderMetadata map[string]ProviderMetadata `json:"providerMetadata,omitempty"`
}

// ProviderMetadata carries provider-specific reasoning detail, keyed by
// provider name under payload.providerMetadata.
type ProviderMetadata struct {
	ReasoningDetails []ReasoningDetail `json:"reasoning_details,omitempty"`
}

// ReasoningDetail is one entry of a provider's reasoning_details array.
// Only summaries are folded into the reasoning trace.
type ReasoningDetail struct {
	Type    string `json:"type,omitempty"`
	Summary string `json:"summary,omitempty"`
}

// PayloadText returns payload.text or "" when no payload is present.
func (e *StreamEvent) PayloadText() string {
	if e.Payload == nil {
		return ""
	}
	return e.Payload.Text
}

// PayloadError returns payload.error or "" when no payload is present.
func (e *StreamEvent) PayloadError() string {
	if e.Payload == nil {
		return ""
	}
	return e.Payload.Error
}

// ToolName returns payload.toolName or "" when no payload is present.
func (e *StreamEvent) ToolName() string {
	if e.Payload == nil {
		return ""
	}
	return e.Payload.ToolName
}

// ResultJSON returns the tool result document, preferring payload.result and
// falling back to the legacy top-level result field.
func (e *StreamEvent) ResultJSON() json.RawMessage {
	if e.Payload != nil && len(e.Payload.Result) > 0 {
		return e.Payload.Result
	}
	return e.Result
}
