package agent

import (
	"encoding/json"
	"log/slog"
	"strings"

	"github.com/tidwall/gjson"

	"vibedesk/internal/domain"
)

// Processor folds decoded stream events into the StreamState and fires the
// matching callbacks. Events are processed strictly in arrival order; later
// events (tool-result) depend on state accumulated by earlier ones
// (tool-call-delta argument buffers).
//
// The processor never returns an error and never panics: malformed or
// incomplete sub-structures degrade to "no update" so a single bad event
// cannot abort the stream.
type Processor struct {
	state  *domain.StreamState
	cb     Callbacks
	logger *slog.Logger
}

// NewProcessor creates a processor over state. The state must be exclusively
// owned by the caller for the duration of the stream.
func NewProcessor(state *domain.StreamState, cb Callbacks, logger *slog.Logger) *Processor {
	return &Processor{state: state, cb: cb, logger: logger}
}

// State returns the accumulator being folded into.
func (p *Processor) State() *domain.StreamState { return p.state }

// Process applies one event to the state.
func (p *Processor) Process(ev *domain.StreamEvent) {
	if ev == nil {
		return
	}
	switch ev.Type {
	case domain.StreamSessionStart:
		p.state.SessionID = ev.SessionID
		p.cb.sessionStart(ev.SessionID)

	case domain.StreamTextDelta:
		p.handleTextDelta(ev)

	case domain.StreamReasoningDelta:
		p.handleReasoningDelta(ev)

	case domain.StreamToolCall:
		name := ev.ToolName()
		p.state.CurrentToolCall = name
		p.cb.toolCall(name)

	case domain.StreamToolCallDelta:
		p.handleToolCallDelta(ev)

	case domain.StreamToolResult:
		p.handleToolResult(ev)

	case domain.StreamToolResults:
		p.handleToolResults(ev)

	case domain.StreamFileStart:
		p.handleFileStart(ev)

	case domain.StreamFileChunk:
		p.handleFileChunk(ev)

	case domain.StreamFileEnd:
		p.handleFileEnd(ev)

	case domain.StreamFileURL:
		p.handleFileURL(ev)

	case domain.StreamFileError:
		p.handleFileError(ev)

	case domain.StreamError:
		p.handleError(ev)

	case domain.StreamDone:
		if ev.SessionID != "" {
			p.cb.streamingDone(ev.SessionID)
		}

	case domain.StreamFinish, domain.StreamStepFinish, domain.StreamTextEnd:
		// Inert lifecycle markers.

	default:
		p.logger.Debug("unknown stream event", "type", string(ev.Type))
	}
}

func (p *Processor) handleTextDelta(ev *domain.StreamEvent) {
	text := ev.PayloadText()
	if text == "" {
		return
	}
	// The producer sometimes stutters by resending the transcript so far as
	// a prefix of the next delta, with no separator. Strip the echo before
	// appending so "Hello" + "Hello world" yields "Hello world".
	if p.state.AssistantContent != "" && strings.HasPrefix(text, p.state.AssistantContent) {
		text = text[len(p.state.AssistantContent):]
		if text == "" {
			return
		}
	}
	// The cleanup pass runs over the whole accumulated transcript, not just
	// the new delta, and the callback receives the full cleaned content.
	p.state.AssistantContent = CleanStutter(p.state.AssistantContent + text)
	p.cb.textDelta(p.state.AssistantContent)
}

func (p *Processor) handleReasoningDelta(ev *domain.StreamEvent) {
	if ev.Payload == nil {
		return
	}
	// One callback per append: callers key a single mutable activity-log
	// entry off these, so a combined event fires once per fragment rather
	// than once at the end.
	if ev.Payload.Text != "" {
		p.state.Reasoning += ev.Payload.Text
		p.cb.reasoning(p.state.Reasoning)
	}
	for _, meta := range ev.Payload.ProviderMetadata {
		for _, detail := range meta.ReasoningDetails {
			if detail.Summary == "" {
				continue
			}
			p.state.Reasoning += detail.Summary
			p.cb.reasoning(p.state.Reasoning)
		}
	}
}

func (p *Processor) handleToolCallDelta(ev *domain.StreamEvent) {
	if ev.Payload == nil || ev.Payload.ToolCallID == "" {
		return
	}
	id := ev.Payload.ToolCallID
	p.state.ToolArgs[id] += ev.Payload.ArgsTextDelta
	p.cb.toolArgs(p.state.ToolArgsCopy())

	if !IsFileCreatingTool(ev.Payload.ToolName) {
		return
	}
	// Speculative best-effort extraction from the (possibly invalid)
	// accumulated fragment so the UI can show file content while the tool
	// call is still streaming. Failure means "not enough data yet".
	pf, ok := ExtractPartialFile(p.state.ToolArgs[id])
	if !ok || pf.Path == "" {
		return
	}
	p.upsertFile(pf.Path, pf.Content)
}

// fileToolArgs is the authoritative argument shape for file-creating tools,
// parsed once the full argument JSON is available.
type fileToolArgs struct {
	FilePath string `json:"filePath"`
	Path     string `json:"path"`
	Content  string `json:"content"`
}

func (p *Processor) handleToolResult(ev *domain.StreamEvent) {
	// A result ends the current tool call.
	p.state.CurrentToolCall = ""
	p.cb.toolCall("")

	if ev.Payload != nil && IsFileCreatingTool(ev.Payload.ToolName) {
		raw := p.state.ToolArgs[ev.Payload.ToolCallID]
		var args fileToolArgs
		if err := json.Unmarshal([]byte(raw), &args); err == nil {
			path := args.FilePath
			if path == "" {
				path = args.Path
			}
			if path != "" {
				p.upsertFile(path, args.Content)
				return
			}
		}
	}
	// Fall back to the result document, which some tools use to report the
	// file they wrote. Legacy producers put it at the top level with no
	// payload at all.
	p.upsertFromResult(ev.ResultJSON())
}

func (p *Processor) handleToolResults(ev *domain.StreamEvent) {
	if ev.Payload == nil {
		return
	}
	upserted := false
	for _, raw := range ev.Payload.Results {
		doc := gjson.ParseBytes(raw)
		if !doc.Get("success").Bool() {
			continue
		}
		path := doc.Get("filePath").String()
		if path == "" {
			continue
		}
		content := doc.Get("content").String()
		p.state.Files[path] = content
		p.state.TrackFile(path)
		p.cb.fileContent(path, content)
		upserted = true
	}
	// One trailing created-files notification for the whole batch.
	if upserted {
		p.cb.fileCreated(p.state.CreatedFilesCopy())
	}
}

// upsertFromResult inspects a tool result document for
// {success, filePath, content} and upserts on success.
func (p *Processor) upsertFromResult(raw json.RawMessage) {
	if len(raw) == 0 {
		return
	}
	doc := gjson.ParseBytes(raw)
	if !doc.Get("success").Bool() {
		return
	}
	path := doc.Get("filePath").String()
	if path == "" {
		return
	}
	p.upsertFile(path, doc.Get("content").String())
}

// upsertFile records content for path, firing OnFileCreated when the path is
// new and OnFileContent when the content actually changed. The dedupe keeps
// the speculative streaming path and the authoritative tool-result path from
// double-announcing the same file.
func (p *Processor) upsertFile(path, content string) {
	prev, known := p.state.Files[path]
	p.state.Files[path] = content
	if p.state.TrackFile(path) {
		p.cb.fileCreated(p.state.CreatedFilesCopy())
	}
	if !known || prev != content {
		p.cb.fileContent(path, content)
	}
}

func (p *Processor) handleFileStart(ev *domain.StreamEvent) {
	p.state.StreamingFiles[ev.FileID] = &domain.StreamingFile{
		Path:     ev.Path,
		FileName: ev.FileName,
		Status:   domain.FileStreaming,
	}
	p.state.FileBuffers[ev.FileID] = ""
	if ev.Path != "" && p.state.TrackFile(ev.Path) {
		p.cb.fileCreated(p.state.CreatedFilesCopy())
	}
	p.cb.fileStart(ev.FileID, ev.Path, ev.FileName)
}

func (p *Processor) handleFileChunk(ev *domain.StreamEvent) {
	buf := p.state.FileBuffers[ev.FileID] + ev.Chunk
	p.state.FileBuffers[ev.FileID] = buf

	if sf := p.state.StreamingFiles[ev.FileID]; sf != nil {
		sf.Content = buf
		sf.Chunks = append(sf.Chunks, domain.FileChunkRecord{Index: ev.ChunkIndex, Content: ev.Chunk})
		// Mirror the running content into the path-keyed map so live
		// previews track the stream.
		if sf.Path != "" {
			p.state.Files[sf.Path] = buf
			p.cb.fileContent(sf.Path, buf)
		}
	}
	p.cb.fileChunk(ev.FileID, ev.Chunk, ev.ChunkIndex)
}

func (p *Processor) handleFileEnd(ev *domain.StreamEvent) {
	path := ev.Path
	if sf := p.state.StreamingFiles[ev.FileID]; sf != nil {
		if path == "" {
			path = sf.Path
		}
		sf.Content = ev.Content
		sf.Status = domain.FileUploading
	}
	// The authoritative final content wins over whatever the chunk
	// concatenation produced.
	p.state.FileBuffers[ev.FileID] = ev.Content
	if path != "" {
		p.state.Files[path] = ev.Content
		p.state.TrackFile(path)
	}
	p.cb.fileEnd(ev.FileID, path, ev.Content)
	if path != "" {
		p.cb.fileContent(path, ev.Content)
	}
}

func (p *Processor) handleFileURL(ev *domain.StreamEvent) {
	path := ev.Path
	if sf := p.state.StreamingFiles[ev.FileID]; sf != nil {
		sf.URL = ev.URL
		sf.ExpiresAt = ev.ExpiresAt
		sf.Status = domain.FileComplete
		if path == "" {
			path = sf.Path
		}
	}
	if path != "" {
		p.state.FileURLs[path] = ev.URL
	}
	p.cb.fileURL(ev.FileID, path, ev.URL)
}

func (p *Processor) handleFileError(ev *domain.StreamEvent) {
	if sf := p.state.StreamingFiles[ev.FileID]; sf != nil {
		sf.Status = domain.FileFailed
		sf.Error = ev.Error
	}
	p.cb.fileError(ev.FileID, ev.Error)
}

// handleError disambiguates the two incompatible shapes sharing the "error"
// tag. payload.error is an agent-reported error folded into the visible
// transcript; a bare top-level error is a transport-level streaming error
// surfaced out of band.
func (p *Processor) handleError(ev *domain.StreamEvent) {
	if msg := ev.PayloadError(); msg != "" {
		p.state.AssistantContent += "\n\nError: " + msg
		p.cb.textDelta(p.state.AssistantContent)
		return
	}
	if ev.Error != "" {
		p.cb.streamingError(ev.Error)
	}
}

// CloseOrphans marks files that never received a file-end as failed. Called
// when the transport drains so no record is left in the streaming state
// forever.
func (p *Processor) CloseOrphans() {
	for fileID, sf := range p.state.StreamingFiles {
		if sf.Status != domain.FileStreaming {
			continue
		}
		sf.Status = domain.FileFailed
		sf.Error = "stream ended before file completed"
		p.logger.Warn("orphaned streaming file", "file_id", fileID, "path", sf.Path)
	}
}
