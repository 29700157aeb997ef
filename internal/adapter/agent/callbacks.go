package agent

import (
	"vibedesk/internal/domain"
)

// Callbacks is the set of hooks through which the stream pipeline reports
// incremental progress. OnTextDelta, OnToolCall, OnToolArgs and
// OnFileCreated are required; everything else is optional.
//
// OnTextDelta and OnReasoning receive the full accumulated content, not the
// delta, so callers can overwrite a single mutable display entry. OnToolCall
// receives "" when a tool call ends.
type Callbacks struct {
	OnSessionStart   func(sessionID string)
	OnTextDelta      func(content string)
	OnToolCall       func(toolName string)
	OnToolArgs       func(args map[string]string)
	OnFileCreated    func(paths []string)
	OnFileContent    func(path, content string)
	OnReasoning      func(reasoning string)
	OnFileStart      func(fileID, path, fileName string)
	OnFileChunk      func(fileID, chunk string, index int)
	OnFileEnd        func(fileID, path, content string)
	OnFileURL        func(fileID, path, url string)
	OnFileError      func(fileID, message string)
	OnStreamingDone  func(sessionID string)
	OnStreamingError func(message string)
}

func (c Callbacks) validate() error {
	switch {
	case c.OnTextDelta == nil:
		return domain.NewDomainError("Callbacks", domain.ErrInvalidInput, "OnTextDelta is required")
	case c.OnToolCall == nil:
		return domain.NewDomainError("Callbacks", domain.ErrInvalidInput, "OnToolCall is required")
	case c.OnToolArgs == nil:
		return domain.NewDomainError("Callbacks", domain.ErrInvalidInput, "OnToolArgs is required")
	case c.OnFileCreated == nil:
		return domain.NewDomainError("Callbacks", domain.ErrInvalidInput, "OnFileCreated is required")
	}
	return nil
}

// Nil-safe emit helpers. Required callbacks are validated up front, optional
// ones may be absent.

func (c Callbacks) sessionStart(id string) {
	if c.OnSessionStart != nil {
		c.OnSessionStart(id)
	}
}

func (c Callbacks) textDelta(content string) {
	if c.OnTextDelta != nil {
		c.OnTextDelta(content)
	}
}

func (c Callbacks) toolCall(name string) {
	if c.OnToolCall != nil {
		c.OnToolCall(name)
	}
}

func (c Callbacks) toolArgs(args map[string]string) {
	if c.OnToolArgs != nil {
		c.OnToolArgs(args)
	}
}

func (c Callbacks) fileCreated(paths []string) {
	if c.OnFileCreated != nil {
		c.OnFileCreated(paths)
	}
}

func (c Callbacks) fileContent(path, content string) {
	if c.OnFileContent != nil {
		c.OnFileContent(path, content)
	}
}

func (c Callbacks) reasoning(r string) {
	if c.OnReasoning != nil {
		c.OnReasoning(r)
	}
}

func (c Callbacks) fileStart(fileID, path, fileName string) {
	if c.OnFileStart != nil {
		c.OnFileStart(fileID, path, fileName)
	}
}

func (c Callbacks) fileChunk(fileID, chunk string, index int) {
	if c.OnFileChunk != nil {
		c.OnFileChunk(fileID, chunk, index)
	}
}

func (c Callbacks) fileEnd(fileID, path, content string) {
	if c.OnFileEnd != nil {
		c.OnFileEnd(fileID, path, content)
	}
}

func (c Callbacks) fileURL(fileID, path, url string) {
	if c.OnFileURL != nil {
		c.OnFileURL(fileID, path, url)
	}
}

func (c Callbacks) fileError(fileID, message string) {
	if c.OnFileError != nil {
		c.OnFileError(fileID, message)
	}
}

func (c Callbacks) streamingDone(sessionID string) {
	if c.OnStreamingDone != nil {
		c.OnStreamingDone(sessionID)
	}
}

func (c Callbacks) streamingError(message string) {
	if c.OnStreamingError != nil {
		c.OnStreamingError(message)
	}
}
