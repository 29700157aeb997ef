package usecase

import (
	"context"
	"encoding/json"
	"log/slog"
	"sort"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"vibedesk/internal/adapter/agent"
	"vibedesk/internal/domain"
	"vibedesk/internal/infra/tracer"
)

// AgentRunner is the slice of the agent client the chat service needs.
type AgentRunner interface {
	Run(ctx context.Context, prompt string, cb agent.Callbacks) (*agent.Result, error)
}

// ChatConfig tunes the chat service.
type ChatConfig struct {
	// Debounce is the interim-save window for the persistence bridge.
	Debounce time.Duration
	// RequestsPerMin caps prompt submissions per session; 0 disables limiting.
	RequestsPerMin int
	// Burst is the limiter burst size; defaults to 1 when limiting is on.
	Burst int
}

// ChatService orchestrates one vibe-coding conversation turn: it guards the
// one-stream-per-session invariant, allocates the streaming placeholder
// message, wires the persistence bridge and event-bus fan-out into the
// stream callbacks, and finalizes in every outcome.
type ChatService struct {
	runner    AgentRunner
	messages  domain.MessageStore
	artifacts domain.ArtifactStore
	bus       domain.EventBus
	logger    *slog.Logger
	cfg       ChatConfig

	mu       sync.Mutex
	inFlight map[string]context.CancelFunc
	limiters map[string]*rate.Limiter
}

// NewChatService creates a chat service.
func NewChatService(runner AgentRunner, messages domain.MessageStore, artifacts domain.ArtifactStore, bus domain.EventBus, cfg ChatConfig, logger *slog.Logger) *ChatService {
	return &ChatService{
		runner:    runner,
		messages:  messages,
		artifacts: artifacts,
		bus:       bus,
		logger:    logger,
		cfg:       cfg,
		inFlight:  make(map[string]context.CancelFunc),
		limiters:  make(map[string]*rate.Limiter),
	}
}

// SendMessage runs one agent invocation for the session. At most one stream
// may be in flight per session; a second call while one is active returns
// ErrStreamInFlight. Cancellation surfaces as ErrStreamCancelled, but the
// placeholder message is finalized in all cases.
func (s *ChatService) SendMessage(ctx context.Context, sessionID, prompt string) (*agent.Result, error) {
	if sessionID == "" || prompt == "" {
		return nil, domain.NewDomainError("ChatService.SendMessage", domain.ErrInvalidInput, "session id and prompt are required")
	}
	if !s.allow(sessionID) {
		return nil, domain.NewDomainError("ChatService.SendMessage", domain.ErrRateLimit, sessionID)
	}

	runCtx, cancel, err := s.acquire(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	defer s.release(sessionID, cancel)

	ctx, span := tracer.StartSpan(runCtx, "chat.send_message")
	span.SetAttributes(tracer.StringAttr("session_id", sessionID))
	defer span.End()

	if err := s.messages.AppendMessage(ctx, sessionID, domain.RoleUser, prompt); err != nil {
		s.logger.Warn("persisting user message failed", "session_id", sessionID, "error", err)
	}

	// A failed placeholder allocation is not fatal: the bridge falls back
	// to appending a plain message at the end.
	messageID, err := s.messages.CreateStreamingMessage(ctx, sessionID)
	if err != nil {
		s.logger.Warn("allocating streaming message failed", "session_id", sessionID, "error", err)
		messageID = ""
	}

	bridge := NewBridge(s.messages, s.artifacts, s.bus, sessionID, messageID, s.cfg.Debounce, s.logger)
	s.publish(sessionID, domain.EventStreamStarted, nil)

	result, runErr := s.runner.Run(ctx, prompt, s.callbacks(sessionID, bridge))

	// Finalization must survive the cancelled context: the completion save
	// is the guarantee that no message stays visibly streaming.
	if err := bridge.Finalize(context.WithoutCancel(ctx), result, runErr); err != nil {
		s.logger.Error("finalizing stream failed", "session_id", sessionID, "error", err)
	}

	if runErr != nil {
		tracer.RecordError(span, runErr)
		s.publish(sessionID, domain.EventStreamError, domain.StreamErrorPayload{
			Error: runErr.Error(),
			Code:  string(domain.ErrorCodeOf(runErr)),
		})
		return nil, domain.WrapOp("ChatService.SendMessage", runErr)
	}

	tracer.SetOK(span)
	s.publish(sessionID, domain.EventStreamCompleted, domain.StreamCompletedPayload{
		Content: result.AssistantContent,
		Files:   sortedPaths(result.Files),
	})
	return result, nil
}

// Cancel aborts the in-flight stream for the session, if any.
func (s *ChatService) Cancel(sessionID string) error {
	s.mu.Lock()
	cancel, ok := s.inFlight[sessionID]
	s.mu.Unlock()
	if !ok {
		return domain.NewDomainError("ChatService.Cancel", domain.ErrSessionNotFound, "no active stream for "+sessionID)
	}
	cancel()
	return nil
}

func (s *ChatService) acquire(ctx context.Context, sessionID string) (context.Context, context.CancelFunc, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, active := s.inFlight[sessionID]; active {
		return nil, nil, domain.NewDomainError("ChatService.SendMessage", domain.ErrStreamInFlight, sessionID)
	}
	runCtx, cancel := context.WithCancel(ctx)
	s.inFlight[sessionID] = cancel
	return runCtx, cancel, nil
}

func (s *ChatService) release(sessionID string, cancel context.CancelFunc) {
	s.mu.Lock()
	delete(s.inFlight, sessionID)
	s.mu.Unlock()
	cancel()
}

func (s *ChatService) allow(sessionID string) bool {
	if s.cfg.RequestsPerMin <= 0 {
		return true
	}
	s.mu.Lock()
	limiter, ok := s.limiters[sessionID]
	if !ok {
		burst := s.cfg.Burst
		if burst <= 0 {
			burst = 1
		}
		limiter = rate.NewLimiter(rate.Limit(float64(s.cfg.RequestsPerMin)/60.0), burst)
		s.limiters[sessionID] = limiter
	}
	s.mu.Unlock()
	return limiter.Allow()
}

// callbacks fans each stream callback out to the persistence bridge and the
// event bus.
func (s *ChatService) callbacks(sessionID string, bridge *Bridge) agent.Callbacks {
	return agent.Callbacks{
		OnSessionStart: func(id string) {
			s.logger.Debug("agent session started", "session_id", sessionID, "agent_session", id)
		},
		OnTextDelta: func(content string) {
			bridge.HandleText(content)
			s.publish(sessionID, domain.EventStreamDelta, domain.StreamDeltaPayload{Content: content})
		},
		OnToolCall: bridge.HandleToolCall,
		OnToolArgs: bridge.HandleToolArgs,
		OnFileCreated: func(paths []string) {
			bridge.HandleFileCreated(paths)
		},
		OnFileContent: func(path, content string) {
			bridge.HandleFileContent(path, content)
			s.publish(sessionID, domain.EventStreamFile, domain.StreamFilePayload{Path: path})
		},
		OnReasoning: func(reasoning string) {
			bridge.HandleReasoning(reasoning)
			s.publish(sessionID, domain.EventStreamReasoning, domain.StreamDeltaPayload{Content: reasoning})
		},
		OnFileError: func(fileID, message string) {
			s.logger.Warn("file stream failed", "session_id", sessionID, "file_id", fileID, "error", message)
		},
		OnStreamingError: func(message string) {
			s.publish(sessionID, domain.EventStreamError, domain.StreamErrorPayload{Error: message})
		},
		OnStreamingDone: func(id string) {
			s.logger.Debug("agent stream done", "session_id", sessionID, "agent_session", id)
		},
	}
}

func (s *ChatService) publish(sessionID string, eventType domain.EventType, payload any) {
	if s.bus == nil {
		return
	}
	var raw json.RawMessage
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			s.logger.Warn("marshal event payload failed", "type", string(eventType), "error", err)
			return
		}
		raw = data
	}
	s.bus.Publish(context.Background(), domain.Event{
		Type:      eventType,
		Timestamp: time.Now(),
		SessionID: sessionID,
		Payload:   raw,
	})
}

func sortedPaths(files map[string]string) []string {
	paths := make([]string, 0, len(files))
	for p := range files {
		paths = append(paths, p)
	}
	sort.Strings(paths)
	return paths
}
