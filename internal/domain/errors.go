package domain

import (
	"errors"
	"fmt"
)

// Sentinel errors for the domain layer.
var (
	ErrSessionNotFound  = fmt.Errorf("session not found")
	ErrMessageNotFound  = fmt.Errorf("message not found")
	ErrStreamInFlight   = fmt.Errorf("a stream is already in flight for this session")
	ErrStreamCancelled  = fmt.Errorf("stream cancelled")
	ErrAgentStatus      = fmt.Errorf("agent endpoint returned non-success status")
	ErrAgentUnavailable = fmt.Errorf("agent endpoint unavailable")
	ErrRateLimit        = fmt.Errorf("rate limit exceeded")
	ErrConfigLoad       = fmt.Errorf("failed to load configuration")
	ErrInvalidInput     = fmt.Errorf("invalid input")
	ErrStoreWrite       = fmt.Errorf("store write failed")
)

// DomainError wraps a sentinel error with operation context.
type DomainError struct {
	Op     string // operation name (e.g., "ChatService.SendMessage")
	Err    error  // underlying sentinel or wrapped error
	Detail string // human-readable detail
}

func (e *DomainError) Error() string {
	if e.Detail != "" {
		return fmt.Sprintf("%s: %s: %s", e.Op, e.Detail, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Op, e.Err)
}

func (e *DomainError) Unwrap() error { return e.Err }

// NewDomainError creates a new DomainError.
func NewDomainError(op string, err error, detail string) *DomainError {
	return &DomainError{Op: op, Err: err, Detail: detail}
}

// WrapOp adds operation context to an error using fmt.Errorf wrapping.
// Returns nil if err is nil, enabling idiomatic use: return domain.WrapOp("op", err)
func WrapOp(op string, err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", op, err)
}

// IsCancelled reports whether err represents a user-initiated stream abort,
// as opposed to a transport or agent failure.
func IsCancelled(err error) bool {
	return errors.Is(err, ErrStreamCancelled)
}

// ErrorCode is a machine-parseable error category for monitoring.
type ErrorCode string

const (
	CodeUnknown          ErrorCode = "UNKNOWN"
	CodeSessionNotFound  ErrorCode = "SESSION_NOT_FOUND"
	CodeMessageNotFound  ErrorCode = "MESSAGE_NOT_FOUND"
	CodeStreamInFlight   ErrorCode = "STREAM_IN_FLIGHT"
	CodeStreamCancelled  ErrorCode = "STREAM_CANCELLED"
	CodeAgentStatus      ErrorCode = "AGENT_STATUS"
	CodeAgentUnavailable ErrorCode = "AGENT_UNAVAILABLE"
	CodeRateLimit        ErrorCode = "RATE_LIMIT"
	CodeConfigLoad       ErrorCode = "CONFIG_LOAD"
	CodeInvalidInput     ErrorCode = "INVALID_INPUT"
	CodeStoreWrite       ErrorCode = "STORE_WRITE"
)

// errorCodeMap maps sentinel errors to their machine-parseable codes.
var errorCodeMap = map[error]ErrorCode{
	ErrSessionNotFound:  CodeSessionNotFound,
	ErrMessageNotFound:  CodeMessageNotFound,
	ErrStreamInFlight:   CodeStreamInFlight,
	ErrStreamCancelled:  CodeStreamCancelled,
	ErrAgentStatus:      CodeAgentStatus,
	ErrAgentUnavailable: CodeAgentUnavailable,
	ErrRateLimit:        CodeRateLimit,
	ErrConfigLoad:       CodeConfigLoad,
	ErrInvalidInput:     CodeInvalidInput,
	ErrStoreWrite:       CodeStoreWrite,
}

// ErrorCodeOf returns the machine-parseable error code for the given error.
// It walks the error chain with errors.Is and returns CodeUnknown when no
// sentinel matches.
func ErrorCodeOf(err error) ErrorCode {
	if err == nil {
		return CodeUnknown
	}
	if code, ok := errorCodeMap[err]; ok {
		return code
	}
	var de *DomainError
	if errors.As(err, &de) {
		if code, ok := errorCodeMap[de.Err]; ok {
			return code
		}
	}
	for sentinel, code := range errorCodeMap {
		if errors.Is(err, sentinel) {
			return code
		}
	}
	return CodeUnknown
}
