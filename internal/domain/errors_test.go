package domain

import (
	"context"
	"errors"
	"fmt"
	"testing"
)

func TestDomainErrorUnwrap(t *testing.T) {
	err := NewDomainError("ChatService.SendMessage", ErrStreamInFlight, "sess-1")
	if !errors.Is(err, ErrStreamInFlight) {
		t.Fatal("expected errors.Is to find the sentinel through DomainError")
	}
	want := "ChatService.SendMessage: sess-1: a stream is already in flight for this session"
	if err.Error() != want {
		t.Errorf("Error() = %q, want %q", err.Error(), want)
	}

	bare := NewDomainError("op", ErrRateLimit, "")
	if bare.Error() != "op: rate limit exceeded" {
		t.Errorf("Error() without detail = %q", bare.Error())
	}
}

func TestWrapOp(t *testing.T) {
	if WrapOp("op", nil) != nil {
		t.Fatal("WrapOp(nil) must return nil")
	}
	err := WrapOp("outer", WrapOp("inner", ErrAgentStatus))
	if !errors.Is(err, ErrAgentStatus) {
		t.Fatal("sentinel lost through nested WrapOp")
	}
}

func TestIsCancelled(t *testing.T) {
	if !IsCancelled(ErrStreamCancelled) {
		t.Error("sentinel itself not recognized")
	}
	if !IsCancelled(fmt.Errorf("run: %w", ErrStreamCancelled)) {
		t.Error("wrapped sentinel not recognized")
	}
	if IsCancelled(context.Canceled) {
		t.Error("context.Canceled is not a stream cancellation by itself")
	}
	if IsCancelled(nil) {
		t.Error("nil is not a cancellation")
	}
}

func TestErrorCodeOf(t *testing.T) {
	tests := []struct {
		err  error
		want ErrorCode
	}{
		{nil, CodeUnknown},
		{ErrStreamCancelled, CodeStreamCancelled},
		{NewDomainError("op", ErrRateLimit, "x"), CodeRateLimit},
		{fmt.Errorf("wrap: %w", ErrAgentUnavailable), CodeAgentUnavailable},
		{errors.New("something else"), CodeUnknown},
	}
	for _, tt := range tests {
		if got := ErrorCodeOf(tt.err); got != tt.want {
			t.Errorf("ErrorCodeOf(%v) = %s, want %s", tt.err, got, tt.want)
		}
	}
}
